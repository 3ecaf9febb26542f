// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

/*
Package api provides the HTTP surface using the Chi router.

Endpoints are versioned under /api/v1. Every response uses a common
envelope with a status, data payload, metadata timestamp, and an
optional structured error. Delivery-facing endpoints enforce the
consent guardrail before any pipeline work happens; a pipeline failure
for one user degrades to an empty recommendation list, never a 500.
*/
package api
