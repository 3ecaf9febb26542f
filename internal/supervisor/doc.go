// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

// Package supervisor provides Suture-based process supervision.
//
// The tree has three layers: data (Badger maintenance), pipeline (batch
// regeneration), and api (HTTP server). A crash in one layer restarts
// only that layer's services.
package supervisor
