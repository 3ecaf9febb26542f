// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

// Package signal defines the per-user financial signal record and the
// mapping from continuous signal values to discrete behavioral triggers.
//
// A Record is computed by an external ingestion collaborator once per user
// per time window and consumed read-only by the recommendation pipeline.
// Pointer fields are optional signals: nil means "no evidence", which is
// deliberately distinct from zero.
//
// MapTriggers bridges numeric signals to the categorical trigger tags that
// content items are matched against. It is a pure, total function: it never
// fails outward and always returns at least one trigger.
package signal
