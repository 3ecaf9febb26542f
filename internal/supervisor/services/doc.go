// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

// Package services contains suture.Service wrappers for the long-running
// components: the HTTP server, Badger value log GC, and the batch
// regeneration scheduler.
package services
