// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

/*
Package storage is the persistence collaborator, backed by BadgerDB.

It owns everything the stateless pipeline must not: user and consent
records, signal snapshots per (user, window), persona assignments per
(user, window), and recommendation records with their approval,
delivery, and viewed state. The pipeline reads a recently-viewed
snapshot and a daily count from here and writes generated
recommendations back; all mutation of post-generation state happens
through this package.

Keys are prefix-namespaced strings (user:, signals:, persona:, rec:,
user_rec:) with values encoded as JSON. A secondary user_rec: index
supports per-user iteration over recommendation records.
*/
package storage
