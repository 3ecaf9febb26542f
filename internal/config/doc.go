// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

// Package config loads layered application configuration: built-in
// defaults, then an optional YAML file, then environment variables.
package config
