// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

/*
Package guardrails enforces safety and compliance rules on outgoing
recommendations.

The checks apply in a fixed order: consent gate (hard, blocks the whole
request on API paths), daily rate cap (advisory, logged only), positive
framing rewrite, prohibited-pattern scan over the rewritten text (hard,
drops the single item), and disclaimer injection (distinct text for
partner offers vs. educational content).

Guardrails is a constructed service with its store dependency injected,
not package-level state; prohibited patterns and framing rules compile
once at construction.
*/
package guardrails
