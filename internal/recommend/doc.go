// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

/*
Package recommend implements the recommendation scorer and the rationale
synthesizer, the center of the pipeline.

Generation for one user runs classification, trigger mapping, candidate
selection, scoring, rationale synthesis, and guardrail filtering to
completion synchronously. Scoring is deliberately additive so every term
traces back to a concrete match reason: base priority, persona match
bonus, one point per overlapping trigger, persona confidence, and a
small content-type bias.

Ties keep candidate insertion order (persona-matched items before
trigger-only items, catalog order within each), which makes rankings
reproducible. The only randomness in the pipeline is the choice of
rationale opening phrase, which affects surface wording and nothing
else.

Per-user failures degrade to an empty list and never propagate: one
user's failure must not abort a batch.
*/
package recommend
