// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

/*
Package persona implements the configurable rule engine that assigns each
user exactly one behavioral persona.

Persona definitions are loaded from a YAML source (or built-in defaults on
load failure) and compiled once into typed comparator functions. A criterion
is {field, operator, value, combinator}: the operator set is closed
(==, !=, <, <=, >, >=) and unknown operators or fields are rejected at
compile time rather than silently evaluated as false at classification time.

Criterion lists fold left-to-right: the first criterion's result seeds the
accumulator and each subsequent criterion combines with the accumulated
result using its own combinator (OR is logical or, anything else is AND).
Combinator placement is therefore significant. Confidence is the fraction
of individually true criteria, computed independently of the fold result.

Classification never fails outward. Low data quality, no match, and
internal errors all resolve to the fallback persona with a tagged outcome
(Classified, FallbackLowQuality, FallbackNoMatch, FallbackError) so callers
can distinguish a genuine match from a degraded one.
*/
package persona
