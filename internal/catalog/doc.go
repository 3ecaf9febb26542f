// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

/*
Package catalog loads and validates the versioned content catalog.

The catalog is read once at engine start from a JSON source and is
immutable afterwards. Load failures of any kind fall back to a minimal
built-in catalog so the system never has zero recommendable content.

Validation distinguishes fatal problems (schema violations, duplicate
content ids) from advisory ones (a persona with no content, fewer than
the recommended minimum per content type); advisory issues are logged
and the catalog is used anyway.

Eligibility requirements (min_income, min_credit_score, account types)
are carried on every item but not enforced: user demographic data is not
wired into the pipeline, so Eligible is a documented pass-through.
Age-based expiry (max_age_days) is likewise unenforced.
*/
package catalog
