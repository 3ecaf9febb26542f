// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

/*
Package metrics provides Prometheus instrumentation for the recommendation
pipeline and its HTTP surface.

Metrics are registered with the default registry via promauto and exposed
at /metrics in Prometheus text format.

Pipeline metrics:
  - triggers_fired_total: trigger derivations (counter)
    Labels: trigger
  - persona_classifications_total: classifier outcomes (counter)
    Labels: persona, outcome (classified, fallback_low_quality,
    fallback_no_match, fallback_error)
  - recommendations_generated_total: recommendations surfaced to users
  - recommendations_filtered_total: items dropped or excluded (counter)
    Labels: reason (prohibited_content, recently_viewed, no_candidates)
  - guardrail_events_total: guardrail activations (counter)
    Labels: kind (consent_denied, rate_cap, reframed, prohibited,
    disclaimer)
  - pipeline_duration_seconds: end-to-end per-user pipeline latency
  - pipeline_errors_total: per-user pipeline failures (counter)
    Labels: stage

Storage metrics:
  - store_op_duration_seconds: BadgerDB operation latency (histogram)
    Labels: operation
  - store_op_errors_total: failed store operations (counter)
    Labels: operation

HTTP metrics:
  - api_requests_total, api_request_duration_seconds,
    api_active_requests, api_rate_limit_hits_total

Batch metrics:
  - batch_duration_seconds, batch_users_processed_total,
    batch_users_failed_total, batch_last_success_timestamp

All recording helpers are safe for concurrent use; synchronization is
handled by the Prometheus client library. Label values are drawn from
small fixed sets to keep cardinality bounded (no user IDs in labels).
*/
package metrics
