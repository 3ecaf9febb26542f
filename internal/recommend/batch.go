// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package recommend

import (
	"context"
	"time"

	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/metrics"
)

// RegenerateAll runs the pipeline for every known user with per-user
// error isolation: a failing user is counted and skipped, never aborting
// the rest of the batch. Returns (processed, failed).
func (e *Engine) RegenerateAll(ctx context.Context, src UserSource, window string) (int, int) {
	start := time.Now()

	userIDs, err := src.ListUserIDs(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("batch regeneration could not list users")
		metrics.RecordBatchRun(time.Since(start), 0, 0)
		return 0, 0
	}

	var processed, failed int
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			logging.Warn().Int("processed", processed).Msg("batch regeneration cancelled")
			break
		}

		rec, err := src.SignalRecord(ctx, userID, window)
		if err != nil {
			metrics.PipelineErrors.WithLabelValues("signals").Inc()
			logging.Error().Err(err).Str("user_id", userID).Msg("skipping user, no signal record")
			failed++
			continue
		}

		// Generate never raises; a degraded user yields an empty list.
		e.GenerateAndSave(ctx, userID, rec)
		processed++
	}

	metrics.RecordBatchRun(time.Since(start), processed, failed)
	logging.Info().Int("processed", processed).Int("failed", failed).
		Dur("elapsed", time.Since(start)).Msg("batch regeneration complete")
	return processed, failed
}
