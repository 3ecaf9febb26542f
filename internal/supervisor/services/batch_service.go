// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package services

import (
	"context"
	"time"

	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/recommend"
)

// Regenerator is the slice of the recommendation engine the batch
// scheduler drives. Satisfied by *recommend.Engine.
type Regenerator interface {
	RegenerateAll(ctx context.Context, src recommend.UserSource, window string) (int, int)
}

// BatchService periodically regenerates recommendations for every known
// user. One run happens immediately on start so a restart never leaves
// users stale for a full interval.
type BatchService struct {
	engine   Regenerator
	src      recommend.UserSource
	window   string
	interval time.Duration
	name     string
}

// NewBatchService creates the batch regeneration scheduler.
func NewBatchService(engine Regenerator, src recommend.UserSource, window string, interval time.Duration) *BatchService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BatchService{
		engine:   engine,
		src:      src,
		window:   window,
		interval: interval,
		name:     "batch-regeneration",
	}
}

// Serve implements suture.Service.
func (b *BatchService) Serve(ctx context.Context) error {
	b.run(ctx)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.run(ctx)
		}
	}
}

func (b *BatchService) run(ctx context.Context) {
	start := time.Now()
	processed, failed := b.engine.RegenerateAll(ctx, b.src, b.window)
	logging.Info().
		Int("processed", processed).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch regeneration run finished")
}

// String identifies the service in suture log messages.
func (b *BatchService) String() string {
	return b.name
}
