// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/spendsense/spendsense/internal/logging"
)

// ValueLogGC is the slice of the storage layer the GC service drives.
// Satisfied by *storage.Store.
type ValueLogGC interface {
	RunGC(discardRatio float64) error
}

// StorageGCService periodically runs Badger value log garbage
// collection. A successful rewrite is retried immediately because more
// reclaimable files may remain; badger.ErrNoRewrite means the cycle is
// done until the next tick.
type StorageGCService struct {
	store        ValueLogGC
	interval     time.Duration
	discardRatio float64
	name         string
}

// NewStorageGCService creates the GC service.
func NewStorageGCService(store ValueLogGC, interval time.Duration, discardRatio float64) *StorageGCService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if discardRatio <= 0 || discardRatio > 1 {
		discardRatio = 0.5
	}
	return &StorageGCService{
		store:        store,
		interval:     interval,
		discardRatio: discardRatio,
		name:         "storage-gc",
	}
}

// Serve implements suture.Service.
func (s *StorageGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *StorageGCService) runCycle(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.store.RunGC(s.discardRatio)
		if err == nil {
			logging.Debug().Msg("Badger value log GC reclaimed a file")
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			logging.Warn().Err(err).Msg("Badger value log GC failed")
		}
		return
	}
}

// String identifies the service in suture log messages.
func (s *StorageGCService) String() string {
	return s.name
}
