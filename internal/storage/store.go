// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/spendsense/spendsense/internal/metrics"
)

// Key prefixes for BadgerDB storage
const (
	userKeyPrefix    = "user:"
	signalsKeyPrefix = "signals:"
	personaKeyPrefix = "persona:"
	recKeyPrefix     = "rec:"
	userRecKeyPrefix = "user_rec:"
)

// Sentinel errors returned by lookups. Callers should match with errors.Is.
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrSignalsNotFound        = errors.New("signals not found")
	ErrAssignmentNotFound     = errors.New("persona assignment not found")
	ErrRecommendationNotFound = errors.New("recommendation not found")
)

// Store is a BadgerDB-backed store for users, signal snapshots, persona
// assignments, and recommendation records. A single Store is shared by
// the API layer and the recommendation pipeline.
type Store struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens (creating if necessary) a Badger database rooted at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &Store{db: db, log: log.With().Str("component", "storage").Logger()}, nil
}

// OpenInMemory opens an ephemeral in-memory store. Used by tests and by
// deployments that explicitly opt out of persistence.
func OpenInMemory(log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "storage").Logger()}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs one round of Badger value log garbage collection. It
// returns badger.ErrNoRewrite when there was nothing to reclaim, which
// callers should treat as a normal outcome.
func (s *Store) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// put marshals v and stores it under key in a single update transaction.
func (s *Store) put(op, key string, v any) error {
	start := time.Now()
	data, err := json.Marshal(v)
	if err != nil {
		metrics.RecordStoreOp(op, time.Since(start), err)
		return fmt.Errorf("marshal %s: %w", op, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	metrics.RecordStoreOp(op, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// get loads the value under key into out, mapping a missing key to notFound.
func (s *Store) get(op, key string, out any, notFound error) error {
	start := time.Now()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	metrics.RecordStoreOp(op, time.Since(start), err)
	return err
}
