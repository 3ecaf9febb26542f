// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/spendsense/spendsense/internal/metrics"
	"github.com/spendsense/spendsense/internal/persona"
	"github.com/spendsense/spendsense/internal/signal"
)

// User is the stored user record. ConsentStatus gates recommendation
// delivery; a user without consent never receives recommendations.
type User struct {
	UserID        string    `json:"user_id"`
	Name          string    `json:"name,omitempty"`
	ConsentStatus bool      `json:"consent_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateUser stores a user record, overwriting any existing record with
// the same ID. A zero CreatedAt is stamped with the current time.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	if u.UserID == "" {
		return fmt.Errorf("create user: empty user_id")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return s.put("create_user", userKeyPrefix+u.UserID, &u)
}

// GetUser retrieves a user record by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	var u User
	if err := s.get("get_user", userKeyPrefix+userID, &u, ErrUserNotFound); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetConsent updates a user's consent status.
func (s *Store) SetConsent(ctx context.Context, userID string, consent bool) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	u.ConsentStatus = consent
	return s.put("set_consent", userKeyPrefix+userID, u)
}

// HasConsent reports whether the user exists and has granted consent.
func (s *Store) HasConsent(ctx context.Context, userID string) (bool, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.ConsentStatus, nil
}

// ListUserIDs returns the IDs of all stored users in key order.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	start := time.Now()
	var ids []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	metrics.RecordStoreOp("list_users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

// SaveSignals stores a signal record keyed by (user, window).
func (s *Store) SaveSignals(ctx context.Context, rec *signal.Record) error {
	if rec == nil || rec.UserID == "" {
		return fmt.Errorf("save signals: missing user_id")
	}
	window := rec.Window
	if window == "" {
		window = signal.DefaultWindow
	}
	return s.put("save_signals", signalsKeyPrefix+rec.UserID+":"+window, rec)
}

// SignalRecord retrieves the signal record for a (user, window) pair. An
// empty window resolves to the default analysis window.
func (s *Store) SignalRecord(ctx context.Context, userID, window string) (*signal.Record, error) {
	if window == "" {
		window = signal.DefaultWindow
	}
	var rec signal.Record
	if err := s.get("get_signals", signalsKeyPrefix+userID+":"+window, &rec, ErrSignalsNotFound); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveAssignment stores a persona assignment keyed by (user, window).
func (s *Store) SaveAssignment(ctx context.Context, userID string, a persona.Assignment) error {
	window := a.Window
	if window == "" {
		window = signal.DefaultWindow
	}
	return s.put("save_assignment", personaKeyPrefix+userID+":"+window, &a)
}

// GetAssignment retrieves the persona assignment for a (user, window) pair.
func (s *Store) GetAssignment(ctx context.Context, userID, window string) (*persona.Assignment, error) {
	if window == "" {
		window = signal.DefaultWindow
	}
	var a persona.Assignment
	if err := s.get("get_assignment", personaKeyPrefix+userID+":"+window, &a, ErrAssignmentNotFound); err != nil {
		return nil, err
	}
	return &a, nil
}
