// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/spendsense/spendsense/internal/guardrails"
	"github.com/spendsense/spendsense/internal/metrics"
	"github.com/spendsense/spendsense/internal/recommend"
)

// RecommendationRecord is a stored recommendation together with its
// post-generation lifecycle state. Approved marks operator sign-off,
// Delivered marks that the API served it to the user, and ViewedAt is
// set when the user opens the content.
type RecommendationRecord struct {
	recommend.Recommendation

	Approved  bool       `json:"approved"`
	Delivered bool       `json:"delivered"`
	ViewedAt  *time.Time `json:"viewed_at,omitempty"`
}

// SaveRecommendations stores a batch of freshly generated recommendations
// in one transaction, plus a per-user index entry for each.
func (s *Store) SaveRecommendations(ctx context.Context, recs []recommend.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	start := time.Now()

	err := s.db.Update(func(txn *badger.Txn) error {
		for i := range recs {
			rec := RecommendationRecord{Recommendation: recs[i]}
			data, err := json.Marshal(&rec)
			if err != nil {
				return fmt.Errorf("marshal recommendation %s: %w", rec.RecID, err)
			}
			if err := txn.Set([]byte(recKeyPrefix+rec.RecID), data); err != nil {
				return fmt.Errorf("set recommendation: %w", err)
			}
			indexKey := []byte(userRecKeyPrefix + rec.UserID + ":" + rec.RecID)
			if err := txn.Set(indexKey, []byte(rec.RecID)); err != nil {
				return fmt.Errorf("set user index: %w", err)
			}
		}
		return nil
	})
	metrics.RecordStoreOp("save_recommendations", time.Since(start), err)
	return err
}

// GetRecommendation retrieves a recommendation record by ID.
func (s *Store) GetRecommendation(ctx context.Context, recID string) (*RecommendationRecord, error) {
	var rec RecommendationRecord
	if err := s.get("get_recommendation", recKeyPrefix+recID, &rec, ErrRecommendationNotFound); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Approve marks a recommendation as operator-approved.
func (s *Store) Approve(ctx context.Context, recID string) error {
	return s.updateRecommendation(ctx, "approve_recommendation", recID, func(rec *RecommendationRecord) {
		rec.Approved = true
	})
}

// MarkDelivered marks a recommendation as served to its user.
func (s *Store) MarkDelivered(ctx context.Context, recID string) error {
	return s.updateRecommendation(ctx, "mark_delivered", recID, func(rec *RecommendationRecord) {
		rec.Delivered = true
	})
}

// MarkViewed records the time the user opened the recommended content.
// Viewing implies delivery.
func (s *Store) MarkViewed(ctx context.Context, recID string, at time.Time) error {
	at = at.UTC()
	return s.updateRecommendation(ctx, "mark_viewed", recID, func(rec *RecommendationRecord) {
		rec.Delivered = true
		rec.ViewedAt = &at
	})
}

func (s *Store) updateRecommendation(_ context.Context, op, recID string, mutate func(*RecommendationRecord)) error {
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(recKeyPrefix + recID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrRecommendationNotFound
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		var rec RecommendationRecord
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return fmt.Errorf("unmarshal recommendation: %w", err)
		}

		mutate(&rec)

		data, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshal recommendation: %w", err)
		}
		return txn.Set(key, data)
	})
	metrics.RecordStoreOp(op, time.Since(start), err)
	return err
}

// ListRecommendations returns all stored recommendation records for a
// user in index order.
func (s *Store) ListRecommendations(ctx context.Context, userID string) ([]RecommendationRecord, error) {
	var recs []RecommendationRecord
	err := s.forEachUserRecommendation(userID, "list_recommendations", func(rec *RecommendationRecord) {
		recs = append(recs, *rec)
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// RecentlyViewedContentIDs returns the distinct content IDs the user has
// viewed since the given time.
func (s *Store) RecentlyViewedContentIDs(ctx context.Context, userID string, since time.Time) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})

	err := s.forEachUserRecommendation(userID, "recently_viewed", func(rec *RecommendationRecord) {
		if rec.ViewedAt == nil || rec.ViewedAt.Before(since) {
			return
		}
		if _, dup := seen[rec.ContentID]; dup {
			return
		}
		seen[rec.ContentID] = struct{}{}
		ids = append(ids, rec.ContentID)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CountRecommendationsSince counts recommendations generated for the
// user at or after the given time. The guardrails daily cap reads this.
func (s *Store) CountRecommendationsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	count := 0
	err := s.forEachUserRecommendation(userID, "count_recommendations", func(rec *RecommendationRecord) {
		if !rec.CreatedAt.Before(since) {
			count++
		}
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// forEachUserRecommendation walks the user_rec: index for a user and
// invokes fn for each record that still resolves. Dangling index entries
// are skipped.
func (s *Store) forEachUserRecommendation(userID, op string, fn func(*RecommendationRecord)) error {
	start := time.Now()
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userRecKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var recID string
			if err := it.Item().Value(func(val []byte) error {
				recID = string(val)
				return nil
			}); err != nil {
				continue
			}

			item, err := txn.Get([]byte(recKeyPrefix + recID))
			if err != nil {
				continue
			}

			var rec RecommendationRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				continue
			}
			fn(&rec)
		}
		return nil
	})
	metrics.RecordStoreOp(op, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Compile-time checks that Store satisfies its consumers' contracts.
var (
	_ guardrails.Store     = (*Store)(nil)
	_ recommend.Store      = (*Store)(nil)
	_ recommend.UserSource = (*Store)(nil)
)
