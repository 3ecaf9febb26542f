// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package recommend

import (
	"context"
	"time"

	"github.com/spendsense/spendsense/internal/catalog"
	"github.com/spendsense/spendsense/internal/persona"
	"github.com/spendsense/spendsense/internal/signal"
)

// Recommendation is one scored, explained content suggestion. Created
// per request and never mutated by this package afterwards; approval and
// delivery state is owned by the storage collaborator.
type Recommendation struct {
	RecID              string              `json:"rec_id"`
	UserID             string              `json:"user_id"`
	ContentID          string              `json:"content_id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	URL                string              `json:"url"`
	Type               catalog.ContentType `json:"type"`
	ReadingTimeMinutes int                 `json:"reading_time_minutes"`
	Rationale          string              `json:"rationale"`
	PriorityScore      float64             `json:"priority_score"`
	MatchReasons       []string            `json:"match_reasons"`
	CreatedAt          time.Time           `json:"created_at"`
}

// Store is the slice of the storage collaborator the engine reads from
// and writes to.
type Store interface {
	RecentlyViewedContentIDs(ctx context.Context, userID string, since time.Time) ([]string, error)
	SaveAssignment(ctx context.Context, userID string, a persona.Assignment) error
	SaveRecommendations(ctx context.Context, recs []Recommendation) error
}

// UserSource enumerates users and their signal snapshots for batch
// regeneration.
type UserSource interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	SignalRecord(ctx context.Context, userID, window string) (*signal.Record, error)
}
