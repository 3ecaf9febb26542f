// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spendsense/spendsense/internal/catalog"
	"github.com/spendsense/spendsense/internal/guardrails"
	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/metrics"
	"github.com/spendsense/spendsense/internal/persona"
	"github.com/spendsense/spendsense/internal/signal"
)

// Defaults for result size and the recently-viewed exclusion window.
const (
	DefaultMaxRecommendations = 5
	DefaultExcludeRecentDays  = 30
)

// Scoring terms. Additive on purpose: each term maps to one match
// reason.
const (
	personaMatchBonus   = 2.0
	triggerOverlapBonus = 1.0
	confidenceWeight    = 1.0
	articleBias         = 0.5
	checklistBias       = 0.3
	partnerOfferBias    = -0.5
)

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	MaxRecommendations int
	ExcludeRecentDays  int
}

// Engine generates scored, explained, guardrailed recommendations.
// Immutable after construction and safe for concurrent use.
type Engine struct {
	catalog    *catalog.Catalog
	classifier *persona.Classifier
	guards     *guardrails.Guardrails
	store      Store
	maxRecs    int
	excludeDay int
}

// NewEngine wires the pipeline's collaborators together.
func NewEngine(cat *catalog.Catalog, cls *persona.Classifier, g *guardrails.Guardrails, store Store, opts Options) *Engine {
	if opts.MaxRecommendations <= 0 {
		opts.MaxRecommendations = DefaultMaxRecommendations
	}
	if opts.ExcludeRecentDays <= 0 {
		opts.ExcludeRecentDays = DefaultExcludeRecentDays
	}
	return &Engine{
		catalog:    cat,
		classifier: cls,
		guards:     g,
		store:      store,
		maxRecs:    opts.MaxRecommendations,
		excludeDay: opts.ExcludeRecentDays,
	}
}

// Generate runs the full pipeline for one user: classify, map triggers,
// select and score candidates, synthesize rationales, and guardrail the
// result. Any failure degrades to an empty list for this user only.
func (e *Engine) Generate(ctx context.Context, userID string, rec *signal.Record) (recs []Recommendation, assignment persona.Assignment) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Str("user_id", userID).
				Msg("recommendation generation panicked, returning empty list")
			metrics.PipelineErrors.WithLabelValues("score").Inc()
			recs = nil
		}
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	assignment = e.classifier.Classify(rec)
	triggers := signal.MapTriggers(rec)

	// Advisory only: logs when the user is over the daily cap.
	e.guards.CheckDailyCap(ctx, userID)

	viewed := e.recentlyViewed(ctx, userID)
	candidates := e.candidates(assignment, triggers, viewed)
	if len(candidates) == 0 {
		metrics.RecommendationsFiltered.WithLabelValues("no_candidates").Inc()
		logging.Debug().Str("user_id", userID).Str("persona", assignment.PersonaID).
			Msg("no candidate content for user")
		return nil, assignment
	}

	scored := e.score(candidates, assignment, triggers)

	// Top K is cut before guardrails run: an item dropped by the
	// prohibited-pattern scan shrinks the result rather than promoting a
	// lower-ranked candidate into it.
	if len(scored) > e.maxRecs {
		scored = scored[:e.maxRecs]
	}

	now := time.Now().UTC()
	for _, sc := range scored {
		item := sc.item

		rationale := e.synthesizeRationale(item, assignment, triggers, rec)
		final, err := e.guards.ProcessRationale(item.Type, rationale)
		if err != nil {
			if errors.Is(err, guardrails.ErrProhibitedContent) {
				metrics.RecommendationsFiltered.WithLabelValues("prohibited_content").Inc()
				logging.Warn().Str("user_id", userID).Str("content_id", item.ContentID).
					Msg("recommendation dropped by prohibited-pattern scan")
			} else {
				logging.Error().Err(err).Str("content_id", item.ContentID).
					Msg("guardrail processing failed, dropping item")
			}
			continue
		}

		recs = append(recs, Recommendation{
			RecID:              uuid.NewString(),
			UserID:             userID,
			ContentID:          item.ContentID,
			Title:              item.Title,
			Description:        item.Description,
			URL:                item.URL,
			Type:               item.Type,
			ReadingTimeMinutes: item.ReadingTimeMinutes,
			Rationale:          final,
			PriorityScore:      sc.score,
			MatchReasons:       e.matchReasons(item, assignment, triggers),
			CreatedAt:          now,
		})
	}

	metrics.RecommendationsGenerated.Add(float64(len(recs)))
	logging.Info().Str("user_id", userID).Str("persona", assignment.PersonaID).
		Int("count", len(recs)).Msg("generated recommendations")
	return recs, assignment
}

// GenerateAndSave runs Generate and persists the persona assignment and
// recommendation records. Persistence failures are logged, not
// propagated; the generated list is still returned.
func (e *Engine) GenerateAndSave(ctx context.Context, userID string, rec *signal.Record) ([]Recommendation, persona.Assignment) {
	recs, assignment := e.Generate(ctx, userID, rec)

	if err := e.store.SaveAssignment(ctx, userID, assignment); err != nil {
		metrics.PipelineErrors.WithLabelValues("persist").Inc()
		logging.Error().Err(err).Str("user_id", userID).Msg("failed to persist persona assignment")
	}
	if len(recs) > 0 {
		if err := e.store.SaveRecommendations(ctx, recs); err != nil {
			metrics.PipelineErrors.WithLabelValues("persist").Inc()
			logging.Error().Err(err).Str("user_id", userID).Msg("failed to persist recommendations")
		}
	}
	return recs, assignment
}

func (e *Engine) recentlyViewed(ctx context.Context, userID string) map[string]struct{} {
	since := time.Now().UTC().AddDate(0, 0, -e.excludeDay)
	ids, err := e.store.RecentlyViewedContentIDs(ctx, userID, since)
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("failed to load recently viewed content, not excluding")
		return nil
	}
	viewed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		viewed[id] = struct{}{}
	}
	return viewed
}

// candidates builds the deduplicated candidate set: persona-matched
// items first, then trigger-matched items, catalog order within each.
// Insertion order is the tie-break order downstream.
func (e *Engine) candidates(assignment persona.Assignment, triggers []signal.Trigger, viewed map[string]struct{}) []catalog.Item {
	var out []catalog.Item
	seen := make(map[string]struct{})

	add := func(items []catalog.Item) {
		for _, item := range items {
			if _, dup := seen[item.ContentID]; dup {
				continue
			}
			seen[item.ContentID] = struct{}{}

			if _, skip := viewed[item.ContentID]; skip {
				metrics.RecommendationsFiltered.WithLabelValues("recently_viewed").Inc()
				continue
			}
			if !catalog.Eligible(item.Eligibility) {
				continue
			}
			if err := e.guards.CheckContent(item); err != nil {
				metrics.RecommendationsFiltered.WithLabelValues("prohibited_content").Inc()
				logging.Warn().Str("content_id", item.ContentID).Msg("catalog item dropped by prohibited-pattern scan")
				continue
			}
			out = append(out, item)
		}
	}

	add(e.catalog.ByPersonas(assignment.PersonaID))
	add(e.catalog.ByTriggers(triggers...))
	return out
}

type scoredItem struct {
	item  catalog.Item
	score float64
}

// score computes the additive score per candidate and sorts descending,
// keeping insertion order for ties.
func (e *Engine) score(items []catalog.Item, assignment persona.Assignment, triggers []signal.Trigger) []scoredItem {
	scored := make([]scoredItem, 0, len(items))
	for _, item := range items {
		s := item.PriorityScore

		for _, p := range item.Personas {
			if p == assignment.PersonaID {
				s += personaMatchBonus
				break
			}
		}
		s += float64(len(intersectTriggers(triggers, item.SignalTriggers))) * triggerOverlapBonus
		s += assignment.Confidence * confidenceWeight

		switch item.Type {
		case catalog.TypeArticle:
			s += articleBias
		case catalog.TypeChecklist:
			s += checklistBias
		case catalog.TypePartnerOffer:
			s += partnerOfferBias
		}

		scored = append(scored, scoredItem{item: item, score: s})
	}

	sort.SliceStable(scored, func(a, b int) bool { return scored[a].score > scored[b].score })
	return scored
}

func (e *Engine) matchReasons(item catalog.Item, assignment persona.Assignment, triggers []signal.Trigger) []string {
	var reasons []string
	for _, p := range item.Personas {
		if p == assignment.PersonaID {
			reasons = append(reasons, fmt.Sprintf("Matches %s persona", assignment.PersonaName))
			break
		}
	}
	for _, t := range intersectTriggers(triggers, item.SignalTriggers) {
		reasons = append(reasons, fmt.Sprintf("Matches %s trigger", t))
	}
	return reasons
}

// intersectTriggers preserves the order of the active trigger set.
func intersectTriggers(active []signal.Trigger, tagged []signal.Trigger) []signal.Trigger {
	var out []signal.Trigger
	for _, a := range active {
		for _, t := range tagged {
			if a == t {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
