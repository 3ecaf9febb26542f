// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package guardrails

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/spendsense/spendsense/internal/catalog"
	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/metrics"
)

// DefaultDailyCap is the advisory limit on recommendations created per
// user per day.
const DefaultDailyCap = 10

// ErrNoConsent marks a hard consent-gate violation. API callers map it
// to an access-denied response.
var ErrNoConsent = errors.New("user has not consented to recommendations")

// ErrProhibitedContent marks text that matched a prohibited pattern.
// The offending item is dropped, never delivered.
var ErrProhibitedContent = errors.New("text contains prohibited pattern")

// Store is the slice of the storage collaborator the guardrails need.
type Store interface {
	HasConsent(ctx context.Context, userID string) (bool, error)
	CountRecommendationsSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// Shaming and negative-language patterns. Any match is a hard violation.
var prohibitedPatterns = []string{
	`\b(you're|you are) (stupid|dumb|idiot|fool|waste|terrible|awful)\b`,
	`\b(always|never) (spend|waste|throw away)\b`,
	`\b(pathetic|worthless|loser)\b`,
	`\b(you deserve|you earned) (this|it)\b.*\b(debt|trouble|problem)\b`,
}

type framingRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Disclaimer texts appended to every surviving rationale.
const (
	partnerOfferDisclaimer = "This is a partner offer, not financial advice. SpendSense may receive compensation if you sign up. Consult a licensed advisor for personalized guidance."
	educationalDisclaimer  = "This is educational content, not financial advice. Consult a licensed advisor for personalized guidance."
)

// Guardrails applies safety and compliance rules to recommendations.
// Immutable after construction and safe for concurrent use.
type Guardrails struct {
	store      Store
	dailyCap   int
	prohibited []*regexp.Regexp
	framing    []framingRule
}

// New constructs a Guardrails service. dailyCap <= 0 selects the
// default cap.
func New(store Store, dailyCap int) *Guardrails {
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}

	g := &Guardrails{store: store, dailyCap: dailyCap}
	for _, p := range prohibitedPatterns {
		g.prohibited = append(g.prohibited, regexp.MustCompile("(?i)"+p))
	}

	// Replacement order is significant: rules apply top to bottom.
	for _, r := range []struct{ pattern, replacement string }{
		{`\b(can't|cannot) (afford|pay|manage)\b`, "can work toward"},
		{`\btoo (much|many|high|low)\b`, "opportunity to optimize"},
		{`\b(failure|failed|failing)\b`, "learning opportunity"},
		{`\b(problem|issue|trouble)\b`, "area for improvement"},
	} {
		g.framing = append(g.framing, framingRule{
			pattern:     regexp.MustCompile("(?i)" + r.pattern),
			replacement: r.replacement,
		})
	}

	logging.Debug().Int("daily_cap", dailyCap).Msg("guardrails initialized")
	return g
}

// CheckConsent gates the whole request on the user's consent record.
// Missing users and store errors are violations, not soft failures.
func (g *Guardrails) CheckConsent(ctx context.Context, userID string) error {
	ok, err := g.store.HasConsent(ctx, userID)
	if err != nil {
		metrics.GuardrailEvents.WithLabelValues("consent_denied").Inc()
		return fmt.Errorf("consent check for user %s: %w", userID, err)
	}
	if !ok {
		metrics.GuardrailEvents.WithLabelValues("consent_denied").Inc()
		logging.Warn().Str("user_id", userID).Msg("consent gate rejected request")
		return fmt.Errorf("user %s: %w", userID, ErrNoConsent)
	}
	return nil
}

// CheckDailyCap reports whether the user is under the daily
// recommendation cap. Advisory only: exceeding the cap is logged, and
// store errors never block generation.
func (g *Guardrails) CheckDailyCap(ctx context.Context, userID string) bool {
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	count, err := g.store.CountRecommendationsSince(ctx, userID, midnight)
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("daily cap check failed, not blocking")
		return true
	}
	if count >= g.dailyCap {
		metrics.GuardrailEvents.WithLabelValues("rate_cap").Inc()
		logging.Warn().Str("user_id", userID).Int("count", count).Int("cap", g.dailyCap).
			Msg("user exceeded advisory daily recommendation cap")
		return false
	}
	return true
}

// CheckContent scans catalog-side text (title + description) for
// prohibited patterns.
func (g *Guardrails) CheckContent(item catalog.Item) error {
	text := item.Title + " " + item.Description
	for _, p := range g.prohibited {
		if p.MatchString(text) {
			metrics.GuardrailEvents.WithLabelValues("prohibited").Inc()
			return fmt.Errorf("content %s: %w", item.ContentID, ErrProhibitedContent)
		}
	}
	return nil
}

// PositiveFraming rewrites negative phrasing in rationale text. Applied
// before the final prohibited-pattern scan.
func (g *Guardrails) PositiveFraming(text string) string {
	out := text
	for _, r := range g.framing {
		out = r.pattern.ReplaceAllString(out, r.replacement)
	}
	if out != text {
		metrics.GuardrailEvents.WithLabelValues("reframed").Inc()
	}
	return out
}

// Disclaimer returns the mandatory disclaimer sentence for a content
// type.
func Disclaimer(t catalog.ContentType) string {
	if t == catalog.TypePartnerOffer {
		return partnerOfferDisclaimer
	}
	return educationalDisclaimer
}

// ProcessRationale runs the per-item text pipeline: positive framing
// rewrite, prohibited-pattern scan over the rewritten text, then
// disclaimer injection. A scan match returns ErrProhibitedContent and
// the item must be dropped.
func (g *Guardrails) ProcessRationale(contentType catalog.ContentType, rationale string) (string, error) {
	out := g.PositiveFraming(rationale)

	for _, p := range g.prohibited {
		if p.MatchString(out) {
			metrics.GuardrailEvents.WithLabelValues("prohibited").Inc()
			return "", ErrProhibitedContent
		}
	}

	metrics.GuardrailEvents.WithLabelValues("disclaimer").Inc()
	return out + " " + Disclaimer(contentType), nil
}
