// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package catalog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/metrics"
	"github.com/spendsense/spendsense/internal/signal"
)

// ContentType enumerates the kinds of recommendable content.
type ContentType string

const (
	TypeArticle      ContentType = "article"
	TypeChecklist    ContentType = "checklist"
	TypeCalculator   ContentType = "calculator"
	TypePartnerOffer ContentType = "partner_offer"
)

// Minimum counts per content type checked at load time. Shortfalls are
// advisory, not fatal.
const (
	minArticles      = 3
	minPartnerOffers = 2
)

// Eligibility carries the access constraints for a content item. None
// of these are enforced yet; see the package documentation.
type Eligibility struct {
	MinIncome            *float64 `json:"min_income,omitempty" validate:"omitempty,gte=0"`
	MinCreditScore       *int     `json:"min_credit_score,omitempty" validate:"omitempty,gte=300,lte=850"`
	RequiredAccountTypes []string `json:"required_account_types,omitempty"`
	ExcludedProducts     []string `json:"excluded_products,omitempty"`
	MaxAgeDays           *int     `json:"max_age_days,omitempty" validate:"omitempty,gte=1"`
}

// Item is a single piece of recommendable content.
type Item struct {
	ContentID   string      `json:"content_id" validate:"required"`
	Type        ContentType `json:"type" validate:"required,oneof=article checklist calculator partner_offer"`
	Title       string      `json:"title" validate:"required,min=5,max=200"`
	Description string      `json:"description" validate:"required,min=10,max=1000"`

	// Targeting.
	Personas       []string         `json:"personas" validate:"required,min=1,dive,required"`
	SignalTriggers []signal.Trigger `json:"signal_triggers,omitempty"`

	// Content details.
	URL                string `json:"url" validate:"required,content_url"`
	ReadingTimeMinutes int    `json:"reading_time_minutes" validate:"required,gte=1,lte=120"`
	DifficultyLevel    string `json:"difficulty_level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`

	Eligibility   Eligibility `json:"eligibility,omitempty"`
	PriorityScore float64     `json:"priority_score" validate:"gte=0,lte=10"`

	// Metadata.
	CreatedAt time.Time `json:"created_at,omitempty"`
	Version   string    `json:"version,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// Catalog is the immutable set of content items for one engine run.
type Catalog struct {
	Version     string    `json:"version" validate:"required"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
	Items       []Item    `json:"items" validate:"required,min=1,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Relative URLs are allowed for locally served content.
	_ = v.RegisterValidation("content_url", func(fl validator.FieldLevel) bool {
		u := fl.Field().String()
		return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "/")
	})
	return v
}

// Load reads and validates a catalog from a JSON file. knownPersonas is
// the id set from the persona configuration, used for coverage and
// reference checks. Any load failure falls back to the built-in catalog.
func Load(path string, knownPersonas []string) *Catalog {
	cat, err := load(path, knownPersonas)
	if err != nil {
		logging.Error().Err(err).Str("path", path).Msg("failed to load content catalog, using built-in fallback")
		cat = Fallback()
	}
	cat.recordGauges()
	return cat
}

func load(path string, knownPersonas []string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	cat := &Catalog{}
	if err := json.Unmarshal(raw, cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validate.Struct(cat); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(cat.Items))
	for _, item := range cat.Items {
		if _, dup := seen[item.ContentID]; dup {
			return nil, fmt.Errorf("duplicate content_id %q", item.ContentID)
		}
		seen[item.ContentID] = struct{}{}
	}

	for _, issue := range cat.ValidateCompleteness(knownPersonas) {
		logging.Warn().Str("issue", issue).Msg("content catalog completeness issue")
	}

	logging.Info().Str("path", path).Str("version", cat.Version).
		Int("items", len(cat.Items)).Msg("loaded content catalog")
	return cat, nil
}

// ValidateCompleteness returns advisory issues: personas without any
// content, unknown persona references, and content type shortfalls.
func (c *Catalog) ValidateCompleteness(knownPersonas []string) []string {
	var issues []string

	known := make(map[string]struct{}, len(knownPersonas))
	for _, p := range knownPersonas {
		known[p] = struct{}{}
	}

	covered := make(map[string]struct{})
	for _, item := range c.Items {
		for _, p := range item.Personas {
			covered[p] = struct{}{}
			if len(known) > 0 {
				if _, ok := known[p]; !ok {
					issues = append(issues, fmt.Sprintf("item %q references unknown persona %q", item.ContentID, p))
				}
			}
		}
	}
	for _, p := range knownPersonas {
		if _, ok := covered[p]; !ok {
			issues = append(issues, fmt.Sprintf("no content targets persona %q", p))
		}
	}

	counts := make(map[ContentType]int)
	for _, item := range c.Items {
		counts[item.Type]++
	}
	if counts[TypeArticle] < minArticles {
		issues = append(issues, fmt.Sprintf("catalog has %d articles, want at least %d", counts[TypeArticle], minArticles))
	}
	if counts[TypePartnerOffer] < minPartnerOffers {
		issues = append(issues, fmt.Sprintf("catalog has %d partner offers, want at least %d", counts[TypePartnerOffer], minPartnerOffers))
	}

	return issues
}

// ByPersonas returns items targeting any of the given persona ids, in
// catalog order.
func (c *Catalog) ByPersonas(ids ...string) []Item {
	var out []Item
	for _, item := range c.Items {
		for _, want := range ids {
			if contains(item.Personas, want) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// ByTriggers returns items associated with any of the given triggers,
// in catalog order.
func (c *Catalog) ByTriggers(triggers ...signal.Trigger) []Item {
	var out []Item
	for _, item := range c.Items {
	next:
		for _, want := range triggers {
			for _, have := range item.SignalTriggers {
				if have == want {
					out = append(out, item)
					break next
				}
			}
		}
	}
	return out
}

// ByType returns items of one content type, in catalog order.
func (c *Catalog) ByType(t ContentType) []Item {
	var out []Item
	for _, item := range c.Items {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// Eligible reports whether a user may receive an item. User demographic
// and account data is not wired into the pipeline, so every item is
// eligible. The signature takes the requirements so callers are already
// shaped for the real check.
func Eligible(_ Eligibility) bool {
	return true
}

func (c *Catalog) recordGauges() {
	counts := make(map[ContentType]float64)
	for _, item := range c.Items {
		counts[item.Type]++
	}
	for _, t := range []ContentType{TypeArticle, TypeChecklist, TypeCalculator, TypePartnerOffer} {
		metrics.CatalogItems.WithLabelValues(string(t)).Set(counts[t])
	}
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

// Fallback returns the minimal built-in catalog used when loading the
// external source fails. It always contains content for the fallback
// persona.
func Fallback() *Catalog {
	return &Catalog{
		Version:     "fallback-1.0",
		LastUpdated: time.Now().UTC(),
		Items: []Item{
			{
				ContentID:          "fallback_financial_basics",
				Type:               TypeArticle,
				Title:              "Financial Basics: Getting Started",
				Description:        "Essential financial concepts everyone should know",
				Personas:           []string{"insufficient_data"},
				URL:                "/content/financial-basics",
				ReadingTimeMinutes: 10,
				PriorityScore:      1.0,
				Version:            "1.0",
			},
			{
				ContentID:          "fallback_budgeting_101",
				Type:               TypeChecklist,
				Title:              "Simple Budgeting Checklist",
				Description:        "5 steps to create your first budget",
				Personas:           []string{"insufficient_data", "variable_income"},
				URL:                "/content/budgeting-checklist",
				ReadingTimeMinutes: 5,
				PriorityScore:      1.0,
				Version:            "1.0",
			},
		},
	}
}
