// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package persona

import (
	"fmt"
	"time"

	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/metrics"
	"github.com/spendsense/spendsense/internal/signal"
)

// lowQualityThreshold short-circuits classification straight to the
// fallback persona. Takes precedence over every criterion.
const lowQualityThreshold = 0.1

// Outcome tags how an assignment was produced so callers can distinguish
// a genuine match from a degraded one.
type Outcome string

const (
	OutcomeClassified         Outcome = "classified"
	OutcomeFallbackLowQuality Outcome = "fallback_low_quality"
	OutcomeFallbackNoMatch    Outcome = "fallback_no_match"
	OutcomeFallbackError      Outcome = "fallback_error"
)

// Assignment is the result of classifying one signal record.
type Assignment struct {
	PersonaID       string    `json:"persona_id"`
	PersonaName     string    `json:"persona_name"`
	Priority        int       `json:"priority"`
	Confidence      float64   `json:"confidence"`
	MatchedCriteria []string  `json:"matched_criteria"`
	FocusAreas      []string  `json:"focus_areas,omitempty"`
	Outcome         Outcome   `json:"outcome"`
	Window          string    `json:"window,omitempty"`
	AssignedAt      time.Time `json:"assigned_at"`
}

type compiledCriterion struct {
	field       string
	description string
	or          bool
	eval        func(signal.Value) bool
}

type compiledPersona struct {
	id         string
	name       string
	priority   int
	focusAreas []string
	criteria   []compiledCriterion
}

// Classifier evaluates compiled persona definitions against signal
// records. Immutable after construction and safe for concurrent use.
type Classifier struct {
	personas []compiledPersona // ordered by (priority, id)
	fallback compiledPersona
	tieBreak TieBreak
}

// NewClassifier validates and compiles a persona configuration. Unknown
// fields, unknown operators, and operator/value type mismatches fail here
// so classification itself cannot hit them.
func NewClassifier(cfg *Config) (*Classifier, error) {
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logging.Warn().Str("issue", w).Msg("persona config validation issue")
	}

	c := &Classifier{tieBreak: cfg.TieBreak}
	switch c.tieBreak {
	case TieBreakPriority, TieBreakFirstMatch, TieBreakAllMatches:
	default:
		c.tieBreak = TieBreakPriority
	}

	for _, id := range cfg.ordered() {
		spec := cfg.Personas[id]
		cp := compiledPersona{
			id:         id,
			name:       spec.Name,
			priority:   spec.Priority,
			focusAreas: spec.FocusAreas,
		}
		for _, cr := range spec.Criteria {
			cc, err := compileCriterion(cr)
			if err != nil {
				return nil, fmt.Errorf("persona %q: %w", id, err)
			}
			cp.criteria = append(cp.criteria, cc)
		}
		if id == FallbackPersonaID {
			c.fallback = cp
		}
		// The fallback persona stays in the evaluation set: its own
		// criteria can match a record outright, and its priority keeps it
		// behind every specific persona in the ordering.
		c.personas = append(c.personas, cp)
	}
	return c, nil
}

// compileCriterion resolves a declarative criterion into a typed
// comparator. The operator set is closed; value types are bool or
// numeric. A comparator sees an absent or type-mismatched signal value
// as false, never as an error.
func compileCriterion(cr CriterionSpec) (compiledCriterion, error) {
	cc := compiledCriterion{
		field:       cr.Field,
		description: cr.Description,
		or:          cr.Combinator == CombinatorOR,
	}
	if cc.description == "" {
		cc.description = fmt.Sprintf("%s %s %v", cr.Field, cr.Operator, cr.Value)
	}
	field := cr.Field

	switch v := cr.Value.(type) {
	case bool:
		switch cr.Operator {
		case "==":
			cc.eval = func(sv signal.Value) bool { return sv.Kind == signal.KindBool && sv.Bool == v }
		case "!=":
			cc.eval = func(sv signal.Value) bool { return sv.Kind == signal.KindBool && sv.Bool != v }
		default:
			return cc, fmt.Errorf("operator %q is not valid for boolean field %q", cr.Operator, field)
		}
		return cc, nil
	default:
		num, ok := toFloat(cr.Value)
		if !ok {
			return cc, fmt.Errorf("criterion value %v (%T) for field %q is neither bool nor numeric", cr.Value, cr.Value, field)
		}
		switch cr.Operator {
		case "==":
			cc.eval = func(sv signal.Value) bool { return sv.Kind == signal.KindNumber && sv.Num == num }
		case "!=":
			cc.eval = func(sv signal.Value) bool { return sv.Kind == signal.KindNumber && sv.Num != num }
		case "<":
			cc.eval = func(sv signal.Value) bool { return sv.Kind == signal.KindNumber && sv.Num < num }
		case "<=":
			cc.eval = func(sv signal.Value) bool { return sv.Kind == signal.KindNumber && sv.Num <= num }
		case ">":
			cc.eval = func(sv signal.Value) bool { return sv.Kind == signal.KindNumber && sv.Num > num }
		case ">=":
			cc.eval = func(sv signal.Value) bool { return sv.Kind == signal.KindNumber && sv.Num >= num }
		default:
			return cc, fmt.Errorf("unknown operator %q", cr.Operator)
		}
		return cc, nil
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// evaluate folds a persona's criteria left-to-right and reports the fold
// result plus the descriptions of individually true criteria.
func (p *compiledPersona) evaluate(rec *signal.Record) (bool, []string) {
	if len(p.criteria) == 0 {
		return false, nil
	}

	var matched []string
	results := make([]bool, len(p.criteria))
	for i, cr := range p.criteria {
		results[i] = cr.eval(rec.Field(cr.field))
		if results[i] {
			matched = append(matched, cr.description)
		}
	}

	acc := results[0]
	for i := 1; i < len(results); i++ {
		if p.criteria[i].or {
			acc = acc || results[i]
		} else {
			acc = acc && results[i]
		}
	}
	return acc, matched
}

// Classify assigns exactly one persona to a signal record. It never
// fails outward: low data quality, no match, and internal errors all
// resolve to the fallback persona with a tagged outcome.
func (c *Classifier) Classify(rec *signal.Record) (out Assignment) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Msg("persona classification panicked")
			out = c.fallbackAssignment(OutcomeFallbackError, 0.0, "Error during classification", rec)
		}
		metrics.PersonaClassifications.WithLabelValues(out.PersonaID, string(out.Outcome)).Inc()
	}()

	if rec == nil {
		return c.fallbackAssignment(OutcomeFallbackError, 0.0, "Error during classification", rec)
	}
	if rec.DataQualityScore < lowQualityThreshold {
		return c.fallbackAssignment(OutcomeFallbackLowQuality, 1.0, "Data quality score below threshold", rec)
	}

	matches := c.matches(rec)
	if len(matches) == 0 {
		logging.Debug().Str("user_id", rec.UserID).Msg("no persona matched, assigning fallback")
		return c.fallbackAssignment(OutcomeFallbackNoMatch, 0.5, "No specific persona matched", rec)
	}

	// matches are ordered by (priority, id); the head satisfies both the
	// priority and first-match tie-break modes; all_matches also promotes
	// the lowest priority number as primary.
	best := matches[0]
	logging.Debug().Str("user_id", rec.UserID).Str("persona", best.PersonaID).
		Float64("confidence", best.Confidence).Int("priority", best.Priority).
		Msg("assigned persona")
	return best
}

// Matches returns every persona whose criteria fold true for the record,
// ordered by (priority, id). Used by the all-matches tie-break mode and
// the profile endpoint.
func (c *Classifier) Matches(rec *signal.Record) []Assignment {
	if rec == nil {
		return nil
	}
	return c.matches(rec)
}

// TieBreakMode reports the configured tie-break mode.
func (c *Classifier) TieBreakMode() TieBreak { return c.tieBreak }

func (c *Classifier) matches(rec *signal.Record) []Assignment {
	now := time.Now().UTC()
	var matches []Assignment
	for i := range c.personas {
		p := &c.personas[i]
		ok, matched := p.evaluate(rec)
		if !ok {
			continue
		}
		confidence := 1.0
		if len(p.criteria) > 0 {
			confidence = float64(len(matched)) / float64(len(p.criteria))
		}
		matches = append(matches, Assignment{
			PersonaID:       p.id,
			PersonaName:     p.name,
			Priority:        p.priority,
			Confidence:      confidence,
			MatchedCriteria: matched,
			FocusAreas:      p.focusAreas,
			Outcome:         OutcomeClassified,
			Window:          rec.Window,
			AssignedAt:      now,
		})
	}
	return matches
}

func (c *Classifier) fallbackAssignment(outcome Outcome, confidence float64, note string, rec *signal.Record) Assignment {
	window := ""
	if rec != nil {
		window = rec.Window
	}
	return Assignment{
		PersonaID:       c.fallback.id,
		PersonaName:     c.fallback.name,
		Priority:        c.fallback.priority,
		Confidence:      confidence,
		MatchedCriteria: []string{note},
		FocusAreas:      c.fallback.focusAreas,
		Outcome:         outcome,
		Window:          window,
		AssignedAt:      time.Now().UTC(),
	}
}
