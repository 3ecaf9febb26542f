// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package persona

import (
	"reflect"
	"testing"

	"github.com/spendsense/spendsense/internal/signal"
)

func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultConfig())
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	return c
}

// TestClassify_HighUtilization covers the credit-first priority path
func TestClassify_HighUtilization(t *testing.T) {
	c := newTestClassifier(t)
	rec := &signal.Record{
		UserID:               "u1",
		CreditUtilizationMax: f64(0.75),
		HasInterestCharges:   true,
		DataQualityScore:     0.9,
	}

	got := c.Classify(rec)
	if got.PersonaID != "high_utilization" {
		t.Fatalf("PersonaID = %q, want high_utilization", got.PersonaID)
	}
	if got.Outcome != OutcomeClassified {
		t.Errorf("Outcome = %q, want %q", got.Outcome, OutcomeClassified)
	}
	if got.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0 (both criteria individually true)", got.Confidence)
	}
	if len(got.MatchedCriteria) != 2 {
		t.Errorf("MatchedCriteria = %v, want 2 entries", got.MatchedCriteria)
	}
}

// TestClassify_PriorityTieBreak covers two matching personas resolving
// deterministically to the lower priority number
func TestClassify_PriorityTieBreak(t *testing.T) {
	c := newTestClassifier(t)
	rec := &signal.Record{
		UserID:               "u1",
		CreditUtilizationMax: f64(0.75),
		SubscriptionCount:    5,
		DataQualityScore:     0.9,
	}

	got := c.Classify(rec)
	if got.PersonaID != "high_utilization" {
		t.Fatalf("PersonaID = %q, want high_utilization (priority 1 beats subscription_heavy)", got.PersonaID)
	}

	all := c.Matches(rec)
	if len(all) < 2 {
		t.Fatalf("Matches() = %d personas, want at least 2", len(all))
	}
	if all[0].PersonaID != "high_utilization" || all[1].PersonaID != "subscription_heavy" {
		t.Errorf("Matches() order = [%s %s], want [high_utilization subscription_heavy]",
			all[0].PersonaID, all[1].PersonaID)
	}
}

// TestClassify_NoMatchFallback covers the no-match fallback with
// confidence 0.5
func TestClassify_NoMatchFallback(t *testing.T) {
	c := newTestClassifier(t)
	rec := &signal.Record{
		UserID:               "u1",
		CreditUtilizationMax: f64(0.2),
		SubscriptionCount:    1,
		DataQualityScore:     0.8,
	}

	got := c.Classify(rec)
	if got.PersonaID != FallbackPersonaID {
		t.Fatalf("PersonaID = %q, want %q", got.PersonaID, FallbackPersonaID)
	}
	if got.Outcome != OutcomeFallbackNoMatch {
		t.Errorf("Outcome = %q, want %q", got.Outcome, OutcomeFallbackNoMatch)
	}
	if got.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", got.Confidence)
	}
}

// TestClassify_FallbackOwnCriteria covers the fallback persona matching
// on its own criterion list like any other definition
func TestClassify_FallbackOwnCriteria(t *testing.T) {
	c := newTestClassifier(t)
	rec := &signal.Record{
		UserID:           "u1",
		InsufficientData: true,
		DataQualityScore: 0.5,
	}

	got := c.Classify(rec)
	if got.PersonaID != FallbackPersonaID {
		t.Fatalf("PersonaID = %q, want %q", got.PersonaID, FallbackPersonaID)
	}
	if got.Outcome != OutcomeClassified {
		t.Errorf("Outcome = %q, want %q (matched on its own criterion)", got.Outcome, OutcomeClassified)
	}
	if got.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", got.Confidence)
	}
	want := []string{"Limited transaction history"}
	if !reflect.DeepEqual(got.MatchedCriteria, want) {
		t.Errorf("MatchedCriteria = %v, want %v", got.MatchedCriteria, want)
	}
}

// TestClassify_FallbackLosesTies covers a specific persona outranking a
// simultaneously matching fallback
func TestClassify_FallbackLosesTies(t *testing.T) {
	c := newTestClassifier(t)
	rec := &signal.Record{
		UserID:               "u1",
		CreditUtilizationMax: f64(0.75),
		HasInterestCharges:   true,
		InsufficientData:     true,
		DataQualityScore:     0.9,
	}

	got := c.Classify(rec)
	if got.PersonaID != "high_utilization" {
		t.Fatalf("PersonaID = %q, want high_utilization (priority 1 beats fallback 999)", got.PersonaID)
	}
}

// TestClassify_LowQualityShortCircuit covers the data quality gate
func TestClassify_LowQualityShortCircuit(t *testing.T) {
	c := newTestClassifier(t)
	// Strong persona evidence that must be ignored.
	rec := &signal.Record{
		UserID:               "u1",
		CreditUtilizationMax: f64(0.95),
		HasInterestCharges:   true,
		DataQualityScore:     0.05,
	}

	got := c.Classify(rec)
	if got.PersonaID != FallbackPersonaID {
		t.Fatalf("PersonaID = %q, want %q", got.PersonaID, FallbackPersonaID)
	}
	if got.Outcome != OutcomeFallbackLowQuality {
		t.Errorf("Outcome = %q, want %q", got.Outcome, OutcomeFallbackLowQuality)
	}
	if got.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", got.Confidence)
	}
}

// TestClassify_NilRecord covers the error fallback path
func TestClassify_NilRecord(t *testing.T) {
	c := newTestClassifier(t)
	got := c.Classify(nil)
	if got.PersonaID != FallbackPersonaID {
		t.Fatalf("PersonaID = %q, want %q", got.PersonaID, FallbackPersonaID)
	}
	if got.Outcome != OutcomeFallbackError {
		t.Errorf("Outcome = %q, want %q", got.Outcome, OutcomeFallbackError)
	}
	if got.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", got.Confidence)
	}
}

// TestClassify_Deterministic covers the pure-function round trip
func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier(t)
	rec := &signal.Record{
		UserID:            "u1",
		SubscriptionCount: 4,
		IncomePayGap:      iptr(60),
		DataQualityScore:  0.9,
	}

	first := c.Classify(rec)
	for i := 0; i < 5; i++ {
		again := c.Classify(rec)
		if again.PersonaID != first.PersonaID || again.Confidence != first.Confidence {
			t.Fatalf("classification not deterministic: %+v vs %+v", first, again)
		}
		if !reflect.DeepEqual(again.MatchedCriteria, first.MatchedCriteria) {
			t.Fatalf("matched criteria differ between runs")
		}
	}
}

// TestLeftFoldSemantics documents that combinator placement matters:
// each criterion's own combinator folds it with the accumulated result.
func TestLeftFoldSemantics(t *testing.T) {
	mkConfig := func(criteria []CriterionSpec) *Config {
		return &Config{
			TieBreak: TieBreakPriority,
			Personas: map[string]PersonaSpec{
				"sample": {Name: "Sample", Priority: 1, Criteria: criteria},
				FallbackPersonaID: {
					Name: "Fallback", Priority: 999,
					Criteria: []CriterionSpec{
						{Field: "insufficient_data", Operator: "==", Value: true},
					},
				},
			},
		}
	}

	// Record: is_overdue=true, has_atm_fees=false, subscription_count=0.
	rec := &signal.Record{UserID: "u1", IsOverdue: true, DataQualityScore: 0.9}

	tests := []struct {
		name      string
		criteria  []CriterionSpec
		wantMatch bool
	}{
		{
			// true AND false = false
			name: "AND fold fails on one false criterion",
			criteria: []CriterionSpec{
				{Field: "is_overdue", Operator: "==", Value: true, Combinator: CombinatorAND},
				{Field: "has_atm_fees", Operator: "==", Value: true, Combinator: CombinatorAND},
			},
			wantMatch: false,
		},
		{
			// true OR false = true
			name: "OR fold rescues a false criterion",
			criteria: []CriterionSpec{
				{Field: "is_overdue", Operator: "==", Value: true, Combinator: CombinatorAND},
				{Field: "has_atm_fees", Operator: "==", Value: true, Combinator: CombinatorOR},
			},
			wantMatch: true,
		},
		{
			// (true OR false) AND false = false: placement is significant.
			name: "trailing AND applies to the accumulated result",
			criteria: []CriterionSpec{
				{Field: "is_overdue", Operator: "==", Value: true, Combinator: CombinatorAND},
				{Field: "has_atm_fees", Operator: "==", Value: true, Combinator: CombinatorOR},
				{Field: "subscription_count", Operator: ">=", Value: 3, Combinator: CombinatorAND},
			},
			wantMatch: false,
		},
		{
			// (false AND true) OR true = true despite a false head.
			name: "OR at the tail rescues the whole fold",
			criteria: []CriterionSpec{
				{Field: "has_atm_fees", Operator: "==", Value: true, Combinator: CombinatorAND},
				{Field: "subscription_count", Operator: ">=", Value: 3, Combinator: CombinatorAND},
				{Field: "is_overdue", Operator: "==", Value: true, Combinator: CombinatorOR},
			},
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClassifier(mkConfig(tt.criteria))
			if err != nil {
				t.Fatalf("NewClassifier() error = %v", err)
			}
			got := c.Classify(rec)
			matched := got.PersonaID == "sample"
			if matched != tt.wantMatch {
				t.Errorf("persona = %q, want sample match = %v", got.PersonaID, tt.wantMatch)
			}
		})
	}
}

// TestConfidenceIndependentOfFold documents that confidence counts
// individually true criteria even when the fold needed only a subset.
func TestConfidenceIndependentOfFold(t *testing.T) {
	c := newTestClassifier(t)
	// Only the OR half of high_utilization is true.
	rec := &signal.Record{
		UserID:             "u1",
		HasInterestCharges: true,
		DataQualityScore:   0.9,
	}

	got := c.Classify(rec)
	if got.PersonaID != "high_utilization" {
		t.Fatalf("PersonaID = %q, want high_utilization", got.PersonaID)
	}
	if got.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5 (1 of 2 criteria individually true)", got.Confidence)
	}
}

// TestClassify_NullFieldNeverMatches documents null-as-no-evidence
func TestClassify_NullFieldNeverMatches(t *testing.T) {
	cfg := &Config{
		TieBreak: TieBreakPriority,
		Personas: map[string]PersonaSpec{
			"buffer_watcher": {
				Name: "Buffer Watcher", Priority: 1,
				Criteria: []CriterionSpec{
					// A "< 1.0" test that a zero-valued default would
					// wrongly satisfy if null were treated as zero.
					{Field: "cash_flow_buffer", Operator: "<", Value: 1.0},
				},
			},
			FallbackPersonaID: {
				Name: "Fallback", Priority: 999,
				Criteria: []CriterionSpec{
					{Field: "insufficient_data", Operator: "==", Value: true},
				},
			},
		},
	}
	c, err := NewClassifier(cfg)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	rec := &signal.Record{UserID: "u1", DataQualityScore: 0.9}
	if got := c.Classify(rec); got.PersonaID != FallbackPersonaID {
		t.Errorf("PersonaID = %q, want fallback: null field must not satisfy <", got.PersonaID)
	}

	rec.CashFlowBuffer = f64(0.4)
	if got := c.Classify(rec); got.PersonaID != "buffer_watcher" {
		t.Errorf("PersonaID = %q, want buffer_watcher once the field is present", got.PersonaID)
	}
}
