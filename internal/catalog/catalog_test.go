// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/spendsense/spendsense/internal/signal"
)

var testPersonas = []string{
	"high_utilization", "variable_income", "subscription_heavy",
	"savings_builder", "fee_fighter", "insufficient_data",
}

func testItems() []Item {
	return []Item{
		{
			ContentID: "credit_utilization_guide", Type: TypeArticle,
			Title: "Understanding Credit Utilization", Description: "How utilization affects your credit score",
			Personas:       []string{"high_utilization"},
			SignalTriggers: []signal.Trigger{signal.TriggerHighCreditUtilization},
			URL:            "/content/utilization", ReadingTimeMinutes: 8, PriorityScore: 5,
		},
		{
			ContentID: "interest_cost_calculator", Type: TypeCalculator,
			Title: "Interest Cost Calculator", Description: "See what carrying a balance really costs",
			Personas:       []string{"high_utilization"},
			SignalTriggers: []signal.Trigger{signal.TriggerHasInterestCharges},
			URL:            "/tools/interest-cost", ReadingTimeMinutes: 5, PriorityScore: 4,
		},
		{
			ContentID: "subscription_audit_checklist", Type: TypeChecklist,
			Title: "Subscription Audit Checklist", Description: "Review every recurring charge in ten minutes",
			Personas:       []string{"subscription_heavy"},
			SignalTriggers: []signal.Trigger{signal.TriggerManySubscriptions, signal.TriggerHighSubscriptionSpend},
			URL:            "/content/subscription-audit", ReadingTimeMinutes: 10, PriorityScore: 5,
		},
		{
			ContentID: "hysa_offer", Type: TypePartnerOffer,
			Title: "High-Yield Savings Account", Description: "Earn more on your emergency fund with a partner bank",
			Personas:       []string{"savings_builder"},
			SignalTriggers: []signal.Trigger{signal.TriggerLowEmergencyFund},
			URL:            "https://partners.example.com/hysa", ReadingTimeMinutes: 3, PriorityScore: 6,
		},
		{
			ContentID: "getting_started_basics", Type: TypeArticle,
			Title: "Financial Basics: Getting Started", Description: "Essential financial concepts everyone should know",
			Personas: []string{"insufficient_data"},
			URL:      "/content/financial-basics", ReadingTimeMinutes: 10, PriorityScore: 1,
		},
	}
}

func writeCatalog(t *testing.T, cat *Catalog) string {
	t.Helper()
	raw, err := json.Marshal(cat)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoad tests the load/validate/fallback flow
func TestLoad(t *testing.T) {
	t.Run("valid catalog loads", func(t *testing.T) {
		path := writeCatalog(t, &Catalog{Version: "1.0", Items: testItems()})
		cat := Load(path, testPersonas)
		if cat.Version != "1.0" {
			t.Errorf("Version = %q, want 1.0", cat.Version)
		}
		if len(cat.Items) != 5 {
			t.Errorf("len(Items) = %d, want 5", len(cat.Items))
		}
	})

	t.Run("missing file falls back", func(t *testing.T) {
		cat := Load(filepath.Join(t.TempDir(), "nope.json"), testPersonas)
		if !strings.HasPrefix(cat.Version, "fallback") {
			t.Errorf("Version = %q, want fallback catalog", cat.Version)
		}
		if len(cat.ByPersonas("insufficient_data")) == 0 {
			t.Error("fallback catalog has no content for the fallback persona")
		}
	})

	t.Run("malformed JSON falls back", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}
		cat := Load(path, testPersonas)
		if !strings.HasPrefix(cat.Version, "fallback") {
			t.Errorf("Version = %q, want fallback catalog", cat.Version)
		}
	})

	t.Run("duplicate content ids fall back", func(t *testing.T) {
		items := testItems()
		items = append(items, items[0])
		path := writeCatalog(t, &Catalog{Version: "1.0", Items: items})
		cat := Load(path, testPersonas)
		if !strings.HasPrefix(cat.Version, "fallback") {
			t.Errorf("Version = %q, want fallback catalog on duplicate ids", cat.Version)
		}
	})

	t.Run("schema violation falls back", func(t *testing.T) {
		items := testItems()
		items[0].Personas = nil // personas must be non-empty
		path := writeCatalog(t, &Catalog{Version: "1.0", Items: items})
		cat := Load(path, testPersonas)
		if !strings.HasPrefix(cat.Version, "fallback") {
			t.Errorf("Version = %q, want fallback catalog on schema violation", cat.Version)
		}
	})

	t.Run("bad url scheme falls back", func(t *testing.T) {
		items := testItems()
		items[0].URL = "ftp://example.com/file"
		path := writeCatalog(t, &Catalog{Version: "1.0", Items: items})
		cat := Load(path, testPersonas)
		if !strings.HasPrefix(cat.Version, "fallback") {
			t.Errorf("Version = %q, want fallback catalog on bad url", cat.Version)
		}
	})
}

// TestValidateCompleteness tests advisory issue detection
func TestValidateCompleteness(t *testing.T) {
	cat := &Catalog{Version: "1.0", Items: testItems()}
	issues := cat.ValidateCompleteness(testPersonas)

	// Test fixture has 2 articles (min 3), 1 partner offer (min 2), and
	// no content for variable_income or fee_fighter.
	wantSubstrings := []string{"articles", "partner offers", "variable_income", "fee_fighter"}
	for _, want := range wantSubstrings {
		found := false
		for _, issue := range issues {
			if strings.Contains(issue, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("issues %v missing one mentioning %q", issues, want)
		}
	}

	t.Run("unknown persona reference reported", func(t *testing.T) {
		items := testItems()
		items[0].Personas = []string{"day_trader"}
		c := &Catalog{Version: "1.0", Items: items}
		issues := c.ValidateCompleteness(testPersonas)
		found := false
		for _, issue := range issues {
			if strings.Contains(issue, "day_trader") {
				found = true
			}
		}
		if !found {
			t.Errorf("issues %v do not mention unknown persona", issues)
		}
	})
}

// TestQueries tests the three catalog lookup paths
func TestQueries(t *testing.T) {
	cat := &Catalog{Version: "1.0", Items: testItems()}

	t.Run("by personas", func(t *testing.T) {
		got := cat.ByPersonas("high_utilization")
		if len(got) != 2 {
			t.Fatalf("ByPersonas() = %d items, want 2", len(got))
		}
		// Catalog order preserved.
		if got[0].ContentID != "credit_utilization_guide" {
			t.Errorf("first item = %q, want credit_utilization_guide", got[0].ContentID)
		}
	})

	t.Run("by personas no match", func(t *testing.T) {
		if got := cat.ByPersonas("day_trader"); len(got) != 0 {
			t.Errorf("ByPersonas(unknown) = %d items, want 0", len(got))
		}
	})

	t.Run("by triggers deduplicates", func(t *testing.T) {
		// subscription_audit_checklist carries both triggers but must
		// appear once.
		got := cat.ByTriggers(signal.TriggerManySubscriptions, signal.TriggerHighSubscriptionSpend)
		if len(got) != 1 {
			t.Fatalf("ByTriggers() = %d items, want 1", len(got))
		}
		if got[0].ContentID != "subscription_audit_checklist" {
			t.Errorf("item = %q", got[0].ContentID)
		}
	})

	t.Run("by type", func(t *testing.T) {
		if got := cat.ByType(TypePartnerOffer); len(got) != 1 || got[0].ContentID != "hysa_offer" {
			t.Errorf("ByType(partner_offer) = %v", got)
		}
	})
}

// TestEligible documents the pass-through stub
func TestEligible(t *testing.T) {
	income := 50000.0
	score := 700
	if !Eligible(Eligibility{MinIncome: &income, MinCreditScore: &score}) {
		t.Error("Eligible() = false, want pass-through true")
	}
}

// TestFallback tests the built-in catalog invariants
func TestFallback(t *testing.T) {
	cat := Fallback()
	if len(cat.Items) == 0 {
		t.Fatal("fallback catalog is empty")
	}
	if len(cat.ByPersonas("insufficient_data")) == 0 {
		t.Error("fallback catalog lacks content for the fallback persona")
	}
	seen := map[string]bool{}
	for _, item := range cat.Items {
		if seen[item.ContentID] {
			t.Errorf("duplicate content_id %q in fallback catalog", item.ContentID)
		}
		seen[item.ContentID] = true
	}
}
