// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package persona

import (
	"fmt"
	"os"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/signal"
)

// FallbackPersonaID is the reserved id of the fallback persona. Exactly
// one persona in every valid configuration carries this id.
const FallbackPersonaID = "insufficient_data"

// Combinator values recognized in criterion definitions. Anything other
// than OR folds as AND.
const (
	CombinatorAND = "AND"
	CombinatorOR  = "OR"
)

// TieBreak selects how multiple matching personas resolve to one.
type TieBreak string

const (
	// TieBreakPriority picks the match with the lowest priority number.
	TieBreakPriority TieBreak = "priority"
	// TieBreakFirstMatch picks the first match in definition order. YAML
	// maps do not survive unmarshaling with their order intact, so
	// definition order here means the canonical (priority, id) order and
	// this mode resolves identically to TieBreakPriority.
	TieBreakFirstMatch TieBreak = "first_match"
	// TieBreakAllMatches reports every match, with the lowest priority
	// number as the primary assignment.
	TieBreakAllMatches TieBreak = "all_matches"
)

// CriterionSpec is one declarative matching rule as it appears in the
// YAML source.
type CriterionSpec struct {
	Field       string `koanf:"field" json:"field"`
	Operator    string `koanf:"operator" json:"operator"`
	Value       any    `koanf:"value" json:"value"`
	Combinator  string `koanf:"combinator" json:"combinator"`
	Description string `koanf:"description" json:"description"`
}

// PersonaSpec is one persona definition as it appears in the YAML source.
type PersonaSpec struct {
	Name        string          `koanf:"name" json:"name"`
	Priority    int             `koanf:"priority" json:"priority"`
	Description string          `koanf:"description" json:"description"`
	Criteria    []CriterionSpec `koanf:"criteria" json:"criteria"`
	FocusAreas  []string        `koanf:"focus_areas" json:"focus_areas"`
}

// Config is the full declarative persona configuration.
type Config struct {
	TieBreak TieBreak               `koanf:"tie_break" json:"tie_break"`
	Personas map[string]PersonaSpec `koanf:"personas" json:"personas"`
}

// LoadConfig loads persona definitions from a YAML file. A missing or
// malformed file falls back to the built-in defaults with a warning;
// configuration problems never propagate to callers.
func LoadConfig(path string) *Config {
	if path == "" {
		return DefaultConfig()
	}
	if _, err := os.Stat(path); err != nil {
		logging.Warn().Str("path", path).Msg("persona config not found, using defaults")
		return DefaultConfig()
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		logging.Error().Err(err).Str("path", path).Msg("failed to parse persona config, using defaults")
		return DefaultConfig()
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		logging.Error().Err(err).Str("path", path).Msg("failed to unmarshal persona config, using defaults")
		return DefaultConfig()
	}
	if cfg.TieBreak == "" {
		cfg.TieBreak = TieBreakPriority
	}
	if len(cfg.Personas) == 0 {
		logging.Warn().Str("path", path).Msg("persona config defines no personas, using defaults")
		return DefaultConfig()
	}

	logging.Info().Str("path", path).Int("personas", len(cfg.Personas)).
		Msg("loaded persona configuration")
	return cfg
}

// Validate reports structural problems with the configuration. Missing
// fallback persona and unknown fields or operators are fatal; duplicate
// priorities among non-fallback personas are reported so callers can log
// them as warnings.
func (c *Config) Validate() (warnings []string, err error) {
	if _, ok := c.Personas[FallbackPersonaID]; !ok {
		return nil, fmt.Errorf("persona config missing required fallback persona %q", FallbackPersonaID)
	}

	seen := make(map[int]string)
	for id, spec := range c.Personas {
		if spec.Name == "" {
			return nil, fmt.Errorf("persona %q has no name", id)
		}
		if id != FallbackPersonaID && len(spec.Criteria) == 0 {
			return nil, fmt.Errorf("persona %q has no criteria", id)
		}
		for _, cr := range spec.Criteria {
			if !signal.KnownField(cr.Field) {
				return nil, fmt.Errorf("persona %q references unknown field %q", id, cr.Field)
			}
			if !knownOperator(cr.Operator) {
				return nil, fmt.Errorf("persona %q uses unknown operator %q", id, cr.Operator)
			}
		}
		// Priorities >= 900 are reserved for fallback-tier personas and
		// exempt from uniqueness.
		if spec.Priority < 900 {
			if other, dup := seen[spec.Priority]; dup {
				warnings = append(warnings, fmt.Sprintf("personas %q and %q share priority %d", other, id, spec.Priority))
			}
			seen[spec.Priority] = id
		}
	}

	switch c.TieBreak {
	case TieBreakPriority, TieBreakFirstMatch, TieBreakAllMatches:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown tie_break %q, defaulting to priority", c.TieBreak))
	}
	return warnings, nil
}

// ordered returns persona ids sorted by (priority, id). YAML maps do not
// preserve definition order through unmarshaling, so this ordering is the
// canonical definition order for first-match tie-breaking.
func (c *Config) ordered() []string {
	ids := make([]string, 0, len(c.Personas))
	for id := range c.Personas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		pa, pb := c.Personas[ids[a]].Priority, c.Personas[ids[b]].Priority
		if pa != pb {
			return pa < pb
		}
		return ids[a] < ids[b]
	})
	return ids
}

// DefaultConfig returns the built-in persona set used when no external
// configuration is available.
func DefaultConfig() *Config {
	return &Config{
		TieBreak: TieBreakPriority,
		Personas: map[string]PersonaSpec{
			"high_utilization": {
				Name:        "High Credit Utilization",
				Priority:    1,
				Description: "Users carrying high credit utilization or paying interest",
				Criteria: []CriterionSpec{
					{Field: "credit_utilization_max", Operator: ">=", Value: 0.5, Combinator: CombinatorAND, Description: "Credit utilization at or above 50%"},
					{Field: "has_interest_charges", Operator: "==", Value: true, Combinator: CombinatorOR, Description: "Paying credit card interest"},
				},
				FocusAreas: []string{"utilization_reduction", "interest_avoidance", "payment_planning"},
			},
			"variable_income": {
				Name:        "Variable Income Budgeter",
				Priority:    2,
				Description: "Users with irregular income timing or low cash buffers",
				Criteria: []CriterionSpec{
					{Field: "income_pay_gap", Operator: ">", Value: 45, Combinator: CombinatorAND, Description: "Irregular income schedule"},
					{Field: "cash_flow_buffer", Operator: "<", Value: 1.0, Combinator: CombinatorOR, Description: "Cash buffer below one month"},
				},
				FocusAreas: []string{"budget_smoothing", "cash_buffer", "income_planning"},
			},
			"subscription_heavy": {
				Name:        "Subscription Heavy",
				Priority:    3,
				Description: "Users with many or expensive recurring subscriptions",
				Criteria: []CriterionSpec{
					{Field: "subscription_count", Operator: ">=", Value: 3, Combinator: CombinatorAND, Description: "Three or more active subscriptions"},
					{Field: "monthly_subscription_spend", Operator: ">=", Value: 50.0, Combinator: CombinatorOR, Description: "Subscription spend at or above $50/month"},
				},
				FocusAreas: []string{"subscription_audit", "recurring_spend"},
			},
			"savings_builder": {
				Name:        "Savings Builder",
				Priority:    4,
				Description: "Users actively saving but short of an emergency fund",
				Criteria: []CriterionSpec{
					{Field: "monthly_savings_inflow", Operator: ">", Value: 0.0, Combinator: CombinatorAND, Description: "Regular savings contributions"},
					{Field: "emergency_fund_months", Operator: "<", Value: 3.0, Combinator: CombinatorAND, Description: "Emergency fund below three months"},
				},
				FocusAreas: []string{"emergency_fund", "savings_automation"},
			},
			"fee_fighter": {
				Name:        "Fee Fighter",
				Priority:    5,
				Description: "Users losing money to recurring bank fees",
				Criteria: []CriterionSpec{
					{Field: "monthly_bank_fees", Operator: ">=", Value: 20.0, Combinator: CombinatorAND, Description: "Bank fees at or above $20/month"},
					{Field: "has_overdraft_fees", Operator: "==", Value: true, Combinator: CombinatorOR, Description: "Charged overdraft fees"},
				},
				FocusAreas: []string{"fee_elimination", "account_selection"},
			},
			FallbackPersonaID: {
				Name:        "Getting Started",
				Priority:    999,
				Description: "Fallback for users with insufficient transaction history",
				Criteria: []CriterionSpec{
					{Field: "insufficient_data", Operator: "==", Value: true, Combinator: CombinatorAND, Description: "Limited transaction history"},
				},
				FocusAreas: []string{"financial_basics", "account_linking"},
			},
		},
	}
}

func knownOperator(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}
