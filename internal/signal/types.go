// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package signal

import "time"

// DefaultWindow is the analysis window used when a caller does not
// specify one.
const DefaultWindow = "180d"

// Record holds the computed financial signals for one user over one
// analysis window. Pointer fields are nullable: a nil pointer means the
// signal could not be computed from the available data and must never
// satisfy a threshold comparison.
type Record struct {
	UserID string `json:"user_id" validate:"required"`

	// Credit signals.
	CreditUtilizationMax *float64 `json:"credit_utilization_max,omitempty" validate:"omitempty,gte=0"`
	HasInterestCharges   bool     `json:"has_interest_charges"`
	IsOverdue            bool     `json:"is_overdue"`
	MinimumPaymentOnly   bool     `json:"minimum_payment_only"`

	// Income and cash-flow signals.
	IncomePayGap      *int     `json:"income_pay_gap,omitempty" validate:"omitempty,gte=0"`
	CashFlowBuffer    *float64 `json:"cash_flow_buffer,omitempty"`
	IncomeVariability *float64 `json:"income_variability,omitempty" validate:"omitempty,gte=0"`

	// Subscription signals.
	SubscriptionCount        int     `json:"subscription_count" validate:"gte=0"`
	MonthlySubscriptionSpend float64 `json:"monthly_subscription_spend" validate:"gte=0"`
	SubscriptionShare        float64 `json:"subscription_share" validate:"gte=0,lte=1"`

	// Savings signals.
	SavingsGrowthRate    *float64 `json:"savings_growth_rate,omitempty"`
	MonthlySavingsInflow float64  `json:"monthly_savings_inflow"`
	EmergencyFundMonths  *float64 `json:"emergency_fund_months,omitempty" validate:"omitempty,gte=0"`

	// Bank fee signals.
	MonthlyBankFees    float64 `json:"monthly_bank_fees" validate:"gte=0"`
	BankFeeCount       int     `json:"bank_fee_count" validate:"gte=0"`
	HasOverdraftFees   bool    `json:"has_overdraft_fees"`
	HasATMFees         bool    `json:"has_atm_fees"`
	HasMaintenanceFees bool    `json:"has_maintenance_fees"`

	// Fraud signals.
	FraudTransactionCount int     `json:"fraud_transaction_count" validate:"gte=0"`
	FraudRate             float64 `json:"fraud_rate" validate:"gte=0,lte=1"`
	HasFraudHistory       bool    `json:"has_fraud_history"`
	FraudRiskScore        float64 `json:"fraud_risk_score" validate:"gte=0,lte=1"`

	// Data quality.
	InsufficientData  bool     `json:"insufficient_data"`
	DataQualityScore  float64  `json:"data_quality_score" validate:"gte=0,lte=1"`
	ComputationErrors []string `json:"computation_errors,omitempty"`

	// Metadata.
	ComputedAt time.Time `json:"computed_at"`
	Window     string    `json:"window"`
}

// Kind discriminates the dynamic type of a Value.
type Kind int

const (
	// KindAbsent marks a signal that is null or unknown by name.
	KindAbsent Kind = iota
	// KindNumber marks a numeric signal.
	KindNumber
	// KindBool marks a boolean signal.
	KindBool
)

// Value is the dynamically typed result of looking up a signal field by
// its wire name. Persona criteria evaluate against Values so that null
// optional fields can be distinguished from zero.
type Value struct {
	Kind Kind
	Num  float64
	Bool bool
}

// Number wraps a float64 in a Value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Boolean wraps a bool in a Value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Absent is the Value for null or unknown fields.
func Absent() Value { return Value{Kind: KindAbsent} }

func numPtr(p *float64) Value {
	if p == nil {
		return Absent()
	}
	return Number(*p)
}

func intPtr(p *int) Value {
	if p == nil {
		return Absent()
	}
	return Number(float64(*p))
}

// Field looks up a signal by its wire name. Unknown names and null
// optional fields return an absent Value, which never satisfies a
// threshold comparison.
func (r *Record) Field(name string) Value {
	if r == nil {
		return Absent()
	}
	switch name {
	case "credit_utilization_max":
		return numPtr(r.CreditUtilizationMax)
	case "has_interest_charges":
		return Boolean(r.HasInterestCharges)
	case "is_overdue":
		return Boolean(r.IsOverdue)
	case "minimum_payment_only":
		return Boolean(r.MinimumPaymentOnly)
	case "income_pay_gap":
		return intPtr(r.IncomePayGap)
	case "cash_flow_buffer":
		return numPtr(r.CashFlowBuffer)
	case "income_variability":
		return numPtr(r.IncomeVariability)
	case "subscription_count":
		return Number(float64(r.SubscriptionCount))
	case "monthly_subscription_spend":
		return Number(r.MonthlySubscriptionSpend)
	case "subscription_share":
		return Number(r.SubscriptionShare)
	case "savings_growth_rate":
		return numPtr(r.SavingsGrowthRate)
	case "monthly_savings_inflow":
		return Number(r.MonthlySavingsInflow)
	case "emergency_fund_months":
		return numPtr(r.EmergencyFundMonths)
	case "monthly_bank_fees":
		return Number(r.MonthlyBankFees)
	case "bank_fee_count":
		return Number(float64(r.BankFeeCount))
	case "has_overdraft_fees":
		return Boolean(r.HasOverdraftFees)
	case "has_atm_fees":
		return Boolean(r.HasATMFees)
	case "has_maintenance_fees":
		return Boolean(r.HasMaintenanceFees)
	case "fraud_transaction_count":
		return Number(float64(r.FraudTransactionCount))
	case "fraud_rate":
		return Number(r.FraudRate)
	case "has_fraud_history":
		return Boolean(r.HasFraudHistory)
	case "fraud_risk_score":
		return Number(r.FraudRiskScore)
	case "insufficient_data":
		return Boolean(r.InsufficientData)
	case "data_quality_score":
		return Number(r.DataQualityScore)
	default:
		return Absent()
	}
}

// KnownField reports whether name is a recognized signal field. Persona
// config validation uses it to reject typos at load time instead of
// silently evaluating them as absent.
func KnownField(name string) bool {
	switch name {
	case "credit_utilization_max", "has_interest_charges", "is_overdue",
		"minimum_payment_only", "income_pay_gap", "cash_flow_buffer",
		"income_variability", "subscription_count", "monthly_subscription_spend",
		"subscription_share", "savings_growth_rate", "monthly_savings_inflow",
		"emergency_fund_months", "monthly_bank_fees", "bank_fee_count",
		"has_overdraft_fees", "has_atm_fees", "has_maintenance_fees",
		"fraud_transaction_count", "fraud_rate", "has_fraud_history",
		"fraud_risk_score", "insufficient_data", "data_quality_score":
		return true
	}
	return false
}
