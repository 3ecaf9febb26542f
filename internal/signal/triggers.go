// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package signal

import (
	"github.com/spendsense/spendsense/internal/logging"
	"github.com/spendsense/spendsense/internal/metrics"
)

// Trigger is a discrete behavioral tag derived from signal thresholds.
// Content items declare the triggers they address; the recommendation
// scorer matches on the overlap.
type Trigger string

// Trigger tags, grouped by signal family.
const (
	TriggerHighCreditUtilization Trigger = "high_credit_utilization"
	TriggerHasInterestCharges    Trigger = "has_interest_charges"
	TriggerIsOverdue             Trigger = "is_overdue"
	TriggerMinimumPaymentOnly    Trigger = "minimum_payment_only"

	TriggerVariableIncome        Trigger = "variable_income"
	TriggerLowCashBuffer         Trigger = "low_cash_buffer"
	TriggerHighIncomeVariability Trigger = "high_income_variability"

	TriggerManySubscriptions     Trigger = "many_subscriptions"
	TriggerHighSubscriptionSpend Trigger = "high_subscription_spend"
	TriggerHighSubscriptionShare Trigger = "high_subscription_share"

	TriggerPositiveSavings       Trigger = "positive_savings"
	TriggerNegativeSavingsGrowth Trigger = "negative_savings_growth"
	TriggerLowEmergencyFund      Trigger = "low_emergency_fund"

	TriggerHighBankFees       Trigger = "high_bank_fees"
	TriggerHasOverdraftFees   Trigger = "has_overdraft_fees"
	TriggerHasATMFees         Trigger = "has_atm_fees"
	TriggerHasMaintenanceFees Trigger = "has_maintenance_fees"

	TriggerHasFraudHistory   Trigger = "has_fraud_history"
	TriggerHighFraudRisk     Trigger = "high_fraud_risk"
	TriggerElevatedFraudRate Trigger = "elevated_fraud_rate"

	TriggerInsufficientData Trigger = "insufficient_data"
)

// Threshold constants for trigger derivation. Null signals never
// satisfy a threshold.
const (
	thresholdHighUtilization   = 0.5
	thresholdVariableIncomeGap = 45
	thresholdLowCashBuffer     = 1.0
	thresholdIncomeVariability = 0.3
	thresholdManySubscriptions = 3
	thresholdSubscriptionSpend = 50.0
	thresholdSubscriptionShare = 0.10
	thresholdEmergencyMonths   = 3.0
	thresholdHighBankFees      = 20.0
	thresholdHighFraudRisk     = 0.7
	thresholdElevatedFraudRate = 0.05
)

// MapTriggers derives the trigger set for a signal record. The function
// is total: a nil or unusable record degrades to the insufficient_data
// trigger, and the result is never empty.
func MapTriggers(r *Record) (out []Trigger) {
	if r == nil {
		return []Trigger{TriggerInsufficientData}
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.Error().Interface("panic", rec).Str("user_id", r.UserID).
				Msg("trigger mapping panicked, degrading to insufficient_data")
			out = []Trigger{TriggerInsufficientData}
		}
	}()

	if r.InsufficientData {
		return record(r, []Trigger{TriggerInsufficientData})
	}

	// Credit.
	if r.CreditUtilizationMax != nil && *r.CreditUtilizationMax >= thresholdHighUtilization {
		out = append(out, TriggerHighCreditUtilization)
	}
	if r.HasInterestCharges {
		out = append(out, TriggerHasInterestCharges)
	}
	if r.IsOverdue {
		out = append(out, TriggerIsOverdue)
	}
	if r.MinimumPaymentOnly {
		out = append(out, TriggerMinimumPaymentOnly)
	}

	// Income and cash flow.
	if r.IncomePayGap != nil && *r.IncomePayGap > thresholdVariableIncomeGap {
		out = append(out, TriggerVariableIncome)
	}
	if r.CashFlowBuffer != nil && *r.CashFlowBuffer < thresholdLowCashBuffer {
		out = append(out, TriggerLowCashBuffer)
	}
	if r.IncomeVariability != nil && *r.IncomeVariability > thresholdIncomeVariability {
		out = append(out, TriggerHighIncomeVariability)
	}

	// Subscriptions.
	if r.SubscriptionCount >= thresholdManySubscriptions {
		out = append(out, TriggerManySubscriptions)
	}
	if r.MonthlySubscriptionSpend >= thresholdSubscriptionSpend {
		out = append(out, TriggerHighSubscriptionSpend)
	}
	if r.SubscriptionShare >= thresholdSubscriptionShare {
		out = append(out, TriggerHighSubscriptionShare)
	}

	// Savings.
	if r.MonthlySavingsInflow > 0 {
		out = append(out, TriggerPositiveSavings)
	}
	if r.SavingsGrowthRate != nil && *r.SavingsGrowthRate < 0 {
		out = append(out, TriggerNegativeSavingsGrowth)
	}
	if r.EmergencyFundMonths != nil && *r.EmergencyFundMonths < thresholdEmergencyMonths {
		out = append(out, TriggerLowEmergencyFund)
	}

	// Bank fees.
	if r.MonthlyBankFees >= thresholdHighBankFees {
		out = append(out, TriggerHighBankFees)
	}
	if r.HasOverdraftFees {
		out = append(out, TriggerHasOverdraftFees)
	}
	if r.HasATMFees {
		out = append(out, TriggerHasATMFees)
	}
	if r.HasMaintenanceFees {
		out = append(out, TriggerHasMaintenanceFees)
	}

	// Fraud.
	if r.HasFraudHistory {
		out = append(out, TriggerHasFraudHistory)
	}
	if r.FraudRiskScore >= thresholdHighFraudRisk {
		out = append(out, TriggerHighFraudRisk)
	}
	if r.FraudRate >= thresholdElevatedFraudRate {
		out = append(out, TriggerElevatedFraudRate)
	}

	if len(out) == 0 {
		out = []Trigger{TriggerInsufficientData}
	}
	return record(r, out)
}

func record(r *Record, triggers []Trigger) []Trigger {
	for _, t := range triggers {
		metrics.TriggersFired.WithLabelValues(string(t)).Inc()
	}
	logging.Debug().Str("user_id", r.UserID).Int("trigger_count", len(triggers)).
		Msg("mapped signal triggers")
	return triggers
}

// explanations holds one human-readable sentence fragment per trigger.
// The rationale synthesizer picks one of these per recommendation.
var explanations = map[Trigger]string{
	TriggerHighCreditUtilization: "your credit utilization is above the recommended 30%",
	TriggerHasInterestCharges:    "you paid interest charges on a credit card recently",
	TriggerIsOverdue:             "one of your credit accounts is past due",
	TriggerMinimumPaymentOnly:    "you have been making only minimum payments on a credit card",
	TriggerVariableIncome:        "your income arrives on an irregular schedule",
	TriggerLowCashBuffer:         "your cash buffer covers less than one month of spending",
	TriggerHighIncomeVariability: "your income amount varies significantly month to month",
	TriggerManySubscriptions:     "you have several active recurring subscriptions",
	TriggerHighSubscriptionSpend: "your monthly subscription spending is substantial",
	TriggerHighSubscriptionShare: "subscriptions take up a notable share of your spending",
	TriggerPositiveSavings:       "you are putting money into savings regularly",
	TriggerNegativeSavingsGrowth: "your savings balance has been shrinking",
	TriggerLowEmergencyFund:      "your emergency fund covers less than three months of expenses",
	TriggerHighBankFees:          "you are paying notable bank fees each month",
	TriggerHasOverdraftFees:      "you were charged overdraft fees recently",
	TriggerHasATMFees:            "you were charged out-of-network ATM fees recently",
	TriggerHasMaintenanceFees:    "you are paying account maintenance fees",
	TriggerHasFraudHistory:       "your account history includes flagged transactions",
	TriggerHighFraudRisk:         "your account shows an elevated fraud risk score",
	TriggerElevatedFraudRate:     "an elevated share of your transactions were flagged",
	TriggerInsufficientData:      "we have limited transaction history for your accounts",
}

// Explain returns the human-readable fragment for a trigger, or a
// generic fallback for unknown triggers.
func Explain(t Trigger) string {
	if s, ok := explanations[t]; ok {
		return s
	}
	return "your recent account activity"
}
