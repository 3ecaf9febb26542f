// SpendSense - Explainable Financial Education Recommendations
// Copyright 2026 SpendSense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/spendsense/spendsense

package recommend

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spendsense/spendsense/internal/catalog"
	"github.com/spendsense/spendsense/internal/persona"
	"github.com/spendsense/spendsense/internal/signal"
)

// Semantically equivalent openings, chosen pseudo-randomly per
// rationale. Surface wording only; never affects matching or scoring.
var openingPhrases = []string{
	"This is relevant",
	"This matters",
	"This is important",
	"This can help",
	"This applies to you",
}

// synthesizeRationale produces the single explanatory sentence for a
// selected item. Always ends with a period; downstream formatting
// depends on it.
func (e *Engine) synthesizeRationale(item catalog.Item, assignment persona.Assignment, triggers []signal.Trigger, rec *signal.Record) string {
	matching := intersectTriggers(triggers, item.SignalTriggers)
	if len(matching) == 0 {
		return fmt.Sprintf("This content matches your %s financial profile.", strings.ToLower(assignment.PersonaName))
	}

	prioritized := prioritizeTrigger(item, matching)
	detail := triggerDetail(prioritized, rec)
	if detail == "" {
		return fmt.Sprintf("This is relevant because %s.", signal.Explain(prioritized))
	}

	opening := openingPhrases[rand.IntN(len(openingPhrases))]
	return fmt.Sprintf("%s because %s.", opening, detail)
}

// Trigger preference orders per content topic. When an item matches
// several triggers, the rationale cites the most specific one for the
// item's subject rather than an arbitrary one.
var (
	creditPreference = []signal.Trigger{
		signal.TriggerHighCreditUtilization,
		signal.TriggerIsOverdue,
		signal.TriggerMinimumPaymentOnly,
		signal.TriggerHasInterestCharges,
	}
	subscriptionAuditPreference = []signal.Trigger{
		signal.TriggerManySubscriptions,
		signal.TriggerHighSubscriptionSpend,
		signal.TriggerHighSubscriptionShare,
	}
	subscriptionSpendPreference = []signal.Trigger{
		signal.TriggerHighSubscriptionSpend,
		signal.TriggerHighSubscriptionShare,
		signal.TriggerManySubscriptions,
	}
	savingsPreference = []signal.Trigger{
		signal.TriggerLowEmergencyFund,
		signal.TriggerNegativeSavingsGrowth,
		signal.TriggerPositiveSavings,
	}
	feePreference = []signal.Trigger{
		signal.TriggerHighBankFees,
		signal.TriggerHasOverdraftFees,
		signal.TriggerHasMaintenanceFees,
		signal.TriggerHasATMFees,
	}
	fraudPreference = []signal.Trigger{
		signal.TriggerHighFraudRisk,
		signal.TriggerHasFraudHistory,
		signal.TriggerElevatedFraudRate,
	}
)

// prioritizeTrigger selects exactly one trigger to cite, using keyword
// heuristics over the item's id and title. Falls back to the first
// matching trigger in trigger-set order.
func prioritizeTrigger(item catalog.Item, matching []signal.Trigger) signal.Trigger {
	text := strings.ToLower(item.ContentID + " " + item.Title)

	var preference []signal.Trigger
	switch {
	case containsAny(text, "credit", "debt", "utilization", "interest", "card"):
		preference = creditPreference
	case containsAny(text, "subscription", "recurring"):
		// Audit/review content cites how many subscriptions there are;
		// negotiation/cancellation content cites what they cost.
		if containsAny(text, "negotiat", "cancel", "lower", "reduce") {
			preference = subscriptionSpendPreference
		} else {
			preference = subscriptionAuditPreference
		}
	case containsAny(text, "saving", "emergency", "fund"):
		preference = savingsPreference
	case containsAny(text, "fee", "overdraft", "bank account"):
		preference = feePreference
	case containsAny(text, "fraud", "security", "scam"):
		preference = fraudPreference
	}

	for _, want := range preference {
		for _, have := range matching {
			if have == want {
				return want
			}
		}
	}
	return matching[0]
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// triggerDetail renders the natural-language detail for one trigger,
// substituting actual signal values where present and a qualitative
// phrase where not. Returns "" for unknown triggers.
func triggerDetail(t signal.Trigger, rec *signal.Record) string {
	if rec == nil {
		return ""
	}
	switch t {
	case signal.TriggerHighCreditUtilization:
		if rec.CreditUtilizationMax != nil {
			pct := *rec.CreditUtilizationMax * 100
			switch {
			case pct >= 80:
				return fmt.Sprintf("your credit utilization is %.0f%% (well above the recommended 30%%)", pct)
			case pct >= 50:
				return fmt.Sprintf("your credit utilization is %.0f%% (above the recommended 30%%)", pct)
			default:
				return fmt.Sprintf("your credit utilization is %.0f%%", pct)
			}
		}
		return "your credit utilization is above recommended levels"

	case signal.TriggerHasInterestCharges:
		if rec.CreditUtilizationMax != nil {
			return fmt.Sprintf("you're paying interest charges on %.0f%% credit utilization", *rec.CreditUtilizationMax*100)
		}
		return "you're paying interest charges on your credit cards"

	case signal.TriggerIsOverdue:
		return "you have overdue payments that need attention"

	case signal.TriggerMinimumPaymentOnly:
		return "you're making only minimum payments, which extends your debt timeline"

	case signal.TriggerManySubscriptions:
		if rec.SubscriptionCount > 0 {
			return fmt.Sprintf("you have %d active subscriptions", rec.SubscriptionCount)
		}
		return "you have multiple active subscriptions"

	case signal.TriggerHighSubscriptionSpend:
		if rec.MonthlySubscriptionSpend > 0 {
			if rec.MonthlySubscriptionSpend >= 100 {
				return fmt.Sprintf("you're spending $%.0f+ per month on subscriptions", rec.MonthlySubscriptionSpend)
			}
			return fmt.Sprintf("you're spending $%.0f per month on subscriptions", rec.MonthlySubscriptionSpend)
		}
		return "you're spending $50+ per month on subscriptions"

	case signal.TriggerHighSubscriptionShare:
		if rec.SubscriptionShare > 0 {
			return fmt.Sprintf("subscriptions make up %.0f%% of your total spending", rec.SubscriptionShare*100)
		}
		return "subscriptions make up a significant portion of your spending"

	case signal.TriggerVariableIncome:
		if rec.IncomePayGap != nil && *rec.IncomePayGap > 0 {
			return fmt.Sprintf("your income arrives irregularly, with gaps of %d days between payments", *rec.IncomePayGap)
		}
		return "your income timing is irregular"

	case signal.TriggerLowCashBuffer:
		if rec.CashFlowBuffer != nil {
			if *rec.CashFlowBuffer < 0.5 {
				return fmt.Sprintf("you have less than %.0f days of expenses saved", *rec.CashFlowBuffer*30)
			}
			return "your cash buffer is less than 1 month of expenses"
		}
		return "your cash flow buffer is low"

	case signal.TriggerHighIncomeVariability:
		if rec.IncomeVariability != nil && *rec.IncomeVariability > 0 {
			return fmt.Sprintf("your income varies by %.0f%% month to month", *rec.IncomeVariability*100)
		}
		return "your income amounts vary significantly"

	case signal.TriggerPositiveSavings:
		if rec.MonthlySavingsInflow > 0 {
			return fmt.Sprintf("you're saving $%.0f per month", rec.MonthlySavingsInflow)
		}
		return "you're actively saving money"

	case signal.TriggerLowEmergencyFund:
		if rec.EmergencyFundMonths != nil {
			if *rec.EmergencyFundMonths < 1 {
				return "your emergency fund covers less than 1 month of expenses"
			}
			return fmt.Sprintf("your emergency fund covers %.1f months of expenses (recommended: 3-6 months)", *rec.EmergencyFundMonths)
		}
		return "your emergency fund is below recommended levels"

	case signal.TriggerNegativeSavingsGrowth:
		return "your savings balance is decreasing over time"

	case signal.TriggerHighBankFees:
		if rec.MonthlyBankFees > 0 {
			return fmt.Sprintf("you're paying $%.0f per month in bank fees", rec.MonthlyBankFees)
		}
		return "you're paying $20+ per month in bank fees"

	case signal.TriggerHasOverdraftFees:
		return "you've been charged overdraft fees recently"

	case signal.TriggerHasATMFees:
		return "you're paying ATM fees when withdrawing cash"

	case signal.TriggerHasMaintenanceFees:
		return "you're paying account maintenance fees"

	case signal.TriggerHasFraudHistory:
		if rec.FraudTransactionCount > 0 {
			plural := ""
			if rec.FraudTransactionCount > 1 {
				plural = "s"
			}
			return fmt.Sprintf("you've had %d fraud transaction%s in your account", rec.FraudTransactionCount, plural)
		}
		return "you have fraud transactions in your account history"

	case signal.TriggerHighFraudRisk:
		if rec.FraudRiskScore > 0 {
			return fmt.Sprintf("your account shows a %.0f%% fraud risk score", rec.FraudRiskScore*100)
		}
		return "your account shows elevated fraud risk"

	case signal.TriggerElevatedFraudRate:
		if rec.FraudRate > 0 {
			return fmt.Sprintf("%.1f%% of your transactions are flagged as fraud", rec.FraudRate*100)
		}
		return "your fraud rate is above normal levels"

	case signal.TriggerInsufficientData:
		return "we need more transaction data to provide personalized recommendations"
	}
	return ""
}
