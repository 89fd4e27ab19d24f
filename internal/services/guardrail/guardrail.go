// Package guardrail decides whether an award request may proceed. It is a
// pure function of its inputs and holds no state; budget and fraud context
// are supplied by the caller.
package guardrail

import (
	"fmt"
	"strings"
)

// DefaultIPActivityThreshold is the recent-activity count above which an IP
// is flagged.
const DefaultIPActivityThreshold = 20

// PolicyContext carries the action/channel pair and the organization's
// channel toggles.
type PolicyContext struct {
	Action                     string
	Channel                    string
	AllowGoogleReviewRewards   bool
	AllowYelpReviewRewards     bool
	AllowPublicVideoIncentives bool
}

// FraudContext carries caller-observed request history for heuristics.
type FraudContext struct {
	RecentProofURLs     []string
	RecentIPActivity    int
	IPActivityThreshold int // zero means DefaultIPActivityThreshold
}

// BudgetContext carries the pending award against the organization budget.
type BudgetContext struct {
	PendingAwardPoints int64
	OrgPointsBudget    int64
}

// FraudFlags reports which heuristics fired.
type FraudFlags struct {
	ReusedURL           bool `json:"reused_url"`
	ExcessiveIPActivity bool `json:"excessive_ip_activity"`
}

// Result is the guardrail verdict. Reasons accumulates every failing check
// so callers can surface all of them at once.
type Result struct {
	Allowed    bool       `json:"allowed"`
	Reasons    []string   `json:"reasons"`
	FraudFlags FraudFlags `json:"fraud_flags"`
}

// Evaluate runs the policy, fraud, and budget checks.
func Evaluate(policy PolicyContext, fraud FraudContext, budget BudgetContext) Result {
	result := Result{}

	channelOK := checkChannel(policy, &result)
	checkFraud(fraud, &result)
	budgetOK := checkBudget(budget, &result)

	result.Allowed = channelOK && budgetOK && len(result.Reasons) == 0
	return result
}

func checkChannel(policy PolicyContext, result *Result) bool {
	switch policy.Action {
	case "review":
		switch policy.Channel {
		case "google":
			if !policy.AllowGoogleReviewRewards {
				result.Reasons = append(result.Reasons, "google review rewards are not enabled for this organization")
				return false
			}
		case "yelp":
			if !policy.AllowYelpReviewRewards {
				result.Reasons = append(result.Reasons, "yelp review rewards are not enabled for this organization")
				return false
			}
		}
	case "video":
		if policy.Channel == "public" && !policy.AllowPublicVideoIncentives {
			result.Reasons = append(result.Reasons, "public video incentives are not enabled for this organization")
			return false
		}
	}
	return true
}

func checkFraud(fraud FraudContext, result *Result) {
	seen := make(map[string]struct{}, len(fraud.RecentProofURLs))
	for _, rawURL := range fraud.RecentProofURLs {
		url := strings.ToLower(strings.TrimSpace(rawURL))
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			result.FraudFlags.ReusedURL = true
			result.Reasons = append(result.Reasons, "proof URL was already used for a previous reward")
			break
		}
		seen[url] = struct{}{}
	}

	threshold := fraud.IPActivityThreshold
	if threshold <= 0 {
		threshold = DefaultIPActivityThreshold
	}
	if fraud.RecentIPActivity > threshold {
		result.FraudFlags.ExcessiveIPActivity = true
		result.Reasons = append(result.Reasons, fmt.Sprintf("excessive activity from this IP (%d recent requests)", fraud.RecentIPActivity))
	}
}

func checkBudget(budget BudgetContext, result *Result) bool {
	if budget.PendingAwardPoints > budget.OrgPointsBudget {
		result.Reasons = append(result.Reasons, "organization reward budget exhausted")
		return false
	}
	return true
}
