// Package scoring provides the keyword-based sentiment and structural
// quality heuristics used by award computation. The word lists, weights,
// and thresholds are part of the award contract and must not drift.
package scoring

import (
	"regexp"
	"strings"
)

var positiveWords = map[string]struct{}{
	"great":     {},
	"good":      {},
	"amazing":   {},
	"excellent": {},
	"helpful":   {},
	"love":      {},
	"fantastic": {},
}

var (
	tokenSplit    = regexp.MustCompile(`[^a-z]+`)
	outcomeWords  = regexp.MustCompile(`(?i)(outcome|benefit)`)
	problemWords  = regexp.MustCompile(`(?i)(problem|struggle)`)
	solutionWords = regexp.MustCompile(`(?i)(solution|helped)`)
)

// Sentiment returns a naive positivity score in [0,1] based on the share of
// tokens that match a fixed positive-word list.
func Sentiment(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	positive := 0
	for _, token := range tokens {
		if _, ok := positiveWords[token]; ok {
			positive++
		}
	}

	denom := len(tokens)
	if denom < 3 {
		denom = 3
	}

	score := float64(positive) / float64(denom)
	if score > 1 {
		return 1
	}
	return score
}

// Quality combines a structural score (does the text mention an outcome, a
// problem, and a solution) weighted 60% with a length score weighted 40%.
func Quality(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	structural := 0.0
	if outcomeWords.MatchString(text) {
		structural++
	}
	if problemWords.MatchString(text) {
		structural++
	}
	if solutionWords.MatchString(text) {
		structural++
	}
	structural /= 3

	length := float64(len(text)) / 500
	if length > 1 {
		length = 1
	}

	return structural*0.6 + length*0.4
}

func tokenize(text string) []string {
	fields := tokenSplit.Split(strings.ToLower(text), -1)
	tokens := fields[:0]
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
