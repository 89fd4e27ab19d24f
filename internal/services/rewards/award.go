// Package rewards holds the award arithmetic: templates, multipliers, caps,
// and the fixed points-to-dollars conversion.
package rewards

import (
	"math"
)

// USDPer1000Points is the fixed, externally observable conversion rate:
// 1000 points = $10. Gift-card pricing and the UI depend on it.
const USDPer1000Points = 10.0

// QualityMultiplier is applied when both scores clear their thresholds.
const (
	QualityMultiplier  = 1.2
	sentimentThreshold = 0.6
	qualityThreshold   = 0.5
)

// Computation is the outcome of award arithmetic, before any ledger write.
type Computation struct {
	Points     int64   `json:"points"`
	Multiplier float64 `json:"applied_multiplier"`
	Capped     bool    `json:"capped"`
}

// ComputeAward derives the point grant for a template and score pair.
// manualPoints, when non-nil, replaces the computed value (administrator
// flow) but is still clamped to the template cap.
func ComputeAward(tpl Template, sentiment, quality float64, manualPoints *int64) Computation {
	multiplier := 1.0
	if sentiment > sentimentThreshold && quality > qualityThreshold {
		multiplier = QualityMultiplier
	}

	points := int64(math.Round(float64(tpl.BasePoints) * multiplier))
	if manualPoints != nil {
		points = *manualPoints
		multiplier = 1.0
	}

	capped := false
	if tpl.MaxPoints > 0 && points > tpl.MaxPoints {
		points = tpl.MaxPoints
		capped = true
	}

	return Computation{
		Points:     points,
		Multiplier: multiplier,
		Capped:     capped,
	}
}

// PointsToUSD converts a point amount to dollars at the fixed program rate.
func PointsToUSD(points int64) float64 {
	return float64(points) / 1000 * USDPer1000Points
}
