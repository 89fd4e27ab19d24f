package rewards

import (
	"testing"

	"github.com/endorsegen/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPointsToUSD(t *testing.T) {
	// 1000 points = $10 is an externally observable contract
	assert.Equal(t, 10.0, PointsToUSD(1000))
	assert.Equal(t, 2.5, PointsToUSD(250))
	assert.Equal(t, 0.5, PointsToUSD(50))
	assert.Equal(t, 0.0, PointsToUSD(0))
	assert.Equal(t, 2.4, PointsToUSD(240))
}

func TestComputeAward_NoMultiplierBelowThresholds(t *testing.T) {
	tpl := Template{BasePoints: 50, MaxPoints: 50}

	comp := ComputeAward(tpl, 0, 0, nil)
	assert.Equal(t, int64(50), comp.Points)
	assert.Equal(t, 1.0, comp.Multiplier)
	assert.False(t, comp.Capped)

	// threshold is strict: exactly 0.6/0.5 does not qualify
	comp = ComputeAward(tpl, 0.6, 0.5, nil)
	assert.Equal(t, 1.0, comp.Multiplier)
}

func TestComputeAward_MultiplierApplied(t *testing.T) {
	tpl := Template{BasePoints: 200, MaxPoints: 400}

	comp := ComputeAward(tpl, 0.61, 0.51, nil)
	assert.Equal(t, int64(240), comp.Points)
	assert.Equal(t, 1.2, comp.Multiplier)
	assert.False(t, comp.Capped)
}

func TestComputeAward_CapClamps(t *testing.T) {
	tpl := Template{BasePoints: 500, MaxPoints: 400}

	comp := ComputeAward(tpl, 0.9, 0.9, nil)
	assert.Equal(t, int64(400), comp.Points)
	assert.True(t, comp.Capped)
}

func TestComputeAward_NeverExceedsMaxPoints(t *testing.T) {
	tpl := Template{BasePoints: 999999, MaxPoints: 100}
	for _, s := range []float64{0, 0.5, 0.7, 1} {
		for _, q := range []float64{0, 0.5, 0.7, 1} {
			comp := ComputeAward(tpl, s, q, nil)
			assert.LessOrEqual(t, comp.Points, tpl.MaxPoints)
		}
	}
}

func TestComputeAward_Idempotent(t *testing.T) {
	tpl := Template{BasePoints: 200, MaxPoints: 400}
	first := ComputeAward(tpl, 0.7, 0.6, nil)
	second := ComputeAward(tpl, 0.7, 0.6, nil)
	assert.Equal(t, first, second)
}

func TestComputeAward_ManualOverride(t *testing.T) {
	tpl := Template{BasePoints: 50, MaxPoints: 100}

	manual := int64(75)
	comp := ComputeAward(tpl, 0.9, 0.9, &manual)
	assert.Equal(t, int64(75), comp.Points)

	// manual values are still clamped
	tooMuch := int64(5000)
	comp = ComputeAward(tpl, 0, 0, &tooMuch)
	assert.Equal(t, int64(100), comp.Points)
	assert.True(t, comp.Capped)
}

func TestComputeAward_UncappedTemplate(t *testing.T) {
	tpl := Template{BasePoints: 100}
	comp := ComputeAward(tpl, 1, 1, nil)
	assert.Equal(t, int64(120), comp.Points)
	assert.False(t, comp.Capped)
}

func TestTemplateFor(t *testing.T) {
	for _, action := range []models.RewardAction{
		models.ActionSurvey, models.ActionReview, models.ActionVideo,
		models.ActionShare, models.ActionManual, models.ActionReferralTopup,
	} {
		_, ok := TemplateFor(action)
		assert.True(t, ok, "missing template for %s", action)
	}

	_, ok := TemplateFor(models.RewardAction("bogus"))
	assert.False(t, ok)
}

func TestTemplateAllowsChannel(t *testing.T) {
	tpl := Template{Channels: []string{"google", "yelp"}}
	assert.True(t, tpl.AllowsChannel("google"))
	assert.True(t, tpl.AllowsChannel("")) // unspecified channel passes
	assert.False(t, tpl.AllowsChannel("facebook"))

	open := Template{}
	assert.True(t, open.AllowsChannel("anything"))
}
