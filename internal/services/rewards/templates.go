package rewards

import (
	"github.com/endorsegen/backend/internal/models"
)

// Template defines the static reward policy for one action type. Templates
// are defined at process start and read-only afterwards.
type Template struct {
	Action        models.RewardAction
	BasePoints    int64
	MaxPoints     int64 // zero means uncapped
	DailyCap      int   // zero means unlimited
	RequiresProof bool
	Channels      []string // empty means any channel
}

var templates = map[models.RewardAction]Template{
	models.ActionSurvey: {
		Action:     models.ActionSurvey,
		BasePoints: 50,
		MaxPoints:  50,
		DailyCap:   3,
	},
	models.ActionReview: {
		Action:        models.ActionReview,
		BasePoints:    200,
		MaxPoints:     400,
		DailyCap:      1,
		RequiresProof: true,
		Channels:      []string{"google", "yelp", "direct"},
	},
	models.ActionVideo: {
		Action:        models.ActionVideo,
		BasePoints:    300,
		MaxPoints:     600,
		DailyCap:      1,
		RequiresProof: true,
		Channels:      []string{"public", "private"},
	},
	models.ActionShare: {
		Action:     models.ActionShare,
		BasePoints: 25,
		MaxPoints:  25,
		DailyCap:   5,
	},
	models.ActionManual: {
		Action:     models.ActionManual,
		BasePoints: 0,
		MaxPoints:  1000,
	},
	models.ActionReferralTopup: {
		Action:     models.ActionReferralTopup,
		BasePoints: 0,
	},
}

// TemplateFor returns the template for an action, or false for unknown actions.
func TemplateFor(action models.RewardAction) (Template, bool) {
	tpl, ok := templates[action]
	return tpl, ok
}

// AllowsChannel reports whether the template accepts the given channel.
func (t Template) AllowsChannel(channel string) bool {
	if len(t.Channels) == 0 || channel == "" {
		return true
	}
	for _, c := range t.Channels {
		if c == channel {
			return true
		}
	}
	return false
}
