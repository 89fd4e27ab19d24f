package models

import (
	"time"

	"github.com/google/uuid"
)

// LeadStatus enumerates the lifecycle of a referred lead
type LeadStatus string

const (
	LeadStatusPending    LeadStatus = "pending"
	LeadStatusQualified  LeadStatus = "qualified"
	LeadStatusClosedWon  LeadStatus = "closed_won"
	LeadStatusClosedLost LeadStatus = "closed_lost"
)

// Referral tracks a referred lead and the bounty owed to the referrer.
// BountyPointsAwarded never exceeds BountyPointsTarget.
type Referral struct {
	Base
	ReferrerUserID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"referrer_user_id"`
	Referrer            User       `gorm:"foreignKey:ReferrerUserID" json:"-"`
	ReferredEmail       string     `gorm:"type:varchar(255)" json:"referred_email"`
	LeadStatus          LeadStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"lead_status"`
	BountyPointsTarget  int64      `gorm:"not null;default:0" json:"bounty_points_target"`
	BountyPointsAwarded int64      `gorm:"not null;default:0" json:"bounty_points_awarded"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
}
