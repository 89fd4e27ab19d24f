package models

import (
	"github.com/google/uuid"
)

// RewardAction enumerates the actions that can earn points
type RewardAction string

const (
	ActionSurvey        RewardAction = "survey"
	ActionReview        RewardAction = "review"
	ActionVideo         RewardAction = "video"
	ActionShare         RewardAction = "share"
	ActionManual        RewardAction = "manual"
	ActionReferralTopup RewardAction = "referral_topup"
)

// RewardSource enumerates how an award request originated
type RewardSource string

const (
	SourceAuto     RewardSource = "auto"
	SourceManual   RewardSource = "manual"
	SourceReferral RewardSource = "referral"
)

// RewardEvent is the append-only audit record of every award or redemption
// decision. Rows are never updated or deleted once written.
type RewardEvent struct {
	Base
	UserID   uuid.UUID    `gorm:"type:uuid;index;not null" json:"user_id"`
	User     User         `gorm:"foreignKey:UserID" json:"-"`
	Action   RewardAction `gorm:"type:varchar(30);not null;index" json:"action"`
	Source   RewardSource `gorm:"type:varchar(20);not null" json:"source"`
	Points   int64        `gorm:"not null" json:"points"`
	USDValue float64      `gorm:"type:decimal(20,2)" json:"usd_value"`
	Metadata JSON         `gorm:"type:jsonb" json:"metadata"`
}

// PointTransaction is the append-only ledger of balance mutations. For every
// row, BalanceAfter equals the user's balance immediately before the row plus
// Delta. Rows are never updated or deleted once written.
type PointTransaction struct {
	Base
	UserID        uuid.UUID    `gorm:"type:uuid;index;not null" json:"user_id"`
	User          User         `gorm:"foreignKey:UserID" json:"-"`
	Delta         int64        `gorm:"not null" json:"delta"`
	BalanceAfter  int64        `gorm:"not null" json:"balance_after"`
	RewardEventID *uuid.UUID   `gorm:"type:uuid;index" json:"reward_event_id,omitempty"`
	RewardEvent   *RewardEvent `gorm:"foreignKey:RewardEventID" json:"-"`
	Reference     string       `gorm:"type:varchar(64);uniqueIndex" json:"reference"`
	Reason        string       `gorm:"type:text" json:"reason"`
	Metadata      JSON         `gorm:"type:jsonb" json:"metadata"`
}
