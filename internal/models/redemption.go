package models

import (
	"time"

	"github.com/google/uuid"
)

// RedemptionStatus enumerates the lifecycle of a gift-card redemption
type RedemptionStatus string

const (
	RedemptionPending RedemptionStatus = "pending"
	// RedemptionVendorIssued means the vendor accepted the gift but the
	// local balance deduction has not committed yet.
	RedemptionVendorIssued RedemptionStatus = "vendor_issued"
	RedemptionCompleted    RedemptionStatus = "completed"
	// RedemptionPartialFailure means the vendor issued the gift but the
	// balance deduction failed. Requires manual reconciliation; never
	// auto-reversed.
	RedemptionPartialFailure RedemptionStatus = "partial_failure"
	RedemptionRejected       RedemptionStatus = "rejected"
)

// GiftRedemption records a points-for-gift-card exchange against the vendor.
// VendorResponse is written as soon as the vendor answers so the audit trail
// survives a failed deduction.
type GiftRedemption struct {
	Base
	UserID         uuid.UUID        `gorm:"type:uuid;index;not null" json:"user_id"`
	User           User             `gorm:"foreignKey:UserID" json:"-"`
	CardID         string           `gorm:"type:varchar(100);not null" json:"card_id"`
	CostPoints     int64            `gorm:"not null" json:"cost_points"`
	IdempotencyKey string           `gorm:"type:varchar(150);uniqueIndex;not null" json:"idempotency_key"`
	Status         RedemptionStatus `gorm:"type:varchar(30);not null;default:'pending'" json:"status"`
	VendorRef      string           `gorm:"type:varchar(150)" json:"vendor_ref"`
	VendorResponse JSON             `gorm:"type:jsonb" json:"vendor_response,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}
