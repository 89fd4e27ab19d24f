package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account holder in the rewards program. Identity is
// issued by the managed auth provider; this service only stores the fields
// the ledger needs.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string         `json:"display_name"`
	ReferralCode string         `gorm:"uniqueIndex" json:"referral_code"`
	IsAdmin      bool           `gorm:"default:false" json:"is_admin"`
	TotalPoints  int64          `gorm:"not null;default:0" json:"total_points"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	RewardEvents      []RewardEvent      `json:"reward_events,omitempty"`
	PointTransactions []PointTransaction `json:"point_transactions,omitempty"`
	Referrals         []Referral         `gorm:"foreignKey:ReferrerUserID" json:"referrals,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
