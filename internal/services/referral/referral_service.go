// Package referral manages referral bounties. The close-won top-up is
// idempotent for an unchanged target because the awarded amount is re-read
// under lock on every call.
package referral

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/endorsegen/backend/internal/models"
	"github.com/endorsegen/backend/internal/services/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrReferralNotFound means the referral id is unknown
var ErrReferralNotFound = errors.New("referral not found")

// Service handles referral bookkeeping
type Service struct {
	db *gorm.DB
}

// NewService creates a new referral service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateReferral registers a new referred lead for a referrer
func (s *Service) CreateReferral(ctx context.Context, referrerUserID uuid.UUID, referredEmail string, bountyTarget int64) (*models.Referral, error) {
	referral := models.Referral{
		ReferrerUserID:     referrerUserID,
		ReferredEmail:      referredEmail,
		LeadStatus:         models.LeadStatusPending,
		BountyPointsTarget: bountyTarget,
	}

	if err := s.db.WithContext(ctx).Create(&referral).Error; err != nil {
		return nil, fmt.Errorf("error creating referral: %w", err)
	}
	return &referral, nil
}

// ListReferrals returns all referrals for a referrer, newest first
func (s *Service) ListReferrals(ctx context.Context, referrerUserID uuid.UUID) ([]models.Referral, error) {
	var referrals []models.Referral
	if err := s.db.WithContext(ctx).Where("referrer_user_id = ?", referrerUserID).Order("created_at DESC").Find(&referrals).Error; err != nil {
		return nil, fmt.Errorf("error listing referrals: %w", err)
	}
	return referrals, nil
}

// CloseWonResult reports the outcome of a close-won top-up
type CloseWonResult struct {
	ReferralID   uuid.UUID `json:"referral_id"`
	TopUp        int64     `json:"top_up"`
	BountyTarget int64     `json:"bounty_target"`
	NewBalance   int64     `json:"new_balance"`
}

// CloseWon marks a referral closed_won and tops the referrer's bounty up to
// the target. topUp = max(0, target - alreadyAwarded); a zero top-up still
// marks the referral closed_won but touches no ledger state, so repeated
// calls with an unchanged target are no-ops.
func (s *Service) CloseWon(ctx context.Context, referralID uuid.UUID, targetOverride *int64) (*CloseWonResult, error) {
	result := &CloseWonResult{ReferralID: referralID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var referral models.Referral
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&referral, "id = ?", referralID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReferralNotFound
			}
			return fmt.Errorf("error locking referral: %w", err)
		}

		target := referral.BountyPointsTarget
		if targetOverride != nil {
			target = *targetOverride
		}
		result.BountyTarget = target

		topUp := target - referral.BountyPointsAwarded
		if topUp < 0 {
			topUp = 0
		}
		result.TopUp = topUp

		// A lowered target never claws back; the stored target stays at or
		// above the amount already awarded.
		storedTarget := target
		if storedTarget < referral.BountyPointsAwarded {
			storedTarget = referral.BountyPointsAwarded
		}

		now := time.Now()
		updates := map[string]interface{}{
			"lead_status":          models.LeadStatusClosedWon,
			"bounty_points_target": storedTarget,
			"closed_at":            &now,
		}

		if topUp == 0 {
			// Already fully awarded: status change only.
			balance, err := currentBalance(tx, referral.ReferrerUserID)
			if err != nil {
				return err
			}
			result.NewBalance = balance
			return tx.Model(&models.Referral{}).Where("id = ?", referral.ID).Updates(updates).Error
		}

		_, newBalance, err := ledger.ApplyDelta(
			tx,
			referral.ReferrerUserID,
			topUp,
			models.ActionReferralTopup,
			models.SourceReferral,
			fmt.Sprintf("referral bounty top-up for %s", referral.ReferredEmail),
			models.JSON{
				"referral_id":   referral.ID.String(),
				"bounty_target": target,
			},
		)
		if err != nil {
			return err
		}
		result.NewBalance = newBalance

		updates["bounty_points_awarded"] = referral.BountyPointsAwarded + topUp
		return tx.Model(&models.Referral{}).Where("id = ?", referral.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func currentBalance(tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		return 0, fmt.Errorf("error reading referrer balance: %w", err)
	}
	return user.TotalPoints, nil
}
