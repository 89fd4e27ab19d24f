// Package ledger is the sole writer of user point balances. Every mutation
// locks the user row, applies the delta, and appends a reward event plus a
// point transaction inside one database transaction, so concurrent requests
// for the same user serialize instead of racing.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/endorsegen/backend/internal/config"
	"github.com/endorsegen/backend/internal/models"
	"github.com/endorsegen/backend/internal/services/giftbit"
	"github.com/endorsegen/backend/internal/services/guardrail"
	"github.com/endorsegen/backend/internal/services/rewards"
	"github.com/endorsegen/backend/internal/services/scoring"
	"github.com/endorsegen/backend/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GiftVendor is the slice of the gift-card vendor the ledger needs.
type GiftVendor interface {
	GetCard(ctx context.Context, cardID string) (*giftbit.Card, error)
	CreateGift(ctx context.Context, req giftbit.GiftRequest) (*giftbit.GiftConfirmation, error)
}

// StatusStore mirrors redemption status into a keyed store for polling.
type StatusStore interface {
	SetRedemptionStatus(ctx context.Context, redemptionID uuid.UUID, status models.RedemptionStatus) error
}

// Service handles award and redemption bookkeeping
type Service struct {
	db     *gorm.DB
	cfg    config.RewardsConfig
	vendor GiftVendor
	status StatusStore
}

// NewService creates a new ledger service. status may be nil.
func NewService(db *gorm.DB, cfg config.RewardsConfig, vendor GiftVendor, status StatusStore) *Service {
	return &Service{db: db, cfg: cfg, vendor: vendor, status: status}
}

// AwardRequest is a request to grant points for a completed action
type AwardRequest struct {
	Action           models.RewardAction
	Channel          string
	ProofURLs        []string
	TextContent      string
	ManualPoints     *int64
	Source           models.RewardSource
	ReferralID       *uuid.UUID
	RecentIPActivity int
}

// AwardResult reports the outcome of an award request. A guardrail rejection
// is a normal business outcome: Rejection is set and no ledger state changed.
type AwardResult struct {
	Rejection  *guardrail.Result `json:"rejection,omitempty"`
	EventID    uuid.UUID         `json:"event_id"`
	Points     int64             `json:"points"`
	USDValue   float64           `json:"usd_value"`
	NewBalance int64             `json:"new_balance"`
	Sentiment  float64           `json:"sentiment"`
	Quality    float64           `json:"quality"`
	Multiplier float64           `json:"applied_multiplier"`
	Capped     bool              `json:"capped"`
}

// Award validates, guards, scores, and applies one award request.
func (s *Service) Award(ctx context.Context, userID uuid.UUID, req AwardRequest) (*AwardResult, error) {
	tpl, ok := rewards.TemplateFor(req.Action)
	if !ok {
		return nil, ErrUnknownAction
	}
	if tpl.RequiresProof && len(req.ProofURLs) == 0 {
		return nil, ErrProofRequired
	}
	if !tpl.AllowsChannel(req.Channel) {
		return nil, ErrChannelNotAllowed
	}
	if req.Source == "" {
		req.Source = models.SourceAuto
	}

	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}

	recentURLs, err := s.recentProofURLs(db, userID, req.ProofURLs)
	if err != nil {
		return nil, err
	}

	remainingBudget, err := s.remainingOrgBudget(db)
	if err != nil {
		return nil, err
	}

	// Budget is checked against the most this request could grant.
	worstCase := rewards.ComputeAward(tpl, 1, 1, req.ManualPoints)

	verdict := guardrail.Evaluate(
		guardrail.PolicyContext{
			Action:                     string(req.Action),
			Channel:                    req.Channel,
			AllowGoogleReviewRewards:   s.cfg.AllowGoogleReviewRewards,
			AllowYelpReviewRewards:     s.cfg.AllowYelpReviewRewards,
			AllowPublicVideoIncentives: s.cfg.AllowPublicVideoIncentives,
		},
		guardrail.FraudContext{
			RecentProofURLs:     recentURLs,
			RecentIPActivity:    req.RecentIPActivity,
			IPActivityThreshold: s.cfg.IPActivityThreshold,
		},
		guardrail.BudgetContext{
			PendingAwardPoints: worstCase.Points,
			OrgPointsBudget:    remainingBudget,
		},
	)

	if verdict.Allowed && tpl.DailyCap > 0 && req.Source == models.SourceAuto {
		count, err := s.todayEventCount(db, userID, req.Action)
		if err != nil {
			return nil, err
		}
		if count >= int64(tpl.DailyCap) {
			verdict.Allowed = false
			verdict.Reasons = append(verdict.Reasons, fmt.Sprintf("daily cap of %d reached for action %s", tpl.DailyCap, req.Action))
		}
	}

	if !verdict.Allowed {
		return &AwardResult{Rejection: &verdict}, nil
	}

	sentiment := scoring.Sentiment(req.TextContent)
	quality := scoring.Quality(req.TextContent)
	comp := rewards.ComputeAward(tpl, sentiment, quality, req.ManualPoints)

	metadata := models.JSON{
		"channel":   req.Channel,
		"sentiment": sentiment,
		"quality":   quality,
	}
	if len(req.ProofURLs) > 0 {
		metadata["proof_urls"] = req.ProofURLs
	}
	if req.ReferralID != nil {
		metadata["referral_id"] = req.ReferralID.String()
	}

	result := &AwardResult{
		Points:     comp.Points,
		USDValue:   rewards.PointsToUSD(comp.Points),
		Sentiment:  sentiment,
		Quality:    quality,
		Multiplier: comp.Multiplier,
		Capped:     comp.Capped,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		event, newBalance, err := applyDelta(tx, userID, comp.Points, applyOptions{
			action:   req.Action,
			source:   req.Source,
			usdValue: result.USDValue,
			reason:   fmt.Sprintf("reward for %s", req.Action),
			metadata: metadata,
		})
		if err != nil {
			return err
		}
		result.EventID = event.ID
		result.NewBalance = newBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// RedemptionResult reports a completed gift-card redemption
type RedemptionResult struct {
	RedemptionID       uuid.UUID `json:"redemption_id"`
	NewTotalPoints     int64     `json:"new_total_points"`
	CostPoints         int64     `json:"cost_points"`
	VendorConfirmation string    `json:"vendor_confirmation"`
}

// Redeem exchanges points for a gift card. The vendor call happens before
// the deduction. If the deduction then fails the gift is never reversed; the
// redemption is marked partial_failure and a PartialFailureError is returned
// so support can reconcile.
func (s *Service) Redeem(ctx context.Context, userID uuid.UUID, cardID string) (*RedemptionResult, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}

	// Server-derived price; the client never supplies one.
	card, err := s.vendor.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	cost := usdCentsToPoints(card.PriceInCents)

	if user.TotalPoints < cost {
		return nil, ErrInsufficientPoints
	}

	redemption := models.GiftRedemption{
		UserID:         userID,
		CardID:         cardID,
		CostPoints:     cost,
		IdempotencyKey: fmt.Sprintf("%s:%s:%d", userID, cardID, time.Now().Unix()),
		Status:         models.RedemptionPending,
	}
	if err := db.Create(&redemption).Error; err != nil {
		return nil, fmt.Errorf("error creating redemption record: %w", err)
	}
	s.mirrorStatus(ctx, redemption.ID, models.RedemptionPending)

	confirmation, err := s.vendor.CreateGift(ctx, giftbit.GiftRequest{
		CardID:         cardID,
		RecipientEmail: user.Email,
		IdempotencyKey: redemption.IdempotencyKey,
	})
	if err != nil {
		// No balance mutation has happened; the request is safely retryable.
		if uerr := db.Model(&redemption).Updates(map[string]interface{}{
			"status": models.RedemptionRejected,
			"vendor_response": models.JSON{
				"error": err.Error(),
			},
		}).Error; uerr != nil {
			log.Printf("failed to record vendor rejection for redemption %s: %v", redemption.ID, uerr)
		}
		s.mirrorStatus(ctx, redemption.ID, models.RedemptionRejected)
		return nil, err
	}

	// Persist the vendor response immediately so the audit trail survives a
	// failed deduction.
	vendorResponse := models.JSON{
		"gift_id":    confirmation.GiftID,
		"status":     confirmation.Status,
		"short_link": confirmation.ShortLink,
	}
	if err := db.Model(&redemption).Updates(map[string]interface{}{
		"status":          models.RedemptionVendorIssued,
		"vendor_ref":      confirmation.GiftID,
		"vendor_response": vendorResponse,
	}).Error; err != nil {
		s.mirrorStatus(ctx, redemption.ID, models.RedemptionPartialFailure)
		return nil, &PartialFailureError{RedemptionID: redemption.ID, VendorRef: confirmation.GiftID, Cause: err}
	}
	s.mirrorStatus(ctx, redemption.ID, models.RedemptionVendorIssued)

	result := &RedemptionResult{
		RedemptionID:       redemption.ID,
		CostPoints:         cost,
		VendorConfirmation: confirmation.GiftID,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, newBalance, err := applyDelta(tx, userID, -cost, applyOptions{
			action:   models.ActionManual,
			source:   models.SourceAuto,
			usdValue: -rewards.PointsToUSD(cost),
			reason:   fmt.Sprintf("gift card redemption %s", cardID),
			metadata: models.JSON{
				"card_id":       cardID,
				"redemption_id": redemption.ID.String(),
				"vendor_ref":    confirmation.GiftID,
			},
			requireFunds: true,
		})
		if err != nil {
			return err
		}

		result.NewTotalPoints = newBalance
		now := time.Now()
		return tx.Model(&models.GiftRedemption{}).
			Where("id = ?", redemption.ID).
			Updates(map[string]interface{}{
				"status":       models.RedemptionCompleted,
				"completed_at": &now,
			}).Error
	})
	if err != nil {
		// Gift issued, deduction failed. Flag for reconciliation; never
		// reverse the gift.
		if uerr := db.Model(&models.GiftRedemption{}).
			Where("id = ?", redemption.ID).
			Update("status", models.RedemptionPartialFailure).Error; uerr != nil {
			log.Printf("failed to flag redemption %s as partial failure: %v", redemption.ID, uerr)
		}
		s.mirrorStatus(ctx, redemption.ID, models.RedemptionPartialFailure)
		return nil, &PartialFailureError{RedemptionID: redemption.ID, VendorRef: confirmation.GiftID, Cause: err}
	}
	s.mirrorStatus(ctx, redemption.ID, models.RedemptionCompleted)

	return result, nil
}

// GetBalance returns a user's current point total
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("error finding user: %w", err)
	}
	return user.TotalPoints, nil
}

// GetTransactions returns a page of a user's point transactions, newest first
func (s *Service) GetTransactions(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.PointTransaction, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.PointTransaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting transactions: %w", err)
	}

	var transactions []models.PointTransaction
	offset := (page - 1) * pageSize
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding transactions: %w", err)
	}

	return transactions, total, nil
}

// GetRewardEvents returns a page of a user's reward events, newest first
func (s *Service) GetRewardEvents(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.RewardEvent, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.RewardEvent{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting reward events: %w", err)
	}

	var events []models.RewardEvent
	offset := (page - 1) * pageSize
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("error finding reward events: %w", err)
	}

	return events, total, nil
}

type applyOptions struct {
	action       models.RewardAction
	source       models.RewardSource
	usdValue     float64
	reason       string
	metadata     models.JSON
	requireFunds bool
}

// applyDelta is the single path through which balances change: lock the user
// row, compute the new balance, write it, then append the reward event and
// the point transaction referencing it.
func applyDelta(tx *gorm.DB, userID uuid.UUID, delta int64, opts applyOptions) (*models.RewardEvent, int64, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, fmt.Errorf("error locking user row: %w", err)
	}

	if opts.requireFunds && user.TotalPoints+delta < 0 {
		return nil, 0, ErrInsufficientPoints
	}

	newBalance := user.TotalPoints + delta
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("total_points", newBalance).Error; err != nil {
		return nil, 0, fmt.Errorf("error updating balance: %w", err)
	}

	event := models.RewardEvent{
		UserID:   userID,
		Action:   opts.action,
		Source:   opts.source,
		Points:   delta,
		USDValue: opts.usdValue,
		Metadata: opts.metadata,
	}
	if err := tx.Create(&event).Error; err != nil {
		return nil, 0, fmt.Errorf("error creating reward event: %w", err)
	}

	transaction := models.PointTransaction{
		UserID:        userID,
		Delta:         delta,
		BalanceAfter:  newBalance,
		RewardEventID: &event.ID,
		Reference:     utils.GenerateReference("txn"),
		Reason:        opts.reason,
		Metadata:      opts.metadata,
	}
	if err := tx.Create(&transaction).Error; err != nil {
		return nil, 0, fmt.Errorf("error creating point transaction: %w", err)
	}

	return &event, newBalance, nil
}

// ApplyDelta exposes the locked-row mutation to sibling services (referral
// top-ups) that run their own surrounding transaction.
func ApplyDelta(tx *gorm.DB, userID uuid.UUID, delta int64, action models.RewardAction, source models.RewardSource, reason string, metadata models.JSON) (*models.RewardEvent, int64, error) {
	return applyDelta(tx, userID, delta, applyOptions{
		action:   action,
		source:   source,
		usdValue: rewards.PointsToUSD(delta),
		reason:   reason,
		metadata: metadata,
	})
}

func (s *Service) recentProofURLs(db *gorm.DB, userID uuid.UUID, requestURLs []string) ([]string, error) {
	var events []models.RewardEvent
	since := time.Now().AddDate(0, 0, -30)
	if err := db.Where("user_id = ? AND created_at > ?", userID, since).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("error loading recent reward events: %w", err)
	}

	urls := append([]string{}, requestURLs...)
	for _, event := range events {
		raw, ok := event.Metadata["proof_urls"]
		if !ok {
			continue
		}
		if list, ok := raw.([]interface{}); ok {
			for _, item := range list {
				if u, ok := item.(string); ok {
					urls = append(urls, u)
				}
			}
		}
	}
	return urls, nil
}

func (s *Service) remainingOrgBudget(db *gorm.DB) (int64, error) {
	monthStart := time.Now().UTC().Truncate(24 * time.Hour)
	monthStart = time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, time.UTC)

	var spent int64
	err := db.Model(&models.RewardEvent{}).
		Where("points > 0 AND created_at >= ?", monthStart).
		Select("COALESCE(SUM(points), 0)").
		Scan(&spent).Error
	if err != nil {
		return 0, fmt.Errorf("error computing spent budget: %w", err)
	}

	return s.cfg.OrgPointsBudget - spent, nil
}

func (s *Service) todayEventCount(db *gorm.DB, userID uuid.UUID, action models.RewardAction) (int64, error) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)

	var count int64
	err := db.Model(&models.RewardEvent{}).
		Where("user_id = ? AND action = ? AND source = ? AND created_at >= ?", userID, action, models.SourceAuto, dayStart).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting daily events: %w", err)
	}
	return count, nil
}

func (s *Service) mirrorStatus(ctx context.Context, redemptionID uuid.UUID, status models.RedemptionStatus) {
	if s.status == nil {
		return
	}
	if err := s.status.SetRedemptionStatus(ctx, redemptionID, status); err != nil {
		// Status mirroring is best-effort; the database row is the source of truth.
		log.Printf("failed to mirror redemption status for %s: %v", redemptionID, err)
	}
}

// usdCentsToPoints converts a vendor price to points at the fixed rate of
// one cent per point.
func usdCentsToPoints(cents int64) int64 {
	return cents
}
