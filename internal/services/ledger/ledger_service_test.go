package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/endorsegen/backend/internal/config"
	"github.com/endorsegen/backend/internal/models"
	"github.com/endorsegen/backend/internal/services/giftbit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return gormDB, mock
}

func testRewardsConfig() config.RewardsConfig {
	return config.RewardsConfig{
		OrgPointsBudget:            100000,
		IPActivityThreshold:        20,
		AllowYelpReviewRewards:     false,
		AllowGoogleReviewRewards:   false,
		AllowPublicVideoIncentives: true,
	}
}

// fakeVendor is a canned GiftVendor for ledger tests
type fakeVendor struct {
	card     *giftbit.Card
	cardErr  error
	gift     *giftbit.GiftConfirmation
	giftErr  error
	requests []giftbit.GiftRequest
}

func (f *fakeVendor) GetCard(ctx context.Context, cardID string) (*giftbit.Card, error) {
	return f.card, f.cardErr
}

func (f *fakeVendor) CreateGift(ctx context.Context, req giftbit.GiftRequest) (*giftbit.GiftConfirmation, error) {
	f.requests = append(f.requests, req)
	return f.gift, f.giftErr
}

func userRows(id uuid.UUID, points int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "is_admin", "total_points"}).
		AddRow(id, "user@example.com", false, points)
}

func expectAwardPreamble(mock sqlmock.Sqlmock, userID uuid.UUID, balance int64) {
	// user lookup
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows(userID, balance))
	// recent proof URLs
	mock.ExpectQuery(`SELECT \* FROM "reward_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "metadata"}))
	// remaining org budget
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(points\), 0\) FROM "reward_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
}

func TestAward_SurveyWithEmptyText(t *testing.T) {
	db, mock := setupTestDB(t)
	userID := uuid.New()
	eventID := uuid.New()
	txID := uuid.New()

	expectAwardPreamble(mock, userID, 100)
	// daily cap count
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reward_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectBegin()
	// every balance mutation reads the user row under a FOR UPDATE lock
	mock.ExpectQuery(`SELECT \* FROM "users".*FOR UPDATE`).WillReturnRows(userRows(userID, 100))
	mock.ExpectExec(`UPDATE "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "reward_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(eventID))
	mock.ExpectQuery(`INSERT INTO "point_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(txID))
	mock.ExpectCommit()

	svc := NewService(db, testRewardsConfig(), &fakeVendor{}, nil)
	result, err := svc.Award(context.Background(), userID, AwardRequest{
		Action:      models.ActionSurvey,
		TextContent: "",
	})
	require.NoError(t, err)
	require.Nil(t, result.Rejection)

	// empty text: sentiment 0, quality 0, multiplier 1.0, base points granted
	assert.Equal(t, 0.0, result.Sentiment)
	assert.Equal(t, 0.0, result.Quality)
	assert.Equal(t, 1.0, result.Multiplier)
	assert.Equal(t, int64(50), result.Points)
	assert.Equal(t, 0.5, result.USDValue)
	assert.Equal(t, int64(150), result.NewBalance)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAward_UserNotFound(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "is_admin", "total_points"}))

	svc := NewService(db, testRewardsConfig(), &fakeVendor{}, nil)
	_, err := svc.Award(context.Background(), uuid.New(), AwardRequest{Action: models.ActionSurvey})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAward_UnknownActionNoSideEffects(t *testing.T) {
	db, mock := setupTestDB(t)

	svc := NewService(db, testRewardsConfig(), &fakeVendor{}, nil)
	_, err := svc.Award(context.Background(), uuid.New(), AwardRequest{Action: "karaoke"})
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.NoError(t, mock.ExpectationsWereMet(), "no queries should run for an unknown action")
}

func TestAward_ProofRequired(t *testing.T) {
	db, mock := setupTestDB(t)

	svc := NewService(db, testRewardsConfig(), &fakeVendor{}, nil)
	_, err := svc.Award(context.Background(), uuid.New(), AwardRequest{Action: models.ActionReview, Channel: "direct"})
	assert.ErrorIs(t, err, ErrProofRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAward_GuardrailRejectionHasNoSideEffects(t *testing.T) {
	db, mock := setupTestDB(t)
	userID := uuid.New()

	expectAwardPreamble(mock, userID, 100)
	// no daily-cap query, no transaction: the rejection short-circuits

	svc := NewService(db, testRewardsConfig(), &fakeVendor{}, nil)
	result, err := svc.Award(context.Background(), userID, AwardRequest{
		Action:    models.ActionReview,
		Channel:   "yelp",
		ProofURLs: []string{"https://yelp.com/review/1"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Rejection)

	assert.False(t, result.Rejection.Allowed)
	assert.NotEmpty(t, result.Rejection.Reasons)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAward_DailyCapRejection(t *testing.T) {
	db, mock := setupTestDB(t)
	userID := uuid.New()

	expectAwardPreamble(mock, userID, 100)
	// cap already reached today
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reward_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	svc := NewService(db, testRewardsConfig(), &fakeVendor{}, nil)
	result, err := svc.Award(context.Background(), userID, AwardRequest{Action: models.ActionSurvey})
	require.NoError(t, err)
	require.NotNil(t, result.Rejection)

	assert.False(t, result.Rejection.Allowed)
	assert.Contains(t, result.Rejection.Reasons[0], "daily cap")
	assert.NoError(t, mock.ExpectationsWereMet(), "no ledger writes past the cap")
}

func TestRedeem_InsufficientPoints(t *testing.T) {
	db, mock := setupTestDB(t)
	userID := uuid.New()

	// balance 5, card costs 10 points
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows(userID, 5))

	vendor := &fakeVendor{card: &giftbit.Card{ID: "tiny", PriceInCents: 10}}
	svc := NewService(db, testRewardsConfig(), vendor, nil)

	_, err := svc.Redeem(context.Background(), userID, "tiny")
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Empty(t, vendor.requests, "vendor must not be called without sufficient points")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeem_Success(t *testing.T) {
	db, mock := setupTestDB(t)
	userID := uuid.New()
	redemptionID := uuid.New()
	eventID := uuid.New()
	txID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows(userID, 5000))

	// redemption row created pending
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "gift_redemptions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(redemptionID))
	mock.ExpectCommit()

	// vendor response persisted before the deduction
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gift_redemptions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// deduction transaction, user row locked
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users".*FOR UPDATE`).WillReturnRows(userRows(userID, 5000))
	mock.ExpectExec(`UPDATE "users"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "reward_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(eventID))
	mock.ExpectQuery(`INSERT INTO "point_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(txID))
	mock.ExpectExec(`UPDATE "gift_redemptions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	vendor := &fakeVendor{
		card: &giftbit.Card{ID: "amazon-25", PriceInCents: 2500},
		gift: &giftbit.GiftConfirmation{GiftID: "gift-9", Status: "delivered"},
	}
	svc := NewService(db, testRewardsConfig(), vendor, nil)

	result, err := svc.Redeem(context.Background(), userID, "amazon-25")
	require.NoError(t, err)

	assert.Equal(t, int64(2500), result.CostPoints)
	assert.Equal(t, int64(2500), result.NewTotalPoints)
	assert.Equal(t, "gift-9", result.VendorConfirmation)
	require.Len(t, vendor.requests, 1)
	assert.NotEmpty(t, vendor.requests[0].IdempotencyKey)
}

func TestRedeem_PartialFailureKeepsVendorResponse(t *testing.T) {
	db, mock := setupTestDB(t)
	userID := uuid.New()
	redemptionID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows(userID, 5000))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "gift_redemptions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(redemptionID))
	mock.ExpectCommit()

	// vendor response persisted while the gift is live
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gift_redemptions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// deduction transaction fails after the gift was issued
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users".*FOR UPDATE`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	// the row is flagged for reconciliation, never reversed
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gift_redemptions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	vendor := &fakeVendor{
		card: &giftbit.Card{ID: "amazon-25", PriceInCents: 2500},
		gift: &giftbit.GiftConfirmation{GiftID: "gift-9", Status: "delivered"},
	}
	svc := NewService(db, testRewardsConfig(), vendor, nil)

	_, err := svc.Redeem(context.Background(), userID, "amazon-25")
	require.Error(t, err)

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "gift-9", partial.VendorRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeem_VendorRejection(t *testing.T) {
	db, mock := setupTestDB(t)
	userID := uuid.New()
	redemptionID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows(userID, 5000))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "gift_redemptions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(redemptionID))
	mock.ExpectCommit()

	// rejection recorded for audit
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gift_redemptions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	vendor := &fakeVendor{
		card:    &giftbit.Card{ID: "amazon-25", PriceInCents: 2500},
		giftErr: &giftbit.VendorError{StatusCode: 402, Message: "funds exhausted"},
	}
	svc := NewService(db, testRewardsConfig(), vendor, nil)

	_, err := svc.Redeem(context.Background(), userID, "amazon-25")
	require.Error(t, err)

	vendorErr, ok := err.(*giftbit.VendorError)
	require.True(t, ok)
	assert.Equal(t, 402, vendorErr.StatusCode)
}

func TestRedeem_VendorRejectionAuditWriteFailureStillReturnsVendorError(t *testing.T) {
	db, mock := setupTestDB(t)
	userID := uuid.New()
	redemptionID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(userRows(userID, 5000))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "gift_redemptions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(redemptionID))
	mock.ExpectCommit()

	// the audit write fails; it is logged, never masks the vendor error
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "gift_redemptions"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	vendor := &fakeVendor{
		card:    &giftbit.Card{ID: "amazon-25", PriceInCents: 2500},
		giftErr: &giftbit.VendorError{StatusCode: 402, Message: "funds exhausted"},
	}
	svc := NewService(db, testRewardsConfig(), vendor, nil)

	_, err := svc.Redeem(context.Background(), userID, "amazon-25")
	require.Error(t, err)

	var vendorErr *giftbit.VendorError
	require.ErrorAs(t, err, &vendorErr)
	assert.Equal(t, 402, vendorErr.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsdCentsToPoints(t *testing.T) {
	// one cent per point keeps 1000 points = $10
	assert.Equal(t, int64(1000), usdCentsToPoints(1000))
	assert.Equal(t, int64(2500), usdCentsToPoints(2500))
}
