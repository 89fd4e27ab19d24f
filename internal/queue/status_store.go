package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/endorsegen/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// statusTTL keeps redemption statuses around long enough for polling clients
// without growing unbounded.
const statusTTL = 24 * time.Hour

// RedemptionStatusStore mirrors redemption status into Redis so status
// polling survives process restarts and works across instances. The
// gift_redemptions table remains the source of truth.
type RedemptionStatusStore struct {
	client *redis.Client
}

// NewRedemptionStatusStore creates a new status store
func NewRedemptionStatusStore(client *redis.Client) *RedemptionStatusStore {
	return &RedemptionStatusStore{client: client}
}

func redemptionStatusKey(redemptionID uuid.UUID) string {
	return fmt.Sprintf("endorsegen:redemption:%s:status", redemptionID)
}

// SetRedemptionStatus stores the status with a TTL
func (s *RedemptionStatusStore) SetRedemptionStatus(ctx context.Context, redemptionID uuid.UUID, status models.RedemptionStatus) error {
	return s.client.Set(ctx, redemptionStatusKey(redemptionID), string(status), statusTTL).Err()
}

// GetRedemptionStatus returns the stored status, or "" if expired or unknown
func (s *RedemptionStatusStore) GetRedemptionStatus(ctx context.Context, redemptionID uuid.UUID) (models.RedemptionStatus, error) {
	value, err := s.client.Get(ctx, redemptionStatusKey(redemptionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get redemption status: %w", err)
	}
	return models.RedemptionStatus(value), nil
}
