package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/endorsegen/backend/internal/queue"
	"github.com/endorsegen/backend/internal/services/referral"
	"github.com/google/uuid"
)

// ReferralClosedWonJobType is the job type for CRM close-won notifications
const ReferralClosedWonJobType queue.JobType = "referral_closed_won"

// ReferralClosedWonPayload is the payload for a close-won job
type ReferralClosedWonPayload struct {
	ReferralID         uuid.UUID `json:"referral_id"`
	TargetBountyPoints *int64    `json:"target_bounty_points,omitempty"`
}

// ReferralClosedWonJob replays CRM close-won events through the referral
// service. The top-up itself is idempotent, so redelivery is safe.
type ReferralClosedWonJob struct {
	referralSvc *referral.Service
}

// NewReferralClosedWonJob creates a new close-won job handler
func NewReferralClosedWonJob(referralSvc *referral.Service) *ReferralClosedWonJob {
	return &ReferralClosedWonJob{referralSvc: referralSvc}
}

// Register binds the handler to the queue
func (j *ReferralClosedWonJob) Register(q *queue.Queue) {
	q.RegisterHandler(ReferralClosedWonJobType, j.Process)
}

// Process handles one close-won job
func (j *ReferralClosedWonJob) Process(ctx context.Context, job queue.Job) error {
	var payload ReferralClosedWonPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal close-won payload: %w", err)
	}

	result, err := j.referralSvc.CloseWon(ctx, payload.ReferralID, payload.TargetBountyPoints)
	if err != nil {
		return fmt.Errorf("failed to process close-won for referral %s: %w", payload.ReferralID, err)
	}

	log.Printf("Processed close-won for referral %s: top-up %d points", payload.ReferralID, result.TopUp)
	return nil
}
