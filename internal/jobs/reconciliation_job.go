package jobs

import (
	"log"
	"time"

	"github.com/endorsegen/backend/internal/models"
	"github.com/go-co-op/gocron"
	"gorm.io/gorm"
)

// ReconciliationJob periodically surfaces redemptions where the vendor
// issued a gift but the balance deduction failed. These are never reversed
// automatically; the sweep exists so they cannot be overlooked.
type ReconciliationJob struct {
	db        *gorm.DB
	scheduler *gocron.Scheduler
}

// NewReconciliationJob creates a new reconciliation sweep
func NewReconciliationJob(db *gorm.DB) *ReconciliationJob {
	return &ReconciliationJob{
		db:        db,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the sweep
func (j *ReconciliationJob) Start() error {
	if _, err := j.scheduler.Every(5).Minutes().Do(j.sweep); err != nil {
		return err
	}
	j.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler
func (j *ReconciliationJob) Stop() {
	j.scheduler.Stop()
}

func (j *ReconciliationJob) sweep() {
	var redemptions []models.GiftRedemption
	err := j.db.Where("status = ?", models.RedemptionPartialFailure).Find(&redemptions).Error
	if err != nil {
		log.Printf("Reconciliation sweep failed: %v", err)
		return
	}

	for _, r := range redemptions {
		log.Printf("RECONCILIATION NEEDED: redemption %s for user %s (card %s, %d points, vendor ref %s) issued but not deducted",
			r.ID, r.UserID, r.CardID, r.CostPoints, r.VendorRef)
	}
}
