package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createReferralRedemptionTablesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_referral_redemption_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS referrals (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					referrer_user_id UUID NOT NULL REFERENCES users(id),
					referred_email VARCHAR(255),
					lead_status VARCHAR(20) NOT NULL DEFAULT 'pending',
					bounty_points_target BIGINT NOT NULL DEFAULT 0,
					bounty_points_awarded BIGINT NOT NULL DEFAULT 0,
					closed_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE,
					CHECK (bounty_points_awarded <= bounty_points_target)
				)
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS gift_redemptions (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES users(id),
					card_id VARCHAR(100) NOT NULL,
					cost_points BIGINT NOT NULL,
					idempotency_key VARCHAR(150) NOT NULL UNIQUE,
					status VARCHAR(30) NOT NULL DEFAULT 'pending',
					vendor_ref VARCHAR(150),
					vendor_response JSONB,
					completed_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				)
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS gift_redemptions;
				DROP TABLE IF EXISTS referrals
			`).Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createReferralRedemptionTablesMigration())
}
