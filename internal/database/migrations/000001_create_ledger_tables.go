package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createLedgerTablesMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_ledger_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					email VARCHAR(255) NOT NULL UNIQUE,
					display_name VARCHAR(255),
					referral_code VARCHAR(50) UNIQUE,
					is_admin BOOLEAN NOT NULL DEFAULT FALSE,
					total_points BIGINT NOT NULL DEFAULT 0 CHECK (total_points >= 0),
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				)
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS reward_events (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES users(id),
					action VARCHAR(30) NOT NULL,
					source VARCHAR(20) NOT NULL,
					points BIGINT NOT NULL,
					usd_value DECIMAL(20,2),
					metadata JSONB,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				)
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS point_transactions (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES users(id),
					delta BIGINT NOT NULL,
					balance_after BIGINT NOT NULL,
					reward_event_id UUID REFERENCES reward_events(id),
					reference VARCHAR(64) UNIQUE,
					reason TEXT,
					metadata JSONB,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				)
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_reward_events_user_action ON reward_events (user_id, action, created_at);
				CREATE INDEX IF NOT EXISTS idx_point_transactions_user ON point_transactions (user_id, created_at)
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS point_transactions;
				DROP TABLE IF EXISTS reward_events;
				DROP TABLE IF EXISTS users
			`).Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createLedgerTablesMigration())
}
