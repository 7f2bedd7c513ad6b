package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for the ledger tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Account{},
		&RedeemCode{},
	); err != nil {
		return err
	}

	// Admin listing of the unused pool, newest first.
	return db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_sunrun_redeem_codes_unused_created " +
			"ON sunrun_redeem_codes (created_at DESC) WHERE used = false",
	).Error
}
