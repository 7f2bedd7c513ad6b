package repository

import (
	"context"

	"gorm.io/gorm"
)

type pgTransactor struct {
	db           *gorm.DB
	initialBonus int64
}

func NewPGTransactor(db *gorm.DB, initialBonus int64) Transactor {
	return &pgTransactor{db: db, initialBonus: initialBonus}
}

func (t *pgTransactor) Transaction(ctx context.Context, fn func(accounts AccountRepository, codes RedeemCodeRepository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewPGAccountRepository(tx, t.initialBonus), NewPGRedeemCodeRepository(tx))
	})
}
