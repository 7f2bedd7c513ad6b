package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sunrun/credithub/internal/model"
)

type pgAccountRepository struct {
	db           *gorm.DB
	initialBonus int64
}

func NewPGAccountRepository(db *gorm.DB, initialBonus int64) AccountRepository {
	return &pgAccountRepository{db: db, initialBonus: initialBonus}
}

func (r *pgAccountRepository) EnsureAccount(ctx context.Context, userID string) (int64, error) {
	account := model.Account{UserID: userID, Balance: r.initialBonus}
	// INSERT ... ON CONFLICT (user_id) DO NOTHING keeps the first writer's row.
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&account).Error; err != nil {
		return 0, err
	}
	return r.balance(ctx, userID)
}

func (r *pgAccountRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := r.balance(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return r.EnsureAccount(ctx, userID)
	}
	return balance, err
}

func (r *pgAccountRepository) AdjustBalance(ctx context.Context, userID string, delta int64, floor bool) (int64, error) {
	var account model.Account
	query := r.db.WithContext(ctx).
		Model(&account).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "balance"}}}).
		Where("user_id = ?", userID)
	if floor {
		query = query.Where("balance + ? >= 0", delta)
	}

	res := query.UpdateColumns(map[string]interface{}{
		"balance":    gorm.Expr("balance + ?", delta),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.balance(ctx, userID); err != nil {
			return 0, err
		}
		return 0, ErrInsufficientFunds
	}
	return account.Balance, nil
}

func (r *pgAccountRepository) balance(ctx context.Context, userID string) (int64, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Select("balance").Where("user_id = ?", userID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}
