package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sunrun/credithub/internal/model"
)

type pgRedeemCodeRepository struct {
	db *gorm.DB
}

func NewPGRedeemCodeRepository(db *gorm.DB) RedeemCodeRepository {
	return &pgRedeemCodeRepository{db: db}
}

func (r *pgRedeemCodeRepository) Create(ctx context.Context, code *model.RedeemCode) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(code)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCodeExists
	}
	return nil
}

func (r *pgRedeemCodeRepository) GetByCode(ctx context.Context, code string) (*model.RedeemCode, error) {
	var redeemCode model.RedeemCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).Take(&redeemCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &redeemCode, nil
}

func (r *pgRedeemCodeRepository) List(ctx context.Context, filter CodeFilter) ([]model.RedeemCode, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(filter.limit())
	if filter.Used != nil {
		query = query.Where("used = ?", *filter.Used)
	}

	var codes []model.RedeemCode
	if err := query.Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *pgRedeemCodeRepository) ClaimCode(ctx context.Context, code string, claimantID string) (int64, error) {
	var claimed model.RedeemCode
	// UPDATE ... WHERE code = ? AND used = false RETURNING amount
	res := r.db.WithContext(ctx).
		Model(&claimed).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "amount"}}}).
		Where("code = ? AND used = ?", code, false).
		UpdateColumns(map[string]interface{}{
			"used":    true,
			"used_by": claimantID,
			"used_at": time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected != 1 {
		return 0, ErrCodeInvalid
	}
	return claimed.Amount, nil
}
