package repository

import (
	"context"

	"sunrun/credithub/internal/model"
)

type RedeemCodeRepository interface {
	Create(ctx context.Context, code *model.RedeemCode) error
	GetByCode(ctx context.Context, code string) (*model.RedeemCode, error)
	List(ctx context.Context, filter CodeFilter) ([]model.RedeemCode, error)
	// ClaimCode flips an unused code to used for claimantID in one conditional
	// step and returns its amount. Unknown or used codes yield ErrCodeInvalid.
	ClaimCode(ctx context.Context, code string, claimantID string) (int64, error)
}

// CodeFilter narrows List. A nil Used returns both used and unused codes.
type CodeFilter struct {
	Used  *bool
	Limit int
}

const defaultListLimit = 100

func (f CodeFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return defaultListLimit
	}
	return f.Limit
}

func (f CodeFilter) match(code *model.RedeemCode) bool {
	return f.Used == nil || *f.Used == code.Used
}
