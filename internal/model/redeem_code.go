package model

import "time"

// RedeemCode is a single-use code worth Amount credits.
// Used, UsedBy and UsedAt are written together exactly once.
type RedeemCode struct {
	Code      string     `gorm:"type:varchar(64);primaryKey" json:"code"`
	Amount    int64      `gorm:"not null;check:chk_sunrun_redeem_codes_amount,amount >= 1" json:"amount"`
	Used      bool       `gorm:"not null;default:false;index" json:"used"`
	UsedBy    *string    `gorm:"type:varchar(128)" json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedBy string     `gorm:"type:varchar(128);not null;default:''" json:"created_by"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (RedeemCode) TableName() string { return "sunrun_redeem_codes" }
