package model

import "time"

// Account holds the remaining run credits of one user.
type Account struct {
	UserID    string    `gorm:"type:varchar(128);primaryKey" json:"user_id"`
	Balance   int64     `gorm:"not null;check:chk_sunrun_credits_balance,balance >= 0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Account) TableName() string { return "sunrun_credits" }
