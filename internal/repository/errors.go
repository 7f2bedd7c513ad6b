package repository

import "errors"

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCodeInvalid       = errors.New("redeem code unknown or already used")
	ErrCodeNotFound      = errors.New("redeem code not found")
	ErrCodeExists        = errors.New("redeem code already exists")
)
