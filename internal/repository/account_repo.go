package repository

import "context"

// AccountRepository owns the per-user balance rows.
//
// Every mutation is a single atomic store operation. Implementations never
// read a balance and write it back.
type AccountRepository interface {
	// EnsureAccount creates the account with the initial bonus when absent and
	// returns the current balance. Concurrent calls never create duplicates or
	// overwrite the first writer's balance.
	EnsureAccount(ctx context.Context, userID string) (int64, error)
	// GetBalance returns the balance, materializing a missing account.
	GetBalance(ctx context.Context, userID string) (int64, error)
	// AdjustBalance applies delta atomically. With floor set, the update is
	// rejected with ErrInsufficientFunds when the result would be negative.
	AdjustBalance(ctx context.Context, userID string, delta int64, floor bool) (int64, error)
}
