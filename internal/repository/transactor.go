package repository

import "context"

// Transactor runs fn against repositories bound to one store transaction.
// fn's error rolls everything back. Only backends with real transactions
// implement it.
type Transactor interface {
	Transaction(ctx context.Context, fn func(accounts AccountRepository, codes RedeemCodeRepository) error) error
}
