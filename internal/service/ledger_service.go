package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sunrun/credithub/internal/config"
	"sunrun/credithub/internal/metrics"
	"sunrun/credithub/internal/repository"
)

const (
	refundTicketPrefix = "refund_ticket:"
	// MaxUserIDLength matches the width of sunrun_credits.user_id.
	MaxUserIDLength = 128
)

// Balance is the outcome of a successful ledger operation.
type Balance struct {
	UserID        string `json:"userId"`
	Balance       int64  `json:"balance"`
	GrantedAmount int64  `json:"grantedAmount,omitempty"`
	Ticket        string `json:"ticket,omitempty"`
}

// LedgerService is the only entry point for reading and changing run credits.
type LedgerService interface {
	Get(ctx context.Context, userID string) (*Balance, error)
	// Consume spends one credit. ErrInsufficientFunds means the action is not
	// permitted and must not be retried as a transient failure.
	Consume(ctx context.Context, userID string) (*Balance, error)
	// Refund returns one credit. ticket may be empty unless tickets are required.
	Refund(ctx context.Context, userID string, ticket string) (*Balance, error)
	Redeem(ctx context.Context, userID string, code string) (*Balance, error)
}

type ledgerService struct {
	cfg      config.LedgerConfig
	accounts repository.AccountRepository
	codes    repository.RedeemCodeRepository
	txr      repository.Transactor
	tickets  repository.StateStore
	logger   *zap.Logger
}

// NewLedgerService wires the ledger policy to its stores. txr may be nil for
// backends without transactions; tickets may be nil when refund tickets are
// disabled.
func NewLedgerService(
	cfg config.LedgerConfig,
	accounts repository.AccountRepository,
	codes repository.RedeemCodeRepository,
	txr repository.Transactor,
	tickets repository.StateStore,
	logger *zap.Logger,
) LedgerService {
	return &ledgerService{
		cfg:      cfg,
		accounts: accounts,
		codes:    codes,
		txr:      txr,
		tickets:  tickets,
		logger:   logger,
	}
}

func (s *ledgerService) Get(ctx context.Context, userID string) (_ *Balance, err error) {
	defer s.observe("get", time.Now(), &err)

	if userID, err = requireUserID(userID); err != nil {
		return nil, err
	}
	balance, err := s.accounts.GetBalance(ctx, userID)
	if err != nil {
		return nil, storeError("get balance", err)
	}
	return &Balance{UserID: userID, Balance: balance}, nil
}

func (s *ledgerService) Consume(ctx context.Context, userID string) (_ *Balance, err error) {
	defer s.observe("consume", time.Now(), &err)

	if userID, err = requireUserID(userID); err != nil {
		return nil, err
	}
	if _, err := s.accounts.EnsureAccount(ctx, userID); err != nil {
		return nil, storeError("ensure account", err)
	}

	balance, err := s.accounts.AdjustBalance(ctx, userID, -1, true)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			s.logger.Debug("consume rejected", zap.String("user_id", userID))
			return nil, ErrInsufficientFunds
		}
		return nil, storeError("consume", err)
	}
	result := &Balance{UserID: userID, Balance: balance}

	if s.ticketsEnabled() {
		ticket := uuid.NewString()
		if err := s.tickets.Set(ctx, ticketKey(userID, ticket), []byte(userID), s.cfg.RefundTickets.TTL); err != nil {
			// The caller sees a failure, so the credit must not stay spent.
			s.restoreCredit(ctx, userID, "refund ticket not stored")
			return nil, storeError("issue refund ticket", err)
		}
		result.Ticket = ticket
	}
	return result, nil
}

func (s *ledgerService) Refund(ctx context.Context, userID string, ticket string) (_ *Balance, err error) {
	defer s.observe("refund", time.Now(), &err)

	if userID, err = requireUserID(userID); err != nil {
		return nil, err
	}
	ticket = strings.TrimSpace(ticket)
	if ticket == "" && s.ticketsEnabled() && s.cfg.RefundTickets.Required {
		return nil, invalidRequest("refund ticket is required")
	}

	var owner []byte
	if ticket != "" {
		if !s.ticketsEnabled() {
			return nil, ErrTicketInvalid
		}
		// Tickets are issued as uuids; the canonical form keeps the
		// user:ticket key unambiguous.
		parsed, perr := uuid.Parse(ticket)
		if perr != nil {
			return nil, ErrTicketInvalid
		}
		ticket = parsed.String()
		owner, err = s.tickets.Take(ctx, ticketKey(userID, ticket))
		if err != nil {
			return nil, storeError("take refund ticket", err)
		}
		if owner == nil {
			s.logger.Debug("refund ticket rejected", zap.String("user_id", userID))
			return nil, ErrTicketInvalid
		}
	}

	balance, err := s.credit(ctx, s.accounts, userID, 1)
	if err != nil {
		if owner != nil {
			s.restoreTicket(ctx, userID, ticket, owner)
		}
		return nil, storeError("refund", err)
	}
	return &Balance{UserID: userID, Balance: balance}, nil
}

func (s *ledgerService) Redeem(ctx context.Context, userID string, code string) (_ *Balance, err error) {
	defer s.observe("redeem", time.Now(), &err)

	if userID, err = requireUserID(userID); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalidRequest("code is required")
	}

	if s.txr != nil {
		return s.redeemInTx(ctx, userID, code)
	}

	amount, err := s.codes.ClaimCode(ctx, code, userID)
	if err != nil {
		return nil, redeemError(err)
	}

	balance, err := s.credit(ctx, s.accounts, userID, amount)
	if err != nil {
		metrics.RedeemReconcileTotal.Inc()
		s.logger.Error("redeem code claimed but credit failed",
			zap.String("user_id", userID),
			zap.String("code", code),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
		return nil, &CreditFailedAfterClaimError{UserID: userID, Code: code, Amount: amount, Err: err}
	}

	s.logger.Info("redeem code applied",
		zap.String("user_id", userID),
		zap.String("code", code),
		zap.Int64("amount", amount),
	)
	return &Balance{UserID: userID, Balance: balance, GrantedAmount: amount}, nil
}

// redeemInTx claims and credits inside one store transaction, so a failed
// credit also releases the claim.
func (s *ledgerService) redeemInTx(ctx context.Context, userID, code string) (*Balance, error) {
	var amount, balance int64
	err := s.txr.Transaction(ctx, func(accounts repository.AccountRepository, codes repository.RedeemCodeRepository) error {
		var err error
		if amount, err = codes.ClaimCode(ctx, code, userID); err != nil {
			return err
		}
		balance, err = s.credit(ctx, accounts, userID, amount)
		return err
	})
	if err != nil {
		return nil, redeemError(err)
	}

	s.logger.Info("redeem code applied",
		zap.String("user_id", userID),
		zap.String("code", code),
		zap.Int64("amount", amount),
	)
	return &Balance{UserID: userID, Balance: balance, GrantedAmount: amount}, nil
}

// credit materializes the account and adds amount without a floor.
func (s *ledgerService) credit(ctx context.Context, accounts repository.AccountRepository, userID string, amount int64) (int64, error) {
	if _, err := accounts.EnsureAccount(ctx, userID); err != nil {
		return 0, err
	}
	return accounts.AdjustBalance(ctx, userID, amount, false)
}

func (s *ledgerService) restoreCredit(ctx context.Context, userID, reason string) {
	if _, err := s.accounts.AdjustBalance(context.WithoutCancel(ctx), userID, 1, false); err != nil {
		s.logger.Error("failed to restore consumed credit",
			zap.String("user_id", userID),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func (s *ledgerService) restoreTicket(ctx context.Context, userID, ticket string, owner []byte) {
	err := s.tickets.Set(context.WithoutCancel(ctx), ticketKey(userID, ticket), owner, s.cfg.RefundTickets.TTL)
	if err != nil {
		s.logger.Warn("failed to restore refund ticket", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *ledgerService) ticketsEnabled() bool {
	return s.cfg.RefundTickets.Enabled && s.tickets != nil
}

func (s *ledgerService) observe(op string, start time.Time, errp *error) {
	metrics.ObserveLedgerOperation(op, resultLabel(*errp), time.Since(start))
}

func ticketKey(userID, ticket string) string {
	return refundTicketPrefix + userID + ":" + ticket
}

func requireUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", invalidRequest("userId is required")
	}
	if len(userID) > MaxUserIDLength {
		return "", invalidRequest(fmt.Sprintf("userId must be at most %d bytes", MaxUserIDLength))
	}
	return userID, nil
}

func redeemError(err error) error {
	if errors.Is(err, repository.ErrCodeInvalid) {
		return ErrCodeInvalid
	}
	return storeError("redeem", err)
}

func resultLabel(err error) string {
	var creditErr *CreditFailedAfterClaimError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &creditErr):
		return "credit_failed_after_claim"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrCodeInvalid):
		return "code_invalid"
	case errors.Is(err, ErrTicketInvalid):
		return "ticket_invalid"
	default:
		return "store_error"
	}
}

var _ LedgerService = (*ledgerService)(nil)
