package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sunrun/credithub/internal/service"
	"sunrun/credithub/pkg/response"
)

const (
	ActionGet     = "get"
	ActionConsume = "consume"
	ActionRefund  = "refund"
	ActionRedeem  = "redeem"
)

type CreditsHandler struct {
	ledger service.LedgerService
	logger *zap.Logger
}

func NewCreditsHandler(ledger service.LedgerService, logger *zap.Logger) *CreditsHandler {
	return &CreditsHandler{ledger: ledger, logger: logger}
}

type CreditsRequest struct {
	Action string `json:"action" binding:"required"`
	UserID string `json:"userId"`
	Code   string `json:"code,omitempty"`
	Ticket string `json:"ticket,omitempty"`
}

// Handle dispatches one ledger action.
func (h *CreditsHandler) Handle(c *gin.Context) {
	var req CreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	var (
		result *service.Balance
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case ActionGet:
		result, err = h.ledger.Get(ctx, req.UserID)
	case ActionConsume:
		result, err = h.ledger.Consume(ctx, req.UserID)
	case ActionRefund:
		result, err = h.ledger.Refund(ctx, req.UserID, req.Ticket)
	case ActionRedeem:
		result, err = h.ledger.Redeem(ctx, req.UserID, req.Code)
	default:
		response.BadRequest(c, "unknown action: "+req.Action)
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *CreditsHandler) writeError(c *gin.Context, err error) {
	var creditErr *service.CreditFailedAfterClaimError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		response.Conflict(c, response.CodeInsufficientCredits, "insufficient credits")
	case errors.Is(err, service.ErrCodeInvalid):
		response.Conflict(c, response.CodeRedeemCodeInvalid, "code invalid or already used")
	case errors.Is(err, service.ErrTicketInvalid):
		response.Conflict(c, response.CodeTicketInvalid, "refund ticket invalid or already used")
	case errors.As(err, &creditErr):
		response.ErrorWithData(c, http.StatusInternalServerError, response.CodeCreditFailedAfterClaim,
			"code was claimed but credits were not applied, contact support",
			gin.H{"code": creditErr.Code, "amount": creditErr.Amount})
	case errors.Is(err, service.ErrStoreNotConfigured):
		response.ServiceUnavailable(c, response.CodeStoreNotConfigured, "credit store not configured")
	default:
		h.logger.Error("ledger request failed", zap.Error(err))
		response.ServiceUnavailable(c, 503, "credit store unavailable")
	}
}
