package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sunrun/credithub/internal/handler/middleware"
	"sunrun/credithub/internal/repository"
	"sunrun/credithub/internal/service"
	"sunrun/credithub/pkg/response"
)

type AdminHandler struct {
	codeService service.CodeService
	logger      *zap.Logger
}

func NewAdminHandler(codeService service.CodeService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		codeService: codeService,
		logger:      logger,
	}
}

type CreateRedeemCodesRequest struct {
	Amount int64 `json:"amount" binding:"required"`
	Count  int   `json:"count"`
}

// CreateRedeemCodes mints a batch of unused redeem codes.
func (h *AdminHandler) CreateRedeemCodes(c *gin.Context) {
	subject, ok := middleware.AdminSubject(c)
	if !ok {
		response.Unauthorized(c, "invalid admin context")
		return
	}

	var req CreateRedeemCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	codes, err := h.codeService.CreateCodes(c.Request.Context(), subject, req.Amount, req.Count)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("create redeem codes failed", zap.Int("created", len(codes)), zap.Error(err))
		response.ErrorWithData(c, http.StatusServiceUnavailable, 503, "failed to create redeem codes", gin.H{"codes": codes})
		return
	}

	h.logger.Info("admin created redeem codes", zap.String("admin", subject), zap.Int("count", len(codes)))
	response.Created(c, gin.H{"codes": codes})
}

// ListRedeemCodes returns codes newest first, optionally filtered by ?used= and ?limit=.
func (h *AdminHandler) ListRedeemCodes(c *gin.Context) {
	var filter repository.CodeFilter
	if raw := c.Query("used"); raw != "" {
		used, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(c, "used must be true or false")
			return
		}
		filter.Used = &used
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	codes, err := h.codeService.ListCodes(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list redeem codes failed", zap.Error(err))
		response.ServiceUnavailable(c, 503, "failed to list redeem codes")
		return
	}

	response.Success(c, gin.H{"codes": codes})
}

// GetRedeemCode shows one code with its claim state, used when reconciling a
// redeem that was claimed but never credited.
func (h *AdminHandler) GetRedeemCode(c *gin.Context) {
	code, err := h.codeService.GetCode(c.Request.Context(), c.Param("code"))
	switch {
	case err == nil:
		response.Success(c, code)
	case errors.Is(err, service.ErrCodeNotFound):
		response.NotFound(c, "redeem code not found")
	case errors.Is(err, service.ErrInvalidRequest):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("get redeem code failed", zap.Error(err))
		response.ServiceUnavailable(c, 503, "failed to load redeem code")
	}
}
