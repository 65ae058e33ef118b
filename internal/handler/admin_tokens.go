package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/points-ledger/internal/middleware"
	"github.com/iliyamo/points-ledger/internal/queue"
	"github.com/iliyamo/points-ledger/internal/service"
)

// AdminTokenHandler serves bulk issuance and token lookups for admins.
type AdminTokenHandler struct {
	Svc    *service.Service
	Log    *zap.Logger
	events publisher
}

func NewAdminTokenHandler(svc *service.Service, events queue.Publisher, log *zap.Logger) *AdminTokenHandler {
	return &AdminTokenHandler{Svc: svc, Log: log, events: newPublisher(events, log)}
}

type issueReq struct {
	Codes         []string         `json:"codes"`
	ValuePerCode  int64            `json:"value_per_code"`
	PerCodeValues map[string]int64 `json:"per_code_values"`
}

type generateReq struct {
	Count  int    `json:"count" validate:"required,gt=0"`
	Length int    `json:"length" validate:"omitempty,gt=0,lte=64"`
	Format string `json:"format" validate:"omitempty,oneof=numeric alphanumeric hex"`
	Value  int64  `json:"value"`
}

type issueResp struct {
	InsertedCount int      `json:"inserted_count"`
	SkippedCount  int      `json:"skipped_count"`
	Codes         []string `json:"codes"`
	Skipped       []string `json:"skipped"`
}

// IssueTokens stores an explicit batch of codes. Existing codes are
// reported as skipped.
func (h *AdminTokenHandler) IssueTokens(c echo.Context) error {
	var req issueReq
	if err := c.Bind(&req); err != nil {
		return validationError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.Issue(ctx, service.IssueRequest{
		Codes:         req.Codes,
		ValuePerCode:  req.ValuePerCode,
		PerCodeValues: req.PerCodeValues,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return h.issued(c, res)
}

// GenerateTokens mints count random codes and issues them.
func (h *AdminTokenHandler) GenerateTokens(c echo.Context) error {
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return validationError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.IssueGenerated(ctx, service.GenerateRequest{
		Count:  req.Count,
		Length: req.Length,
		Format: req.Format,
		Value:  req.Value,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return h.issued(c, res)
}

func (h *AdminTokenHandler) issued(c echo.Context, res service.IssueResult) error {
	h.events.publish(queue.TypeTokensIssued, queue.TokensIssued{
		Inserted: res.InsertedCount(),
		Skipped:  res.SkippedCount(),
		IssuedBy: middleware.PublicID(c),
	})
	return c.JSON(http.StatusCreated, issueResp{
		InsertedCount: res.InsertedCount(),
		SkippedCount:  res.SkippedCount(),
		Codes:         res.Inserted,
		Skipped:       res.Skipped,
	})
}

// GetToken returns the state of a single token.
func (h *AdminTokenHandler) GetToken(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Svc.TokenStatus(ctx, c.Param("code"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}
