package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/points-ledger/internal/queue"
	"github.com/iliyamo/points-ledger/internal/service"
)

// PointsHandler serves the member-facing points operations.
type PointsHandler struct {
	Svc    *service.Service
	Log    *zap.Logger
	events publisher
}

func NewPointsHandler(svc *service.Service, events queue.Publisher, log *zap.Logger) *PointsHandler {
	return &PointsHandler{Svc: svc, Log: log, events: newPublisher(events, log)}
}

type redeemReq struct {
	Code string `json:"code" validate:"required"`
}

// Amount is decoded as a json.Number so fractional or exponent values can
// be rejected as invalid_amount instead of being truncated.
type transferReq struct {
	Amount    json.Number `json:"amount"`
	Recipient string      `json:"recipient" validate:"required,max=32"`
}

// Me returns the caller's public id, balance and most recent history.
func (h *PointsHandler) Me(c echo.Context) error {
	id, ok := getAccountID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Svc.AccountStatement(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Redeem claims a token for the caller.
func (h *PointsHandler) Redeem(c echo.Context) error {
	id, ok := getAccountID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req redeemReq
	if err := c.Bind(&req); err != nil {
		return validationError(c, err)
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return writeError(c, h.Log, service.ErrInvalidCode)
	}
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.Redeem(ctx, req.Code, id)
	if err != nil {
		h.Log.Info("redeem rejected", zap.Uint64("account", id), zap.String("code", req.Code), zap.String("kind", service.Kind(err)))
		return writeError(c, h.Log, err)
	}
	h.Log.Info("token redeemed", zap.String("account", res.ClaimantPublicID), zap.String("code", res.Code), zap.Int64("points", res.PointsEarned))
	h.events.publish(queue.TypePointsRedeemed, queue.PointsRedeemed{
		Account:    res.ClaimantPublicID,
		Code:       res.Code,
		Points:     res.PointsEarned,
		NewBalance: res.NewBalance,
		RedeemedAt: res.RedeemedAt,
	})
	return c.JSON(http.StatusOK, res)
}

// Transfer sends points from the caller to another member.
func (h *PointsHandler) Transfer(c echo.Context) error {
	id, ok := getAccountID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req transferReq
	if err := c.Bind(&req); err != nil {
		return validationError(c, err)
	}
	amount, err := strconv.ParseInt(req.Amount.String(), 10, 64)
	if err != nil || amount <= 0 {
		return writeError(c, h.Log, service.ErrInvalidAmount)
	}
	req.Recipient = strings.TrimSpace(req.Recipient)
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.Transfer(ctx, id, req.Recipient, amount)
	if err != nil {
		h.Log.Info("transfer rejected", zap.Uint64("account", id), zap.String("recipient", req.Recipient), zap.String("kind", service.Kind(err)))
		return writeError(c, h.Log, err)
	}
	h.Log.Info("points transferred", zap.String("sender", res.SenderPublicID), zap.String("recipient", res.RecipientPublicID), zap.Int64("amount", res.Amount))
	h.events.publish(queue.TypePointsTransferred, queue.PointsTransferred{
		Sender:    res.SenderPublicID,
		Recipient: res.RecipientPublicID,
		Amount:    res.Amount,
	})
	return c.JSON(http.StatusOK, res)
}
