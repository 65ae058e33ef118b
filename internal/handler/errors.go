package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/points-ledger/internal/service"
)

// kindStatus maps every failure kind of the points core to its HTTP status.
var kindStatus = map[string]int{
	service.KindInvalidAmount:        http.StatusBadRequest,
	service.KindInvalidCode:          http.StatusBadRequest,
	service.KindInvalidRequest:       http.StatusBadRequest,
	service.KindUnknownRecipient:     http.StatusNotFound,
	service.KindUnknownClaimant:      http.StatusNotFound,
	service.KindUnknownAccount:       http.StatusNotFound,
	service.KindTokenNotFound:        http.StatusNotFound,
	service.KindSelfTransferRejected: http.StatusUnprocessableEntity,
	service.KindInsufficientBalance:  http.StatusUnprocessableEntity,
	service.KindAlreadyRedeemed:      http.StatusConflict,
	service.KindTransactionConflict:  http.StatusConflict,
}

// kindMessage is the human-readable text shown for kinds whose error text
// may carry store details.
var kindMessage = map[string]string{
	service.KindUnknownRecipient:     service.ErrUnknownRecipient.Error(),
	service.KindUnknownClaimant:      service.ErrUnknownClaimant.Error(),
	service.KindUnknownAccount:       service.ErrUnknownAccount.Error(),
	service.KindTokenNotFound:        service.ErrTokenNotFound.Error(),
	service.KindSelfTransferRejected: service.ErrSelfTransferRejected.Error(),
	service.KindTransactionConflict:  service.ErrTransactionConflict.Error(),
}

// writeError renders a core error as {"error": kind, "message": text}.
// Insufficient balance adds "balance" and already-redeemed adds
// "redeemed_at". Anything that is not a core failure kind is logged and
// answered with a bare 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	kind := service.Kind(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Error("request failed",
			zap.String("route", c.Path()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": service.KindInternal, "message": "internal error"})
	}

	body := echo.Map{"error": kind}
	if msg, ok := kindMessage[kind]; ok {
		body["message"] = msg
	} else {
		body["message"] = err.Error()
	}

	var ib *service.InsufficientBalanceError
	if errors.As(err, &ib) {
		body["balance"] = ib.Balance
	}
	var ar *service.AlreadyRedeemedError
	if errors.As(err, &ar) {
		body["message"] = service.ErrAlreadyRedeemed.Error()
		body["redeemed_at"] = ar.RedeemedAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(status, body)
}

// validationError answers a failed bind or validate with 400.
func validationError(c echo.Context, err error) error {
	msg := "invalid body"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": service.KindInvalidRequest, "message": msg})
}
