package handler // handler defines http handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/points-ledger/internal/middleware"
	"github.com/iliyamo/points-ledger/internal/queue"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// publishTimeout bounds one event publish.
const publishTimeout = 5 * time.Second

// getAccountID returns the authenticated account id set by JWTAuth.
func getAccountID(c echo.Context) (uint64, bool) {
	return middleware.AccountID(c)
}

// publisher publishes events after a commit without blocking the response.
// Failures are logged and dropped.
type publisher struct {
	q   queue.Publisher
	log *zap.Logger
	now func() time.Time
}

func newPublisher(q queue.Publisher, log *zap.Logger) publisher {
	if q == nil {
		q = queue.NopPublisher{}
	}
	return publisher{q: q, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (p publisher) publish(typ string, payload any) {
	ev, err := queue.NewEvent(typ, payload, p.now())
	if err != nil {
		p.log.Error("build event failed", zap.String("type", typ), zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.q.Publish(ctx, ev); err != nil {
			p.log.Warn("publish event failed", zap.String("type", typ), zap.String("event_id", ev.ID), zap.Error(err))
		}
	}()
}
