// Package queue defines the events the points core emits after a commit and
// the RabbitMQ plumbing that carries them.
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types. Each type is published to a durable queue of the same name.
const (
	TypePointsRedeemed    = "points.redeemed"
	TypePointsTransferred = "points.transferred"
	TypeTokensIssued      = "tokens.issued"
)

// Queues lists every queue the publisher declares and the consumer reads.
var Queues = []string{TypePointsRedeemed, TypePointsTransferred, TypeTokensIssued}

// Event is the envelope written to the broker. Payload holds one of the
// typed payloads below, selected by Type.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// PointsRedeemed is published when a token redemption commits.
type PointsRedeemed struct {
	Account    string    `json:"account"`
	Code       string    `json:"code"`
	Points     int64     `json:"points"`
	NewBalance int64     `json:"new_balance"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// PointsTransferred is published when a transfer commits.
type PointsTransferred struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

// TokensIssued is published after a bulk issuance commits.
type TokensIssued struct {
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	IssuedBy string `json:"issued_by,omitempty"`
}

// NewEvent wraps payload in an envelope with a fresh id.
func NewEvent(typ string, payload any, at time.Time) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: at.UTC(),
		Payload:    body,
	}, nil
}
