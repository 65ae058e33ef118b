package service

import (
	"context" // request-scoped cancellation for store calls
	"errors"  // matching repository sentinels
	"time"    // entry timestamps and latency

	"github.com/jmoiron/sqlx" // transaction handle passed to repositories
	"go.uber.org/zap"         // structured logging of internal failures

	"github.com/iliyamo/points-ledger/internal/metrics"    // transfer counters
	"github.com/iliyamo/points-ledger/internal/model"      // ledger tags
	"github.com/iliyamo/points-ledger/internal/repository" // ErrNotFound
)

// TransferResult is returned by a successful Transfer.
type TransferResult struct {
	SenderPublicID        string    `json:"sender"`
	RecipientPublicID     string    `json:"recipient"`
	Amount                int64     `json:"amount"`
	SenderBalanceAfter    int64     `json:"sender_balance_after"`
	RecipientBalanceAfter int64     `json:"recipient_balance_after"`
	At                    time.Time `json:"timestamp"`
}

// Transfer moves points from the sender to the account with the given
// public id. Checks run in this order: amount, recipient, self transfer,
// balance. The debit and the credit are appended in one transaction while
// both account rows are locked, so concurrent transfers from the same
// sender are serialized and cannot overdraw it.
func (s *Service) Transfer(ctx context.Context, fromID uint64, toPublicID string, points int64) (res TransferResult, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = Kind(err)
		}
		metrics.Transfers.WithLabelValues(outcome).Inc()
		metrics.ObserveSince("transfer", start)
	}()

	if points <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		recipient, err := s.accounts.ResolveByPublicIDTx(ctx, tx, toPublicID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownRecipient
		}
		if err != nil {
			return err
		}
		sender, err := s.accounts.GetByIDTx(ctx, tx, fromID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownAccount
		}
		if err != nil {
			return err
		}
		if sender.ID == recipient.ID {
			return ErrSelfTransferRejected
		}

		// lock both rows (ascending id) so a concurrent transfer from the
		// same sender waits here instead of reading a stale balance
		if err := s.accounts.LockTx(ctx, tx, sender.ID, recipient.ID); err != nil {
			return err
		}

		// balance is read under the lock, inside this transaction
		balance, err := s.balanceTx(ctx, tx, sender.ID)
		if err != nil {
			return err
		}
		if balance < points {
			return &InsufficientBalanceError{Balance: balance, Requested: points}
		}

		// debit and credit share one timestamp and one commit
		at := s.now()
		recipientID, senderID := recipient.ID, sender.ID
		if _, err := s.ledger.AppendTx(ctx, tx, model.LedgerEntry{
			AccountID:      sender.ID,
			Delta:          -points,
			Tag:            model.TagTransferOut,
			CounterpartyID: &recipientID,
			CreatedAt:      at,
		}); err != nil {
			return err
		}
		if _, err := s.ledger.AppendTx(ctx, tx, model.LedgerEntry{
			AccountID:      recipient.ID,
			Delta:          points,
			Tag:            model.TagTransferIn,
			CounterpartyID: &senderID,
			CreatedAt:      at,
		}); err != nil {
			return err
		}

		senderAfter, err := s.balanceTx(ctx, tx, sender.ID)
		if err != nil {
			return err
		}
		// the balance may never be negative at commit
		if senderAfter < 0 {
			return &InsufficientBalanceError{Balance: balance, Requested: points}
		}
		recipientAfter, err := s.balanceTx(ctx, tx, recipient.ID)
		if err != nil {
			return err
		}

		res = TransferResult{
			SenderPublicID:        sender.PublicID,
			RecipientPublicID:     recipient.PublicID,
			Amount:                points,
			SenderBalanceAfter:    senderAfter,
			RecipientBalanceAfter: recipientAfter,
			At:                    at,
		}
		return nil
	})
	if err != nil {
		err = storeErr("transfer", err)
		if Kind(err) == KindInternal {
			s.log.Error("transfer failed", zap.Uint64("sender", fromID), zap.String("recipient", toPublicID), zap.Error(err))
		}
		return TransferResult{}, err
	}
	metrics.TransferredPoints.Add(float64(points))
	return res, nil
}
