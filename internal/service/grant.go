package service

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/points-ledger/internal/model"
	"github.com/iliyamo/points-ledger/internal/repository"
)

// Grant credits points to an account outside of token redemption (operator
// goodwill, migrations). It returns the account's new balance. Points
// above model.MaxTokenValue are rejected like non-positive ones.
func (s *Service) Grant(ctx context.Context, publicID string, points int64) (int64, error) {
	if !validPoints(points) {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		acc, err := s.accounts.ResolveByPublicIDTx(ctx, tx, publicID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownAccount
		}
		if err != nil {
			return err
		}
		if _, err := s.ledger.AppendTx(ctx, tx, model.LedgerEntry{
			AccountID: acc.ID,
			Delta:     points,
			Tag:       model.TagGrant,
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}
		balance, err = s.balanceTx(ctx, tx, acc.ID)
		return err
	})
	if err != nil {
		return 0, storeErr("grant", err)
	}
	return balance, nil
}
