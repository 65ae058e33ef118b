package service

import (
	"context" // request-scoped cancellation for store calls
	"errors"  // matching repository sentinels
	"strings" // code trimming
	"time"    // claim timestamp and latency

	"github.com/jmoiron/sqlx" // transaction handle passed to repositories
	"go.uber.org/zap"         // structured logging of internal failures

	"github.com/iliyamo/points-ledger/internal/metrics"
	"github.com/iliyamo/points-ledger/internal/model"
	"github.com/iliyamo/points-ledger/internal/repository"
	"github.com/iliyamo/points-ledger/internal/utils"
)

// RedemptionResult is returned by a successful Redeem.
type RedemptionResult struct {
	ClaimantPublicID string    `json:"claimant"`
	Code             string    `json:"redeemed_code"`
	PointsEarned     int64     `json:"points_earned"`
	NewBalance       int64     `json:"new_total_balance"`
	RedeemedAt       time.Time `json:"redeemed_at"`
}

// Redeem claims the token for claimantID and credits its value to the
// claimant's ledger. The claim and the ledger entry commit together. Of any
// number of concurrent calls for the same code exactly one succeeds; the
// others fail with an *AlreadyRedeemedError.
func (s *Service) Redeem(ctx context.Context, code string, claimantID uint64) (res RedemptionResult, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = Kind(err)
		}
		metrics.Redemptions.WithLabelValues(outcome).Inc()
		metrics.ObserveSince("redeem", start)
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		return RedemptionResult{}, ErrInvalidCode
	}
	// a code outside the registry's charset or length can never have been
	// issued, so it is reported like any other absent token
	if err := utils.ValidateCode(code); err != nil {
		return RedemptionResult{}, ErrTokenNotFound
	}

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		claimant, err := s.accounts.GetByIDTx(ctx, tx, claimantID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownClaimant
		}
		if err != nil {
			return err
		}

		tok, err := s.tokens.GetByCodeTx(ctx, tx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		if tok.Redeemed() {
			return &AlreadyRedeemedError{Code: code, RedeemedAt: *tok.RedeemedAt}
		}

		// claim: the UPDATE only matches while redeemed_by is still NULL,
		// so exactly one concurrent redeemer sees one affected row
		at := s.now()
		n, err := s.tokens.ClaimTx(ctx, tx, code, claimantID, at)
		if err != nil {
			return err
		}
		if n != 1 {
			// another redeemer committed between our read and the claim
			return s.alreadyRedeemed(ctx, tx, code)
		}

		// credit the claimant; a failure here rolls the claim back too
		if _, err := s.ledger.AppendTx(ctx, tx, model.LedgerEntry{
			AccountID: claimantID,
			Delta:     tok.Value,
			Tag:       model.TagTokenRedeem,
			CreatedAt: at,
		}); err != nil {
			return err
		}

		bal, err := s.balanceTx(ctx, tx, claimantID)
		if err != nil {
			return err
		}
		res = RedemptionResult{
			ClaimantPublicID: claimant.PublicID,
			Code:             code,
			PointsEarned:     tok.Value,
			NewBalance:       bal,
			RedeemedAt:       at,
		}
		return nil
	})
	if err != nil {
		err = storeErr("redeem", err)
		if Kind(err) == KindInternal {
			s.log.Error("redeem failed", zap.String("code", code), zap.Uint64("claimant", claimantID), zap.Error(err))
		}
		return RedemptionResult{}, err
	}
	metrics.RedeemedPoints.Add(float64(res.PointsEarned))
	return res, nil
}

func (s *Service) alreadyRedeemed(ctx context.Context, tx *sqlx.Tx, code string) error {
	tok, err := s.tokens.GetByCodeTx(ctx, tx, code)
	if err != nil {
		return err
	}
	e := &AlreadyRedeemedError{Code: code}
	if tok.RedeemedAt != nil {
		e.RedeemedAt = *tok.RedeemedAt
	}
	return e
}
