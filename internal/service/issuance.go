package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/iliyamo/points-ledger/internal/metrics"
	"github.com/iliyamo/points-ledger/internal/repository"
	"github.com/iliyamo/points-ledger/internal/utils"
)

// IssueRequest describes a batch of explicit token codes. A code listed in
// PerCodeValues uses that value; every other code uses ValuePerCode.
// Codes named only in PerCodeValues are issued as well.
type IssueRequest struct {
	Codes         []string
	ValuePerCode  int64
	PerCodeValues map[string]int64
}

// GenerateRequest asks the registry to mint Count random codes. Zero
// Length and empty Format fall back to the service defaults.
type GenerateRequest struct {
	Count  int
	Length int
	Format string
	Value  int64
}

// IssueResult reports which codes were stored and which already existed.
// A skipped code is not an error: re-running a batch is safe.
type IssueResult struct {
	Inserted []string `json:"inserted"`
	Skipped  []string `json:"skipped"`
}

// InsertedCount is len(Inserted).
func (r IssueResult) InsertedCount() int { return len(r.Inserted) }

// SkippedCount is len(Skipped).
func (r IssueResult) SkippedCount() int { return len(r.Skipped) }

// Issue stores every code of the batch that does not exist yet, in a
// single transaction.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (IssueResult, error) {
	start := time.Now()
	defer metrics.ObserveSince("issue", start)

	raw := append([]string(nil), req.Codes...)
	extra := make([]string, 0, len(req.PerCodeValues))
	for c := range req.PerCodeValues {
		extra = append(extra, c)
	}
	sort.Strings(extra)
	raw = append(raw, extra...)

	if len(raw) == 0 {
		return IssueResult{}, fmt.Errorf("%w: no codes given", ErrInvalidCode)
	}
	codes, err := utils.ValidateCodes(raw)
	if err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if len(codes) > s.maxBatch {
		return IssueResult{}, fmt.Errorf("%w: batch of %d exceeds the limit of %d", ErrInvalidRequest, len(codes), s.maxBatch)
	}

	values := make(map[string]int64, len(req.PerCodeValues))
	for c, v := range req.PerCodeValues {
		values[strings.TrimSpace(c)] = v
	}
	valueOf := func(code string) int64 {
		if v, ok := values[code]; ok {
			return v
		}
		return req.ValuePerCode
	}
	for _, c := range codes {
		if !validPoints(valueOf(c)) {
			return IssueResult{}, fmt.Errorf("%w: value for %q", ErrInvalidAmount, c)
		}
	}

	res := IssueResult{Inserted: []string{}, Skipped: []string{}}
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		at := s.now()
		for _, c := range codes {
			ok, err := s.tokens.InsertIgnoreTx(ctx, tx, c, valueOf(c), at)
			if err != nil {
				return err
			}
			if ok {
				res.Inserted = append(res.Inserted, c)
			} else {
				res.Skipped = append(res.Skipped, c)
			}
		}
		return nil
	})
	if err != nil {
		err = storeErr("issue", err)
		s.log.Error("token issuance failed", zap.Int("codes", len(codes)), zap.Error(err))
		return IssueResult{}, err
	}

	metrics.TokensIssued.WithLabelValues("inserted").Add(float64(len(res.Inserted)))
	metrics.TokensIssued.WithLabelValues("skipped").Add(float64(len(res.Skipped)))
	s.log.Info("tokens issued", zap.Int("inserted", len(res.Inserted)), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

// IssueGenerated mints random codes and issues them like Issue. Generated
// codes that collide with existing tokens come back as skipped.
func (s *Service) IssueGenerated(ctx context.Context, req GenerateRequest) (IssueResult, error) {
	if req.Count <= 0 {
		return IssueResult{}, fmt.Errorf("%w: count must be positive", ErrInvalidRequest)
	}
	if req.Count > s.maxBatch {
		return IssueResult{}, fmt.Errorf("%w: count %d exceeds the limit of %d", ErrInvalidRequest, req.Count, s.maxBatch)
	}
	if !validPoints(req.Value) {
		return IssueResult{}, ErrInvalidAmount
	}
	length, format := req.Length, req.Format
	if length <= 0 {
		length = s.codeLength
	}
	if format == "" {
		format = s.codeFormat
	}
	codes, err := utils.GenerateCodes(req.Count, length, format)
	if err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return s.Issue(ctx, IssueRequest{Codes: codes, ValuePerCode: req.Value})
}

// TokenStatus is the admin view of a token.
type TokenStatus struct {
	Code       string     `json:"code"`
	Value      int64      `json:"value"`
	CreatedAt  time.Time  `json:"created_at"`
	Redeemed   bool       `json:"redeemed"`
	RedeemedBy string     `json:"redeemed_by,omitempty"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
}

// TokenStatus looks up a token and, when it is redeemed, the public id of
// the account that claimed it.
func (s *Service) TokenStatus(ctx context.Context, code string) (TokenStatus, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return TokenStatus{}, ErrInvalidCode
	}
	if err := utils.ValidateCode(code); err != nil {
		return TokenStatus{}, ErrTokenNotFound
	}
	var st TokenStatus
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		tok, err := s.tokens.GetByCodeTx(ctx, tx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		st = TokenStatus{Code: tok.Code, Value: tok.Value, CreatedAt: tok.CreatedAt, Redeemed: tok.Redeemed(), RedeemedAt: tok.RedeemedAt}
		if tok.RedeemedBy != nil {
			acc, err := s.accounts.GetByIDTx(ctx, tx, *tok.RedeemedBy)
			if err != nil {
				return err
			}
			st.RedeemedBy = acc.PublicID
		}
		return nil
	})
	if err != nil {
		return TokenStatus{}, storeErr("token status", err)
	}
	return st, nil
}
