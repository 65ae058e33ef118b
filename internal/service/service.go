// Package service implements the points core: balance derivation, token
// redemption, peer-to-peer transfers and bulk token issuance. Every
// mutating operation runs in exactly one store transaction and either
// commits fully or leaves no trace.
package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/iliyamo/points-ledger/internal/database"
	"github.com/iliyamo/points-ledger/internal/model"
	"github.com/iliyamo/points-ledger/internal/repository"
	"github.com/iliyamo/points-ledger/internal/utils"
)

// DefaultBaseGrant is the starting balance every account gets without a
// ledger entry.
const DefaultBaseGrant int64 = 50

// DefaultHistoryLimit bounds the history returned with an account view.
const DefaultHistoryLimit = 100

// Accounts is the part of the account directory the core consults.
type Accounts interface {
	GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Account, error)
	ResolveByPublicIDTx(ctx context.Context, tx *sqlx.Tx, publicID string) (model.Account, error)
	LockTx(ctx context.Context, tx *sqlx.Tx, ids ...uint64) error
}

// Ledger is the append-only ledger store.
type Ledger interface {
	AppendTx(ctx context.Context, tx *sqlx.Tx, e model.LedgerEntry) (model.LedgerEntry, error)
	Sum(ctx context.Context, accountID uint64) (int64, error)
	SumTx(ctx context.Context, tx *sqlx.Tx, accountID uint64) (int64, error)
	HistoryTx(ctx context.Context, tx *sqlx.Tx, accountID uint64, limit int) ([]model.HistoryEntry, error)
}

// Tokens is the token registry store.
type Tokens interface {
	InsertIgnoreTx(ctx context.Context, tx *sqlx.Tx, code string, value int64, at time.Time) (bool, error)
	GetByCodeTx(ctx context.Context, tx *sqlx.Tx, code string) (model.Token, error)
	ClaimTx(ctx context.Context, tx *sqlx.Tx, code string, accountID uint64, at time.Time) (int64, error)
}

// Options tunes a Service. Zero values select the defaults except for
// BaseGrant, which is applied as given.
type Options struct {
	BaseGrant    int64
	MaxBatch     int
	CodeLength   int
	CodeFormat   string
	HistoryLimit int
	Logger       *zap.Logger
	Now          func() time.Time
}

// Service is the points core.
type Service struct {
	db       *sqlx.DB
	txOpts   *sql.TxOptions
	accounts Accounts
	ledger   Ledger
	tokens   Tokens

	baseGrant    int64
	maxBatch     int
	codeLength   int
	codeFormat   string
	historyLimit int
	log          *zap.Logger
	now          func() time.Time
}

// New wires a Service over the given store and repositories.
func New(db *sqlx.DB, accounts Accounts, ledger Ledger, tokens Tokens, opts Options) *Service {
	s := &Service{
		db:           db,
		txOpts:       database.DialectOf(db.DriverName()).TxOptions(),
		accounts:     accounts,
		ledger:       ledger,
		tokens:       tokens,
		baseGrant:    opts.BaseGrant,
		maxBatch:     opts.MaxBatch,
		codeLength:   opts.CodeLength,
		codeFormat:   opts.CodeFormat,
		historyLimit: opts.HistoryLimit,
		log:          opts.Logger,
		now:          opts.Now,
	}
	if s.maxBatch <= 0 {
		s.maxBatch = 10000
	}
	if s.codeLength <= 0 {
		s.codeLength = 10
	}
	if s.codeFormat == "" {
		s.codeFormat = utils.FormatNumeric
	}
	if s.historyLimit <= 0 {
		s.historyLimit = DefaultHistoryLimit
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// NewFromDB builds the repositories over db and returns a Service using them.
func NewFromDB(db *sqlx.DB, opts Options) *Service {
	return New(db, repository.NewAccountRepo(db), repository.NewLedgerRepo(db), repository.NewTokenRepo(db), opts)
}

// BaseGrant returns the configured base grant.
func (s *Service) BaseGrant() int64 { return s.baseGrant }

func (s *Service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return database.WithTx(ctx, s.db, s.txOpts, fn)
}

// BalanceOf returns baseGrant plus the committed ledger sum of the account.
// The result is recomputed on every call.
func (s *Service) BalanceOf(ctx context.Context, accountID uint64) (int64, error) {
	sum, err := s.ledger.Sum(ctx, accountID)
	if err != nil {
		return 0, storeErr("balance", err)
	}
	return addBalance(s.baseGrant, sum)
}

func (s *Service) balanceTx(ctx context.Context, tx *sqlx.Tx, accountID uint64) (int64, error) {
	sum, err := s.ledger.SumTx(ctx, tx, accountID)
	if err != nil {
		return 0, err
	}
	return addBalance(s.baseGrant, sum)
}

// addBalance returns base+sum, or ErrBalanceOverflow when it wraps.
func addBalance(base, sum int64) (int64, error) {
	if (sum > 0 && base > math.MaxInt64-sum) || (sum < 0 && base < math.MinInt64-sum) {
		return 0, ErrBalanceOverflow
	}
	return base + sum, nil
}

// validPoints reports whether a token value or grant is within policy.
func validPoints(v int64) bool { return v > 0 && v <= model.MaxTokenValue }

// Statement is an account's balance and its most recent ledger entries.
type Statement struct {
	PublicID string               `json:"public_id"`
	Balance  int64                `json:"total_balance"`
	History  []model.HistoryEntry `json:"history"`
}

// AccountStatement reads the balance and history of an account from the
// same snapshot, so the balance always equals base grant plus the entries
// when the history is complete.
func (s *Service) AccountStatement(ctx context.Context, accountID uint64) (Statement, error) {
	var st Statement
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		acc, err := s.accounts.GetByIDTx(ctx, tx, accountID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownAccount
		}
		if err != nil {
			return err
		}
		bal, err := s.balanceTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		hist, err := s.ledger.HistoryTx(ctx, tx, accountID, s.historyLimit)
		if err != nil {
			return err
		}
		st = Statement{PublicID: acc.PublicID, Balance: bal, History: hist}
		return nil
	})
	if err != nil {
		return Statement{}, storeErr("statement", err)
	}
	return st, nil
}
