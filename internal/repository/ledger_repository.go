package repository

import (
	"context" // context for cancellation
	"time"    // default entry timestamp

	"github.com/jmoiron/sqlx" // scanning helpers and transactions

	"github.com/iliyamo/points-ledger/internal/model"
)

// LedgerRepo is the append-only points ledger. It exposes inserts and
// reads only.
type LedgerRepo struct {
	db *sqlx.DB
}

// NewLedgerRepo returns a new LedgerRepo bound to the given database.
func NewLedgerRepo(db *sqlx.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// AppendTx inserts one entry inside the caller's transaction and returns
// it with its assigned id. Zero deltas are rejected with ErrInvalidDelta
// and transfer tags without a counterparty with ErrMissingCounterparty.
// CreatedAt defaults to the current UTC time when unset.
func (r *LedgerRepo) AppendTx(ctx context.Context, tx *sqlx.Tx, e model.LedgerEntry) (model.LedgerEntry, error) {
	if e.Delta == 0 {
		return model.LedgerEntry{}, ErrInvalidDelta
	}
	if !e.Tag.Valid() {
		return model.LedgerEntry{}, ErrInvalidTag
	}
	if e.Tag.IsTransfer() && e.CounterpartyID == nil {
		return model.LedgerEntry{}, ErrMissingCounterparty
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (account_id, delta, tag, counterparty_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.AccountID, e.Delta, string(e.Tag), e.CounterpartyID, e.CreatedAt)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.LedgerEntry{}, err
	}
	e.ID = uint64(id)
	return e, nil
}

// Sum returns the committed sum of deltas for an account (0 when the
// account has no entries).
func (r *LedgerRepo) Sum(ctx context.Context, accountID uint64) (int64, error) {
	return sumLedger(ctx, r.db, accountID)
}

// SumTx is Sum inside the caller's transaction, so it also sees the
// transaction's own uncommitted appends.
func (r *LedgerRepo) SumTx(ctx context.Context, tx *sqlx.Tx, accountID uint64) (int64, error) {
	return sumLedger(ctx, tx, accountID)
}

// History returns up to limit entries of an account, most recent first.
// Transfer counterparties are resolved to their public ids.
func (r *LedgerRepo) History(ctx context.Context, accountID uint64, limit int) ([]model.HistoryEntry, error) {
	return historyOf(ctx, r.db, accountID, limit)
}

// HistoryTx is History inside the caller's transaction.
func (r *LedgerRepo) HistoryTx(ctx context.Context, tx *sqlx.Tx, accountID uint64, limit int) ([]model.HistoryEntry, error) {
	return historyOf(ctx, tx, accountID, limit)
}

// SystemTotal returns the sum of every delta in the ledger. Transfers
// never change it; only redemptions and grants do.
func (r *LedgerRepo) SystemTotal(ctx context.Context) (int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, r.db, &total, `SELECT COALESCE(SUM(delta), 0) FROM ledger_entries`)
	return total, err
}

// CountByTag returns how many entries carry the given tag.
func (r *LedgerRepo) CountByTag(ctx context.Context, tag model.Tag) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(1) FROM ledger_entries WHERE tag = ?`, string(tag))
	return n, err
}

func sumLedger(ctx context.Context, q sqlx.QueryerContext, accountID uint64) (int64, error) {
	var sum int64
	// COALESCE turns "no entries" into 0 instead of NULL
	err := sqlx.GetContext(ctx, q, &sum,
		`SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE account_id = ?`, accountID)
	return sum, err
}

func historyOf(ctx context.Context, q sqlx.QueryerContext, accountID uint64, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT le.id, le.delta, le.tag, le.counterparty_id, cp.public_id AS counterparty_public_id, le.created_at
	               FROM ledger_entries le
	               LEFT JOIN accounts cp ON cp.id = le.counterparty_id
	               WHERE le.account_id = ?
	               ORDER BY le.id DESC
	               LIMIT ?`
	entries := []model.HistoryEntry{}
	if err := sqlx.SelectContext(ctx, q, &entries, query, accountID, limit); err != nil {
		return nil, err
	}
	return entries, nil
}
