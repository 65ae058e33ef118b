package repository

import (
	"context"      // context for cancellation
	"database/sql" // sql.ErrNoRows
	"errors"       // errors.Is on driver results
	"time"         // issuance and claim timestamps

	"github.com/jmoiron/sqlx" // scanning helpers and transactions

	"github.com/iliyamo/points-ledger/internal/database"
	"github.com/iliyamo/points-ledger/internal/model"
)

// TokenRepo persists redeemable tokens. The only mutation it offers on an
// existing token is ClaimTx, a conditional write that succeeds for at most
// one redeemer.
type TokenRepo struct {
	db      *sqlx.DB
	dialect database.Dialect
}

func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db, dialect: database.DialectOf(db.DriverName())}
}

const tokenColumns = `code, value, created_at, redeemed_by, redeemed_at`

// InsertIgnoreTx inserts an unredeemed token. It reports false, without
// error, when a token with the same code already exists.
func (r *TokenRepo) InsertIgnoreTx(ctx context.Context, tx *sqlx.Tx, code string, value int64, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		r.dialect.InsertIgnore()+` INTO tokens (code, value, created_at) VALUES (?, ?, ?)`,
		code, value, at.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil // 0 rows means the code already existed
}

// GetByCode loads a token by code.
func (r *TokenRepo) GetByCode(ctx context.Context, code string) (model.Token, error) {
	return getToken(ctx, r.db, code)
}

// GetByCodeTx loads a token inside the caller's transaction.
func (r *TokenRepo) GetByCodeTx(ctx context.Context, tx *sqlx.Tx, code string) (model.Token, error) {
	return getToken(ctx, tx, code)
}

// ClaimTx marks the token as redeemed by accountID, but only if it is still
// unredeemed at write time. It returns the number of affected rows: 1 when
// this caller won the claim, 0 when the token was already redeemed (or does
// not exist).
func (r *TokenRepo) ClaimTx(ctx context.Context, tx *sqlx.Tx, code string, accountID uint64, at time.Time) (int64, error) {
	// conditional update: a second claimer matches zero rows
	res, err := tx.ExecContext(ctx,
		`UPDATE tokens SET redeemed_by = ?, redeemed_at = ? WHERE code = ? AND redeemed_by IS NULL`,
		accountID, at.UTC(), code)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountRedeemed returns how many tokens have been claimed.
func (r *TokenRepo) CountRedeemed(ctx context.Context) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(1) FROM tokens WHERE redeemed_by IS NOT NULL`)
	return n, err
}

func getToken(ctx context.Context, q sqlx.QueryerContext, code string) (model.Token, error) {
	var t model.Token
	err := sqlx.GetContext(ctx, q, &t, `SELECT `+tokenColumns+` FROM tokens WHERE code = ? LIMIT 1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Token{}, ErrNotFound
	}
	if err != nil {
		return model.Token{}, err
	}
	return t, nil
}
