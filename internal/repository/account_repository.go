package repository

import (
	"context"      // context for cancellation
	"database/sql" // sql.ErrNoRows
	"errors"       // sentinel errors
	"fmt"          // error wrapping
	"sort"         // lock ordering
	"strings"      // email and public id normalization
	"time"         // created_at

	"github.com/jmoiron/sqlx" // scanning helpers and IN expansion

	"github.com/iliyamo/points-ledger/internal/database"
	"github.com/iliyamo/points-ledger/internal/model"
)

// publicIDAttempts bounds how many fresh public identifiers Create tries
// before giving up on a run of collisions.
const publicIDAttempts = 5

// ErrPublicIDExhausted is returned when every generated public id collided.
var ErrPublicIDExhausted = errors.New("could not allocate a unique public id")

// AccountRepo is the account directory: it maps public identifiers to
// internal account ids and answers existence checks for the core.
type AccountRepo struct {
	db      *sqlx.DB
	dialect database.Dialect
}

// NewAccountRepo returns a new AccountRepo bound to the provided database.
func NewAccountRepo(db *sqlx.DB) *AccountRepo {
	return &AccountRepo{db: db, dialect: database.DialectOf(db.DriverName())}
}

// DB exposes the underlying handle so callers can open transactions.
func (r *AccountRepo) DB() *sqlx.DB { return r.db }

const accountColumns = `id, public_id, email, password_hash, role, created_at`

// Create inserts an account and returns it. newPublicID is called for each
// attempt; when the generated id collides with an existing one a new id is
// drawn. A duplicate email is reported as ErrDuplicate.
func (r *AccountRepo) Create(ctx context.Context, email, passwordHash, role string, newPublicID func() (string, error)) (model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now().UTC()
	for attempt := 0; attempt < publicIDAttempts; attempt++ {
		pid, err := newPublicID()
		if err != nil {
			return model.Account{}, err
		}
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO accounts (public_id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
			pid, email, passwordHash, role, now)
		if err != nil {
			if database.IsDuplicate(err) {
				if strings.Contains(strings.ToLower(err.Error()), "email") {
					return model.Account{}, ErrDuplicate
				}
				continue // public id collision, draw again
			}
			return model.Account{}, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return model.Account{}, err
		}
		return model.Account{
			ID:           uint64(id),
			PublicID:     pid,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         role,
			CreatedAt:    now,
		}, nil
	}
	return model.Account{}, ErrPublicIDExhausted
}

// GetByID fetches an account by internal id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return getAccount(ctx, r.db, `WHERE id = ?`, id)
}

// GetByIDTx is GetByID inside an existing transaction.
func (r *AccountRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Account, error) {
	return getAccount(ctx, tx, `WHERE id = ?`, id)
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return getAccount(ctx, r.db, `WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

// ResolveByPublicID maps a public identifier to its account. Input is
// normalized to upper case. Unknown ids return ErrNotFound.
func (r *AccountRepo) ResolveByPublicID(ctx context.Context, publicID string) (model.Account, error) {
	return getAccount(ctx, r.db, `WHERE public_id = ?`, NormalizePublicID(publicID))
}

// ResolveByPublicIDTx is ResolveByPublicID inside an existing transaction.
func (r *AccountRepo) ResolveByPublicIDTx(ctx context.Context, tx *sqlx.Tx, publicID string) (model.Account, error) {
	return getAccount(ctx, tx, `WHERE public_id = ?`, NormalizePublicID(publicID))
}

// Exists reports whether an account with the given internal id exists.
func (r *AccountRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(1) FROM accounts WHERE id = ?`, id)
	return n > 0, err
}

// LockTx takes row locks on the given accounts for the rest of the
// transaction. Rows are locked in ascending id order so two transfers
// between the same pair of accounts cannot deadlock on each other.
func (r *AccountRepo) LockTx(ctx context.Context, tx *sqlx.Tx, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}
	// every caller locks in the same order, so no two transactions wait on each other
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	q, args, err := sqlx.In(`SELECT id FROM accounts WHERE id IN (?) ORDER BY id`+r.dialect.ForUpdate(), sorted)
	if err != nil {
		return err
	}
	var locked []uint64
	if err := tx.SelectContext(ctx, &locked, tx.Rebind(q), args...); err != nil {
		return err
	}
	if len(locked) != len(uniqueIDs(sorted)) {
		return ErrNotFound
	}
	return nil
}

// SetRole changes the role of the account with the given public id.
func (r *AccountRepo) SetRole(ctx context.Context, publicID, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET role = ? WHERE public_id = ?`,
		role, NormalizePublicID(publicID))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows when the value is unchanged
		if _, err := r.ResolveByPublicID(ctx, publicID); err != nil {
			return err
		}
	}
	return nil
}

// NormalizePublicID trims and upper-cases a public identifier.
func NormalizePublicID(publicID string) string {
	return strings.ToUpper(strings.TrimSpace(publicID))
}

func getAccount(ctx context.Context, q sqlx.QueryerContext, where string, arg any) (model.Account, error) {
	var a model.Account
	err := sqlx.GetContext(ctx, q, &a, `SELECT `+accountColumns+` FROM accounts `+where+` LIMIT 1`, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("load account: %w", err)
	}
	return a, nil
}

func uniqueIDs(ids []uint64) []uint64 {
	out := ids[:0:0]
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
