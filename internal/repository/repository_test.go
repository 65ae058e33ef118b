package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/points-ledger/internal/database"
	"github.com/iliyamo/points-ledger/internal/model"
	"github.com/iliyamo/points-ledger/internal/repository"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func fixedID(id string) func() (string, error) {
	return func() (string, error) { return id, nil }
}

func createAccount(t *testing.T, r *repository.AccountRepo, pid string) model.Account {
	t.Helper()
	acc, err := r.Create(context.Background(), pid+"@example.com", "hash", model.RoleMember, fixedID(pid))
	require.NoError(t, err)
	return acc
}

func inTx(t *testing.T, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	t.Helper()
	return database.WithTx(context.Background(), db, nil, fn)
}

func TestAccountCreateAndResolve(t *testing.T) {
	db := newTestDB(t)
	r := repository.NewAccountRepo(db)
	ctx := context.Background()

	acc, err := r.Create(ctx, "  Alice@Example.com ", "hash", model.RoleMember, fixedID("ALICE234"))
	require.NoError(t, err)
	assert.NotZero(t, acc.ID)
	assert.Equal(t, "alice@example.com", acc.Email)

	got, err := r.ResolveByPublicID(ctx, " alice234 ")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.Equal(t, model.RoleMember, got.Role)

	byEmail, err := r.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byEmail.ID)

	ok, err := r.Exists(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Exists(ctx, acc.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.ResolveByPublicID(ctx, "NOBODY22")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = r.GetByID(ctx, acc.ID+100)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountCreateDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	r := repository.NewAccountRepo(db)
	createAccount(t, r, "ALICE234")

	_, err := r.Create(context.Background(), "alice234@example.com", "hash", model.RoleMember, fixedID("OTHER234"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestAccountCreateRetriesPublicIDCollision(t *testing.T) {
	db := newTestDB(t)
	r := repository.NewAccountRepo(db)
	createAccount(t, r, "TAKEN234")

	ids := []string{"TAKEN234", "TAKEN234", "FRESH234"}
	calls := 0
	acc, err := r.Create(context.Background(), "bob@example.com", "hash", model.RoleMember, func() (string, error) {
		id := ids[calls]
		calls++
		return id, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "FRESH234", acc.PublicID)
	assert.Equal(t, 3, calls)

	_, err = r.Create(context.Background(), "carol@example.com", "hash", model.RoleMember, fixedID("TAKEN234"))
	assert.ErrorIs(t, err, repository.ErrPublicIDExhausted)
}

func TestAccountSetRole(t *testing.T) {
	db := newTestDB(t)
	r := repository.NewAccountRepo(db)
	acc := createAccount(t, r, "ADMIN234")
	ctx := context.Background()

	require.NoError(t, r.SetRole(ctx, "admin234", model.RoleAdmin))
	got, err := r.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, got.Role)

	assert.ErrorIs(t, r.SetRole(ctx, "GHOST234", model.RoleAdmin), repository.ErrNotFound)
}

func TestAccountLockTx(t *testing.T) {
	db := newTestDB(t)
	r := repository.NewAccountRepo(db)
	a := createAccount(t, r, "AAAA2222")
	b := createAccount(t, r, "BBBB3333")

	require.NoError(t, inTx(t, db, func(tx *sqlx.Tx) error {
		return r.LockTx(context.Background(), tx, b.ID, a.ID)
	}))
	err := inTx(t, db, func(tx *sqlx.Tx) error {
		return r.LockTx(context.Background(), tx, a.ID, 9999)
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLedgerAppendValidation(t *testing.T) {
	db := newTestDB(t)
	accounts := repository.NewAccountRepo(db)
	l := repository.NewLedgerRepo(db)
	a := createAccount(t, accounts, "AAAA2222")
	ctx := context.Background()

	cases := []struct {
		name  string
		entry model.LedgerEntry
		want  error
	}{
		{"zero delta", model.LedgerEntry{AccountID: a.ID, Delta: 0, Tag: model.TagGrant}, repository.ErrInvalidDelta},
		{"unknown tag", model.LedgerEntry{AccountID: a.ID, Delta: 1, Tag: "BONUS"}, repository.ErrInvalidTag},
		{"transfer without counterparty", model.LedgerEntry{AccountID: a.ID, Delta: -1, Tag: model.TagTransferOut}, repository.ErrMissingCounterparty},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := inTx(t, db, func(tx *sqlx.Tx) error {
				_, err := l.AppendTx(ctx, tx, tc.entry)
				return err
			})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	sum, err := l.Sum(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestLedgerSumAndHistory(t *testing.T) {
	db := newTestDB(t)
	accounts := repository.NewAccountRepo(db)
	l := repository.NewLedgerRepo(db)
	a := createAccount(t, accounts, "AAAA2222")
	b := createAccount(t, accounts, "BBBB3333")
	ctx := context.Background()

	bID := b.ID
	require.NoError(t, inTx(t, db, func(tx *sqlx.Tx) error {
		e, err := l.AppendTx(ctx, tx, model.LedgerEntry{AccountID: a.ID, Delta: 10, Tag: model.TagTokenRedeem})
		if err != nil {
			return err
		}
		assert.NotZero(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
		if _, err := l.AppendTx(ctx, tx, model.LedgerEntry{AccountID: a.ID, Delta: -4, Tag: model.TagTransferOut, CounterpartyID: &bID}); err != nil {
			return err
		}
		inside, err := l.SumTx(ctx, tx, a.ID)
		assert.Equal(t, int64(6), inside)
		return err
	}))

	sum, err := l.Sum(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum)

	hist, err := l.History(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, model.TagTransferOut, hist[0].Tag)
	require.NotNil(t, hist[0].CounterpartyPublicID)
	assert.Equal(t, "BBBB3333", *hist[0].CounterpartyPublicID)
	assert.Equal(t, model.TagTokenRedeem, hist[1].Tag)
	assert.Nil(t, hist[1].CounterpartyPublicID)
	assert.Greater(t, hist[0].ID, hist[1].ID)

	limited, err := l.History(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	empty, err := l.History(ctx, b.ID, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	total, err := l.SystemTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
}

func TestLedgerAppendRollsBack(t *testing.T) {
	db := newTestDB(t)
	accounts := repository.NewAccountRepo(db)
	l := repository.NewLedgerRepo(db)
	a := createAccount(t, accounts, "AAAA2222")
	ctx := context.Background()

	err := inTx(t, db, func(tx *sqlx.Tx) error {
		if _, err := l.AppendTx(ctx, tx, model.LedgerEntry{AccountID: a.ID, Delta: 10, Tag: model.TagGrant}); err != nil {
			return err
		}
		_, err := l.AppendTx(ctx, tx, model.LedgerEntry{AccountID: a.ID, Delta: 0, Tag: model.TagGrant})
		return err
	})
	require.ErrorIs(t, err, repository.ErrInvalidDelta)

	n, err := l.CountByTag(ctx, model.TagGrant)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenInsertIgnoreAndClaim(t *testing.T) {
	db := newTestDB(t)
	accounts := repository.NewAccountRepo(db)
	tokens := repository.NewTokenRepo(db)
	a := createAccount(t, accounts, "AAAA2222")
	b := createAccount(t, accounts, "BBBB3333")
	ctx := context.Background()
	now := time.Now().UTC()

	var first, second bool
	require.NoError(t, inTx(t, db, func(tx *sqlx.Tx) error {
		var err error
		if first, err = tokens.InsertIgnoreTx(ctx, tx, "CODE0001", 5, now); err != nil {
			return err
		}
		second, err = tokens.InsertIgnoreTx(ctx, tx, "CODE0001", 99, now)
		return err
	}))
	assert.True(t, first)
	assert.False(t, second)

	tok, err := tokens.GetByCode(ctx, "CODE0001")
	require.NoError(t, err)
	assert.Equal(t, int64(5), tok.Value)
	assert.False(t, tok.Redeemed())

	var won, lost int64
	require.NoError(t, inTx(t, db, func(tx *sqlx.Tx) error {
		var err error
		if won, err = tokens.ClaimTx(ctx, tx, "CODE0001", a.ID, now); err != nil {
			return err
		}
		lost, err = tokens.ClaimTx(ctx, tx, "CODE0001", b.ID, now.Add(time.Second))
		return err
	}))
	assert.Equal(t, int64(1), won)
	assert.Zero(t, lost)

	tok, err = tokens.GetByCode(ctx, "CODE0001")
	require.NoError(t, err)
	require.True(t, tok.Redeemed())
	assert.Equal(t, a.ID, *tok.RedeemedBy)
	require.NotNil(t, tok.RedeemedAt)
	assert.WithinDuration(t, now, *tok.RedeemedAt, time.Second)

	n, err := tokens.CountRedeemed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = tokens.GetByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
