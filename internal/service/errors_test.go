package service

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidAmount, KindInvalidAmount},
		{fmt.Errorf("wrapped: %w", ErrTokenNotFound), KindTokenNotFound},
		{&InsufficientBalanceError{Balance: 3, Requested: 9}, KindInsufficientBalance},
		{&AlreadyRedeemedError{Code: "X", RedeemedAt: time.Now()}, KindAlreadyRedeemed},
		{fmt.Errorf("redeem: %w", &AlreadyRedeemedError{Code: "X"}), KindAlreadyRedeemed},
		{errors.New("disk full"), KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Kind(tc.err), "%v", tc.err)
	}
}

func TestCarrierErrorsMatchSentinels(t *testing.T) {
	var err error = &InsufficientBalanceError{Balance: 35, Requested: 1000}
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.NotErrorIs(t, err, ErrAlreadyRedeemed)
	assert.Contains(t, err.Error(), "35")

	err = &AlreadyRedeemedError{Code: "7741552201", RedeemedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
	assert.Contains(t, err.Error(), "2024-01-02T03:04:05Z")
}

func TestStoreErrKeepsCoreKinds(t *testing.T) {
	assert.Nil(t, storeErr("op", nil))
	assert.Same(t, ErrSelfTransferRejected, storeErr("op", ErrSelfTransferRejected))

	err := storeErr("op", errors.New("boom"))
	assert.Equal(t, KindInternal, Kind(err))
	assert.Contains(t, err.Error(), "op: boom")
}

func TestAddBalanceDetectsOverflow(t *testing.T) {
	got, err := addBalance(50, -20)
	assert.NoError(t, err)
	assert.Equal(t, int64(30), got)

	_, err = addBalance(50, math.MaxInt64-49)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	_, err = addBalance(-1, math.MinInt64)
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Equal(t, KindInternal, Kind(ErrBalanceOverflow))

	got, err = addBalance(0, math.MaxInt64)
	assert.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)
}

func TestValidPoints(t *testing.T) {
	assert.True(t, validPoints(1))
	assert.True(t, validPoints(1_000_000_000))
	assert.False(t, validPoints(0))
	assert.False(t, validPoints(1_000_000_001))
	assert.False(t, validPoints(math.MaxInt64))
}
