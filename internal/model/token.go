package model

import "time"

// MaxTokenValue is the largest number of points a single token or grant
// may carry. The tokens table enforces the same bound with a CHECK.
const MaxTokenValue int64 = 1_000_000_000

// Token is a single-use redeemable code worth a fixed number of points.
// It moves exactly once from unredeemed to redeemed; RedeemedBy and
// RedeemedAt are either both nil or both set.
//
// Fields:
//  Code       – unique redeemable key.
//  Value      – positive number of points granted on redemption.
//  CreatedAt  – issuance timestamp.
//  RedeemedBy – account that redeemed the token (nil while unredeemed).
//  RedeemedAt – redemption timestamp (nil while unredeemed).
type Token struct {
	Code       string     `db:"code"`        // tokens.code
	Value      int64      `db:"value"`       // tokens.value
	CreatedAt  time.Time  `db:"created_at"`  // tokens.created_at
	RedeemedBy *uint64    `db:"redeemed_by"` // tokens.redeemed_by (nullable)
	RedeemedAt *time.Time `db:"redeemed_at"` // tokens.redeemed_at (nullable)
}

// Redeemed reports whether the token has already been claimed.
func (t Token) Redeemed() bool { return t.RedeemedBy != nil }
