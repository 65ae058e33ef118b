package model

import "time"

// Tag categorizes a ledger entry.  Transfer direction and counterparty
// are carried as typed fields, never parsed out of free text.
type Tag string

const (
	TagGrant       Tag = "GRANT"
	TagTokenRedeem Tag = "TOKEN_REDEEM"
	TagTransferOut Tag = "TRANSFER_OUT"
	TagTransferIn  Tag = "TRANSFER_IN"
)

// Valid reports whether t is one of the known tags.
func (t Tag) Valid() bool {
	switch t {
	case TagGrant, TagTokenRedeem, TagTransferOut, TagTransferIn:
		return true
	}
	return false
}

// IsTransfer reports whether entries with this tag must name a counterparty.
func (t Tag) IsTransfer() bool { return t == TagTransferOut || t == TagTransferIn }

// LedgerEntry is an immutable signed point delta owned by one account.
// Rows are only ever inserted; an account's balance is derived from the
// sum of its entries.
//
// Fields:
//  ID             – monotonic identifier assigned at insert.
//  AccountID      – owning account.
//  Delta          – signed, nonzero number of points.
//  Tag            – GRANT, TOKEN_REDEEM, TRANSFER_OUT or TRANSFER_IN.
//  CounterpartyID – the other side of a transfer (nil otherwise).
//  CreatedAt      – insert timestamp (UTC).
type LedgerEntry struct {
	ID             uint64    `db:"id"`              // ledger_entries.id
	AccountID      uint64    `db:"account_id"`      // ledger_entries.account_id
	Delta          int64     `db:"delta"`           // ledger_entries.delta
	Tag            Tag       `db:"tag"`             // ledger_entries.tag
	CounterpartyID *uint64   `db:"counterparty_id"` // ledger_entries.counterparty_id (nullable)
	CreatedAt      time.Time `db:"created_at"`      // ledger_entries.created_at
}

// HistoryEntry is a ledger entry as shown to its owner, with the
// counterparty resolved to its public identifier.
type HistoryEntry struct {
	ID                   uint64    `db:"id" json:"id"`
	Delta                int64     `db:"delta" json:"delta"`
	Tag                  Tag       `db:"tag" json:"tag"`
	CounterpartyID       *uint64   `db:"counterparty_id" json:"-"`
	CounterpartyPublicID *string   `db:"counterparty_public_id" json:"counterparty,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"timestamp"`
}
