package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Three durable tables back the core: accounts, ledger_entries and tokens.
// The ledger is append-only; nothing in this module issues UPDATE or DELETE
// against ledger_entries.

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		public_id     VARCHAR(16)  NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'MEMBER',
		created_at    DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_accounts_public_id (public_id),
		UNIQUE KEY uq_accounts_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		account_id      BIGINT UNSIGNED NOT NULL,
		delta           BIGINT NOT NULL,
		tag             VARCHAR(16) NOT NULL,
		counterparty_id BIGINT UNSIGNED NULL,
		created_at      DATETIME(6) NOT NULL,
		KEY idx_ledger_account (account_id, id),
		CONSTRAINT fk_ledger_account FOREIGN KEY (account_id) REFERENCES accounts (id),
		CONSTRAINT fk_ledger_counterparty FOREIGN KEY (counterparty_id) REFERENCES accounts (id),
		CONSTRAINT chk_ledger_delta CHECK (delta <> 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tokens (
		code        VARCHAR(64) COLLATE utf8mb4_bin NOT NULL PRIMARY KEY, -- codes are case-sensitive
		value       BIGINT NOT NULL,
		created_at  DATETIME(6) NOT NULL,
		redeemed_by BIGINT UNSIGNED NULL,
		redeemed_at DATETIME(6) NULL,
		CONSTRAINT fk_tokens_redeemed_by FOREIGN KEY (redeemed_by) REFERENCES accounts (id),
		CONSTRAINT chk_tokens_value CHECK (value > 0 AND value <= 1000000000), -- model.MaxTokenValue
		CONSTRAINT chk_tokens_claim CHECK ((redeemed_by IS NULL) = (redeemed_at IS NULL))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		public_id     TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'MEMBER',
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id      INTEGER NOT NULL REFERENCES accounts (id),
		delta           INTEGER NOT NULL CHECK (delta <> 0),
		tag             TEXT NOT NULL,
		counterparty_id INTEGER NULL REFERENCES accounts (id),
		created_at      DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries (account_id, id)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		code        TEXT NOT NULL PRIMARY KEY,
		value       INTEGER NOT NULL CHECK (value > 0 AND value <= 1000000000), -- model.MaxTokenValue
		created_at  DATETIME NOT NULL,
		redeemed_by INTEGER NULL REFERENCES accounts (id),
		redeemed_at DATETIME NULL,
		CHECK ((redeemed_by IS NULL) = (redeemed_at IS NULL))
	)`,
}

// Migrate creates the schema for the connected driver. Statements are
// idempotent so it is safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := mysqlSchema
	if db.DriverName() == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
