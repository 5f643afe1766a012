package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Timestamps are TEXT in timeLayout so that string comparison orders them
// chronologically. Amounts are TEXT decimals and are never summed in SQL.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	username        TEXT NOT NULL UNIQUE,
	email           TEXT NOT NULL DEFAULT '',
	mailbox_address TEXT NOT NULL DEFAULT '',
	bank_id         TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	date        TEXT NOT NULL,
	amount      TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	direction   TEXT NOT NULL CHECK (direction IN ('expense', 'income')),
	dedup_key   TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	UNIQUE (account_id, dedup_key)
);

CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS budgets (
	id           TEXT PRIMARY KEY,
	account_id   TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	amount       TEXT NOT NULL,
	window_start TEXT NOT NULL,
	window_end   TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	CHECK (window_end >= window_start)
);

CREATE INDEX IF NOT EXISTS idx_budgets_account_window ON budgets(account_id, window_start, window_end);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TEXT NOT NULL,
	read_at    TEXT
);

CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(account_id, kind, read_at);

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
