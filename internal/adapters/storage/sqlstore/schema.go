package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Timestamps are stored as Unix nanoseconds so that SQLite and Postgres order and
// compare them identically.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id         TEXT PRIMARY KEY,
		role       TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_role ON accounts(role)`,
	`CREATE TABLE IF NOT EXISTS inbox_messages (
		id           TEXT PRIMARY KEY,
		recipient_id TEXT NOT NULL,
		sender_name  TEXT NOT NULL,
		sender_email TEXT NOT NULL DEFAULT '',
		body         TEXT NOT NULL,
		source       TEXT NOT NULL DEFAULT '',
		is_read      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inbox_messages_page
		ON inbox_messages(recipient_id, created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_inbox_messages_unread
		ON inbox_messages(recipient_id, is_read)`,
}

func initSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's form.
func rebind(d Dialect, query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
