// Package sqlstore implements the inbox and account stores on database/sql,
// backed by SQLite (modernc.org/sqlite) or Postgres (pgx stdlib driver).
//
// Live queries are driven by an in-process change feed, so they only observe
// writes made through the same Store.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/PabloGalante/folio-inbox/internal/adapters/storage/changefeed"
	"github.com/PabloGalante/folio-inbox/internal/domain"
)

// Dialect names the database/sql driver in use.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
	hub     *changefeed.Hub

	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// Open connects to dsn with the dialect's driver and applies the schema.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required for %s store", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single connection keeps :memory: databases shared and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", dialect, err)
	}

	return New(ctx, db, dialect)
}

// New wraps an open database and applies the schema.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := initSchema(ctx, db); err != nil {
		return nil, err
	}
	return &Store{
		db:      db,
		dialect: dialect,
		hub:     changefeed.NewHub(),
		now:     time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var (
	_ domain.MessageStore = (*Store)(nil)
	_ domain.AccountStore = (*Store)(nil)
)

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

const messageColumns = `id, recipient_id, sender_name, sender_email, body, source, is_read, created_at`

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.RecipientID == "" || strings.TrimSpace(msg.Body) == "" {
		return fmt.Errorf("%w: recipient and body are required", domain.ErrInvalidInput)
	}

	id := domain.MessageID(uuid.NewString())
	createdAt := s.stamp()

	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO inbox_messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		string(id), string(msg.RecipientID), msg.SenderName, msg.SenderEmail,
		msg.Body, string(msg.Source), msg.Read, createdAt.UnixNano(),
	)
	if err != nil {
		return domain.NewStoreError("sql AppendMessage", err)
	}

	msg.ID = id
	msg.CreatedAt = createdAt
	s.hub.Notify(msg.RecipientID)
	return nil
}

func (s *Store) GetMessage(ctx context.Context, recipient domain.AccountID, id domain.MessageID) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx, s.q(
		`SELECT `+messageColumns+` FROM inbox_messages WHERE recipient_id = ? AND id = ?`),
		string(recipient), string(id),
	)

	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, domain.NewStoreError("sql GetMessage", err)
	}
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, q domain.MessageQuery) ([]*domain.Message, error) {
	conditions := []string{"recipient_id = ?"}
	args := []any{string(q.RecipientID)}

	if q.UnreadOnly {
		conditions = append(conditions, "is_read = ?")
		args = append(args, false)
	}
	if q.After != nil {
		nanos := q.After.CreatedAt.UnixNano()
		conditions = append(conditions, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, nanos, nanos, string(q.After.ID))
	}

	query := `SELECT ` + messageColumns + ` FROM inbox_messages WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, domain.NewStoreError("sql ListMessages", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, domain.NewStoreError("sql ListMessages scan", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("sql ListMessages", err)
	}
	return out, nil
}

func (s *Store) SetRead(ctx context.Context, recipient domain.AccountID, id domain.MessageID, read bool) error {
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE inbox_messages SET is_read = ? WHERE recipient_id = ? AND id = ?`),
		read, string(recipient), string(id),
	)
	if err != nil {
		return domain.NewStoreError("sql SetRead", err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}

	s.hub.Notify(recipient)
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, recipient domain.AccountID, id domain.MessageID) error {
	res, err := s.db.ExecContext(ctx, s.q(
		`DELETE FROM inbox_messages WHERE recipient_id = ? AND id = ?`),
		string(recipient), string(id),
	)
	if err != nil {
		return domain.NewStoreError("sql DeleteMessage", err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}

	s.hub.Notify(recipient)
	return nil
}

func (s *Store) WatchMessages(ctx context.Context, q domain.MessageQuery) (<-chan domain.Snapshot, error) {
	return s.hub.Watch(ctx, q.RecipientID, func(ctx context.Context) ([]*domain.Message, error) {
		return s.ListMessages(ctx, q)
	}), nil
}

// ─────────────────────────────────────────
// AccountStore implementation
// ─────────────────────────────────────────

// PutAccount inserts an account or updates its role.
func (s *Store) PutAccount(ctx context.Context, account *domain.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.stamp()
	}

	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO accounts (id, role, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET role = excluded.role`),
		string(account.ID), string(account.Role), account.CreatedAt.UnixNano(),
	)
	if err != nil {
		return domain.NewStoreError("sql PutAccount", err)
	}
	return nil
}

func (s *Store) FindAccounts(ctx context.Context, q domain.AccountQuery) ([]*domain.Account, error) {
	query := `SELECT id, role, created_at FROM accounts`
	var args []any

	if q.Role != "" {
		query += ` WHERE role = ?`
		args = append(args, string(q.Role))
	}
	if q.OrderByCreated {
		query += ` ORDER BY created_at ASC, id ASC`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, domain.NewStoreError("sql FindAccounts", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		var (
			id, role string
			created  int64
		)
		if err := rows.Scan(&id, &role, &created); err != nil {
			return nil, domain.NewStoreError("sql FindAccounts scan", err)
		}
		out = append(out, &domain.Account{
			ID:        domain.AccountID(id),
			Role:      domain.Role(role),
			CreatedAt: time.Unix(0, created).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("sql FindAccounts", err)
	}
	return out, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*domain.Message, error) {
	var (
		id, recipient, name, email, body, source string
		read                                     bool
		created                                  int64
	)
	if err := row.Scan(&id, &recipient, &name, &email, &body, &source, &read, &created); err != nil {
		return nil, err
	}

	return &domain.Message{
		ID:          domain.MessageID(id),
		RecipientID: domain.AccountID(recipient),
		SenderName:  name,
		SenderEmail: email,
		Body:        body,
		Source:      domain.Source(source),
		Read:        read,
		CreatedAt:   time.Unix(0, created).UTC(),
	}, nil
}

func requireRow(res sql.Result, id domain.MessageID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStoreError("sql rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) q(query string) string {
	return rebind(s.dialect, query)
}

// stamp returns a strictly increasing write time for this process.
func (s *Store) stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}
