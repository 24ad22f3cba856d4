package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	q := `SELECT id FROM inbox_messages WHERE recipient_id = ? AND id < ? LIMIT ?`

	if got := rebind(DialectSQLite, q); got != q {
		t.Fatalf("sqlite query must be unchanged, got %q", got)
	}

	want := `SELECT id FROM inbox_messages WHERE recipient_id = $1 AND id < $2 LIMIT $3`
	if got := rebind(DialectPostgres, q); got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
}
