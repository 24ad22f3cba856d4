package domain

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cursor marks the oldest message of the last fetched page.
// Its string form is opaque to clients.
type Cursor struct {
	CreatedAt Timestamp
	ID        MessageID
}

// CursorAfter builds the cursor pointing past msg.
func CursorAfter(msg *Message) *Cursor {
	return &Cursor{CreatedAt: msg.CreatedAt, ID: msg.ID}
}

// IsOlder reports whether msg sorts strictly after the cursor in newest-first order,
// i.e. whether it belongs on a later page.
func (c *Cursor) IsOlder(msg *Message) bool {
	if msg.CreatedAt.Equal(c.CreatedAt) {
		return msg.ID < c.ID
	}
	return msg.CreatedAt.Before(c.CreatedAt)
}

func (c *Cursor) String() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "|" + string(c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a cursor produced by Cursor.String. An empty string yields nil.
func ParseCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: MessageID(id)}, nil
}
