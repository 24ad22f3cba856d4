package domain

// Message is a single entry in a recipient's inbox.
type Message struct {
	ID          MessageID
	RecipientID AccountID
	SenderName  string
	SenderEmail string
	Body        string
	Source      Source
	Read        bool

	// CreatedAt is set by the store when the message is written.
	CreatedAt Timestamp
}

// Clone returns a copy that can be mutated without touching the store's value.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// Account is the minimal view of a user account needed to route messages.
type Account struct {
	ID        AccountID
	Role      Role
	CreatedAt Timestamp
}

// Page is one ordered slice of an inbox, newest first.
type Page struct {
	Messages []*Message
	// NextCursor is nil when there are no older messages to fetch.
	NextCursor *Cursor
}

// UnreadCount returns how many messages in the page are unread.
func (p *Page) UnreadCount() int {
	n := 0
	for _, m := range p.Messages {
		if !m.Read {
			n++
		}
	}
	return n
}
