package domain

import "context"

// MessageQuery selects messages from a single inbox.
type MessageQuery struct {
	RecipientID AccountID
	UnreadOnly  bool
	// Limit <= 0 means no limit.
	Limit int
	// After restricts results to messages strictly older than the cursor.
	After *Cursor
}

// Snapshot is the full result of a live query at one point in the store's change order.
type Snapshot struct {
	Messages []*Message
	Err      error
}

// MessageStore persists inbox messages. Messages are always addressed through
// their owning recipient: messages/{recipient}/inbox/{id}.
type MessageStore interface {
	// AppendMessage assigns ID and CreatedAt and stores msg in msg.RecipientID's inbox.
	AppendMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, recipient AccountID, id MessageID) (*Message, error)
	// ListMessages returns messages ordered by CreatedAt descending.
	ListMessages(ctx context.Context, q MessageQuery) ([]*Message, error)
	SetRead(ctx context.Context, recipient AccountID, id MessageID, read bool) error
	DeleteMessage(ctx context.Context, recipient AccountID, id MessageID) error
	// WatchMessages emits the current result of q immediately and again after every
	// change that may affect it. The channel is closed once ctx is done.
	WatchMessages(ctx context.Context, q MessageQuery) (<-chan Snapshot, error)
}

// AccountQuery selects accounts by role.
type AccountQuery struct {
	Role Role
	// OrderByCreated asks for oldest-first order instead of the store's natural order.
	OrderByCreated bool
	Limit          int
}

// AccountStore answers role lookups.
type AccountStore interface {
	FindAccounts(ctx context.Context, q AccountQuery) ([]*Account, error)
}

// ReplyDrafter suggests a reply to an inbox message.
type ReplyDrafter interface {
	DraftReply(ctx context.Context, msg *Message) (string, error)
}

// Permission mirrors the three states of a system notification permission.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notification is what the system notification service is asked to display.
type Notification struct {
	Title string
	Body  string
	Icon  string
}

// Notifier is the system notification service.
type Notifier interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, n Notification) error
}

// SoundPlayer plays the short audible cue for new messages.
type SoundPlayer interface {
	Play(ctx context.Context) error
}
