package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (FOLIO_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var (
	_ domain.MessageStore = (*Store)(nil)
	_ domain.AccountStore = (*Store)(nil)
)

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) usersCol() *firestore.CollectionRef {
	return s.client.Collection("users")
}

// inboxCol is messages/{recipient}/inbox.
func (s *Store) inboxCol(recipient domain.AccountID) *firestore.CollectionRef {
	return s.client.Collection("messages").Doc(string(recipient)).Collection("inbox")
}

func (s *Store) messageDoc(recipient domain.AccountID, id domain.MessageID) *firestore.DocumentRef {
	return s.inboxCol(recipient).Doc(string(id))
}

func mapErr(op string, id domain.MessageID, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
	}
	return domain.NewStoreError("firestore "+op, err)
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type messageDoc struct {
	SenderName  string    `firestore:"senderName"`
	SenderEmail string    `firestore:"senderEmail"`
	Body        string    `firestore:"body"`
	Source      string    `firestore:"source"`
	Read        bool      `firestore:"read"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

type userDoc struct {
	Role      string    `firestore:"role"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func toMessage(recipient domain.AccountID, snap *firestore.DocumentSnapshot) (*domain.Message, error) {
	var doc messageDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode messageDoc: %w", err)
	}

	return &domain.Message{
		ID:          domain.MessageID(snap.Ref.ID),
		RecipientID: recipient,
		SenderName:  doc.SenderName,
		SenderEmail: doc.SenderEmail,
		Body:        doc.Body,
		Source:      domain.Source(doc.Source),
		Read:        doc.Read,
		CreatedAt:   doc.CreatedAt,
	}, nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.RecipientID == "" || strings.TrimSpace(msg.Body) == "" {
		return fmt.Errorf("%w: recipient and body are required", domain.ErrInvalidInput)
	}

	ref := s.inboxCol(msg.RecipientID).NewDoc()
	doc := map[string]interface{}{
		"senderName":  msg.SenderName,
		"senderEmail": msg.SenderEmail,
		"body":        msg.Body,
		"source":      string(msg.Source),
		"read":        msg.Read,
		"createdAt":   firestore.ServerTimestamp,
	}

	wr, err := ref.Create(ctx, doc)
	if err != nil {
		return domain.NewStoreError("firestore AppendMessage", err)
	}

	msg.ID = domain.MessageID(ref.ID)
	msg.CreatedAt = wr.UpdateTime
	return nil
}

func (s *Store) GetMessage(ctx context.Context, recipient domain.AccountID, id domain.MessageID) (*domain.Message, error) {
	snap, err := s.messageDoc(recipient, id).Get(ctx)
	if err != nil {
		return nil, mapErr("GetMessage", id, err)
	}
	return toMessage(recipient, snap)
}

func (s *Store) query(q domain.MessageQuery) firestore.Query {
	query := s.inboxCol(q.RecipientID).Query
	if q.UnreadOnly {
		query = query.Where("read", "==", false)
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if q.After != nil {
		query = query.StartAfter(q.After.CreatedAt, string(q.After.ID))
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

func (s *Store) ListMessages(ctx context.Context, q domain.MessageQuery) ([]*domain.Message, error) {
	iter := s.query(q).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, domain.NewStoreError("firestore ListMessages", err)
		}

		msg, err := toMessage(q.RecipientID, snap)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *Store) SetRead(ctx context.Context, recipient domain.AccountID, id domain.MessageID, read bool) error {
	_, err := s.messageDoc(recipient, id).Update(ctx, []firestore.Update{
		{Path: "read", Value: read},
	})
	if err != nil {
		return mapErr("SetRead", id, err)
	}
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, recipient domain.AccountID, id domain.MessageID) error {
	if _, err := s.messageDoc(recipient, id).Delete(ctx, firestore.Exists); err != nil {
		return mapErr("DeleteMessage", id, err)
	}
	return nil
}

// WatchMessages follows the query with a Firestore snapshot listener. A listener
// error is delivered once and ends the stream.
func (s *Store) WatchMessages(ctx context.Context, q domain.MessageQuery) (<-chan domain.Snapshot, error) {
	iter := s.query(q).Snapshots(ctx)

	out := make(chan domain.Snapshot)
	go func() {
		defer close(out)
		defer iter.Stop()

		for {
			qs, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled || errors.Is(err, iterator.Done) {
					return
				}
				select {
				case out <- domain.Snapshot{Err: domain.NewStoreError("firestore WatchMessages", err)}:
				case <-ctx.Done():
				}
				return
			}

			docs, err := qs.Documents.GetAll()
			snapshot := domain.Snapshot{Err: err}
			if err == nil {
				for _, d := range docs {
					msg, derr := toMessage(q.RecipientID, d)
					if derr != nil {
						snapshot.Err = derr
						break
					}
					snapshot.Messages = append(snapshot.Messages, msg)
				}
			}

			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// ─────────────────────────────────────────
// AccountStore implementation
// ─────────────────────────────────────────

func (s *Store) FindAccounts(ctx context.Context, q domain.AccountQuery) ([]*domain.Account, error) {
	query := s.usersCol().Query
	if q.Role != "" {
		query = query.Where("role", "==", string(q.Role))
	}
	if q.OrderByCreated {
		query = query.OrderBy("createdAt", firestore.Asc)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Account
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, domain.NewStoreError("firestore FindAccounts", err)
		}

		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode userDoc: %w", err)
		}

		out = append(out, &domain.Account{
			ID:        domain.AccountID(snap.Ref.ID),
			Role:      domain.Role(doc.Role),
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

// PutAccount writes the role of an account, keeping any other fields.
func (s *Store) PutAccount(ctx context.Context, account *domain.Account) error {
	doc := map[string]interface{}{
		"role": string(account.Role),
	}
	if !account.CreatedAt.IsZero() {
		doc["createdAt"] = account.CreatedAt
	}

	if _, err := s.usersCol().Doc(string(account.ID)).Set(ctx, doc, firestore.MergeAll); err != nil {
		return domain.NewStoreError("firestore PutAccount", err)
	}
	return nil
}
