package inbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

// Mutator changes messages through their owning inbox only.
type Mutator struct {
	store   domain.MessageStore
	session *Session
	read    CallPolicy
	write   CallPolicy
}

func NewMutator(store domain.MessageStore, session *Session, policies Policies) *Mutator {
	return &Mutator{
		store:   store,
		session: session,
		read:    policies.Read,
		write:   policies.Write,
	}
}

// SetRead sets the read flag of messages/{recipient}/inbox/{messageID}.
// Setting the flag to its current value succeeds.
func (m *Mutator) SetRead(ctx context.Context, recipient domain.AccountID, messageID domain.MessageID, read bool) error {
	recipient = m.session.Recipient(ctx, recipient)
	if err := requireIDs(recipient, messageID); err != nil {
		return err
	}

	log := observability.LoggerFromContext(ctx).With(
		"recipient_id", recipient,
		"message_id", messageID,
		"read", read,
	)

	err := call(ctx, m.write, func(ctx context.Context) error {
		return m.store.SetRead(ctx, recipient, messageID, read)
	})
	if err != nil {
		log.Error("failed to set read flag", "error", err)
		return err
	}

	log.Info("read flag updated")
	return nil
}

// DeleteMessage permanently removes messages/{recipient}/inbox/{messageID}.
// Deleting a message that is already gone returns domain.ErrNotFound.
func (m *Mutator) DeleteMessage(ctx context.Context, recipient domain.AccountID, messageID domain.MessageID) error {
	recipient = m.session.Recipient(ctx, recipient)
	if err := requireIDs(recipient, messageID); err != nil {
		return err
	}

	log := observability.LoggerFromContext(ctx).With(
		"recipient_id", recipient,
		"message_id", messageID,
	)

	err := call(ctx, m.write, func(ctx context.Context) error {
		return m.store.DeleteMessage(ctx, recipient, messageID)
	})
	if err != nil {
		log.Error("failed to delete message", "error", err)
		return err
	}

	log.Info("message deleted")
	return nil
}

// MarkAllRead marks every unread message in the inbox as read and returns how
// many were changed. Messages deleted meanwhile are skipped.
func (m *Mutator) MarkAllRead(ctx context.Context, recipient domain.AccountID) (int, error) {
	recipient = m.session.Recipient(ctx, recipient)
	if recipient == "" {
		return 0, fmt.Errorf("%w: recipient is required", domain.ErrInvalidInput)
	}

	log := observability.LoggerFromContext(ctx).With("recipient_id", recipient)

	var unread []*domain.Message
	err := call(ctx, m.read, func(ctx context.Context) error {
		var err error
		unread, err = m.store.ListMessages(ctx, domain.MessageQuery{RecipientID: recipient, UnreadOnly: true})
		return err
	})
	if err != nil {
		log.Error("failed to list unread messages", "error", err)
		return 0, err
	}

	updated := 0
	for _, msg := range unread {
		err := call(ctx, m.write, func(ctx context.Context) error {
			return m.store.SetRead(ctx, recipient, msg.ID, true)
		})
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Error("failed to mark message read", "message_id", msg.ID, "error", err)
			return updated, err
		}
		updated++
	}

	log.Info("marked all messages read", "updated", updated)
	return updated, nil
}

func requireIDs(recipient domain.AccountID, messageID domain.MessageID) error {
	if recipient == "" || messageID == "" {
		return fmt.Errorf("%w: recipient and message id are required", domain.ErrInvalidInput)
	}
	return nil
}
