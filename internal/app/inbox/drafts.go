package inbox

import (
	"context"
	"errors"

	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

var ErrDraftsDisabled = errors.New("reply drafts are not configured")

// DraftReply asks the configured drafter for a suggested reply to one message.
func (s *Service) DraftReply(ctx context.Context, recipient domain.AccountID, messageID domain.MessageID) (string, error) {
	recipient = s.session.Recipient(ctx, recipient)
	if err := requireIDs(recipient, messageID); err != nil {
		return "", err
	}
	if s.drafter == nil {
		return "", ErrDraftsDisabled
	}

	log := observability.LoggerFromContext(ctx).With(
		"recipient_id", recipient,
		"message_id", messageID,
	)

	var msg *domain.Message
	err := call(ctx, s.policies.Read, func(ctx context.Context) error {
		var err error
		msg, err = s.messages.GetMessage(ctx, recipient, messageID)
		return err
	})
	if err != nil {
		log.Error("failed to load message for draft", "error", err)
		return "", err
	}

	draft, err := s.drafter.DraftReply(ctx, msg)
	if err != nil {
		log.Error("drafter failed", "error", err)
		return "", err
	}

	log.Info("reply drafted", "draft_len", len(draft))
	return draft, nil
}
