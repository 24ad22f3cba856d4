package inbox

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

// ContactInput is a message submitted from one of the public surfaces.
type ContactInput struct {
	SenderName  string
	SenderEmail string
	Body        string
	Source      domain.Source
}

// SubmitContact delivers a contact-form message to the admin inbox.
func (s *Service) SubmitContact(ctx context.Context, in ContactInput) (*domain.Message, error) {
	if in.Source == "" {
		in.Source = domain.SourceLandingPage
	}
	return s.deliver(ctx, s.session.AdminID(ctx), in)
}

// SendToRecipient delivers a message to a specific user's inbox, e.g. from their
// public portfolio.
func (s *Service) SendToRecipient(ctx context.Context, recipient domain.AccountID, in ContactInput) (*domain.Message, error) {
	if in.Source == "" {
		in.Source = domain.SourcePortfolioView
	}
	return s.deliver(ctx, s.session.Recipient(ctx, recipient), in)
}

func (s *Service) deliver(ctx context.Context, recipient domain.AccountID, in ContactInput) (*domain.Message, error) {
	log := observability.LoggerFromContext(ctx).With(
		"recipient_id", recipient,
		"source", in.Source,
	)

	msg, err := newMessage(recipient, in)
	if err != nil {
		log.Info("rejected message", "error", err)
		return nil, err
	}

	// Appends are not retried: a timed-out write may still have landed.
	if err := s.messages.AppendMessage(ctx, msg); err != nil {
		log.Error("failed to append message", "error", err)
		return nil, err
	}

	log.Info("message delivered", "message_id", msg.ID)
	return msg, nil
}

func newMessage(recipient domain.AccountID, in ContactInput) (*domain.Message, error) {
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient is required", domain.ErrInvalidInput)
	}

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", domain.ErrInvalidInput)
	}

	email := strings.TrimSpace(in.SenderEmail)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: invalid email %q", domain.ErrInvalidInput, email)
		}
	}

	name := strings.TrimSpace(in.SenderName)
	if name == "" {
		name = domain.DefaultSenderName
	}

	return &domain.Message{
		RecipientID: recipient,
		SenderName:  name,
		SenderEmail: email,
		Body:        body,
		Source:      in.Source,
	}, nil
}
