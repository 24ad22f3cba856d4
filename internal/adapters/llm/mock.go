package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

// MockDrafter returns a canned reply so the API works without Vertex.
type MockDrafter struct{}

func NewMockDrafter() *MockDrafter {
	return &MockDrafter{}
}

func (m *MockDrafter) DraftReply(ctx context.Context, msg *domain.Message) (string, error) {
	return fmt.Sprintf("Hi %s, thanks for reaching out through my %s. I'll get back to you shortly.",
		displayName(msg), sourceLabel(msg.Source)), nil
}
