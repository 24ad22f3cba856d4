package llm_test

import (
	"context"
	"strings"
	"testing"

	"github.com/PabloGalante/folio-inbox/internal/adapters/llm"
	"github.com/PabloGalante/folio-inbox/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	p := llm.BuildPrompt(&domain.Message{
		SenderEmail: "ana@example.com",
		Body:        "Can we talk about a contract?",
		Source:      domain.SourceJobRequest,
	})

	for _, want := range []string{"Anonymous <ana@example.com>", "job request form", "Can we talk about a contract?"} {
		if !strings.Contains(p.User, want) {
			t.Errorf("prompt missing %q:\n%s", want, p.User)
		}
	}
	if p.System == "" {
		t.Fatal("expected system prompt")
	}
}

func TestMockDrafter(t *testing.T) {
	draft, err := llm.NewMockDrafter().DraftReply(context.Background(), &domain.Message{
		SenderName: "Bea",
		Body:       "hi",
		Source:     domain.SourcePortfolioView,
	})
	if err != nil {
		t.Fatalf("DraftReply failed: %v", err)
	}
	if !strings.Contains(draft, "Bea") || !strings.Contains(draft, "portfolio") {
		t.Fatalf("unexpected draft %q", draft)
	}
}
