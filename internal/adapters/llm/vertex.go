package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

type VertexDrafter struct {
	client    *genai.Client
	modelName string
}

// NewVertexDrafter creates a ReplyDrafter based on Vertex AI (Gemini).
func NewVertexDrafter(ctx context.Context, projectID, location, modelName string) (*VertexDrafter, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("GCP project and location must be set for Vertex drafts")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexDrafter{
		client:    client,
		modelName: modelName,
	}, nil
}

// DraftReply implements domain.ReplyDrafter using Vertex AI.
func (v *VertexDrafter) DraftReply(ctx context.Context, msg *domain.Message) (string, error) {
	prompt := BuildPrompt(msg)

	temp := float32(0.5)
	topP := float32(0.9)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   int32(1024),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt.User, genai.RoleUser),
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("vertex returned empty text")
	}

	return text, nil
}
