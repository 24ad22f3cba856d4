package llm

import (
	"strings"

	"github.com/PabloGalante/folio-inbox/internal/domain"
)

const systemPrompt = `
You help the owner of a professional portfolio answer messages left by visitors.

Write a reply the owner could send as-is:
- Answer in the SAME LANGUAGE as the visitor.
- Be warm, professional and brief: 2–5 sentences.
- Acknowledge what the visitor asked for before anything else.
- Never invent availability, prices, or commitments; offer to follow up instead.
- Do not include a subject line or placeholders like [Your Name].
`

// Prompt represents the system prompt + the content to send as "user".
type Prompt struct {
	System string
	User   string
}

// BuildPrompt builds the prompt for drafting a reply to msg.
func BuildPrompt(msg *domain.Message) Prompt {
	var user strings.Builder
	user.WriteString("Visitor: ")
	user.WriteString(displayName(msg))
	if msg.SenderEmail != "" {
		user.WriteString(" <" + msg.SenderEmail + ">")
	}
	user.WriteString("\nSent from: ")
	user.WriteString(sourceLabel(msg.Source))
	user.WriteString("\n\nMessage:\n")
	user.WriteString(msg.Body)

	return Prompt{
		System: systemPrompt,
		User:   user.String(),
	}
}

func displayName(msg *domain.Message) string {
	if strings.TrimSpace(msg.SenderName) == "" {
		return domain.DefaultSenderName
	}
	return msg.SenderName
}

func sourceLabel(src domain.Source) string {
	switch src {
	case domain.SourceLandingPage:
		return "landing page"
	case domain.SourcePortfolioView:
		return "portfolio"
	case domain.SourceJobRequest:
		return "job request form"
	case domain.SourceAdminRequest:
		return "admin request form"
	default:
		return "website"
	}
}
