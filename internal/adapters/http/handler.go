package httpadapter

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/folio-inbox/internal/app/inbox"
	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

const ctxKeyRecipient = "recipient"

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
}

type Server struct {
	svc  *inbox.Service
	opts Options
}

func NewServer(svc *inbox.Service, opts Options) http.Handler {
	s := &Server{svc: svc, opts: opts}

	router := gin.New()
	router.Use(withRecovery(), withRequestLogging(), withCORS(opts.AllowedOrigins))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.GET("/admin", s.handleAdmin())
	api.POST("/contact", s.handleContact())

	inboxes := api.Group("/inboxes/:recipient")
	inboxes.POST("/messages", s.handleSend())

	owned := inboxes.Group("", jwtAuth(opts.JWTSecret), s.requireOwner())
	{
		owned.GET("/messages", s.handleList())
		owned.GET("/unread", s.handleUnreadStream())
		owned.GET("/stream", s.handlePageStream())
		owned.PUT("/messages/:id/read", s.handleSetRead())
		owned.PUT("/read-all", s.handleReadAll())
		owned.DELETE("/messages/:id", s.handleDelete())
		owned.POST("/messages/:id/reply-draft", s.handleReplyDraft())
	}

	return router
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type contactRequest struct {
	SenderName  string `json:"sender_name"`
	SenderEmail string `json:"sender_email"`
	Body        string `json:"body"`
	Source      string `json:"source"`
}

type setReadRequest struct {
	Read *bool `json:"read" binding:"required"`
}

type messageResponse struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email,omitempty"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

type pageResponse struct {
	Messages   []messageResponse `json:"messages"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ─────────────────────────────────────────────
// Ownership
// ─────────────────────────────────────────────

// requireOwner resolves :recipient (including the admin alias) and rejects
// callers who do not own that inbox.
func (s *Server) requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		recipient := s.svc.Session().Recipient(c.Request.Context(), domain.AccountID(c.Param("recipient")))
		if recipient == "" || domain.AccountID(userID(c)) != recipient {
			writeError(c, domain.ErrForbidden)
			c.Abort()
			return
		}
		c.Set(ctxKeyRecipient, recipient)
		c.Next()
	}
}

func recipientOf(c *gin.Context) domain.AccountID {
	v, _ := c.Get(ctxKeyRecipient)
	id, _ := v.(domain.AccountID)
	return id
}

// ─────────────────────────────────────────────
// Public handlers
// ─────────────────────────────────────────────

func (s *Server) handleAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin_id": s.svc.Session().AdminID(c.Request.Context())})
	}
}

func (s *Server) handleContact() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid JSON body")
			return
		}

		msg, err := s.svc.SubmitContact(c.Request.Context(), toContactInput(req))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": toMessageResponse(msg)})
	}
}

func (s *Server) handleSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid JSON body")
			return
		}

		recipient := domain.AccountID(c.Param("recipient"))
		msg, err := s.svc.SendToRecipient(c.Request.Context(), recipient, toContactInput(req))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": toMessageResponse(msg)})
	}
}

// ─────────────────────────────────────────────
// Inbox handlers
// ─────────────────────────────────────────────

func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				badRequest(c, "limit must be a positive integer")
				return
			}
			limit = n
		}

		cursor, err := domain.ParseCursor(c.Query("cursor"))
		if err != nil {
			writeError(c, err)
			return
		}

		page, err := s.svc.FetchPage(c.Request.Context(), recipientOf(c), limit, cursor)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPageResponse(page))
	}
}

func (s *Server) handleSetRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req setReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, `body must be {"read": true|false}`)
			return
		}

		err := s.svc.SetRead(c.Request.Context(), recipientOf(c), domain.MessageID(c.Param("id")), *req.Read)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleReadAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := s.svc.MarkAllRead(c.Request.Context(), recipientOf(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": n})
	}
}

func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.svc.DeleteMessage(c.Request.Context(), recipientOf(c), domain.MessageID(c.Param("id")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleReplyDraft() gin.HandlerFunc {
	return func(c *gin.Context) {
		draft, err := s.svc.DraftReply(c.Request.Context(), recipientOf(c), domain.MessageID(c.Param("id")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"draft": draft})
	}
}

// ─────────────────────────────────────────────
// Live streams (server-sent events)
// ─────────────────────────────────────────────

func (s *Server) handleUnreadStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sub := s.svc.WatchUnread(ctx, recipientOf(c))
		if err := sub.Start(ctx); err != nil {
			writeError(c, err)
			return
		}
		defer sub.Stop()

		streamEvents(c, sub, "unread", func(n int) any {
			return gin.H{"count": n}
		})
	}
}

func (s *Server) handlePageStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))

		ctx := c.Request.Context()
		sub := s.svc.WatchFirstPage(ctx, recipientOf(c), limit)
		if err := sub.Start(ctx); err != nil {
			writeError(c, err)
			return
		}
		defer sub.Stop()

		streamEvents(c, sub, "page", func(p *domain.Page) any {
			return toPageResponse(p)
		})
	}
}

// streamEvents writes every value of sub as an SSE event until the client goes
// away or the subscription ends. A store failure is reported as an "error" event.
func streamEvents[T any](c *gin.Context, sub *inbox.Subscription[T], event string, render func(T) any) {
	ctx := c.Request.Context()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v, ok := <-sub.C():
			if !ok {
				if err := sub.Err(); err != nil {
					observability.LoggerFromContext(ctx).Warn("live stream ended", "event", event, "error", err)
					c.SSEvent("error", gin.H{"error": "live query failed"})
				}
				return false
			}
			c.SSEvent(event, render(v))
			return true
		}
	})
}

// ─────────────────────────────────────────────
// Inbox helpers
// ─────────────────────────────────────────────

func toContactInput(req contactRequest) inbox.ContactInput {
	return inbox.ContactInput{
		SenderName:  req.SenderName,
		SenderEmail: req.SenderEmail,
		Body:        req.Body,
		Source:      domain.Source(req.Source),
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:          string(m.ID),
		RecipientID: string(m.RecipientID),
		SenderName:  m.SenderName,
		SenderEmail: m.SenderEmail,
		Body:        m.Body,
		Source:      string(m.Source),
		Read:        m.Read,
		CreatedAt:   m.CreatedAt,
	}
}

func toPageResponse(p *domain.Page) pageResponse {
	out := pageResponse{Messages: make([]messageResponse, 0, len(p.Messages))}
	for _, m := range p.Messages {
		out.Messages = append(out.Messages, toMessageResponse(m))
	}
	if p.NextCursor != nil {
		out.NextCursor = p.NextCursor.String()
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, domain.ErrInvalidCursor):
		badRequest(c, "invalid cursor")
	case errors.Is(err, domain.ErrInvalidInput):
		badRequest(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not own this inbox"})
	case errors.Is(err, inbox.ErrDraftsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		internalError(c, err)
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func internalError(c *gin.Context, err error) {
	observability.LoggerFromContext(c.Request.Context()).Error("request failed",
		"path", c.FullPath(),
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
