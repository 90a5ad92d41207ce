package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/qnabot/internal/domain/qnabot"
	apperrors "github.com/yanqian/qnabot/pkg/errors"
)

// Handler wires the HTTP transport to the responder.
type Handler struct {
	svc    qnabot.Service
	logger *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc qnabot.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.With("component", "http.handler"),
	}
}

type messagesResponse struct {
	Activities []Activity `json:"activities"`
}

// Messages handles a Bot Framework activity and returns the replies inline.
func (h *Handler) Messages(c *gin.Context) {
	var act Activity
	if err := c.ShouldBindJSON(&act); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if claims, ok := getClaims(c); ok && claims.ServiceURL != "" && !strings.EqualFold(claims.ServiceURL, act.ServiceURL) {
		abortWithError(c, NewHTTPError(http.StatusForbidden, "invalid_token", "serviceUrl does not match token", nil))
		return
	}

	ctx := c.Request.Context()
	out := newReplyCollector(act)

	var err error
	switch act.Type {
	case activityTypeConversationUpdate:
		if len(act.MembersAdded) > 0 {
			err = h.svc.OnConversationStart(ctx, qnabot.ConversationStart{
				Members: toIdentities(act.MembersAdded),
				Self:    act.Recipient.identity(),
			}, out)
		}
	case activityTypeMessage:
		if strings.TrimSpace(act.Text) == "" && len(act.Attachments) == 0 {
			h.logger.Debug("ignoring empty message", "conversation", act.Conversation.ID)
			break
		}
		err = h.svc.OnMessage(ctx, qnabot.MessageEvent{
			Text:   act.Text,
			Sender: act.From.identity(),
		}, out)
	default:
		h.logger.Debug("ignoring activity", "type", act.Type)
	}

	if err != nil {
		status := http.StatusInternalServerError
		code := "activity_failed"
		if apperrors.IsCode(err, "qna_error") {
			status = http.StatusBadGateway
			code = "qna_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, messagesResponse{Activities: out.replies})
}

// Trending returns the most frequently asked queries.
func (h *Handler) Trending(c *gin.Context) {
	items, err := h.svc.Trending(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "insights_failed", errMessage(err), err))
		return
	}
	if items == nil {
		items = []qnabot.TrendingQuery{}
	}
	c.JSON(http.StatusOK, gin.H{"queries": items})
}

// Misses lists recent queries that ended in the fallback or a disambiguation card.
func (h *Handler) Misses(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer", err))
			return
		}
		limit = parsed
	}
	items, err := h.svc.RecentMisses(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "insights_failed", errMessage(err), err))
		return
	}
	if items == nil {
		items = []qnabot.Miss{}
	}
	c.JSON(http.StatusOK, gin.H{"misses": items})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
