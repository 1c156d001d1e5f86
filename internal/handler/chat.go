package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadagent/internal/model"
	"leadagent/internal/service"
)

// ChatHandler handles the web chatbot and conversational reply requests
type ChatHandler struct {
	chat           *service.ChatService
	conversational *service.ConversationalAgent
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *service.ChatService, conversational *service.ConversationalAgent) *ChatHandler {
	return &ChatHandler{
		chat:           chat,
		conversational: conversational,
	}
}

// SavePreferences handles POST /api/v1/chat/preferences
func (h *ChatHandler) SavePreferences(c *gin.Context) {
	var req model.ChatPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.chat.SavePreferences(c.Request.Context(), req)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reply handles POST /api/v1/chat/reply
func (h *ChatHandler) Reply(c *gin.Context) {
	var req model.ChatReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp := h.conversational.Reply(c.Request.Context(), req)
	c.JSON(http.StatusOK, resp)
}

// Stream handles POST /api/v1/chat/stream - SSE streaming reply.
// Events: start, analysis, delta, reply, done, or error.
func (h *ChatHandler) Stream(c *gin.Context) {
	var req model.ChatReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, ok := c.Writer.(http.Flusher); !ok {
		respondError(c, http.StatusInternalServerError, CodeStreaming, errors.New("streaming not supported"))
		return
	}
	setSSEHeaders(c)
	c.Status(http.StatusOK)

	if err := sendSSE(c, "start", map[string]any{"message": req.Message}); err != nil {
		return
	}

	resp, err := h.conversational.ReplyStream(c.Request.Context(), req,
		func(analysis *model.QualifyResponse) error {
			return sendSSE(c, "analysis", analysis)
		},
		func(delta string) error {
			return sendSSE(c, "delta", map[string]any{"content": delta})
		},
	)
	if err != nil {
		// the client is gone or the write failed; try once to say so
		_ = sendSSE(c, "error", map[string]any{"error": err.Error()})
		return
	}

	_ = sendSSE(c, "reply", resp)
	_ = sendSSE(c, "done", nil)
}
