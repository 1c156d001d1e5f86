package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"leadagent/internal/conversation"
	"leadagent/internal/service"
)

// ConversationHandler exposes the conversation memory
type ConversationHandler struct {
	memory *conversation.Memory
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(memory *conversation.Memory) *ConversationHandler {
	return &ConversationHandler{memory: memory}
}

// Get handles GET /api/v1/conversations/:key
func (h *ConversationHandler) Get(c *gin.Context) {
	key, ok := conversationKey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":       key,
		"turns":     h.memory.Get(key),
		"max_turns": h.memory.MaxTurns(),
	})
}

// Clear handles DELETE /api/v1/conversations/:key
func (h *ConversationHandler) Clear(c *gin.Context) {
	key, ok := conversationKey(c)
	if !ok {
		return
	}
	h.memory.Clear(key)
	c.Status(http.StatusNoContent)
}

func conversationKey(c *gin.Context) (string, bool) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, fmt.Errorf("conversation key is required"))
		return "", false
	}
	return key, true
}

// AnalyticsHandler serves the qualification counters
type AnalyticsHandler struct {
	analytics *service.Analytics
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *service.Analytics) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary handles GET /api/v1/analytics/summary
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, h.analytics.Summary())
}
