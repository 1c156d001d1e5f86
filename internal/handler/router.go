package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BuildInfo is reported by /health and /version
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// Handlers groups every HTTP handler of the service
type Handlers struct {
	Leads         *LeadHandler
	Chat          *ChatHandler
	Conversations *ConversationHandler
	Analytics     *AnalyticsHandler
}

// RegisterRoutes mounts the health endpoints and the /api/v1 routes
func RegisterRoutes(router *gin.Engine, h Handlers, info BuildInfo) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "lead-qualification-engine",
			"version":    info.Version,
			"build_time": info.BuildTime,
			"git_commit": info.GitCommit,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    info.Version,
			"build_time": info.BuildTime,
			"git_commit": info.GitCommit,
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		// Qualification
		apiV1.POST("/lead/analyze", h.Leads.Analyze)
		apiV1.POST("/leads/qualify", h.Leads.Qualify)

		// Lead management
		apiV1.GET("/leads", h.Leads.List)
		apiV1.POST("/leads", h.Leads.Create)
		apiV1.GET("/leads/:id", h.Leads.Get)
		apiV1.PUT("/leads/:id", h.Leads.Update)
		apiV1.DELETE("/leads/:id", h.Leads.Delete)
		apiV1.POST("/leads/:id/interactions", h.Leads.AddInteraction)

		// Chatbot
		apiV1.POST("/chat/preferences", h.Chat.SavePreferences)
		apiV1.POST("/chat/reply", h.Chat.Reply)
		apiV1.POST("/chat/stream", h.Chat.Stream)

		// Conversation memory
		apiV1.GET("/conversations/:key", h.Conversations.Get)
		apiV1.DELETE("/conversations/:key", h.Conversations.Clear)

		apiV1.GET("/analytics/summary", h.Analytics.Summary)
	}

	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, CodeNotFound, errors.New("route not found"))
	})
}
