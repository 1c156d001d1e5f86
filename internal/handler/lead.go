package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leadagent/internal/conversation"
	"leadagent/internal/model"
	"leadagent/internal/service"
)

// LeadHandler handles lead qualification and lead management requests
type LeadHandler struct {
	agent *service.LeadAgent
	leads *service.LeadService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(agent *service.LeadAgent, leads *service.LeadService) *LeadHandler {
	return &LeadHandler{
		agent: agent,
		leads: leads,
	}
}

// Analyze handles POST /api/v1/lead/analyze
func (h *LeadHandler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	key := conversation.ResolveKey(req.SessionID, req.Contact, req.Name)
	result := h.agent.Analyze(c.Request.Context(), req.Message, key)
	c.JSON(http.StatusOK, result)
}

// Qualify handles POST /api/v1/leads/qualify
func (h *LeadHandler) Qualify(c *gin.Context) {
	var req model.QualifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	// persistence problems are reported in diagnostics, never as an error status
	resp := h.agent.AnalyzeAndPersist(c.Request.Context(), req)
	c.JSON(http.StatusOK, resp)
}

// List handles GET /api/v1/leads
func (h *LeadHandler) List(c *gin.Context) {
	agencyID, err := agencyScope(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	leads, err := h.leads.List(c.Request.Context(), agencyID, limit, offset)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads, "count": len(leads)})
}

// Create handles POST /api/v1/leads
func (h *LeadHandler) Create(c *gin.Context) {
	var req model.LeadCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	lead, err := h.leads.Create(c.Request.Context(), req)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lead)
}

// Get handles GET /api/v1/leads/:id
func (h *LeadHandler) Get(c *gin.Context) {
	id, agencyID, ok := leadTarget(c)
	if !ok {
		return
	}

	lead, err := h.leads.Get(c.Request.Context(), id, agencyID)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	if lead == nil {
		respondError(c, http.StatusNotFound, CodeNotFound, fmt.Errorf("lead not found"))
		return
	}
	c.JSON(http.StatusOK, lead)
}

// Update handles PUT /api/v1/leads/:id
func (h *LeadHandler) Update(c *gin.Context) {
	id, agencyID, ok := leadTarget(c)
	if !ok {
		return
	}

	var req model.LeadUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	lead, err := h.leads.Update(c.Request.Context(), id, agencyID, req)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

// Delete handles DELETE /api/v1/leads/:id
func (h *LeadHandler) Delete(c *gin.Context) {
	id, agencyID, ok := leadTarget(c)
	if !ok {
		return
	}

	if err := h.leads.Delete(c.Request.Context(), id, agencyID); err != nil {
		respondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddInteraction handles POST /api/v1/leads/:id/interactions
func (h *LeadHandler) AddInteraction(c *gin.Context) {
	id, agencyID, ok := leadTarget(c)
	if !ok {
		return
	}

	var req model.InteractionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	it, err := h.leads.AddInteraction(c.Request.Context(), id, agencyID, req)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// leadTarget parses the :id path parameter and the agency scope. It writes
// the error response itself and reports whether the handler may continue.
func leadTarget(c *gin.Context) (int64, *int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, fmt.Errorf("invalid lead ID"))
		return 0, nil, false
	}
	agencyID, err := agencyScope(c)
	if err != nil {
		badRequest(c, err)
		return 0, nil, false
	}
	return id, agencyID, true
}

// agencyScope reads the optional agency_id query parameter
func agencyScope(c *gin.Context) (*int64, error) {
	raw := c.Query("agency_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("agency_id must be an integer")
	}
	return &id, nil
}
