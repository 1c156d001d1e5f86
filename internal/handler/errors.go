package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadagent/internal/repository"
	"leadagent/internal/service"
)

// Error codes returned in the error envelope
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeInternal       = "internal_error"
	CodeStreaming      = "streaming_unsupported"
)

// APIError carries the HTTP status and code for a failed request
type APIError struct {
	Status int
	Code   string
	Err    error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates an API error
func NewAPIError(status int, code string, err error) *APIError {
	return &APIError{Status: status, Code: code, Err: err}
}

// ErrorBody is the payload of the error envelope
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope is the JSON shape of every error response
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// respondError writes the error envelope and aborts the chain
func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: ErrorBody{Message: msg, Code: code}})
}

// respondAPIError maps service errors onto HTTP statuses
func respondAPIError(c *gin.Context, err error) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		respondError(c, apiErr.Status, apiErr.Code, apiErr.Err)
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, err)
	case errors.Is(err, repository.ErrNotFound):
		respondError(c, http.StatusNotFound, CodeNotFound, err)
	default:
		respondError(c, http.StatusInternalServerError, CodeInternal, err)
	}
}

func badRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, CodeInvalidRequest, fmt.Errorf("invalid request: %w", err))
}
