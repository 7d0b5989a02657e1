package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// Envelope is the body of every API response.
type Envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeInternal         = "INTERNAL_ERROR"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID(c)})
}

// respondRefused is a 200 with success=false: the request was valid but
// nothing was applied (e.g. a repeated check-in).
func respondRefused(c *gin.Context, reason string, data any) {
	c.JSON(http.StatusOK, Envelope{Success: false, Reason: reason, Data: data, RequestID: requestID(c)})
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, Envelope{
		Success:   false,
		Error:     &APIError{Code: code, Message: message, Details: details},
		RequestID: requestID(c),
	})
}

// respondDomainError maps an application error to a status and code.
func respondDomainError(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) {
		msg = de.Message
	}
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed", logger.Err(err))
		msg = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		logger.FromContext(c.Request.Context()).Warn("store unavailable", logger.Err(err))
		msg = "store temporarily unavailable, retry later"
	}
	respondError(c, status, code, msg, nil)
}

func classify(err error) (int, string) {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest, CodeValidation
	case shared.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case shared.IsConflict(err):
		return http.StatusConflict, CodeConflict
	case shared.IsRetryable(err):
		return http.StatusServiceUnavailable, CodeStoreUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondBindError reports a body that failed to decode or validate.
func respondBindError(c *gin.Context, err error) {
	if fields := installValidator().fieldErrors(err); fields != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "request validation failed", fields)
		return
	}
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		respondError(c, http.StatusBadRequest, CodeValidation, "request body is empty", nil)
	case errors.As(err, &syntaxErr):
		respondError(c, http.StatusBadRequest, CodeValidation, "malformed JSON body", nil)
	case errors.As(err, &typeErr):
		respondError(c, http.StatusBadRequest, CodeValidation, "invalid type for field "+typeErr.Field, nil)
	default:
		respondError(c, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}
