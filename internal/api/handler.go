// Package api exposes the aggregation service over HTTP. It is a thin
// adapter: it extracts the caller's bearer token and maps client failures
// onto response status codes; everything else lives in the service and
// client packages.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/devfolio/github-aggregator/pkg/aggregate"
	"github.com/devfolio/github-aggregator/pkg/breaker"
	"github.com/devfolio/github-aggregator/pkg/github"
)

// UserInfoFetcher is the slice of the aggregation service the handler
// needs.
type UserInfoFetcher interface {
	FetchUserInfo(ctx context.Context, token string) (*aggregate.UserInfo, error)
}

// Handler handles API requests.
type Handler struct {
	service UserInfoFetcher
	logger  zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(service UserInfoFetcher, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// errorResponse is the error body contract.
type errorResponse struct {
	Error      string `json:"error"`
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

// GetUserInfo returns the consolidated GitHub user information.
// GET /api/v1/github/user-info
//
// Expected header: Authorization: Bearer <token> (or Token <token>).
func (h *Handler) GetUserInfo(c *gin.Context) {
	token := extractToken(c.GetHeader("Authorization"))
	if token == "" {
		h.logger.Warn().Msg("Request received without authentication token")
		c.JSON(http.StatusUnauthorized, errorResponse{
			Error:      "Authentication required",
			Detail:     "Please provide a valid GitHub token in Authorization header",
			StatusCode: http.StatusUnauthorized,
		})
		return
	}

	info, err := h.service.FetchUserInfo(c.Request.Context(), token)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// respondError maps client failures to response status codes:
// circuit-open to 503, upstream 401/403 through unchanged, other upstream
// statuses to 502, timeouts to 408, anything else to 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var openErr *breaker.OpenError
	if errors.As(err, &openErr) {
		h.logger.Warn().Err(err).Msg("Rejected while circuit breaker open")
		c.Header("Retry-After", fmt.Sprintf("%.0f", openErr.RetryAfter.Seconds()))
		c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error:      "GitHub API temporarily unavailable",
			Detail:     err.Error(),
			StatusCode: http.StatusServiceUnavailable,
		})
		return
	}

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		h.logger.Error().Int("status", apiErr.StatusCode).Err(err).Msg("GitHub API error")

		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			c.JSON(http.StatusUnauthorized, errorResponse{
				Error:      "Invalid GitHub token",
				Detail:     "The provided token is invalid or expired",
				StatusCode: http.StatusUnauthorized,
			})
		case http.StatusForbidden:
			c.JSON(http.StatusForbidden, errorResponse{
				Error:      "Insufficient permissions",
				Detail:     "Token does not have required scopes (repo, read:org, read:user)",
				StatusCode: http.StatusForbidden,
			})
		default:
			c.JSON(http.StatusBadGateway, errorResponse{
				Error:      "GitHub API error",
				Detail:     fmt.Sprintf("GitHub returned status code %d", apiErr.StatusCode),
				StatusCode: apiErr.StatusCode,
			})
		}
		return
	}

	if github.IsTimeout(err) {
		h.logger.Error().Err(err).Msg("GitHub API request timed out")
		c.JSON(http.StatusRequestTimeout, errorResponse{
			Error:      "Request timeout",
			Detail:     "GitHub API request took too long to respond",
			StatusCode: http.StatusRequestTimeout,
		})
		return
	}

	h.logger.Error().Err(err).Msg("Unexpected error")
	c.JSON(http.StatusInternalServerError, errorResponse{
		Error:      "Internal server error",
		Detail:     err.Error(),
		StatusCode: http.StatusInternalServerError,
	})
}

// extractToken parses an Authorization header value. Accepts the Bearer
// and Token schemes, case-insensitive. Returns "" for anything malformed.
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 {
		return ""
	}

	switch strings.ToLower(parts[0]) {
	case "bearer", "token":
		return parts[1]
	}
	return ""
}
