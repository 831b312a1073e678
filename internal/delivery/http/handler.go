package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/gearmatch/ratingsync/internal/logging"
	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "ratingsync"
	serviceVersion = "1.0.0"

	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// MatchPreviewer runs the matcher against a category's catalog without writing
type MatchPreviewer interface {
	PreviewMatch(ctx context.Context, category, name string) (*domain.MatchResult, error)
}

// AttributeInfo describes one tracked attribute of a category
type AttributeInfo struct {
	Code  string `json:"code"`
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
}

// CategoryInfo describes a configured category
type CategoryInfo struct {
	Name        string          `json:"name"`
	CatalogFile string          `json:"catalogFile"`
	Attributes  []AttributeInfo `json:"attributes"`
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	previewer  MatchPreviewer
	history    domain.HistoryRepository
	categories []CategoryInfo
}

// NewHandler creates a new HTTP handler. previewer and history may be nil;
// their endpoints then answer 503.
func NewHandler(previewer MatchPreviewer, history domain.HistoryRepository, categories []CategoryInfo) *Handler {
	return &Handler{
		previewer:  previewer,
		history:    history,
		categories: categories,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// MatchRequest is the body of a match preview request
type MatchRequest struct {
	Category string `json:"category" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// MatchResponse reports the matcher's decision for one name
type MatchResponse struct {
	Category  string `json:"category"`
	Matched   bool   `json:"matched"`
	Ambiguous bool   `json:"ambiguous,omitempty"`
	*domain.MatchResult
}

// PreviewMatch handles match preview requests
func (h *Handler) PreviewMatch(c *gin.Context) {
	if h.previewer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match preview is not configured"})
		return
	}

	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	result, err := h.previewer.PreviewMatch(c.Request.Context(), category, req.Name)

	switch {
	case err == nil, errors.Is(err, domain.ErrNoMatch), errors.Is(err, domain.ErrAmbiguousContainment):
		if result == nil {
			result = &domain.MatchResult{ExternalName: req.Name}
		}
		c.JSON(http.StatusOK, MatchResponse{
			Category:    category,
			Matched:     result.Matched(),
			Ambiguous:   errors.Is(err, domain.ErrAmbiguousContainment),
			MatchResult: result,
		})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is empty after normalization"})
	case errors.Is(err, domain.ErrUnknownCategory), errors.Is(err, domain.ErrCatalogNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		logger := logging.FromContext(c.Request.Context())
		logger.Error().Err(err).Str("category", category).Msg("match preview failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to preview match"})
	}
}

// ListRuns returns recent category reports, newest first
func (h *Handler) ListRuns(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is not configured"})
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	category := strings.ToLower(strings.TrimSpace(c.Query("category")))
	entries, err := h.history.ListReports(c.Request.Context(), category, limit)
	if err != nil {
		logger := logging.FromContext(c.Request.Context())
		logger.Error().Err(err).Msg("listing runs failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": entries})
}

// ListCategories returns the configured categories
func (h *Handler) ListCategories(c *gin.Context) {
	categories := h.categories
	if categories == nil {
		categories = []CategoryInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
