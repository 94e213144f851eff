package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"buzzdigest/internal/cache"
	"buzzdigest/internal/model"
	"buzzdigest/internal/store"
)

// DigestStore reads persisted digest blobs.
type DigestStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// RunStore lists archived digester runs. Nil when no database is configured;
// the digest-by-date endpoint works without it.
type RunStore interface {
	GetRuns(limit, offset int) ([]model.Run, error)
	GetRunTotal() (int, error)
	LatestSuccessful() (*model.Run, error)
}

type DigestHandler struct {
	store DigestStore
	runs  RunStore
}

func NewDigestHandler(store DigestStore, runs RunStore) *DigestHandler {
	return &DigestHandler{store: store, runs: runs}
}

func (h *DigestHandler) GetDigest(c *gin.Context) {
	day, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, want YYYY-MM-DD"})
		return
	}

	h.serveDigest(c, cache.Key(day, model.OpSummary, ""))
}

func (h *DigestHandler) GetLatestDigest(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run archive not configured"})
		return
	}

	run, err := h.runs.LatestSuccessful()
	if err != nil {
		slog.Error("error fetching latest run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No digest available"})
		return
	}

	h.serveDigest(c, run.SummaryKey)
}

// serveDigest relays the stored digest payload verbatim; it is already JSON.
func (h *DigestHandler) serveDigest(c *gin.Context, key string) {
	data, err := h.store.Get(c.Request.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No digest for that date"})
		return
	}
	if err != nil {
		slog.Error("error reading digest", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

func (h *DigestHandler) GetRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run archive not configured"})
		return
	}

	limit := getQueryLimit(c)
	offset := getQueryOffset(c)

	runs, err := h.runs.GetRuns(limit, offset)
	if err != nil {
		slog.Error("error fetching runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	total, err := h.runs.GetRunTotal()
	if err != nil {
		slog.Error("error fetching run total", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	res := RunsResponse{
		Runs:   []RunResponse{},
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, run := range runs {
		res.Runs = append(res.Runs, toRunResponse(run))
	}

	c.JSON(http.StatusOK, res)
}

func (h *DigestHandler) GetHealth(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"archive": "disabled",
		})
		return
	}

	if _, err := h.runs.GetRunTotal(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

func getQueryInt(name string, defaultValue int, c *gin.Context) int {
	raw := c.Query(name)

	if raw == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid query parameter, using default", "param", name, "value", raw, "error", err)
		return defaultValue
	}

	return parsed
}

func getQueryLimit(c *gin.Context) int {
	const (
		defaultLimit = 10
		maxLimit     = 100
	)

	limit := getQueryInt("limit", defaultLimit, c)
	if limit < 1 {
		slog.Warn("invalid query parameter, using default", "param", "limit", "value", limit, "default", defaultLimit)
		return defaultLimit
	}

	if limit > maxLimit {
		slog.Warn("query parameter exceeds max, clamping", "param", "limit", "value", limit, "max", maxLimit)
		return maxLimit
	}

	return limit
}

func getQueryOffset(c *gin.Context) int {
	offset := getQueryInt("offset", 0, c)
	if offset < 0 {
		slog.Warn("invalid query parameter, using default", "param", "offset", "value", offset, "default", 0)
		return 0
	}
	return offset
}
