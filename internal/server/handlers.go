// Package server provides the HTTP API for classifying records and managing
// batch runs.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"piiguard/internal/batch"
	"piiguard/internal/core"
)

// Service is the batch service the handlers call.
type Service interface {
	Classify(ctx context.Context, req core.ClassifyRequest) core.ClassifyResult
	Submit(ctx context.Context, req core.BatchRequest) (*core.Batch, error)
	Get(ctx context.Context, id string) (*core.Batch, error)
	List(ctx context.Context, opts batch.ListOptions) (*core.BatchListResponse, error)
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the HTTP handlers
type Handler struct {
	svc    Service
	health Pinger
}

// NewHandler creates a handler over svc. health may be nil.
func NewHandler(svc Service, health Pinger) *Handler {
	return &Handler{svc: svc, health: health}
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Classify handles POST /v1/classify
func (h *Handler) Classify(c echo.Context) error {
	var req core.ClassifyRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if req.Data == nil {
		return handleError(c, core.NewInvalidRequestError("data is required", nil))
	}

	return c.JSON(http.StatusOK, h.svc.Classify(c.Request().Context(), req))
}

// CreateBatch handles POST /v1/batches
func (h *Handler) CreateBatch(c echo.Context) error {
	var req core.BatchRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if len(req.Records) == 0 {
		return handleError(c, core.NewInvalidRequestError("records must not be empty", nil))
	}
	for i, r := range req.Records {
		if r.Data == nil {
			return handleError(c, core.NewInvalidRequestError("records["+strconv.Itoa(i)+"].data is required", nil))
		}
	}

	b, err := h.svc.Submit(c.Request().Context(), req)
	if err != nil {
		return handleError(c, core.NewStorageError("batch failed", err))
	}
	return c.JSON(http.StatusOK, b)
}

// ListBatches handles GET /v1/batches
func (h *Handler) ListBatches(c echo.Context) error {
	opts := batch.ListOptions{
		After:  c.QueryParam("after"),
		Status: c.QueryParam("status"),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > batch.MaxListLimit {
			return handleError(c, core.NewInvalidRequestError("limit must be an integer between 1 and "+strconv.Itoa(batch.MaxListLimit), err))
		}
		opts.Limit = limit
	}

	resp, err := h.svc.List(c.Request().Context(), opts)
	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			return handleError(c, core.NewInvalidRequestError("unknown after cursor: "+opts.After, err))
		}
		return handleError(c, core.NewStorageError("failed to list batches", err))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetBatch handles GET /v1/batches/:id
func (h *Handler) GetBatch(c echo.Context) error {
	id := c.Param("id")
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, batch.ErrNotFound) {
			return handleError(c, core.NewNotFoundError("batch not found: "+id))
		}
		return handleError(c, core.NewStorageError("failed to load batch", err))
	}
	return c.JSON(http.StatusOK, b)
}

// handleError converts service errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var serviceErr *core.ServiceError
	if errors.As(err, &serviceErr) {
		return c.JSON(serviceErr.HTTPStatusCode(), serviceErr.ToJSON())
	}

	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    core.ErrorTypeInternal,
			"message": "an unexpected error occurred",
		},
	})
}
