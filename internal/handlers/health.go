package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/world-editor/internal/storage"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

type HealthHandler struct {
	storage storage.HealthChecker
	extra   []component
	logger  *slog.Logger
}

type component struct {
	name    string
	checker storage.HealthChecker
}

func NewHealthHandler(s storage.HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: s,
		logger:  logger,
	}
}

// WithComponent adds a dependency reported under name. A failing component
// degrades the overall status like storage does.
func (h *HealthHandler) WithComponent(name string, checker storage.HealthChecker) *HealthHandler {
	h.extra = append(h.extra, component{name: name, checker: checker})
	return h
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	if err := h.storage.Ping(ctx); err != nil {
		h.logger.Warn("Storage health check failed", "error", err)
		components["storage"] = "unhealthy"
		overallStatus = "degraded"
	} else {
		components["storage"] = "healthy"
	}
	for _, c := range h.extra {
		if err := c.checker.Ping(ctx); err != nil {
			h.logger.Warn("Component health check failed", "component", c.name, "error", err)
			components[c.name] = "unhealthy"
			overallStatus = "degraded"
			continue
		}
		components[c.name] = "healthy"
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "world-editor",
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
