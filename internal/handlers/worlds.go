package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/world-editor/internal/middleware"
	"github.com/jwebster45206/world-editor/internal/storage"
	"github.com/jwebster45206/world-editor/pkg/world"
)

// maxWorldBytes bounds the size of an uploaded world document.
const maxWorldBytes = 16 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

type SaveResponse struct {
	Saved string `json:"saved"`
}

// WorldHandler serves /v1/worlds and /v1/worlds/{name}.
type WorldHandler struct {
	storage storage.Storage
	events  SavePublisher
	logger  *slog.Logger
}

// SavePublisher announces worlds saved through the API.
type SavePublisher interface {
	PublishWorldSaved(ctx context.Context, world string, entities, relations int) error
}

func NewWorldHandler(s storage.Storage, logger *slog.Logger) *WorldHandler {
	return &WorldHandler{storage: s, logger: logger}
}

// WithEvents makes the handler publish a world.saved event after each
// successful PUT. A failed publish does not fail the request.
func (h *WorldHandler) WithEvents(p SavePublisher) *WorldHandler {
	h.events = p
	return h
}

func (h *WorldHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/worlds"), "/")

	switch {
	case name == "" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case name == "":
		h.writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	case r.Method == http.MethodGet:
		h.handleGet(w, r, name)
	case r.Method == http.MethodPut:
		h.handlePut(w, r, name)
	default:
		h.writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *WorldHandler) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := h.storage.ListWorlds(r.Context())
	if err != nil {
		middleware.Logger(r.Context(), h.logger).Error("Failed to list worlds", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to list worlds")
		return
	}
	h.writeJSON(w, r, http.StatusOK, names)
}

func (h *WorldHandler) handleGet(w http.ResponseWriter, r *http.Request, name string) {
	log := middleware.Logger(r.Context(), h.logger)
	name, err := storage.NormalizeName(name)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid world name")
		return
	}

	doc, err := h.storage.LoadWorld(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrWorldNotFound) {
			h.writeError(w, r, http.StatusNotFound, "World not found")
			return
		}
		log.Error("Failed to load world", "error", err, "world", name)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to load world")
		return
	}
	h.writeDocument(w, r, doc)
}

func (h *WorldHandler) handlePut(w http.ResponseWriter, r *http.Request, name string) {
	log := middleware.Logger(r.Context(), h.logger)
	name, err := storage.NormalizeName(name)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "Invalid world name")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWorldBytes))
	if err != nil {
		h.writeError(w, r, http.StatusRequestEntityTooLarge, "World document too large")
		return
	}
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		h.writeError(w, r, http.StatusBadRequest, "Body must be a world JSON object")
		return
	}
	doc, err := world.Decode(body)
	if err != nil {
		log.Warn("Rejected world document", "error", err, "world", name)
		h.writeError(w, r, http.StatusBadRequest, "Body must be a world JSON object")
		return
	}

	if err := h.storage.SaveWorld(r.Context(), name, doc); err != nil {
		log.Error("Failed to save world", "error", err, "world", name)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to save world")
		return
	}
	log.Info("World saved", "world", name,
		"entities", doc.Entities.Len(), "relations", doc.Relations.Len())
	if h.events != nil {
		if err := h.events.PublishWorldSaved(r.Context(), name, doc.Entities.Len(), doc.Relations.Len()); err != nil {
			log.Warn("Failed to publish save event", "error", err, "world", name)
		}
	}
	h.writeJSON(w, r, http.StatusOK, SaveResponse{Saved: name})
}

func (h *WorldHandler) writeDocument(w http.ResponseWriter, r *http.Request, doc *world.Document) {
	data, err := doc.Encode()
	if err != nil {
		middleware.Logger(r.Context(), h.logger).Error("Failed to encode world", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Failed to encode world")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(data, '\n'))
}

func (h *WorldHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.Logger(r.Context(), h.logger).Error("Error encoding response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}

func (h *WorldHandler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, ErrorResponse{Error: message})
}
