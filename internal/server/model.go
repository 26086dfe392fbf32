package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/podplay/internal/models"
	"github.com/desertthunder/podplay/internal/shared"
)

// DefaultQueryTimeout bounds how long GET /model waits for the store.
const DefaultQueryTimeout = 5 * time.Second

// ModelHandler exposes the model store: GET /model, POST /store/{table} and POST /feeds/delete.
type ModelHandler struct {
	store   Store
	timeout time.Duration
}

// NewModelHandler creates a [ModelHandler]. A non-positive timeout uses [DefaultQueryTimeout].
func NewModelHandler(store Store, timeout time.Duration) *ModelHandler {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &ModelHandler{store: store, timeout: timeout}
}

// Routes returns the HTTP routes this handler serves.
func (h *ModelHandler) Routes() []string {
	return []string{"/model", "/store/", "/feeds/delete"}
}

func (h *ModelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/model" && r.Method == http.MethodGet:
		h.get(w, r)
	case strings.HasPrefix(r.URL.Path, "/store/") && r.Method == http.MethodPost:
		h.set(w, r, strings.TrimPrefix(r.URL.Path, "/store/"))
	case r.URL.Path == "/feeds/delete" && r.Method == http.MethodPost:
		h.deleteFeed(w, r)
	case r.URL.Path == "/model" || strings.HasPrefix(r.URL.Path, "/store/") || r.URL.Path == "/feeds/delete":
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, errNotFound)
	}
}

func (h *ModelHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	model, err := h.store.Query(ctx)
	if errors.Is(err, shared.ErrTimeout) {
		writeError(w, http.StatusGatewayTimeout, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (h *ModelHandler) set(w http.ResponseWriter, r *http.Request, name string) {
	table, err := models.ParseTable(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var data json.RawMessage
	if err := decodeBody(r, &data); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if !table.Singleton() && !strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		writeError(w, http.StatusBadRequest, errors.New(table.String()+" expects a JSON array"))
		return
	}

	if err := h.store.Set(table, data); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *ModelHandler) deleteFeed(w http.ResponseWriter, r *http.Request) {
	var feed models.Feed
	if err := decodeBody(r, &feed); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.store.DeleteFeed(feed); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, shared.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
