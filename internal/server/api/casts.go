package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/wandcast/internal/store"
)

// CastHandler handles HTTP requests for the cast journal.
type CastHandler struct {
	store *store.Store
}

// NewCastHandler creates a new CastHandler with the given store.
func NewCastHandler(s *store.Store) *CastHandler {
	return &CastHandler{store: s}
}

// ServeHTTP routes /api/casts and /api/casts/{id}.
func (h *CastHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if id := itemID(r.URL.Path, "/api/casts"); id != "" {
		h.get(w, r, id)
		return
	}
	h.list(w, r)
}

type listCastsResponse struct {
	Casts  []*store.Cast      `json:"casts"`
	Totals []store.SpellCount `json:"totals"`
}

// list handles GET /api/casts?limit=N.
func (h *CastHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	casts, err := h.store.Casts().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list casts")
		return
	}
	totals, err := h.store.Casts().CountBySpell()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count casts")
		return
	}

	writeJSON(w, http.StatusOK, listCastsResponse{Casts: casts, Totals: totals})
}

// get handles GET /api/casts/{id}.
func (h *CastHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	c, err := h.store.Casts().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cast not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get cast")
		return
	}

	writeJSON(w, http.StatusOK, c)
}
