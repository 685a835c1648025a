package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ayusman/wandcast/internal/store"
	"github.com/ayusman/wandcast/internal/templates"
)

// Exporter copies the template files to the export directory.
type Exporter interface {
	ExportTemplates(ctx context.Context) (templates.ExportReport, error)
}

// TemplateHandler handles HTTP requests for template resources.
type TemplateHandler struct {
	store    *store.Store
	exporter Exporter
}

// NewTemplateHandler creates a new TemplateHandler. exporter may be nil.
func NewTemplateHandler(s *store.Store, exporter Exporter) *TemplateHandler {
	return &TemplateHandler{store: s, exporter: exporter}
}

// ServeHTTP routes /api/templates, /api/templates/export and /api/templates/{id}.
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := itemID(r.URL.Path, "/api/templates")

	switch {
	case id == "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
	case id == "export":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.export(w, r)
	default:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.get(w, r, id)
	}
}

type templateResponse struct {
	ID        string        `json:"id"`
	Label     string        `json:"label"`
	FileName  string        `json:"file_name"`
	Points    int           `json:"points"`
	Path      []store.Point `json:"path,omitempty"`
	CreatedAt string        `json:"created_at"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
	Labels    []store.LabelCount `json:"labels"`
}

func toTemplateResponse(t *store.Template) templateResponse {
	return templateResponse{
		ID:        t.ID,
		Label:     t.Label,
		FileName:  t.FileName,
		Points:    t.Points,
		Path:      t.Path,
		CreatedAt: formatTime(t.CreatedAt),
	}
}

// list handles GET /api/templates, optionally filtered by ?label=.
func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	tmpls, err := h.store.Templates().List(r.URL.Query().Get("label"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}
	labels, err := h.store.Templates().CountByLabel()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count templates")
		return
	}

	response := listTemplatesResponse{
		Templates: make([]templateResponse, 0, len(tmpls)),
		Labels:    labels,
	}
	for _, t := range tmpls {
		response.Templates = append(response.Templates, toTemplateResponse(t))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/templates/{id} and includes the stroke points.
func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	writeJSON(w, http.StatusOK, toTemplateResponse(t))
}

// export handles POST /api/templates/export. Partial failures still return
// 200 with the failed files listed in the report.
func (h *TemplateHandler) export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "Export not available")
		return
	}

	report, err := h.exporter.ExportTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Export failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}
