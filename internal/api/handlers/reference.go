package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	"github.com/khoadang148/carehome-system-sub011/internal/service"
)

// ReferenceHandler serves the active formulary and schedules to form clients
type ReferenceHandler struct {
	svc *service.Service
}

// NewReferenceHandler creates a new handler
func NewReferenceHandler(svc *service.Service) *ReferenceHandler {
	return &ReferenceHandler{svc: svc}
}

// FormularyRoutes returns the /formulary routes
func (h *ReferenceHandler) FormularyRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListDrugs)
	r.Get("/{name}", h.GetDrug)
	return r
}

// FormularyResponse lists drugs from one reference snapshot
type FormularyResponse struct {
	Version  string              `json:"version,omitempty"`
	Source   string              `json:"source"`
	LoadedAt time.Time           `json:"loaded_at"`
	Drugs    []prescription.Drug `json:"drugs"`
}

// SchedulesResponse lists dosing schedules from one reference snapshot
type SchedulesResponse struct {
	Version   string                  `json:"version,omitempty"`
	Schedules []prescription.Schedule `json:"schedules"`
}

// ListDrugs handles GET /formulary. ?category= filters case-insensitively.
func (h *ReferenceHandler) ListDrugs(w http.ResponseWriter, r *http.Request) {
	formulary, _, snap := h.svc.Reference()
	if snap == nil {
		jsonError(w, "reference data not loaded", http.StatusServiceUnavailable)
		return
	}

	drugs := formulary.Drugs()
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		filtered := drugs[:0]
		for _, d := range drugs {
			if strings.EqualFold(d.Category, category) {
				filtered = append(filtered, d)
			}
		}
		drugs = filtered
	}

	writeJSON(w, http.StatusOK, FormularyResponse{
		Version:  snap.Version,
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt,
		Drugs:    drugs,
	})
}

// GetDrug handles GET /formulary/{name}. Lookup ignores case and diacritic
// composition.
func (h *ReferenceHandler) GetDrug(w http.ResponseWriter, r *http.Request) {
	formulary, _, snap := h.svc.Reference()
	if snap == nil {
		jsonError(w, "reference data not loaded", http.StatusServiceUnavailable)
		return
	}
	drug, ok := formulary.Lookup(chi.URLParam(r, "name"))
	if !ok {
		jsonError(w, "drug not in formulary", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, drug)
}

// ListSchedules handles GET /schedules
func (h *ReferenceHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	_, schedules, snap := h.svc.Reference()
	if snap == nil {
		jsonError(w, "reference data not loaded", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, SchedulesResponse{
		Version:   snap.Version,
		Schedules: schedules.Schedules(),
	})
}
