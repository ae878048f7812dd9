package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khoadang148/carehome-system-sub011/internal/api/middleware"
	"github.com/khoadang148/carehome-system-sub011/internal/domain/assessment"
	"github.com/khoadang148/carehome-system-sub011/internal/domain/prescription"
	"github.com/khoadang148/carehome-system-sub011/internal/fhir/mapper"
	fhir "github.com/khoadang148/carehome-system-sub011/internal/fhir/r5"
	"github.com/khoadang148/carehome-system-sub011/internal/service"
)

// ValidationHandler handles prescription check endpoints
type ValidationHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewValidationHandler creates a new handler
func NewValidationHandler(svc *service.Service, logger *zap.Logger) *ValidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationHandler{svc: svc, logger: logger}
}

// Routes returns the handler routes
func (h *ValidationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/validate", h.Validate)
	r.Post("/validate/fhir", h.ValidateFHIR)
	r.Get("/assessments/{id}", h.GetAssessment)
	return r
}

// ValidateRequest is the request body for a form-style check
type ValidateRequest struct {
	Prescriber  string                    `json:"prescriber"`
	Medications []prescription.Medication `json:"medications"`
}

// FHIRResponse is the result of a FHIR check with the mapped lines and an
// OperationOutcome for EHR clients
type FHIRResponse struct {
	*service.Result
	Prescriber  string                    `json:"prescriber"`
	Medications []prescription.Medication `json:"medications"`
	Outcome     *fhir.OperationOutcome    `json:"outcome"`
}

// Validate handles POST /prescriptions/validate. Invalid prescriptions are a
// normal outcome and return 200 with valid=false.
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeBody(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.Check(r.Context(), service.Request{
		Prescriber:    req.Prescriber,
		Medications:   req.Medications,
		Channel:       assessment.ChannelAPI,
		CorrelationID: middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		h.logger.Error("check failed", zap.Error(err), zap.String("request_id", middleware.GetRequestID(r.Context())))
		jsonError(w, "failed to check prescription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ValidateFHIR handles POST /prescriptions/validate/fhir
func (h *ValidationHandler) ValidateFHIR(w http.ResponseWriter, r *http.Request) {
	var req mapper.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, fhir.NewOperationOutcome(fhir.OperationOutcomeIssue{
			Severity:    "error",
			Code:        "structure",
			Diagnostics: err.Error(),
		}))
		return
	}

	prescriber, meds := mapper.Prescription(&req)
	res, err := h.svc.Check(r.Context(), service.Request{
		Prescriber:    prescriber,
		Medications:   meds,
		Channel:       assessment.ChannelFHIR,
		CorrelationID: middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		h.logger.Error("fhir check failed", zap.Error(err), zap.String("request_id", middleware.GetRequestID(r.Context())))
		jsonError(w, "failed to check prescription", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, FHIRResponse{
		Result:      res,
		Prescriber:  prescriber,
		Medications: meds,
		Outcome:     mapper.Outcome(res.Issues),
	})
}

// GetAssessment handles GET /prescriptions/assessments/{id}
func (h *ValidationHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	parsed, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid assessment id", http.StatusBadRequest)
		return
	}
	id := parsed.String()

	rec, err := h.svc.Assessment(r.Context(), id)
	switch {
	case errors.Is(err, service.ErrAuditDisabled):
		jsonError(w, err.Error(), http.StatusNotImplemented)
		return
	case errors.Is(err, assessment.ErrNotFound):
		jsonError(w, "assessment not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("load assessment failed", zap.String("id", id), zap.Error(err))
		jsonError(w, "failed to load assessment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
