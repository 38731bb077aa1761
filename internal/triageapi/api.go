// Package triageapi exposes the symptom catalog, triage, consultation
// history and patient profiles over HTTP.
package triageapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sahayak/internal/consult"
	"github.com/linnemanlabs/sahayak/internal/symptom"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// ConsultationService defines the business operations triageapi needs.
type ConsultationService interface {
	Triage(ctx context.Context, req *consult.Request) (*consult.Consultation, error)
	OfflineTriage(ctx context.Context, req *consult.Request) (*consult.Consultation, error)
	Get(ctx context.Context, id string) (*consult.Consultation, bool, error)
	List(ctx context.Context, f consult.ListFilter) ([]*consult.Consultation, error)

	CreatePatient(ctx context.Context, in *consult.PatientInput) (*consult.Patient, error)
	GetPatient(ctx context.Context, id string) (*consult.Patient, bool, error)
	UpdatePatient(ctx context.Context, id string, in *consult.PatientInput) (*consult.Patient, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger  log.Logger
	svc     ConsultationService
	catalog *symptom.Catalog
}

// New creates a new API handler. A nil catalog serves the built-in one.
func New(logger log.Logger, svc ConsultationService, catalog *symptom.Catalog) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("consultation service is required"))
	}
	if catalog == nil {
		catalog = symptom.Default()
	}
	return &API{
		logger:  logger,
		svc:     svc,
		catalog: catalog,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/symptoms", a.handleListSymptoms)
		r.Get("/symptoms/category/{category}", a.handleSymptomsByCategory)
		r.Post("/triage", a.handleTriage)
		r.Post("/triage/offline", a.handleOfflineTriage)
		r.Get("/consultations", a.handleListConsultations)
		r.Get("/consultations/{id}", a.handleGetConsultation)
		r.Post("/patients", a.handleCreatePatient)
		r.Get("/patients/{id}", a.handleGetPatient)
		r.Put("/patients/{id}", a.handleUpdatePatient)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
