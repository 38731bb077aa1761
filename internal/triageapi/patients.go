package triageapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/sahayak/internal/consult"
	"github.com/linnemanlabs/sahayak/internal/triage"
)

func decodePatient(w http.ResponseWriter, r *http.Request) (*consult.PatientInput, bool) {
	var in consult.PatientInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return nil, false
	}
	return &in, true
}

func (a *API) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	in, ok := decodePatient(w, r)
	if !ok {
		return
	}

	p, err := a.svc.CreatePatient(r.Context(), in)
	if err != nil {
		a.writePatientError(w, r, err, "")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("sahayak.patient.id", p.ID))
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("sahayak.patient.id", id))

	p, ok, err := a.svc.GetPatient(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get patient", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleUpdatePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("sahayak.patient.id", id))

	in, ok := decodePatient(w, r)
	if !ok {
		return
	}

	p, err := a.svc.UpdatePatient(r.Context(), id, in)
	if err != nil {
		a.writePatientError(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) writePatientError(w http.ResponseWriter, r *http.Request, err error, id string) {
	switch {
	case errors.Is(err, triage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, consult.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient not found")
	default:
		a.logger.Error(r.Context(), err, "patient write failed", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
