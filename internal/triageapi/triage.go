package triageapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/sahayak/internal/consult"
	"github.com/linnemanlabs/sahayak/internal/triage"
)

type triageFunc func(context.Context, *consult.Request) (*consult.Consultation, error)

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	a.serveTriage(w, r, a.svc.Triage)
}

func (a *API) handleOfflineTriage(w http.ResponseWriter, r *http.Request) {
	a.serveTriage(w, r, a.svc.OfflineTriage)
}

func (a *API) serveTriage(w http.ResponseWriter, r *http.Request, run triageFunc) {
	var req consult.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	c, err := run(r.Context(), &req)
	if err != nil {
		if errors.Is(err, triage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, consult.ErrPatientNotFound) {
			writeError(w, http.StatusNotFound, "patient not found")
			return
		}
		a.logger.Error(r.Context(), err, "triage failed", "symptoms", len(req.Symptoms))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("sahayak.consultation.id", c.ID),
		attribute.String("sahayak.triage.severity", string(c.Severity)),
		attribute.String("sahayak.triage.provenance", string(c.Provenance)),
	)

	writeJSON(w, http.StatusOK, c)
}
