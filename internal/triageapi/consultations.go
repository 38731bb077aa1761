package triageapi

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/sahayak/internal/consult"
)

func (a *API) handleGetConsultation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sahayak.consultation.id", id))

	c, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get consultation", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	span.SetAttributes(attribute.String("sahayak.triage.severity", string(c.Severity)))
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleListConsultations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var limit int
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	list, err := a.svc.List(r.Context(), consult.ListFilter{
		PatientID: q.Get("patient_id"),
		Limit:     limit,
	})
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list consultations")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if list == nil {
		list = []*consult.Consultation{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"consultations": list,
		"count":         len(list),
	})
}
