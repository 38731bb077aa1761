package triageapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) handleListSymptoms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"symptoms":   a.catalog.All(),
		"categories": a.catalog.Categories(),
	})
}

// An unknown category is an empty list, not a 404.
func (a *API) handleSymptomsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"symptoms": a.catalog.ByCategory(category),
	})
}
