package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-escrow-reconciler/internal/reconcile"
)

type PassRunner interface {
	Run(ctx context.Context, pass reconcile.Pass) (reconcile.Report, error)
	Last() map[string]reconcile.Report
}

// PassesHandler exposes the last report of each pass and a manual trigger.
// A manual run joins a scan of the same pass that is already in flight.
type PassesHandler struct {
	Loop   PassRunner
	Passes []reconcile.Pass
}

func (h *PassesHandler) Register(r *chi.Mux) {
	r.Get("/passes", h.listReports)
	r.Post("/passes/{name}/run", h.runPass)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *PassesHandler) listReports(w http.ResponseWriter, r *http.Request) {
	last := h.Loop.Last()
	out := make([]reconcile.Report, 0, len(last))
	for _, rep := range last {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pass < out[j].Pass })
	writeJSON(w, http.StatusOK, out)
}

func (h *PassesHandler) runPass(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var pass reconcile.Pass
	for _, p := range h.Passes {
		if p.Name() == name {
			pass = p
			break
		}
	}
	if pass == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown pass"})
		return
	}

	rep, err := h.Loop.Run(r.Context(), pass)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "report": rep})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
