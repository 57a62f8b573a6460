package alertapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/argus/internal/pipeline"
	"github.com/linnemanlabs/argus/internal/record"
)

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("argus.alert.id", id))

	rec, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get alert", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := record.Filter{
		Status:   record.Status(q.Get("status")),
		Priority: q.Get("priority"),
		Rule:     q.Get("rule"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		f.Limit = n
	}
	if f.Status != "" && !record.ValidStatus(f.Status) {
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
		return
	}

	recs, err := a.svc.List(r.Context(), f)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list alerts")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []*record.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": recs,
		"count":  len(recs),
	})
}

func (a *API) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := a.svc.Counts(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to count alerts")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, `{"error":"since must be RFC3339"}`, http.StatusBadRequest)
			return
		}
		since = ts
	}

	st, err := a.svc.Stats(r.Context(), since)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to aggregate stats")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type statusRequest struct {
	Status record.Status `json:"status"`
}

func (a *API) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	err := a.svc.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, pipeline.ErrInvalidStatus):
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
		return
	case errors.Is(err, record.ErrNotFound):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	case err != nil:
		a.logger.Error(r.Context(), err, "failed to update status", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": req.Status,
	})
}

type bulkStatusRequest struct {
	IDs    []string      `json:"ids"`
	Status record.Status `json:"status"`
}

func (a *API) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		http.Error(w, `{"error":"ids are required"}`, http.StatusBadRequest)
		return
	}

	n, err := a.svc.BulkUpdateStatus(r.Context(), req.IDs, req.Status)
	switch {
	case errors.Is(err, pipeline.ErrInvalidStatus):
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
		return
	case err != nil:
		a.logger.Error(r.Context(), err, "failed to bulk update status")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"updated": n,
		"status":  req.Status,
	})
}

func (a *API) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("argus.alert.id", id))

	rec, err := a.svc.Reprocess(r.Context(), id)
	switch {
	case errors.Is(err, record.ErrNotFound):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	case errors.Is(err, pipeline.ErrNoProvider):
		http.Error(w, `{"error":"no llm provider configured"}`, http.StatusServiceUnavailable)
		return
	case err != nil:
		a.logger.Error(r.Context(), err, "failed to reprocess alert", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
