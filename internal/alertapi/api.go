// Package alertapi exposes the alert ingestion and management HTTP surface.
package alertapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/pipeline"
	"github.com/linnemanlabs/argus/internal/record"
)

// PipelineService defines the business operations alertapi needs.
type PipelineService interface {
	Process(ctx context.Context, ev *alert.Event) (*pipeline.Outcome, error)
	Reprocess(ctx context.Context, id string) (*record.Record, error)
	Get(ctx context.Context, id string) (*record.Record, bool, error)
	List(ctx context.Context, f record.Filter) ([]*record.Record, error)
	UpdateStatus(ctx context.Context, id string, status record.Status) error
	BulkUpdateStatus(ctx context.Context, ids []string, status record.Status) (int, error)
	Counts(ctx context.Context) (map[record.Status]int, error)
	Stats(ctx context.Context, since time.Time) (*record.Stats, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    PipelineService
}

// New creates a new API handler.
func New(logger log.Logger, svc PipelineService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("pipeline service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/alerts", a.handleIngestAlert)
		r.Get("/alerts", a.handleListAlerts)
		r.Get("/alerts/counts", a.handleCounts)
		r.Get("/alerts/stats", a.handleStats)
		r.Post("/alerts/status", a.handleBulkStatus)
		r.Get("/alerts/{id}", a.handleGetAlert)
		r.Post("/alerts/{id}/status", a.handleUpdateStatus)
		r.Post("/alerts/{id}/reprocess", a.handleReprocess)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
