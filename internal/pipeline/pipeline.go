// Package pipeline orchestrates the alert enrichment flow: admission,
// deduplication, LLM explanation, historical correlation, and delivery.
// Every inbound event terminates in a defined outcome; panics and stage
// errors degrade the result instead of escaping.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/argus/internal/admit"
	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/correlate"
	"github.com/linnemanlabs/argus/internal/deliver"
	"github.com/linnemanlabs/argus/internal/explain"
	"github.com/linnemanlabs/argus/internal/llm"
	"github.com/linnemanlabs/argus/internal/notify"
	"github.com/linnemanlabs/argus/internal/record"
)

// Terminal outcomes that never reach delivery. Delivery outcomes reuse the
// deliver package statuses.
const (
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
)

// ErrNoProvider is returned by Reprocess when no LLM provider is configured.
var ErrNoProvider = errors.New("no llm provider configured")

// ErrInvalidStatus rejects status values outside the record vocabulary.
var ErrInvalidStatus = errors.New("invalid status")

const reprocessStripes = 64

const tracerName = "github.com/linnemanlabs/argus/internal/pipeline"

// Outcome is the terminal result of one pipeline pass, returned to the
// webhook caller.
type Outcome struct {
	Status   string             `json:"status"`
	Reason   string             `json:"reason,omitempty"`
	Count    int                `json:"count,omitempty"`
	ID       string             `json:"id,omitempty"`
	Channels []deliver.Outcome  `json:"channels,omitempty"`
	Analysis *correlate.Context `json:"analysis,omitempty"`
}

// Config tunes the enrichment stages.
type Config struct {
	LLMTimeout  time.Duration
	MaxTokens   int
	Temperature float64
}

// Service is the business boundary for pipeline operations.
type Service struct {
	filter   *admit.Filter
	deduper  *admit.Deduper
	provider llm.Provider      // nil disables enrichment
	engine   *correlate.Engine // nil disables correlation
	coord    *deliver.Coordinator
	store    record.Store
	cfg      Config
	metrics  *Metrics
	logger   log.Logger

	// reprocess is serialized per alert id
	locks [reprocessStripes]sync.Mutex
}

// NewService creates a pipeline service. provider, engine, and metrics may
// be nil; logger may be nil.
func NewService(
	filter *admit.Filter,
	deduper *admit.Deduper,
	provider llm.Provider,
	engine *correlate.Engine,
	coord *deliver.Coordinator,
	store record.Store,
	cfg Config,
	metrics *Metrics,
	logger log.Logger,
) *Service {
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		filter:   filter,
		deduper:  deduper,
		provider: provider,
		engine:   engine,
		coord:    coord,
		store:    store,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// Process runs one event through the full pipeline. The returned error is
// reserved for persistence failures and recovered panics; every filtered or
// degraded path is a defined Outcome.
func (s *Service) Process(ctx context.Context, ev *alert.Event) (out *Outcome, err error) {
	stage := "admit"
	defer func() {
		if r := recover(); r != nil {
			if s.metrics != nil {
				s.metrics.PanicsRecovered.Inc()
			}
			s.logger.Error(ctx, fmt.Errorf("panic: %v", r), "pipeline panic recovered",
				"rule", ev.Rule, "stage", stage)
			out = nil
			err = fmt.Errorf("pipeline panic at stage %s: %v", stage, r)
		}
		if out != nil && s.metrics != nil {
			s.metrics.EventsTotal.WithLabelValues(out.Status).Inc()
		}
	}()

	now := time.Now()

	dec := s.filter.Check(ev, now)
	if dec.UnknownPriority {
		s.logger.Warn(ctx, "unknown priority, admitting",
			"rule", ev.Rule, "priority", ev.Priority)
	}
	if !dec.Accept {
		return &Outcome{Status: OutcomeIgnored, Reason: dec.Reason}, nil
	}

	if s.deduper != nil {
		if dd, count := s.deduper.Observe(ev.Rule, ev.Output, now); !dd.Accept {
			if s.metrics != nil {
				s.metrics.DedupHitsTotal.Inc()
			}
			return &Outcome{Status: OutcomeDuplicate, Count: count}, nil
		}
	}

	// Once admitted, the event must be enriched and delivered even if the
	// webhook caller disconnects.
	ctx = context.WithoutCancel(ctx)

	rec := newRecord(ev, now)

	stage = "explain"
	var enrichErr error
	if s.provider != nil {
		ex, exErr := s.explain(ctx, ev)
		if exErr != nil {
			enrichErr = exErr
			s.logger.Warn(ctx, "enrichment degraded",
				"rule", ev.Rule, "provider", s.provider.Name(), "error", exErr.Error())
		} else {
			rec.Explanation = ex
			rec.Processed = true
		}
	}

	stage = "correlate"
	var cc *correlate.Context
	if s.engine != nil {
		start := time.Now()
		ac, acErr := s.engine.Analyze(ctx, ev, now)
		if acErr != nil {
			s.logger.Warn(ctx, "correlation degraded",
				"rule", ev.Rule, "error", acErr.Error())
			ac = correlate.Build(ev, nil, nil, now)
		}
		cc = ac
		if s.metrics != nil {
			s.metrics.StageDuration.WithLabelValues("correlate").Observe(time.Since(start).Seconds())
			s.metrics.CorrelationRisk.Observe(cc.RiskScore)
			s.metrics.SimilarNeighbors.Observe(float64(cc.SimilarCount))
		}
	}

	stage = "deliver"
	dres, err := s.coord.Deliver(ctx, &notify.Message{
		Record:   rec,
		Analysis: cc,
		Err:      enrichErr,
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.DeliveriesTotal.WithLabelValues(string(dres.Status)).Inc()
	}

	s.logger.Info(ctx, "alert processed",
		"alert_id", rec.ID,
		"rule", ev.Rule,
		"priority", ev.Priority,
		"status", string(dres.Status),
		"processed", rec.Processed,
	)

	return &Outcome{
		Status:   string(dres.Status),
		ID:       rec.ID,
		Channels: dres.Outcomes,
		Analysis: cc,
	}, nil
}

// Reprocess re-enriches an existing record, overwriting its explanation.
// Calls for the same id are serialized.
func (s *Service) Reprocess(ctx context.Context, id string) (*record.Record, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}

	lock := &s.locks[stripe(id)]
	lock.Lock()
	defer lock.Unlock()

	rec, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if !ok {
		return nil, record.ErrNotFound
	}

	ev := &alert.Event{
		Rule:         rec.Rule,
		Priority:     rec.Priority,
		Output:       rec.Output,
		Time:         rec.Timestamp.UTC().Format(time.RFC3339),
		Source:       rec.Source,
		OutputFields: rec.Fields,
	}

	ex, err := s.explain(ctx, ev)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ReprocessTotal.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("reprocess %s: %w", id, err)
	}

	if err := s.store.SetExplanation(ctx, id, ex, true); err != nil {
		return nil, fmt.Errorf("persist explanation: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ReprocessTotal.WithLabelValues("success").Inc()
	}

	rec.Explanation = ex
	rec.Processed = true
	return rec, nil
}

// Get retrieves a stored record by id.
func (s *Service) Get(ctx context.Context, id string) (*record.Record, bool, error) {
	return s.store.Get(ctx, id)
}

// List returns stored records matching the filter, newest first.
func (s *Service) List(ctx context.Context, f record.Filter) ([]*record.Record, error) {
	return s.store.List(ctx, f)
}

// UpdateStatus sets the status of one record.
func (s *Service) UpdateStatus(ctx context.Context, id string, status record.Status) error {
	if !record.ValidStatus(status) {
		return ErrInvalidStatus
	}
	return s.store.UpdateStatus(ctx, id, status)
}

// BulkUpdateStatus sets the status of many records, returning how many
// matched.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status record.Status) (int, error) {
	if !record.ValidStatus(status) {
		return 0, ErrInvalidStatus
	}
	return s.store.BulkUpdateStatus(ctx, ids, status)
}

// Counts returns the number of records per status.
func (s *Service) Counts(ctx context.Context) (map[record.Status]int, error) {
	return s.store.CountByStatus(ctx)
}

// Stats aggregates record counts by priority and rule since the given time.
func (s *Service) Stats(ctx context.Context, since time.Time) (*record.Stats, error) {
	return s.store.Stats(ctx, since)
}

func (s *Service) explain(ctx context.Context, ev *alert.Event) (*explain.Explanation, error) {
	// Resolve the tracer per call: a package-level tracer binds to whichever
	// provider is global at first use and never rebinds.
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm.call", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "llm.call"),
		attribute.String("gen_ai.provider.name", s.provider.Name()),
		attribute.String("argus.alert.rule", ev.Rule),
	))
	defer span.End()

	cctx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.provider.Generate(cctx, &llm.Request{
		System:      buildSystemPrompt(),
		Prompt:      buildUserPrompt(ev),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.metrics.LLMCallsTotal.WithLabelValues(s.provider.Name(), result).Inc()
		s.metrics.LLMDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm generate failed")
		return nil, fmt.Errorf("llm generate: %w", err)
	}
	return explain.Parse(raw, s.provider.Name())
}

// newRecord snapshots the event into a persistent record. The id is assigned
// at persistence time by the delivery coordinator.
func newRecord(ev *alert.Event, now time.Time) *record.Record {
	ts, ok := alert.ParseTime(ev.Time)
	if !ok {
		ts = now
	}
	return &record.Record{
		Timestamp: ts,
		Rule:      ev.Rule,
		Priority:  ev.Priority,
		Output:    ev.Output,
		Source:    ev.Source,
		Fields:    ev.OutputFields,
		Status:    record.StatusUnread,
	}
}

func stripe(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32() % reprocessStripes
}
