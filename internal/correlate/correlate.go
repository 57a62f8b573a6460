// Package correlate compares a new alert against the historical corpus via
// similarity search and derives risk score, threat category, and predicted
// attack progression. Everything is a pure function of (alert, neighbors,
// now); the only external call is the similarity provider lookup.
package correlate

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/similarity"
)

// RankedNeighbor is a neighbor summary with its similarity score, ordered as
// returned by the provider.
type RankedNeighbor struct {
	Rule      string  `json:"rule"`
	Priority  string  `json:"priority"`
	Source    string  `json:"source"`
	Summary   string  `json:"summary"`
	Certainty float64 `json:"certainty"`
}

// Context is the correlation result for one alert. Recomputed fresh per
// request, never persisted on its own.
type Context struct {
	SimilarCount      int              `json:"similar_count"`
	Neighbors         []RankedNeighbor `json:"neighbors"`
	PriorityHistogram map[string]int   `json:"priority_histogram"`
	SourceHistogram   map[string]int   `json:"source_histogram"`
	Insights          []string         `json:"insights"`
	RiskScore         float64          `json:"risk_score"`
	Confidence        float64          `json:"confidence"`
	ThreatCategory    Category         `json:"threat_category"`
	AttackChain       []Phase          `json:"attack_chain"`
}

// Config tunes the similarity lookup.
type Config struct {
	Limit     int
	Certainty float64
	Timeout   time.Duration
}

// Engine queries the similarity provider and assembles correlation context.
type Engine struct {
	provider similarity.Provider
	scorer   Scorer
	cfg      Config
	logger   log.Logger
}

// NewEngine creates a correlation engine. A nil scorer selects the default
// heuristic.
func NewEngine(provider similarity.Provider, scorer Scorer, cfg Config, logger log.Logger) *Engine {
	if scorer == nil {
		scorer = HeuristicScorer{}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Certainty <= 0 {
		cfg.Certainty = 0.6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{provider: provider, scorer: scorer, cfg: cfg, logger: logger}
}

// Analyze queries for historical neighbors of the alert and derives the
// correlation context. A provider failure is returned as an error; the
// caller degrades to no context. Zero neighbors is a defined result, not an
// error.
func (e *Engine) Analyze(ctx context.Context, ev *alert.Event, now time.Time) (*Context, error) {
	query := ev.Rule + " " + ev.Output

	sctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	neighbors, err := e.provider.Search(sctx, query, e.cfg.Limit, e.cfg.Certainty)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	return Build(ev, neighbors, e.scorer, now), nil
}

// Build assembles a Context from an alert and its neighbors. Pure.
func Build(ev *alert.Event, neighbors []similarity.Neighbor, scorer Scorer, now time.Time) *Context {
	if scorer == nil {
		scorer = HeuristicScorer{}
	}

	cat := Classify(ev.Rule + " " + ev.Output)
	risk, confidence := scorer.Score(neighbors, now)

	cc := &Context{
		SimilarCount:      len(neighbors),
		Neighbors:         make([]RankedNeighbor, 0, len(neighbors)),
		PriorityHistogram: map[string]int{},
		SourceHistogram:   map[string]int{},
		RiskScore:         risk,
		Confidence:        confidence,
		ThreatCategory:    cat,
	}

	if len(neighbors) == 0 {
		cc.Insights = []string{"no similar alerts found"}
		cc.AttackChain = []Phase{}
		return cc
	}

	for _, n := range neighbors {
		cc.Neighbors = append(cc.Neighbors, RankedNeighbor{
			Rule:      n.Rule,
			Priority:  n.Priority,
			Source:    n.Source,
			Summary:   summarize(n.Output),
			Certainty: n.Certainty,
		})
		cc.PriorityHistogram[n.Priority]++
		if n.Source != "" {
			cc.SourceHistogram[n.Source]++
		}
	}

	cc.AttackChain = PredictChain(cat)
	cc.Insights = insights(ev, neighbors, cc.PriorityHistogram)
	return cc
}

// insights generates short natural-language notes about the neighbor set.
func insights(ev *alert.Event, neighbors []similarity.Neighbor, priorities map[string]int) []string {
	var out []string

	if len(neighbors) >= 2 {
		out = append(out, fmt.Sprintf(
			"recurring pattern: %d similar alerts match %q", len(neighbors), ev.Rule))
	}

	if major, count := majority(priorities); major != "" {
		out = append(out, fmt.Sprintf(
			"most similar alerts were %s priority (%d of %d)", major, count, len(neighbors)))
	}

	return out
}

// majority returns the priority held by more than half the neighbors, if any.
// Ties on exactly half do not qualify.
func majority(hist map[string]int) (string, int) {
	total := 0
	for _, c := range hist {
		total += c
	}
	for p, c := range hist {
		if c*2 > total {
			return p, c
		}
	}
	return "", 0
}

const summaryLen = 120

func summarize(output string) string {
	if len(output) <= summaryLen {
		return output
	}
	return output[:summaryLen-3] + "..."
}
