package correlate

import (
	"time"

	"github.com/linnemanlabs/argus/internal/alert"
	"github.com/linnemanlabs/argus/internal/similarity"
)

// NeutralRiskScore is returned when no neighbors exist: the middle of the
// 1..10 scale, with confidence well below 0.5.
const (
	NeutralRiskScore  = 5.0
	NeutralConfidence = 0.1
)

// Scorer derives a risk score and confidence from a neighbor set. Pluggable
// so a learned model can replace the heuristic without touching the engine.
type Scorer interface {
	Score(neighbors []similarity.Neighbor, now time.Time) (risk, confidence float64)
}

// HeuristicScorer is the default weighted-factor scorer:
//
//	a = mean neighbor priority weight on the 2..16 scale
//	b = min(10, neighbors seen in the last 7 days / 2)
//	c = min(5, distinct neighbor sources)
//	risk = clamp(0.5a + 0.3b + 0.2c, 1, 10)
//	confidence = min(1, n/20)
type HeuristicScorer struct{}

// Score implements Scorer.
func (HeuristicScorer) Score(neighbors []similarity.Neighbor, now time.Time) (float64, float64) {
	if len(neighbors) == 0 {
		return NeutralRiskScore, NeutralConfidence
	}

	var weightSum float64
	recent := 0
	sources := map[string]struct{}{}
	cutoff := now.Add(-7 * 24 * time.Hour)

	for _, n := range neighbors {
		weightSum += alert.Weight(n.Priority)
		if n.CreatedAt.After(cutoff) {
			recent++
		}
		if n.Source != "" {
			sources[n.Source] = struct{}{}
		}
	}

	a := weightSum / float64(len(neighbors))
	b := min(10, float64(recent)/2)
	c := min(5, float64(len(sources)))

	risk := clamp(0.5*a+0.3*b+0.2*c, 1, 10)
	confidence := min(1, float64(len(neighbors))/20)
	return risk, confidence
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
