package steps

import (
	"math"

	"github.com/yungbote/paperlens-backend/internal/domain"
)

const (
	MaxScore = 5.0
	// TopicMatchWeight is fixed; personalization only redistributes the rest.
	TopicMatchWeight = 0.3
	assessWeightSum  = 1 - TopicMatchWeight
)

type Weights struct {
	Novelty    float64 `json:"novelty"`
	Doability  float64 `json:"doability"`
	TopicMatch float64 `json:"topic_match"`
}

var DefaultWeights = Weights{Novelty: 0.3, Doability: 0.4, TopicMatch: TopicMatchWeight}

// WeightsFor returns the composite weights for a profile. A profile's
// novelty and doability preferences are rescaled to share 0.7 in proportion
// to each other, so topic-match keeps 0.3. Missing, out-of-range or all-zero
// preferences fall back to DefaultWeights.
func WeightsFor(p *domain.StructuredProfile) Weights {
	if p == nil {
		return DefaultWeights
	}
	n, d := p.NoveltyWeight, p.DoabilityWeight
	if !unit(n) || !unit(d) || n+d <= 0 {
		return DefaultWeights
	}
	return Weights{
		Novelty:    assessWeightSum * n / (n + d),
		Doability:  assessWeightSum * d / (n + d),
		TopicMatch: TopicMatchWeight,
	}
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// TopicMatch is 5 * |tags ∩ topics| / |topics| over case-insensitive,
// de-duplicated sets, and 0 when topics is empty.
func TopicMatch(tags, topics []string) float64 {
	want := map[string]bool{}
	for _, t := range topics {
		if k := topicKey(t); k != "" {
			want[k] = true
		}
	}
	if len(want) == 0 {
		return 0
	}
	hit := map[string]bool{}
	for _, t := range tags {
		if k := topicKey(t); want[k] {
			hit[k] = true
		}
	}
	return MaxScore * float64(len(hit)) / float64(len(want))
}

// Composite is the weighted score clamped to [0, 5].
func Composite(novelty, doability, topicMatch float64, w Weights) float64 {
	s := w.Novelty*novelty + w.Doability*doability + w.TopicMatch*topicMatch
	return clamp(s, 0, MaxScore)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
