package questions

import (
	"math/rand/v2"
)

// Pick chooses one candidate for q. Excluded ids are removed; if any
// remaining candidate matches the preferred difficulty, only those are kept.
// The choice is weighted by topic weight. Pick returns nil when nothing is
// eligible.
func Pick(candidates []*Record, q Query, rng *rand.Rand) *Record {
	eligible := make([]*Record, 0, len(candidates))
	for _, r := range candidates {
		if !q.Exclude[r.ID] {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	if q.Difficulty != "" {
		var preferred []*Record
		for _, r := range eligible {
			if r.Difficulty == q.Difficulty {
				preferred = append(preferred, r)
			}
		}
		if len(preferred) > 0 {
			eligible = preferred
		}
	}

	total := 0.0
	weights := make([]float64, len(eligible))
	for i, r := range eligible {
		w := 1.0
		if tw, ok := q.Weights[r.Topic]; ok && tw > 0 {
			w = tw
		}
		weights[i] = w
		total += w
	}

	x := rng.Float64() * total
	for i, w := range weights {
		if x < w {
			return eligible[i]
		}
		x -= w
	}
	return eligible[len(eligible)-1]
}

// WeightsFromAccuracy turns weak-topic accuracies into selection weights:
// a weak topic weighs 1 + boost*(1-accuracy), so the weakest topics are
// favoured while every other topic keeps weight 1.
func WeightsFromAccuracy(weak map[string]float64, boost float64) map[string]float64 {
	if len(weak) == 0 || boost <= 0 {
		return nil
	}
	w := make(map[string]float64, len(weak))
	for topic, acc := range weak {
		acc = min(max(acc, 0), 1)
		w[topic] = 1 + boost*(1-acc)
	}
	return w
}
