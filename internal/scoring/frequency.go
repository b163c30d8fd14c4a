package scoring

import (
	"math"

	"sanctions-risk-engine/internal/stats"
	"sanctions-risk-engine/internal/types"
)

type pairKey struct {
	sender, receiver string
}

type pairDay struct {
	pair pairKey
	date string
}

// FrequencyAnomaly returns, per transaction, how far its pair's count on that day
// lies from the pair's median daily count, scaled by the largest such distance.
// Medians are taken over the days on which the pair transacts.
func FrequencyAnomaly(txns []types.Transaction) []float64 {
	daily := make(map[pairDay]int)
	for _, t := range txns {
		daily[pairDay{pairKey{t.SenderCountry, t.ReceiverCountry}, t.Date()}]++
	}

	perPair := make(map[pairKey][]float64)
	for k, n := range daily {
		perPair[k.pair] = append(perPair[k.pair], float64(n))
	}
	medians := make(map[pairKey]float64, len(perPair))
	for k, counts := range perPair {
		medians[k] = stats.Median(counts)
	}

	diffs := make([]float64, len(txns))
	maxDiff := 0.0
	for i, t := range txns {
		p := pairKey{t.SenderCountry, t.ReceiverCountry}
		d := math.Abs(float64(daily[pairDay{p, t.Date()}]) - medians[p])
		diffs[i] = d
		if d > maxDiff {
			maxDiff = d
		}
	}

	if maxDiff == 0 {
		return diffs
	}
	for i := range diffs {
		diffs[i] /= maxDiff
	}
	return diffs
}
