package cv

import (
	"math/rand"
)

// Fraction of the way down the descending order at which the representative
// sits. 0.2 picks a high-but-not-maximal sample, robust to the odd pixel
// that lands dead on a stored point.
const confidencePercentile = 0.2

// representativeConfidence reduces a multiset of per-pixel density samples
// to one value: the order statistic at rank floor(0.2*len) in descending
// order. The slice is partially reordered in place. Reports false on an
// empty sample set.
func representativeConfidence(samples []float64, rng *rand.Rand) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	rank := int(confidencePercentile * float64(len(samples)))
	return quickselectDescending(samples, rank, rng), true
}

// quickselectDescending returns the element that would sit at index k if s
// were sorted in descending order, using randomized pivots for expected
// linear time.
func quickselectDescending(s []float64, k int, rng *rand.Rand) float64 {
	lo, hi := 0, len(s)
	for {
		if hi-lo == 1 {
			return s[lo]
		}
		p := partitionDescending(s, lo, hi, lo+rng.Intn(hi-lo))
		switch {
		case k == p:
			return s[p]
		case k < p:
			hi = p
		default:
			lo = p + 1
		}
	}
}

// partitionDescending moves everything strictly greater than the pivot value
// before it and returns the pivot's final index.
func partitionDescending(s []float64, lo, hi, pivot int) int {
	v := s[pivot]
	s[pivot], s[hi-1] = s[hi-1], s[pivot]
	i := lo
	for j := lo; j < hi-1; j++ {
		if s[j] > v {
			s[i], s[j] = s[j], s[i]
			i++
		}
	}
	s[i], s[hi-1] = s[hi-1], s[i]
	return i
}
