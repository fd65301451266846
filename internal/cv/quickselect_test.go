package cv

import (
	"math/rand"
	"sort"
	"testing"

	"go.viam.com/test"
)

func TestQuickselectProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for n := 1; n <= 100; n++ {
		samples := make([]float64, n)
		for i := range samples {
			samples[i] = rng.NormFloat64()
		}

		sorted := append([]float64(nil), samples...)
		sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

		for _, rank := range []int{0, n / 5, n / 2, n - 1} {
			work := append([]float64(nil), samples...)
			got := quickselectDescending(work, rank, rng)
			test.That(t, got, test.ShouldEqual, sorted[rank])
			for i := 0; i < rank; i++ {
				test.That(t, work[i], test.ShouldBeGreaterThanOrEqualTo, work[rank])
			}
			for i := rank + 1; i < n; i++ {
				test.That(t, work[i], test.ShouldBeLessThanOrEqualTo, work[rank])
			}
		}
	}
}

func TestRepresentativeConfidence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, ok := representativeConfidence(nil, rng)
	test.That(t, ok, test.ShouldBeFalse)

	v, ok := representativeConfidence([]float64{3}, rng)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 3)

	// Ten samples: rank floor(0.2*10) = 2, the third largest.
	samples := []float64{5, 1, 9, 3, 7, 2, 8, 4, 6, 0}
	v, ok = representativeConfidence(samples, rng)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 7)
}
