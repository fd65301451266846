package matching

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func nan() float64 { return math.NaN() }

func TestMaximumMatchingBasic(t *testing.T) {
	assign, ok := MaximumMatching(mat.NewDense(3, 3, []float64{
		-8, -4, -7,
		-6, -2, -3,
		-9, -4, -8,
	}))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, assign, test.ShouldResemble, []int{0, 2, 1})

	assign, ok = MaximumMatching(mat.NewDense(3, 3, []float64{
		100, 110, 90,
		95, 130, 75,
		95, 140, 65,
	}))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, assign, test.ShouldResemble, []int{2, 0, 1})

	assign, ok = MaximumMatching(mat.NewDense(1, 1, []float64{-5}))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, assign, test.ShouldResemble, []int{0})
}

func TestMaximumMatchingForbidden(t *testing.T) {
	assign, ok := MaximumMatching(mat.NewDense(3, 3, []float64{
		nan(), -4, -7,
		-6, -2, -3,
		-9, -4, -8,
	}))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, assign, test.ShouldResemble, []int{1, 2, 0})

	// Column 0 entirely forbidden: no perfect matching exists.
	_, ok = MaximumMatching(mat.NewDense(3, 3, []float64{
		nan(), -4, -7,
		nan(), -2, -3,
		nan(), -4, -8,
	}))
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = MaximumMatching(mat.NewDense(1, 1, []float64{nan()}))
	test.That(t, ok, test.ShouldBeFalse)
}

func TestMaximumMatchingEmpty(t *testing.T) {
	assign, ok := MaximumMatching(nil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, assign, test.ShouldResemble, []int{})
}

// bruteForceTotal finds the best perfect matching total by trying every
// permutation. A NaN edge makes the whole total NaN, dropping that matching.
func bruteForceTotal(costs *mat.Dense) (float64, bool) {
	n, _ := costs.Dims()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	best := math.Inf(-1)
	var walk func(k int)
	walk = func(k int) {
		if k == n {
			total := 0.0
			for i, j := range perm {
				total += costs.At(i, j)
			}
			if total > best {
				best = total
			}
			return
		}
		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			walk(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	walk(0)
	return best, !math.IsInf(best, -1)
}

// Random matrices small enough to check against every permutation. Potential
// shifts must not leave stale tight edges behind, or some of these come back
// feasible but short of the maximum total.
func TestMaximumMatchingBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1312))
	for trial := 0; trial < 5000; trial++ {
		n := 2 + rng.Intn(5)
		data := make([]float64, n*n)
		for i := range data {
			if rng.Float64() < 0.2 {
				data[i] = math.NaN()
			} else {
				data[i] = (rng.Float64() - 0.5) * 2e6
			}
		}
		costs := mat.NewDense(n, n, data)

		want, feasible := bruteForceTotal(costs)
		assign, ok := MaximumMatching(costs)
		test.That(t, ok, test.ShouldEqual, feasible)
		if !ok {
			continue
		}

		got := 0.0
		seen := make([]bool, n)
		for i, j := range assign {
			test.That(t, math.IsNaN(costs.At(i, j)), test.ShouldBeFalse)
			test.That(t, seen[j], test.ShouldBeFalse)
			seen[j] = true
			got += costs.At(i, j)
		}
		test.That(t, got, test.ShouldAlmostEqual, want, 1e-6)
	}
}

// Large cost magnitudes make float-equality tightness checks fail; the
// explicit tightness matrix has to get this matrix right.
func TestMaximumMatchingLargeMagnitudes(t *testing.T) {
	assign, ok := MaximumMatching(mat.NewDense(8, 8, []float64{
		3052265.763914855, 3051048.084988203, 45.073006316285735, 1294345.8137656434,
		5898072.435256591, 3052675.829981847, 1552774.9128819676, 1552728.4503640207,

		1156951.093342854, 1.134599964850414, 7649154.094641632, 555734.4444284381,
		1157008.9535065796, 7649155.83921888, 7649157.015021505, 60.438339297708175,

		5319458.202466325, 926169.1991026127, 926220.7540678747, 4295463.453554934,
		4295465.153555874, 97878.14460299305, 704.6096895474138, 4295464.157698463,

		63461.42078957725, 36361925.9918591, 47703556.83654001, 11278226.089127451,
		52.97836939994223, 36361927.55345198, 36361925.568258174, 11278278.652790288,

		7517468.676308601, 7517450.04143544, 18214.102036218326, 4310.718371037171,
		51338675.91309436, 58874333.48451123, 51338675.4767505, 51338699.67340185,

		1147.390857123671, 6201064.561333844, 40616550.60643597, 40616608.0936402,
		591904.5930478168, 6201064.099499533, 47409452.10109716, 40617694.52826714,

		2676939.97975629, 1677575.6585671527, 2651885.0775300157, 7006362.661739242,
		2676942.307682288, 461.4718209297044, 2651920.0537068467, 2676938.803695033,

		575002.1259626774, 92.45961702099193, 439769.85429266735, 575000.5004559389,
		8948930.829434488, 8949021.402547736, 8948930.640305543, 9963609.14817566,
	}))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, assign, test.ShouldResemble, []int{4, 1, 0, 2, 5, 6, 3, 7})
}
