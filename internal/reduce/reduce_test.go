package reduce_test

import (
	"math"
	"math/rand"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/textvec/internal/reduce"
)

func sampleMatrix(rows, cols int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = rng.Float64()
		}
	}
	return m
}

func TestValidateRank(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		k          int
		valid      bool
	}{
		{"Lower bound", 3, 4, 1, true},
		{"Upper bound", 3, 4, 3, true},
		{"Zero", 3, 4, 0, false},
		{"Negative", 3, 4, -2, false},
		{"Above min", 2, 7, 5, false},
		{"Empty matrix", 2, 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reduce.ValidateRank(tt.rows, tt.cols, tt.k)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, reduce.ErrInvalidRank)
			}
		})
	}
}

func TestValidateRank_MessageNamesRange(t *testing.T) {
	err := reduce.ValidateRank(2, 9, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1, 2]")
}

func TestReduce_RaggedMatrix(t *testing.T) {
	r := reduce.New(reduce.DefaultOptions())
	_, err := r.Reduce([][]float64{{1, 2}, {3}}, 1)
	assert.ErrorIs(t, err, reduce.ErrInvalidMatrix)
}

func TestReduce_ShapesAndRatios(t *testing.T) {
	for _, solver := range []reduce.Solver{reduce.SolverExact, reduce.SolverRandomized} {
		t.Run(string(solver), func(t *testing.T) {
			r := reduce.New(reduce.Options{Solver: solver})
			m := sampleMatrix(6, 9, 7)

			res, err := r.Reduce(m, 3)
			require.NoError(t, err)
			assert.Equal(t, solver, res.Solver)

			require.Len(t, res.Vectors, 6)
			for _, row := range res.Vectors {
				assert.Len(t, row, 3)
			}
			require.Len(t, res.Components, 3)
			for _, row := range res.Components {
				assert.Len(t, row, 9)
			}
			require.Len(t, res.ExplainedVarianceRatio, 3)

			sum := 0.0
			for i, ratio := range res.ExplainedVarianceRatio {
				assert.GreaterOrEqual(t, ratio, 0.0)
				assert.LessOrEqual(t, ratio, 1.0)
				if i > 0 {
					assert.LessOrEqual(t, ratio, res.ExplainedVarianceRatio[i-1])
				}
				sum += ratio
			}
			assert.LessOrEqual(t, sum, 1.0+1e-9)
		})
	}
}

func TestReduce_FullRankReconstructs(t *testing.T) {
	r := reduce.New(reduce.Options{Solver: reduce.SolverExact})
	m := [][]float64{{3, 0}, {0, 2}, {0, 0}}

	res, err := r.Reduce(m, 2)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{3, 2}, res.SingularValues, 1e-12)
	assert.InDeltaSlice(t, []float64{9.0 / 13.0, 4.0 / 13.0}, res.ExplainedVarianceRatio, 1e-12)

	// Vectors·Components == m at full rank
	for i := range m {
		for j := range m[i] {
			v := 0.0
			for c := 0; c < 2; c++ {
				v += res.Vectors[i][c] * res.Components[c][j]
			}
			assert.InDelta(t, m[i][j], v, 1e-9)
		}
	}
}

func TestReduce_SignNormalized(t *testing.T) {
	r := reduce.New(reduce.Options{Solver: reduce.SolverExact})
	res, err := r.Reduce(sampleMatrix(5, 4, 3), 2)
	require.NoError(t, err)

	for _, comp := range res.Components {
		largest := 0.0
		for _, v := range comp {
			if math.Abs(v) > math.Abs(largest) {
				largest = v
			}
		}
		assert.Greater(t, largest, 0.0)
	}
}

func TestReduce_Deterministic(t *testing.T) {
	m := sampleMatrix(12, 20, 11)
	for _, solver := range []reduce.Solver{reduce.SolverExact, reduce.SolverRandomized} {
		first, err := reduce.New(reduce.Options{Solver: solver}).Reduce(m, 4)
		require.NoError(t, err)
		second, err := reduce.New(reduce.Options{Solver: solver}).Reduce(m, 4)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestReduce_RandomizedMatchesExact(t *testing.T) {
	m := sampleMatrix(15, 10, 5)
	ex, err := reduce.New(reduce.Options{Solver: reduce.SolverExact}).Reduce(m, 3)
	require.NoError(t, err)
	rnd, err := reduce.New(reduce.Options{Solver: reduce.SolverRandomized}).Reduce(m, 3)
	require.NoError(t, err)

	// oversampling covers the full rank here, so the solvers agree
	assert.InDeltaSlice(t, ex.SingularValues, rnd.SingularValues, 1e-8)
	for i := range ex.Components {
		assert.InDeltaSlice(t, ex.Components[i], rnd.Components[i], 1e-6)
	}
}

func TestReduce_AutoPicksSolverByThreshold(t *testing.T) {
	m := sampleMatrix(4, 4, 1)

	res, err := reduce.New(reduce.Options{Solver: reduce.SolverAuto, RandomizedThreshold: 10}).Reduce(m, 2)
	require.NoError(t, err)
	assert.Equal(t, reduce.SolverExact, res.Solver)

	res, err = reduce.New(reduce.Options{Solver: reduce.SolverAuto, RandomizedThreshold: 3}).Reduce(m, 2)
	require.NoError(t, err)
	assert.Equal(t, reduce.SolverRandomized, res.Solver)
}

func TestReduce_ZeroMatrix(t *testing.T) {
	res, err := reduce.New(reduce.DefaultOptions()).Reduce([][]float64{{0, 0}, {0, 0}}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, res.ExplainedVarianceRatio)
}

func TestParseSolver(t *testing.T) {
	s, err := reduce.ParseSolver("")
	assert.NoError(t, err)
	assert.Equal(t, reduce.SolverAuto, s)

	s, err = reduce.ParseSolver("randomized")
	assert.NoError(t, err)
	assert.Equal(t, reduce.SolverRandomized, s)

	_, err = reduce.ParseSolver("arpack")
	assert.Error(t, err)
}

func TestNew_FillsDefaults(t *testing.T) {
	opts := reduce.New(reduce.Options{Solver: reduce.SolverRandomized}).Options()
	assert.Equal(t, reduce.SolverRandomized, opts.Solver)
	assert.Equal(t, 500, opts.RandomizedThreshold)
	assert.Equal(t, 10, opts.Oversamples)
	assert.Equal(t, 0, opts.PowerIterations)

	opts = reduce.New(reduce.Options{PowerIterations: -1}).Options()
	assert.Equal(t, reduce.SolverAuto, opts.Solver)
	assert.Equal(t, 5, opts.PowerIterations)
}

func TestReduce_RandomizedWideMatrixMemory(t *testing.T) {
	m := sampleMatrix(20, 3000, 7)
	r := reduce.New(reduce.Options{Solver: reduce.SolverRandomized, PowerIterations: 5})

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	res, err := r.Reduce(m, 2)
	runtime.ReadMemStats(&after)
	require.NoError(t, err)

	assert.Len(t, res.Vectors, 20)
	assert.Len(t, res.Components[0], 3000)
	// a single cols × cols Q would take 72 MB
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(32<<20))
}
