// Package reduce computes rank-k truncated singular value decompositions.
//
// A Reducer returns the row projection U_k·Σ_k, the component basis V_kᵀ and
// the share of the squared Frobenius norm carried by every component.
// Results are deterministic: the randomized solver draws from a fixed seed and
// component signs are normalized after factorization.
package reduce

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidRank is returned when k is outside [1, min(rows, cols)]
	ErrInvalidRank = errors.New("invalid rank")
	// ErrInvalidMatrix is returned for ragged input
	ErrInvalidMatrix = errors.New("invalid matrix")
	// ErrDecomposition is returned when the factorization does not converge
	ErrDecomposition = errors.New("decomposition failed")
)

// Solver selects the factorization strategy
type Solver string

const (
	SolverAuto       Solver = "auto"
	SolverExact      Solver = "exact"
	SolverRandomized Solver = "randomized"
)

// ParseSolver validates a solver name. The empty string means auto.
func ParseSolver(name string) (Solver, error) {
	switch Solver(name) {
	case "", SolverAuto:
		return SolverAuto, nil
	case SolverExact, SolverRandomized:
		return Solver(name), nil
	default:
		return "", fmt.Errorf("unknown solver %q", name)
	}
}

// Options configures a Reducer
type Options struct {
	Solver Solver
	// RandomizedThreshold is the min(rows, cols) above which auto picks the randomized solver
	RandomizedThreshold int
	PowerIterations     int
	Oversamples         int
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		Solver:              SolverAuto,
		RandomizedThreshold: 500,
		PowerIterations:     5,
		Oversamples:         10,
	}
}

// Result is a rank-k factorization of a rows × cols matrix
type Result struct {
	Vectors                [][]float64 // rows × k
	Components             [][]float64 // k × cols
	ExplainedVarianceRatio []float64   // length k, non-increasing
	SingularValues         []float64   // length k, non-increasing
	Solver                 Solver
}

// Reducer performs truncated decompositions. It holds no per-call state and
// may be shared between goroutines.
type Reducer struct {
	opts Options
}

// New creates a Reducer, filling unset option fields with defaults. Zero
// PowerIterations is a valid setting; only negative values are replaced.
func New(opts Options) *Reducer {
	def := DefaultOptions()
	if opts.Solver == "" {
		opts.Solver = def.Solver
	}
	if opts.RandomizedThreshold <= 0 {
		opts.RandomizedThreshold = def.RandomizedThreshold
	}
	if opts.PowerIterations < 0 {
		opts.PowerIterations = def.PowerIterations
	}
	if opts.Oversamples <= 0 {
		opts.Oversamples = def.Oversamples
	}
	return &Reducer{opts: opts}
}

// Options returns the effective options
func (r *Reducer) Options() Options {
	return r.opts
}

// ValidateRank checks 1 <= k <= min(rows, cols)
func ValidateRank(rows, cols, k int) error {
	limit := min(rows, cols)
	if limit < 1 {
		return fmt.Errorf("%w: n_components=%d but the matrix is %dx%d, no valid rank exists", ErrInvalidRank, k, rows, cols)
	}
	if k < 1 || k > limit {
		return fmt.Errorf("%w: n_components=%d must be in [1, %d] for a %dx%d matrix", ErrInvalidRank, k, limit, rows, cols)
	}
	return nil
}

// Dims returns the shape of m, rejecting ragged rows
func Dims(m [][]float64) (int, int, error) {
	rows := len(m)
	if rows == 0 {
		return 0, 0, nil
	}
	cols := len(m[0])
	for i, row := range m {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), cols)
		}
	}
	return rows, cols, nil
}

// Reduce factorizes m and keeps the k leading components
func (r *Reducer) Reduce(m [][]float64, k int) (*Result, error) {
	rows, cols, err := Dims(m)
	if err != nil {
		return nil, err
	}
	if err := ValidateRank(rows, cols, k); err != nil {
		return nil, err
	}

	data := make([]float64, 0, rows*cols)
	for _, row := range m {
		data = append(data, row...)
	}
	total := floats.Dot(data, data)
	a := mat.NewDense(rows, cols, data)

	solver := r.solverFor(rows, cols)
	var f *factors
	switch solver {
	case SolverRandomized:
		f, err = r.randomized(a, k)
	default:
		f, err = exact(a)
	}
	if err != nil {
		return nil, err
	}
	f.normalizeSigns()

	return f.truncate(k, total, solver), nil
}

func (r *Reducer) solverFor(rows, cols int) Solver {
	if r.opts.Solver != SolverAuto {
		return r.opts.Solver
	}
	if min(rows, cols) > r.opts.RandomizedThreshold {
		return SolverRandomized
	}
	return SolverExact
}

// factors is a thin factorization A ≈ U·diag(S)·Vᵀ
type factors struct {
	u *mat.Dense // rows × r
	s []float64  // r
	v *mat.Dense // cols × r
}

func exact(a mat.Matrix) (*factors, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, ErrDecomposition
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	return &factors{u: &u, s: svd.Values(nil), v: &v}, nil
}

// normalizeSigns flips each component so its largest-magnitude entry is positive
func (f *factors) normalizeSigns() {
	uRows, n := f.u.Dims()
	vRows, _ := f.v.Dims()
	col := make([]float64, vRows)
	for j := 0; j < n; j++ {
		mat.Col(col, j, f.v)
		idx := 0
		for i := range col {
			if math.Abs(col[i]) > math.Abs(col[idx]) {
				idx = i
			}
		}
		if col[idx] >= 0 {
			continue
		}
		for i := 0; i < vRows; i++ {
			f.v.Set(i, j, -f.v.At(i, j))
		}
		for i := 0; i < uRows; i++ {
			f.u.Set(i, j, -f.u.At(i, j))
		}
	}
}

func (f *factors) truncate(k int, total float64, solver Solver) *Result {
	rows, _ := f.u.Dims()
	cols, _ := f.v.Dims()

	vectors := make([][]float64, rows)
	for i := range vectors {
		vectors[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			vectors[i][j] = f.u.At(i, j) * f.s[j]
		}
	}

	components := make([][]float64, k)
	for j := range components {
		components[j] = make([]float64, cols)
		mat.Col(components[j], j, f.v)
	}

	singular := make([]float64, k)
	copy(singular, f.s[:k])

	ratios := make([]float64, k)
	if total > 0 {
		for j := range ratios {
			ratios[j] = math.Min(1, singular[j]*singular[j]/total)
		}
	}

	return &Result{
		Vectors:                vectors,
		Components:             components,
		ExplainedVarianceRatio: ratios,
		SingularValues:         singular,
		Solver:                 solver,
	}
}
