package reduce

import (
	"math/rand"

	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

// randomSeed seeds the Gaussian test matrix of the randomized solver.
const randomSeed = 0

// randomized approximates the leading singular triplets with a Gaussian
// range finder and power iterations, then factorizes the small projection
// B = Qᵀ·A exactly.
func (r *Reducer) randomized(a *mat.Dense, k int) (*factors, error) {
	rows, cols := a.Dims()
	l := min(k+r.opts.Oversamples, rows, cols)

	rng := rand.New(rand.NewSource(randomSeed))
	omega := mat.NewDense(cols, l, nil)
	for i := 0; i < cols; i++ {
		for j := 0; j < l; j++ {
			omega.Set(i, j, rng.NormFloat64())
		}
	}

	var y mat.Dense
	y.Mul(a, omega)
	q := orthonormalize(&y)
	for it := 0; it < r.opts.PowerIterations; it++ {
		var z mat.Dense
		z.Mul(a.T(), q)
		zq := orthonormalize(&z)
		y.Reset()
		y.Mul(a, zq)
		q = orthonormalize(&y)
	}

	var b mat.Dense
	b.Mul(q.T(), a)
	small, err := exact(&b)
	if err != nil {
		return nil, err
	}

	var u mat.Dense
	u.Mul(q, small.u)
	return &factors{u: &u, s: small.s, v: small.v}, nil
}

// orthonormalize returns the thin Q factor of m (rows × cols, rows >= cols)
// without forming the full rows × rows Q.
func orthonormalize(m *mat.Dense) *mat.Dense {
	q := mat.DenseCopyOf(m)
	a := q.RawMatrix()
	tau := make([]float64, a.Cols)

	work := make([]float64, 1)
	lapack64.Geqrf(a, tau, work, -1)
	work = make([]float64, max(a.Cols, int(work[0])))
	lapack64.Geqrf(a, tau, work, len(work))

	lapack64.Orgqr(a, tau, work[:1], -1)
	if n := max(a.Cols, int(work[0])); n > len(work) {
		work = make([]float64, n)
	}
	lapack64.Orgqr(a, tau, work, len(work))
	return q
}
