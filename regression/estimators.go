package regression

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Estimator is a regressor on fixed-width feature rows.
type Estimator interface {
	Fit(x *mat.Dense, y []float64) error
	PredictOne(row []float64) float64
}

// Ridge is a linear regression with an L2 penalty on the slopes. A zero
// Lambda gives ordinary least squares.
type Ridge struct {
	Lambda float64

	coef      []float64
	intercept float64
}

// NewLinear creates an ordinary least squares estimator.
func NewLinear() *Ridge {
	return &Ridge{}
}

// NewRidge creates a ridge estimator with the given penalty.
func NewRidge(lambda float64) *Ridge {
	return &Ridge{Lambda: lambda}
}

// Fit solves the centered normal equations (X'X + lambda*I) b = X'y.
func (r *Ridge) Fit(x *mat.Dense, y []float64) error {
	rows, cols := x.Dims()
	if rows == 0 || rows != len(y) {
		return fmt.Errorf("design has %d rows for %d targets", rows, len(y))
	}

	means := make([]float64, cols)
	for j := range means {
		means[j] = floats.Sum(mat.Col(nil, j, x)) / float64(rows)
	}
	yMean := floats.Sum(y) / float64(rows)

	xc := mat.NewDense(rows, cols, nil)
	xc.Apply(func(_, j int, v float64) float64 { return v - means[j] }, x)
	yc := mat.NewVecDense(rows, nil)
	for i, v := range y {
		yc.SetVec(i, v-yMean)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, xc.T())
	var rhs mat.VecDense
	rhs.MulVec(xc.T(), yc)

	coef, err := solveRidge(&gram, &rhs, r.Lambda)
	if err != nil {
		return err
	}

	r.coef = coef
	r.intercept = yMean - floats.Dot(means, coef)
	return nil
}

// solveRidge factorizes gram + lambda*I, adding jitter when the system is
// singular, as with collinear lag columns of a flat series.
func solveRidge(gram *mat.SymDense, rhs *mat.VecDense, lambda float64) ([]float64, error) {
	n := gram.SymmetricDim()
	trace := 0.0
	for i := 0; i < n; i++ {
		trace += gram.At(i, i)
	}
	jitter := 0.0
	for attempt := 0; attempt < 4; attempt++ {
		a := mat.NewSymDense(n, nil)
		a.CopySym(gram)
		for i := 0; i < n; i++ {
			a.SetSym(i, i, a.At(i, i)+lambda+jitter)
		}

		var chol mat.Cholesky
		if chol.Factorize(a) {
			var sol mat.VecDense
			if err := chol.SolveVecTo(&sol, rhs); err == nil {
				return mat.Col(nil, 0, &sol), nil
			}
		}
		jitter = max(jitter*100, 1e-10*(trace/float64(n)+1))
	}
	return nil, errors.New("normal equations are singular")
}

// PredictOne returns the prediction for a single feature row.
func (r *Ridge) PredictOne(row []float64) float64 {
	return r.intercept + floats.Dot(r.coef, row)
}

// KNN predicts the mean target of the K nearest training rows by Euclidean
// distance. Ties keep training order.
type KNN struct {
	K int

	rows    [][]float64
	targets []float64
}

// NewKNN creates a k-nearest-neighbour estimator.
func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

// Fit stores a copy of the training rows.
func (k *KNN) Fit(x *mat.Dense, y []float64) error {
	rows, _ := x.Dims()
	if rows == 0 || rows != len(y) {
		return fmt.Errorf("design has %d rows for %d targets", rows, len(y))
	}
	k.rows = make([][]float64, rows)
	for i := range k.rows {
		k.rows[i] = mat.Row(nil, i, x)
	}
	k.targets = append([]float64(nil), y...)
	return nil
}

// PredictOne averages the targets of the nearest rows.
func (k *KNN) PredictOne(row []float64) float64 {
	idx := make([]int, len(k.rows))
	dist := make([]float64, len(k.rows))
	for i, r := range k.rows {
		idx[i] = i
		dist[i] = floats.Distance(r, row, 2)
	}
	sort.SliceStable(idx, func(a, b int) bool { return dist[idx[a]] < dist[idx[b]] })

	n := min(max(k.K, 1), len(idx))
	sum := 0.0
	for _, i := range idx[:n] {
		sum += k.targets[i]
	}
	return sum / float64(n)
}

// Bagging averages estimators fitted on bootstrap resamples of the rows.
type Bagging struct {
	New  func() Estimator // builds one base estimator
	N    int              // number of resamples
	Seed uint64

	members []Estimator
}

// NewBagging creates a bagged ensemble of ridge estimators.
func NewBagging(n int, seed uint64) *Bagging {
	return &Bagging{
		New:  func() Estimator { return NewRidge(1) },
		N:    n,
		Seed: seed,
	}
}

// Fit draws N bootstrap samples from a generator seeded with Seed, so
// repeated fits on the same data are identical.
func (b *Bagging) Fit(x *mat.Dense, y []float64) error {
	rows, cols := x.Dims()
	if rows == 0 || rows != len(y) {
		return fmt.Errorf("design has %d rows for %d targets", rows, len(y))
	}
	rng := rand.New(rand.NewPCG(b.Seed, b.Seed^0x9e3779b97f4a7c15))

	b.members = make([]Estimator, 0, max(b.N, 1))
	for m := 0; m < max(b.N, 1); m++ {
		sample := mat.NewDense(rows, cols, nil)
		target := make([]float64, rows)
		for i := 0; i < rows; i++ {
			j := rng.IntN(rows)
			sample.SetRow(i, x.RawRowView(j))
			target[i] = y[j]
		}
		est := b.New()
		if err := est.Fit(sample, target); err != nil {
			return fmt.Errorf("bootstrap member %d: %w", m, err)
		}
		b.members = append(b.members, est)
	}
	return nil
}

// PredictOne averages the member predictions.
func (b *Bagging) PredictOne(row []float64) float64 {
	sum := 0.0
	for _, m := range b.members {
		sum += m.PredictOne(row)
	}
	return sum / float64(len(b.members))
}
