// Package predictor implements the regression model trained per user and
// capability. The model is a ridge regression fit by normal equations; the
// contract that matters to the rest of the system is the ordered feature-name
// list it was fit on, not the learning algorithm.
package predictor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultLambda is the default L2 regularization strength. It keeps the
// normal-equations system positive definite even on tiny bootstrap datasets.
const DefaultLambda = 1.0

// ErrDimensionMismatch is returned when an input vector does not match the
// model's declared feature list.
var ErrDimensionMismatch = errors.New("input dimension does not match model features")

// Ridge is a linear model with L2 regularization. Immutable once fit;
// replaced wholesale on retrain.
type Ridge struct {
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
	Lambda       float64   `json:"lambda"`
}

// Fit trains a ridge model on the given matrix. Rows of x are samples in the
// order of featureNames; y holds one label per sample.
func Fit(featureNames []string, x [][]float64, y []float64, lambda float64) (*Ridge, error) {
	n := len(x)
	if n == 0 {
		return nil, errors.New("no training samples")
	}
	if len(y) != n {
		return nil, fmt.Errorf("labels (%d) do not match samples (%d)", len(y), n)
	}
	p := len(featureNames)
	for i, row := range x {
		if len(row) != p {
			return nil, fmt.Errorf("sample %d has %d values, want %d", i, len(row), p)
		}
	}
	if lambda <= 0 {
		lambda = DefaultLambda
	}

	// Augment with a bias column, then solve (AᵀA + λI) w = Aᵀy. The bias
	// term is regularized along with the coefficients so the system is
	// always positive definite; at the lambdas used here the shrinkage on
	// the intercept is negligible.
	a := mat.NewDense(n, p+1, nil)
	for i, row := range x {
		for j, v := range row {
			a.Set(i, j, v)
		}
		a.Set(i, p, 1)
	}
	yv := mat.NewVecDense(n, y)

	var ata mat.Dense
	ata.Mul(a.T(), a)
	for i := 0; i <= p; i++ {
		ata.Set(i, i, ata.At(i, i)+lambda)
	}

	var aty mat.VecDense
	aty.MulVec(a.T(), yv)

	var w mat.VecDense
	if err := w.SolveVec(&ata, &aty); err != nil {
		return nil, fmt.Errorf("solving normal equations: %w", err)
	}

	weights := make([]float64, p)
	for i := range weights {
		weights[i] = w.AtVec(i)
	}

	names := make([]string, p)
	copy(names, featureNames)

	return &Ridge{
		FeatureNames: names,
		Weights:      weights,
		Intercept:    w.AtVec(p),
		Lambda:       lambda,
	}, nil
}

// Predict returns the model output for one input vector given in the model's
// feature order.
func (r *Ridge) Predict(vec []float64) (float64, error) {
	if len(vec) != len(r.Weights) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(vec), len(r.Weights))
	}
	out := r.Intercept
	for i, v := range vec {
		out += r.Weights[i] * v
	}
	return out, nil
}
