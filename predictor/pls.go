package predictor

import (
	"math"

	"github.com/tantralabs/krypto/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const tiny = 1e-12

// PLS is a single-response partial least squares regression fitted with NIPALS.
type PLS struct {
	Components int
	XMean      []float64
	XStd       []float64
	YMean      float64
	YStd       float64
	Coef       []float64 // in standardized feature space
}

// FitPLS fits n latent components. X and y are standardized; each component takes the
// covariance-maximizing weight w = Xᵀy/|Xᵀy|, scores t = Xw, loadings p = Xᵀt/tᵀt and
// q = yᵀt/tᵀt, then deflates X -= tpᵀ and y -= qt. y is finally regressed on the scores.
func FitPLS(x [][]float64, y []float64, n int) (*PLS, error) {
	rows := len(x)
	if rows != len(y) {
		return nil, models.NewModelFitError("pls", "%d feature rows but %d labels", rows, len(y))
	}
	if rows < 2 {
		return nil, models.NewModelFitError("pls", "%d rows", rows)
	}
	cols := len(x[0])
	if cols == 0 {
		return nil, models.NewModelFitError("pls", "empty feature rows")
	}
	if n < 1 || n > cols || n > rows-1 {
		return nil, models.NewModelFitError("pls", "%d components for a %dx%d matrix", n, rows, cols)
	}

	m := &PLS{Components: n, XMean: make([]float64, cols), XStd: make([]float64, cols)}
	X := mat.NewDense(rows, cols, nil)
	column := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if len(x[i]) != cols {
				return nil, models.NewModelFitError("pls", "row %d has %d columns, want %d", i, len(x[i]), cols)
			}
			column[i] = x[i][j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std < tiny || math.IsNaN(std) {
			std = 1
		}
		m.XMean[j], m.XStd[j] = mean, std
		for i := 0; i < rows; i++ {
			X.Set(i, j, (column[i]-mean)/std)
		}
	}
	m.YMean, m.YStd = stat.MeanStdDev(y, nil)
	if m.YStd < tiny || math.IsNaN(m.YStd) {
		return nil, models.NewModelFitError("pls", "label has no variance")
	}
	Y := mat.NewVecDense(rows, nil)
	for i, v := range y {
		Y.SetVec(i, (v-m.YMean)/m.YStd)
	}

	if r := rank(X); r < n {
		return nil, models.NewModelFitError("pls", "feature matrix rank %d < %d components", r, n)
	}

	var (
		Xk = mat.DenseCopyOf(X)
		yk = mat.VecDenseCopyOf(Y)
		W  = mat.NewDense(cols, n, nil)
		P  = mat.NewDense(cols, n, nil)
		T  = mat.NewDense(rows, n, nil)
	)
	w := mat.NewVecDense(cols, nil)
	t := mat.NewVecDense(rows, nil)
	p := mat.NewVecDense(cols, nil)
	var outer mat.Dense
	for k := 0; k < n; k++ {
		w.MulVec(Xk.T(), yk)
		norm := mat.Norm(w, 2)
		if norm < tiny || math.IsNaN(norm) {
			return nil, models.NewModelFitError("pls", "weight vector vanished at component %d", k+1)
		}
		w.ScaleVec(1/norm, w)

		t.MulVec(Xk, w)
		tt := mat.Dot(t, t)
		if tt < tiny {
			return nil, models.NewModelFitError("pls", "score vector vanished at component %d", k+1)
		}
		p.MulVec(Xk.T(), t)
		p.ScaleVec(1/tt, p)
		q := mat.Dot(yk, t) / tt

		outer.Outer(1, t, p)
		Xk.Sub(Xk, &outer)
		yk.AddScaledVec(yk, -q, t)

		W.SetCol(k, w.RawVector().Data)
		P.SetCol(k, p.RawVector().Data)
		T.SetCol(k, t.RawVector().Data)
	}

	var c mat.VecDense
	if err := c.SolveVec(T, Y); err != nil {
		return nil, &models.ModelFitError{Op: "pls: regress on scores", Err: err}
	}
	var ptw mat.Dense
	ptw.Mul(P.T(), W)
	var z mat.VecDense
	if err := z.SolveVec(&ptw, &c); err != nil {
		return nil, &models.ModelFitError{Op: "pls: rotate coefficients", Err: err}
	}
	var b mat.VecDense
	b.MulVec(W, &z)
	m.Coef = make([]float64, cols)
	for j := range m.Coef {
		m.Coef[j] = b.AtVec(j)
		if math.IsNaN(m.Coef[j]) || math.IsInf(m.Coef[j], 0) {
			return nil, models.NewModelFitError("pls", "non-finite coefficient %d", j)
		}
	}
	return m, nil
}

// Predict applies the fitted projection to one feature row.
func (m *PLS) Predict(row []float64) (float64, error) {
	if len(row) != len(m.Coef) {
		return 0, models.NewModelFitError("pls.Predict", "row has %d columns, want %d", len(row), len(m.Coef))
	}
	s := 0.0
	for j, v := range row {
		s += m.Coef[j] * (v - m.XMean[j]) / m.XStd[j]
	}
	return s*m.YStd + m.YMean, nil
}

func rank(a *mat.Dense) int {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return 0
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return 0
	}
	r, c := a.Dims()
	tol := float64(max(r, c)) * values[0] * 2.220446049250313e-16
	n := 0
	for _, v := range values {
		if v > tol {
			n++
		}
	}
	return n
}
