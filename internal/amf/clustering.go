package amf

import (
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// computeEigenvector estimates the dominant eigenvector of the
// residual covariance restricted to the pixels flagged in mask, via
// power iteration (§4.5). residual holds one plane per channel
// (joint - eta), all full resolution. A degenerate all-zero residual
// under mask yields a zero vector; callers must treat that as "assign
// everything to the plus branch" rather than dividing by its norm.
func computeEigenvector(residual []gocv.Mat, mask gocv.Mat, numIter int, useRNG bool) []float64 {
	cj := len(residual)
	v := clusterRNG(useRNG, cj)
	rows, cols := mask.Rows(), mask.Cols()

	r := make([]float64, cj)
	for iter := 0; iter < numIter; iter++ {
		t := make([]float64, cj)
		vv := mat.NewVecDense(cj, v)

		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				if mask.GetUCharAt(y, x) == 0 {
					continue
				}
				for c := 0; c < cj; c++ {
					r[c] = float64(residual[c].GetFloatAt(y, x))
				}
				rv := mat.NewVecDense(cj, r)
				dot := mat.Dot(rv, vv)
				for c := 0; c < cj; c++ {
					t[c] += dot * r[c]
				}
			}
		}
		v = t
	}

	norm := mat.Norm(mat.NewVecDense(cj, v), 2)
	if norm < 1e-12 {
		return make([]float64, cj)
	}
	out := make([]float64, cj)
	for i := range out {
		out[i] = v[i] / norm
	}
	return out
}

// computeClusters splits mask into two children using the sign of the
// residual's projection onto v: pixels with o(pixel) < 0 go to minus,
// everything else (including the o==0 tie and the degenerate
// zero-vector case) goes to plus (§4.5, §7).
func computeClusters(mask gocv.Mat, residual []gocv.Mat, v []float64) (minus, plus gocv.Mat) {
	rows, cols := mask.Rows(), mask.Cols()
	minus = gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
	minus.SetTo(gocv.NewScalar(0, 0, 0, 0))
	plus = gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
	plus.SetTo(gocv.NewScalar(0, 0, 0, 0))

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if mask.GetUCharAt(y, x) == 0 {
				continue
			}
			var o float64
			for c := range residual {
				o += float64(residual[c].GetFloatAt(y, x)) * v[c]
			}
			if o < 0 {
				minus.SetUCharAt(y, x, 255)
			} else {
				plus.SetUCharAt(y, x, 255)
			}
		}
	}

	return minus, plus
}
