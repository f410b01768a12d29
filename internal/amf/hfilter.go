package amf

import (
	"github.com/chewxy/math32"
	"gocv.io/x/gocv"
)

// hFilter runs the two-pass (forward, backward) first-order recursive
// low-pass along rows, then the same pass along columns: the O(1)-per-
// pixel IIR approximation to a Gaussian blur used to seed the root
// manifold and to average per-channel eta values (§4.2). src must be a
// single-channel CV32FC1 plane; the returned Mat is a new allocation.
func hFilter(src gocv.Mat, sigma float32) gocv.Mat {
	dst := src.Clone()
	rows, cols := dst.Rows(), dst.Cols()

	a := math32.Exp(-sqrt2 / sigma)

	for y := 0; y < rows; y++ {
		hFilterRow(&dst, y, cols, a)
	}
	hFilterCols(&dst, rows, cols, a)

	return dst
}

// hFilterRow applies the forward/backward recurrence along a single
// row: y[i] = x[i] + a*(y[i-1] - x[i]) forward, the mirror image
// backward, each pass reading the previous pass's output in place.
func hFilterRow(mat *gocv.Mat, row, cols int, a float32) {
	prev := mat.GetFloatAt(row, 0)
	for x := 1; x < cols; x++ {
		orig := mat.GetFloatAt(row, x)
		cur := orig + a*(prev-orig)
		mat.SetFloatAt(row, x, cur)
		prev = cur
	}

	next := mat.GetFloatAt(row, cols-1)
	for x := cols - 2; x >= 0; x-- {
		cur := mat.GetFloatAt(row, x)
		cur = cur + a*(next-cur)
		mat.SetFloatAt(row, x, cur)
		next = cur
	}
}

// hFilterCols applies the same recurrence down each column, operating
// a full row at a time against the row above (forward) or below
// (backward) rather than looping column-by-column.
func hFilterCols(mat *gocv.Mat, rows, cols int, a float32) {
	for y := 1; y < rows; y++ {
		for x := 0; x < cols; x++ {
			cur := mat.GetFloatAt(y, x)
			prev := mat.GetFloatAt(y-1, x)
			mat.SetFloatAt(y, x, cur+a*(prev-cur))
		}
	}

	for y := rows - 2; y >= 0; y-- {
		for x := 0; x < cols; x++ {
			cur := mat.GetFloatAt(y, x)
			next := mat.GetFloatAt(y+1, x)
			mat.SetFloatAt(y, x, cur+a*(next-cur))
		}
	}
}
