package amf

import (
	"github.com/chewxy/math32"
	"gocv.io/x/gocv"
)

// computeWK returns the per-pixel manifold weight w_k = exp(-d2 / (2 *
// sigma^2)) together with the raw squared distance d2 between eta and
// the joint image across all channels (§4.3). eta and joint must have
// matching dimensions and channel counts.
func computeWK(eta, joint []gocv.Mat, sigma float32) (wK, d2 gocv.Mat) {
	rows, cols := joint[0].Rows(), joint[0].Cols()
	wK = gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
	d2 = gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)

	denom := 2 * sigma * sigma

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var sum float32
			for c := range joint {
				d := eta[c].GetFloatAt(y, x) - joint[c].GetFloatAt(y, x)
				sum += d * d
			}
			d2.SetFloatAt(y, x, sum)
			wK.SetFloatAt(y, x, math32.Exp(-sum/denom))
		}
	}

	return wK, d2
}

// updateMinDist folds d2 into the running per-pixel minimum distance
// to any manifold visited so far. At the root node it seeds minDist2
// directly since no prior minimum exists (§4.3, outlier adjustment).
func updateMinDist(minDist2, d2 gocv.Mat, isRoot bool) {
	if isRoot {
		d2.CopyTo(&minDist2)
		return
	}
	gocv.Min(minDist2, d2, &minDist2)
}
