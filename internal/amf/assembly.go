package amf

import (
	"github.com/chewxy/math32"
	"gocv.io/x/gocv"
)

// gatherResult divides the accumulated numerator by the accumulated
// weight per channel, then, when outlier adjustment is enabled, blends
// the result back toward the untouched source wherever the pixel's
// best manifold match was still far away (§4.8).
func gatherResult(acc *accumulators, src []gocv.Mat, sigmaR float32) []gocv.Mat {
	out := make([]gocv.Mat, len(acc.sumWkPsi))
	for c := range acc.sumWkPsi {
		g := safeDivide(acc.sumWkPsi[c], acc.sumWk, 1e-12)
		if !acc.adjustOutliers {
			out[c] = g
			continue
		}
		out[c] = adjustOutliersPlane(g, src[c], acc.minDist2, sigmaR)
		g.Close()
	}
	return out
}

func adjustOutliersPlane(g, srcC, minDist2 gocv.Mat, sigmaR float32) gocv.Mat {
	rows, cols := g.Rows(), g.Cols()
	out := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
	denom := 2 * sigmaR * sigmaR

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			alpha := math32.Exp(-minDist2.GetFloatAt(y, x) / denom)
			gv := g.GetFloatAt(y, x)
			sv := srcC.GetFloatAt(y, x)
			out.SetFloatAt(y, x, alpha*(gv-sv)+sv)
		}
	}

	return out
}
