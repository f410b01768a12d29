package amf

import (
	"image"

	"gocv.io/x/gocv"
)

// computeEta derives a child manifold's centroid plane per channel
// (§4.6): it masks teta (1 - w_k) to the cluster, splats the masked
// weight and the masked weight*joint product down to smallSize,
// blurs both with hFilter at the small-scale sigma, and divides,
// guarding against a vanished denominator at pixels the cluster never
// touches.
func computeEta(teta, cluster gocv.Mat, joint []gocv.Mat, smallSize image.Point, sigmaSmall float32) []gocv.Mat {
	masked := gocv.NewMatWithSize(teta.Rows(), teta.Cols(), teta.Type())
	masked.SetTo(gocv.NewScalar(0, 0, 0, 0))
	teta.CopyToWithMask(&masked, cluster)
	defer masked.Close()

	smallMasked := resizeChannel(masked, smallSize)
	defer smallMasked.Close()
	denom := hFilter(smallMasked, sigmaSmall)
	defer denom.Close()

	eta := make([]gocv.Mat, len(joint))
	for c, jc := range joint {
		weighted := multiplyChannel(masked, jc)
		smallWeighted := resizeChannel(weighted, smallSize)
		weighted.Close()

		numerator := hFilter(smallWeighted, sigmaSmall)
		smallWeighted.Close()

		eta[c] = safeDivide(numerator, denom, 1e-6)
		numerator.Close()
	}

	return eta
}
