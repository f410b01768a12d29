package amf

import "manifold-forge/internal/opencv/safe"

// AMFilter is the one-shot convenience entry point for callers that
// don't need a reusable Filter: configure, run once, discard (§6.1,
// am_filter).
func AMFilter(src, joint *safe.Mat, sigmaS, sigmaR float64, adjustOutliers bool) (*safe.Mat, error) {
	f, err := CreateAMF(sigmaS, sigmaR, adjustOutliers)
	if err != nil {
		return nil, err
	}
	return f.Apply(src, joint)
}
