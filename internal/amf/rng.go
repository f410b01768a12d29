package amf

import "gocv.io/x/gocv"

// seedState derives a deterministic RNG seed from the joint image's
// center pixel on channel 0, so that repeated runs on the same input
// produce the same manifold splits (§4.1, "use_rng" wiring).
func seedState(joint []gocv.Mat) uint64 {
	rows, cols := joint[0].Rows(), joint[0].Cols()
	centerVal := joint[0].GetFloatAt(rows/2, cols/2)
	if centerVal < 0 {
		centerVal = -centerVal
	}
	if centerVal > 1 {
		centerVal = 1
	}
	const maxUint64 = ^uint64(0)
	return uint64(float64(centerVal) * float64(maxUint64/65535))
}

// clusterRNG draws the initial eigenvector guess for one clustering
// step. When useRNG is true it pulls Cj independent uniform(-0.5, 0.5)
// samples from the seeded OpenCV RNG; otherwise it falls back to the
// deterministic alternating +-0.5 vector described in §4.5, used by
// tests that need reproducible splits without touching global RNG
// state.
func clusterRNG(useRNG bool, cj int) []float64 {
	out := make([]float64, cj)
	if !useRNG {
		for i := range out {
			if i%2 == 0 {
				out[i] = 0.5
			} else {
				out[i] = -0.5
			}
		}
		return out
	}

	vec := gocv.NewMatWithSize(1, cj, gocv.MatTypeCV32FC1)
	defer vec.Close()
	rng := gocv.TheRNG()
	rng.Fill(&vec, gocv.RNGDistUniform, -0.5, 0.5, false)
	for i := 0; i < cj; i++ {
		out[i] = float64(vec.GetFloatAt(0, i))
	}
	return out
}
