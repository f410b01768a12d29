package amf

import (
	"github.com/chewxy/math32"
	"gocv.io/x/gocv"
)

// domainTransform holds the precomputed edge-affinity tables for one
// manifold's recursive filter (§4.4). Every psi plane splatted onto
// this manifold is filtered with the same tables, so the tables are
// built once per tree node and reused across channels.
type domainTransform struct {
	adtH       gocv.Mat // rows x (cols-1): horizontal edge weights
	adtV       gocv.Mat // (rows-1) x cols: vertical edge weights
	sigmaS     float32
	iterations int
}

// newDomainTransform builds the edge tables from a (typically
// downsampled) guide image: adtH[y,x] measures dissimilarity between
// guide(y,x) and guide(y,x+1) across every channel, adtV the same
// vertically.
func newDomainTransform(guide []gocv.Mat, sigmaS, sigmaR float32, iterations int) *domainTransform {
	rows, cols := guide[0].Rows(), guide[0].Cols()
	lnAlpha := -sqrt2 / sigmaS
	ratio2 := (sigmaS / sigmaR) * (sigmaS / sigmaR)

	adtH := gocv.NewMatWithSize(rows, cols-1, gocv.MatTypeCV32FC1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols-1; x++ {
			var sum float32
			for _, ch := range guide {
				d := ch.GetFloatAt(y, x+1) - ch.GetFloatAt(y, x)
				sum += d * d
			}
			adtH.SetFloatAt(y, x, math32.Exp(lnAlpha*math32.Sqrt(1+ratio2*sum)))
		}
	}

	adtV := gocv.NewMatWithSize(rows-1, cols, gocv.MatTypeCV32FC1)
	for y := 0; y < rows-1; y++ {
		for x := 0; x < cols; x++ {
			var sum float32
			for _, ch := range guide {
				d := ch.GetFloatAt(y+1, x) - ch.GetFloatAt(y, x)
				sum += d * d
			}
			adtV.SetFloatAt(y, x, math32.Exp(lnAlpha*math32.Sqrt(1+ratio2*sum)))
		}
	}

	if iterations < 1 {
		iterations = 1
	}

	return &domainTransform{adtH: adtH, adtV: adtV, sigmaS: sigmaS, iterations: iterations}
}

// Close releases the edge tables.
func (dt *domainTransform) Close() {
	dt.adtH.Close()
	dt.adtV.Close()
}

// Filter applies dt.iterations alternating horizontal/vertical
// recursive passes to plane, returning a new Mat (§4.4). Each
// iteration k raises the precomputed edge weight (built at sigmaS) to
// the exponent sigmaS/sigmaHK, where sigmaHK is the standard DT-RF
// per-iteration scale; the combined K passes then approximate a
// single Gaussian of width sigmaS. At K=1, sigmaHK == sigmaS so the
// exponent is 1 and the raw edge weight is used unmodified, matching
// the single-pass reference behavior.
func (dt *domainTransform) Filter(plane gocv.Mat) gocv.Mat {
	dst := plane.Clone()
	rows, cols := dst.Rows(), dst.Cols()

	for k := 1; k <= dt.iterations; k++ {
		sigmaHK := dtSigmaHK(dt.sigmaS, dt.iterations, k)
		exponent := dt.sigmaS / sigmaHK
		dtHorizontalPass(&dst, dt.adtH, rows, cols, exponent)
		dtVerticalPass(&dst, dt.adtV, rows, cols, exponent)
	}

	return dst
}

// dtSigmaHK is the standard DT-RF per-iteration scale schedule
// (§4.4): sigma_s * sqrt(3) * 2^(K-k) / sqrt(4^K - 1).
func dtSigmaHK(sigmaS float32, numIter, k int) float32 {
	num := sigmaS * math32.Sqrt(3) * math32.Pow(2, float32(numIter-k))
	den := math32.Sqrt(math32.Pow(4, float32(numIter)) - 1)
	return num / den
}

func dtHorizontalPass(mat *gocv.Mat, adt gocv.Mat, rows, cols int, exponent float32) {
	for y := 0; y < rows; y++ {
		prev := mat.GetFloatAt(y, 0)
		for x := 1; x < cols; x++ {
			coef := math32.Pow(adt.GetFloatAt(y, x-1), exponent)
			orig := mat.GetFloatAt(y, x)
			cur := orig + coef*(prev-orig)
			mat.SetFloatAt(y, x, cur)
			prev = cur
		}

		next := mat.GetFloatAt(y, cols-1)
		for x := cols - 2; x >= 0; x-- {
			coef := math32.Pow(adt.GetFloatAt(y, x), exponent)
			orig := mat.GetFloatAt(y, x)
			cur := orig + coef*(next-orig)
			mat.SetFloatAt(y, x, cur)
			next = cur
		}
	}
}

func dtVerticalPass(mat *gocv.Mat, adt gocv.Mat, rows, cols int, exponent float32) {
	for x := 0; x < cols; x++ {
		prev := mat.GetFloatAt(0, x)
		for y := 1; y < rows; y++ {
			coef := math32.Pow(adt.GetFloatAt(y-1, x), exponent)
			orig := mat.GetFloatAt(y, x)
			cur := orig + coef*(prev-orig)
			mat.SetFloatAt(y, x, cur)
			prev = cur
		}

		next := mat.GetFloatAt(rows-1, x)
		for y := rows - 2; y >= 0; y-- {
			coef := math32.Pow(adt.GetFloatAt(y, x), exponent)
			orig := mat.GetFloatAt(y, x)
			cur := orig + coef*(next-orig)
			mat.SetFloatAt(y, x, cur)
			next = cur
		}
	}
}
