package amf

import "gocv.io/x/gocv"

// accumulators holds the running sums the tree walk folds every node
// into: the splat-filter-slice numerator per channel, the shared
// denominator, and (when outlier adjustment is on) the per-pixel
// minimum squared distance to any manifold visited (§4.7-§4.8).
type accumulators struct {
	sumWkPsi       []gocv.Mat
	sumWk          gocv.Mat
	minDist2       gocv.Mat
	adjustOutliers bool
}

func newAccumulators(rows, cols, channels int, adjustOutliers bool) *accumulators {
	a := &accumulators{
		sumWkPsi:       make([]gocv.Mat, channels),
		sumWk:          gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1),
		adjustOutliers: adjustOutliers,
	}
	a.sumWk.SetTo(gocv.NewScalar(0, 0, 0, 0))
	for i := range a.sumWkPsi {
		a.sumWkPsi[i] = gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
		a.sumWkPsi[i].SetTo(gocv.NewScalar(0, 0, 0, 0))
	}
	if adjustOutliers {
		a.minDist2 = gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
		a.minDist2.SetTo(gocv.NewScalar(0, 0, 0, 0))
	}
	return a
}

// addWeighted folds one node's splatted-and-sliced channel plane c into
// the numerator: sumWkPsi[c] += wK*psiUp. The denominator sumWk is
// updated separately through addWeight.
func (a *accumulators) addWeighted(c int, wK, psiUp gocv.Mat) {
	weighted := multiplyChannel(wK, psiUp)
	defer weighted.Close()
	gocv.Add(a.sumWkPsi[c], weighted, &a.sumWkPsi[c])
}

func (a *accumulators) addWeight(wK gocv.Mat) {
	gocv.Add(a.sumWk, wK, &a.sumWk)
}

func (a *accumulators) updateMinDist(d2 gocv.Mat, isRoot bool) {
	if !a.adjustOutliers {
		return
	}
	updateMinDist(a.minDist2, d2, isRoot)
}

func (a *accumulators) Close() {
	closeChannels(a.sumWkPsi)
	a.sumWk.Close()
	if a.adjustOutliers {
		a.minDist2.Close()
	}
}
