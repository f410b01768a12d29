package amf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestGatherResultWithoutOutlierAdjustmentIsPlainRatio(t *testing.T) {
	acc := newAccumulators(2, 2, 1, false)
	defer acc.Close()
	acc.sumWkPsi[0] = constantPlane(2, 2, 0.6)
	acc.sumWk = constantPlane(2, 2, 2)

	src := []gocv.Mat{constantPlane(2, 2, 0)}
	defer closeChannels(src)

	out := gatherResult(acc, src, 0.2)
	defer closeChannels(out)

	require.Len(t, out, 1)
	assert.InDelta(t, 0.3, out[0].GetFloatAt(0, 0), 1e-6)
}

func TestGatherResultOutlierAdjustmentBlendsTowardSourceWhenFar(t *testing.T) {
	acc := newAccumulators(1, 1, 1, true)
	defer acc.Close()
	acc.sumWkPsi[0] = constantPlane(1, 1, 0)
	acc.sumWk = constantPlane(1, 1, 1)
	acc.minDist2 = constantPlane(1, 1, 100)

	src := []gocv.Mat{constantPlane(1, 1, 0.9)}
	defer closeChannels(src)

	out := gatherResult(acc, src, 0.1)
	defer closeChannels(out)

	assert.InDelta(t, 0.9, out[0].GetFloatAt(0, 0), 1e-3, "a pixel far from every manifold should fall back to its own source value")
}

func TestGatherResultOutlierAdjustmentPassesThroughWhenClose(t *testing.T) {
	acc := newAccumulators(1, 1, 1, true)
	defer acc.Close()
	acc.sumWkPsi[0] = constantPlane(1, 1, 0.4)
	acc.sumWk = constantPlane(1, 1, 1)
	acc.minDist2 = constantPlane(1, 1, 0)

	src := []gocv.Mat{constantPlane(1, 1, 0.9)}
	defer closeChannels(src)

	out := gatherResult(acc, src, 0.1)
	defer closeChannels(out)

	assert.InDelta(t, 0.4, out[0].GetFloatAt(0, 0), 1e-3, "a pixel exactly on a manifold should keep the filtered value")
}
