package amf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func allOnesMask(rows, cols int) gocv.Mat {
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
	m.SetTo(gocv.NewScalar(255, 0, 0, 0))
	return m
}

func TestComputeEigenvectorDeterministicWithoutRNG(t *testing.T) {
	residual := []gocv.Mat{constantPlane(4, 4, 1), constantPlane(4, 4, -1)}
	defer closeChannels(residual)
	mask := allOnesMask(4, 4)
	defer mask.Close()

	v1 := computeEigenvector(residual, mask, 5, false)
	v2 := computeEigenvector(residual, mask, 5, false)

	assert.Equal(t, v1, v2, "deterministic seed should reproduce the same eigenvector")
}

func TestComputeEigenvectorIsUnitNorm(t *testing.T) {
	residual := []gocv.Mat{constantPlane(4, 4, 0.3), constantPlane(4, 4, 0.7)}
	defer closeChannels(residual)
	mask := allOnesMask(4, 4)
	defer mask.Close()

	v := computeEigenvector(residual, mask, 8, false)

	var normSq float64
	for _, c := range v {
		normSq += c * c
	}
	assert.InDelta(t, 1.0, normSq, 1e-6)
}

func TestComputeEigenvectorZeroResidualYieldsZeroVector(t *testing.T) {
	residual := []gocv.Mat{constantPlane(4, 4, 0), constantPlane(4, 4, 0)}
	defer closeChannels(residual)
	mask := allOnesMask(4, 4)
	defer mask.Close()

	v := computeEigenvector(residual, mask, 4, false)

	for _, c := range v {
		assert.Equal(t, 0.0, c)
	}
}

func TestComputeClustersSplitsOnSign(t *testing.T) {
	mask := allOnesMask(2, 2)
	defer mask.Close()
	residual := []gocv.Mat{gocv.NewMatWithSize(2, 2, gocv.MatTypeCV32FC1)}
	defer closeChannels(residual)
	residual[0].SetFloatAt(0, 0, 1)
	residual[0].SetFloatAt(0, 1, -1)
	residual[0].SetFloatAt(1, 0, 0)
	residual[0].SetFloatAt(1, 1, -2)

	minus, plus := computeClusters(mask, residual, []float64{1})
	defer minus.Close()
	defer plus.Close()

	assert.EqualValues(t, 255, plus.GetUCharAt(0, 0))
	assert.EqualValues(t, 255, minus.GetUCharAt(0, 1))
	assert.EqualValues(t, 255, plus.GetUCharAt(1, 0), "a tie at zero must resolve to the plus branch")
	assert.EqualValues(t, 255, minus.GetUCharAt(1, 1))
}

func TestComputeClustersSkipsUnmaskedPixels(t *testing.T) {
	mask := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC1)
	defer mask.Close()
	mask.SetTo(gocv.NewScalar(0, 0, 0, 0))
	mask.SetUCharAt(0, 0, 255)

	residual := []gocv.Mat{constantPlane(2, 2, -1)}
	defer closeChannels(residual)

	minus, plus := computeClusters(mask, residual, []float64{1})
	defer minus.Close()
	defer plus.Close()

	assert.EqualValues(t, 0, minus.GetUCharAt(1, 1))
	assert.EqualValues(t, 0, plus.GetUCharAt(1, 1))
	assert.EqualValues(t, 255, minus.GetUCharAt(0, 0))
}
