package amf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func constantPlane(rows, cols int, value float32) gocv.Mat {
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			m.SetFloatAt(y, x, value)
		}
	}
	return m
}

func TestHFilterPreservesConstantPlane(t *testing.T) {
	src := constantPlane(12, 12, 0.5)
	defer src.Close()

	dst := hFilter(src, 4)
	defer dst.Close()

	require.Equal(t, src.Rows(), dst.Rows())
	for y := 0; y < dst.Rows(); y++ {
		for x := 0; x < dst.Cols(); x++ {
			assert.InDelta(t, 0.5, dst.GetFloatAt(y, x), 1e-4)
		}
	}
}

func TestHFilterSmoothsImpulse(t *testing.T) {
	src := constantPlane(20, 20, 0)
	defer src.Close()
	src.SetFloatAt(10, 10, 1)

	dst := hFilter(src, 3)
	defer dst.Close()

	center := dst.GetFloatAt(10, 10)
	corner := dst.GetFloatAt(0, 0)
	neighbor := dst.GetFloatAt(10, 11)

	assert.Greater(t, center, neighbor, "impulse should dominate its own cell")
	assert.Greater(t, neighbor, corner, "energy should decay with distance")
	assert.Greater(t, center, float32(0), "filtered impulse must leave some energy at the source")
}

func TestHFilterDoesNotMutateSource(t *testing.T) {
	src := constantPlane(8, 8, 0)
	src.SetFloatAt(4, 4, 1)
	defer src.Close()

	before := src.GetFloatAt(4, 4)
	dst := hFilter(src, 5)
	defer dst.Close()

	assert.Equal(t, before, src.GetFloatAt(4, 4))
}
