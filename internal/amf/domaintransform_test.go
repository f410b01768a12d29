package amf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestNewDomainTransformFlatGuideGivesUniformEdges(t *testing.T) {
	guide := []gocv.Mat{constantPlane(5, 5, 0.5)}
	defer closeChannels(guide)

	dt := newDomainTransform(guide, 8, 0.2, 1)
	defer dt.Close()

	first := dt.adtH.GetFloatAt(0, 0)
	for y := 0; y < dt.adtH.Rows(); y++ {
		for x := 0; x < dt.adtH.Cols(); x++ {
			assert.InDelta(t, first, dt.adtH.GetFloatAt(y, x), 1e-6)
		}
	}
}

func TestDomainTransformFilterPreservesConstantPlane(t *testing.T) {
	guide := []gocv.Mat{constantPlane(10, 10, 0.3)}
	defer closeChannels(guide)
	dt := newDomainTransform(guide, 8, 0.2, 1)
	defer dt.Close()

	plane := constantPlane(10, 10, 1)
	defer plane.Close()

	filtered := dt.Filter(plane)
	defer filtered.Close()

	for y := 0; y < filtered.Rows(); y++ {
		for x := 0; x < filtered.Cols(); x++ {
			assert.InDelta(t, 1.0, filtered.GetFloatAt(y, x), 1e-3)
		}
	}
}

func TestDomainTransformRespectsStrongEdges(t *testing.T) {
	guide := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV32FC1)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x < 5 {
				guide.SetFloatAt(y, x, 0)
			} else {
				guide.SetFloatAt(y, x, 1)
			}
		}
	}
	defer guide.Close()

	dt := newDomainTransform([]gocv.Mat{guide}, 8, 0.05, 1)
	defer dt.Close()

	plane := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV32FC1)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x < 5 {
				plane.SetFloatAt(y, x, 1)
			}
		}
	}
	defer plane.Close()

	filtered := dt.Filter(plane)
	defer filtered.Close()

	leftSide := filtered.GetFloatAt(5, 2)
	rightSide := filtered.GetFloatAt(5, 7)
	assert.Greater(t, leftSide, rightSide, "a strong edge should limit bleed across the boundary")
}
