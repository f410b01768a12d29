package amf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestComputeWKIsOneWhenEtaMatchesJoint(t *testing.T) {
	joint := []gocv.Mat{constantPlane(6, 6, 0.4)}
	defer closeChannels(joint)
	eta := []gocv.Mat{constantPlane(6, 6, 0.4)}
	defer closeChannels(eta)

	wK, d2 := computeWK(eta, joint, 0.2)
	defer wK.Close()
	defer d2.Close()

	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			assert.InDelta(t, 1.0, wK.GetFloatAt(y, x), 1e-6)
			assert.InDelta(t, 0.0, d2.GetFloatAt(y, x), 1e-6)
		}
	}
}

func TestComputeWKDecaysWithDistance(t *testing.T) {
	joint := []gocv.Mat{constantPlane(4, 4, 0)}
	defer closeChannels(joint)
	etaNear := []gocv.Mat{constantPlane(4, 4, 0.05)}
	defer closeChannels(etaNear)
	etaFar := []gocv.Mat{constantPlane(4, 4, 0.5)}
	defer closeChannels(etaFar)

	wKNear, d2Near := computeWK(etaNear, joint, 0.2)
	defer wKNear.Close()
	defer d2Near.Close()
	wKFar, d2Far := computeWK(etaFar, joint, 0.2)
	defer wKFar.Close()
	defer d2Far.Close()

	assert.Greater(t, wKNear.GetFloatAt(0, 0), wKFar.GetFloatAt(0, 0))
}

func TestUpdateMinDistSeedsAtRoot(t *testing.T) {
	minDist2 := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV32FC1)
	defer minDist2.Close()
	d2 := constantPlane(2, 2, 0.3)
	defer d2.Close()

	updateMinDist(minDist2, d2, true)

	assert.InDelta(t, 0.3, minDist2.GetFloatAt(0, 0), 1e-6)
}

func TestUpdateMinDistTakesElementwiseMinimum(t *testing.T) {
	minDist2 := constantPlane(2, 2, 0.5)
	defer minDist2.Close()
	d2 := constantPlane(2, 2, 0.1)
	defer d2.Close()

	updateMinDist(minDist2, d2, false)

	assert.InDelta(t, 0.1, minDist2.GetFloatAt(0, 0), 1e-6)
}
