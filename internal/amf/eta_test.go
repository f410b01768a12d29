package amf

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestComputeEtaMatchesMaskedJointValue(t *testing.T) {
	teta := constantPlane(16, 16, 1)
	defer teta.Close()
	cluster := allOnesMask(16, 16)
	defer cluster.Close()
	joint := []gocv.Mat{constantPlane(16, 16, 0.25)}
	defer closeChannels(joint)

	eta := computeEta(teta, cluster, joint, image.Pt(4, 4), 2)
	defer closeChannels(eta)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.InDelta(t, 0.25, eta[0].GetFloatAt(y, x), 1e-3)
		}
	}
}

func TestComputeEtaZeroOutsideClusterIsSafe(t *testing.T) {
	teta := constantPlane(8, 8, 1)
	defer teta.Close()
	cluster := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC1)
	defer cluster.Close()
	cluster.SetTo(gocv.NewScalar(0, 0, 0, 0))
	joint := []gocv.Mat{constantPlane(8, 8, 0.7)}
	defer closeChannels(joint)

	eta := computeEta(teta, cluster, joint, image.Pt(2, 2), 1)
	defer closeChannels(eta)

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, float32(0), eta[0].GetFloatAt(y, x), "an untouched cluster must not divide by a vanished weight")
		}
	}
}
