package amf

import (
	"testing"

	"manifold-forge/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func checkerboard(rows, cols int) gocv.Mat {
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if (x/4+y/4)%2 == 0 {
				m.SetUCharAt(y, x, 220)
			} else {
				m.SetUCharAt(y, x, 30)
			}
		}
	}
	return m
}

func planeVariance(m gocv.Mat) float64 {
	rows, cols := m.Rows(), m.Cols()
	var sum, sumSq float64
	n := float64(rows * cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := float64(m.GetFloatAt(y, x))
			sum += v
			sumSq += v * v
		}
	}
	mean := sum / n
	return sumSq/n - mean*mean
}

func TestApplyRejectsEmptySource(t *testing.T) {
	f, err := CreateAMF(8, 0.2, false)
	require.NoError(t, err)

	empty, err := safe.NewMat(1, 1, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	empty.Close() // a closed safe.Mat reports Empty()

	_, err = f.Apply(empty, nil)
	assert.Error(t, err)
}

func TestCreateAMFRejectsInvalidSigma(t *testing.T) {
	_, err := CreateAMF(0.1, 0.2, false)
	assert.Error(t, err)

	_, err = CreateAMF(8, 1.5, false)
	assert.Error(t, err)
}

func TestApplyIsDeterministicWithoutRNG(t *testing.T) {
	raw := checkerboard(24, 24)
	defer raw.Close()
	src, err := safe.NewMatFromMat(raw.Clone())
	require.NoError(t, err)
	defer src.Close()

	f, err := CreateAMF(8, 0.2, false)
	require.NoError(t, err)
	require.NoError(t, f.Set("use_rng", false))

	out1, err := f.Apply(src, nil)
	require.NoError(t, err)
	defer out1.Close()

	out2, err := f.Apply(src, nil)
	require.NoError(t, err)
	defer out2.Close()

	rows, cols := out1.Rows(), out1.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v1, _ := out1.GetUCharAt(y, x)
			v2, _ := out2.GetUCharAt(y, x)
			require.Equal(t, v1, v2, "identical config and input must produce identical output")
		}
	}
}

func TestApplyReducesVarianceForLargeSigma(t *testing.T) {
	raw := checkerboard(32, 32)
	defer raw.Close()
	srcFloat, _, _ := toFloatChannels(raw)
	defer closeChannels(srcFloat)
	srcVariance := planeVariance(srcFloat[0])

	src, err := safe.NewMatFromMat(raw.Clone())
	require.NoError(t, err)
	defer src.Close()

	f, err := CreateAMF(24, 1, false)
	require.NoError(t, err)
	require.NoError(t, f.Set("use_rng", false))

	out, err := f.Apply(src, nil)
	require.NoError(t, err)
	defer out.Close()

	outFloat, _, _ := toFloatChannels(out.GetMat())
	defer closeChannels(outFloat)
	outVariance := planeVariance(outFloat[0])

	assert.LessOrEqual(t, outVariance, srcVariance, "large sigma_s with sigma_r=1 should smooth toward a low-pass of src")
}

func TestApplyGrayscaleChannelsAreIndependentOfChannelCount(t *testing.T) {
	gray := checkerboard(20, 20)
	defer gray.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)

	graySrc, err := safe.NewMatFromMat(gray.Clone())
	require.NoError(t, err)
	defer graySrc.Close()
	bgrSrc, err := safe.NewMatFromMat(bgr.Clone())
	require.NoError(t, err)
	defer bgrSrc.Close()

	f, err := CreateAMF(8, 0.2, false)
	require.NoError(t, err)
	require.NoError(t, f.Set("use_rng", false))

	grayOut, err := f.Apply(graySrc, graySrc)
	require.NoError(t, err)
	defer grayOut.Close()

	bgrOut, err := f.Apply(bgrSrc, graySrc)
	require.NoError(t, err)
	defer bgrOut.Close()

	for y := 0; y < 20; y += 5 {
		for x := 0; x < 20; x += 5 {
			g, _ := grayOut.GetUCharAt(y, x)
			b, _ := bgrOut.GetUCharAt3(y, x, 0)
			assert.InDelta(t, g, b, 2, "identical channels driven by the same guide must filter identically")
		}
	}
}
