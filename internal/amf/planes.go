package amf

import (
	"image"

	"gocv.io/x/gocv"
)

// sqrt2 avoids pulling in math32's limited constant set for a value
// used in every hot loop in this package.
const sqrt2 float32 = 1.4142135

// closeChannels releases every Mat in the slice; safe to call on a
// slice containing already-invalid zero Mats.
func closeChannels(planes []gocv.Mat) {
	for _, m := range planes {
		m.Close()
	}
}

// resizeChannel returns a resized copy of a single-channel plane.
func resizeChannel(src gocv.Mat, size image.Point) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Resize(src, &dst, size, 0, 0, gocv.InterpolationLinear)
	return dst
}

// resizeChannels resizes every plane in a slice to size.
func resizeChannels(src []gocv.Mat, size image.Point) []gocv.Mat {
	out := make([]gocv.Mat, len(src))
	for i, m := range src {
		out[i] = resizeChannel(m, size)
	}
	return out
}

// subtractChannels returns a - b per channel (new allocations).
func subtractChannels(a, b []gocv.Mat) []gocv.Mat {
	out := make([]gocv.Mat, len(a))
	for i := range a {
		out[i] = gocv.NewMat()
		gocv.Subtract(a[i], b[i], &out[i])
	}
	return out
}

// multiplyChannel returns a*b (new allocation), a*b both single channel.
func multiplyChannel(a, b gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	gocv.Multiply(a, b, &out)
	return out
}

// oneMinus returns 1-x elementwise (new allocation).
func oneMinus(x gocv.Mat) gocv.Mat {
	rows, cols := x.Rows(), x.Cols()
	out := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
	for y := 0; y < rows; y++ {
		for c := 0; c < cols; c++ {
			out.SetFloatAt(y, c, 1-x.GetFloatAt(y, c))
		}
	}
	return out
}

// safeDivide computes num/den elementwise, substituting zero wherever
// den's magnitude falls below eps (guards the gather-result division
// by an accumulated weight that can vanish at image borders, §4.8).
func safeDivide(num, den gocv.Mat, eps float32) gocv.Mat {
	rows, cols := num.Rows(), num.Cols()
	out := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			d := den.GetFloatAt(y, x)
			if d < eps && d > -eps {
				out.SetFloatAt(y, x, 0)
				continue
			}
			out.SetFloatAt(y, x, num.GetFloatAt(y, x)/d)
		}
	}
	return out
}
