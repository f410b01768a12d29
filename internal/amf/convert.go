package amf

import "gocv.io/x/gocv"

// toFloatChannels splits src into one CV32FC1 plane per channel,
// normalizing integer depths to [0, 1] so every downstream computation
// in this package can assume unit-range single-precision floats (§3,
// data model). It returns the plane slice, the Mat's original type
// (depth+channels), and the channel count needed to reassemble it.
func toFloatChannels(src gocv.Mat) ([]gocv.Mat, gocv.MatType, int) {
	channels := src.Channels()
	origType := src.Type()
	scale := float32(1 / rangeMaxForType(origType))

	raw := gocv.Split(src)
	planes := make([]gocv.Mat, channels)
	for i, r := range raw {
		f := gocv.NewMat()
		r.ConvertToWithParams(&f, gocv.MatTypeCV32F, scale, 0)
		planes[i] = f
		r.Close()
	}
	return planes, origType, channels
}

// fromFloatChannels reverses toFloatChannels: it rescales each unit
// plane back to the original depth's native range and merges the
// channels into one multi-channel Mat.
func fromFloatChannels(planes []gocv.Mat, origType gocv.MatType, channels int) gocv.Mat {
	scale := float32(rangeMaxForType(origType))
	depth := singleChannelType(origType)

	converted := make([]gocv.Mat, len(planes))
	for i, p := range planes {
		c := gocv.NewMat()
		p.ConvertToWithParams(&c, depth, scale, 0)
		converted[i] = c
	}

	out := gocv.NewMat()
	gocv.Merge(converted, &out)
	closeChannels(converted)
	return out
}

func rangeMaxForType(t gocv.MatType) float64 {
	switch t {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC2, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return 255
	case gocv.MatTypeCV16UC1, gocv.MatTypeCV16UC2, gocv.MatTypeCV16UC3, gocv.MatTypeCV16UC4:
		return 65535
	default:
		return 1
	}
}

func singleChannelType(t gocv.MatType) gocv.MatType {
	switch t {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC2, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return gocv.MatTypeCV8UC1
	case gocv.MatTypeCV16UC1, gocv.MatTypeCV16UC2, gocv.MatTypeCV16UC3, gocv.MatTypeCV16UC4:
		return gocv.MatTypeCV16UC1
	default:
		return gocv.MatTypeCV32FC1
	}
}
