package amf

import (
	"context"
	"fmt"

	"manifold-forge/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// treeTracker receives per-tree-descent timing events. Both
// timing.Tracker and the debug coordinator's TimingTracker satisfy it,
// so a Filter can be wired to either the standalone tracker or the
// full debug.Coordinator's timing tracker without this package
// depending on the coordinator.
type treeTracker interface {
	StartTiming(operation string) context.Context
	EndTiming(ctx context.Context)
}

// Filter is a configured, reusable AMF instance, mirroring the
// create_amf/set/apply shape from the reference API (§6.1). It owns no
// OpenCV resources between calls; every Mat it touches is scoped to a
// single Apply. tracker, when set, receives per-tree-descent timing
// events the way the host's other algorithms report into the debug
// subsystem.
type Filter struct {
	cfg     Config
	tracker treeTracker
}

// CreateAMF validates sigmaS/sigmaR and returns a Filter configured
// with the default tree height, PCA iteration count, and RNG usage
// (§6.1, §4.1).
func CreateAMF(sigmaS, sigmaR float64, adjustOutliers bool) (*Filter, error) {
	cfg := NewConfig(sigmaS, sigmaR, adjustOutliers)
	if err := validateConfig(cfg, false); err != nil {
		return nil, err
	}
	return &Filter{cfg: cfg}, nil
}

// WithTracker attaches a timing tracker, returning the same Filter for
// chaining. Accepts either a standalone *timing.Tracker or a
// debug.Coordinator's TimingTracker.
func (f *Filter) WithTracker(tracker treeTracker) *Filter {
	f.tracker = tracker
	return f
}

// Set overrides one named parameter on an existing Filter, the
// programmatic equivalent of the CLI's per-flag overrides (§6.1).
func (f *Filter) Set(name string, value interface{}) error {
	switch name {
	case "sigma_s":
		v, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("amf: sigma_s must be numeric")
		}
		f.cfg.SigmaS = v
	case "sigma_r":
		v, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("amf: sigma_r must be numeric")
		}
		f.cfg.SigmaR = v
	case "tree_height":
		v, ok := asInt(value)
		if !ok {
			return fmt.Errorf("amf: tree_height must be an integer")
		}
		f.cfg.TreeHeight = v
	case "num_pca_iterations":
		v, ok := asInt(value)
		if !ok {
			return fmt.Errorf("amf: num_pca_iterations must be an integer")
		}
		f.cfg.NumPCAIterations = v
	case "adjust_outliers":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("amf: adjust_outliers must be a bool")
		}
		f.cfg.AdjustOutliers = v
	case "use_rng":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("amf: use_rng must be a bool")
		}
		f.cfg.UseRNG = v
	case "dt_iterations":
		v, ok := asInt(value)
		if !ok {
			return fmt.Errorf("amf: dt_iterations must be an integer")
		}
		f.cfg.DTIterations = v
	default:
		return fmt.Errorf("amf: unknown parameter %q", name)
	}
	return validateConfig(f.cfg, false)
}

// Apply filters src, using joint as the guide image (or src itself
// when joint is nil or empty, §4 "self-guided" case). Both Mats may be
// 8-bit unsigned, 16-bit unsigned or 32-bit float, 1-4 channels; the
// result matches src's depth and channel count.
func (f *Filter) Apply(src, joint *safe.Mat) (*safe.Mat, error) {
	return f.ApplyWithContext(context.Background(), src, joint)
}

func (f *Filter) ApplyWithContext(ctx context.Context, src, joint *safe.Mat) (*safe.Mat, error) {
	if src == nil || src.Empty() {
		return nil, fmt.Errorf("amf: src image is empty")
	}
	if joint == nil || joint.Empty() {
		joint = src
	}

	srcMat := src.GetMat()
	jointMat := joint.GetMat()

	p := resolveParams(f.cfg, srcMat.Cols(), srcMat.Rows())

	srcFloat, srcDepth, srcChannels := toFloatChannels(srcMat)
	defer closeChannels(srcFloat)

	var jointFloat []gocv.Mat
	if joint == src {
		jointFloat = srcFloat
	} else {
		jointFloat, _, _ = toFloatChannels(jointMat)
		defer closeChannels(jointFloat)
	}

	acc := newAccumulators(srcMat.Rows(), srcMat.Cols(), len(srcFloat), p.adjustOutliers)
	defer acc.Close()

	drv := newDriver(p, jointFloat, srcFloat, acc, f.tracker)
	if err := drv.run(ctx); err != nil {
		return nil, err
	}

	resultPlanes := gatherResult(acc, srcFloat, p.sigmaR)
	defer closeChannels(resultPlanes)

	outMat := fromFloatChannels(resultPlanes, srcDepth, srcChannels)
	return safe.NewMatFromMat(outMat)
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	}
	return 0, false
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	case float32:
		return int(t), true
	}
	return 0, false
}
