// Command amf-cli runs the adaptive manifold filter against a single
// image (or an image pair, when -joint is given) from the command
// line, the headless counterpart to the host's interactive operator
// panel.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"manifold-forge/internal/amf"
	"manifold-forge/internal/debug"
	"manifold-forge/internal/logger"
	"manifold-forge/internal/opencv/conversion"
	"manifold-forge/internal/opencv/memory"
	"manifold-forge/internal/opencv/safe"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

var (
	flagSigmaS           float64
	flagSigmaR           float64
	flagJointPath        string
	flagOutputPath       string
	flagTreeHeight       int
	flagNumPCAIterations int
	flagDTIterations     int
	flagAdjustOutliers   bool
	flagNoRNG            bool
	flagVerbose          bool
	flagResize           string
	flagCrop             string
	flagNormalizeOutput  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amf-cli SRC",
		Short: "Smooth an image with the adaptive manifold filter",
		Args:  cobra.ExactArgs(1),
		RunE:  runFilter,
	}

	cmd.Flags().Float64Var(&flagSigmaS, "sigma-s", 16, "spatial standard deviation")
	cmd.Flags().Float64Var(&flagSigmaR, "sigma-r", 0.2, "range standard deviation")
	cmd.Flags().StringVar(&flagJointPath, "joint", "", "optional guide image path (defaults to SRC)")
	cmd.Flags().StringVar(&flagOutputPath, "output", "", "output path (defaults to SRC with an -amf suffix)")
	cmd.Flags().IntVar(&flagTreeHeight, "tree-height", 0, "manifold tree height (0 = auto)")
	cmd.Flags().IntVar(&flagNumPCAIterations, "num-pca-iterations", 10, "power-iteration passes for cluster splitting")
	cmd.Flags().IntVar(&flagDTIterations, "dt-iterations", 1, "domain-transform recursive filter passes")
	cmd.Flags().BoolVar(&flagAdjustOutliers, "adjust-outliers", false, "blend distant pixels back toward the source")
	cmd.Flags().BoolVar(&flagNoRNG, "no-rng", false, "use a deterministic eigenvector seed instead of the OpenCV RNG")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log timing and memory stats after filtering")
	cmd.Flags().StringVar(&flagResize, "resize", "", "resize SRC (and joint) to WxH before filtering")
	cmd.Flags().StringVar(&flagCrop, "crop", "", "crop SRC (and joint) to x,y,w,h before filtering")
	cmd.Flags().BoolVar(&flagNormalizeOutput, "normalize-output", false, "stretch the filtered result to the full 0-255 range")

	return cmd
}

func runFilter(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	log := logger.NewConsoleLogger(level)

	dbgCfg := debug.ProductionConfig()
	if flagVerbose {
		dbgCfg = debug.DefaultConfig()
	}
	coord := debug.NewCoordinator(dbgCfg)
	defer coord.Shutdown()

	srcPath := args[0]
	outputPath := flagOutputPath
	if outputPath == "" {
		ext := filepath.Ext(srcPath)
		outputPath = srcPath[:len(srcPath)-len(ext)] + "-amf" + ext
	}

	loadCtx := coord.TimingTracker().StartTiming("image_load")
	src, err := readImage(coord, srcPath)
	coord.TimingTracker().EndTiming(loadCtx)
	if err != nil {
		return err
	}
	defer func() { src.Close() }()

	var joint *safe.Mat
	if flagJointPath != "" {
		joint, err = readImage(coord, flagJointPath)
		if err != nil {
			return err
		}
		defer func() { joint.Close() }()
	}

	// src and joint are reassigned (not re-deferred) below: the
	// closures above close whatever Mat each variable holds at
	// return time, so every intermediate Mat just needs an explicit
	// Close when it's replaced.
	if flagResize != "" {
		w, h, err := parseWxH(flagResize)
		if err != nil {
			return fmt.Errorf("amf-cli: --resize: %w", err)
		}
		src, err = resizeInPlace(src, w, h)
		if err != nil {
			return fmt.Errorf("amf-cli: --resize: %w", err)
		}
		if joint != nil {
			joint, err = resizeInPlace(joint, w, h)
			if err != nil {
				return fmt.Errorf("amf-cli: --resize: %w", err)
			}
		}
	}

	if flagCrop != "" {
		x, y, w, h, err := parseCropSpec(flagCrop)
		if err != nil {
			return fmt.Errorf("amf-cli: --crop: %w", err)
		}
		cropped, err := conversion.CropMat(src, x, y, w, h)
		if err != nil {
			return fmt.Errorf("amf-cli: --crop: %w", err)
		}
		src.Close()
		src = cropped
		if joint != nil {
			jointCropped, err := conversion.CropMat(joint, x, y, w, h)
			if err != nil {
				return fmt.Errorf("amf-cli: --crop: %w", err)
			}
			joint.Close()
			joint = jointCropped
		}
	}

	if flagVerbose {
		props := conversion.GetMatProperties(src)
		log.Debug("amf-cli", "source properties", map[string]interface{}{
			"rows":     props.Rows,
			"cols":     props.Cols,
			"channels": props.Channels,
			"dataType": props.DataType,
		})
	}

	f, err := amf.CreateAMF(flagSigmaS, flagSigmaR, flagAdjustOutliers)
	if err != nil {
		return fmt.Errorf("amf-cli: %w", err)
	}
	if flagTreeHeight > 0 {
		if err := f.Set("tree_height", flagTreeHeight); err != nil {
			return fmt.Errorf("amf-cli: %w", err)
		}
	}
	if err := f.Set("num_pca_iterations", flagNumPCAIterations); err != nil {
		return fmt.Errorf("amf-cli: %w", err)
	}
	if err := f.Set("dt_iterations", flagDTIterations); err != nil {
		return fmt.Errorf("amf-cli: %w", err)
	}
	if err := f.Set("use_rng", !flagNoRNG); err != nil {
		return fmt.Errorf("amf-cli: %w", err)
	}

	f.WithTracker(coord.TimingTracker())

	memManager := memory.NewManager(log)
	defer memManager.Shutdown()

	procCtx := coord.TimingTracker().StartTiming("image_processing")
	start := time.Now()
	dst, err := f.Apply(src, joint)
	elapsed := time.Since(start)
	coord.TimingTracker().EndTiming(procCtx)
	if err != nil {
		return fmt.Errorf("amf-cli: filtering failed: %w", err)
	}
	defer func() { dst.Close() }()

	if flagNormalizeOutput {
		normalized, err := conversion.NormalizeMat(dst)
		if err != nil {
			return fmt.Errorf("amf-cli: --normalize-output: %w", err)
		}
		dst.Close()
		dst = normalized
	}

	saveCtx := coord.TimingTracker().StartTiming("image_save")
	if err := writeImage(coord, outputPath, dst); err != nil {
		return err
	}
	coord.TimingTracker().EndTiming(saveCtx)

	log.Info("amf-cli", "filtered image", map[string]interface{}{
		"src":     srcPath,
		"output":  outputPath,
		"elapsed": elapsed.String(),
	})

	if flagVerbose {
		allocCount, deallocCount, usedMemory := memManager.GetStats()
		log.Debug("amf-cli", "memory stats", map[string]interface{}{
			"allocCount":   allocCount,
			"deallocCount": deallocCount,
			"usedMemory":   usedMemory,
		})
		for _, d := range coord.TimingTracker().GetTimings("amf.tree.descend") {
			log.Debug("amf-cli", "tree descend", map[string]interface{}{"duration": d.String()})
		}
		for _, op := range []string{"image_load", "image_processing", "image_save"} {
			if d := coord.TimingTracker().GetTimings(op); len(d) > 0 {
				log.Debug("amf-cli", "stage timing", map[string]interface{}{"op": op, "duration": d[0].String()})
			}
		}
	}

	return nil
}

// readImage loads path into a safe.Mat, reporting the open to coord's
// file tracker the way the host's ManagedReadCloser does for GUI image
// loads (a synthetic handle, since gocv.IMRead owns no os.File).
func readImage(coord *debug.DebugCoordinator, path string) (*safe.Mat, error) {
	coord.FileTracker().TrackOpen(path, 0)
	defer coord.FileTracker().TrackClose(path, 0)

	raw := gocv.IMRead(path, gocv.IMReadColor)
	if raw.Empty() {
		return nil, fmt.Errorf("amf-cli: failed to read %s", path)
	}
	m, err := safe.NewMatFromMat(raw)
	if err != nil {
		return nil, fmt.Errorf("amf-cli: %w", err)
	}
	return m, nil
}

// writeImage mirrors readImage's tracking on the save path.
func writeImage(coord *debug.DebugCoordinator, path string, m *safe.Mat) error {
	coord.FileTracker().TrackOpen(path, 0)
	defer coord.FileTracker().TrackClose(path, 0)

	if ok := gocv.IMWrite(path, m.GetMat()); !ok {
		return fmt.Errorf("amf-cli: failed to write %s", path)
	}
	return nil
}

func resizeInPlace(m *safe.Mat, w, h int) (*safe.Mat, error) {
	resized, err := conversion.ResizeMat(m, w, h, gocv.InterpolationLinear)
	if err != nil {
		return nil, err
	}
	m.Close()
	return resized, nil
}

func parseWxH(spec string) (int, int, error) {
	parts := strings.SplitN(spec, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WxH, got %q", spec)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q: %w", spec, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q: %w", spec, err)
	}
	return w, h, nil
}

func parseCropSpec(spec string) (x, y, w, h int, err error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("expected x,y,w,h, got %q", spec)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("invalid value in %q: %w", spec, err)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}
