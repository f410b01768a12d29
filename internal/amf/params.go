// Package amf implements Adaptive Manifold Filtering: an edge-aware
// smoother that approximates a high-dimensional bilateral filter by
// projecting samples onto a small binary tree of low-dimensional
// "manifolds," filtering each with a cheap recursive domain-transform
// blur, then slicing the aggregated result back to image space.
package amf

import (
	"fmt"
	"math"
)

// Config holds the user-facing AMF parameters (§4.1). Zero-value
// TreeHeight triggers the height heuristic; a DTIterations below 1 is
// treated as 1, and a NumPCAIterations below 1 is rejected by
// validateConfig. NewConfig fills in the documented defaults.
type Config struct {
	SigmaS           float64
	SigmaR           float64
	TreeHeight       int
	NumPCAIterations int
	AdjustOutliers   bool
	UseRNG           bool
	DTIterations     int
}

// NewConfig builds a Config with the documented defaults: auto tree
// height, 10 power-iteration passes, RNG-seeded clustering, and a
// single domain-transform iteration (K=1), matching the reference
// behavior recorded under "Open Question decisions" in DESIGN.md.
func NewConfig(sigmaS, sigmaR float64, adjustOutliers bool) Config {
	return Config{
		SigmaS:           sigmaS,
		SigmaR:           sigmaR,
		TreeHeight:       0,
		NumPCAIterations: 10,
		AdjustOutliers:   adjustOutliers,
		UseRNG:           true,
		DTIterations:     1,
	}
}

// resolved carries every derived quantity the pipeline driver needs,
// computed once per Apply call in setup (§4.1).
type resolved struct {
	sigmaS           float32
	sigmaR           float32
	sigmaROverSqrt2  float32
	treeHeight       int
	numPCAIterations int
	adjustOutliers   bool
	useRNG           bool
	dtIterations     int
	df               int
	smallWidth       int
	smallHeight      int
}

func validateConfig(cfg Config, srcEmpty bool) error {
	if srcEmpty {
		return fmt.Errorf("amf: src image is empty")
	}
	if cfg.SigmaS < 1 {
		return fmt.Errorf("amf: sigma_s must be >= 1, got %v", cfg.SigmaS)
	}
	if cfg.SigmaR <= 0 || cfg.SigmaR > 1 {
		return fmt.Errorf("amf: sigma_r must be in (0, 1], got %v", cfg.SigmaR)
	}
	if cfg.NumPCAIterations < 1 {
		return fmt.Errorf("amf: num_pca_iterations must be >= 1, got %d", cfg.NumPCAIterations)
	}
	return nil
}

// resolveParams derives the scale selection (§4.1): downsample ratio,
// small working resolution, and tree height when not pinned by the
// caller. The tree_height clamp to 2 (REDESIGN/open question in
// spec.md §9) is preserved here.
func resolveParams(cfg Config, width, height int) resolved {
	r := resolved{
		sigmaS:           float32(cfg.SigmaS),
		sigmaR:           float32(cfg.SigmaR),
		sigmaROverSqrt2:  float32(cfg.SigmaR / math.Sqrt2),
		numPCAIterations: cfg.NumPCAIterations,
		adjustOutliers:   cfg.AdjustOutliers,
		useRNG:           cfg.UseRNG,
		dtIterations:     cfg.DTIterations,
	}
	if r.dtIterations < 1 {
		r.dtIterations = 1
	}

	df := pow2Floor(math.Min(cfg.SigmaS/4, 256*cfg.SigmaR))
	if df < 1 {
		df = 1
	}
	r.df = df
	r.smallWidth = roundDiv(width, df)
	r.smallHeight = roundDiv(height, df)
	if r.smallWidth < 1 {
		r.smallWidth = 1
	}
	if r.smallHeight < 1 {
		r.smallHeight = 1
	}

	r.treeHeight = cfg.TreeHeight
	if r.treeHeight <= 0 {
		h := math.Ceil((math.Floor(math.Log2(cfg.SigmaS)) - 1) * (1 - cfg.SigmaR))
		r.treeHeight = int(math.Max(2, h))
	}
	if r.treeHeight < 2 {
		r.treeHeight = 2
	}

	return r
}

// pow2Floor returns the largest power of two <= x, or 0 if x < 1.
func pow2Floor(x float64) int {
	if x < 1 {
		return 0
	}
	return 1 << uint(math.Floor(math.Log2(x)))
}

func roundDiv(a, b int) int {
	return int(math.Round(float64(a) / float64(b)))
}
