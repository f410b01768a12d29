package amf

import (
	"context"
	"fmt"

	"manifold-forge/internal/opencv/safe"
)

// Processor adapts Filter to the host's Algorithm/ContextualAlgorithm
// contract (internal/algorithms.Algorithm), the same shape every other
// registered operator implements.
type Processor struct{}

// NewProcessor returns the AMF operator for registration with
// internal/algorithms.Manager.
func NewProcessor() *Processor {
	return &Processor{}
}

func (p *Processor) GetName() string {
	return "Adaptive Manifold Filter"
}

func (p *Processor) GetDefaultParameters() map[string]interface{} {
	return map[string]interface{}{
		"sigma_s":            16.0,
		"sigma_r":            0.2,
		"tree_height":        0,
		"num_pca_iterations": 10,
		"adjust_outliers":    false,
		"use_rng":            true,
		"dt_iterations":      1,
	}
}

func (p *Processor) ValidateParameters(params map[string]interface{}) error {
	_, err := configFromParams(params)
	return err
}

func (p *Processor) Process(input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	return p.ProcessWithContext(context.Background(), input, params)
}

func (p *Processor) ProcessWithContext(ctx context.Context, input *safe.Mat, params map[string]interface{}) (*safe.Mat, error) {
	cfg, err := configFromParams(params)
	if err != nil {
		return nil, err
	}

	joint, _ := params["joint"].(*safe.Mat)

	f := &Filter{cfg: cfg}
	return f.ApplyWithContext(ctx, input, joint)
}

func configFromParams(params map[string]interface{}) (Config, error) {
	cfg := NewConfig(16.0, 0.2, false)

	if v, ok := params["sigma_s"]; ok {
		f, ok := asFloat(v)
		if !ok {
			return cfg, fmt.Errorf("amf: sigma_s must be numeric")
		}
		cfg.SigmaS = f
	}
	if v, ok := params["sigma_r"]; ok {
		f, ok := asFloat(v)
		if !ok {
			return cfg, fmt.Errorf("amf: sigma_r must be numeric")
		}
		cfg.SigmaR = f
	}
	if v, ok := params["tree_height"]; ok {
		i, ok := asInt(v)
		if !ok {
			return cfg, fmt.Errorf("amf: tree_height must be an integer")
		}
		cfg.TreeHeight = i
	}
	if v, ok := params["num_pca_iterations"]; ok {
		i, ok := asInt(v)
		if !ok {
			return cfg, fmt.Errorf("amf: num_pca_iterations must be an integer")
		}
		cfg.NumPCAIterations = i
	}
	if v, ok := params["adjust_outliers"]; ok {
		b, ok := v.(bool)
		if !ok {
			return cfg, fmt.Errorf("amf: adjust_outliers must be a bool")
		}
		cfg.AdjustOutliers = b
	}
	if v, ok := params["use_rng"]; ok {
		b, ok := v.(bool)
		if !ok {
			return cfg, fmt.Errorf("amf: use_rng must be a bool")
		}
		cfg.UseRNG = b
	}
	if v, ok := params["dt_iterations"]; ok {
		i, ok := asInt(v)
		if !ok {
			return cfg, fmt.Errorf("amf: dt_iterations must be an integer")
		}
		cfg.DTIterations = i
	}

	if err := validateConfig(cfg, false); err != nil {
		return cfg, err
	}
	return cfg, nil
}
