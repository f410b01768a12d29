package amf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid defaults", NewConfig(16, 0.2, false), false},
		{"sigma_s below one", NewConfig(0.5, 0.2, false), true},
		{"sigma_r zero", NewConfig(16, 0, false), true},
		{"sigma_r above one", NewConfig(16, 1.5, false), true},
		{"zero pca iterations", Config{SigmaS: 16, SigmaR: 0.2, NumPCAIterations: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.cfg, false)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConfigRejectsEmptySrc(t *testing.T) {
	err := validateConfig(NewConfig(16, 0.2, false), true)
	require.Error(t, err)
}

func TestPow2Floor(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.5, 0},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 4},
		{63, 32},
		{64, 64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pow2Floor(tt.in), "pow2Floor(%v)", tt.in)
	}
}

func TestResolveParamsTreeHeightClampedToTwo(t *testing.T) {
	cfg := NewConfig(2, 0.9, false)
	r := resolveParams(cfg, 64, 64)
	assert.GreaterOrEqual(t, r.treeHeight, 2)
}

func TestResolveParamsHonorsExplicitTreeHeight(t *testing.T) {
	cfg := NewConfig(16, 0.2, false)
	cfg.TreeHeight = 5
	r := resolveParams(cfg, 256, 256)
	assert.Equal(t, 5, r.treeHeight)
}

func TestResolveParamsDownsampleRatioAtLeastOne(t *testing.T) {
	cfg := NewConfig(1, 0.001, false)
	r := resolveParams(cfg, 32, 32)
	assert.GreaterOrEqual(t, r.df, 1)
	assert.GreaterOrEqual(t, r.smallWidth, 1)
	assert.GreaterOrEqual(t, r.smallHeight, 1)
}
