package costcontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupModelPricing_KnownModels(t *testing.T) {
	tests := []struct {
		model      string
		wantInput  float64
		wantOutput float64
	}{
		{"claude-sonnet-4-5-20250929", 3, 15},
		{"claude-haiku-4-5", 1, 5},
		{"gpt-4o", 2.5, 10},
		{"gpt-4o-mini", 0.15, 0.60},
		{"gemini-2.5-pro", 1.25, 10},
		{"models/gemini-2.0-flash", 0.10, 0.40},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p, ok := LookupModelPricing(tt.model)
			assert.True(t, ok)
			assert.Equal(t, tt.wantInput, p.InputPerMTok)
			assert.Equal(t, tt.wantOutput, p.OutputPerMTok)
		})
	}
}

func TestLookupModelPricing_VersionedFamilyMatch(t *testing.T) {
	// Dated variant must match "claude-opus-4-6" ($5) and not "claude-opus" ($15).
	p, ok := LookupModelPricing("claude-opus-4-6-20260101")
	assert.True(t, ok)
	assert.Equal(t, 5.0, p.InputPerMTok)

	p, ok = LookupModelPricing("gpt-4o-mini-2024-07-18")
	assert.True(t, ok)
	assert.Equal(t, 0.15, p.InputPerMTok)
}

func TestLookupModelPricing_Unknown(t *testing.T) {
	_, ok := LookupModelPricing("unknown")
	assert.False(t, ok)

	_, ok = LookupModelPricing("gemini")
	assert.False(t, ok)
}

func TestEstimateInputCost(t *testing.T) {
	assert.InDelta(t, 3.0, EstimateInputCost("claude-sonnet-4-5", 1_000_000), 1e-9)
	assert.InDelta(t, 0.0025, EstimateInputCost("gpt-4o", 1000), 1e-9)
	assert.Equal(t, 0.0, EstimateInputCost("unknown", 1000))
	assert.Equal(t, 0.0, EstimateInputCost("gpt-4o", 0))
}

func TestCalculateCost(t *testing.T) {
	pricing := ModelPricing{InputPerMTok: 3, OutputPerMTok: 15}
	assert.InDelta(t, 0.0105, CalculateCost(1000, 500, pricing), 1e-9)
}
