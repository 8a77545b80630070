// Package costcontrol estimates what captured requests would cost.
//
// DESIGN: Only input tokens are observed by the proxy (responses are relayed
// verbatim, not parsed), so estimates cover the prompt side of each request.
// Unknown models are reported as unpriced rather than guessed.
package costcontrol

import "strings"

// ModelPricing holds per-million-token pricing for a model.
type ModelPricing struct {
	InputPerMTok  float64 // USD per million input tokens
	OutputPerMTok float64 // USD per million output tokens
}

// modelPricingTable maps exact model names to their pricing.
var modelPricingTable = map[string]ModelPricing{
	// Claude 4.x (dated)
	"claude-opus-4-0-20250514":   {InputPerMTok: 15, OutputPerMTok: 75},
	"claude-sonnet-4-5-20250929": {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-sonnet-4-0-20250514": {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-haiku-4-5-20251001":  {InputPerMTok: 1, OutputPerMTok: 5},

	// Claude 3.x
	"claude-3-5-sonnet-20241022": {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-3-5-haiku-20241022":  {InputPerMTok: 0.8, OutputPerMTok: 4},
	"claude-3-haiku-20240307":    {InputPerMTok: 0.25, OutputPerMTok: 1.25},

	// OpenAI
	"gpt-4o":      {InputPerMTok: 2.5, OutputPerMTok: 10},
	"gpt-4o-mini": {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"gpt-4.1":     {InputPerMTok: 2, OutputPerMTok: 8},
	"o3":          {InputPerMTok: 2, OutputPerMTok: 8},

	// Gemini
	"gemini-2.5-pro":   {InputPerMTok: 1.25, OutputPerMTok: 10},
	"gemini-2.5-flash": {InputPerMTok: 0.30, OutputPerMTok: 2.5},
	"gemini-2.0-flash": {InputPerMTok: 0.10, OutputPerMTok: 0.40},
}

// modelFamilyPricing maps model family prefixes to pricing.
// Longest prefix wins, so "claude-opus-4-6" beats "claude-opus".
var modelFamilyPricing = map[string]ModelPricing{
	// Version-specific families (must win over broad families)
	"claude-opus-4-6":   {InputPerMTok: 5, OutputPerMTok: 25},
	"claude-opus-4-0":   {InputPerMTok: 15, OutputPerMTok: 75},
	"claude-sonnet-4-5": {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-sonnet-4-0": {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-haiku-4-5":  {InputPerMTok: 1, OutputPerMTok: 5},
	"claude-3-5-sonnet": {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-3-5-haiku":  {InputPerMTok: 0.8, OutputPerMTok: 4},
	"claude-3-haiku":    {InputPerMTok: 0.25, OutputPerMTok: 1.25},

	// Broad families (fallback)
	"claude-opus":      {InputPerMTok: 15, OutputPerMTok: 75},
	"claude-sonnet":    {InputPerMTok: 3, OutputPerMTok: 15},
	"claude-haiku":     {InputPerMTok: 1, OutputPerMTok: 5},
	"gpt-4o-mini":      {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"gpt-4o":           {InputPerMTok: 2.5, OutputPerMTok: 10},
	"gpt-4.1-mini":     {InputPerMTok: 0.4, OutputPerMTok: 1.6},
	"gpt-4.1":          {InputPerMTok: 2, OutputPerMTok: 8},
	"gpt-4":            {InputPerMTok: 10, OutputPerMTok: 30},
	"gemini-2.5-pro":   {InputPerMTok: 1.25, OutputPerMTok: 10},
	"gemini-2.5-flash": {InputPerMTok: 0.30, OutputPerMTok: 2.5},
	"gemini-2.0-flash": {InputPerMTok: 0.10, OutputPerMTok: 0.40},
}

// LookupModelPricing returns pricing for a model.
// Tries exact match, then prefix/family match (longest prefix wins).
func LookupModelPricing(model string) (ModelPricing, bool) {
	model = strings.TrimPrefix(strings.ToLower(model), "models/")

	if p, ok := modelPricingTable[model]; ok {
		return p, true
	}

	bestPrefix := ""
	var bestPricing ModelPricing
	for prefix, p := range modelFamilyPricing {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(bestPrefix) {
			bestPrefix = prefix
			bestPricing = p
		}
	}
	return bestPricing, bestPrefix != ""
}

// CalculateCost computes the cost in USD from token counts.
func CalculateCost(inputTokens, outputTokens int, pricing ModelPricing) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * pricing.InputPerMTok
	outputCost := float64(outputTokens) / 1_000_000 * pricing.OutputPerMTok
	return inputCost + outputCost
}

// EstimateInputCost prices the prompt side of a request. Unpriced models cost 0.
func EstimateInputCost(model string, inputTokens int) float64 {
	p, ok := LookupModelPricing(model)
	if !ok || inputTokens <= 0 {
		return 0
	}
	return CalculateCost(inputTokens, 0, p)
}
