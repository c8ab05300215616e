package observability

import (
	"context"
	"testing"

	"github.com/Conceptual-Machines/prompt-architect/internal/config"
	"github.com/Conceptual-Machines/prompt-architect/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestCalculateCost(t *testing.T) {
	usage := llm.Usage{Input: 2000, Output: 1000, Total: 3000}

	tests := []struct {
		name  string
		model string
		want  float64
	}{
		{name: "gemini flash", model: "gemini-2.5-flash", want: 2*0.0003 + 0.0025},
		{name: "gemini pro", model: "gemini-2.5-pro", want: 2*0.00125 + 0.01},
		{name: "gpt-4o-mini", model: "gpt-4o-mini", want: 2*0.00015 + 0.0006},
		{name: "unknown gemini falls back to flash", model: "gemini-9-ultra", want: 2*0.0003 + 0.0025},
		{name: "unknown gpt falls back to gpt-4o", model: "gpt-9", want: 2*0.005 + 0.015},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateCost(tt.model, usage), 1e-9)
		})
	}
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "$0.003100", FormatCost(0.0031))
}

func TestDisabledClientIsNoop(t *testing.T) {
	ctx := context.Background()
	client := InitializeLangfuse(ctx, &config.Config{LangfuseEnabled: false})
	assert.False(t, client.IsEnabled())
	assert.Same(t, client, GetClient())

	trace := client.StartTrace(ctx, "generate", map[string]interface{}{"mode": "Instrumental"})
	gen := trace.Generation("instrumental", nil)
	gen.Input("prompt")
	gen.Metadata(map[string]interface{}{"k": "v"})
	gen.RecordResponse(&llm.GenerationRequest{Prompt: "p"}, &llm.GenerationResponse{Text: "t"})
	gen.SetLevel("ERROR")
	gen.Finish()
	trace.Finish()
}
