package llm

import (
	"strings"

	"github.com/openai/openai-go/responses"
)

const reasoningEffortMinimal responses.ReasoningEffort = "minimal"

// reasoning models reject sampling parameters and take an effort instead
var reasoningModelPrefixes = []string{"gpt-5", "o1", "o3", "o4"}

func isReasoningModel(model string) bool {
	for _, p := range reasoningModelPrefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// reasoningEffort picks the effort per operation: short lookups run with
// minimal effort, structured analysis with more
func reasoningEffort(operation string) responses.ReasoningEffort {
	switch operation {
	case "artist_inspirations":
		return reasoningEffortMinimal
	case "analyze_track":
		return responses.ReasoningEffortMedium
	default:
		return responses.ReasoningEffortLow
	}
}
