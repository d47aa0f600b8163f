package plan

import (
	"strings"

	"github.com/you-humble/tasksim/core/sim/domain"
)

var (
	setupSteps = []string{
		"Initializing environment",
		"Loading configuration",
		"Validating input data",
	}

	taskSteps = map[domain.TaskType][]string{
		domain.TaskTextProcessing: {
			"Tokenizing text",
			"Running language model",
			"Processing embeddings",
			"Generating response",
			"Formatting output",
		},
		domain.TaskImageGeneration: {
			"Loading diffusion model",
			"Encoding prompt",
			"Running diffusion steps",
			"Decoding latents",
			"Post-processing image",
		},
		domain.TaskDataAnalysis: {
			"Loading dataset",
			"Feature engineering",
			"Running analysis",
			"Computing statistics",
			"Generating report",
		},
	}

	teardownSteps = []string{
		"Finalizing results",
		"Preparing output file",
		"Cleanup and completion",
	}
)

type Planner struct{}

func New() Planner {
	return Planner{}
}

// Plan returns the ordered steps for taskType. Validated task types always
// produce domain.TotalSteps entries.
func (Planner) Plan(taskType domain.TaskType) []domain.ProcessingStep {
	specific := taskSteps[taskType]

	names := make([]string, 0, len(setupSteps)+len(specific)+len(teardownSteps))
	names = append(names, setupSteps...)
	names = append(names, specific...)
	names = append(names, teardownSteps...)

	steps := make([]domain.ProcessingStep, len(names))
	for i, name := range names {
		steps[i] = domain.ProcessingStep{
			Name:  name,
			Index: i + 1,
			Heavy: IsHeavy(name),
		}
	}

	return steps
}

// IsHeavy reports whether a step stands for model work.
func IsHeavy(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "model") || strings.Contains(lower, "diffusion")
}
