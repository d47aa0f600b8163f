package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/you-humble/tasksim/core/sim/domain"
	"github.com/you-humble/tasksim/core/sim/plan"
)

func TestPlan(t *testing.T) {
	tests := map[string]struct {
		taskType  domain.TaskType
		expTotal  int
		expHeavy  []string
		expMiddle []string
	}{
		"Text processing should have one heavy step.": {
			taskType: domain.TaskTextProcessing,
			expTotal: 11,
			expHeavy: []string{"Running language model"},
			expMiddle: []string{
				"Tokenizing text",
				"Running language model",
				"Processing embeddings",
				"Generating response",
				"Formatting output",
			},
		},
		"Image generation should have two heavy steps.": {
			taskType: domain.TaskImageGeneration,
			expTotal: 11,
			expHeavy: []string{"Loading diffusion model", "Running diffusion steps"},
			expMiddle: []string{
				"Loading diffusion model",
				"Encoding prompt",
				"Running diffusion steps",
				"Decoding latents",
				"Post-processing image",
			},
		},
		"Data analysis should have no heavy steps.": {
			taskType: domain.TaskDataAnalysis,
			expTotal: 11,
			expHeavy: nil,
			expMiddle: []string{
				"Loading dataset",
				"Feature engineering",
				"Running analysis",
				"Computing statistics",
				"Generating report",
			},
		},
		"Unknown task type should only have the generic steps.": {
			taskType:  "bogus",
			expTotal:  6,
			expMiddle: []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			steps := plan.New().Plan(test.taskType)
			assert.Len(steps, test.expTotal)

			var heavy []string
			for i, s := range steps {
				assert.Equal(i+1, s.Index)
				if s.Heavy {
					heavy = append(heavy, s.Name)
				}
			}
			assert.Equal(test.expHeavy, heavy)

			assert.Equal("Initializing environment", steps[0].Name)
			assert.Equal("Loading configuration", steps[1].Name)
			assert.Equal("Validating input data", steps[2].Name)
			assert.Equal("Cleanup and completion", steps[len(steps)-1].Name)

			middle := make([]string, 0, len(steps)-6)
			for _, s := range steps[3 : len(steps)-3] {
				middle = append(middle, s.Name)
			}
			assert.Equal(test.expMiddle, middle)
		})
	}
}

func TestPlanAlwaysHasTotalStepsForValidTypes(t *testing.T) {
	for _, tt := range domain.TaskTypes {
		assert.Len(t, plan.New().Plan(tt), domain.TotalSteps, string(tt))
	}
}

func TestIsHeavy(t *testing.T) {
	assert.True(t, plan.IsHeavy("Loading MODEL weights"))
	assert.True(t, plan.IsHeavy("Diffusion pass"))
	assert.False(t, plan.IsHeavy("Encoding prompt"))
}
