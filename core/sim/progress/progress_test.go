package progress_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/tasksim/core/sim/clock"
	"github.com/you-humble/tasksim/core/sim/domain"
	"github.com/you-humble/tasksim/core/sim/progress"
)

func TestTrackerAdvance(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c := clock.NewFake(time.Unix(0, 0))
	tr := progress.New("task-1", 4, c)

	c.Advance(2 * time.Second)
	first := tr.Advance("one")
	assert.Equal("task-1", first.TaskID)
	assert.Equal(domain.StatusProcessing, first.Status)
	assert.Equal(25, first.ProgressPercent)
	assert.Equal(1, first.StepIndex)
	assert.Equal(4, first.TotalSteps)
	assert.Equal("one", first.CurrentStep)
	assert.InDelta(2.0, first.ElapsedSeconds, 1e-9)
	assert.Nil(first.EstimatedRemainingSeconds)

	c.Advance(2 * time.Second)
	second := tr.Advance("two")
	assert.Equal(50, second.ProgressPercent)
	require.NotNil(second.EstimatedRemainingSeconds)
	// 4s over 2 steps, 2 steps left.
	assert.InDelta(4.0, *second.EstimatedRemainingSeconds, 1e-9)

	c.Advance(5 * time.Second)
	third := tr.Advance("three")
	assert.Equal(75, third.ProgressPercent)
	require.NotNil(third.EstimatedRemainingSeconds)
	assert.InDelta(3.0, *third.EstimatedRemainingSeconds, 1e-9)
}

func TestTrackerComplete(t *testing.T) {
	c := clock.NewFake(time.Unix(100, 0))
	tr := progress.New("task-2", 11, c)

	c.Advance(7 * time.Second)
	done := tr.Complete()

	assert.Equal(t, progress.Completion{
		TaskID:          "task-2",
		Status:          domain.StatusCompleted,
		ProgressPercent: 100,
		TotalSteps:      11,
		ElapsedSeconds:  7,
	}, done)
}

func TestPercent(t *testing.T) {
	tests := map[string]struct {
		current, total int
		exp            int
	}{
		"First of eleven should floor to 9.":  {current: 1, total: 11, exp: 9},
		"Tenth of eleven should floor to 90.": {current: 10, total: 11, exp: 90},
		"Last step should be 100.":            {current: 11, total: 11, exp: 100},
		"Zero total should be 0.":             {current: 3, total: 0, exp: 0},
		"Overflow should cap at 100.":         {current: 12, total: 11, exp: 100},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, progress.Percent(test.current, test.total))
		})
	}
}

func TestPercentIsMonotonic(t *testing.T) {
	prev := -1
	for i := 1; i <= domain.TotalSteps; i++ {
		p := progress.Percent(i, domain.TotalSteps)
		assert.Greater(t, p, prev)
		prev = p
	}
	assert.Equal(t, 100, prev)
}
