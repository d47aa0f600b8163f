package progress

import (
	"time"

	"github.com/you-humble/tasksim/core/sim/clock"
	"github.com/you-humble/tasksim/core/sim/domain"
)

// Tracker turns step completions into progress records. It never blocks:
// callers invoke Advance after the step's work is done.
type Tracker struct {
	taskID     string
	totalSteps int
	clock      clock.Clock

	start   time.Time
	current int
}

func New(taskID string, totalSteps int, c clock.Clock) *Tracker {
	if c == nil {
		c = clock.System()
	}
	return &Tracker{
		taskID:     taskID,
		totalSteps: totalSteps,
		clock:      c,
		start:      c.Now(),
	}
}

func (t *Tracker) Advance(stepName string) domain.ProgressRecord {
	t.current++
	elapsed := t.Elapsed().Seconds()

	rec := domain.ProgressRecord{
		TaskID:          t.taskID,
		Status:          domain.StatusProcessing,
		ProgressPercent: Percent(t.current, t.totalSteps),
		CurrentStep:     stepName,
		StepIndex:       t.current,
		TotalSteps:      t.totalSteps,
		ElapsedSeconds:  elapsed,
	}

	if t.current >= 2 {
		remaining := (elapsed / float64(t.current)) * float64(t.totalSteps-t.current)
		rec.EstimatedRemainingSeconds = &remaining
	}

	return rec
}

type Completion struct {
	TaskID          string
	Status          domain.ProgressStatus
	ProgressPercent int
	TotalSteps      int
	ElapsedSeconds  float64
}

func (t *Tracker) Complete() Completion {
	return Completion{
		TaskID:          t.taskID,
		Status:          domain.StatusCompleted,
		ProgressPercent: 100,
		TotalSteps:      t.totalSteps,
		ElapsedSeconds:  t.Elapsed().Seconds(),
	}
}

func (t *Tracker) Elapsed() time.Duration {
	return t.clock.Now().Sub(t.start)
}

func (t *Tracker) Step() int { return t.current }

// Percent is floor(current/total*100), capped to [0, 100].
func Percent(current, total int) int {
	if total <= 0 || current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	return current * 100 / total
}
