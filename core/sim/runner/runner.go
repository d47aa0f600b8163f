package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/you-humble/tasksim/core/sim/clock"
	"github.com/you-humble/tasksim/core/sim/domain"
	"github.com/you-humble/tasksim/core/sim/progress"

	"github.com/google/uuid"
)

// Share of the nominal per-step time a step waits. Light steps undershoot,
// so a run without heavy steps finishes early.
const (
	HeavyStepFactor = 2.0
	LightStepFactor = 0.8
)

type Planner interface {
	Plan(taskType domain.TaskType) []domain.ProcessingStep
}

type Generator interface {
	Generate(cfg domain.TaskConfig, taskID string, totalSteps int) (domain.Artifact, error)
}

// Event is one item of a run. Exactly one of Progress and Result is set;
// Result marks the last event.
type Event struct {
	Progress *domain.ProgressRecord
	Result   *domain.TaskResult
}

func (e Event) Final() bool { return e.Result != nil }

type Factory struct {
	planner   Planner
	generator Generator
	clock     clock.Clock
	waiter    clock.Waiter
}

func NewFactory(planner Planner, generator Generator, c clock.Clock, w clock.Waiter) *Factory {
	if c == nil {
		c = clock.System()
	}
	if w == nil {
		w = clock.Sleeper()
	}
	return &Factory{
		planner:   planner,
		generator: generator,
		clock:     c,
		waiter:    w,
	}
}

// New prepares a single-use run for cfg with a fresh task id.
func (f *Factory) New(cfg domain.TaskConfig) *Runner {
	id := uuid.NewString()
	steps := f.planner.Plan(cfg.TaskType)

	return &Runner{
		id:        id,
		cfg:       cfg,
		steps:     steps,
		tracker:   progress.New(id, len(steps), f.clock),
		generator: f.generator,
		waiter:    f.waiter,
	}
}

// Runner walks the step plan one step per Next call. It is not safe for
// concurrent use and cannot be restarted.
type Runner struct {
	id    string
	cfg   domain.TaskConfig
	steps []domain.ProcessingStep

	tracker   *progress.Tracker
	generator Generator
	waiter    clock.Waiter

	next int
	done bool
	err  error
}

func (r *Runner) ID() string { return r.id }

func (r *Runner) TotalSteps() int { return len(r.steps) }

func (r *Runner) Steps() []domain.ProcessingStep {
	return append([]domain.ProcessingStep(nil), r.steps...)
}

// Next waits out the next step and reports it. The last step is reported as
// the final Result event instead of a progress record. Once the run is over
// Next returns domain.ErrExhausted, or the error that ended it.
func (r *Runner) Next(ctx context.Context) (Event, error) {
	if r.err != nil {
		return Event{}, r.err
	}
	if r.done {
		return Event{}, domain.ErrExhausted
	}

	if r.next < len(r.steps) {
		step := r.steps[r.next]

		delay := StepDelay(r.cfg.DurationSeconds, len(r.steps), step.Heavy)
		if err := r.waiter.Wait(ctx, delay); err != nil {
			r.err = fmt.Errorf("step %d %q: %w", step.Index, step.Name, err)
			return Event{}, r.err
		}

		rec := r.tracker.Advance(step.Name)
		r.next++

		if r.next < len(r.steps) {
			return Event{Progress: &rec}, nil
		}
	}

	return r.finish()
}

func (r *Runner) finish() (Event, error) {
	a, err := r.generator.Generate(r.cfg, r.id, len(r.steps))
	if err != nil {
		r.err = fmt.Errorf("generate artifact: %w", err)
		return Event{}, r.err
	}

	c := r.tracker.Complete()
	r.done = true

	return Event{
		Result: &domain.TaskResult{
			TaskID:               r.id,
			Status:               c.Status,
			ProgressPercent:      c.ProgressPercent,
			Artifact:             a,
			TotalDurationSeconds: c.ElapsedSeconds,
			TaskType:             r.cfg.TaskType,
		},
	}, nil
}

// StepDelay is the simulated time of one step: the nominal share
// durationSeconds/totalSteps scaled by the heavy or light factor.
func StepDelay(durationSeconds float64, totalSteps int, heavy bool) time.Duration {
	if totalSteps <= 0 {
		return 0
	}

	factor := LightStepFactor
	if heavy {
		factor = HeavyStepFactor
	}

	perStep := durationSeconds / float64(totalSteps)
	return time.Duration(perStep * factor * float64(time.Second))
}
