package validate

import (
	"encoding/json"
	"math"

	"github.com/you-humble/tasksim/core/sim/domain"
)

// Validate turns the raw "input" object of an event into a TaskConfig.
// Missing fields take defaults and the duration is clamped into
// [MinDurationSeconds, MaxDurationSeconds] without error. A nil raw means the
// input was absent; an explicit null arrives as domain.NullInput and fails.
func Validate(raw any) (domain.TaskConfig, error) {
	if raw == nil {
		raw = map[string]any{}
	}

	in, ok := raw.(map[string]any)
	if !ok {
		return domain.TaskConfig{}, &domain.ValidationError{Reason: "input must be an object"}
	}

	taskType, err := stringField(in, "task_type", string(domain.DefaultTaskType))
	if err != nil {
		return domain.TaskConfig{}, err
	}
	if v, ok := in["task_type"]; ok && v == nil {
		taskType = ""
	}
	if !domain.TaskType(taskType).Valid() {
		return domain.TaskConfig{}, domain.NewValidationError(
			"task_type", "must be one of: %s", domain.TaskTypeList(),
		)
	}

	duration, err := durationField(in)
	if err != nil {
		return domain.TaskConfig{}, err
	}

	format, err := stringField(in, "output_format", string(domain.DefaultOutputFormat))
	if err != nil {
		return domain.TaskConfig{}, err
	}

	userInput, err := stringField(in, "user_input", domain.DefaultUserInput)
	if err != nil {
		return domain.TaskConfig{}, err
	}

	return domain.TaskConfig{
		TaskType:        domain.TaskType(taskType),
		DurationSeconds: Clamp(duration),
		OutputFormat:    domain.OutputFormat(format),
		UserInput:       userInput,
	}, nil
}

func Clamp(seconds float64) float64 {
	return math.Min(math.Max(seconds, domain.MinDurationSeconds), domain.MaxDurationSeconds)
}

// stringField falls back to def when the key is absent or null.
func stringField(in map[string]any, key, def string) (string, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}

	s, ok := v.(string)
	if !ok {
		return "", domain.NewValidationError(key, "must be a string")
	}
	return s, nil
}

func durationField(in map[string]any) (float64, error) {
	v, ok := in["duration"]
	if !ok {
		return domain.DefaultDurationSeconds, nil
	}

	var d float64
	switch n := v.(type) {
	case float64:
		d = n
	case float32:
		d = float64(n)
	case int:
		d = float64(n)
	case int64:
		d = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, domain.NewValidationError("duration", "must be a number")
		}
		d = f
	default:
		return 0, domain.NewValidationError("duration", "must be a number")
	}

	if math.IsNaN(d) {
		return 0, domain.NewValidationError("duration", "must be a number")
	}
	return d, nil
}
