package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/you-humble/tasksim/client/internal/client"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	BaseURL      string
	EndpointID   string
	APIKey       string
	PollInterval time.Duration
	MaxWait      time.Duration
	LogLevel     string
	NoColor      bool

	// Global instances.
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
	Printer *Printer
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("base-url", "Endpoint base URL.").Envar("RUNPOD_BASE_URL").Default(client.DefaultBaseURL).StringVar(&c.BaseURL)
	app.Flag("endpoint-id", "Endpoint id, requests go to /v2/{id}/... when set.").Envar("RUNPOD_ENDPOINT_ID").StringVar(&c.EndpointID)
	app.Flag("api-key", "API key sent as a bearer token.").Envar("RUNPOD_API_KEY").StringVar(&c.APIKey)
	app.Flag("poll-interval", "Status polling interval.").Default(client.DefaultPollInterval.String()).DurationVar(&c.PollInterval)
	app.Flag("max-wait", "Maximum time to wait for a queued job.").Default(client.DefaultMaxWait.String()).DurationVar(&c.MaxWait)
	app.Flag("log-level", "Log level (debug, info, warn, error).").Default("warn").EnumVar(&c.LogLevel, "debug", "info", "warn", "error")
	app.Flag("no-color", "Disable colored output.").BoolVar(&c.NoColor)

	return c
}

func (r *RootCommand) Client() (*client.Client, error) {
	c, err := client.New(client.Config{
		BaseURL:      r.BaseURL,
		EndpointID:   r.EndpointID,
		APIKey:       r.APIKey,
		PollInterval: r.PollInterval,
		MaxWait:      r.MaxWait,
		Logger:       r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create client: %w", err)
	}
	return c, nil
}

// taskFlags are the event flags shared by the submit commands.
type taskFlags struct {
	id             string
	taskType       string
	duration       float64
	userInput      string
	webhookURL     string
	idempotencyKey string
	saveDir        string
}

func (f *taskFlags) register(cmd *kingpin.CmdClause) {
	cmd.Flag("id", "Request id.").StringVar(&f.id)
	cmd.Flag("task-type", "Task type.").Default("text_processing").StringVar(&f.taskType)
	cmd.Flag("duration", "Simulated duration in seconds.").Default("20").Float64Var(&f.duration)
	cmd.Flag("user-input", "Free text passed to the task.").StringVar(&f.userInput)
	cmd.Flag("webhook", "Webhook URL, the task is only acknowledged.").StringVar(&f.webhookURL)
	cmd.Flag("save", "Directory to save the artifact into.").StringVar(&f.saveDir)
}

func (f taskFlags) request() client.Request {
	input := map[string]any{
		"task_type": f.taskType,
		"duration":  f.duration,
	}
	if f.userInput != "" {
		input["user_input"] = f.userInput
	}
	return client.Request{
		ID:             f.id,
		Input:          input,
		WebhookURL:     f.webhookURL,
		IdempotencyKey: f.idempotencyKey,
	}
}
