package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/you-humble/tasksim/core/sim/artifact"
	"github.com/you-humble/tasksim/core/sim/clock"
	"github.com/you-humble/tasksim/core/sim/handler"
	"github.com/you-humble/tasksim/core/sim/plan"
	"github.com/you-humble/tasksim/core/sim/runner"
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
	LogLevel string
	NoLog    bool
	NoWait   bool
	Compact  bool

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("log-level", "Log level (debug, info, warn, error).").Default("info").EnumVar(&c.LogLevel, "debug", "info", "warn", "error")
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-wait", "Skip the simulated step delays.").BoolVar(&c.NoWait)
	app.Flag("compact", "Print JSON on a single line.").BoolVar(&c.Compact)

	return c
}

// Handler builds the request handler. With --no-wait the run uses a manual
// clock so every step finishes instantly.
func (r *RootCommand) Handler() *handler.Handler {
	var (
		c clock.Clock  = clock.System()
		w clock.Waiter = clock.Sleeper()
	)
	if r.NoWait {
		fake := clock.NewFake(time.Now())
		c, w = fake, fake
	}

	return handler.New(r.Logger, runner.NewFactory(plan.New(), artifact.NewGenerator(c), c, w))
}

func (r *RootCommand) printJSON(v any) error {
	enc := json.NewEncoder(r.Stdout)
	if !r.Compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("could not print result: %w", err)
	}
	return nil
}
