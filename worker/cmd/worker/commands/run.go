package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/you-humble/tasksim/core/sim/domain"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	eventPath string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Handle a single event read from a file or stdin.")
	c.Cmd.Flag("event", "Event JSON file, '-' reads stdin.").Short('e').Default("-").StringVar(&c.eventPath)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	ev, err := c.readEvent()
	if err != nil {
		return err
	}

	env := c.rootCmd.Handler().HandleWithWebhook(ctx, ev)
	return c.rootCmd.printJSON(env)
}

func (c RunCommand) readEvent() (domain.Event, error) {
	var r io.Reader = c.rootCmd.Stdin
	if c.eventPath != "-" {
		f, err := os.Open(c.eventPath)
		if err != nil {
			return domain.Event{}, fmt.Errorf("could not open event file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var ev domain.Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return domain.Event{}, fmt.Errorf("could not decode event: %w", err)
	}
	return ev, nil
}
