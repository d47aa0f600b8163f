package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type StatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID string
}

// NewStatusCommand returns the status command.
func NewStatusCommand(rootCmd *RootCommand, app *kingpin.Application) *StatusCommand {
	c := &StatusCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("status", "Get the status of a queued job.")
	c.Cmd.Arg("job-id", "Job id.").Required().StringVar(&c.jobID)

	return c
}

func (c StatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatusCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}

	st, err := cl.Status(ctx, c.jobID)
	if err != nil {
		return fmt.Errorf("could not get job status: %w", err)
	}

	c.rootCmd.Printer.Status(st)
	if st.Output != nil {
		c.rootCmd.Printer.Envelope(st.Output, 0)
	}
	return nil
}
