package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type AsyncCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	task taskFlags
	wait bool
}

// NewAsyncCommand returns the async command.
func NewAsyncCommand(rootCmd *RootCommand, app *kingpin.Application) *AsyncCommand {
	c := &AsyncCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("async", "Queue a task and print its job id.")
	c.task.register(c.Cmd)
	c.Cmd.Flag("idempotency-key", "Reuse the job queued with the same key.").StringVar(&c.task.idempotencyKey)
	c.Cmd.Flag("wait", "Wait for the job to finish.").BoolVar(&c.wait)

	return c
}

func (c AsyncCommand) Name() string { return c.Cmd.FullCommand() }

func (c AsyncCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}

	id, err := cl.SubmitAsync(ctx, c.task.request())
	if err != nil {
		return fmt.Errorf("could not queue task: %w", err)
	}
	c.rootCmd.Printer.Line("%s", id)

	if !c.wait {
		return nil
	}
	return waitAndSave(ctx, c.rootCmd, cl, id, c.task.saveDir)
}
