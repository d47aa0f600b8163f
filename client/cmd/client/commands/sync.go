package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/you-humble/tasksim/client/internal/client"
)

type SyncCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	task taskFlags
}

// NewSyncCommand returns the sync command.
func NewSyncCommand(rootCmd *RootCommand, app *kingpin.Application) *SyncCommand {
	c := &SyncCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("sync", "Run a task and wait for the result in one request.")
	c.task.register(c.Cmd)

	return c
}

func (c SyncCommand) Name() string { return c.Cmd.FullCommand() }

func (c SyncCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := cl.SubmitSync(ctx, c.task.request())
	if err != nil {
		return fmt.Errorf("could not run task: %w", err)
	}

	p := c.rootCmd.Printer
	p.Status(client.JobStatus{ID: res.ID, Status: res.Status})
	p.Envelope(res.Output, time.Since(start))

	return saveInline(p, res.Output, c.task.saveDir)
}
