package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alecthomas/kingpin/v2"

	"github.com/you-humble/tasksim/client/internal/client"
	"github.com/you-humble/tasksim/core/sim/domain"
)

type WaitCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	jobID   string
	saveDir string
}

// NewWaitCommand returns the wait command.
func NewWaitCommand(rootCmd *RootCommand, app *kingpin.Application) *WaitCommand {
	c := &WaitCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("wait", "Poll a queued job until it finishes.")
	c.Cmd.Arg("job-id", "Job id.").Required().StringVar(&c.jobID)
	c.Cmd.Flag("save", "Directory to download the artifact into.").StringVar(&c.saveDir)

	return c
}

func (c WaitCommand) Name() string { return c.Cmd.FullCommand() }

func (c WaitCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}
	return waitAndSave(ctx, c.rootCmd, cl, c.jobID, c.saveDir)
}

func waitAndSave(ctx context.Context, root *RootCommand, cl *client.Client, jobID, saveDir string) error {
	p := root.Printer

	env, err := cl.WaitForCompletion(ctx, jobID, p.Status)
	if err != nil {
		if env != nil {
			p.Envelope(env, 0)
		}
		return fmt.Errorf("job %s: %w", jobID, err)
	}
	p.Envelope(env, 0)

	if saveDir == "" || env == nil || env.Result == nil {
		return nil
	}

	path, n, err := cl.DownloadArtifact(ctx, jobID, saveDir)
	if err != nil {
		// The envelope still carries the artifact inline.
		root.Logger.Warn("download failed, saving inline artifact", slog.String("error", err.Error()))
		return saveInline(p, env, saveDir)
	}
	p.Line("saved %s (%d bytes)", path, n)
	return nil
}

func saveInline(p *Printer, env *domain.Envelope, dir string) error {
	if dir == "" || env == nil || env.Result == nil {
		return nil
	}

	path, err := client.SaveArtifact(env.Result.Artifact, dir)
	if err != nil {
		return fmt.Errorf("could not save artifact: %w", err)
	}
	p.Line("saved %s (%d bytes)", path, len(env.Result.Artifact.Content))
	return nil
}
