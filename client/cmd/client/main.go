package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/you-humble/tasksim/client/cmd/client/commands"
	"github.com/you-humble/tasksim/core/libs/logger"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := kingpin.New("client", "Example client for a tasksim endpoint.")
	rootCmd := commands.NewRootCommand(app)

	syncCmd := commands.NewSyncCommand(rootCmd, app)
	asyncCmd := commands.NewAsyncCommand(rootCmd, app)
	statusCmd := commands.NewStatusCommand(rootCmd, app)
	waitCmd := commands.NewWaitCommand(rootCmd, app)
	demoCmd := commands.NewDemoCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		syncCmd.Name():   syncCmd,
		asyncCmd.Name():  asyncCmd,
		statusCmd.Name(): statusCmd,
		waitCmd.Name():   waitCmd,
		demoCmd.Name():   demoCmd,
	}

	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr
	rootCmd.Logger = logger.New(stderr, rootCmd.LogLevel)
	rootCmd.Printer = commands.NewPrinter(stdout, rootCmd.NoColor)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debug("termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				if err := cmds[cmdName].Run(ctx); err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

func main() {
	if err := Run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
