package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/you-humble/tasksim/core/libs/logger"
	"github.com/you-humble/tasksim/core/sim/handler"
	"github.com/you-humble/tasksim/worker/cmd/worker/commands"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := kingpin.New("worker", "Runs simulated tasks locally without the platform.")
	app.Version(handler.ServiceVersion)
	rootCmd := commands.NewRootCommand(app)

	testCmd := commands.NewTestCommand(rootCmd, app)
	runCmd := commands.NewRunCommand(rootCmd, app)
	healthCmd := commands.NewHealthCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		testCmd.Name():   testCmd,
		runCmd.Name():    runCmd,
		healthCmd.Name(): healthCmd,
	}

	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Logs go to stderr so stdout only carries the JSON result.
	if rootCmd.NoLog {
		rootCmd.Logger = slog.New(slog.DiscardHandler)
	} else {
		rootCmd.Logger = logger.New(stderr, rootCmd.LogLevel)
	}

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
