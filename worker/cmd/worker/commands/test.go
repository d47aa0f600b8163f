package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/you-humble/tasksim/core/sim/domain"
)

// TestEvent is the fixed event used by local test mode.
var TestEvent = domain.Event{
	ID: "test-request-123",
	Input: map[string]any{
		"task_type":  string(domain.TaskTextProcessing),
		"duration":   10,
		"user_input": "Test processing task",
	},
}

type TestCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewTestCommand returns the test command.
func NewTestCommand(rootCmd *RootCommand, app *kingpin.Application) *TestCommand {
	c := &TestCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("test", "Run the built-in test event and print the result.")
	return c
}

func (c TestCommand) Name() string { return c.Cmd.FullCommand() }

func (c TestCommand) Run(ctx context.Context) error {
	c.rootCmd.Logger.Info("running local test event")

	env := c.rootCmd.Handler().Handle(ctx, TestEvent)
	if err := c.rootCmd.printJSON(env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("test event failed: %s: %s", env.Error, env.Message)
	}
	return nil
}
