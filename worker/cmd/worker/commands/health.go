package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/you-humble/tasksim/core/sim/handler"
)

type HealthCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewHealthCommand returns the health command.
func NewHealthCommand(rootCmd *RootCommand, app *kingpin.Application) *HealthCommand {
	c := &HealthCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("health", "Print the health document.")
	return c
}

func (c HealthCommand) Name() string { return c.Cmd.FullCommand() }

func (c HealthCommand) Run(context.Context) error {
	return c.rootCmd.printJSON(handler.Health())
}
