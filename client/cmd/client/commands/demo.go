package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/you-humble/tasksim/client/internal/client"
)

type demoCase struct {
	name  string
	input map[string]any
}

var syncDemoCases = []demoCase{
	{
		name: "Text Processing",
		input: map[string]any{
			"task_type":  "text_processing",
			"duration":   10,
			"user_input": "Analyze this sample text for sentiment and key topics",
		},
	},
	{
		name: "Image Generation",
		input: map[string]any{
			"task_type":  "image_generation",
			"duration":   15,
			"user_input": "A futuristic cityscape at sunset with flying cars",
		},
	},
	{
		name: "Data Analysis",
		input: map[string]any{
			"task_type":  "data_analysis",
			"duration":   8,
			"user_input": "Performance metrics for Q4 analysis",
		},
	},
}

var asyncDemoDurations = []int{10, 25, 35}

type DemoCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	skipSync  bool
	skipAsync bool
	saveDir   string
}

// NewDemoCommand returns the demo command.
func NewDemoCommand(rootCmd *RootCommand, app *kingpin.Application) *DemoCommand {
	c := &DemoCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("demo", "Run the sync and async request demos against the endpoint.")
	c.Cmd.Flag("skip-sync", "Skip the synchronous demo.").BoolVar(&c.skipSync)
	c.Cmd.Flag("skip-async", "Skip the asynchronous demo.").BoolVar(&c.skipAsync)
	c.Cmd.Flag("save", "Directory to save artifacts into.").StringVar(&c.saveDir)

	return c
}

func (c DemoCommand) Name() string { return c.Cmd.FullCommand() }

func (c DemoCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}

	if !c.skipSync {
		c.runSync(ctx, cl)
	}
	if !c.skipAsync {
		if err := c.runAsync(ctx, cl); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// runSync keeps going after a failed case so every case gets reported.
func (c DemoCommand) runSync(ctx context.Context, cl *client.Client) {
	p := c.rootCmd.Printer
	p.Title("synchronous requests")

	for _, tc := range syncDemoCases {
		if ctx.Err() != nil {
			return
		}
		p.Line("")
		p.Title(tc.name)
		p.Line("duration: %vs", tc.input["duration"])

		start := time.Now()
		res, err := cl.SubmitSync(ctx, client.Request{Input: tc.input})
		if err != nil {
			c.rootCmd.Logger.Error("sync request failed", slog.String("case", tc.name), slog.String("error", err.Error()))
			p.fail.Fprintln(p.out, err.Error())
			continue
		}
		p.Envelope(res.Output, time.Since(start))

		if err := saveInline(p, res.Output, c.saveDir); err != nil {
			p.fail.Fprintln(p.out, err.Error())
		}
	}
}

func (c DemoCommand) runAsync(ctx context.Context, cl *client.Client) error {
	p := c.rootCmd.Printer
	p.Line("")
	p.Title("asynchronous requests")

	ids := make([]string, 0, len(asyncDemoDurations))
	for i, d := range asyncDemoDurations {
		id, err := cl.SubmitAsync(ctx, client.Request{Input: map[string]any{
			"task_type":  "text_processing",
			"duration":   d,
			"user_input": fmt.Sprintf("Long running task #%d - %d seconds", i+1, d),
		}})
		if err != nil {
			return fmt.Errorf("could not queue demo job %d: %w", i+1, err)
		}
		p.Line("job %d (%ds): %s", i+1, d, id)
		ids = append(ids, id)
	}

	for i, id := range ids {
		p.Line("")
		p.Title(fmt.Sprintf("job %d", i+1))
		if err := waitAndSave(ctx, c.rootCmd, cl, id, c.saveDir); err != nil {
			p.fail.Fprintln(p.out, err.Error())
		}
	}
	return nil
}
