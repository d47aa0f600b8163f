package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/you-humble/tasksim/client/internal/client"
	"github.com/you-humble/tasksim/core/job"
	"github.com/you-humble/tasksim/core/sim/artifact"
	"github.com/you-humble/tasksim/core/sim/domain"
)

// Printer renders human readable results.
type Printer struct {
	out io.Writer

	ok    *color.Color
	fail  *color.Color
	wait  *color.Color
	title *color.Color
}

func NewPrinter(out io.Writer, noColor bool) *Printer {
	p := &Printer{
		out:   out,
		ok:    color.New(color.FgGreen, color.Bold),
		fail:  color.New(color.FgRed, color.Bold),
		wait:  color.New(color.FgYellow),
		title: color.New(color.FgCyan, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.ok, p.fail, p.wait, p.title} {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) Title(s string) {
	p.title.Fprintln(p.out, s)
}

func (p *Printer) Line(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

func (p *Printer) Status(st client.JobStatus) {
	c := p.wait
	switch st.Status {
	case job.StatusCompleted:
		c = p.ok
	case job.StatusFailed, job.StatusExpired:
		c = p.fail
	}

	fmt.Fprintf(p.out, "%s %s", st.ID, c.Sprint(st.Status))
	if st.Error != "" {
		fmt.Fprintf(p.out, " (%s)", st.Error)
	}
	fmt.Fprintln(p.out)
}

func (p *Printer) Envelope(env *domain.Envelope, took time.Duration) {
	if env == nil {
		p.fail.Fprintln(p.out, "no output")
		return
	}
	if !env.Success {
		p.fail.Fprintf(p.out, "failed: %s: %s\n", env.Error, env.Message)
		return
	}

	p.ok.Fprintf(p.out, "success")
	if took > 0 {
		fmt.Fprintf(p.out, " (took %s)", artifact.FormatDuration(took))
	}
	fmt.Fprintln(p.out)

	if env.TaskID != nil {
		p.Line("task id:          %s", *env.TaskID)
	}
	if env.Status != "" {
		p.Line("status:           %s", env.Status)
		p.Line("message:          %s", env.Message)
		return
	}
	p.Line("progress updates: %d", len(env.ProgressUpdates))
	if env.Result != nil {
		a := env.Result.Artifact
		p.Line("file:             %s", a.Filename)
		p.Line("size:             %s", a.SizeHuman)
		p.Line("preview:          %s", a.Preview)
	}
}
