package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/engine"
	"github.com/rs/zerolog"
)

// ConfirmFunc asks the user a yes/no question
type ConfirmFunc func(label string) (bool, error)

// Console renders engine events on a terminal and answers confirmations
type Console struct {
	out       io.Writer
	errOut    io.Writer
	assumeYes bool
	// interactive is false when stdin or stderr is not a terminal
	interactive bool
	confirm     ConfirmFunc
	log         *zerolog.Logger

	spinner *Spinner
}

// NewConsole creates a console front-end. Without assumeYes and outside an
// interactive terminal every question is answered no.
func NewConsole(out, errOut io.Writer, assumeYes, interactive bool, log *zerolog.Logger) *Console {
	return &Console{
		out:         out,
		errOut:      errOut,
		assumeYes:   assumeYes,
		interactive: interactive,
		confirm:     ConfirmPrompt,
		log:         log,
	}
}

// SetConfirm replaces the prompt used for questions
func (c *Console) SetConfirm(f ConfirmFunc) {
	c.confirm = f
}

// Run consumes events until the request is done and returns its error
func (c *Console) Run(ctx context.Context, events <-chan engine.Event) error {
	tick := time.NewTicker(120 * time.Millisecond)
	defer tick.Stop()
	defer c.stopSpinner()

	for {
		select {
		case ev := <-events:
			if done, err := c.handle(ev); done {
				return err
			}
		case <-tick.C:
			if c.spinner != nil {
				c.spinner.Tick()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Console) handle(ev engine.Event) (bool, error) {
	switch ev := ev.(type) {
	case engine.ConfirmationNeeded:
		c.stopSpinner()
		ev.Reply <- c.ask(ev.Title, ev.Text)

	case engine.Notify:
		c.stopSpinner()
		c.printNotify(ev)

	case engine.PlanExecuting:
		c.printExecuting(ev)
		c.startSpinner(fmt.Sprintf("Waiting for %s", ev.Capability))

	case engine.PlanFinished:
		c.stopSpinner()
		c.log.Debug().
			Str("capability", ev.Capability).
			Str("sentinel", ev.SentinelID).
			Str("status", string(ev.Status)).
			Msg("plan finished")
		fmt.Fprintf(c.out, "%s %s: %s\n", Mark(ev.Status == core.RunFinished), ev.Capability, ColorizeStatus(ev.Status))
		if ev.Restore {
			c.log.Debug().Msg("terminal sudo run ended")
		}

	case engine.RequestDone:
		c.stopSpinner()
		return true, ev.Err
	}
	return false, nil
}

func (c *Console) ask(title, text string) bool {
	Bold.Fprintln(c.out, title)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fmt.Fprintf(c.out, "  %s\n", line)
	}

	if c.assumeYes {
		Muted.Fprintln(c.out, "  (--yes) answering yes")
		return true
	}
	if !c.interactive {
		Warning.Fprintln(c.errOut, "Not a terminal, answering no. Use --yes to accept.")
		return false
	}

	ok, err := c.confirm("Proceed")
	if err != nil {
		c.log.Debug().Err(err).Str("title", title).Msg("confirmation prompt failed")
		return false
	}
	return ok
}

func (c *Console) printNotify(n engine.Notify) {
	text := strings.TrimSpace(n.Text)
	if n.Kind == engine.NotifyError {
		FprintError(c.errOut, "%s: %s", n.Title, text)
		return
	}
	FprintInfo(c.out, "%s: %s", n.Title, text)
}

func (c *Console) printExecuting(ev engine.PlanExecuting) {
	if ev.Headless {
		FprintInfo(c.out, "Running %s without a terminal (%s)", ev.Capability, ev.Mode)
		FprintKeyValue(c.out, "  Log", ev.LogPath)
	} else {
		FprintInfo(c.out, "Running %s in %s (%s)", ev.Capability, ev.Terminal, ev.Mode)
	}
	if ev.Minimize {
		Warning.Fprintln(c.out, "  Enter your password in the terminal window.")
	}
}

func (c *Console) startSpinner(description string) {
	c.stopSpinner()
	c.spinner = NewSpinner(c.errOut, description, c.interactive)
}

func (c *Console) stopSpinner() {
	if c.spinner == nil {
		return
	}
	_ = c.spinner.Finish()
	c.spinner = nil
}
