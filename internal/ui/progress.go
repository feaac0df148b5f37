package ui

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Spinner shows that gnushark is waiting on a script running elsewhere
type Spinner struct {
	bar *progressbar.ProgressBar
}

// NewSpinner creates an indeterminate spinner on w. Nothing is drawn when
// enabled is false, so output stays clean when stderr is not a terminal.
func NewSpinner(w io.Writer, description string, enabled bool) *Spinner {
	if !enabled {
		w = io.Discard
	}
	if w == nil {
		w = os.Stderr
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(10),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)

	return &Spinner{bar: bar}
}

// Tick advances the animation
func (s *Spinner) Tick() {
	_ = s.bar.Add(1)
}

// Describe changes the description of the spinner
func (s *Spinner) Describe(description string) {
	s.bar.Describe(description)
}

// Finish stops the spinner and clears its line
func (s *Spinner) Finish() error {
	return s.bar.Finish()
}

// IsFinished returns true once Finish was called
func (s *Spinner) IsFinished() bool {
	return s.bar.IsFinished()
}
