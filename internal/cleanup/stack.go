package cleanup

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Func undoes one side effect of a launch
type Func func() error

type step struct {
	name string
	fn   Func
}

// Stack collects cleanup steps for a launch that may fail half-way.
// Steps run in reverse order; Release drops them once the launch succeeded.
type Stack struct {
	steps []step
	mu    sync.Mutex
	log   *zerolog.Logger
}

// NewStack creates an empty stack
func NewStack(log *zerolog.Logger) *Stack {
	return &Stack{steps: make([]step, 0), log: log}
}

// Push registers a cleanup step
func (s *Stack) Push(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step{name: name, fn: fn})
}

// Run executes every pending step, last pushed first, and empties the stack.
// A failing step does not stop the others.
func (s *Stack) Run() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.steps) == 0 {
		return nil
	}

	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if s.log != nil {
			s.log.Debug().Str("step", st.name).Msg("cleaning up")
		}
		if err := st.fn(); err != nil {
			errs = append(errs, fmt.Errorf("cleanup %q: %w", st.name, err))
			if s.log != nil {
				s.log.Warn().Err(err).Str("step", st.name).Msg("cleanup failed")
			}
		}
	}
	s.steps = nil

	return errors.Join(errs...)
}

// Release forgets every pending step without running it
func (s *Stack) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = nil
}
