package engine

import (
	"github.com/quantmind-br/gnushark/internal/core"
)

// Event is emitted by the engine for the front-end
type Event interface {
	event()
}

// ConfirmationNeeded asks a yes/no question. The front-end must send exactly
// one answer on Reply.
type ConfirmationNeeded struct {
	Title string
	Text  string
	Reply chan<- bool
}

// NotifyKind distinguishes informational messages from errors
type NotifyKind string

const (
	NotifyInfo  NotifyKind = "info"
	NotifyError NotifyKind = "error"
)

// Notify shows a message
type Notify struct {
	Kind  NotifyKind
	Title string
	Text  string
}

// PlanExecuting reports a launched script
type PlanExecuting struct {
	Capability string
	SentinelID string
	Mode       core.PrivilegeMode
	Terminal   string
	Headless   bool
	LogPath    string
	// Minimize asks the front-end to step aside while sudo prompts in the terminal
	Minimize bool
}

// PlanFinished reports the completion of a launched script
type PlanFinished struct {
	Capability string
	SentinelID string
	Status     core.RunStatus
	ExitCode   int
	LogPath    string
	Restore    bool
	Err        error
}

// RequestDone is the last event of a request
type RequestDone struct {
	Capability string
	Err        error
}

func (ConfirmationNeeded) event() {}
func (Notify) event()             {}
func (PlanExecuting) event()      {}
func (PlanFinished) event()       {}
func (RequestDone) event()        {}
