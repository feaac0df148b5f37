package core

import "errors"

// Error kinds surfaced by the orchestration engine. Components wrap these with
// context; callers classify with errors.Is.
var (
	ErrUnknownCapability      = errors.New("unknown capability")
	ErrHardwareIncompatible   = errors.New("hardware incompatible")
	ErrMissingPrivilegeHelper = errors.New("no privilege escalation helper available")
	ErrMissingBuildHelper     = errors.New("no build helper available")
	ErrScriptConstruction     = errors.New("could not build install script")
	ErrLaunchFailure          = errors.New("launch failed")
	ErrScriptFailed           = errors.New("install script failed")
	ErrWatchTimeout           = errors.New("completion sentinel not observed in time")
	ErrConfigWrite            = errors.New("could not write configuration")
)
