package runner

import (
	"github.com/quantmind-br/gnushark/internal/helpers"
)

// Terminal describes how to launch a script inside a terminal emulator
type Terminal struct {
	Name string
	// Args precede the script. Most emulators end with "bash -lc" and take
	// the script as the next argument.
	Args []string
	// StringCommand emulators take a single command string instead
	StringCommand bool
	// Wayland emulators are tried first in a Wayland session
	Wayland bool
}

// Terminals is the built-in emulator table in preference order
var Terminals = []Terminal{
	{Name: "kgx", Args: []string{"--", "bash", "-lc"}, Wayland: true},
	{Name: "ghostty", Args: []string{"--", "bash", "-lc"}, Wayland: true},
	{Name: "foot", Args: []string{"-e", "bash", "-lc"}, Wayland: true},
	{Name: "footclient", Args: []string{"-e", "bash", "-lc"}, Wayland: true},
	{Name: "rio", Args: []string{"-e", "bash", "-lc"}, Wayland: true},
	{Name: "wezterm", Args: []string{"start", "bash", "-lc"}, Wayland: true},
	{Name: "gnome-terminal", Args: []string{"--wait", "--", "bash", "-lc"}},
	{Name: "konsole", Args: []string{"-e", "bash", "-lc"}},
	{Name: "xterm", Args: []string{"-e", "bash", "-lc"}},
	{Name: "terminator", Args: []string{"-x", "bash", "-lc"}},
	{Name: "urxvt", Args: []string{"-e", "bash", "-lc"}},
	{Name: "rxvt", Args: []string{"-e", "bash", "-lc"}},
	{Name: "st", Args: []string{"-e", "bash", "-lc"}},
	{Name: "eterm", Args: []string{"-e", "bash", "-lc"}},
	{Name: "terminology", Args: []string{"-e", "bash", "-lc"}},
	{Name: "alacritty", Args: []string{"-e", "bash", "-lc"}},
	{Name: "kitty", Args: []string{"-e", "bash", "-lc"}},
	{Name: "tilix", Args: []string{"--", "bash", "-lc"}},
	{Name: "xfce4-terminal", Args: []string{"--command"}, StringCommand: true},
	{Name: "mate-terminal", Args: []string{"--", "bash", "-lc"}},
	{Name: "qterminal", Args: []string{"-e", "bash", "-lc"}},
	{Name: "lxterminal", Args: []string{"-e", "bash", "-lc"}},
}

// SelectTerminal picks the emulator for a launch. An override naming a known
// and installed emulator wins; otherwise the first installed entry of the
// table is used, with Wayland-native emulators moved to the front when
// wayland is set. ok is false when nothing is installed.
func SelectTerminal(override string, wayland bool, exists func(string) bool) (Terminal, bool) {
	if override != "" {
		for _, t := range Terminals {
			if t.Name == override && exists(t.Name) {
				return t, true
			}
		}
	}

	for _, t := range orderedTerminals(wayland) {
		if exists(t.Name) {
			return t, true
		}
	}
	return Terminal{}, false
}

func orderedTerminals(wayland bool) []Terminal {
	if !wayland {
		return Terminals
	}
	out := make([]Terminal, 0, len(Terminals))
	for _, t := range Terminals {
		if t.Wayland {
			out = append(out, t)
		}
	}
	for _, t := range Terminals {
		if !t.Wayland {
			out = append(out, t)
		}
	}
	return out
}

// Argv returns the emulator arguments that run script
func (t Terminal) Argv(script string) []string {
	args := append([]string{}, t.Args...)
	if t.StringCommand {
		return append(args, "bash -lc "+helpers.ShellQuote(script))
	}
	return append(args, script)
}
