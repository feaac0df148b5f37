package script

import (
	"strings"

	"github.com/quantmind-br/gnushark/internal/helpers"
)

// RootHeredoc feeds lines to run_root_sh through a quoted heredoc.
// Lines are emitted verbatim; they must not contain a line reading EOS.
func RootHeredoc(lines ...string) string {
	return "run_root_sh <<'EOS'\n" + strings.Join(lines, "\n") + "\nEOS"
}

// MultilibScript enables [multilib] in pacman.conf after a timestamped backup and refreshes the databases
func MultilibScript() string {
	return "set -euo pipefail\n" + RootHeredoc(
		"set -euo pipefail",
		"cp /etc/pacman.conf{,.bak.$(date +%F-%H%M%S)}",
		`sed -ri 's/^\s*#\s*\[multilib\]/[multilib]/' /etc/pacman.conf`,
		`sed -ri '/^\s*\[multilib\]/,/\s*(\[|\Z)/ { s/^\s*#\s*(Include)/\1/ }' /etc/pacman.conf`,
		`grep -q '^\[multilib\]' /etc/pacman.conf`,
		"pacman -Syy",
	)
}

// ExtrasBlock asks at the end of a script whether to install optional packages
// and runs install when the user agrees. zenity is used when present, else the terminal.
func ExtrasBlock(title, prompt string, packages []string, install string) string {
	text := prompt + "\n\nPackages: " + strings.Join(packages, " ")

	var b strings.Builder
	b.WriteString("_do_extras=0\n")
	b.WriteString("if command -v zenity >/dev/null 2>&1; then\n")
	b.WriteString("  zenity --question --no-wrap --title=" + helpers.ShellQuote(title) +
		" --text=" + helpers.ShellQuote(text) + " && _do_extras=1 || true\n")
	b.WriteString("else\n")
	b.WriteString("  printf '\\n%s\\n[y/N]: ' " + helpers.ShellQuote(text) + "\n")
	b.WriteString("  _ans=''\n")
	b.WriteString("  read -r _ans || true\n")
	b.WriteString("  case \"$_ans\" in [yY]|[yY][eE][sS]|[sS]) _do_extras=1 ;; esac\n")
	b.WriteString("fi\n")
	b.WriteString("if [ \"$_do_extras\" -eq 1 ]; then\n")
	for _, line := range strings.Split(strings.TrimSpace(install), "\n") {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("fi")
	return b.String()
}
