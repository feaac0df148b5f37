package script

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule answers one kind of interactive package-manager prompt
type Rule struct {
	Name    string
	Pattern string
	// Answer is sent followed by a carriage return; empty means just press Enter
	Answer string

	re *regexp.Regexp
}

// PromptRules are evaluated in order; the first match wins.
// Removal prompts come first so they are never confirmed.
var PromptRules = compileRules([]Rule{
	{Name: "deny-removal", Pattern: `(?i)\b(Remove|Remover)\b[^?\n]*\?`, Answer: "n"},
	{Name: "proceed", Pattern: `(?i)(::\s*)?(Proceed|Install|Continue|Replace)[^?\n]*\?`, Answer: "y"},
	{Name: "import-pgp", Pattern: `(?i)(::\s*)?Import[^.\n]*PGP[^?\n]*\?`, Answer: "y"},
	{Name: "proceed-pt", Pattern: `(?i)(Deseja|Continuar|Substituir|Conflit)[^?\n]*\?`, Answer: "s"},
	{Name: "press-enter", Pattern: `(?i)press[^\n]*enter[^\n]*continue`, Answer: ""},
})

func compileRules(rules []Rule) []Rule {
	for i := range rules {
		rules[i].re = regexp.MustCompile(rules[i].Pattern)
	}
	return rules
}

// Answer returns the reply the expect wrapper sends for a line of output
func Answer(line string) (rule Rule, ok bool) {
	for _, r := range PromptRules {
		if r.re.MatchString(line) {
			return r, true
		}
	}
	return Rule{}, false
}

// tclPattern converts a Go regexp to Tcl ARE syntax, where \b is a backspace
// and word boundaries are written \y
func tclPattern(pattern string) string {
	return strings.ReplaceAll(pattern, `\b`, `\y`)
}

// ExpectFunc renders the expect_yes_pac shell function. The command travels
// through the environment so expect never re-parses it as Tcl. Without expect,
// pacman and pamac (bare or wrapped in run_root) get a stream of yes and
// anything else is evaluated as-is.
func ExpectFunc() string {
	var clauses strings.Builder
	for _, r := range PromptRules {
		fmt.Fprintf(&clauses, "        -re {%s} { send \"%s\\r\"; exp_continue }\n", tclPattern(r.Pattern), r.Answer)
	}

	return `expect_yes_pac() {
  set -o pipefail
  if command -v expect >/dev/null 2>&1; then
    GNUSK_CMD="$1" expect -c '
      set timeout -1
      set cmd $env(GNUSK_CMD)
      spawn env LC_ALL=C bash -lc $cmd
      expect {
` + clauses.String() + `        eof
      }
      catch wait result
      exit [lindex $result 3]
    '
  else
    _cmd="$1"
    _prog="${_cmd%% *}"
    if [ "$_prog" = run_root ]; then
      _prog="${_cmd#run_root }"
      _prog=${_prog#\'}
      _prog="${_prog%% *}"
    fi
    case "$_prog" in
      pacman|pamac) { yes 2>/dev/null || true; } | env LC_ALL=C bash -lc "$_cmd" ;;
      *) eval "$_cmd" ;;
    esac
  fi
}`
}
