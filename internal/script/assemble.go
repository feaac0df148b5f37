package script

import (
	"strconv"
	"strings"

	"github.com/quantmind-br/gnushark/internal/helpers"
)

// Sentinel markers written by an assembled script
const (
	MarkerDone = "DONE"
	MarkerFail = "FAIL"
)

// Assemble wraps body with the strict preamble, the expect wrapper and the
// privilege primitives, and makes the script write a completion marker to
// sentinel. A successful run writes DONE; any earlier exit writes FAIL <code>.
// The marker is renamed into place so a watcher never reads a partial file.
func Assemble(body, primitives, sentinel string) string {
	q := helpers.ShellQuote(sentinel)

	parts := []string{
		"set -e",
		ExpectFunc(),
		strings.TrimSpace(primitives),
		"__gnusk_sentinel=" + q,
		`trap '__gnusk_rc=$?; if [ "$__gnusk_rc" -ne 0 ]; then printf "` + MarkerFail + ` %d" "$__gnusk_rc" > "$__gnusk_sentinel.tmp" && mv -f "$__gnusk_sentinel.tmp" "$__gnusk_sentinel"; fi' EXIT`,
		"set -o pipefail",
		strings.TrimSpace(body),
		`printf ` + MarkerDone + ` > "$__gnusk_sentinel.tmp" && mv -f "$__gnusk_sentinel.tmp" "$__gnusk_sentinel"`,
		"sync",
		"true",
	}
	return strings.Join(parts, "\n") + "\n"
}

// ParseMarker interprets sentinel content. ok is false while the content is unrecognized.
func ParseMarker(content string) (exitCode int, ok bool) {
	content = strings.TrimSpace(content)
	switch {
	case content == MarkerDone:
		return 0, true
	case strings.HasPrefix(content, MarkerFail):
		code, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(content, MarkerFail)))
		if err != nil || code == 0 {
			code = 1
		}
		return code, true
	}
	return 0, false
}
