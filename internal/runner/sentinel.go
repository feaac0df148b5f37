package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/quantmind-br/gnushark/internal/script"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

var sentinelSeq atomic.Uint64

// NewSentinelPath returns a path no other call in this process will return:
// <dir>/<prefix>_<pid>_<epoch-ms>_<seq>
func NewSentinelPath(dir, prefix string, now time.Time) string {
	seq := sentinelSeq.Add(1)
	name := fmt.Sprintf("%s_%d_%d_%d", prefix, os.Getpid(), now.UnixMilli(), seq)
	return filepath.Join(dir, name)
}

// Watcher polls for a sentinel file and consumes it
type Watcher struct {
	fs       afero.Fs
	interval time.Duration
	timeout  time.Duration
	log      *zerolog.Logger
}

// NewWatcher creates a watcher polling every interval for at most timeout
func NewWatcher(fs afero.Fs, interval, timeout time.Duration, log *zerolog.Logger) *Watcher {
	return &Watcher{fs: fs, interval: interval, timeout: timeout, log: log}
}

// Wait blocks until the sentinel appears, the timeout elapses or ctx is done.
// A sentinel that is seen is deleted before Wait returns.
func (w *Watcher) Wait(ctx context.Context, sentinel string) Result {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	for {
		if res, ok := w.consume(sentinel); ok {
			return res
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			w.log.Warn().Str("sentinel", sentinel).Dur("timeout", w.timeout).Msg("sentinel not observed")
			_ = w.fs.Remove(sentinel + ".tmp")
			return Result{
				Sentinel: sentinel,
				Status:   core.RunTimedOut,
				ExitCode: -1,
				Err:      fmt.Errorf("%s after %s: %w", sentinel, w.timeout, core.ErrWatchTimeout),
			}
		case <-ctx.Done():
			return Result{
				Sentinel: sentinel,
				Status:   core.RunFailed,
				ExitCode: -1,
				Err:      ctx.Err(),
			}
		}
	}
}

// consume reads and removes the sentinel when it carries a complete marker
func (w *Watcher) consume(sentinel string) (Result, bool) {
	data, err := afero.ReadFile(w.fs, sentinel)
	if err != nil {
		return Result{}, false
	}

	code, ok := script.ParseMarker(string(data))
	if !ok {
		return Result{}, false
	}

	if err := w.fs.Remove(sentinel); err != nil {
		w.log.Debug().Err(err).Str("sentinel", sentinel).Msg("could not remove sentinel")
	}

	w.log.Debug().Str("sentinel", sentinel).Int("exit_code", code).Msg("sentinel observed")
	return resultFor(sentinel, code), true
}

func resultFor(sentinel string, code int) Result {
	res := Result{Sentinel: sentinel, ExitCode: code, Status: core.RunFinished}
	if code != 0 {
		res.Status = core.RunFailed
		res.Err = fmt.Errorf("script exited with status %d: %w", code, core.ErrScriptFailed)
	}
	return res
}
