package runner

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quantmind-br/gnushark/internal/core"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSentinelPathUnique(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	const n = 500
	paths := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths <- NewSentinelPath("/tmp", "gnusk_done", now)
		}()
	}
	wg.Wait()
	close(paths)

	seen := make(map[string]bool, n)
	for p := range paths {
		assert.False(t, seen[p], "duplicate sentinel %s", p)
		seen[p] = true
		assert.Equal(t, "/tmp", filepath.Dir(p))
		assert.True(t, strings.HasPrefix(filepath.Base(p), "gnusk_done_"))
		assert.Contains(t, p, "_1700000000000_")
	}
	assert.Len(t, seen, n)
}

func TestWatcherWait(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		status   core.RunStatus
		exitCode int
	}{
		{name: "done", content: "DONE", status: core.RunFinished, exitCode: 0},
		{name: "done with newline", content: "DONE\n", status: core.RunFinished, exitCode: 0},
		{name: "failed", content: "FAIL 3", status: core.RunFailed, exitCode: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := afero.NewMemMapFs()
			logger := zerolog.Nop()
			w := NewWatcher(fs, 5*time.Millisecond, 2*time.Second, &logger)
			sentinel := "/tmp/gnusk_done_test"

			go func() {
				time.Sleep(20 * time.Millisecond)
				_ = afero.WriteFile(fs, sentinel, []byte(tt.content), 0o644)
			}()

			res := w.Wait(context.Background(), sentinel)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.exitCode, res.ExitCode)
			assert.Equal(t, sentinel, res.Sentinel)
			if tt.status == core.RunFailed {
				assert.ErrorIs(t, res.Err, core.ErrScriptFailed)
			}

			exists, _ := afero.Exists(fs, sentinel)
			assert.False(t, exists)
		})
	}
}

func TestWatcherIgnoresUnknownContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := zerolog.Nop()
	w := NewWatcher(fs, 5*time.Millisecond, 100*time.Millisecond, &logger)
	sentinel := "/tmp/gnusk_done_partial"
	require.NoError(t, afero.WriteFile(fs, sentinel, []byte(""), 0o644))

	res := w.Wait(context.Background(), sentinel)
	assert.ErrorIs(t, res.Err, core.ErrWatchTimeout)
}

func TestWatcherTimeout(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := zerolog.Nop()
	w := NewWatcher(fs, 5*time.Millisecond, 30*time.Millisecond, &logger)

	res := w.Wait(context.Background(), "/tmp/never")
	assert.Equal(t, core.RunTimedOut, res.Status)
	assert.ErrorIs(t, res.Err, core.ErrWatchTimeout)
	assert.False(t, res.OK())
}

func TestWatcherContextCancel(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := zerolog.Nop()
	w := NewWatcher(fs, 5*time.Millisecond, time.Hour, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := w.Wait(ctx, "/tmp/never")
	assert.ErrorIs(t, res.Err, context.Canceled)
}
