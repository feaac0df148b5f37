package fsops

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	fs := afero.NewMemMapFs()

	path := "/test/nested/dir"
	require.NoError(t, EnsureDir(fs, path, 0o755))
	assert.True(t, IsDir(fs, path))

	// already present
	require.NoError(t, EnsureDir(fs, path, 0o755))
}

func TestCheckWritable(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))

	require.NoError(t, CheckWritable(fs, "/data"))
	exists, err := afero.Exists(fs, "/data/"+writeMarker)
	require.NoError(t, err)
	assert.False(t, exists, "marker file is removed")

	ro := afero.NewReadOnlyFs(fs)
	assert.Error(t, CheckWritable(ro, "/data"))
}

func TestUsableDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/file", []byte("x"), 0o644))
	require.NoError(t, fs.MkdirAll("/existing", 0o755))

	tests := []struct {
		name    string
		path    string
		wantErr error
		fails   bool
	}{
		{name: "created when missing", path: "/new/dir"},
		{name: "existing directory", path: "/existing"},
		{name: "regular file", path: "/file", wantErr: ErrNotDir, fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := UsableDir(fs, tt.path)
			if !tt.fails {
				require.NoError(t, err)
				assert.True(t, IsDir(fs, tt.path))
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIsDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/test.txt", []byte("test"), 0o644))

	assert.False(t, IsDir(fs, "/test.txt"))
	assert.False(t, IsDir(fs, "/missing"))
	assert.True(t, IsDir(fs, "/"))
}
