package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func noEnv(string) string { return "" }

func TestNewResolver(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	resolver := NewResolver()

	assert.NotNil(t, resolver)
	homeDir, err := os.UserHomeDir()
	if err == nil {
		assert.Equal(t, homeDir, resolver.HomeDir())
	}
}

func TestResolver_Defaults(t *testing.T) {
	r := NewResolverWithHome("/home/user", noEnv)

	assert.Equal(t, "/home/user", r.HomeDir())
	assert.Equal(t, filepath.Join("/home/user", ".local", "share", "gnushark"), r.DataDir())
	assert.Equal(t, filepath.Join("/home/user", ".config", "gnushark"), r.ConfigDir())
	assert.Equal(t, "/home/user/.local/share/gnushark/history.db", r.DBFile())
	assert.Equal(t, "/home/user/.local/share/gnushark/gnushark.log", r.LogFile())
	assert.Equal(t, "/home/user/.config/gnushark/catalog.yaml", r.CatalogFile())
}

func TestResolver_XDG(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantData   string
		wantConfig string
	}{
		{
			name:       "both set",
			env:        map[string]string{"XDG_DATA_HOME": "/xdg/data", "XDG_CONFIG_HOME": "/xdg/config"},
			wantData:   "/xdg/data/gnushark",
			wantConfig: "/xdg/config/gnushark",
		},
		{
			name:       "relative values are ignored",
			env:        map[string]string{"XDG_DATA_HOME": "data", "XDG_CONFIG_HOME": "./config"},
			wantData:   "/home/user/.local/share/gnushark",
			wantConfig: "/home/user/.config/gnushark",
		},
		{
			name:       "only config",
			env:        map[string]string{"XDG_CONFIG_HOME": "/etc/xdg"},
			wantData:   "/home/user/.local/share/gnushark",
			wantConfig: "/etc/xdg/gnushark",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolverWithHome("/home/user", func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.wantData, r.DataDir())
			assert.Equal(t, tt.wantConfig, r.ConfigDir())
			assert.Equal(t, filepath.Join(tt.wantConfig, "catalog.yaml"), r.CatalogFile())
		})
	}
}
