package callkit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOptionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadClientOptions(t *testing.T) {
	path := writeOptionsFile(t, `
log_level: debug
diagnostics:
  app_name: softphone
  app_version: "2.1.0"
  tags:
    - desktop
    - beta
`)

	opts, err := LoadClientOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, "softphone", opts.Diagnostics.AppName)
	assert.Equal(t, "2.1.0", opts.Diagnostics.AppVersion)
	assert.Equal(t, []string{"desktop", "beta"}, opts.Diagnostics.Tags)
}

func TestLoadClientOptionsDefaults(t *testing.T) {
	path := writeOptionsFile(t, "{}\n")

	opts, err := LoadClientOptions(path)
	require.NoError(t, err)
	assert.Empty(t, opts.LogLevel)
	assert.Empty(t, opts.Diagnostics.AppName)
}

func TestLoadClientOptionsErrors(t *testing.T) {
	_, err := LoadClientOptions(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadClientOptions(writeOptionsFile(t, "log_level: [not, a, string]\n"))
	assert.Error(t, err)

	_, err = LoadClientOptions(writeOptionsFile(t, "log_level: shout\n"))
	assert.Error(t, err)
}
