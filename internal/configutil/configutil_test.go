package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string            `json:"name"`
	Port    int               `json:"port"`
	Headers map[string]string `json:"headers"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	require.NoError(t, err)
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.json5"), `{
		// comments are allowed
		name: "base",
		port: 8080,
	}`)
	writeFile(t, filepath.Join(dir, "app.local.json5"), `{ port: 9090 }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "base", cfg.Name)
	require.Equal(t, 9090, cfg.Port)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.json5"), `{ name: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "bad.json5"))
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestWithDefaults(t *testing.T) {
	cfg, err := WithDefaults(
		testConfig{Port: 1},
		testConfig{Name: "default", Port: 2},
	)
	require.NoError(t, err)
	require.Equal(t, "default", cfg.Name)
	require.Equal(t, 1, cfg.Port)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, filepath.Join("a", "b.local.json5"), localPath(filepath.Join("a", "b.json5")))
	require.Equal(t, "noext.local", localPath("noext"))
}
