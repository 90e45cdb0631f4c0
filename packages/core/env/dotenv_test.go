package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDotEnv(t *testing.T) {
	path := writeEnvFile(t, `# comment
API_TOKEN=abc123
QUOTED="hello world"
SINGLE='single quoted'
export EXPORTED=yes
`)

	vars, err := LoadDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", vars["API_TOKEN"])
	assert.Equal(t, "hello world", vars["QUOTED"])
	assert.Equal(t, "single quoted", vars["SINGLE"])
	assert.Equal(t, "yes", vars["EXPORTED"])
}

func TestLoadDotEnv_Missing(t *testing.T) {
	_, err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env"))
	assert.ErrorContains(t, err, "cannot read env file")
}

func TestLoadAndExportDotEnv(t *testing.T) {
	t.Setenv("RAWHIT_DOTENV_KEEP", "original")
	t.Setenv("RAWHIT_DOTENV_NEW", "")
	os.Unsetenv("RAWHIT_DOTENV_NEW")

	path := writeEnvFile(t, "RAWHIT_DOTENV_KEEP=overridden\nRAWHIT_DOTENV_NEW=exported\n")

	vars, err := LoadAndExportDotEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "overridden", vars["RAWHIT_DOTENV_KEEP"])
	assert.Equal(t, "original", os.Getenv("RAWHIT_DOTENV_KEEP"))
	assert.Equal(t, "exported", os.Getenv("RAWHIT_DOTENV_NEW"))

	r := NewResolver()
	assert.Equal(t, "exported", r.Resolve("{{$RAWHIT_DOTENV_NEW}}"))
}
