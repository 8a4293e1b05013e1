package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and the
// command error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// mustExecute runs the command and fails the test on error.
func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	require.NoError(t, err, "shelf %v: %s", args, out)
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "shelf", cmd.Use)
	assert.Contains(t, cmd.Long, ".shelf.json")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"put", "get", "rm", "resolve", "query", "dump", "validate", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	flags := cmd.PersistentFlags()

	verbose := flags.Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	for name, def := range map[string]string{
		"format":  "text",
		"db":      "shelf.db",
		"backend": "sqlite",
		"schema":  "",
		"config":  "",
	} {
		f := flags.Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, def, f.DefValue, name)
	}
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	q, _, err := cmd.Find([]string{"query"})
	require.NoError(t, err)

	assert.Equal(t, "-1", q.Flags().Lookup("limit").DefValue)
	assert.Equal(t, "0", q.Flags().Lookup("offset").DefValue)
	assert.Equal(t, "false", q.Flags().Lookup("explain").DefValue)
	assert.NotNil(t, q.Flags().Lookup("join"))
	assert.NotNil(t, q.Flags().Lookup("where"))
}

func TestInvalidGlobalFlags(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "dump", "--db", filepath.Join(dir, "x.db"), "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)

	_, err = execute(t, "dump", "--db", filepath.Join(dir, "x.db"), "--backend", "redis")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid backend "redis"`)
}

func TestArgumentCounts(t *testing.T) {
	db := filepath.Join(t.TempDir(), "shelf.db")

	_, err := execute(t, "get", "todos", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")

	_, err = execute(t, "resolve", "todos", "T-1", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 3 arg(s)")
}
