package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "blog.cue", `
table: posts: {
	has_many: comments: {}
	belongs_to: author: {table: "users", foreign_key: "writer_id"}
}
`)

	out := mustExecute(t, "validate", path)
	assert.Equal(t,
		"comments\n"+
			"posts\n"+
			"  belongs_to author -> users via writer_id\n"+
			"  has_many comments -> comments via post_id\n"+
			"users\n"+
			"✓ schema valid (3 tables)\n",
		out)
}

func TestValidate_UsesSchemaFlag(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s.cue", `table: people: {}`)

	out := mustExecute(t, "validate", "--schema", path, "--format", "json")
	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Tables, 1)
	assert.Equal(t, "people", resp.Data.Tables[0].Name)
	assert.Empty(t, resp.Data.Tables[0].Associations)
}

func TestValidate_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.cue", "table: posts: {\n\towns: comments: {}\n}\n")

	out, err := execute(t, "validate", bad, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string             `json:"code"`
			Message string             `json:"message"`
			Details SchemaErrorDetails `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeSchema, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, `unknown key "owns"`)
	assert.Equal(t, "table.posts", resp.Error.Details.Field)
	assert.Equal(t, bad, resp.Error.Details.File)

	_, err = execute(t, "validate", filepath.Join(dir, "absent.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no schema given")
}
