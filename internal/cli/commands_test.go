package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDescribeText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewDescribeCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Book"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "demo.Book  table=Book prefix=boo key=ID version=Version")
	assert.Contains(t, output, "Edition_PublisherID")
	assert.Contains(t, output, "unique UX_Book_ISBN (ISBN)")
	assert.Contains(t, output, "include (Price)")
}

func TestDescribeYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "yaml"}
	cmd := NewDescribeCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string `yaml:"status"`
		Data   []struct {
			Type  string `yaml:"type"`
			Query string `yaml:"query"`
		} `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 5)
	assert.Equal(t, "demo.Shelf", resp.Data[4].Type)
	assert.NotEmpty(t, resp.Data[4].Query)
}

func TestDescribeUnknownType(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewDescribeCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Magazine"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeUnknownType, resp.Error.Code)
}

func TestSQLJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Dialect: "postgres"}
	cmd := NewSQLCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Review", "Shelf"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   []StatementOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))

	var ops []string
	for _, st := range resp.Data {
		ops = append(ops, st.Type+" "+st.Op)
	}
	assert.Equal(t, []string{"Review select", "Review insert", "Review update", "Review delete", "Shelf select"}, ops)
	assert.Equal(t, `INSERT INTO "Review" ("BookID", "Stars", "Text") VALUES ($1, $2, $3) RETURNING "ID"`, resp.Data[1].SQL)
	assert.Equal(t, []string{"BookID", "Stars", "Text"}, resp.Data[1].Slots)
	assert.Nil(t, resp.Data[0].Slots)
}

func TestSQLOpFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSQLCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Author", "--op", "update"})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, "-- Author update\nUPDATE \"Author\" SET \"Name\" = ?, \"Born\" = ? WHERE \"ID\" = ?;\n", buf.String())
}

func TestSQLInvalidOp(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSQLCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--op", "merge"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), `invalid op "merge"`)
}

func TestDDLText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewDDLCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"Review"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	// Referenced tables come first.
	author := bytes.Index(buf.Bytes(), []byte(`CREATE TABLE IF NOT EXISTS "Author"`))
	book := bytes.Index(buf.Bytes(), []byte(`CREATE TABLE IF NOT EXISTS "Book"`))
	review := bytes.Index(buf.Bytes(), []byte(`CREATE TABLE IF NOT EXISTS "Review"`))
	require.GreaterOrEqual(t, author, 0, output)
	assert.Less(t, author, book)
	assert.Less(t, book, review)
	assert.Contains(t, output, `"Stars" INTEGER NOT NULL DEFAULT 3`)
	assert.NotContains(t, output, "Shelf")
}

func TestMigrate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "shop.db")

	run := func() CLIResponse {
		buf := &bytes.Buffer{}
		rootOpts := &RootOptions{Format: "json", Driver: "sqlite", DSN: dsn}
		cmd := NewMigrateCommand(rootOpts)
		cmd.SetOut(buf)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{})
		require.NoError(t, cmd.Execute())

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		return resp
	}

	first := run()
	assert.Equal(t, "ok", first.Status)
	states := first.Data.([]any)
	require.Len(t, states, 4)
	for _, st := range states {
		assert.Equal(t, true, st.(map[string]any)["created"])
	}

	second := run()
	for _, st := range second.Data.([]any) {
		assert.Equal(t, false, st.(map[string]any)["created"])
	}
}

func TestMigrateBadDriver(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Driver: "oracle"}
	cmd := NewMigrateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E001]")
}
