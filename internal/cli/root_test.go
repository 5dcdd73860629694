package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "relmap", cmd.Use)
	assert.Contains(t, cmd.Long, "bookshop catalog")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"describe", "sql", "ddl", "migrate"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	// Empty defaults defer to the config file and environment.
	for _, name := range []string{"config", "driver", "dsn", "dialect", "format"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue, name)
	}
}

func TestSQLCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sqlCmd, _, err := cmd.Find([]string{"sql"})
	require.NoError(t, err)

	opFlag := sqlCmd.Flags().Lookup("op")
	require.NotNil(t, opFlag)
	assert.Equal(t, "all", opFlag.DefValue)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"describe", "--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "load configuration")
}

func TestRootCommand_EnvironmentSelectsDialect(t *testing.T) {
	t.Setenv("RELMAP_DIALECT", "postgres")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"sql", "Review", "--op", "delete"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), `DELETE FROM "Review" WHERE "ID" = $1;`)
}
