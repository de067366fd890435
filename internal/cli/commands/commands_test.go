package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	assert.Equal(t, "version", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Fieldline v1.2.3")
}

func TestNewParseCommand(t *testing.T) {
	cmd := NewParseCommand()
	assert.Equal(t, "parse <formula>", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Example)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"#qty * 2"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "binary *")
	assert.Contains(t, out, "identifier #qty")
	assert.Contains(t, out, "canonical: (#qty * 2)")
}

func TestNewParseCommand_Invalid(t *testing.T) {
	cmd := NewParseCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"#qty *"})
	assert.Error(t, cmd.Execute())
}

func TestNewTokensCommand(t *testing.T) {
	cmd := NewTokensCommand()
	assert.Equal(t, "tokens <formula>", cmd.Use)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"1 + 2"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "NUMBER")
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()
	assert.Equal(t, "validate <formula>", cmd.Use)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"IF(#a > 0, 1, 2)"})
	require.NoError(t, cmd.Execute())

	cmd = NewValidateCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"BOGUS_FN(1)"})
	assert.Error(t, cmd.Execute())
}

func TestNewDepsCommand(t *testing.T) {
	cmd := NewDepsCommand()
	assert.Equal(t, "deps <formula>", cmd.Use)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"SUM(@self.orders[*].total) + #fee"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "orders.total")
	assert.Contains(t, out, "fee")
	assert.Contains(t, out, "SUM")
}

func TestNewFunctionsCommand(t *testing.T) {
	cmd := NewFunctionsCommand()
	assert.Equal(t, "functions", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("category"))

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--category", "aggregate"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "SUM")
	assert.NotContains(t, out, "CONCAT")
}

func TestNewEvalCommand(t *testing.T) {
	cmd := NewEvalCommand()
	assert.Equal(t, "eval <formula>", cmd.Use)
	for _, flag := range []string{"entity", "set"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--set", "qty=3", "--set", "price=10", "#qty * #price"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "30")
}

func TestNewEntityCommand(t *testing.T) {
	cmd := NewEntityCommand()
	assert.Equal(t, "entity", cmd.Use)

	subs := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subs[strings.Fields(sub.Use)[0]] = true
	}
	for _, want := range []string{"create", "list", "link"} {
		assert.True(t, subs[want], "subcommand %q should exist", want)
	}
}

func TestNewStaleCommand(t *testing.T) {
	cmd := NewStaleCommand()
	assert.Equal(t, "stale", cmd.Use)

	subs := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subs[strings.Fields(sub.Use)[0]] = true
	}
	for _, want := range []string{"list", "mark", "recompute"} {
		assert.True(t, subs[want], "subcommand %q should exist", want)
	}
}

func TestNewDefineCommand(t *testing.T) {
	cmd := NewDefineCommand()
	assert.Equal(t, "define <entity-id> <property> <formula>", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
}

func TestNewWriteCommand(t *testing.T) {
	cmd := NewWriteCommand()
	assert.Equal(t, "write <entity-id> <property> <value>", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
}
