package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := rootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["version"])

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.True(t, serve.DisableFlagParsing)
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"bogus"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}
