package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand_NoContainer_ShowsHelp(t *testing.T) {
	root := NewRootCommand(nil, "test-version")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--label", "jazzy"})

	err := root.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Usage:")
}

func TestNewRootCommand_Version(t *testing.T) {
	root := NewRootCommand(nil, "1.2.3")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "1.2.3")
}

func TestNewRootCommand_Help(t *testing.T) {
	root := NewRootCommand(nil, "test-version")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	output := buf.String()
	for _, flag := range []string{"--repo", "--label", "--since", "--assignments", "--raw-output", "--token", "--chart", "--format"} {
		assert.Contains(t, output, flag)
	}
	assert.Contains(t, output, "config")
	assert.Contains(t, output, "raw JSON responses to (any mode or filter)")
}

func TestNewRootCommand_RejectsArgs(t *testing.T) {
	root := NewRootCommand(nil, "test-version")
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"jazzy"})

	assert.Error(t, root.Execute())
}
