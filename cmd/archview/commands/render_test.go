package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRenderCommand(t *testing.T, input string) (stdout, stderr string, err error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte(input), 0644))

	var out, errBuf bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs([]string{"render", path})
	err = rootCmd.Execute()
	return out.String(), errBuf.String(), err
}

func TestRenderCommand(t *testing.T) {
	t.Run("Writes Source To Stdout And Prose To Stderr", func(t *testing.T) {
		stdout, stderr, err := runRenderCommand(t,
			"Intro.\n```mermaid\ngraph LR\nA[Web] --> B\n```")
		require.NoError(t, err)
		assert.Contains(t, stdout, "flowchart TD\nA[\"Web\"] --> B")
		assert.Contains(t, stderr, "Intro.")
	})

	t.Run("Nothing To Render Returns Cleanly", func(t *testing.T) {
		stdout, stderr, err := runRenderCommand(t, "I cannot draw that.")
		require.NoError(t, err, "a content miss is not a command error")
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "nothing to render")
		assert.Contains(t, stderr, "I cannot draw that.")
	})
}
