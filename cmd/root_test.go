package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	// Flag values persist across Execute calls; reset anything a previous
	// test changed.
	rootCmd.Flags().Visit(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSimpleModeStdin(t *testing.T) {
	out, err := runRoot(t, "print(f'hi {name}')\n", "--simple")
	require.NoError(t, err)
	assert.Equal(t, "print('hi {}'.format(name))\n", out)
}

func TestSimpleModeKeepsEncoding(t *testing.T) {
	// é in latin-1 is the single byte 0xE9, invalid as UTF-8.
	in := "# coding: latin-1\ns = f'caf\xe9 {x}'\n"
	out, err := runRoot(t, in, "--simple")
	require.NoError(t, err)
	assert.Equal(t, "# coding: latin-1\ns = 'caf\xe9 {}'.format(x)\n", out)
}

func TestNoInputFiles(t *testing.T) {
	_, err := runRoot(t, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid Python source files")
}
