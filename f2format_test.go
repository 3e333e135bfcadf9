package f2format

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/f2format/internal/config"
	"github.com/agentic-research/f2format/internal/pyparse"
)

func TestConvert(t *testing.T) {
	got, err := Convert([]byte("print(f'hello {name}')\n"), "example.py", "")
	require.NoError(t, err)
	assert.Equal(t, "print('hello {}'.format(name))\n", got)
}

func TestConvertVersionGate(t *testing.T) {
	src := []byte("print(f'{x=}')\n")

	_, err := Convert(src, "example.py", "3.7")
	require.Error(t, err)

	got, err := Convert(src, "example.py", "3.8")
	require.NoError(t, err)
	assert.Equal(t, "print('x={!r}'.format(x))\n", got)
}

func TestConvertEnvVersion(t *testing.T) {
	t.Setenv(pyparse.EnvSourceVersion, "3.6")

	_, err := Convert([]byte("x = f'{a=}'\n"), "", "")
	require.Error(t, err, "environment version applies when no explicit one is given")

	_, err = Convert([]byte("x = f'{a=}'\n"), "", "3.12")
	require.NoError(t, err, "explicit version wins over the environment")
}

func TestConvertUnsupportedVersion(t *testing.T) {
	_, err := Convert([]byte("x = 1\n"), "", "2.7")
	require.Error(t, err)

	var unsupported *pyparse.UnsupportedVersionError
	assert.ErrorAs(t, err, &unsupported)
}

func TestF2Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.py")
	require.NoError(t, os.WriteFile(path, []byte("v = f'{n:>4}'\n"), 0o644))

	require.NoError(t, F2Format(path, config.Default()))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v = '{:>4}'.format(n)\n", string(got))
}
