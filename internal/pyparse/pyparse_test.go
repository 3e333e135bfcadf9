package pyparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	// Explicit beats environment beats default.
	v, err := Resolve("3.7", "3.9")
	require.NoError(t, err)
	assert.Equal(t, Version{3, 7}, v)

	v, err = Resolve("", "3.9")
	require.NoError(t, err)
	assert.Equal(t, Version{3, 9}, v)

	v, err = Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, Latest(), v)
}

func TestResolveUnsupported(t *testing.T) {
	for _, bad := range []string{"2.7", "3.5", "3.99", "4.0", "three.six", "3", ""} {
		_, err := ParseVersion(bad)
		require.Error(t, err, "version %q", bad)

		var unsupported *UnsupportedVersionError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, bad, unsupported.Requested)
	}
}

func TestVersionAtLeast(t *testing.T) {
	v := Version{3, 8}
	assert.True(t, v.AtLeast(3, 6))
	assert.True(t, v.AtLeast(3, 8))
	assert.False(t, v.AtLeast(3, 9))
	assert.True(t, v.AtLeast(2, 7))
}

func TestSupportedFloorIsFStringIntroduction(t *testing.T) {
	versions := Supported()
	require.NotEmpty(t, versions)
	assert.Equal(t, Version{3, 6}, versions[0])
	assert.Equal(t, Latest(), versions[len(versions)-1])
}

func TestParseValid(t *testing.T) {
	tree, err := Parse([]byte("x = 1\n"), "ok.py")
	require.NoError(t, err)
	tree.Close()
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte("def f(:\n    pass\n"), "bad.py")
	require.Error(t, err)

	var convErr *ConvertError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "bad.py", convErr.Filename)
	assert.Equal(t, 1, convErr.Line)
	assert.Positive(t, convErr.Col)
}

func TestConvertErrorMessage(t *testing.T) {
	err := &ConvertError{Filename: "a.py", Line: 3, Col: 7, Snippet: "f'{", Message: "invalid syntax"}
	assert.Contains(t, err.Error(), "a.py:3:7")
	assert.Contains(t, err.Error(), "invalid syntax")

	anonymous := &ConvertError{Line: 1, Col: 1, Message: "invalid syntax"}
	assert.Contains(t, anonymous.Error(), "<string>")
}
