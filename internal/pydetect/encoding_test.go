package pydetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEncodingDefault(t *testing.T) {
	name, enc := DetectEncoding([]byte("print('hello')\n"))
	assert.Equal(t, EncodingUTF8, name)
	require.NotNil(t, enc)
}

func TestDetectEncodingUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("x = 1\n")...)
	name, enc := DetectEncoding(data)
	assert.Equal(t, EncodingUTF8BOM, name)
	require.NotNil(t, enc)

	decoded, err := enc.NewDecoder().Bytes(data)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(decoded))

	// The encoder restores the mark, keeping round trips byte-identical.
	encoded, err := enc.NewEncoder().Bytes(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, encoded)
}

func TestDetectEncodingDeclaration(t *testing.T) {
	name, enc := DetectEncoding([]byte("# -*- coding: latin-1 -*-\nx = 1\n"))
	assert.Equal(t, "latin-1", name)
	require.NotNil(t, enc)
}

func TestDetectEncodingDeclarationSecondLine(t *testing.T) {
	name, _ := DetectEncoding([]byte("#!/usr/bin/env python\n# coding=gbk\n"))
	assert.Equal(t, "gbk", name)
}

func TestDetectEncodingDeclarationMustBeComment(t *testing.T) {
	name, _ := DetectEncoding([]byte("coding = 'latin-1'\n"))
	assert.Equal(t, EncodingUTF8, name)
}

func TestLookupUnknown(t *testing.T) {
	assert.Nil(t, Lookup("no-such-charset"))
	assert.NotNil(t, Lookup("utf-8"))
	assert.NotNil(t, Lookup("latin_1"))
}

func TestDetectLinesep(t *testing.T) {
	assert.Equal(t, LF, DetectLinesep("a\nb\r\n"))
	assert.Equal(t, CRLF, DetectLinesep("a\r\nb\n"))
	assert.Equal(t, CR, DetectLinesep("a\rb"))
}

func TestDetectIndentation(t *testing.T) {
	assert.Equal(t, "    ", DetectIndentation("def f():\n    pass\n"))
	assert.Equal(t, "\t", DetectIndentation("def f():\n\tpass\n"))
	assert.Equal(t, "  ", DetectIndentation("if x:\n  y = 1\n"))
	assert.Equal(t, "    ", DetectIndentation("x = 1\ny = 2\n"), "default when nothing is indented")
	assert.Equal(t, "  ", DetectIndentation("a = 1\r\nif a:\r\n  b = 2\r\n"), "CR stripped before measuring")
}
