// Package convert implements the f-string conversion engine: a single
// forward walk over the tree-sitter syntax tree that reproduces every byte of
// untouched source verbatim and rewrites formatted string literals into
// equivalent str.format calls.
package convert

import (
	"bytes"

	"github.com/agentic-research/f2format/internal/pyparse"
	sitter "github.com/smacker/go-tree-sitter"
)

// Options configures a single conversion. The zero SourceVersion means the
// newest supported grammar.
type Options struct {
	Filename      string
	SourceVersion pyparse.Version
	// PEP8 strips extracted argument expressions and joins them with ", ".
	PEP8 bool
}

// DefaultOptions returns the options used by the plain library entry point.
func DefaultOptions() Options {
	return Options{SourceVersion: pyparse.Latest(), PEP8: true}
}

// Convert rewrites every formatted string literal in code into a literal plus
// .format(...) call and returns the converted source. All other source bytes
// are reproduced exactly. Parse failures and malformed clauses surface as
// *pyparse.ConvertError; the input is never partially converted.
func Convert(code []byte, opts Options) (string, error) {
	if opts.SourceVersion.IsZero() {
		opts.SourceVersion = pyparse.Latest()
	}

	tree, err := pyparse.Parse(code, opts.Filename)
	if err != nil {
		return "", err
	}
	defer tree.Close()

	c := &converter{src: code, opts: opts}
	if err := c.emit(tree.RootNode()); err != nil {
		return "", err
	}
	return c.out.String(), nil
}

// converter accumulates the output buffer for one (possibly nested) walk.
// Nested contexts share the original source and options but own their buffer.
type converter struct {
	src  []byte
	opts Options
	out  bytes.Buffer
}

// emit reproduces n. String literal runs get specialized handling; everything
// else is copied byte-for-byte, recursing so nested runs are still found.
func (c *converter) emit(n *sitter.Node) error {
	switch n.Type() {
	case "concatenated_string", "string":
		return c.emitRun(n)
	}

	count := int(n.ChildCount())
	if count == 0 {
		c.copyRange(n.StartByte(), n.EndByte())
		return nil
	}

	pos := n.StartByte()
	for i := 0; i < count; i++ {
		child := n.Child(i)
		c.copyRange(pos, child.StartByte())
		if err := c.emit(child); err != nil {
			return err
		}
		pos = child.EndByte()
	}
	c.copyRange(pos, n.EndByte())
	return nil
}

// convertedText runs a fresh nested context over n and returns its assembled
// output. Used for clause expressions, so nested f-strings and concatenation
// runs inside a clause are converted on the way out.
func (c *converter) convertedText(n *sitter.Node) (string, error) {
	nested := &converter{src: c.src, opts: c.opts}
	if err := nested.emit(n); err != nil {
		return "", err
	}
	return nested.out.String(), nil
}

func (c *converter) copyRange(start, end uint32) {
	if start >= end {
		return
	}
	c.out.Write(c.src[start:end])
}
