// Package pyparse wraps the tree-sitter Python grammar behind the small
// surface the conversion engine needs: parse to a concrete syntax tree with
// byte-exact spans, and surface syntax errors as ConvertError values.
package pyparse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ConvertError reports a parse failure or a structurally malformed clause.
// Line and Col are 1-based.
type ConvertError struct {
	Filename string
	Line     int
	Col      int
	Snippet  string
	Message  string
}

func (e *ConvertError) Error() string {
	name := e.Filename
	if name == "" {
		name = "<string>"
	}
	if e.Snippet != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %q", name, e.Line, e.Col, e.Message, e.Snippet)
	}
	return fmt.Sprintf("%s:%d:%d: %s", name, e.Line, e.Col, e.Message)
}

// ErrorAt builds a ConvertError positioned at node.
func ErrorAt(node *sitter.Node, src []byte, filename, message string) *ConvertError {
	snippet := node.Content(src)
	if len(snippet) > 64 {
		snippet = snippet[:64]
	}
	return &ConvertError{
		Filename: filename,
		Line:     int(node.StartPoint().Row) + 1,
		Col:      int(node.StartPoint().Column) + 1,
		Snippet:  snippet,
		Message:  message,
	}
}

// Language returns the Python grammar.
func Language() *sitter.Language {
	return python.GetLanguage()
}

// Parse parses src and rejects trees containing syntax errors. The returned
// tree must be closed by the caller.
func Parse(src []byte, filename string) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(Language())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("tree-sitter returned nil root")
	}

	if root.HasError() {
		errNode := findFirstError(root)
		if errNode == nil {
			errNode = root
		}
		msg := "invalid syntax"
		if errNode.IsMissing() {
			msg = fmt.Sprintf("missing %s", errNode.Type())
		}
		convErr := ErrorAt(errNode, src, filename, msg)
		tree.Close()
		return nil, convErr
	}

	return tree, nil
}

// findFirstError does a depth-first search for the first ERROR or MISSING node.
func findFirstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			if found := findFirstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}
