package convert

import (
	"fmt"
	"strings"

	"github.com/agentic-research/f2format/internal/pyparse"
	sitter "github.com/smacker/go-tree-sitter"
)

var braceEscaper = strings.NewReplacer("{", "{{", "}", "}}")

// emitRun handles one string literal run: a concatenated_string node or a
// lone string node. Whether the run gains a .format call is decided up front,
// before any literal text is emitted, because the escaping discipline for
// literal braces depends on it.
func (c *converter) emitRun(run *sitter.Node) error {
	var parts []*sitter.Node
	if run.Type() == "concatenated_string" {
		for i := 0; i < int(run.ChildCount()); i++ {
			if ch := run.Child(i); ch.Type() == "string" {
				parts = append(parts, ch)
			}
		}
	} else {
		parts = []*sitter.Node{run}
	}

	hasF, hasClause := false, false
	for _, p := range parts {
		if !c.isFString(p) {
			continue
		}
		hasF = true
		if hasInterpolation(p) {
			hasClause = true
		}
	}

	if !hasF {
		// Pure literal run: byte-identical pass-through.
		c.copyRange(run.StartByte(), run.EndByte())
		return nil
	}
	if !hasClause {
		// f-strings carrying only escaped braces never become a template:
		// drop the markers and fold the escapes back.
		c.emitDefusedRun(run, parts)
		return nil
	}
	return c.emitFormatRun(run, parts)
}

// emitDefusedRun re-emits a run whose f-strings contain no real clauses.
func (c *converter) emitDefusedRun(run *sitter.Node, parts []*sitter.Node) {
	pos := run.StartByte()
	for _, p := range parts {
		c.copyRange(pos, p.StartByte())
		if c.isFString(p) {
			c.emitDefused(p)
		} else {
			c.copyRange(p.StartByte(), p.EndByte())
		}
		pos = p.EndByte()
	}
	c.copyRange(pos, run.EndByte())
}

func (c *converter) emitDefused(p *sitter.Node) {
	pos := p.StartByte()
	for i := 0; i < int(p.ChildCount()); i++ {
		ch := p.Child(i)
		c.copyRange(pos, ch.StartByte())
		switch ch.Type() {
		case "string_start":
			c.out.WriteString(stripFMarker(ch.Content(c.src)))
		case "string_content":
			c.emitDefusedContent(ch)
		default:
			c.copyRange(ch.StartByte(), ch.EndByte())
		}
		pos = ch.EndByte()
	}
	c.copyRange(pos, p.EndByte())
}

// emitDefusedContent folds brace escapes inside one string_content segment.
// escape_interpolation nodes sit inside string_content, not beside it.
func (c *converter) emitDefusedContent(content *sitter.Node) {
	pos := content.StartByte()
	for i := 0; i < int(content.ChildCount()); i++ {
		ch := content.Child(i)
		c.copyRange(pos, ch.StartByte())
		if ch.Type() == "escape_interpolation" {
			// "{{" -> "{", "}}" -> "}"
			text := ch.Content(c.src)
			c.out.WriteString(text[:len(text)/2])
		} else {
			c.copyRange(ch.StartByte(), ch.EndByte())
		}
		pos = ch.EndByte()
	}
	c.copyRange(pos, content.EndByte())
}

// emitFormatRun converts a qualifying run: literal text with placeholders,
// followed by .format(...) over the extracted expressions in left-to-right
// source order.
func (c *converter) emitFormatRun(run *sitter.Node, parts []*sitter.Node) error {
	var args []string

	pos := run.StartByte()
	for _, p := range parts {
		c.copyRange(pos, p.StartByte())
		if c.isFString(p) {
			if err := c.emitTemplateF(p, &args); err != nil {
				return err
			}
		} else {
			c.emitTemplatePlain(p)
		}
		pos = p.EndByte()
	}
	c.copyRange(pos, run.EndByte())

	sep := ","
	if c.opts.PEP8 {
		sep = ", "
	}
	c.out.WriteString(".format(")
	c.out.WriteString(strings.Join(args, sep))
	c.out.WriteString(")")
	return nil
}

// emitTemplatePlain emits a plain string member of a template run. Its
// literal braces are doubled; escape sequences (notably \N{...}) are kept
// verbatim since their braces vanish before .format ever sees the value.
func (c *converter) emitTemplatePlain(p *sitter.Node) {
	count := int(p.ChildCount())
	if count == 0 {
		c.out.WriteString(braceEscaper.Replace(p.Content(c.src)))
		return
	}
	pos := p.StartByte()
	for i := 0; i < count; i++ {
		ch := p.Child(i)
		c.copyRange(pos, ch.StartByte())
		switch ch.Type() {
		case "string_start", "string_end":
			c.copyRange(ch.StartByte(), ch.EndByte())
		case "string_content":
			c.emitEscapedContent(ch)
		default:
			c.out.WriteString(braceEscaper.Replace(ch.Content(c.src)))
		}
		pos = ch.EndByte()
	}
	c.copyRange(pos, p.EndByte())
}

// emitEscapedContent doubles the literal braces of one string_content
// segment, skipping escape_sequence children.
func (c *converter) emitEscapedContent(content *sitter.Node) {
	pos := content.StartByte()
	for i := 0; i < int(content.ChildCount()); i++ {
		ch := content.Child(i)
		c.out.WriteString(braceEscaper.Replace(string(c.src[pos:ch.StartByte()])))
		c.copyRange(ch.StartByte(), ch.EndByte())
		pos = ch.EndByte()
	}
	c.out.WriteString(braceEscaper.Replace(string(c.src[pos:content.EndByte()])))
}

// emitTemplateF runs the expression extractor over one f-string member:
// the f marker is stripped from the opening segment, literal text passes
// through, and each interpolation becomes a placeholder plus arguments.
func (c *converter) emitTemplateF(p *sitter.Node, args *[]string) error {
	pos := p.StartByte()
	for i := 0; i < int(p.ChildCount()); i++ {
		ch := p.Child(i)
		c.copyRange(pos, ch.StartByte())
		switch ch.Type() {
		case "string_start":
			c.out.WriteString(stripFMarker(ch.Content(c.src)))
		case "interpolation":
			if err := c.emitClause(ch, args); err != nil {
				return err
			}
		default:
			c.copyRange(ch.StartByte(), ch.EndByte())
		}
		pos = ch.EndByte()
	}
	c.copyRange(pos, p.EndByte())
	return nil
}

// emitClause converts one {expression [=] [!conversion] [:spec]} clause.
// The expression is appended to args before any nested spec clauses, keeping
// the argument list in source order.
func (c *converter) emitClause(interp *sitter.Node, args *[]string) error {
	var exprNode, eqNode, convNode, specNode, afterEq *sitter.Node
	count := int(interp.ChildCount())
	for i := 0; i < count; i++ {
		ch := interp.Child(i)
		switch ch.Type() {
		case "{", "}":
		case "=":
			eqNode = ch
			if i+1 < count {
				afterEq = interp.Child(i + 1)
			}
		case "type_conversion":
			convNode = ch
		case "format_specifier":
			specNode = ch
		default:
			if exprNode == nil {
				exprNode = ch
			}
		}
	}
	if exprNode == nil {
		return pyparse.ErrorAt(interp, c.src, c.opts.Filename, "f-string: empty expression not allowed")
	}
	if eqNode != nil && !c.opts.SourceVersion.AtLeast(3, 8) {
		return pyparse.ErrorAt(interp, c.src, c.opts.Filename,
			fmt.Sprintf("self-documenting expressions require Python 3.8, parsing against %s", c.opts.SourceVersion))
	}
	if !c.opts.SourceVersion.AtLeast(3, 8) && containsType(exprNode, "named_expression") {
		return pyparse.ErrorAt(interp, c.src, c.opts.Filename,
			fmt.Sprintf("assignment expressions require Python 3.8, parsing against %s", c.opts.SourceVersion))
	}
	if kw := c.reservedIdent(exprNode); kw != nil {
		return pyparse.ErrorAt(kw, c.src, c.opts.Filename,
			fmt.Sprintf("keyword %q cannot be used as an expression", kw.Content(c.src)))
	}

	// Debug clause: the source text from after '{' through '=' (whitespace
	// included) is reproduced as literal text before the placeholder.
	if eqNode != nil && afterEq != nil {
		label := string(c.src[interp.StartByte()+1 : afterEq.StartByte()])
		c.out.WriteString(braceEscaper.Replace(label))
	}

	// The extracted argument spans from after '{' up to whatever ends the
	// expression, so surrounding whitespace survives when PEP 8 is off.
	end := interp.Child(count - 1).StartByte()
	if specNode != nil {
		end = specNode.StartByte()
	}
	if convNode != nil {
		end = convNode.StartByte()
	}
	if eqNode != nil {
		end = eqNode.StartByte()
	}
	inner, err := c.convertedText(exprNode)
	if err != nil {
		return err
	}
	exprText := string(c.src[interp.StartByte()+1:exprNode.StartByte()]) +
		inner + string(c.src[exprNode.EndByte():end])
	if c.opts.PEP8 {
		exprText = strings.TrimSpace(exprText)
	}
	if exprNode.Type() == "expression_list" || exprNode.Type() == "pattern_list" {
		wrapped, werr := wrapTuple(exprText)
		if werr != nil {
			return pyparse.ErrorAt(exprNode, c.src, c.opts.Filename, werr.Error())
		}
		exprText = wrapped
	}
	*args = append(*args, exprText)

	c.out.WriteByte('{')
	if convNode != nil {
		c.copyRange(convNode.StartByte(), convNode.EndByte())
	} else if eqNode != nil && specNode == nil {
		// A bare debug clause renders through repr at runtime; with a spec
		// present the value is formatted instead, so no conversion is added.
		c.out.WriteString("!r")
	}
	if specNode != nil {
		if err := c.emitSpec(specNode, args); err != nil {
			return err
		}
	}
	c.out.WriteByte('}')
	return nil
}

// emitSpec copies a format spec verbatim, extracting nested clauses
// (dynamic width/precision) through the ordinary clause path. Inside a
// format_specifier the grammar wraps nested clauses as format_expression
// nodes; their child shape ({, expression, optional =, }) matches emitClause.
func (c *converter) emitSpec(spec *sitter.Node, args *[]string) error {
	pos := spec.StartByte()
	for i := 0; i < int(spec.ChildCount()); i++ {
		ch := spec.Child(i)
		c.copyRange(pos, ch.StartByte())
		switch ch.Type() {
		case "format_expression", "interpolation":
			if err := c.emitClause(ch, args); err != nil {
				return err
			}
		default:
			c.copyRange(ch.StartByte(), ch.EndByte())
		}
		pos = ch.EndByte()
	}
	c.copyRange(pos, spec.EndByte())
	return nil
}

// wrapTuple parenthesizes a bare comma-list expression so it stays one call
// argument. A half-parenthesized expression is structurally malformed.
func wrapTuple(expr string) (string, error) {
	trimmed := strings.TrimSpace(expr)
	starts := strings.HasPrefix(trimmed, "(")
	ends := strings.HasSuffix(trimmed, ")")
	switch {
	case starts && ends:
		return expr, nil
	case !starts && !ends:
		return "(" + expr + ")", nil
	default:
		return "", fmt.Errorf("malformed node or string: %s", trimmed)
	}
}

func (c *converter) isFString(p *sitter.Node) bool {
	if p.ChildCount() == 0 {
		return false
	}
	start := p.Child(0)
	if start.Type() != "string_start" {
		return false
	}
	return strings.ContainsAny(start.Content(c.src), "fF")
}

// reservedSince lists words the grammar accepts as identifiers but that the
// language reserved at some version. async/await were soft keywords in 3.6
// and hard keywords from 3.7.
var reservedSince = map[string]pyparse.Version{
	"async": {Major: 3, Minor: 7},
	"await": {Major: 3, Minor: 7},
}

// reservedIdent returns the first identifier under n that is a reserved word
// for the configured source version, or nil.
func (c *converter) reservedIdent(n *sitter.Node) *sitter.Node {
	if n.Type() == "identifier" {
		if since, ok := reservedSince[n.Content(c.src)]; ok &&
			c.opts.SourceVersion.AtLeast(since.Major, since.Minor) {
			return n
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := c.reservedIdent(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func containsType(n *sitter.Node, typ string) bool {
	if n.Type() == typ {
		return true
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if containsType(n.Child(i), typ) {
			return true
		}
	}
	return false
}

func hasInterpolation(p *sitter.Node) bool {
	for i := 0; i < int(p.ChildCount()); i++ {
		if p.Child(i).Type() == "interpolation" {
			return true
		}
	}
	return false
}

// stripFMarker removes the first f marker from a string prefix, keeping any
// other markers (rf'... -> r'...).
func stripFMarker(prefix string) string {
	for i, r := range prefix {
		if r == 'f' || r == 'F' {
			return prefix[:i] + prefix[i+1:]
		}
	}
	return prefix
}
