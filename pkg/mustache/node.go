package mustache

import (
	"strings"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
)

type node interface {
	render(t *Template, w *strings.Builder, c *Context) error
}

type textNode string

func (n textNode) render(t *Template, w *strings.Builder, c *Context) error {
	w.WriteString(string(n))
	return nil
}

type varNode struct {
	name   string
	escape bool
	line   int
	col    int
}

func (n *varNode) render(t *Template, w *strings.Builder, c *Context) error {
	v, ok := c.Lookup(n.name)
	if !ok {
		if t.engine.strict {
			return perrors.NewWithPosition("UNDEF-0001", n.line, n.col, map[string]any{"Name": n.name})
		}
		return nil
	}
	if _, isLambda := asLambda(v); isLambda {
		return nil
	}
	s := Stringify(v)
	if n.escape {
		s = Escape(s)
	}
	w.WriteString(s)
	return nil
}

type sectionNode struct {
	name     string
	inverted bool
	nodes    []node
	text     string
	tags     Tags
	line     int
	col      int
}

func (n *sectionNode) render(t *Template, w *strings.Builder, c *Context) error {
	v, ok := c.Lookup(n.name)

	if n.inverted {
		if !ok || !Truthy(v) || isEmptySeq(v) {
			return renderNodes(t, w, c, n.nodes)
		}
		return nil
	}
	if !ok {
		return nil
	}

	if fn, isLambda := asLambda(v); isLambda {
		out, err := fn(&Section{Name: n.name, Text: n.text, View: c.view, ctx: c, tags: n.tags})
		if err != nil {
			return err
		}
		w.WriteString(out)
		return nil
	}

	if items, isSeq := Items(v); isSeq {
		for _, item := range items {
			if err := renderNodes(t, w, c.Push(item), n.nodes); err != nil {
				return err
			}
		}
		return nil
	}

	if !Truthy(v) {
		return nil
	}
	if b, isBool := v.(bool); isBool && b {
		return renderNodes(t, w, c, n.nodes)
	}
	return renderNodes(t, w, c.Push(v), n.nodes)
}

type partialNode struct {
	name   string
	indent string // set for standalone partials
}

func (n *partialNode) render(t *Template, w *strings.Builder, c *Context) error {
	text, ok := c.session.Partial(n.name)
	if !ok {
		if t.engine.strict {
			return perrors.New("UNDEF-0002", map[string]any{"Name": n.name})
		}
		return nil
	}
	if n.indent != "" {
		text = indentLines(text, n.indent)
	}
	partial, err := t.engine.CompileTags(text, c.session.tags)
	if err != nil {
		return err
	}
	return renderNodes(partial, w, c, partial.nodes)
}

// indentLines prefixes every line of text with indent.
func indentLines(text, indent string) string {
	if text == "" {
		return text
	}
	trailing := strings.HasSuffix(text, "\n")
	if trailing {
		text = text[:len(text)-1]
	}
	text = indent + strings.ReplaceAll(text, "\n", "\n"+indent)
	if trailing {
		text += "\n"
	}
	return text
}

func renderNodes(t *Template, w *strings.Builder, c *Context, nodes []node) error {
	for _, n := range nodes {
		if err := n.render(t, w, c); err != nil {
			return err
		}
	}
	return nil
}

func asLambda(v any) (Lambda, bool) {
	switch fn := v.(type) {
	case Lambda:
		return fn, fn != nil
	case func(*Section) (string, error):
		return fn, fn != nil
	}
	return nil, false
}

func isEmptySeq(v any) bool {
	items, ok := Items(v)
	return ok && len(items) == 0
}
