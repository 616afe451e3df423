package mustache

import (
	perrors "github.com/sambeau/mustachepp/pkg/errors"
)

// openSection tracks a section whose closing tag has not been seen yet.
type openSection struct {
	tok   token
	node  *sectionNode
	outer []node
}

// parse builds the node tree for input. Section nodes keep the raw source
// text between their opening and closing tags so that lambdas can receive
// it unrendered.
func parse(input string, tags Tags) ([]node, error) {
	tokens, err := lex(input, tags)
	if err != nil {
		return nil, err
	}

	var (
		nodes []node
		stack []openSection
	)
	for _, t := range tokens {
		switch t.typ {
		case tokenEOF:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				return nil, perrors.NewWithPosition("PARSE-0002", top.tok.line, top.tok.col, map[string]any{
					"Name":  top.tok.val,
					"Open":  top.tok.tags.Open(),
					"Close": top.tok.tags.Close(),
				})
			}
			return nodes, nil
		case tokenText:
			nodes = append(nodes, textNode(t.val))
		case tokenVariable:
			nodes = append(nodes, &varNode{name: t.val, escape: true, line: t.line, col: t.col})
		case tokenRaw:
			nodes = append(nodes, &varNode{name: t.val, escape: false, line: t.line, col: t.col})
		case tokenPartial:
			nodes = append(nodes, &partialNode{name: t.val, indent: t.indent})
		case tokenSection, tokenInverted:
			section := &sectionNode{
				name:     t.val,
				inverted: t.typ == tokenInverted,
				tags:     t.tags,
				line:     t.line,
				col:      t.col,
			}
			stack = append(stack, openSection{tok: t, node: section, outer: nodes})
			nodes = nil
		case tokenSectionEnd:
			if len(stack) == 0 {
				return nil, perrors.NewWithPosition("PARSE-0003", t.line, t.col, map[string]any{"Name": t.val})
			}
			top := stack[len(stack)-1]
			if top.tok.val != t.val {
				return nil, perrors.NewWithPosition("PARSE-0004", t.line, t.col, map[string]any{
					"Expected": top.tok.val,
					"Got":      t.val,
				})
			}
			stack = stack[:len(stack)-1]
			top.node.nodes = nodes
			top.node.text = input[top.tok.end:t.start]
			nodes = append(top.outer, top.node)
		case tokenComment, tokenSetDelim:
			// produce no output
		}
	}
	return nodes, nil
}
