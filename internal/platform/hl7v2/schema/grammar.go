package schema

import (
	"fmt"
	"strings"
)

// Node is one element of a compiled message grammar. Leaf nodes are segments;
// inner nodes are named groups. The root node is the message itself.
type Node struct {
	Name      string
	Required  bool
	Repeating bool
	Children  []*Node
	// First holds the segment codes that can open this group.
	First []string
	group bool
}

// IsGroup reports whether the node is a group (or the message root).
func (n *Node) IsGroup() bool { return n.group }

// Walk visits n and every descendant depth first.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// String renders the node back into grammar notation.
func (n *Node) String() string {
	var b strings.Builder
	for i, c := range n.Children {
		if i > 0 {
			b.WriteByte(' ')
		}
		c.render(&b)
	}
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	if !n.Required {
		b.WriteByte('[')
	}
	if n.Repeating {
		b.WriteByte('{')
	}
	if n.group {
		b.WriteString(n.Name)
		b.WriteString(": ")
		b.WriteString(n.String())
	} else {
		b.WriteString(n.Name)
	}
	if n.Repeating {
		b.WriteByte('}')
	}
	if !n.Required {
		b.WriteByte(']')
	}
}

// ParseGrammar compiles a message grammar such as
//
//	MSH EVN PID [{NK1}] [{INSURANCE: IN1 [IN2]}]
//
// into a tree rooted at a node called structure.
func ParseGrammar(structure, grammar string) (*Node, error) {
	p := &grammarParser{tokens: tokenize(grammar)}
	children, err := p.sequence("")
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", structure, err)
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("schema: %s: unexpected %q at token %d", structure, p.tokens[p.pos], p.pos)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("schema: %s: empty grammar", structure)
	}
	root := &Node{Name: structure, Required: true, Children: children, group: true}
	root.First = firstSegments(children)
	return root, nil
}

type grammarParser struct {
	tokens []string
	pos    int
}

func tokenize(s string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '[' || r == ']' || r == '{' || r == '}' || r == ':':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ',':
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func (p *grammarParser) peek(off int) string {
	if p.pos+off < len(p.tokens) {
		return p.tokens[p.pos+off]
	}
	return ""
}

// sequence reads items until the closing token.
func (p *grammarParser) sequence(closing string) ([]*Node, error) {
	var items []*Node
	for p.pos < len(p.tokens) {
		tok := p.peek(0)
		if tok == closing {
			return items, nil
		}
		switch tok {
		case "[", "{":
			n, err := p.bracket()
			if err != nil {
				return nil, err
			}
			items = append(items, n)
		case "]", "}", ":":
			return nil, fmt.Errorf("unexpected %q at token %d", tok, p.pos)
		default:
			if !validName(tok) {
				return nil, fmt.Errorf("invalid segment name %q", tok)
			}
			items = append(items, &Node{Name: tok, Required: true})
			p.pos++
		}
	}
	if closing != "" {
		return nil, fmt.Errorf("missing %q", closing)
	}
	return items, nil
}

// bracket reads [..] (optional) or {..} (repeating). A leading "NAME:" makes
// the content a named group; otherwise the content must be a single item.
func (p *grammarParser) bracket() (*Node, error) {
	open := p.tokens[p.pos]
	closing := "]"
	if open == "{" {
		closing = "}"
	}
	p.pos++

	label := ""
	if p.peek(1) == ":" {
		label = p.peek(0)
		if !validName(label) {
			return nil, fmt.Errorf("invalid group name %q", label)
		}
		p.pos += 2
	}
	items, err := p.sequence(closing)
	if err != nil {
		return nil, err
	}
	p.pos++

	var n *Node
	switch {
	case label != "":
		if len(items) == 0 {
			return nil, fmt.Errorf("group %s is empty", label)
		}
		n = &Node{Name: label, Required: true, Children: items, group: true}
		n.First = firstSegments(items)
	case len(items) == 1:
		n = items[0]
	default:
		return nil, fmt.Errorf("unnamed group of %d items at token %d", len(items), p.pos)
	}
	if open == "[" {
		n.Required = false
	} else {
		n.Repeating = true
	}
	return n, nil
}

// firstSegments collects the segments that may open a sequence: every child up
// to and including the first required one.
func firstSegments(children []*Node) []string {
	var first []string
	seen := make(map[string]bool)
	for _, c := range children {
		if c.group {
			for _, s := range c.First {
				if !seen[s] {
					seen[s] = true
					first = append(first, s)
				}
			}
		} else if !seen[c.Name] {
			seen[c.Name] = true
			first = append(first, c.Name)
		}
		if c.Required {
			break
		}
	}
	return first
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '_' {
			return false
		}
	}
	return true
}
