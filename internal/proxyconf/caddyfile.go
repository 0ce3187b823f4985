// Package proxyconf generates reverse-proxy artifacts from a domain and a
// deployment profile. Generation is pure: the same inputs always produce
// byte-identical output.
package proxyconf

import (
	"strings"
)

// Directive is one Caddyfile line with an optional nested block.
type Directive struct {
	Line string
	Body []Directive
}

// D is shorthand for a directive without a block.
func D(line string) Directive { return Directive{Line: line} }

// B is shorthand for a directive that opens a block.
func B(line string, body ...Directive) Directive { return Directive{Line: line, Body: body} }

// Snippet is a named, importable rule block.
type Snippet struct {
	Name string
	Body []Directive
}

// Site binds an address to a block. A commented site is emitted with every
// line prefixed by "# " so operators can enable it by uncommenting.
type Site struct {
	Address   string
	Comment   string
	Commented bool
	Body      []Directive
}

// Caddyfile is the structured model. Grammar: global options block, snippets,
// one site per routed hostname, wildcard last.
type Caddyfile struct {
	Header   []string
	Global   []Directive
	Snippets []Snippet
	Sites    []Site
}

// Render serializes the model. Indentation is one tab per level.
func (c *Caddyfile) Render() string {
	var b strings.Builder

	for _, h := range c.Header {
		b.WriteString("# " + h + "\n")
	}
	if len(c.Header) > 0 {
		b.WriteString("\n")
	}

	if len(c.Global) > 0 {
		writeBlock(&b, "", "", c.Global, 0)
		b.WriteString("\n")
	}

	for _, s := range c.Snippets {
		writeBlock(&b, "", "("+s.Name+")", s.Body, 0)
		b.WriteString("\n")
	}

	for i, s := range c.Sites {
		if s.Comment != "" {
			b.WriteString("# " + s.Comment + "\n")
		}
		prefix := ""
		if s.Commented {
			prefix = "# "
		}
		writeBlock(&b, prefix, s.Address, s.Body, 0)
		if i < len(c.Sites)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeBlock(b *strings.Builder, prefix, opener string, body []Directive, depth int) {
	indent := strings.Repeat("\t", depth)
	if opener == "" {
		b.WriteString(prefix + indent + "{\n")
	} else {
		b.WriteString(prefix + indent + opener + " {\n")
	}
	for _, d := range body {
		if len(d.Body) > 0 {
			writeBlock(b, prefix, d.Line, d.Body, depth+1)
			continue
		}
		b.WriteString(prefix + indent + "\t" + d.Line + "\n")
	}
	b.WriteString(prefix + indent + "}\n")
}
