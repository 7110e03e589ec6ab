package shortcode

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlAttr shortens attribute lists in element construction.
type htmlAttr = html.Attribute

// Node is rendered output for one directive: a sequence of HTML nodes.
// The zero Node renders nothing.
type Node struct {
	nodes []*html.Node
}

// TextNode creates a node holding escaped text.
func TextNode(text string) Node {
	if text == "" {
		return Node{}
	}
	return Node{nodes: []*html.Node{{Type: html.TextNode, Data: text}}}
}

// RawNode creates a node holding markup that is written out unescaped.
func RawNode(markup string) Node {
	if markup == "" {
		return Node{}
	}
	return Node{nodes: []*html.Node{{Type: html.RawNode, Data: markup}}}
}

// ElementNode creates an element with attributes given as name/value pairs.
// Empty attribute values are dropped.
func ElementNode(tag string, attrs []html.Attribute, children ...Node) Node {
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for _, a := range attrs {
		if a.Val == "" {
			continue
		}
		el.Attr = append(el.Attr, a)
	}
	for _, child := range children {
		for _, n := range child.nodes {
			if n.Parent != nil || n.PrevSibling != nil || n.NextSibling != nil {
				n = cloneNode(n)
			}
			el.AppendChild(n)
		}
	}
	return Node{nodes: []*html.Node{el}}
}

// Attr is shorthand for an html.Attribute.
func Attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

// Join concatenates nodes in order.
func Join(parts ...Node) Node {
	var out Node
	for _, p := range parts {
		out.nodes = append(out.nodes, p.nodes...)
	}
	return out
}

// IsEmpty reports whether the node renders nothing.
func (n Node) IsEmpty() bool {
	return len(n.nodes) == 0
}

// Nodes exposes the underlying HTML nodes.
func (n Node) Nodes() []*html.Node {
	return n.nodes
}

// FindAll returns every element with the given tag, in document order.
func (n Node) FindAll(tag string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.ElementNode && x.Data == tag {
			found = append(found, x)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, x := range n.nodes {
		walk(x)
	}
	return found
}

// String renders the node as HTML.
func (n Node) String() string {
	var sb strings.Builder
	for _, x := range n.nodes {
		// Render only fails on writer errors; strings.Builder never returns one.
		_ = html.Render(&sb, x)
	}
	return sb.String()
}

// AttrValue returns the value of key on an element.
func AttrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child))
	}
	return c
}
