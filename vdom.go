package tola

import (
	"strings"

	"golang.org/x/net/html"
)

// Phase tags a VDOM document so a transform written for one phase can't
// accidentally run against a document from another (spec §4.F, §9:
// "the type system ... prevents invoking an Indexed-only transform on a
// Raw document"). Go has no phase types, so this is enforced with a
// runtime assertion at transform entry (see assertPhase).
type Phase int

const (
	PhaseRaw Phase = iota
	PhaseIndexed
)

// FamilyKind classifies an Indexed-phase element for typed traversal.
type FamilyKind int

const (
	FamilyNone FamilyKind = iota
	FamilyLink
	FamilyHeading
	FamilyMedia
	FamilySvg
)

// Attr preserves attribute order, required for bit-exact output
// stability (spec §3).
type Attr struct {
	Key string
	Val string
}

// Node is a VDOM element or text node. Every element has ordered
// children; a node with Tag == "" and Text != "" is a text node.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string
	RawText  bool // true for unescaped text (Text::Raw in the original)
	Family   FamilyKind
}

// VDocument wraps a root Node with its Phase tag.
type VDocument struct {
	Phase Phase
	Root  *Node
}

func assertPhase(d *VDocument, want Phase, transformName string) {
	if d.Phase != want {
		panic("tola: " + transformName + " invoked on wrong VDOM phase")
	}
}

// Attr looks up the first attribute with the given key.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets (replacing or appending) an attribute, preserving order
// when replacing.
func (n *Node) SetAttr(key, val string) {
	for i, a := range n.Attrs {
		if a.Key == key {
			n.Attrs[i].Val = val
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Val: val})
}

// Walk visits every node in the tree in document order, depth-first.
func Walk(n *Node, visit func(*Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

// ModifyByFamily visits and mutates only elements of the matching
// family, the pattern spec §4.F calls modify_by<FamilyKind::X>.
func ModifyByFamily(n *Node, family FamilyKind, fn func(*Node)) {
	Walk(n, func(node *Node) {
		if node.Family == family {
			fn(node)
		}
	})
}

// FindFirst returns the first element with the given tag, or nil.
func FindFirst(n *Node, tag string) *Node {
	var found *Node
	Walk(n, func(node *Node) {
		if found == nil && node.Tag == tag {
			found = node
		}
	})
	return found
}

// ParseRawDocument parses HTML bytes into a Raw-phase VDocument using
// golang.org/x/net/html, the standard pragmatic choice in the wider Go
// ecosystem for a mutable HTML tree (no example repo in the pack carries
// a purpose-built VDOM library).
func ParseRawDocument(body []byte) (*VDocument, error) {
	root, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	return &VDocument{Phase: PhaseRaw, Root: convertFromGoHtml(root)}, nil
}

func convertFromGoHtml(n *html.Node) *Node {
	switch n.Type {
	case html.TextNode:
		return &Node{Text: n.Data}
	case html.DocumentNode:
		out := &Node{Tag: ""}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			out.Children = append(out.Children, convertFromGoHtml(c))
		}
		return out
	default:
		out := &Node{Tag: n.Data}
		for _, a := range n.Attr {
			out.Attrs = append(out.Attrs, Attr{Key: a.Key, Val: a.Val})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			out.Children = append(out.Children, convertFromGoHtml(c))
		}
		return out
	}
}

// IndexDocument promotes a Raw document to Indexed by tagging every
// element's FamilyKind.
func IndexDocument(raw *VDocument) *VDocument {
	assertPhase(raw, PhaseRaw, "IndexDocument")
	root := cloneNode(raw.Root)
	Walk(root, func(n *Node) {
		n.Family = classifyFamily(n)
	})
	return &VDocument{Phase: PhaseIndexed, Root: root}
}

func classifyFamily(n *Node) FamilyKind {
	switch n.Tag {
	case "a":
		return FamilyLink
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return FamilyHeading
	case "img", "video", "audio", "source", "object":
		return FamilyMedia
	case "svg":
		return FamilySvg
	}
	return FamilyNone
}

func cloneNode(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Tag:     n.Tag,
		Text:    n.Text,
		RawText: n.RawText,
		Family:  n.Family,
	}
	out.Attrs = append(out.Attrs, n.Attrs...)
	for _, c := range n.Children {
		out.Children = append(out.Children, cloneNode(c))
	}
	return out
}

// RenderHTML serializes a VDocument back to bytes, preserving attribute
// order.
func RenderHTML(d *VDocument) string {
	var b strings.Builder
	for _, c := range d.Root.Children {
		renderNode(&b, c)
	}
	return b.String()
}

var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {},
	"img": {}, "input": {}, "link": {}, "meta": {}, "param": {}, "source": {},
	"track": {}, "wbr": {},
}

func renderNode(b *strings.Builder, n *Node) {
	if n.Tag == "" {
		if n.RawText {
			b.WriteString(n.Text)
		} else {
			b.WriteString(html.EscapeString(n.Text))
		}
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Tag)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	if _, void := voidElements[n.Tag]; void {
		b.WriteString(" />")
		return
	}
	b.WriteByte('>')
	for _, c := range n.Children {
		renderNode(b, c)
	}
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}
