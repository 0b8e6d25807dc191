package cmxml

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// node is a generic XML element tree. CM metadata files nest the
// interesting elements at varying depths across versions, so the
// parser searches descendants by name instead of assuming a fixed
// hierarchy.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
	Text     string     `xml:",chardata"`
}

func parseDocument(data []byte) (*node, error) {
	root := &node{}
	if err := xml.Unmarshal(bytes.TrimSpace(data), root); err != nil {
		return nil, err
	}
	return root, nil
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// child returns the first direct child with the given element name.
func (n *node) child(name string) *node {
	for i := range n.Children {
		if n.Children[i].XMLName.Local == name {
			return &n.Children[i]
		}
	}
	return nil
}

// childText returns the trimmed text of a direct child, or "" when
// the child is absent.
func (n *node) childText(name string) string {
	if c := n.child(name); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return ""
}

// find returns the first descendant with the given element name,
// depth first, including the node itself.
func (n *node) find(name string) *node {
	if n.XMLName.Local == name {
		return n
	}
	for i := range n.Children {
		if found := n.Children[i].find(name); found != nil {
			return found
		}
	}
	return nil
}

// findAll collects every descendant with the given element name.
func (n *node) findAll(name string) []*node {
	var out []*node
	if n.XMLName.Local == name {
		out = append(out, n)
	}
	for i := range n.Children {
		out = append(out, n.Children[i].findAll(name)...)
	}
	return out
}
