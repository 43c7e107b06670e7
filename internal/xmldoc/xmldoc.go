// Package xmldoc is a minimal element tree for IDE descriptor files:
// named elements with ordered attributes, optional text and children.
// Comments and text that follows a child element are kept as unnamed
// child nodes so a parsed document re-encodes in its original order.
//
// Encoding is deterministic. Attributes are written in insertion order,
// empty elements are self-closed, and nesting is indented by two spaces.
package xmldoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Header is written before the root element.
const Header = `<?xml version="1.0" encoding="UTF-8"?>`

// Attr is one name="value" pair.
type Attr struct {
	Name  string
	Value string
}

// Element is one node. A node with an empty Name is a comment when
// Comment is set and a text node otherwise.
type Element struct {
	Name     string
	Attrs    []Attr
	Text     string
	Comment  string
	Children []*Element
}

// NewComment returns a comment node.
func NewComment(text string) *Element {
	return &Element{Comment: text}
}

// New returns an element. attrs are name, value pairs; a trailing odd name
// is ignored.
func New(name string, attrs ...string) *Element {
	e := &Element{Name: name}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.Attrs = append(e.Attrs, Attr{Name: attrs[i], Value: attrs[i+1]})
	}
	return e
}

// Add appends children and returns e.
func (e *Element) Add(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns the children named name.
func (e *Element) Find(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first child named name, or nil.
func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Encode writes the header and the element tree rooted at root.
func Encode(w io.Writer, root *Element) error {
	var buf bytes.Buffer
	buf.WriteString(Header)
	buf.WriteByte('\n')
	writeElement(&buf, root, 0)
	_, err := w.Write(buf.Bytes())
	return err
}

// Marshal is Encode into a byte slice.
func Marshal(root *Element) []byte {
	var buf bytes.Buffer
	_ = Encode(&buf, root)
	return buf.Bytes()
}

var (
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#10;", "\t", "&#9;")
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

func writeElement(buf *bytes.Buffer, e *Element, depth int) {
	indent := strings.Repeat("  ", depth)
	buf.WriteString(indent)
	if e.Name == "" {
		if e.Comment != "" {
			fmt.Fprintf(buf, "<!--%s-->\n", e.Comment)
		} else {
			buf.WriteString(textEscaper.Replace(e.Text))
			buf.WriteByte('\n')
		}
		return
	}
	buf.WriteByte('<')
	buf.WriteString(e.Name)
	for _, a := range e.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		buf.WriteString(attrEscaper.Replace(a.Value))
		buf.WriteByte('"')
	}
	switch {
	case len(e.Children) == 0 && e.Text == "":
		buf.WriteString("/>\n")
	case len(e.Children) == 0:
		buf.WriteByte('>')
		buf.WriteString(textEscaper.Replace(e.Text))
		fmt.Fprintf(buf, "</%s>\n", e.Name)
	default:
		buf.WriteString(">\n")
		if e.Text != "" {
			buf.WriteString(indent + "  ")
			buf.WriteString(textEscaper.Replace(e.Text))
			buf.WriteByte('\n')
		}
		for _, c := range e.Children {
			writeElement(buf, c, depth+1)
		}
		fmt.Fprintf(buf, "%s</%s>\n", indent, e.Name)
	}
}

// ErrNoRoot is returned by Parse when the input holds no element.
var ErrNoRoot = errors.New("xmldoc: no root element")

// Parse reads a document into an element tree. Comments inside the root
// element are kept in place. Comments outside it, processing instructions
// and whitespace-only text are dropped.
func Parse(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)
	var (
		root  *Element
		stack []*Element
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmldoc: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			e := &Element{Name: qualified(t.Name)}
			for _, a := range t.Attr {
				e.Attrs = append(e.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("xmldoc: multiple root elements")
				}
				root = e
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, e)
			}
			stack = append(stack, e)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			parent := stack[len(stack)-1]
			if len(parent.Children) == 0 {
				parent.Text += text
			} else {
				parent.Children = append(parent.Children, &Element{Text: text})
			}
		case xml.Comment:
			if len(stack) == 0 || len(t) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, NewComment(string(t)))
		}
	}
	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
