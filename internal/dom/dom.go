// Package dom provides an immutable HTML document and a cheap cursor API
// for the script evaluator to select, navigate, and extract against it.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// NodeHandle indexes into a Document's node arena. It carries no pointer
// back into the tree; navigation always goes through the owning Document.
type NodeHandle int

const emptyHandle NodeHandle = -1

// Document is an immutable parsed HTML tree, content-addressed by its
// fetch URL within a single workflow run (see Cache).
type Document struct {
	URL   string
	root  *html.Node
	nodes []*html.Node
	index map[*html.Node]NodeHandle
}

// Parse builds a Document from an HTML body and the URL it was fetched
// from. The arena is built once, in preorder, at parse time.
func Parse(url string, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse %s: %w", url, err)
	}
	d := &Document{URL: url, root: root, index: make(map[*html.Node]NodeHandle)}
	d.buildArena(root)
	return d, nil
}

func (d *Document) buildArena(root *html.Node) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		h := NodeHandle(len(d.nodes))
		d.nodes = append(d.nodes, n)
		d.index[n] = h
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

func (d *Document) handleOf(n *html.Node) NodeHandle {
	if n == nil {
		return emptyHandle
	}
	if h, ok := d.index[n]; ok {
		return h
	}
	return emptyHandle
}

func (d *Document) node(h NodeHandle) *html.Node {
	if h < 0 || int(h) >= len(d.nodes) {
		return nil
	}
	return d.nodes[h]
}

// Root returns a cursor at the document's root node.
func (d *Document) Root() Cursor {
	return Cursor{doc: d, handle: d.handleOf(d.root)}
}

// Cache maps a fetch URL to its already-parsed Document, so a workflow
// run that links back to a page it already fetched reuses the parse.
type Cache struct {
	docs map[string]*Document
}

// NewCache returns an empty document cache.
func NewCache() *Cache { return &Cache{docs: make(map[string]*Document)} }

// Get returns the cached document for url, if any.
func (c *Cache) Get(url string) (*Document, bool) {
	d, ok := c.docs[url]
	return d, ok
}

// Put registers a freshly parsed document under url.
func (c *Cache) Put(url string, d *Document) { c.docs[url] = d }

// Cursor is a (Document, NodeHandle) pair referencing at most one node.
// Cursors are cheap values without ownership of the document; the zero
// Cursor is empty. Empty propagates through every operation below.
type Cursor struct {
	doc    *Document
	handle NodeHandle
}

// Empty reports whether the cursor's selection missed.
func (c Cursor) Empty() bool { return c.doc == nil || c.handle < 0 }

// Document returns the cursor's owning document, or nil if empty.
func (c Cursor) Document() *Document { return c.doc }

func (c Cursor) node() *html.Node {
	if c.doc == nil {
		return nil
	}
	return c.doc.node(c.handle)
}

// Set is an ordered collection of cursors sharing one document, produced
// when a selector step matches more than one element. Order matches
// document order.
type Set struct {
	doc     *Document
	handles []NodeHandle
}

// Len returns the number of cursors in the set.
func (s Set) Len() int { return len(s.handles) }

// At returns the i'th cursor, or the empty cursor if out of range.
func (s Set) At(i int) Cursor {
	if i < 0 || i >= len(s.handles) {
		return Cursor{}
	}
	return Cursor{doc: s.doc, handle: s.handles[i]}
}

// Cursors materializes the set as a slice, in document order.
func (s Set) Cursors() []Cursor {
	out := make([]Cursor, s.Len())
	for i := range s.handles {
		out[i] = s.At(i)
	}
	return out
}

// First collapses a Set to its first cursor, or the empty cursor when the
// set has no matches.
func (s Set) First() Cursor {
	if s.Len() == 0 {
		return Cursor{}
	}
	return s.At(0)
}

// Select runs a compiled CSS selector against the subtree rooted at c,
// returning every matching descendant in document order. An empty cursor
// yields an empty Set, never an error.
func (c Cursor) Select(selector cascadia.Sel) Set {
	if c.Empty() {
		return Set{}
	}
	matches := selector.MatchAll(c.node())
	handles := make([]NodeHandle, len(matches))
	for i, m := range matches {
		handles[i] = c.doc.handleOf(m)
	}
	return Set{doc: c.doc, handles: handles}
}

// CompileSelector compiles a CSS selector string once, for reuse across
// every cursor a pipeline step runs against.
func CompileSelector(css string) (cascadia.Sel, error) {
	sel, err := cascadia.Compile(css)
	if err != nil {
		return nil, fmt.Errorf("dom: compile selector %q: %w", css, err)
	}
	return sel, nil
}

// Parent walks up the parent chain n times (n<=0 behaves as n=1).
func (c Cursor) Parent(n int) Cursor {
	if c.Empty() {
		return Cursor{}
	}
	if n <= 0 {
		n = 1
	}
	cur := c.node()
	for i := 0; i < n && cur != nil; i++ {
		cur = cur.Parent
	}
	return Cursor{doc: c.doc, handle: c.doc.handleOf(cur)}
}

// Prev walks to the n'th preceding element sibling (n<=0 behaves as n=1),
// skipping text and comment nodes.
func (c Cursor) Prev(n int) Cursor {
	if c.Empty() {
		return Cursor{}
	}
	if n <= 0 {
		n = 1
	}
	cur := c.node()
	for i := 0; i < n; i++ {
		cur = prevElement(cur)
		if cur == nil {
			return Cursor{}
		}
	}
	return Cursor{doc: c.doc, handle: c.doc.handleOf(cur)}
}

func prevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// Nth moves to the 0-based n'th element child of the current node's
// parent, counting only element nodes. It is an absolute sibling index,
// distinct from the relative walk Prev performs.
func (c Cursor) Nth(n int) Cursor {
	if c.Empty() || n < 0 {
		return Cursor{}
	}
	parent := c.node().Parent
	if parent == nil {
		return Cursor{}
	}
	i := 0
	for ch := parent.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type != html.ElementNode {
			continue
		}
		if i == n {
			return Cursor{doc: c.doc, handle: c.doc.handleOf(ch)}
		}
		i++
	}
	return Cursor{}
}

// Html returns the inner HTML serialization of the cursor's node. An
// empty cursor yields the empty string.
func (c Cursor) Html() (string, error) {
	if c.Empty() {
		return "", nil
	}
	var buf strings.Builder
	for ch := c.node().FirstChild; ch != nil; ch = ch.NextSibling {
		if err := html.Render(&buf, ch); err != nil {
			return "", fmt.Errorf("dom: render html: %w", err)
		}
	}
	return buf.String(), nil
}

// Attr returns the named attribute's value, case-insensitively. Absent
// attribute or empty cursor both yield the empty string.
func (c Cursor) Attr(name string) string {
	if c.Empty() {
		return ""
	}
	for _, a := range c.node().Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// Val returns the concatenated text content of the cursor's node and all
// its descendants. An empty cursor yields the empty string.
func (c Cursor) Val() string {
	if c.Empty() {
		return ""
	}
	var buf strings.Builder
	collectText(c.node(), &buf)
	return buf.String()
}

func collectText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		collectText(ch, buf)
	}
}
