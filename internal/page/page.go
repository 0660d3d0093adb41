// Package page is the minimal HTML query surface the harvester depends on.
// Any fetch backend only has to produce a Document.
package page

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a fetched, parsed page addressable by CSS selector
type Document interface {
	URL() string
	Select(selector string) []Node
}

// Node is one element of a Document
type Node interface {
	Select(selector string) []Node
	// Text is the concatenated text of the node and its descendants
	Text() string
	Attr(name string) (string, bool)
	// Strings lists each descendant text segment in document order
	Strings() []string
	// OwnText is the first text node directly under the element; ok is false
	// when the element has no direct text
	OwnText() (text string, ok bool)
}

type document struct {
	url string
	doc *goquery.Document
}

type node struct {
	sel *goquery.Selection
}

// FromReader parses HTML into a Document
func FromReader(r io.Reader, url string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &document{url: url, doc: doc}, nil
}

// FromString parses an HTML string into a Document
func FromString(htmlContent, url string) (Document, error) {
	return FromReader(strings.NewReader(htmlContent), url)
}

func (d *document) URL() string {
	return d.url
}

func (d *document) Select(selector string) []Node {
	return wrap(d.doc.Find(selector))
}

func (n *node) Select(selector string) []Node {
	return wrap(n.sel.Find(selector))
}

func (n *node) Text() string {
	return n.sel.Text()
}

func (n *node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n *node) Strings() []string {
	out := make([]string, 0)
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		if h.Type == html.TextNode {
			out = append(out, h.Data)
			return
		}
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, h := range n.sel.Nodes {
		walk(h)
	}
	return out
}

func (n *node) OwnText() (string, bool) {
	for _, h := range n.sel.Nodes {
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				return c.Data, true
			}
		}
	}
	return "", false
}

func wrap(sel *goquery.Selection) []Node {
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		nodes = append(nodes, &node{sel: s})
	})
	return nodes
}

// First returns the first node matching selector, if any
func First(scope interface{ Select(string) []Node }, selector string) (Node, bool) {
	nodes := scope.Select(selector)
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}
