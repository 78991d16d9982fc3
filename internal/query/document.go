package query

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// htmlScope runs selectors against a parsed HTML tree. CSS expressions go
// through goquery, XPath expressions through htmlquery, both evaluated
// relative to the scope's nodes.
type htmlScope struct {
	sel *goquery.Selection
}

// NewHTMLScope returns a Scope over a parsed document.
func NewHTMLScope(doc *goquery.Document) Scope {
	return &htmlScope{sel: doc.Selection}
}

func (s *htmlScope) First(sel Selector) (Node, error) {
	switch sel.Kind() {
	case KindXPath:
		for _, ctx := range s.sel.Nodes {
			n, err := htmlquery.Query(ctx, sel.Expr())
			if err != nil {
				return nil, fmt.Errorf("xpath %q: %w", sel.Expr(), err)
			}
			if n != nil {
				return wrapHTMLNode(n), nil
			}
		}
		return nil, ErrNoMatch
	default:
		found := s.sel.Find(sel.Expr())
		if found.Length() == 0 {
			return nil, ErrNoMatch
		}
		return wrapHTMLNode(found.Nodes[0]), nil
	}
}

func (s *htmlScope) All(sel Selector) ([]Node, error) {
	var matched []*html.Node
	switch sel.Kind() {
	case KindXPath:
		for _, ctx := range s.sel.Nodes {
			ns, err := htmlquery.QueryAll(ctx, sel.Expr())
			if err != nil {
				return nil, fmt.Errorf("xpath %q: %w", sel.Expr(), err)
			}
			matched = append(matched, ns...)
		}
	default:
		matched = s.sel.Find(sel.Expr()).Nodes
	}

	nodes := make([]Node, 0, len(matched))
	for _, n := range matched {
		nodes = append(nodes, wrapHTMLNode(n))
	}
	return nodes, nil
}

// htmlNode is a single matched element. It embeds htmlScope so sub-queries
// stay within the element's subtree.
type htmlNode struct {
	htmlScope
}

func wrapHTMLNode(n *html.Node) *htmlNode {
	return &htmlNode{htmlScope{sel: goquery.NewDocumentFromNode(n).Selection}}
}

func (n *htmlNode) Text() (string, error) {
	return strings.TrimSpace(n.sel.Text()), nil
}

func (n *htmlNode) Attr(name string) (string, error) {
	val, ok := n.sel.Attr(name)
	if !ok {
		return "", ErrNoMatch
	}
	return val, nil
}
