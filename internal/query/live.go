package query

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
)

// liveQuerier is the subset of rod lookups the live scope relies on. Both
// *rod.Page and *rod.Element satisfy it. These calls return immediately
// instead of waiting for a match to appear, so a missing field inside a
// container cannot stall extraction.
type liveQuerier interface {
	Elements(selector string) (rod.Elements, error)
	ElementsX(xpath string) (rod.Elements, error)
}

// liveScope runs selectors against a rendered page in a browser session.
type liveScope struct {
	q liveQuerier
}

// NewPageScope returns a Scope over a live browser page.
func NewPageScope(page *rod.Page) Scope {
	return &liveScope{q: page}
}

func (s *liveScope) run(sel Selector) (rod.Elements, error) {
	switch sel.Kind() {
	case KindXPath:
		return s.q.ElementsX(sel.Expr())
	default:
		return s.q.Elements(sel.Expr())
	}
}

func (s *liveScope) First(sel Selector) (Node, error) {
	els, err := s.run(sel)
	if err != nil {
		return nil, fmt.Errorf("live query %s: %w", sel, err)
	}
	if len(els) == 0 {
		return nil, ErrNoMatch
	}
	return &liveNode{liveScope: liveScope{q: els.First()}, el: els.First()}, nil
}

func (s *liveScope) All(sel Selector) ([]Node, error) {
	els, err := s.run(sel)
	if err != nil {
		return nil, fmt.Errorf("live query %s: %w", sel, err)
	}
	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, &liveNode{liveScope: liveScope{q: el}, el: el})
	}
	return nodes, nil
}

// liveNode is a single matched element in the live page. Sub-queries stay
// within the element's subtree.
type liveNode struct {
	liveScope
	el *rod.Element
}

func (n *liveNode) Text() (string, error) {
	text, err := n.el.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (n *liveNode) Attr(name string) (string, error) {
	val, err := n.el.Attribute(name)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", ErrNoMatch
	}
	return *val, nil
}
