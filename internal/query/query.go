package query

import (
	"errors"
	"fmt"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/xpath"
)

// ErrNoMatch is returned by First when nothing in the scope matches the
// selector. Callers decide whether that is a missing field or a failure.
var ErrNoMatch = errors.New("no node matches selector")

// Kind identifies the selector engine an expression targets.
type Kind string

const (
	KindCSS   Kind = "css"
	KindXPath Kind = "xpath"
)

// Selector is an opaque, engine-tagged match expression. Construct one
// with CSS, XPath, or the structural helpers; the expression itself is not
// meant to be inspected by callers.
type Selector struct {
	kind Kind
	expr string
}

// CSS returns a selector evaluated by the CSS engine.
func CSS(expr string) Selector {
	return Selector{kind: KindCSS, expr: expr}
}

// XPath returns a selector evaluated by the XPath engine.
func XPath(expr string) Selector {
	return Selector{kind: KindXPath, expr: expr}
}

// Tag matches elements by tag name.
func Tag(name string) Selector {
	return CSS(name)
}

// TagAttr matches elements by tag name and an exact attribute value.
func TagAttr(name, attr, value string) Selector {
	return CSS(fmt.Sprintf("%s[%s='%s']", name, attr, value))
}

// TagClass matches elements by tag name and a class.
func TagClass(name, class string) Selector {
	return CSS(name + "." + class)
}

// Parse builds a selector from a config-supplied kind and expression.
func Parse(kind, expr string) (Selector, error) {
	var sel Selector
	switch Kind(kind) {
	case KindCSS, "":
		sel = CSS(expr)
	case KindXPath:
		sel = XPath(expr)
	default:
		return Selector{}, fmt.Errorf("unknown selector kind %q", kind)
	}
	if err := sel.Validate(); err != nil {
		return Selector{}, err
	}
	return sel, nil
}

// Kind returns the selector engine this expression targets.
func (s Selector) Kind() Kind { return s.kind }

// Expr returns the raw match expression for the engine.
func (s Selector) Expr() string { return s.expr }

// IsZero reports whether the selector is unset.
func (s Selector) IsZero() bool { return s.expr == "" }

// Validate compiles the expression against its engine so that typos
// surface at configuration time instead of as silent empty matches.
func (s Selector) Validate() error {
	if s.expr == "" {
		return errors.New("empty selector expression")
	}
	switch s.kind {
	case KindCSS:
		if _, err := cascadia.Compile(s.expr); err != nil {
			return fmt.Errorf("invalid css selector %q: %w", s.expr, err)
		}
	case KindXPath:
		if _, err := xpath.Compile(s.expr); err != nil {
			return fmt.Errorf("invalid xpath expression %q: %w", s.expr, err)
		}
	default:
		return fmt.Errorf("unknown selector kind %q", s.kind)
	}
	return nil
}

func (s Selector) String() string {
	return string(s.kind) + ":" + s.expr
}

// Scope is a queryable region of a page: the whole document, or a single
// product container when narrowing in.
type Scope interface {
	// First returns the first node matching sel in document order, or
	// ErrNoMatch when nothing in the scope matches.
	First(sel Selector) (Node, error)

	// All returns every node matching sel in document order. No match is
	// an empty slice, not an error.
	All(sel Selector) ([]Node, error)
}

// Node is a matched element. A node is itself a Scope, so lookups can be
// chained without leaving the query layer.
type Node interface {
	Scope

	// Text returns the node's inner text with surrounding whitespace
	// trimmed.
	Text() (string, error)

	// Attr returns the value of the named attribute, or ErrNoMatch when
	// the node does not carry it.
	Attr(name string) (string, error)
}
