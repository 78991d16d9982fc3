package extract

import (
	"errors"
	"fmt"

	"github.com/shelf-tools/gleaner/internal/config"
	"github.com/shelf-tools/gleaner/internal/query"
	"github.com/shelf-tools/gleaner/internal/types"
)

// Field binds one product column to its lookup. When Attr is set the
// value is read from that attribute of the matched node instead of its
// inner text.
type Field struct {
	Sel  query.Selector
	Attr string
}

// Rules is a compiled selector set: how to find product containers and
// how to read each field inside one. The same rules drive both the parsed
// document and the live page, which is what keeps the two pipelines
// byte-compatible.
type Rules struct {
	Container query.Selector
	Name      Field
	Price     Field
	Rating    Field
}

// CompileRules validates and compiles a configured selector set.
func CompileRules(set config.SelectorSet) (Rules, error) {
	container, err := set.Container.Compile()
	if err != nil {
		return Rules{}, fmt.Errorf("container: %w", err)
	}
	name, err := set.Name.Compile()
	if err != nil {
		return Rules{}, fmt.Errorf("name: %w", err)
	}
	price, err := set.Price.Compile()
	if err != nil {
		return Rules{}, fmt.Errorf("price: %w", err)
	}
	rating, err := set.Rating.Compile()
	if err != nil {
		return Rules{}, fmt.Errorf("rating: %w", err)
	}
	return Rules{
		Container: container,
		Name:      Field{Sel: name, Attr: set.Name.Attr},
		Price:     Field{Sel: price, Attr: set.Price.Attr},
		Rating:    Field{Sel: rating, Attr: set.Rating.Attr},
	}, nil
}

// Result is the outcome of one container's extraction. A non-nil Err
// means the product is unusable and should be logged and skipped; it never
// fails the surrounding run.
type Result struct {
	Product types.Product
	Err     error
}

// Ok reports whether the extraction produced a usable product.
func (r Result) Ok() bool { return r.Err == nil }

// Containers returns every product container in the scope, in document
// order. Zero containers is a valid outcome, not an error.
func Containers(scope query.Scope, rules Rules) ([]query.Node, error) {
	return scope.All(rules.Container)
}

// Record extracts one product from a single container scope. Fields that
// simply are not present degrade to types.Missing; only a query engine
// failure makes the whole product unusable.
func Record(scope query.Scope, rules Rules) (types.Product, error) {
	var p types.Product
	var err error

	if p.Name, err = fieldValue(scope, rules.Name); err != nil {
		return types.Product{}, &types.ExtractionError{Field: "name", Err: err}
	}
	if p.Price, err = fieldValue(scope, rules.Price); err != nil {
		return types.Product{}, &types.ExtractionError{Field: "price", Err: err}
	}
	if p.Rating, err = fieldValue(scope, rules.Rating); err != nil {
		return types.Product{}, &types.ExtractionError{Field: "rating", Err: err}
	}
	return p, nil
}

// Records runs Record over every container and returns one Result per
// container, preserving page order. Callers decide what to do with failed
// results; nothing is silently dropped here.
func Records(containers []query.Node, rules Rules) []Result {
	results := make([]Result, 0, len(containers))
	for _, c := range containers {
		p, err := Record(c, rules)
		results = append(results, Result{Product: p, Err: err})
	}
	return results
}

func fieldValue(scope query.Scope, f Field) (string, error) {
	node, err := scope.First(f.Sel)
	if errors.Is(err, query.ErrNoMatch) {
		return types.Missing, nil
	}
	if err != nil {
		return "", err
	}

	if f.Attr != "" {
		val, err := node.Attr(f.Attr)
		if errors.Is(err, query.ErrNoMatch) {
			return types.Missing, nil
		}
		return val, err
	}
	return node.Text()
}
