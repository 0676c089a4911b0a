// Package selector applies RFC 9535 JSONPath queries to a document.
package selector

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/theory/jsonpath"

	"github.com/oakwood-commons/jvx/pkg/value"
)

var (
	// ErrInvalidInput is returned for an empty or malformed query.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a query selects nothing.
	ErrNotFound = errors.New("no match")
)

// Validate reports whether expr parses as a JSONPath query.
func Validate(expr string) error {
	_, err := parse(expr)
	return err
}

func parse(expr string) (*jsonpath.Path, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: JSONPath expression is empty", ErrInvalidInput)
	}
	path, err := jsonpath.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSONPath %s: %v", ErrInvalidInput, expr, err)
	}
	return path, nil
}

// Select runs expr against doc. A single selected node is returned as is;
// several nodes are returned as an array in selection order. Selected objects
// come back with sorted keys.
func Select(doc value.Value, expr string) (value.Value, error) {
	nodes, err := SelectAll(doc, expr)
	if err != nil {
		return value.Value{}, err
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return value.Array(nodes...), nil
}

// SelectAll runs expr against doc and returns every selected node.
func SelectAll(doc value.Value, expr string) ([]value.Value, error) {
	path, err := parse(expr)
	if err != nil {
		return nil, err
	}

	// The query engine expects the encoding/json shape, with float64
	// numbers.
	var data any
	if err := json.Unmarshal(doc.JSON(), &data); err != nil {
		return nil, fmt.Errorf("prepare document: %w", err)
	}

	results := path.Select(data)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNotFound, expr)
	}
	out := make([]value.Value, len(results))
	for i, r := range results {
		v, err := value.FromAny(r)
		if err != nil {
			return nil, fmt.Errorf("convert result %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
