package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/oakwood-commons/jvx/internal/cel"
	"github.com/oakwood-commons/jvx/internal/selector"
	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/settings"
	"github.com/oakwood-commons/jvx/pkg/value"
)

// errNoInput is returned when there is neither a file argument nor piped
// stdin; the root command shows help.
var errNoInput = errors.New("no input provided")

// resolveSource decides where the document comes from. "-" means stdin.
func resolveSource(args []string, piped bool) (settings.Source, error) {
	if len(args) > 0 && args[0] != "-" {
		return settings.Source{Path: args[0]}, nil
	}
	if len(args) > 0 || piped {
		return settings.Source{FromStdin: true}, nil
	}
	return settings.Source{}, errNoInput
}

// loadSource reads the document. Empty input returns loader.ErrEmptyInput and
// parse failures a *loader.ParseError, as from the loader.
func loadSource(src settings.Source, stdin io.Reader, format loader.Format) (value.Value, error) {
	if src.Path != "" {
		return loader.LoadFile(src.Path, format)
	}
	return loader.LoadReader(stdin, format)
}

// deriver turns a loaded document into the document being viewed, applying
// --jsonpath and then --expression when given.
type deriver struct {
	jsonPath   string
	expression string
	eval       *cel.Evaluator
}

func newDeriver(jsonPath, expression string) (*deriver, error) {
	d := &deriver{jsonPath: jsonPath, expression: expression}
	if jsonPath != "" {
		if err := selector.Validate(jsonPath); err != nil {
			return nil, usageError{err: err}
		}
	}
	if expression != "" {
		ev, err := cel.NewEvaluator()
		if err != nil {
			return nil, err
		}
		d.eval = ev
	}
	return d, nil
}

func (d *deriver) active() bool { return d.jsonPath != "" || d.expression != "" }

func (d *deriver) apply(doc value.Value) (value.Value, error) {
	var err error
	if d.jsonPath != "" {
		if doc, err = selector.Select(doc, d.jsonPath); err != nil {
			return value.Value{}, fmt.Errorf("jsonpath: %w", err)
		}
	}
	if d.expression != "" {
		if doc, err = d.eval.Evaluate(d.expression, doc); err != nil {
			return value.Value{}, fmt.Errorf("expression: %w", err)
		}
	}
	return doc, nil
}

// loadDocument loads src and applies the derivations.
func loadDocument(src settings.Source, stdin io.Reader, format loader.Format, d *deriver) (value.Value, error) {
	doc, err := loadSource(src, stdin, format)
	if err != nil {
		return value.Value{}, err
	}
	return d.apply(doc)
}
