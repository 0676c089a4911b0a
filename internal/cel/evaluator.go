// Package cel evaluates CEL expressions against a loaded document. The
// document is bound to the variable "_".
package cel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/jvx/pkg/value"
)

// Evaluator compiles and evaluates CEL expressions. Compiled programs are
// cached by expression text, so re-evaluating after a document reload skips
// the compile step. An Evaluator is safe for concurrent use.
type Evaluator struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

// NewEvaluator creates an evaluator with the standard extension libraries.
func NewEvaluator() (*Evaluator, error) {
	env, err := newStandardCELEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

func newStandardCELEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	allOpts := make([]cel.EnvOption, 0, 5+len(opts))
	allOpts = append(allOpts,
		cel.Variable("_", cel.DynType),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	allOpts = append(allOpts, opts...)
	return cel.NewEnv(allOpts...)
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	e.programs[expr] = prg
	return prg, nil
}

// Evaluate runs expr with "_" bound to doc and returns the result as a
// document. Example: "_.items.filter(x, x.available)".
func (e *Evaluator) Evaluate(expr string, doc value.Value) (value.Value, error) {
	if strings.TrimSpace(expr) == "" {
		return value.Value{}, errors.New("empty expression")
	}
	prg, err := e.program(expr)
	if err != nil {
		return value.Value{}, err
	}
	result, _, err := prg.Eval(map[string]any{"_": doc.ToAny()})
	if err != nil {
		return value.Value{}, fmt.Errorf("eval error: %w", err)
	}
	native, err := ToGo(result)
	if err != nil {
		return value.Value{}, err
	}
	out, err := value.FromAny(native)
	if err != nil {
		return value.Value{}, fmt.Errorf("convert result: %w", err)
	}
	return out, nil
}

// ToGo converts a CEL value to plain Go values (nil, bool, int64, uint64,
// float64, string, []byte, []any, map[string]any). Map keys are stringified.
func ToGo(val ref.Val) (any, error) {
	if val == nil {
		return nil, nil
	}
	if types.IsError(val) {
		return nil, fmt.Errorf("eval error: %v", val)
	}
	switch v := val.(type) {
	case types.Null:
		return nil, nil
	case types.Bool:
		return bool(v), nil
	case types.Int:
		return int64(v), nil
	case types.Uint:
		return uint64(v), nil
	case types.Double:
		return float64(v), nil
	case types.String:
		return string(v), nil
	case types.Bytes:
		return []byte(v), nil
	case types.Timestamp:
		return v.Time, nil
	case types.Duration:
		return v.Duration.String(), nil
	case traits.Mapper:
		out := make(map[string]any)
		it := v.Iterator()
		for it.HasNext() == types.True {
			k := it.Next()
			key, err := ToGo(k)
			if err != nil {
				return nil, err
			}
			elem, err := ToGo(v.Get(k))
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(key)] = elem
		}
		return out, nil
	case traits.Lister:
		var out []any
		it := v.Iterator()
		for it.HasNext() == types.True {
			elem, err := ToGo(it.Next())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		if out == nil {
			out = []any{}
		}
		return out, nil
	}
	return val.Value(), nil
}

// Functions lists the callable functions and macros of the standard
// environment as "name() - usage" lines, sorted. Used by the help screens.
func Functions() ([]string, error) {
	env, err := newStandardCELEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return FunctionsFromEnv(env), nil
}

// FunctionsFromEnv lists the functions of env; see Functions.
func FunctionsFromEnv(env *cel.Env) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, 100)
	add := func(entry string) {
		if !seen[entry] {
			seen[entry] = true
			out = append(out, entry)
		}
	}

	for _, fn := range env.Functions() {
		if isOperator(fn.Name()) {
			continue
		}
		for _, o := range fn.OverloadDecls() {
			add(fn.Name() + "() - " + usageFromOverload(fn.Name(), o))
		}
	}
	for _, m := range env.Macros() {
		if isOperator(m.Function()) {
			continue
		}
		add(m.Function() + "() - macro")
	}

	sort.Strings(out)
	return out
}

func isOperator(name string) bool {
	if strings.HasPrefix(name, "@") {
		return true
	}
	if strings.HasPrefix(name, "_") && strings.HasSuffix(name, "_") {
		return true
	}
	switch name {
	case "!_", "-_", "_[_]", "_?_:_":
		return true
	}
	return false
}

func typeLabel(t *types.Type) string {
	if t == nil {
		return "any"
	}
	if name := t.DeclaredTypeName(); name != "" {
		return name
	}
	if name := t.TypeName(); name != "" {
		return name
	}
	return "any"
}

func formatParams(params []*types.Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = typeLabel(p)
	}
	return strings.Join(parts, ", ")
}

func usageFromOverload(name string, o *decls.OverloadDecl) string {
	params := o.ArgTypes()
	call := name + "(" + formatParams(params) + ")"
	if o.IsMemberFunction() && len(params) > 0 {
		call = typeLabel(params[0]) + "." + name + "(" + formatParams(params[1:]) + ")"
	}
	if r := o.ResultType(); r != nil {
		call += " -> " + typeLabel(r)
	}
	return call
}
