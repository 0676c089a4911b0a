package cel

import (
	"strings"
	"testing"

	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/value"
)

func load(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := loader.Load([]byte(s), loader.FormatJSON)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return v
}

func newEval(t *testing.T) *Evaluator {
	t.Helper()
	eval, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator failed: %v", err)
	}
	return eval
}

func TestFunctionsIncludesExtensions(t *testing.T) {
	funcs, err := Functions()
	if err != nil {
		t.Fatalf("Functions error: %v", err)
	}
	if len(funcs) < 10 {
		t.Fatalf("expected at least 10 CEL functions, got %d: %v", len(funcs), funcs)
	}
	var hasFilter, hasUpper bool
	for _, f := range funcs {
		hasFilter = hasFilter || strings.HasPrefix(f, "filter()")
		hasUpper = hasUpper || strings.HasPrefix(f, "upperAscii()")
		if strings.HasPrefix(f, "_") {
			t.Errorf("operator leaked into function list: %s", f)
		}
	}
	if !hasFilter || !hasUpper {
		t.Errorf("expected filter and upperAscii in %v", funcs)
	}
}

func TestEvaluateSimpleExpressions(t *testing.T) {
	eval := newEval(t)
	doc := load(t, `{"name": "test", "count": 42, "ratio": 0.5, "active": true, "user": {"email": "a@b.c"}, "items": ["first", "second"]}`)

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"access field", "_.name", `"test"`},
		{"access number", "_.count", `42`},
		{"double", "_.ratio * 2.0", `1`},
		{"array index", "_.items[0]", `"first"`},
		{"boolean", "_.active", `true`},
		{"nested field", "_.user.email", `"a@b.c"`},
		{"operator", "_.count > 5 && _.count < 50", `true`},
		{"size", "size(_.items)", `2`},
		{"string ext", "_.name.upperAscii()", `"TEST"`},
		{"null literal", "null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.Evaluate(tt.expr, doc)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if string(got.JSON()) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.JSON())
			}
		})
	}
}

func TestEvaluateFilterAndMap(t *testing.T) {
	eval := newEval(t)
	doc := load(t, `{"items": [
		{"name": "item1", "available": true, "price": 10},
		{"name": "item2", "available": false, "price": 20},
		{"name": "item3", "available": true, "price": 30}
	]}`)

	got, err := eval.Evaluate("_.items.filter(x, x.available)", doc)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got.Kind() != value.KindArray || got.Len() != 2 {
		t.Fatalf("expected 2-element array, got %s", got.JSON())
	}
	// Objects come back with sorted keys.
	if want := `{"available":true,"name":"item1","price":10}`; string(got.Elems()[0].JSON()) != want {
		t.Errorf("expected %s, got %s", want, got.Elems()[0].JSON())
	}

	got, err = eval.Evaluate("_.items.map(x, x.name)", doc)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if want := `["item1","item2","item3"]`; string(got.JSON()) != want {
		t.Errorf("expected %s, got %s", want, got.JSON())
	}
}

func TestEvaluateMapLiteral(t *testing.T) {
	got, err := newEval(t).Evaluate(`{"b": 1, "a": [true, "x"]}`, value.Null())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if want := `{"a":[true,"x"],"b":1}`; string(got.JSON()) != want {
		t.Errorf("expected %s, got %s", want, got.JSON())
	}
}

func TestEvaluateErrors(t *testing.T) {
	eval := newEval(t)
	doc := load(t, `{"a": 1}`)

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"empty", "  ", "empty expression"},
		{"syntax", "_.a +", "compilation error"},
		{"missing key", "_.missing", "eval error"},
		{"division by zero", "_.a / 0", "eval error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eval.Evaluate(tt.expr, doc)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEvaluateCachesPrograms(t *testing.T) {
	eval := newEval(t)
	for _, doc := range []string{`{"n": 1}`, `{"n": 2}`} {
		if _, err := eval.Evaluate("_.n + 1", load(t, doc)); err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
	}
	if len(eval.programs) != 1 {
		t.Errorf("expected 1 cached program, got %d", len(eval.programs))
	}
}

func TestToGoScalars(t *testing.T) {
	tests := []struct {
		in   ref.Val
		want any
	}{
		{types.Bool(true), true},
		{types.Int(-3), int64(-3)},
		{types.Uint(3), uint64(3)},
		{types.Double(1.5), 1.5},
		{types.String("s"), "s"},
		{types.NullValue, nil},
	}
	for _, tt := range tests {
		got, err := ToGo(tt.in)
		if err != nil {
			t.Fatalf("ToGo(%v) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ToGo(%v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
