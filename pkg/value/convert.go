package value

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// ToAny converts v into the plain Go shape produced by encoding/json:
// map[string]any, []any, string, float64, bool and nil. Integer literals that
// fit in int64 become int64 so expression engines keep integer semantics.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindString:
		return v.text
	case KindNumber:
		if n, err := strconv.ParseInt(v.text, 10, 64); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case KindArray:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			out[i] = e.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.ToAny()
		}
		return out
	}
	return nil
}

// FromAny converts a plain Go value into a Value. Map keys are sorted because
// Go maps carry no order. Structs and other types go through encoding/json so
// struct tags are respected.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Value{}, fmt.Errorf("number %v has no JSON representation", t)
		}
		return Float(t), nil
	case float32:
		return FromAny(float64(t))
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint8:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint16:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint32:
		return Number(strconv.FormatUint(uint64(t), 10)), nil
	case uint64:
		return Number(strconv.FormatUint(t, 10)), nil
	case json.Number:
		return Number(t.String()), nil
	case time.Time:
		return String(t.Format(time.RFC3339Nano)), nil
	case []byte:
		return String(string(t)), nil
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("element [%d]: %w", i, err)
			}
			elems[i] = ev
		}
		return Array(elems...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(t))
		for _, k := range keys {
			mv, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			members = append(members, Member{Key: k, Value: mv})
		}
		return Object(members...), nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := FromAny(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("element [%d]: %w", i, err)
			}
			elems[i] = ev
		}
		return Array(elems...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			keys := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				keys[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
			}
			return FromAny(keys)
		}
	}

	// Structs and named types: round-trip through encoding/json.
	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, fmt.Errorf("cannot convert %T: %w", x, err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return Value{}, fmt.Errorf("cannot convert %T: %w", x, err)
	}
	return FromAny(generic)
}
