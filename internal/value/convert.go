package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"
)

// numberLiteral matches json.Number and lookalikes from other decoders
type numberLiteral interface {
	String() string
	Float64() (float64, error)
}

// FromAny converts the generic output of a JSON decoder into a Value.
// Map members are ordered by key since Go maps carry no order.
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
	case json.Number:
		if _, err := t.Float64(); err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", string(t), err)
		}
		return Number(string(t)), nil
	case numberLiteral:
		if _, err := t.Float64(); err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(t.String()), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Value{}, fmt.Errorf("non-finite number %v", t)
		}
		return Float(t), nil
	case float32:
		return FromAny(float64(t))
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case int32:
		return Int(int64(t)), nil
	case uint64:
		return Number(strconv.FormatUint(t, 10)), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			v, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(t))
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			members = append(members, Member{Key: k, Value: v})
		}
		return Object(members...), nil
	}
	return Value{}, fmt.Errorf("unsupported type %T", x)
}

// ToAny returns the generic representation: nil, bool, json.Number, string,
// []any or map[string]any. This is the shape JSON Schema validators expect.
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.s)
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.ToAny()
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

// ToProto converts v into a google.protobuf.Value. Numbers lose precision
// beyond float64.
func (v Value) ToProto() (*structpb.Value, error) {
	switch v.kind {
	case KindNull:
		return structpb.NewNullValue(), nil
	case KindBool:
		return structpb.NewBoolValue(v.b), nil
	case KindNumber:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return structpb.NewNumberValue(f), nil
	case KindString:
		return structpb.NewStringValue(v.s), nil
	case KindArray:
		list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(v.items))}
		for _, item := range v.items {
			pv, err := item.ToProto()
			if err != nil {
				return nil, err
			}
			list.Values = append(list.Values, pv)
		}
		return structpb.NewListValue(list), nil
	case KindObject:
		st := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(v.members))}
		for _, m := range v.members {
			pv, err := m.Value.ToProto()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.Key, err)
			}
			st.Fields[m.Key] = pv
		}
		return structpb.NewStructValue(st), nil
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}
