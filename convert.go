package luabridge

import (
	"fmt"
)

// FromGo converts a plain Go value into a Value. Booleans, numbers and
// strings map to their obvious kinds, []byte to a userdata payload,
// slices to sequence tables keyed 1..n, and maps to tables. Values,
// tables and payloads pass through unchanged.
func FromGo(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Nil, nil
	case Value:
		return v, nil
	case *Table:
		return TableValue(v), nil
	case *UserData:
		return UserDataValue(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Number(float64(v)), nil
	case int8:
		return Number(float64(v)), nil
	case int16:
		return Number(float64(v)), nil
	case int32:
		return Number(float64(v)), nil
	case int64:
		return Number(float64(v)), nil
	case uint:
		return Number(float64(v)), nil
	case uint8:
		return Number(float64(v)), nil
	case uint16:
		return Number(float64(v)), nil
	case uint32:
		return Number(float64(v)), nil
	case uint64:
		return Number(float64(v)), nil
	case float32:
		return Number(float64(v)), nil
	case float64:
		return Number(v), nil
	case string:
		return String(v), nil
	case []byte:
		return UserDataValue(UserDataFrom(v)), nil
	case []any:
		table := NewTable()
		for i, item := range v {
			value, err := FromGo(item)
			if err != nil {
				return Nil, err
			}
			table.SetN(i+1, value)
		}
		return TableValue(table), nil
	case []string:
		table := NewTable()
		for i, s := range v {
			table.SetN(i+1, String(s))
		}
		return TableValue(table), nil
	case []int:
		table := NewTable()
		for i, n := range v {
			table.SetN(i+1, Number(float64(n)))
		}
		return TableValue(table), nil
	case []float64:
		table := NewTable()
		for i, f := range v {
			table.SetN(i+1, Number(f))
		}
		return TableValue(table), nil
	case map[string]any:
		table := NewTable()
		for key, item := range v {
			value, err := FromGo(item)
			if err != nil {
				return Nil, err
			}
			table.Set(String(key), value)
		}
		return TableValue(table), nil
	case map[any]any:
		table := NewTable()
		for key, item := range v {
			k, err := FromGo(key)
			if err != nil {
				return Nil, err
			}
			value, err := FromGo(item)
			if err != nil {
				return Nil, err
			}
			table.Set(k, value)
		}
		return TableValue(table), nil
	default:
		return Nil, fmt.Errorf("unsupported go value of type %T", v)
	}
}

// Go returns the plain Go representation of the value: nil, bool, float64,
// string, a []byte copy for userdata, []any for sequence tables keyed
// exactly 1..n, and map[string]any (keys in display form) for all other
// tables.
func (v Value) Go() any {
	switch v.kind {
	case KindNil:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindUserData:
		return append([]byte(nil), v.u.Bytes()...)
	case KindTable:
		if items, ok := v.t.sequence(); ok {
			return items
		}
		result := make(map[string]any, v.t.Len())
		v.t.Each(func(key, value Value) bool {
			result[key.String()] = value.Go()
			return true
		})
		return result
	default:
		return nil
	}
}

// sequence returns the table's values as a slice if its keys are exactly
// the numbers 1..n.
func (t *Table) sequence() ([]any, bool) {
	items := make([]any, 0, len(t.entries))
	for i, e := range t.entries {
		if !e.key.Equal(Number(float64(i + 1))) {
			return nil, false
		}
		items = append(items, e.value.Go())
	}
	return items, true
}
