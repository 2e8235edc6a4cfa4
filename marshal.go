package luabridge

import (
	lua "github.com/yuin/gopher-lua"
)

// Decode converts the Lua value at the given stack index into a Value.
// Primitives are copied. Tables are enumerated through the state's
// iteration protocol and decoded recursively; there is no cycle guard, so
// a table that contains itself, directly or transitively, does not
// terminate. Userdata carrying a *UserData payload is deep-copied; any
// other userdata, and kinds with no Value representation (functions,
// coroutines, channels), fail with an UnsupportedTypeError.
func Decode(L *lua.LState, idx int) (Value, error) {
	return decodeLValue(L.Get(idx))
}

func decodeLValue(lv lua.LValue) (Value, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return Nil, nil
	case lua.LBool:
		return Bool(bool(v)), nil
	case lua.LNumber:
		return Number(float64(v)), nil
	case lua.LString:
		return String(string(v)), nil
	case *lua.LTable:
		table := NewTable()
		var err error
		v.ForEach(func(lk, lval lua.LValue) {
			if err != nil {
				return
			}
			var key, value Value
			if key, err = decodeLValue(lk); err != nil {
				return
			}
			if value, err = decodeLValue(lval); err != nil {
				return
			}
			table.Set(key, value)
		})
		if err != nil {
			return Nil, err
		}
		return TableValue(table), nil
	case *lua.LUserData:
		if payload, ok := v.Value.(*UserData); ok {
			return UserDataValue(payload.Clone()), nil
		}
		return Nil, &UnsupportedTypeError{TypeName: "userdata"}
	default:
		return Nil, &UnsupportedTypeError{TypeName: lv.Type().String()}
	}
}

// Encode pushes v as one slot onto the state's stack: the inverse of
// Decode. Tables are pushed by creating a fresh Lua table and encoding
// every entry recursively. A nil table key cannot be represented in Lua
// and fails with a TypeMismatchError.
func Encode(L *lua.LState, v Value) error {
	lv, err := encodeLValue(L, v)
	if err != nil {
		return err
	}
	L.Push(lv)
	return nil
}

func encodeLValue(L *lua.LState, v Value) (lua.LValue, error) {
	switch v.Kind() {
	case KindNil:
		return lua.LNil, nil
	case KindBool:
		b, _ := v.AsBool()
		return lua.LBool(b), nil
	case KindNumber:
		n, _ := v.AsNumber()
		return lua.LNumber(n), nil
	case KindString:
		s, _ := v.AsString()
		return lua.LString(s), nil
	case KindTable:
		t, _ := v.AsTable()
		tbl := L.CreateTable(0, t.Len())
		var err error
		t.Each(func(key, value Value) bool {
			if key.IsNil() {
				err = &TypeMismatchError{Expected: "table key", Found: "nil"}
				return false
			}
			var lk, lval lua.LValue
			if lk, err = encodeLValue(L, key); err != nil {
				return false
			}
			if lval, err = encodeLValue(L, value); err != nil {
				return false
			}
			tbl.RawSet(lk, lval)
			return true
		})
		if err != nil {
			return nil, err
		}
		return tbl, nil
	case KindUserData:
		u, _ := v.AsUserData()
		ud := L.NewUserData()
		ud.Value = u.Clone()
		return ud, nil
	default:
		return nil, &UnsupportedTypeError{TypeName: v.TypeName()}
	}
}

// DecodeArgs decodes the current call frame's positional arguments in
// order and clears them from the stack, leaving the frame clean for
// pushing return values.
func DecodeArgs(L *lua.LState) ([]Value, error) {
	n := L.GetTop()
	args := make([]Value, 0, n)
	for i := 1; i <= n; i++ {
		v, err := Decode(L, i)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	L.SetTop(0)
	return args, nil
}

// PushValues pushes the given values onto the stack in order and returns
// the number of slots pushed, which is the count a Lua function returns
// to the state.
func PushValues(L *lua.LState, values []Value) (int, error) {
	for _, v := range values {
		if err := Encode(L, v); err != nil {
			return 0, err
		}
	}
	return len(values), nil
}
