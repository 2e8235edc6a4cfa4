package luabridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func roundTrip(t *testing.T, L *lua.LState, v Value) Value {
	t.Helper()
	base := L.GetTop()
	require.NoError(t, Encode(L, v))
	require.Equal(t, base+1, L.GetTop())
	got, err := Decode(L, -1)
	require.NoError(t, err)
	L.Pop(1)
	return got
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	inner := NewTable()
	inner.Set(String("x"), Number(1))

	middle := NewTable()
	middle.Set(String("inner"), TableValue(inner))
	middle.Set(Bool(true), String("bool key"))

	deep := NewTable()
	deep.Set(String("middle"), TableValue(middle))
	deep.Set(Number(2.5), Number(-1))

	sequence := NewTable()
	sequence.SetN(1, Number(1))
	sequence.SetN(2, String("two"))
	sequence.SetN(3, Bool(true))

	tableKey := NewTable()
	tableKey.Set(TableValue(inner), String("keyed by a table"))

	tests := []struct {
		name  string
		value Value
	}{
		{"nil", Nil},
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"zero", Number(0)},
		{"negative", Number(-12.75)},
		{"empty string", String("")},
		{"string", String("hello")},
		{"empty table", TableValue(NewTable())},
		{"sequence", TableValue(sequence)},
		{"nested depth 3", TableValue(deep)},
		{"non-string keys", TableValue(tableKey)},
		{"userdata", UserDataValue(UserDataFrom([]byte{1, 2, 3}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := roundTrip(t, L, tt.value)
			require.True(t, tt.value.Equal(got), "want %s, got %s", tt.value, got)
		})
	}
}

func TestDecodeUnsupportedType(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	// Functions have no Value representation.
	L.Push(L.GetGlobal("print"))
	_, err := Decode(L, -1)
	var unsupported *UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "function", unsupported.TypeName)
	L.Pop(1)

	// Neither does foreign userdata that carries no payload.
	ud := L.NewUserData()
	ud.Value = 42
	L.Push(ud)
	_, err = Decode(L, -1)
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "userdata", unsupported.TypeName)
	L.Pop(1)
}

func TestDecodeTableWithFunctionValue(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tbl := L.NewTable()
	tbl.RawSetString("fn", L.GetGlobal("print"))
	L.Push(tbl)
	_, err := Decode(L, -1)
	var unsupported *UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
}

func TestEncodeNilTableKey(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tbl := NewTable()
	tbl.entries = append(tbl.entries, tableEntry{key: Nil, value: Number(1)})
	err := Encode(L, TableValue(tbl))
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, "nil", mismatch.Found)
}

func TestDecodeArgsClearsFrame(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	L.Push(lua.LNumber(1))
	L.Push(lua.LString("two"))
	L.Push(lua.LTrue)

	args, err := DecodeArgs(L)
	require.NoError(t, err)
	require.Equal(t, []Value{Number(1), String("two"), Bool(true)}, args)
	require.Equal(t, 0, L.GetTop())
}

func TestPushValues(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	n, err := PushValues(L, []Value{Number(1), String("a")})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 2, L.GetTop())
	require.Equal(t, lua.LNumber(1), L.Get(1))
	require.Equal(t, lua.LString("a"), L.Get(2))
}

func TestDecodeUserDataIsDeepCopy(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	payload := UserDataFrom([]byte{1, 2})
	require.NoError(t, Encode(L, UserDataValue(payload)))

	got, err := Decode(L, -1)
	require.NoError(t, err)
	u, err := got.AsUserData()
	require.NoError(t, err)

	// Mutating the decoded copy leaves the original untouched.
	u.Bytes()[0] = 9
	require.Equal(t, []byte{1, 2}, payload.Bytes())
}
