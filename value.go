package luabridge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant of a Value is active.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindTable
	KindUserData
)

// String returns the Lua name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTable:
		return "table"
	case KindUserData:
		return "userdata"
	default:
		return "unknown"
	}
}

// Value is a dynamic value as seen by a Lua state: exactly one of nil,
// boolean, number, string, table or userdata is active at a time. The zero
// value is nil. Values are small and passed by value; tables and userdata
// are held by reference.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	t    *Table
	u    *UserData
}

// Nil is the nil Value.
var Nil = Value{}

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Number returns a number Value.
func Number(v float64) Value { return Value{kind: KindNumber, n: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// TableValue returns a Value holding the given table. A nil table is the
// nil Value.
func TableValue(t *Table) Value {
	if t == nil {
		return Nil
	}
	return Value{kind: KindTable, t: t}
}

// UserDataValue returns a Value holding the given userdata payload. A nil
// payload is the nil Value.
func UserDataValue(u *UserData) Value {
	if u == nil {
		return Nil
	}
	return Value{kind: KindUserData, u: u}
}

// Kind returns the active variant of the value.
func (v Value) Kind() Kind { return v.kind }

// TypeName returns the Lua name of the active variant. It is the name used
// in error messages and in cross-kind comparisons.
func (v Value) TypeName() string { return v.kind.String() }

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns the boolean held by the value, or a TypeMismatchError if
// another variant is active.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, &TypeMismatchError{Expected: "boolean", Found: v.TypeName()}
	}
	return v.b, nil
}

// AsNumber returns the number held by the value, or a TypeMismatchError if
// another variant is active.
func (v Value) AsNumber() (float64, error) {
	if v.kind != KindNumber {
		return 0, &TypeMismatchError{Expected: "number", Found: v.TypeName()}
	}
	return v.n, nil
}

// AsString returns the string held by the value, or a TypeMismatchError if
// another variant is active.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", &TypeMismatchError{Expected: "string", Found: v.TypeName()}
	}
	return v.s, nil
}

// AsTable returns the table held by the value, or a TypeMismatchError if
// another variant is active.
func (v Value) AsTable() (*Table, error) {
	if v.kind != KindTable {
		return nil, &TypeMismatchError{Expected: "table", Found: v.TypeName()}
	}
	return v.t, nil
}

// AsUserData returns the userdata payload held by the value, or a
// TypeMismatchError if another variant is active.
func (v Value) AsUserData() (*UserData, error) {
	if v.kind != KindUserData {
		return nil, &TypeMismatchError{Expected: "userdata", Found: v.TypeName()}
	}
	return v.u, nil
}

// Compare returns -1, 0 or 1 ordering v against other. The order is total:
// values of different kinds order by kind rank (nil < boolean < number <
// string < table < userdata), values of the same kind by variant-specific
// comparison. Tables compare by length, then entry by entry in key order.
// The order exists so a Value can be used as a table key; across kinds it
// is arbitrary but fixed.
func (v Value) Compare(other Value) int {
	if v.kind != other.kind {
		if v.kind < other.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case KindNil:
		return 0
	case KindBool:
		if v.b == other.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case KindNumber:
		if v.n < other.n {
			return -1
		}
		if v.n > other.n {
			return 1
		}
		return 0
	case KindString:
		return strings.Compare(v.s, other.s)
	case KindTable:
		return v.t.compare(other.t)
	case KindUserData:
		return v.u.Compare(other.u)
	default:
		return 0
	}
}

// Less reports whether v orders before other.
func (v Value) Less(other Value) bool { return v.Compare(other) < 0 }

// Greater reports whether v orders after other.
func (v Value) Greater(other Value) bool { return v.Compare(other) > 0 }

// Equal reports whether v and other are the same value. Tables and userdata
// compare structurally, not by identity.
func (v Value) Equal(other Value) bool { return v.Compare(other) == 0 }

// String returns a display form of the value.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindString:
		return v.s
	case KindTable:
		return v.t.String()
	case KindUserData:
		return fmt.Sprintf("userdata(%d bytes)", v.u.Size())
	default:
		return "unknown"
	}
}

type tableEntry struct {
	key   Value
	value Value
}

// Table is a mapping from Value to Value with unique keys and no reliance
// on insertion order. Entries are kept sorted by key so that iteration,
// comparison and encoding are deterministic.
type Table struct {
	entries []tableEntry
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

// Len returns the number of entries in the table.
func (t *Table) Len() int { return len(t.entries) }

// search returns the position of key and whether it is present.
func (t *Table) search(key Value) (int, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].key.Compare(key) >= 0
	})
	return i, i < len(t.entries) && t.entries[i].key.Equal(key)
}

// Has reports whether key is present in the table.
func (t *Table) Has(key Value) bool {
	_, ok := t.search(key)
	return ok
}

// Get returns the value stored under key. Reading a key that is not
// present fails with a NoSuchKeyError.
func (t *Table) Get(key Value) (Value, error) {
	i, ok := t.search(key)
	if !ok {
		return Nil, &NoSuchKeyError{Key: key}
	}
	return t.entries[i].value, nil
}

// Set stores value under key, overwriting any previous entry. Assigning
// nil removes the key, as indexed assignment does in Lua, so a present
// entry never holds nil.
func (t *Table) Set(key, value Value) {
	if value.IsNil() {
		t.Delete(key)
		return
	}
	i, ok := t.search(key)
	if ok {
		t.entries[i].value = value
		return
	}
	t.entries = append(t.entries, tableEntry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = tableEntry{key: key, value: value}
}

// SetN stores value under the 1-based sequence key n, the convention Lua
// uses for array-style tables.
func (t *Table) SetN(n int, value Value) {
	t.Set(Number(float64(n)), value)
}

// Delete removes key from the table if present.
func (t *Table) Delete(key Value) {
	i, ok := t.search(key)
	if !ok {
		return
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
}

// Each calls fn for every entry in key order. Iteration stops early if fn
// returns false. The table must not be mutated during iteration.
func (t *Table) Each(fn func(key, value Value) bool) {
	for _, e := range t.entries {
		if !fn(e.key, e.value) {
			return
		}
	}
}

// Keys returns the table's keys in sorted order.
func (t *Table) Keys() []Value {
	keys := make([]Value, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.key
	}
	return keys
}

// compare orders two tables: by entry count first, then by the first
// differing key, then by the first differing value, recursively.
func (t *Table) compare(other *Table) int {
	if len(t.entries) != len(other.entries) {
		if len(t.entries) < len(other.entries) {
			return -1
		}
		return 1
	}
	for i := range t.entries {
		if c := t.entries[i].key.Compare(other.entries[i].key); c != 0 {
			return c
		}
		if c := t.entries[i].value.Compare(other.entries[i].value); c != 0 {
			return c
		}
	}
	return 0
}

// String returns a display form of the table.
func (t *Table) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, e := range t.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", e.key.String(), e.value.String())
	}
	sb.WriteString("}")
	return sb.String()
}
