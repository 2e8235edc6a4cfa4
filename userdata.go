package luabridge

import "bytes"

// UserData is an opaque, host-owned byte buffer of fixed size: the vehicle
// for values that are neither primitive nor table, such as the bit pattern
// of an opaque host handle. It has no counterpart object inside the Lua
// state; it is a block of memory that can be stored into or read from a
// Lua userdata slot.
type UserData struct {
	data []byte
}

// NewUserData returns a userdata payload of the given size, zero-filled.
func NewUserData(size int) *UserData {
	return &UserData{data: make([]byte, size)}
}

// UserDataFrom returns a userdata payload holding a copy of data.
func UserDataFrom(data []byte) *UserData {
	u := NewUserData(len(data))
	copy(u.data, data)
	return u
}

// Size returns the size of the payload in bytes.
func (u *UserData) Size() int { return len(u.data) }

// Bytes returns the payload's underlying buffer. Mutations are visible to
// every holder of this payload; use Clone for an independent copy.
func (u *UserData) Bytes() []byte { return u.data }

// Clone returns a deep copy with an independent lifetime.
func (u *UserData) Clone() *UserData { return UserDataFrom(u.data) }

// Compare orders two payloads: the larger payload is the greater one, and
// payloads of equal size order by their raw bytes. The order is arbitrary
// but fixed; it exists so userdata values can serve as table keys.
func (u *UserData) Compare(other *UserData) int {
	if len(u.data) != len(other.data) {
		if len(u.data) < len(other.data) {
			return -1
		}
		return 1
	}
	return bytes.Compare(u.data, other.data)
}

// Equal reports whether the two payloads have the same size and contents.
func (u *UserData) Equal(other *UserData) bool { return u.Compare(other) == 0 }
