package luabridge

import (
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// Function is a host function callable from Lua. It receives the call's
// arguments in order and returns the values to hand back to the script.
// Errors are reported to the script through the state's error channel.
type Function func(args []Value) ([]Value, error)

// Constructor allocates a new instance of a bound class from the
// constructor call's arguments.
type Constructor func(args []Value) (any, error)

// Method is invoked on an instance previously produced by the class
// Constructor (or registered with RegisterObject).
type Method func(self any, args []Value) ([]Value, error)

// Finalizer releases resources held by an instance whose storage was
// allocated for a script-side construction. It runs at most once per
// instance, and never for host-owned instances.
type Finalizer func(self any)

// Ownership states for objects shared with a Lua state. The only legal
// transition is ownedByScript to reclaimed.
const (
	ownedByHost int32 = iota
	ownedByScript
	reclaimed
)

// boundObject correlates a script-visible userdata with its host object
// and ownership status. Exactly one boundObject exists per script-visible
// instance. The compare-and-swap in reclaim makes repeated reclamation
// notifications (explicit delete followed by the collector, or the
// collector firing twice) act exactly once.
type boundObject struct {
	object any
	state  atomic.Int32
}

func newBoundObject(object any, scriptOwned bool) *boundObject {
	b := &boundObject{object: object}
	if scriptOwned {
		b.state.Store(ownedByScript)
	}
	return b
}

// reclaim reports whether this notification won the one legitimate
// transition to reclaimed. Host-owned objects never transition.
func (b *boundObject) reclaim() bool {
	return b.state.CompareAndSwap(ownedByScript, reclaimed)
}

// Class describes a host type exported to Lua: a constructor, an optional
// finalizer, and named methods. Build one with NewClass and the chainable
// setters, then publish it with Session.RegisterClass. Classes are built
// explicitly before any script runs; the builder is not safe for
// concurrent use.
type Class struct {
	name        string
	constructor Constructor
	finalizer   Finalizer
	methods     map[string]Method
}

// NewClass returns a class builder for the given name. The name is the
// global under which the class table is published.
func NewClass(name string) *Class {
	return &Class{name: name, methods: map[string]Method{}}
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Constructor sets the function invoked by `ClassName.new(...)`.
func (c *Class) Constructor(fn Constructor) *Class {
	c.constructor = fn
	return c
}

// Finalizer sets the function run when a script-constructed instance is
// reclaimed, either by an explicit `delete` call or by the collector.
func (c *Class) Finalizer(fn Finalizer) *Class {
	c.finalizer = fn
	return c
}

// Method registers a method under the given name. Reserved names are
// rejected when the class is published.
func (c *Class) Method(name string, fn Method) *Class {
	c.methods[name] = fn
	return c
}

// Entries of the class table installed by RegisterClass; method names may
// not collide with them.
var reservedClassEntries = map[string]bool{
	"classname": true,
	"new":       true,
	"delete":    true,
	"__gc":      true,
	"__index":   true,
}

// dispatch wraps handler as a Lua function so that every failure it
// produces, error return or panic alike, is translated into the state's
// error channel. A Go panic must never unwind through the state's call
// frames, so unanticipated panics are converted to a generic message.
func dispatch(handler func(L *lua.LState) (int, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		n, err := protectedDispatch(L, handler)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		return n
	}
}

func protectedDispatch(L *lua.LState, handler func(L *lua.LState) (int, error)) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unknown failure caught by dispatch wrapper: %v", r)
		}
	}()
	return handler(L)
}

// WrapFunction builds the Lua-callable boundary function for a host free
// function: decode the whole call frame, invoke, push the results.
func WrapFunction(fn Function) lua.LGFunction {
	return dispatch(func(L *lua.LState) (int, error) {
		args, err := DecodeArgs(L)
		if err != nil {
			return 0, err
		}
		results, err := fn(args)
		if err != nil {
			return 0, err
		}
		return PushValues(L, results)
	})
}

// constructorGlue dispatches `ClassName.new(...)`: decode arguments,
// allocate the instance, and hand a script-owned userdata back to Lua
// with the class table attached as its metatable.
func (c *Class) constructorGlue() lua.LGFunction {
	return dispatch(func(L *lua.LState) (int, error) {
		if c.constructor == nil {
			return 0, fmt.Errorf("class '%s' has no constructor", c.name)
		}
		args, err := DecodeArgs(L)
		if err != nil {
			return 0, err
		}
		object, err := c.constructor(args)
		if err != nil {
			return 0, err
		}
		ud := L.NewUserData()
		ud.Value = newBoundObject(object, true)
		L.SetMetatable(ud, L.GetGlobal(c.name))
		L.Push(ud)
		return 1, nil
	})
}

// methodGlue dispatches `obj:method(...)`: slot 1 is the receiver, the
// remaining slots are arguments.
func (c *Class) methodGlue(name string, m Method) lua.LGFunction {
	return dispatch(func(L *lua.LState) (int, error) {
		bo, err := c.receiver(L, name)
		if err != nil {
			return 0, err
		}
		n := L.GetTop()
		args := make([]Value, 0, n-1)
		for i := 2; i <= n; i++ {
			v, err := Decode(L, i)
			if err != nil {
				return 0, err
			}
			args = append(args, v)
		}
		L.SetTop(0)
		results, err := m(bo.object, args)
		if err != nil {
			return 0, err
		}
		return PushValues(L, results)
	})
}

func (c *Class) receiver(L *lua.LState, method string) (*boundObject, error) {
	ud, ok := L.Get(1).(*lua.LUserData)
	if !ok {
		return nil, &TypeMismatchError{Expected: "userdata", Found: L.Get(1).Type().String()}
	}
	bo, ok := ud.Value.(*boundObject)
	if !ok {
		return nil, fmt.Errorf("method '%s:%s': receiver is not a bound object", c.name, method)
	}
	if bo.state.Load() == reclaimed {
		return nil, fmt.Errorf("method '%s:%s': receiver has already been deleted", c.name, method)
	}
	return bo, nil
}

// reclaimGlue dispatches explicit `delete` calls and the collector's
// `__gc` notification. It runs in a context where the state does not
// expect errors to propagate, so it never raises: malformed receivers are
// ignored and finalizer panics are swallowed and logged.
func (s *Session) reclaimGlue(c *Class) lua.LGFunction {
	return func(L *lua.LState) int {
		ud, ok := L.Get(1).(*lua.LUserData)
		if !ok {
			return 0
		}
		bo, ok := ud.Value.(*boundObject)
		if !ok {
			return 0
		}
		if bo.reclaim() && c.finalizer != nil {
			s.runFinalizer(c, bo.object)
		}
		return 0
	}
}

func (s *Session) runFinalizer(c *Class, object any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("finalizer panic",
				"class", c.name, "panic", fmt.Sprint(r))
		}
	}()
	c.finalizer(object)
}

// RegisterFunction publishes a host function as a global in the session.
func (s *Session) RegisterFunction(name string, fn Function) {
	s.state.SetGlobal(name, s.state.NewFunction(WrapFunction(fn)))
}

// RegisterClass publishes a class in the session's global namespace. The
// class table carries `classname`, `new`, `delete`, the `__gc`
// notification entry (both resolving to reclamation dispatch), `__index`
// pointing back at the table so method lookup resolves through it, and
// every registered method. After publication `ClassName.new`, explicit
// `obj:delete()` and all methods are callable from script.
func (s *Session) RegisterClass(c *Class) error {
	if c.name == "" {
		return fmt.Errorf("class name required")
	}
	if c.constructor == nil {
		return fmt.Errorf("class '%s': constructor required", c.name)
	}
	for name := range c.methods {
		if reservedClassEntries[name] {
			return fmt.Errorf("class '%s': method name '%s' is reserved", c.name, name)
		}
	}
	L := s.state
	tbl := L.NewTable()
	tbl.RawSetString("classname", lua.LString(c.name))
	tbl.RawSetString("new", L.NewFunction(c.constructorGlue()))
	reclaim := L.NewFunction(s.reclaimGlue(c))
	tbl.RawSetString("delete", reclaim)
	tbl.RawSetString("__gc", reclaim)
	tbl.RawSetString("__index", tbl)
	for name, m := range c.methods {
		tbl.RawSetString(name, L.NewFunction(c.methodGlue(name, m)))
	}
	L.SetGlobal(c.name, tbl)
	return nil
}

// RegisterObject stores an existing host-owned object at a dotted path in
// the session's global namespace, with the class's table attached so its
// methods are callable from script. Every path component but the last
// must already resolve to a table. The object is never destroyed by the
// session; reclamation of the script-side handle is a no-op on it.
func (s *Session) RegisterObject(path string, c *Class, object any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	classTable := s.state.GetGlobal(c.name)
	if _, ok := classTable.(*lua.LTable); !ok {
		return fmt.Errorf("class '%s' is not registered in this session", c.name)
	}
	parent, err := s.resolveTables(parts[:len(parts)-1])
	if err != nil {
		return err
	}
	ud := s.state.NewUserData()
	ud.Value = newBoundObject(object, false)
	s.state.SetMetatable(ud, classTable)
	s.state.SetField(parent, parts[len(parts)-1], ud)
	return nil
}
