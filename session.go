package luabridge

import (
	"fmt"
	"log/slog"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Options are used to configure a Session.
type Options struct {
	// SkipStandardLibraries leaves the state without Lua's standard
	// libraries. By default they are opened.
	SkipStandardLibraries bool

	// Logger receives diagnostics such as finalizer panics. Defaults to
	// the colorized stdout logger.
	Logger *slog.Logger
}

// Session owns one Lua state: it loads and runs script source, exposes
// dotted-path access to the global namespace, and is the target for
// class, object and function registration. A session is single-threaded;
// all registration is expected to complete before scripts run, and no
// method may be called concurrently with another.
type Session struct {
	state  *lua.LState
	logger *slog.Logger
}

// NewSession returns a new Session configured with the given options.
// Close must be called when the session is no longer needed.
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger()
	}
	state := lua.NewState(lua.Options{SkipOpenLibs: opts.SkipStandardLibraries})
	return &Session{state: state, logger: logger}
}

// Close releases the underlying Lua state.
func (s *Session) Close() {
	s.state.Close()
}

// State exposes the underlying Lua state for uses this package does not
// cover. The session's single-threaded contract still applies.
func (s *Session) State() *lua.LState {
	return s.state
}

// DoString runs Lua source and returns its first result, or nil when the
// chunk returns nothing. Failures are classified ScriptErrors.
func (s *Session) DoString(code string) (Value, error) {
	results, err := s.DoStringMulti(code)
	if err != nil {
		return Nil, err
	}
	return first(results), nil
}

// DoStringMulti runs Lua source and returns all of its results in order.
func (s *Session) DoStringMulti(code string) ([]Value, error) {
	fn, err := s.state.LoadString(code)
	if err != nil {
		return nil, ClassifyError(err)
	}
	return s.callMulti(fn)
}

// DoFile runs a Lua script file and returns its first result, or nil when
// the chunk returns nothing.
func (s *Session) DoFile(path string) (Value, error) {
	results, err := s.DoFileMulti(path)
	if err != nil {
		return Nil, err
	}
	return first(results), nil
}

// DoFileMulti runs a Lua script file and returns all of its results in
// order.
func (s *Session) DoFileMulti(path string) ([]Value, error) {
	fn, err := s.state.LoadFile(path)
	if err != nil {
		return nil, ClassifyError(err)
	}
	return s.callMulti(fn)
}

// callMulti runs a loaded chunk in a protected call, decodes every result
// from the stack in order, and restores the stack to its prior height.
func (s *Session) callMulti(fn *lua.LFunction) ([]Value, error) {
	L := s.state
	base := L.GetTop()
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.SetTop(base)
		return nil, ClassifyError(err)
	}
	n := L.GetTop() - base
	results := make([]Value, 0, n)
	for i := base + 1; i <= base+n; i++ {
		v, err := Decode(L, i)
		if err != nil {
			L.SetTop(base)
			return nil, err
		}
		results = append(results, v)
	}
	L.SetTop(base)
	return results, nil
}

// Get reads the global at a dotted path such as "config.window.width".
// Intermediate components must be tables; a missing trailing key reads as
// nil, as it does in Lua.
func (s *Session) Get(path string) (Value, error) {
	parts, err := splitPath(path)
	if err != nil {
		return Nil, err
	}
	parent, err := s.resolveTables(parts[:len(parts)-1])
	if err != nil {
		return Nil, err
	}
	return decodeLValue(s.state.GetField(parent, parts[len(parts)-1]))
}

// Set writes the global at a dotted path. Intermediate components must
// already resolve to tables.
func (s *Session) Set(path string, v Value) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	parent, err := s.resolveTables(parts[:len(parts)-1])
	if err != nil {
		return err
	}
	lv, err := encodeLValue(s.state, v)
	if err != nil {
		return err
	}
	s.state.SetField(parent, parts[len(parts)-1], lv)
	return nil
}

// resolveTables walks the given path components from the globals table,
// requiring every component to be a table.
func (s *Session) resolveTables(parts []string) (lua.LValue, error) {
	cur := lua.LValue(s.state.G.Global)
	for _, part := range parts {
		next := s.state.GetField(cur, part)
		if _, ok := next.(*lua.LTable); !ok {
			return nil, &TypeMismatchError{Expected: "table", Found: next.Type().String()}
		}
		cur = next
	}
	return cur, nil
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("global path required")
	}
	parts := strings.Split(path, ".")
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("invalid global path %q", path)
		}
	}
	return parts, nil
}

func first(values []Value) Value {
	if len(values) == 0 {
		return Nil
	}
	return values[0]
}
