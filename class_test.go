package luabridge

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type counter struct {
	value float64
}

func counterClass() *Class {
	return NewClass("Counter").
		Constructor(func(args []Value) (any, error) {
			c := &counter{}
			if len(args) > 0 {
				start, err := args[0].AsNumber()
				if err != nil {
					return nil, err
				}
				c.value = start
			}
			return c, nil
		}).
		Method("increment", func(self any, args []Value) ([]Value, error) {
			c := self.(*counter)
			c.value++
			return []Value{Number(c.value)}, nil
		}).
		Method("value", func(self any, args []Value) ([]Value, error) {
			c := self.(*counter)
			return []Value{Number(c.value)}, nil
		})
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(Options{Logger: slog.Default()})
	t.Cleanup(s.Close)
	return s
}

func TestCounterScenario(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.RegisterClass(counterClass()))

	v, err := s.DoString(`
		local c = Counter.new()
		c:increment()
		local v = c:increment()
		return v
	`)
	require.NoError(t, err)
	require.Equal(t, Number(2), v)
}

func TestConstructorArguments(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.RegisterClass(counterClass()))

	v, err := s.DoString(`return Counter.new(40):increment()`)
	require.NoError(t, err)
	require.Equal(t, Number(41), v)

	// A bad argument surfaces as a script error, not a Go panic.
	_, err = s.DoString(`return Counter.new("nope")`)
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	require.Equal(t, ErrorKindRuntime, scriptErr.Kind)
	require.Contains(t, scriptErr.Message, "type mismatch")
}

func TestClassnameEntry(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.RegisterClass(counterClass()))

	v, err := s.DoString(`return Counter.classname`)
	require.NoError(t, err)
	require.Equal(t, String("Counter"), v)
}

type item struct {
	finalized *int
}

func itemClass(finalized *int) *Class {
	return NewClass("Item").
		Constructor(func(args []Value) (any, error) {
			return &item{finalized: finalized}, nil
		}).
		Finalizer(func(self any) {
			*self.(*item).finalized++
		}).
		Method("ping", func(self any, args []Value) ([]Value, error) {
			return []Value{String("pong")}, nil
		})
}

func TestScriptOwnedReclamation(t *testing.T) {
	s := newTestSession(t)
	finalized := 0
	require.NoError(t, s.RegisterClass(itemClass(&finalized)))

	// Repeated delete notifications destroy the object exactly once.
	_, err := s.DoString(`
		local i = Item.new()
		i:delete()
		i:delete()
		Item.delete(i)
	`)
	require.NoError(t, err)
	require.Equal(t, 1, finalized)
}

func TestMethodAfterDelete(t *testing.T) {
	s := newTestSession(t)
	finalized := 0
	require.NoError(t, s.RegisterClass(itemClass(&finalized)))

	_, err := s.DoString(`
		local i = Item.new()
		i:delete()
		return i:ping()
	`)
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	require.Contains(t, scriptErr.Message, "deleted")
}

func TestHostOwnedObjectNeverFinalized(t *testing.T) {
	s := newTestSession(t)
	finalized := 0
	require.NoError(t, s.RegisterClass(itemClass(&finalized)))

	hostItem := &item{finalized: &finalized}
	require.NoError(t, s.RegisterObject("hostItem", itemClass(&finalized), hostItem))

	v, err := s.DoString(`
		local r = hostItem:ping()
		hostItem:delete()
		hostItem:delete()
		return r
	`)
	require.NoError(t, err)
	require.Equal(t, String("pong"), v)
	require.Equal(t, 0, finalized)
}

func TestRegisterObjectDottedPath(t *testing.T) {
	s := newTestSession(t)
	finalized := 0
	class := itemClass(&finalized)
	require.NoError(t, s.RegisterClass(class))

	_, err := s.DoString(`app = { services = {} }`)
	require.NoError(t, err)

	require.NoError(t, s.RegisterObject("app.services.store", class, &item{finalized: &finalized}))
	v, err := s.DoString(`return app.services.store:ping()`)
	require.NoError(t, err)
	require.Equal(t, String("pong"), v)

	// Intermediate components must already be tables.
	err = s.RegisterObject("app.missing.store", class, &item{finalized: &finalized})
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, "table", mismatch.Expected)

	// The class must be registered first.
	err = s.RegisterObject("orphan", NewClass("Unknown").Constructor(func([]Value) (any, error) {
		return nil, nil
	}), &item{finalized: &finalized})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not registered")
}

func TestDispatchFailureContainment(t *testing.T) {
	s := newTestSession(t)

	s.RegisterFunction("fail", func(args []Value) ([]Value, error) {
		return nil, fmt.Errorf("domain failure: out of cheese")
	})
	s.RegisterFunction("explode", func(args []Value) ([]Value, error) {
		panic("wholly unanticipated")
	})

	_, err := s.DoString(`fail()`)
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	require.Equal(t, ErrorKindRuntime, scriptErr.Kind)
	require.Contains(t, scriptErr.Message, "out of cheese")

	_, err = s.DoString(`explode()`)
	require.True(t, errors.As(err, &scriptErr))
	require.Contains(t, scriptErr.Message, "unknown failure")
	require.Contains(t, scriptErr.Message, "wholly unanticipated")

	// The session survives both failures.
	v, err := s.DoString(`return 1 + 1`)
	require.NoError(t, err)
	require.Equal(t, Number(2), v)
}

func TestRegisterFunctionMarshalsBothWays(t *testing.T) {
	s := newTestSession(t)

	s.RegisterFunction("swap", func(args []Value) ([]Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
		}
		return []Value{args[1], args[0]}, nil
	})

	values, err := s.DoStringMulti(`return swap(1, "a")`)
	require.NoError(t, err)
	require.Equal(t, []Value{String("a"), Number(1)}, values)
}

func TestRegisterClassValidation(t *testing.T) {
	s := newTestSession(t)

	err := s.RegisterClass(NewClass(""))
	require.Error(t, err)
	require.Contains(t, err.Error(), "name required")

	err = s.RegisterClass(NewClass("NoCtor"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "constructor required")

	bad := NewClass("Bad").
		Constructor(func([]Value) (any, error) { return nil, nil }).
		Method("delete", func(any, []Value) ([]Value, error) { return nil, nil })
	err = s.RegisterClass(bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "reserved")
}

func TestMethodReceiverValidation(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.RegisterClass(counterClass()))

	// Calling a method with a non-object receiver is a script error.
	_, err := s.DoString(`return Counter.increment(42)`)
	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	require.Contains(t, scriptErr.Message, "type mismatch")
}
