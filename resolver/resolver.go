// Package resolver abstracts the host process's symbol table, used to
// resolve symbols an object leaves undefined. This is deliberately an
// external collaborator: the loader never assumes how (or whether) the
// host can look up a name, it only consumes this interface.
package resolver

// A Resolver maps an undefined symbol name to an address within the
// running process, or reports that it has no such symbol.
type Resolver interface {
	Resolve(name string) (addr uintptr, ok bool)
}

// Func adapts a plain function to the Resolver interface.
type Func func(name string) (uintptr, bool)

func (f Func) Resolve(name string) (uintptr, bool) { return f(name) }

// None is a Resolver that never finds anything. It's useful as a
// baseline for objects known to have no undefined symbols, and as the
// non-cgo fallback returned by Default.
var None Resolver = Func(func(string) (uintptr, bool) { return 0, false })

// Map returns a Resolver backed by a fixed name→address table, useful
// in tests that stand in for the host's dynamic symbol table.
func Map(m map[string]uintptr) Resolver {
	return Func(func(name string) (uintptr, bool) {
		addr, ok := m[name]
		return addr, ok
	})
}

// Chain returns a Resolver that tries each of rs in order, returning
// the first hit.
func Chain(rs ...Resolver) Resolver {
	return Func(func(name string) (uintptr, bool) {
		for _, r := range rs {
			if r == nil {
				continue
			}
			if addr, ok := r.Resolve(name); ok {
				return addr, true
			}
		}
		return 0, false
	})
}
