//go:build !cgo

package resolver

// Default returns None on non-cgo builds: without cgo there's no
// portable way to reach dlsym(RTLD_DEFAULT, ...), so callers that need
// undefined-symbol resolution must supply their own Resolver (for
// example resolver.Map, wired up from whatever symbols their program
// chooses to export) via objfcn.WithResolver.
func Default() Resolver {
	return None
}
