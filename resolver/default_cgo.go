//go:build cgo

package resolver

/*
#cgo LDFLAGS: -ldl
#define _GNU_SOURCE
#include <dlfcn.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

// Default returns a Resolver backed by the host dynamic loader's
// default symbol scope (dlsym(RTLD_DEFAULT, ...)), the direct analogue
// of the original loader's own undefined-symbol resolution path.
func Default() Resolver {
	return Func(func(name string) (uintptr, bool) {
		cname := C.CString(name)
		defer C.free(unsafe.Pointer(cname))
		addr := C.dlsym(C.RTLD_DEFAULT, cname)
		if addr == nil {
			return 0, false
		}
		return uintptr(addr), true
	})
}
