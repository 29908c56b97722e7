// Package objfcn is an in-process loader for relocatable ELF object
// files: it maps an object's allocatable sections into an executable
// arena, resolves its relocations against itself and a host resolver,
// and exposes a name→address lookup for the functions and data objects
// the object defines. It is the engine behind a "compile one file, call
// its functions at runtime" workflow — a dynamic linker restricted to
// the relocatable-object input form.
package objfcn

import (
	"debug/elf"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/moneytech/objfcn/internal/arena"
	"github.com/moneytech/objfcn/internal/config"
	"github.com/moneytech/objfcn/internal/diag"
	"github.com/moneytech/objfcn/internal/elfview"
	"github.com/moneytech/objfcn/internal/errslot"
	"github.com/moneytech/objfcn/internal/reloc"
	"github.com/moneytech/objfcn/internal/symtab"
	"github.com/moneytech/objfcn/resolver"
)

// OpenFlags is reserved for future use. The zero value is the only
// value Open currently accepts; any other value is rejected so a
// future meaning can be assigned to these bits without silently
// changing behavior for callers who pass garbage today.
type OpenFlags uint32

// Object is a loaded relocatable object. It owns an executable arena
// and a symbol index; both are released by Close.
type Object struct {
	arena *arena.Arena
	table *symtab.Table
}

// Option configures an Open call.
type Option func(*openOptions)

type openOptions struct {
	resolver resolver.Resolver
}

// WithResolver overrides the host resolver used for the object's
// undefined, no-type symbols. If not given, Open uses resolver.Default().
func WithResolver(r resolver.Resolver) Option {
	return func(o *openOptions) { o.resolver = r }
}

// Open reads, parses, and loads the ELF relocatable object at path,
// returning a handle to it. On any failure, Open releases whatever it
// had partially allocated, records a message retrievable via Error, and
// returns a nil handle: no partially initialized Object ever escapes.
func Open(path string, flags OpenFlags, opts ...Option) (obj *Object, err error) {
	defer func() {
		if err != nil {
			errslot.SetErr(err)
			obj = nil
		}
	}()

	if flags != 0 {
		return nil, fmt.Errorf("objfcn: reserved flags must be zero, got %#x", uint32(flags))
	}

	options := openOptions{resolver: resolver.Default()}
	for _, o := range opts {
		o(&options)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	view, err := elfview.Parse(path, data)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("objfcn: loading configuration: %w", err)
	}
	logger, closeLogger, err := diag.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("objfcn: setting up diagnostics: %w", err)
	}
	defer closeLogger()

	engine, err := reloc.New(view)
	if err != nil {
		return nil, err
	}
	engine.Resolver = options.resolver
	engine.Logger = logger

	return load(view, engine, data, cfg)
}

// load runs the four-pass pipeline described in spec.md §4.3 over an
// already-parsed View.
func load(view *elfview.View, engine *reloc.Engine, data []byte, cfg *config.Config) (*Object, error) {
	// Pass 1: layout & sizing.
	sectionSize, err := sumAllocatable(view, cfg.SectionPaddingBytes)
	if err != nil {
		return nil, err
	}
	extra, err := engine.SizeExtra()
	if err != nil {
		return nil, err
	}

	a, err := arena.New(sectionSize + extra)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// Pass 2: placement, then concurrent copy/zero of each section's
	// bytes — independent once every section's base address is known.
	placement := make([]uintptr, len(view.Sections))
	type job struct {
		sec    *elfview.Section
		off    int
		isZero bool
	}
	var jobs []job
	for i := range view.Sections {
		sec := &view.Sections[i]
		if !sec.Allocated {
			continue
		}
		off := a.Alloc(int(sec.Size), 16)
		placement[i] = a.Addr(off)
		jobs = append(jobs, job{sec: sec, off: off, isZero: sec.Zeroed()})
	}

	mem := a.Bytes()
	var g errgroup.Group
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			dst := mem[j.off : j.off+int(j.sec.Size)]
			if j.isZero {
				for i := range dst {
					dst[i] = 0
				}
				return nil
			}
			src := data[j.sec.Offset : j.sec.Offset+j.sec.Size]
			copy(dst, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Pass 3: symbol emission.
	symAddrs := make([]uintptr, len(view.Syms))
	var records []symtab.Symbol
	for i, s := range view.Syms {
		if s.Type() != elf.STT_FUNC && s.Type() != elf.STT_OBJECT {
			continue
		}
		if !s.Defined {
			continue
		}
		addr := placement[s.Shndx] + uintptr(s.Value)
		if !a.Contains(addr) {
			return nil, fmt.Errorf("objfcn: symbol %s resolves outside the arena", s.Name)
		}
		symAddrs[i] = addr
		records = append(records, symtab.Symbol{Name: s.Name, Addr: addr})
	}
	engine.Placement = placement
	engine.SymAddr = func(symIndex uint32) (uintptr, bool) {
		if int(symIndex) >= len(symAddrs) || symAddrs[symIndex] == 0 {
			return 0, false
		}
		return symAddrs[symIndex], true
	}

	// Pass 4: relocation application.
	if err := engine.Apply(a); err != nil {
		return nil, err
	}

	ok = true
	return &Object{arena: a, table: symtab.New(records)}, nil
}

func sumAllocatable(view *elfview.View, padding int) (int, error) {
	var total int
	for _, s := range view.Sections {
		if !s.Allocated {
			continue
		}
		total = roundUp16(total) + int(s.Size) + padding
	}
	return total, nil
}

func roundUp16(x int) int { return (x + 15) &^ 15 }

// Sym returns the runtime address of the defined function or data
// symbol named name, or false if no such symbol exists in this object.
func (o *Object) Sym(name string) (uintptr, bool) {
	return o.table.Lookup(name)
}

// Close releases the object's arena and symbol index. It always
// succeeds. Addresses previously returned by Sym are dangling
// afterward; using them is undefined.
func (o *Object) Close() error {
	return o.arena.Close()
}

// Error returns the most recent error message recorded by a failed
// Open call, as a process-wide, most-recent-only compatibility shim
// over the structured errors Open itself returns. Concurrent Open
// calls are not supported, so readers should not expect stability across calls they didn't
// themselves make.
func Error() string {
	return errslot.Get()
}
