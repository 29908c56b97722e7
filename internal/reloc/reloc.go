// Package reloc implements relocation application for the two
// architectures this loader supports (x86-64 and i386), including
// synthesis of short trampolines and GOT-like slots for relocation
// types whose native displacement can't reach an arbitrarily distant
// host symbol.
package reloc

import (
	"debug/elf"
	"fmt"
	"log/slog"

	"github.com/moneytech/objfcn/internal/arena"
	"github.com/moneytech/objfcn/internal/diag"
	"github.com/moneytech/objfcn/internal/elfview"
	"github.com/moneytech/objfcn/resolver"
)

// ErrUnsupportedSym indicates a relocation referenced a symbol whose
// type this engine doesn't know how to resolve.
type ErrUnsupportedSym struct{ Type elf.SymType }

func (e *ErrUnsupportedSym) Error() string {
	return fmt.Sprintf("unsupported relocation sym %d", int(e.Type))
}

// ErrUnresolved indicates an undefined, no-type symbol that the host
// resolver could not find.
type ErrUnresolved struct{ Name string }

func (e *ErrUnresolved) Error() string { return fmt.Sprintf("failed to resolve %s", e.Name) }

// ErrUnsupportedType indicates a relocation record of a type this
// engine doesn't implement for the object's architecture.
type ErrUnsupportedType struct{ Type uint32 }

func (e *ErrUnsupportedType) Error() string { return fmt.Sprintf("Unknown reloc: %d", e.Type) }

// SymAddrs resolves a symbol index (into View.Syms) to a runtime
// address. The loader supplies this after Pass 3 has rewritten every
// defined function/object symbol's address; reloc only reads it.
type SymAddrs func(symIndex uint32) (uintptr, bool)

// Engine applies (or sizes) relocations for one object's View against
// an Arena that already holds its placed sections.
type Engine struct {
	View      *elfview.View
	Placement []uintptr // compact section index -> runtime base, 0 if unmapped
	SymAddr   SymAddrs
	Resolver  resolver.Resolver
	Logger    *slog.Logger

	bits int // 32 or 64, derived from View.Machine
}

// New returns an Engine for v, or an error if v's machine isn't one of
// the two architectures this loader supports. The caller must set
// Placement and SymAddr before calling Apply; SizeExtra only needs the
// architecture, so it may be called right away.
func New(v *elfview.View) (*Engine, error) {
	var bits int
	switch v.Machine {
	case elf.EM_X86_64:
		bits = 64
	case elf.EM_386:
		bits = 32
	default:
		return nil, fmt.Errorf("reloc: unsupported machine %s", v.Machine)
	}
	return &Engine{View: v, Resolver: resolver.None, bits: bits}, nil
}

// SizeExtra returns the number of additional arena bytes the applying
// pass will need for synthesized trampolines and GOT slots, without
// resolving any symbols or touching arena memory. This lets the loader
// size the arena before it exists.
func (e *Engine) SizeExtra() (int, error) {
	var total int
	for _, rs := range e.View.Relocs {
		if !e.targetAllocated(rs.TargetSection) {
			continue
		}
		for _, r := range rs.Relocs {
			n, err := e.extraBytes(r.Type)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

func (e *Engine) extraBytes(typ uint32) (int, error) {
	switch e.bits {
	case 64:
		switch elf.R_X86_64(typ) {
		case elf.R_X86_64_NONE, elf.R_X86_64_64, elf.R_X86_64_PC32:
			return 0, nil
		case elf.R_X86_64_PLT32:
			return trampolineSize, nil
		case elf.R_X86_64_REX_GOTPCRELX:
			return gotSlotSize, nil
		default:
			return 0, &ErrUnsupportedType{Type: typ}
		}
	case 32:
		switch elf.R_386(typ) {
		case elf.R_386_NONE, elf.R_386_32, elf.R_386_PC32:
			return 0, nil
		default:
			return 0, &ErrUnsupportedType{Type: typ}
		}
	}
	return 0, fmt.Errorf("reloc: unreachable bits %d", e.bits)
}

const (
	trampolineSize = 14 // FF 25 00 00 00 00 (jmp *rip+0) + 8-byte absolute target
	gotSlotSize    = 8
)

// Apply walks every relocation and patches target bytes into a, which
// must already hold the placed, copied sections this Engine's
// Placement describes.
func (e *Engine) Apply(a *arena.Arena) error {
	for _, rs := range e.View.Relocs {
		if !e.targetAllocated(rs.TargetSection) {
			continue
		}
		targetBase := e.Placement[rs.TargetSection]
		for _, r := range rs.Relocs {
			if err := e.applyOne(a, targetBase, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) targetAllocated(sectionIdx int) bool {
	return sectionIdx >= 0 && sectionIdx < len(e.View.Sections) && e.View.Sections[sectionIdx].Allocated
}

func (e *Engine) applyOne(a *arena.Arena, targetBase uintptr, r elfview.Reloc) error {
	target := targetBase + uintptr(r.Offset)

	symAddr, symName, err := e.resolveSymbol(r.Symbol)
	if err != nil {
		return err
	}

	addend := int64(0)
	if r.HasAddend {
		addend = r.Addend
	}

	mem := a.Bytes()
	targetOff := int(target - a.Base())

	switch e.bits {
	case 64:
		switch elf.R_X86_64(r.Type) {
		case elf.R_X86_64_64:
			patchAdd64(mem, targetOff, uint64(int64(symAddr)+addend))
		case elf.R_X86_64_PC32:
			patchAdd32(mem, targetOff, uint32(int64(symAddr)-int64(target)+addend))
		case elf.R_X86_64_PLT32:
			tramp := e.makeTrampoline(a, symAddr, symName)
			patchAdd32(mem, targetOff, uint32(int64(tramp)-int64(target)+addend))
		case elf.R_X86_64_REX_GOTPCRELX:
			slot := e.makeGOTSlot(a, symAddr, symName)
			patchAdd32(mem, targetOff, uint32(int64(slot)-int64(target)+addend))
		default:
			return &ErrUnsupportedType{Type: r.Type}
		}
	case 32:
		switch elf.R_386(r.Type) {
		case elf.R_386_32:
			patchAdd32(mem, targetOff, uint32(int64(symAddr)+addend))
		case elf.R_386_PC32:
			patchAdd32(mem, targetOff, uint32(int64(symAddr)-int64(target)+addend))
		default:
			return &ErrUnsupportedType{Type: r.Type}
		}
	}
	return nil
}

// resolveSymbol implements spec.md §4.4's symbol-type dispatch table.
func (e *Engine) resolveSymbol(symIndex uint32) (addr uintptr, name string, err error) {
	if int(symIndex) >= len(e.View.Syms) {
		return 0, "", fmt.Errorf("reloc: symbol index %d out of range", symIndex)
	}
	sym := e.View.Syms[symIndex]

	switch sym.Type() {
	case elf.STT_SECTION:
		return e.Placement[sym.Shndx], sym.Name, nil
	case elf.STT_FUNC, elf.STT_OBJECT:
		addr, ok := e.SymAddr(symIndex)
		if !ok {
			return 0, "", fmt.Errorf("reloc: symbol %s has no resolved address", sym.Name)
		}
		return addr, sym.Name, nil
	case elf.STT_NOTYPE:
		if sym.Defined {
			return e.Placement[sym.Shndx], sym.Name, nil
		}
		addr, ok := e.Resolver.Resolve(sym.Name)
		if !ok {
			return 0, "", &ErrUnresolved{Name: sym.Name}
		}
		return addr, sym.Name, nil
	default:
		return 0, "", &ErrUnsupportedSym{Type: sym.Type()}
	}
}

// makeTrampoline synthesizes an indirect-jump stub (FF 25 00000000;
// dq dest) in a and returns its address. This is the mechanism spec.md
// §4.4 calls for: a 32-bit PC-relative displacement can reach the
// trampoline even when it can't reach dest directly.
func (e *Engine) makeTrampoline(a *arena.Arena, dest uintptr, name string) uintptr {
	off := a.Alloc(trampolineSize, 8)
	mem := a.Bytes()[off : off+trampolineSize]
	mem[0] = 0xff
	mem[1] = 0x25
	mem[2], mem[3], mem[4], mem[5] = 0, 0, 0, 0
	le64(mem[6:14], uint64(dest))
	diag.LogTrampoline(e.Logger, "plt32:"+name, mem, uint64(a.Addr(off)), e.bits)
	return a.Addr(off)
}

// makeGOTSlot synthesizes an 8-byte absolute-address slot in a and
// returns its address.
func (e *Engine) makeGOTSlot(a *arena.Arena, dest uintptr, name string) uintptr {
	off := a.Alloc(gotSlotSize, 8)
	mem := a.Bytes()[off : off+gotSlotSize]
	le64(mem, uint64(dest))
	diag.LogTrampoline(e.Logger, "gotpcrelx:"+name, mem, uint64(a.Addr(off)), e.bits)
	return a.Addr(off)
}

func le64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func patchAdd32(mem []byte, off int, delta uint32) {
	cur := uint32(mem[off]) | uint32(mem[off+1])<<8 | uint32(mem[off+2])<<16 | uint32(mem[off+3])<<24
	cur += delta
	mem[off], mem[off+1], mem[off+2], mem[off+3] = byte(cur), byte(cur>>8), byte(cur>>16), byte(cur>>24)
}

func patchAdd64(mem []byte, off int, delta uint64) {
	var cur uint64
	for i := 0; i < 8; i++ {
		cur |= uint64(mem[off+i]) << (8 * i)
	}
	cur += delta
	for i := 0; i < 8; i++ {
		mem[off+i] = byte(cur >> (8 * i))
	}
}
