// Package elftest assembles minimal, byte-exact relocatable ELF object
// files for use as test fixtures. The loader's test suite can't invoke a
// real compiler, so this package plays that role: callers describe
// sections, symbols, and relocations and get back a ready-to-parse object
// file.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// ShnUndef is the reserved "no section" index used for undefined symbols.
const ShnUndef = 0

// Sym is one entry to add to the object's symbol table.
type Sym struct {
	Name  string
	Value uint64
	Size  uint64
	Info  uint8
	Shndx uint16 // 1-based index into Builder.Sections, or ShnUndef
}

// Rel is one relocation record, always emitted with an explicit addend
// (SHT_RELA), matching what modern toolchains produce for both
// architectures this loader supports.
type Rel struct {
	Offset uint64
	Sym    uint32 // index into Builder.Syms, 1-based (0 is the reserved null symbol)
	Type   uint32
	Addend int64
}

// Section describes one section to add to the object. A section whose
// Type is SHT_NOBITS (e.g. .bss) takes its size from Size and writes no
// file bytes; any other section's size is len(Data). A non-empty
// Relocs list causes a matching .rela<Name> section targeting this
// section to be emitted.
type Section struct {
	Name   string
	Type   elf.SectionType
	Flags  elf.SectionFlag
	Data   []byte
	Size   uint64
	Relocs []Rel
}

// Builder assembles a little-endian relocatable ELF object from a
// machine, a symbol table, and a set of sections.
type Builder struct {
	Class    elf.Class // elf.ELFCLASS32 or elf.ELFCLASS64
	Machine  elf.Machine
	Syms     []Sym
	Sections []Section
}

type strtab struct{ buf []byte }

func newStrtab() *strtab { return &strtab{buf: []byte{0}} }

func (s *strtab) add(name string) uint32 {
	if name == "" {
		return 0
	}
	off := uint32(len(s.buf))
	s.buf = append(s.buf, name...)
	s.buf = append(s.buf, 0)
	return off
}

type shdr struct {
	name, typ  uint32
	flags      uint64
	addr       uint64
	offset     uint64
	size       uint64
	link, info uint32
	entsize    uint64
}

// Bytes assembles b into a complete object file.
func (b *Builder) Bytes() []byte {
	is64 := b.Class == elf.ELFCLASS64
	ehsize, shentsize := 52, 40
	if is64 {
		ehsize, shentsize = 64, 64
	}

	shstrtab := newStrtab()
	var shdrs []shdr
	shdrs = append(shdrs, shdr{}) // SHT_NULL at index 0

	userBase := len(shdrs)
	for _, s := range b.Sections {
		shdrs = append(shdrs, shdr{name: shstrtab.add(s.Name), typ: uint32(s.Type), flags: uint64(s.Flags)})
	}

	symtabIdx := len(shdrs)
	shdrs = append(shdrs, shdr{name: shstrtab.add(".symtab"), typ: uint32(elf.SHT_SYMTAB)})

	strtabIdx := len(shdrs)
	shdrs = append(shdrs, shdr{name: shstrtab.add(".strtab"), typ: uint32(elf.SHT_STRTAB)})

	relaIdx := make([]int, len(b.Sections))
	for i, s := range b.Sections {
		relaIdx[i] = -1
		if len(s.Relocs) == 0 {
			continue
		}
		relaIdx[i] = len(shdrs)
		shdrs = append(shdrs, shdr{name: shstrtab.add(".rela" + s.Name), typ: uint32(elf.SHT_RELA)})
	}

	shstrtabIdx := len(shdrs)
	shstrtabName := shstrtab.add(".shstrtab")
	shdrs = append(shdrs, shdr{name: shstrtabName, typ: uint32(elf.SHT_STRTAB)})

	// Symbol table and its string table.
	symStrtab := newStrtab()
	symEntSize := 16
	if is64 {
		symEntSize = 24
	}
	symBytes := make([]byte, symEntSize) // reserved null symbol
	for _, s := range b.Syms {
		nameOff := symStrtab.add(s.Name)
		if is64 {
			e := make([]byte, 24)
			binary.LittleEndian.PutUint32(e[0:4], nameOff)
			e[4] = s.Info
			binary.LittleEndian.PutUint16(e[6:8], s.Shndx)
			binary.LittleEndian.PutUint64(e[8:16], s.Value)
			binary.LittleEndian.PutUint64(e[16:24], s.Size)
			symBytes = append(symBytes, e...)
		} else {
			e := make([]byte, 16)
			binary.LittleEndian.PutUint32(e[0:4], nameOff)
			binary.LittleEndian.PutUint32(e[4:8], uint32(s.Value))
			binary.LittleEndian.PutUint32(e[8:12], uint32(s.Size))
			e[12] = s.Info
			binary.LittleEndian.PutUint16(e[14:16], s.Shndx)
			symBytes = append(symBytes, e...)
		}
	}

	relaEntSize := 12
	if is64 {
		relaEntSize = 24
	}
	relaBytes := func(relocs []Rel) []byte {
		buf := make([]byte, 0, len(relocs)*relaEntSize)
		for _, r := range relocs {
			if is64 {
				e := make([]byte, 24)
				binary.LittleEndian.PutUint64(e[0:8], r.Offset)
				binary.LittleEndian.PutUint64(e[8:16], uint64(r.Sym)<<32|uint64(r.Type))
				binary.LittleEndian.PutUint64(e[16:24], uint64(r.Addend))
				buf = append(buf, e...)
			} else {
				e := make([]byte, 12)
				binary.LittleEndian.PutUint32(e[0:4], uint32(r.Offset))
				binary.LittleEndian.PutUint32(e[4:8], uint32(r.Sym)<<8|(r.Type&0xff))
				binary.LittleEndian.PutUint32(e[8:12], uint32(r.Addend))
				buf = append(buf, e...)
			}
		}
		return buf
	}

	var body bytes.Buffer
	bodyOff := func() uint64 { return uint64(ehsize) + uint64(body.Len()) }

	for i, s := range b.Sections {
		idx := userBase + i
		if s.Type == elf.SHT_NOBITS {
			shdrs[idx].offset = bodyOff()
			shdrs[idx].size = s.Size
			continue
		}
		shdrs[idx].offset = bodyOff()
		shdrs[idx].size = uint64(len(s.Data))
		body.Write(s.Data)
	}

	shdrs[symtabIdx].offset = bodyOff()
	shdrs[symtabIdx].size = uint64(len(symBytes))
	shdrs[symtabIdx].link = uint32(strtabIdx)
	shdrs[symtabIdx].info = 1
	shdrs[symtabIdx].entsize = uint64(symEntSize)
	body.Write(symBytes)

	shdrs[strtabIdx].offset = bodyOff()
	shdrs[strtabIdx].size = uint64(len(symStrtab.buf))
	body.Write(symStrtab.buf)

	for i, s := range b.Sections {
		if relaIdx[i] < 0 {
			continue
		}
		rb := relaBytes(s.Relocs)
		idx := relaIdx[i]
		shdrs[idx].offset = bodyOff()
		shdrs[idx].size = uint64(len(rb))
		shdrs[idx].link = uint32(symtabIdx)
		shdrs[idx].info = uint32(userBase + i)
		shdrs[idx].entsize = uint64(relaEntSize)
		body.Write(rb)
	}

	shdrs[shstrtabIdx].offset = bodyOff()
	shdrs[shstrtabIdx].size = uint64(len(shstrtab.buf))
	body.Write(shstrtab.buf)

	shoff := bodyOff()

	var out bytes.Buffer
	ident := make([]byte, 16)
	copy(ident, []byte{0x7f, 'E', 'L', 'F'})
	ident[elf.EI_CLASS] = byte(b.Class)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	out.Write(ident)

	w := func(v any) { binary.Write(&out, binary.LittleEndian, v) }
	w(uint16(elf.ET_REL))
	w(uint16(b.Machine))
	w(uint32(elf.EV_CURRENT))
	if is64 {
		w(uint64(0)) // e_entry
		w(uint64(0)) // e_phoff
		w(shoff)
	} else {
		w(uint32(0))
		w(uint32(0))
		w(uint32(shoff))
	}
	w(uint32(0)) // e_flags
	w(uint16(ehsize))
	w(uint16(0)) // e_phentsize
	w(uint16(0)) // e_phnum
	w(uint16(shentsize))
	w(uint16(len(shdrs)))
	w(uint16(shstrtabIdx))

	out.Write(body.Bytes())

	for _, sh := range shdrs {
		if is64 {
			w(sh.name)
			w(sh.typ)
			w(sh.flags)
			w(sh.addr)
			w(sh.offset)
			w(sh.size)
			w(sh.link)
			w(sh.info)
			w(uint64(1)) // sh_addralign
			w(sh.entsize)
		} else {
			w(sh.name)
			w(sh.typ)
			w(uint32(sh.flags))
			w(uint32(sh.addr))
			w(uint32(sh.offset))
			w(uint32(sh.size))
			w(sh.link)
			w(sh.info)
			w(uint32(1)) // sh_addralign
			w(uint32(sh.entsize))
		}
	}

	return out.Bytes()
}
