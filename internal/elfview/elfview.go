// Package elfview provides structural accessors over a relocatable ELF
// object: the section header table, the symbol table, and the string
// table it references. Symbol, string and relocation table contents are
// copied out of the input buffer while decoding; the View does not
// alias the buffer. It validates the ELF magic and
// class but otherwise mirrors the deliberately permissive stance of the
// original loader this package is modeled on: no machine, endianness,
// or pointer-width cross-check beyond class is performed.
package elfview

import (
	"bytes"
	"debug/elf"
	"fmt"

	"github.com/moneytech/objfcn/internal/layout"
)

// ErrNotELF indicates the input buffer isn't an ELF object, or is an
// ELF object of the wrong class for the host.
type ErrNotELF struct {
	Path string
}

func (e *ErrNotELF) Error() string {
	return fmt.Sprintf("%s is not ELF", e.Path)
}

// Section is one allocatable-or-not section of the object, addressed by
// a compact internal index (not the raw ELF section number, which may
// have gaps at SHN_UNDEF and reserved ranges).
type Section struct {
	Name      string
	RawIndex  int // ELF section header index
	Addr      uint64
	Size      uint64
	Offset    uint64
	Link      uint32
	Info      uint32
	Type      elf.SectionType
	Flags     elf.SectionFlag
	Allocated bool // SHF_ALLOC
}

func (s *Section) Zeroed() bool { return s.Type == elf.SHT_NOBITS }

// Reloc is a decoded relocation record: the symbol index and type are
// split out of the record's info field, and the type is left as the
// raw architecture-specific number, so the caller (internal/reloc)
// applies architecture-specific dispatch.
type Reloc struct {
	Offset    uint64
	Symbol    uint32
	Type      uint32
	Addend    int64
	HasAddend bool
}

// RelocSection pairs a decoded relocation table with the section index
// it patches.
type RelocSection struct {
	TargetSection int
	Relocs        []Reloc
}

// Sym is a decoded symbol table entry.
type Sym struct {
	Name    string
	Value   uint64
	Size    uint64
	Info    uint8
	Shndx   int
	Defined bool
}

func (s Sym) Type() elf.SymType { return elf.ST_TYPE(s.Info) }

// View is the parsed structural surface of one ELF object. All indexes
// into Sections are compact internal IDs assigned in section-header
// order, skipping SHT_NULL.
type View struct {
	Machine elf.Machine
	Class   elf.Class
	Layout  layout.Layout
	WordSize int

	Sections []Section

	// Syms holds the static symbol table, indexed exactly as the ELF
	// symbol table is: Syms[0] is the reserved null symbol (never
	// Defined, empty Name), and Syms[i] for i>0 is ELF symbol i. This
	// keeps a relocation's raw Symbol index valid as a direct index here.
	Syms []Sym

	// Relocs holds every relocation section, keyed by its target
	// section's compact index.
	Relocs []RelocSection

	rawToCompact map[int]int
}

// Parse validates and decodes an ELF relocatable object of the host's
// pointer width from the given bytes. path is used only to format
// ErrNotELF.
func Parse(path string, data []byte) (*View, error) {
	if len(data) < 20 || !bytes.Equal(data[:4], []byte{0x7f, 'E', 'L', 'F'}) {
		return nil, &ErrNotELF{Path: path}
	}

	class := elf.Class(data[elf.EI_CLASS])
	wantClass := elf.ELFCLASS64
	wordSize := 8
	if wordSizeOfHost() == 4 {
		wantClass = elf.ELFCLASS32
		wordSize = 4
	}
	if class != wantClass {
		return nil, &ErrNotELF{Path: path}
	}

	ef, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if ef.Type != elf.ET_REL {
		return nil, fmt.Errorf("parsing %s: not a relocatable object (type %s)", path, ef.Type)
	}

	lay := layout.New(ef.ByteOrder, wordSize)

	v := &View{
		Machine:      ef.Machine,
		Class:        class,
		Layout:       lay,
		WordSize:     wordSize,
		rawToCompact: make(map[int]int),
	}

	var symtabRaw = -1
	var strtabRaw = -1
	for i, s := range ef.Sections {
		if s.Type == elf.SHT_NULL {
			continue
		}
		v.rawToCompact[i] = len(v.Sections)
		v.Sections = append(v.Sections, Section{
			Name:      s.Name,
			RawIndex:  i,
			Addr:      s.Addr,
			Size:      s.Size,
			Offset:    s.Offset,
			Link:      s.Link,
			Info:      s.Info,
			Type:      s.Type,
			Flags:     s.Flags,
			Allocated: s.Flags&elf.SHF_ALLOC != 0,
		})
		if s.Type == elf.SHT_SYMTAB && symtabRaw == -1 {
			symtabRaw = i
		}
	}

	if symtabRaw != -1 {
		strtabRaw = int(ef.Sections[symtabRaw].Link)
		symData, err := ef.Sections[symtabRaw].Data()
		if err != nil {
			return nil, fmt.Errorf("reading symbol table in %s: %w", path, err)
		}
		strData, err := ef.Sections[strtabRaw].Data()
		if err != nil {
			return nil, fmt.Errorf("reading string table in %s: %w", path, err)
		}
		v.Syms, err = decodeSyms(lay, class, symData, strData, v.rawToCompact)
		if err != nil {
			return nil, fmt.Errorf("decoding symbol table in %s: %w", path, err)
		}
	}

	for _, s := range ef.Sections {
		if s.Type != elf.SHT_REL && s.Type != elf.SHT_RELA {
			continue
		}
		target, ok := v.rawToCompact[int(s.Info)]
		if !ok {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("reading relocation section %s in %s: %w", s.Name, path, err)
		}
		relocs := decodeRelocs(lay, class, s.Type == elf.SHT_RELA, data)
		v.Relocs = append(v.Relocs, RelocSection{TargetSection: target, Relocs: relocs})
	}

	return v, nil
}

func decodeSyms(lay layout.Layout, class elf.Class, symData, strData []byte, rawToCompact map[int]int) ([]Sym, error) {
	var entSize int
	switch class {
	case elf.ELFCLASS32:
		entSize = 16
	case elf.ELFCLASS64:
		entSize = 24
	}
	n := len(symData) / entSize
	if n == 0 {
		return nil, nil
	}
	// Relocation records reference raw ELF symbol table indices, where
	// index 0 is the reserved null symbol. Keep Syms index-aligned with
	// those raw indices (rather than compacting them away) so a
	// relocation's Symbol field can index straight into this slice.
	syms := make([]Sym, 1, n)
	for i := 1; i < n; i++ {
		r := layout.NewReader(lay, symData)
		r.SetOffset(i * entSize)
		var sym Sym
		var nameOff uint32
		var shn int
		switch class {
		case elf.ELFCLASS32:
			nameOff = r.Uint32()
			sym.Value = uint64(r.Uint32())
			sym.Size = uint64(r.Uint32())
			sym.Info = r.Uint8()
			_ = r.Uint8() // st_other
			shn = int(r.Uint16())
		case elf.ELFCLASS64:
			nameOff = r.Uint32()
			sym.Info = r.Uint8()
			_ = r.Uint8() // st_other
			shn = int(r.Uint16())
			sym.Value = r.Uint64()
			sym.Size = r.Uint64()
		}
		sym.Name = layout.NewReader(lay, strData).CStringAt(int(nameOff))
		if compact, ok := rawToCompact[shn]; ok {
			sym.Shndx = compact
			sym.Defined = true
		} else {
			sym.Shndx = shn // SHN_UNDEF (0), SHN_ABS, SHN_COMMON, etc.
			sym.Defined = false
		}
		syms = append(syms, sym)
	}
	return syms, nil
}

func decodeRelocs(lay layout.Layout, class elf.Class, hasAddend bool, data []byte) []Reloc {
	var entSize int
	switch {
	case class == elf.ELFCLASS32 && !hasAddend:
		entSize = 8
	case class == elf.ELFCLASS32 && hasAddend:
		entSize = 12
	case class == elf.ELFCLASS64 && !hasAddend:
		entSize = 16
	case class == elf.ELFCLASS64 && hasAddend:
		entSize = 24
	}
	if entSize == 0 {
		return nil
	}
	n := len(data) / entSize
	relocs := make([]Reloc, 0, n)
	r := layout.NewReader(lay, data)
	for i := 0; i < n; i++ {
		r.SetOffset(i * entSize)
		var rec Reloc
		rec.HasAddend = hasAddend
		switch class {
		case elf.ELFCLASS32:
			rec.Offset = uint64(r.Uint32())
			info := r.Uint32()
			rec.Symbol = info >> 8
			rec.Type = info & 0xff
			if hasAddend {
				rec.Addend = int64(r.Int32())
			}
		case elf.ELFCLASS64:
			rec.Offset = r.Uint64()
			info := r.Uint64()
			rec.Symbol = uint32(info >> 32)
			rec.Type = uint32(info)
			if hasAddend {
				rec.Addend = r.Int64()
			}
		}
		relocs = append(relocs, rec)
	}
	return relocs
}

func wordSizeOfHost() int {
	const wordSize = 32 << (^uintptr(0) >> 63)
	return wordSize / 8
}
