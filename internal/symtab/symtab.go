// Package symtab implements the loader's symbol index: an ordered
// sequence of defined-symbol records with lookup by exact name.
package symtab

// Symbol is one defined function or data symbol, with its address
// already resolved into the owning arena.
type Symbol struct {
	Name string
	Addr uintptr
}

// Table is a name-indexed view over a slice of Symbols. Lookup uses a
// map (rather than the linear scan the original loader performed) but
// preserves the spec's declared semantics: on duplicate names, the
// first match (in ELF symbol-table order) wins.
type Table struct {
	syms   []Symbol
	byName map[string]int
}

// New builds a Table over syms, indexed by name. syms must already be
// in ELF symbol-table order, since that order determines which
// duplicate-named symbol is returned by Lookup.
func New(syms []Symbol) *Table {
	byName := make(map[string]int, len(syms))
	for i, s := range syms {
		if _, dup := byName[s.Name]; !dup {
			byName[s.Name] = i
		}
	}
	return &Table{syms: syms, byName: byName}
}

// Lookup returns the address of the first symbol named name, if any.
func (t *Table) Lookup(name string) (uintptr, bool) {
	i, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	return t.syms[i].Addr, true
}

// Len returns the number of symbol records in t.
func (t *Table) Len() int { return len(t.syms) }

// At returns the i'th symbol record.
func (t *Table) At(i int) Symbol { return t.syms[i] }
