package linker

import (
	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/mem"
)

// scopedSymbol is one module's local symbol after base-address
// adjustment, still tagged with its owning module's scope index so
// relocations within that module can prefer it over the ESD.
type scopedSymbol struct {
	Name  string
	Value uint32
	Size  uint32
	Type  uint8
	Scope int
}

// esdEntry is one external symbol dictionary entry: a global or weak
// symbol visible across every module, addressed after base-address
// adjustment.
type esdEntry struct {
	Name  string
	Value uint32
	Size  uint32
	Type  uint8
	Weak  bool
}

// buildESD collects every Global/Weak symbol across modules, applying
// each module's section base-address delta, per §4.6 step 2: a weak
// symbol is overridden by a global of the same name; two globals (or
// two weaks) sharing a name is a user-visible duplicate-symbol error.
// Symbols whose value is 0 are undefined placeholders (e.g. an `la`
// target the assembler never locally resolved) and are never
// collected, matching check_duplicate_symbols's placeholder skip.
func buildESD(modules []moduleLayout) (map[string]esdEntry, []string) {
	esd := make(map[string]esdEntry)
	var dupErrors []string

	for _, m := range modules {
		for _, sym := range m.symtab {
			name := sym.LinkedName(m.strtab)
			if name == "" || sym.Value == 0 {
				continue
			}
			bind := sym.Bind()
			if bind != elf32.StbGlobal && bind != elf32.StbWeak {
				continue
			}

			adjusted := adjustValue(sym.Value, sym.Shndx, m)
			entry := esdEntry{Name: name, Value: adjusted, Size: sym.Size, Type: sym.Type(), Weak: bind == elf32.StbWeak}

			existing, ok := esd[name]
			switch {
			case !ok:
				esd[name] = entry
			case existing.Weak && !entry.Weak:
				esd[name] = entry
			case !existing.Weak && entry.Weak:
				// existing global wins, keep it
			default:
				dupErrors = append(dupErrors, name)
			}
		}
	}

	return esd, dupErrors
}

// collectLocals gathers each module's Local symbols, adjusted to the
// consolidated address space and tagged with the module's scope
// index, and reports any name collision within a single module's own
// local scope.
func collectLocals(modules []moduleLayout) ([]scopedSymbol, []string) {
	var locals []scopedSymbol
	var dupErrors []string

	for scope, m := range modules {
		seen := make(map[string]bool)
		for _, sym := range m.symtab {
			if sym.Bind() != elf32.StbLocal {
				continue
			}
			name := sym.LinkedName(m.strtab)
			if name == "" || sym.Value == 0 {
				continue
			}
			if seen[name] {
				dupErrors = append(dupErrors, name)
				continue
			}
			seen[name] = true

			locals = append(locals, scopedSymbol{
				Name:  name,
				Value: adjustValue(sym.Value, sym.Shndx, m),
				Size:  sym.Size,
				Type:  sym.Type(),
				Scope: scope,
			})
		}
	}

	return locals, dupErrors
}

// adjustValue shifts a symbol's value from its module's standalone
// (text/data-start-relative) address into the consolidated layout,
// per §4.6 step 3. Shndx 1 marks a .text symbol, 2 a .data symbol
// (this toolchain's own symtab convention, not generic ELF shndx),
// matching elf32.Symbol.toElfSym's encoding.
func adjustValue(value uint32, shndx uint16, m moduleLayout) uint32 {
	switch shndx {
	case 1:
		return value - mem.TextStart + m.textBase
	case 2:
		return value - mem.DataStart + m.dataBase
	default:
		return value
	}
}
