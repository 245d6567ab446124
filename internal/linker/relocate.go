package linker

import (
	"encoding/binary"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/xyproto/name32/internal/diag"
	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/mem"
)

// globalScope marks a consolidated .symtab entry as belonging to the
// external symbol dictionary rather than any one module, stamped into
// the spare st_other byte alongside per-module scope indices.
const globalScope = 0xFF

// moduleLayout is one input module's parsed sections plus its
// computed placement in the consolidated output.
type moduleLayout struct {
	name     string
	data     []byte
	text     []byte
	line     []byte
	symtab   []elf32.Sym
	strtab   []byte
	relocs   []elf32.RelocationEntry
	dataBase uint32
	textBase uint32
}

// layoutModules computes each module's base address per §4.6 step 1:
// .data is padded up to the next 4-byte boundary per module, .text
// and .line concatenate without padding.
func layoutModules(inputs []Input) []moduleLayout {
	modules := make([]moduleLayout, len(inputs))

	dataCursor := mem.DataStart
	textCursor := mem.TextStart
	for i, in := range inputs {
		data, _ := in.File.FindSection(".data")
		text, _ := in.File.FindSection(".text")
		line, _ := in.File.FindSection(".line")
		symtabBody, _ := in.File.FindSection(".symtab")
		strtab, _ := in.File.FindSection(".strtab")
		relBody, _ := in.File.FindSection(".rel")

		dataCursor = roundUp4(dataCursor)

		modules[i] = moduleLayout{
			name:     in.Name,
			data:     data,
			text:     text,
			line:     line,
			symtab:   elf32.ParseSymbols(symtabBody),
			strtab:   strtab,
			relocs:   elf32.ParseRelocations(relBody),
			dataBase: dataCursor,
			textBase: textCursor,
		}

		dataCursor += uint32(len(data))
		textCursor += uint32(len(text))
	}

	return modules
}

// linkMultiple implements §4.6's multi-module path in full: layout,
// external symbol dictionary, local-symbol adjustment, section
// consolidation, relocation application, and header rewrite.
func linkMultiple(inputs []Input) ([]byte, diag.Diagnostics) {
	var diags diag.Diagnostics

	modules := layoutModules(inputs)

	esd, globalDups := buildESD(modules)
	for _, name := range globalDups {
		diags.Errorf(diag.StageLink, 0, "duplicate symbol %q found in global scope", name)
	}

	locals, localDups := collectLocals(modules)
	for _, name := range localDups {
		diags.Errorf(diag.StageLink, 0, "duplicate symbol %q found in local scope", name)
	}
	if diags.HasErrors() {
		return nil, diags
	}

	consolidated := consolidateSections(modules)

	for mi, m := range modules {
		for _, rel := range m.relocs {
			if err := applyRelocation(consolidated.text, m, mi, rel, locals, esd); err != nil {
				diags.Errorf(diag.StageLink, 0, "%s: %s", m.name, err)
			}
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}

	symtab, strtab := buildConsolidatedSymtab(locals, esd)
	entry := resolveEntryFromESD(esd)
	log.WithFields(log.Fields{"modules": len(modules), "entry": entry}).Debug("multi-module link: consolidated")

	out := elf32.Build(elf32.Kind{Executable: true, Entry: entry}, elf32.Sections{
		Data:   consolidated.data,
		Text:   consolidated.text,
		Symtab: symtab,
		Strtab: strtab,
		Line:   consolidated.line,
	})
	return out.Marshal(), diags
}

type consolidatedSections struct {
	data []byte
	text []byte
	line []byte
}

// consolidateSections concatenates each module's bytes in layout
// order, per §4.6 step 4.
func consolidateSections(modules []moduleLayout) consolidatedSections {
	var out consolidatedSections
	for _, m := range modules {
		for uint32(len(out.data)) < m.dataBase-mem.DataStart {
			out.data = append(out.data, 0)
		}
		out.data = append(out.data, m.data...)
		out.text = append(out.text, m.text...)
		out.line = append(out.line, m.line...)
	}
	return out
}

// applyRelocation patches one .rel entry into the consolidated .text
// buffer, resolving the referenced symbol with local scope preferred
// over the external symbol dictionary, per §4.6 step 5.
func applyRelocation(text []byte, m moduleLayout, moduleIdx int, rel elf32.RelocationEntry, locals []scopedSymbol, esd map[string]esdEntry) error {
	if int(rel.Sym) >= len(m.symtab) {
		return fmt.Errorf("relocation references out-of-range symbol index %d", rel.Sym)
	}
	name := m.symtab[rel.Sym].LinkedName(m.strtab)

	addr, ok := resolveSymbolAddress(name, moduleIdx, locals, esd)
	if !ok {
		return fmt.Errorf("undefined symbol %q referenced in relocation", name)
	}

	textOffset := rel.Offset - mem.TextStart + m.textBase - mem.TextStart
	if int(textOffset)+4 > len(text) || int(textOffset) < 0 {
		return fmt.Errorf("relocation offset %#x out of bounds", rel.Offset)
	}

	word := binary.BigEndian.Uint32(text[textOffset : textOffset+4])
	rOffsetConsolidated := m.textBase + (rel.Offset - mem.TextStart)

	switch rel.Kind {
	case elf32.RelR26:
		word = (word &^ 0x03FFFFFF) | ((addr >> 2) & 0x03FFFFFF)
	case elf32.RelPc16:
		offset := (addr - rOffsetConsolidated) >> 2
		word = (word &^ 0xFFFF) | (offset & 0xFFFF)
	case elf32.RelHi16:
		hi := addr >> 16
		word = (word &^ 0xFFFF) | (hi & 0xFFFF)
	case elf32.RelLo16:
		word = (word &^ 0xFFFF) | (addr & 0xFFFF)
	default:
		return fmt.Errorf("unimplemented relocation type %d", rel.Kind)
	}

	binary.BigEndian.PutUint32(text[textOffset:textOffset+4], word)
	return nil
}

// resolveSymbolAddress looks up name preferring a local symbol scoped
// to moduleIdx before falling back to the external symbol dictionary.
func resolveSymbolAddress(name string, moduleIdx int, locals []scopedSymbol, esd map[string]esdEntry) (uint32, bool) {
	for _, sym := range locals {
		if sym.Scope == moduleIdx && sym.Name == name {
			return sym.Value, true
		}
	}
	if entry, ok := esd[name]; ok {
		return entry.Value, true
	}
	return 0, false
}

// buildConsolidatedSymtab serializes the final .symtab/.strtab pair:
// every module's local symbols (tagged with their scope index in
// st_other), in module order, followed by the external symbol
// dictionary (tagged globalScope), in name order.
func buildConsolidatedSymtab(locals []scopedSymbol, esd map[string]esdEntry) (symtab, strtab []byte) {
	symtab = append(symtab, elf32.Sym{}.Marshal()...)
	strtab = append(strtab, 0)
	nameOff := uint32(1)

	for _, sym := range locals {
		symtab = append(symtab, elf32.Sym{
			Name:  nameOff,
			Value: sym.Value,
			Size:  sym.Size,
			Info:  elf32.StInfo(elf32.StbLocal, sym.Type),
			Other: uint8(sym.Scope),
		}.Marshal()...)
		strtab = append(strtab, sym.Name...)
		strtab = append(strtab, 0)
		nameOff += uint32(len(sym.Name)) + 1
	}

	names := make([]string, 0, len(esd))
	for name := range esd {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := esd[name]
		bind := uint8(elf32.StbGlobal)
		if entry.Weak {
			bind = elf32.StbWeak
		}
		symtab = append(symtab, elf32.Sym{
			Name:  nameOff,
			Value: entry.Value,
			Size:  entry.Size,
			Info:  elf32.StInfo(bind, entry.Type),
			Other: globalScope,
		}.Marshal()...)
		strtab = append(strtab, name...)
		strtab = append(strtab, 0)
		nameOff += uint32(len(name)) + 1
	}

	return symtab, strtab
}

func resolveEntryFromESD(esd map[string]esdEntry) uint32 {
	if main, ok := esd["main"]; ok {
		return main.Value
	}
	return mem.TextStart
}
