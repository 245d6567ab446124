package assembler

import (
	log "github.com/sirupsen/logrus"

	"github.com/xyproto/name32/internal/diag"
	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/instr"
	"github.com/xyproto/name32/internal/mem"
)

// Section names which segment current_address currently tracks.
type Section int

const (
	SectionNull Section = iota
	SectionText
	SectionData
)

// Backpatch is a pending forward reference: an instruction was
// assembled against an as-yet-undefined symbol, so its target word in
// .text was written as a placeholder pending resolution once the
// symbol's label is encountered.
type Backpatch struct {
	Info         *instr.Info
	Args         []Component
	Identifier   string
	TextOffset   uint32 // byte offset into section_dot_text
	LineNumber   int
}

// State is the assembler environment threaded through one source
// file's two-pass assembly: line parsing, pseudo-instruction
// expansion, symbol/backpatch bookkeeping, and section byte
// accumulation.
type State struct {
	Diags diag.Diagnostics

	Text []byte
	Data []byte
	Rel  []elf32.RelocationEntry
	Line []elf32.LineInfo

	Symbols      []elf32.Symbol
	Equivalences map[string]string
	Backpatches  []Backpatch

	CurrentSection Section
	CurrentAddress uint32
	TextCounter    uint32
	DataAddress    uint32

	LineNumber     int
	LinePrefix     string
	MostRecentLabel string

	CurrentDir string
}

// New returns a fresh assembler environment ready to process a file.
func New() *State {
	return &State{
		Equivalences:   make(map[string]string),
		CurrentSection: SectionNull,
		TextCounter:    mem.TextStart,
		DataAddress:    mem.DataStart,
		LineNumber:     1,
	}
}

// symbolExists reports whether ident is already present in the symbol
// table (defined, not merely referenced).
func (s *State) symbolExists(ident string) bool {
	for _, sym := range s.Symbols {
		if sym.Identifier == ident {
			return true
		}
	}
	return false
}

// symbolValue looks up a defined symbol's address.
func (s *State) symbolValue(ident string) (uint32, bool) {
	for _, sym := range s.Symbols {
		if sym.Identifier == ident {
			return sym.Value, true
		}
	}
	return 0, false
}

// SymbolOffset implements instr.PseudoContext.
func (s *State) SymbolOffset(name string) (uint32, bool) { return s.symbolValue(name) }

// TextAddress implements instr.PseudoContext: the address the next
// instruction word will be written to.
func (s *State) TextAddress() uint32 { return s.CurrentAddress }

// AddRelocation implements instr.PseudoContext.
func (s *State) AddRelocation(offset uint32, symName string, kind instr.RelocKind) {
	s.addRelocation(offset, symName, kind)
}

func (s *State) addRelocation(offset uint32, symName string, kind instr.RelocKind) {
	symIndex := s.symbolIndex(symName)
	s.Rel = append(s.Rel, elf32.RelocationEntry{
		Offset: offset,
		Sym:    symIndex,
		Kind:   elf32.RelocKind(kind),
	})
}

// symbolIndex returns the 1-based .symtab index of ident, registering
// an undefined placeholder entry if it is not yet known. Index 0 is
// reserved for the null symtab entry, matching elf32.BuildSymtab.
func (s *State) symbolIndex(ident string) uint32 {
	for i, sym := range s.Symbols {
		if sym.Identifier == ident {
			return uint32(i) + 1
		}
	}
	s.Symbols = append(s.Symbols, elf32.Symbol{Identifier: ident, Visibility: elf32.Global})
	return uint32(len(s.Symbols))
}

// addLabel inserts a new symbol at the current address, grounded on
// name-as's add_label: the symbol's type follows the active section
// (STT_FUNC in .text, STT_OBJECT in .data), and declaring a label
// outside any section is an error.
func (s *State) addLabel(ident string) {
	var symType uint8
	var sec elf32.SymbolSection
	switch s.CurrentSection {
	case SectionText:
		symType, sec = elf32.SttFunc, elf32.SecText
	case SectionData:
		symType, sec = elf32.SttObject, elf32.SecData
	default:
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "cannot declare label %q outside a section", ident)
		return
	}

	if idx := s.findSymbolIndex(ident); idx >= 0 {
		s.Symbols[idx].Value = s.CurrentAddress
		s.Symbols[idx].Type = symType
		s.Symbols[idx].Section = sec
		s.Symbols[idx].Visibility = elf32.Local
	} else {
		s.Symbols = append(s.Symbols, elf32.Symbol{
			Identifier: ident,
			Value:      s.CurrentAddress,
			Size:       4,
			Visibility: elf32.Local,
			Type:       symType,
			Section:    sec,
		})
	}

	s.MostRecentLabel = ident
	log.WithFields(log.Fields{"label": ident, "address": s.CurrentAddress}).Debug("label defined")
	s.resolveBackpatches(ident)
}

func (s *State) findSymbolIndex(ident string) int {
	for i, sym := range s.Symbols {
		if sym.Identifier == ident {
			return i
		}
	}
	return -1
}

// expandLine substitutes every .eqv-registered token, matching
// name-as's Assembler::expand_line.
func (s *State) expandLine(line string) string {
	if len(s.Equivalences) == 0 {
		return line
	}
	fields := splitFields(line)
	for i, f := range fields {
		if exp, ok := s.Equivalences[f]; ok {
			fields[i] = exp
		}
	}
	return joinFields(fields)
}

func splitFields(line string) []string {
	var fields []string
	start := -1
	for i := 0; i <= len(line); i++ {
		if i < len(line) && line[i] != ' ' && line[i] != '\t' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			fields = append(fields, line[start:i])
			start = -1
		}
	}
	return fields
}

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += " "
		}
		out += f
	}
	return out
}
