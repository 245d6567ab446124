// Package elf32 implements the big-endian ELF32/MIPS object and
// executable file format this toolchain uses to move programs between
// the assembler, the linker, and the interpreter: file, program, and
// section headers, the symbol/string tables, relocation entries, and
// the .line debug-info section.
package elf32

import (
	"encoding/binary"
	"fmt"

	"github.com/xyproto/name32/internal/diag"
	"github.com/xyproto/name32/internal/mem"
)

// Fixed ELF identification and header field values. This toolchain
// only ever produces one flavor of ELF32/MIPS, so these are constants
// rather than configurable fields.
const (
	EIClassELF32    = 1
	EIDataBigEndian = 2
	EIVersionFirst  = 1
	EIOSABISysV     = 0
	EIABIVersion    = 0
	EIdentSize      = 16

	ETRel  = 1
	ETExec = 2

	EMachineMIPS = 8

	EFMIPSNoReorder = 0x00000001
	EFMIPSABI2      = 0x00000020
	EFMIPSArch      = 0x30000000
	FlagsDefault    = EFMIPSArch | EFMIPSABI2 | EFMIPSNoReorder

	EVersionDefault = 1

	EHSize      = 52
	PHOff       = 52
	PHEntSize   = 32
	PHNum       = 2
	SHEntSize   = 40

	MIPSAlignment = 0x1000
	AddrAlignment = 0x4

	PTLoad = 1

	PFExec  = 0x1
	PFWrite = 0x2
	PFRead  = 0x4

	SHTNull    = 0
	SHTProgbits = 1
	SHTSymtab  = 2
	SHTStrtab  = 3
	SHTRel     = 9

	SHFWrite     = 0x1
	SHFAlloc     = 0x2
	SHFExecInstr = 0x4
	SHFStrings   = 0x20

	SymtabEntrySize = 16
	RelEntrySize    = 8

	SttNoType = 0
	SttObject = 1
	SttFunc   = 2

	StbLocal  = 0
	StbGlobal = 1
	StbWeak   = 2
)

var magic = [4]byte{0x7F, 'E', 'L', 'F'}

// identDefault is the full 16-byte e_ident field; every file this
// toolchain emits carries exactly this value.
var identDefault = [EIdentSize]byte{
	magic[0], magic[1], magic[2], magic[3],
	EIClassELF32, EIDataBigEndian, EIVersionFirst, EIOSABISysV, EIABIVersion,
	0, 0, 0, 0, 0, 0, 0,
}

// SectionNamesRel/SectionNamesExec give the fixed section ordering for
// each file kind (null section first, by ELF convention).
var (
	SectionNamesRel  = []string{"", ".data", ".text", ".rel", ".symtab", ".strtab", ".line", ".shstrtab"}
	SectionNamesExec = []string{"", ".data", ".text", ".symtab", ".strtab", ".line", ".shstrtab"}
)

// Kind distinguishes a relocatable object (assembler output) from a
// linked executable, and carries the executable's entry point.
type Kind struct {
	Executable bool
	Entry      uint32
}

// Header is the 52-byte ELF32 file header.
type Header struct {
	Ident     [EIdentSize]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

func (h *Header) marshal() []byte {
	b := make([]byte, 0, EHSize)
	b = append(b, h.Ident[:]...)
	b = binary.BigEndian.AppendUint16(b, h.Type)
	b = binary.BigEndian.AppendUint16(b, h.Machine)
	b = binary.BigEndian.AppendUint32(b, h.Version)
	b = binary.BigEndian.AppendUint32(b, h.Entry)
	b = binary.BigEndian.AppendUint32(b, h.Phoff)
	b = binary.BigEndian.AppendUint32(b, h.Shoff)
	b = binary.BigEndian.AppendUint32(b, h.Flags)
	b = binary.BigEndian.AppendUint16(b, h.Ehsize)
	b = binary.BigEndian.AppendUint16(b, h.Phentsize)
	b = binary.BigEndian.AppendUint16(b, h.Phnum)
	b = binary.BigEndian.AppendUint16(b, h.Shentsize)
	b = binary.BigEndian.AppendUint16(b, h.Shnum)
	b = binary.BigEndian.AppendUint16(b, h.Shstrndx)
	return b
}

func parseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < EHSize {
		return h, fmt.Errorf("elf32: header truncated: got %d bytes, want %d", len(b), EHSize)
	}
	copy(h.Ident[:], b[0:16])
	if h.Ident != identDefault {
		return h, fmt.Errorf("elf32: e_ident does not match the expected MIPS32 big-endian identification")
	}
	h.Type = binary.BigEndian.Uint16(b[16:18])
	h.Machine = binary.BigEndian.Uint16(b[18:20])
	if h.Machine != EMachineMIPS {
		return h, fmt.Errorf("elf32: unexpected e_machine %d, want %d", h.Machine, EMachineMIPS)
	}
	h.Version = binary.BigEndian.Uint32(b[20:24])
	h.Entry = binary.BigEndian.Uint32(b[24:28])
	h.Phoff = binary.BigEndian.Uint32(b[28:32])
	if h.Phoff != PHOff {
		return h, fmt.Errorf("elf32: unexpected e_phoff %d, want %d", h.Phoff, PHOff)
	}
	h.Shoff = binary.BigEndian.Uint32(b[32:36])
	h.Flags = binary.BigEndian.Uint32(b[36:40])
	h.Ehsize = binary.BigEndian.Uint16(b[40:42])
	if h.Ehsize != EHSize {
		return h, fmt.Errorf("elf32: unexpected e_ehsize %d, want %d", h.Ehsize, EHSize)
	}
	h.Phentsize = binary.BigEndian.Uint16(b[42:44])
	if h.Phentsize != PHEntSize {
		return h, fmt.Errorf("elf32: unexpected e_phentsize %d, want %d", h.Phentsize, PHEntSize)
	}
	h.Phnum = binary.BigEndian.Uint16(b[44:46])
	h.Shentsize = binary.BigEndian.Uint16(b[46:48])
	if h.Shentsize != SHEntSize {
		return h, fmt.Errorf("elf32: unexpected e_shentsize %d, want %d", h.Shentsize, SHEntSize)
	}
	h.Shnum = binary.BigEndian.Uint16(b[48:50])
	h.Shstrndx = binary.BigEndian.Uint16(b[50:52])
	return h, nil
}

// ProgramHeader describes one loadable segment.
type ProgramHeader struct {
	Type   uint32
	Offset uint32
	Vaddr  uint32
	Paddr  uint32
	Filesz uint32
	Memsz  uint32
	Flags  uint32
	Align  uint32
}

func (p *ProgramHeader) marshal() []byte {
	b := make([]byte, 0, PHEntSize)
	b = binary.BigEndian.AppendUint32(b, p.Type)
	b = binary.BigEndian.AppendUint32(b, p.Offset)
	b = binary.BigEndian.AppendUint32(b, p.Vaddr)
	b = binary.BigEndian.AppendUint32(b, p.Paddr)
	b = binary.BigEndian.AppendUint32(b, p.Filesz)
	b = binary.BigEndian.AppendUint32(b, p.Memsz)
	b = binary.BigEndian.AppendUint32(b, p.Flags)
	b = binary.BigEndian.AppendUint32(b, p.Align)
	return b
}

func parseProgramHeaders(b []byte) []ProgramHeader {
	out := make([]ProgramHeader, 0, len(b)/PHEntSize)
	for off := 0; off+PHEntSize <= len(b); off += PHEntSize {
		e := b[off : off+PHEntSize]
		out = append(out, ProgramHeader{
			Type:   binary.BigEndian.Uint32(e[0:4]),
			Offset: binary.BigEndian.Uint32(e[4:8]),
			Vaddr:  binary.BigEndian.Uint32(e[8:12]),
			Paddr:  binary.BigEndian.Uint32(e[12:16]),
			Filesz: binary.BigEndian.Uint32(e[16:20]),
			Memsz:  binary.BigEndian.Uint32(e[20:24]),
			Flags:  binary.BigEndian.Uint32(e[24:28]),
			Align:  binary.BigEndian.Uint32(e[28:32]),
		})
	}
	return out
}

// SectionHeader describes one section.
type SectionHeader struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

func (s *SectionHeader) marshal() []byte {
	b := make([]byte, 0, SHEntSize)
	b = binary.BigEndian.AppendUint32(b, s.Name)
	b = binary.BigEndian.AppendUint32(b, s.Type)
	b = binary.BigEndian.AppendUint32(b, s.Flags)
	b = binary.BigEndian.AppendUint32(b, s.Addr)
	b = binary.BigEndian.AppendUint32(b, s.Offset)
	b = binary.BigEndian.AppendUint32(b, s.Size)
	b = binary.BigEndian.AppendUint32(b, s.Link)
	b = binary.BigEndian.AppendUint32(b, s.Info)
	b = binary.BigEndian.AppendUint32(b, s.Addralign)
	b = binary.BigEndian.AppendUint32(b, s.Entsize)
	return b
}

func parseSectionHeaders(b []byte) []SectionHeader {
	out := make([]SectionHeader, 0, len(b)/SHEntSize)
	for off := 0; off+SHEntSize <= len(b); off += SHEntSize {
		e := b[off : off+SHEntSize]
		out = append(out, SectionHeader{
			Name:      binary.BigEndian.Uint32(e[0:4]),
			Type:      binary.BigEndian.Uint32(e[4:8]),
			Flags:     binary.BigEndian.Uint32(e[8:12]),
			Addr:      binary.BigEndian.Uint32(e[12:16]),
			Offset:    binary.BigEndian.Uint32(e[16:20]),
			Size:      binary.BigEndian.Uint32(e[20:24]),
			Link:      binary.BigEndian.Uint32(e[24:28]),
			Info:      binary.BigEndian.Uint32(e[28:32]),
			Addralign: binary.BigEndian.Uint32(e[32:36]),
			Entsize:   binary.BigEndian.Uint32(e[36:40]),
		})
	}
	return out
}

// RelocKind enumerates the relocation kinds a RelocationEntry carries.
// This mirrors instr.RelocKind's values exactly (both are wire-format
// constants from the same source), kept as its own type here so
// package elf32 has no dependency on package instr.
type RelocKind uint8

const (
	RelNone RelocKind = iota
	RelR16
	RelR32
	RelRel32
	RelR26
	RelHi16
	RelLo16
	RelGpRel16
	RelLiteral
	RelGot16
	RelPc16
	RelCall16
	RelGpRel32
)

// RelocationEntry is one .rel section entry: 4 bytes r_offset, then a
// packed word of (sym_index<<8 | kind).
type RelocationEntry struct {
	Offset uint32
	Sym    uint32
	Kind   RelocKind
}

func (r RelocationEntry) marshal() []byte {
	b := make([]byte, 0, RelEntrySize)
	b = binary.BigEndian.AppendUint32(b, r.Offset)
	b = binary.BigEndian.AppendUint32(b, (r.Sym<<8)|uint32(r.Kind))
	return b
}

// MarshalRelocations serializes a .rel section body.
func MarshalRelocations(entries []RelocationEntry) []byte {
	b := make([]byte, 0, len(entries)*RelEntrySize)
	for _, e := range entries {
		b = append(b, e.marshal()...)
	}
	return b
}

// ParseRelocations parses a .rel section body. A body shorter than one
// entry (e.g. an object with no relocations) yields an empty slice.
func ParseRelocations(b []byte) []RelocationEntry {
	if len(b) < RelEntrySize {
		return nil
	}
	out := make([]RelocationEntry, 0, len(b)/RelEntrySize)
	for off := 0; off+RelEntrySize <= len(b); off += RelEntrySize {
		word := binary.BigEndian.Uint32(b[off+4 : off+8])
		out = append(out, RelocationEntry{
			Offset: binary.BigEndian.Uint32(b[off : off+4]),
			Sym:    word >> 8,
			Kind:   RelocKind(word & 0xFF),
		})
	}
	return out
}

// Sym is one .symtab entry. Field order in the wire format is
// name, value, size, info, other, shndx -- matching this toolchain's
// assembler/linker, not the generic ELF32 spec's struct layout.
type Sym struct {
	Name  uint32
	Value uint32
	Size  uint32
	Info  uint8
	Other uint8
	Shndx uint16
}

func (s Sym) marshal() []byte {
	b := make([]byte, 0, SymtabEntrySize)
	b = binary.BigEndian.AppendUint32(b, s.Name)
	b = binary.BigEndian.AppendUint32(b, s.Value)
	b = binary.BigEndian.AppendUint32(b, s.Size)
	b = append(b, s.Info, s.Other)
	b = binary.BigEndian.AppendUint16(b, s.Shndx)
	return b
}

// Marshal serializes a Sym to its 16-byte wire form. Exported for
// callers (the linker's symbol-table consolidation) that build Sym
// values directly rather than through Symbol/toElfSym.
func (s Sym) Marshal() []byte { return s.marshal() }

// StInfo packs a binding and type nibble pair into an st_info byte,
// exported for the same reason as Marshal.
func StInfo(bind, typ uint8) uint8 { return stInfo(bind, typ) }

// Bind returns the symbol's binding (STB_LOCAL/GLOBAL/WEAK).
func (s Sym) Bind() uint8 { return s.Info >> 4 }

// Type returns the symbol's type (STT_OBJECT/STT_FUNC/...).
func (s Sym) Type() uint8 { return s.Info & 0xf }

// LinkedName reads the symbol's name out of the paired .strtab body.
func (s Sym) LinkedName(strtab []byte) string {
	if int(s.Name) >= len(strtab) {
		return ""
	}
	end := s.Name
	for end < uint32(len(strtab)) && strtab[end] != 0 {
		end++
	}
	return string(strtab[s.Name:end])
}

func stInfo(bind, typ uint8) uint8 { return (bind << 4) | (typ & 0xf) }

// ParseSymbols parses a .symtab section body.
func ParseSymbols(b []byte) []Sym {
	if len(b) < SymtabEntrySize {
		return nil
	}
	out := make([]Sym, 0, len(b)/SymtabEntrySize)
	for off := 0; off+SymtabEntrySize <= len(b); off += SymtabEntrySize {
		e := b[off : off+SymtabEntrySize]
		out = append(out, Sym{
			Name:  binary.BigEndian.Uint32(e[0:4]),
			Value: binary.BigEndian.Uint32(e[4:8]),
			Size:  binary.BigEndian.Uint32(e[8:12]),
			Info:  e[12],
			Other: e[13],
			Shndx: binary.BigEndian.Uint16(e[14:16]),
		})
	}
	return out
}

// Visibility is a symbol's linkage visibility.
type Visibility int

const (
	Local Visibility = iota
	Global
	Weak
)

// SymbolSection names which segment a symbol's value is relative to.
type SymbolSection int

const (
	SecUndef SymbolSection = iota
	SecText
	SecData
)

// Symbol is the assembler/linker's in-memory symbol-table entry, the
// input to building a .symtab/.strtab section pair.
type Symbol struct {
	Identifier string
	Value      uint32
	Size       uint32
	Visibility Visibility
	Type       uint8 // SttObject or SttFunc
	Section    SymbolSection
}

func (s Symbol) toElfSym(strtabIndex uint32) Sym {
	var bind uint8
	var other uint8
	switch s.Visibility {
	case Local:
		bind, other = StbLocal, 2
	case Global:
		bind, other = StbGlobal, 0
	case Weak:
		bind, other = StbWeak, 0
	}
	var shndx uint16
	switch s.Section {
	case SecText:
		shndx = 1
	case SecData:
		shndx = 2
	default:
		shndx = 0
	}
	return Sym{
		Name:  strtabIndex,
		Value: s.Value,
		Size:  s.Size,
		Info:  stInfo(bind, s.Type),
		Other: other,
		Shndx: shndx,
	}
}

// BuildSymtab serializes a symbol table into its .symtab and .strtab
// section bodies, with the mandatory null first entry in each.
func BuildSymtab(symbols []Symbol) (symtab, strtab []byte) {
	symtab = append(symtab, Sym{}.marshal()...)
	strtab = append(strtab, 0)

	strtabIndex := uint32(1)
	for _, sym := range symbols {
		symtab = append(symtab, sym.toElfSym(strtabIndex).marshal()...)
		strtab = append(strtab, sym.Identifier...)
		strtab = append(strtab, 0)
		strtabIndex += uint32(len(sym.Identifier)) + 1
	}
	return symtab, strtab
}

// LineInfo is one .line section entry: a source line's text paired
// with the instruction address range it assembled to.
type LineInfo struct {
	Content      string
	LineNumber   uint32
	StartAddress uint32
	EndAddress   uint32
}

// MarshalLineInfo serializes the .line section body: for each entry,
// a NUL-terminated source line followed by three big-endian u32s.
func MarshalLineInfo(lines []LineInfo) []byte {
	var b []byte
	for _, l := range lines {
		b = append(b, l.Content...)
		b = append(b, 0)
		b = binary.BigEndian.AppendUint32(b, l.LineNumber)
		b = binary.BigEndian.AppendUint32(b, l.StartAddress)
		b = binary.BigEndian.AppendUint32(b, l.EndAddress)
	}
	return b
}

// ParseLineInfo deserializes a .line section body.
func ParseLineInfo(b []byte) []LineInfo {
	var out []LineInfo
	for len(b) > 0 {
		nul := -1
		for i, c := range b {
			if c == 0 {
				nul = i
				break
			}
		}
		if nul < 0 {
			break
		}
		content := string(b[:nul])
		rest := b[nul+1:]
		if len(rest) < 12 {
			break
		}
		out = append(out, LineInfo{
			Content:      content,
			LineNumber:   binary.BigEndian.Uint32(rest[0:4]),
			StartAddress: binary.BigEndian.Uint32(rest[4:8]),
			EndAddress:   binary.BigEndian.Uint32(rest[8:12]),
		})
		b = rest[12:]
	}
	return out
}

// Sections indexes a relocatable object's (or executable's) section
// bodies by name, in the fixed order this toolchain always emits
// them in.
type Sections struct {
	Data    []byte
	Text    []byte
	Rel     []byte // absent (nil) in Kind.Executable files
	Symtab  []byte
	Strtab  []byte
	Line    []byte
}

// File is a fully decoded or about-to-be-encoded ELF32/MIPS file.
type File struct {
	Header         Header
	ProgramHeaders []ProgramHeader
	SectionHeaders []SectionHeader
	Sections       [][]byte // includes the trailing .shstrtab body
}

func shstrtabBody(names []string) []byte {
	var b []byte
	for _, n := range names {
		b = append(b, n...)
		b = append(b, 0)
	}
	return b
}

// Build assembles a File from the toolchain's fixed section set,
// computing every offset and the two loadable program-header entries
// ahead of writing the section header table.
func Build(kind Kind, s Sections) *File {
	var names []string
	if kind.Executable {
		names = SectionNamesExec
	} else {
		names = SectionNamesRel
	}
	shstrtab := shstrtabBody(names)

	dataOff := uint32(PHOff + PHNum*PHEntSize)
	textOff := dataOff + uint32(len(s.Data))
	relOff := textOff + uint32(len(s.Text))

	var symtabOff uint32
	if kind.Executable {
		symtabOff = textOff + uint32(len(s.Text))
	} else {
		symtabOff = relOff + uint32(len(s.Rel))
	}
	strtabOff := symtabOff + uint32(len(s.Symtab))
	lineOff := strtabOff + uint32(len(s.Strtab))
	shstrtabOff := lineOff + uint32(len(s.Line))
	shoff := shstrtabOff + uint32(len(shstrtab))

	h := Header{
		Ident:     identDefault,
		Machine:   EMachineMIPS,
		Version:   EVersionDefault,
		Phoff:     PHOff,
		Shoff:     shoff,
		Flags:     FlagsDefault,
		Ehsize:    EHSize,
		Phentsize: PHEntSize,
		Phnum:     PHNum,
		Shentsize: SHEntSize,
	}
	if kind.Executable {
		h.Type = ETExec
		h.Entry = kind.Entry
		h.Shnum = uint16(len(SectionNamesExec))
	} else {
		h.Type = ETRel
		h.Entry = 0
		h.Shnum = uint16(len(SectionNamesRel))
	}
	h.Shstrndx = h.Shnum - 1

	phs := []ProgramHeader{
		{
			Type: PTLoad, Offset: dataOff, Vaddr: mem.DataStart, Paddr: mem.DataStart,
			Filesz: uint32(len(s.Data)), Memsz: uint32(len(s.Data)),
			Flags: PFRead | PFWrite, Align: MIPSAlignment,
		},
		{
			Type: PTLoad, Offset: textOff, Vaddr: mem.TextStart, Paddr: mem.TextStart,
			Filesz: uint32(len(s.Text)), Memsz: uint32(len(s.Text)),
			Flags: PFRead | PFExec, Align: MIPSAlignment,
		},
	}

	var shs []SectionHeader
	nameOff := uint32(0)
	nextName := func(i int) uint32 {
		n := nameOff
		nameOff += uint32(len(names[i])) + 1
		return n
	}

	shs = append(shs, SectionHeader{}) // SHT_NULL reserved entry
	nextName(0)

	shs = append(shs, SectionHeader{
		Name: nextName(1), Type: SHTProgbits, Flags: SHFAlloc | SHFWrite,
		Addr: mem.DataStart, Offset: dataOff, Size: uint32(len(s.Data)), Addralign: AddrAlignment,
	})

	shs = append(shs, SectionHeader{
		Name: nextName(2), Type: SHTProgbits, Flags: SHFAlloc | SHFExecInstr,
		Addr: mem.TextStart, Offset: textOff, Size: uint32(len(s.Text)), Addralign: AddrAlignment,
	})

	symtabLink := uint32(4)
	if kind.Executable {
		if len(s.Rel) != 0 {
			panic("elf32: executable Sections must not carry a .rel body")
		}
		symtabLink = 4
	} else {
		shs = append(shs, SectionHeader{
			Name: nextName(3), Type: SHTRel, Offset: relOff, Size: uint32(len(s.Rel)),
			Link: 4, Info: 2, Entsize: RelEntrySize,
		})
		symtabLink = 5
	}

	symtabNameIdx, strtabNameIdx, lineNameIdx := 3, 4, 5
	if !kind.Executable {
		symtabNameIdx, strtabNameIdx, lineNameIdx = 4, 5, 6
	}

	shs = append(shs, SectionHeader{
		Name: nextName(symtabNameIdx), Type: SHTSymtab, Offset: symtabOff, Size: uint32(len(s.Symtab)),
		Link: symtabLink, Entsize: SymtabEntrySize,
	})
	shs = append(shs, SectionHeader{
		Name: nextName(strtabNameIdx), Type: SHTStrtab, Flags: SHFStrings, Offset: strtabOff, Size: uint32(len(s.Strtab)),
	})
	shs = append(shs, SectionHeader{
		Name: nextName(lineNameIdx), Type: SHTProgbits, Offset: lineOff, Size: uint32(len(s.Line)),
	})
	shs = append(shs, SectionHeader{
		Name: nameOff, Type: SHTStrtab, Flags: SHFStrings, Offset: shstrtabOff, Size: uint32(len(shstrtab)),
	})

	sections := [][]byte{s.Data, s.Text}
	if !kind.Executable {
		sections = append(sections, s.Rel)
	}
	sections = append(sections, s.Symtab, s.Strtab, s.Line, shstrtab)

	return &File{Header: h, ProgramHeaders: phs, SectionHeaders: shs, Sections: sections}
}

// Marshal serializes a File in on-wire order: header, program
// headers, section bodies (in the order Build laid them out), then
// the section header table.
func (f *File) Marshal() []byte {
	var b []byte
	b = append(b, f.Header.marshal()...)
	for _, ph := range f.ProgramHeaders {
		b = append(b, ph.marshal()...)
	}
	for _, s := range f.Sections {
		b = append(b, s...)
	}
	for _, sh := range f.SectionHeaders {
		b = append(b, sh.marshal()...)
	}
	return b
}

// Parse decodes a File from its on-wire bytes.
func Parse(b []byte) (*File, error) {
	h, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	phEnd := int(EHSize) + int(h.Phnum)*PHEntSize
	if len(b) < phEnd {
		return nil, fmt.Errorf("elf32: truncated program header table")
	}
	phs := parseProgramHeaders(b[EHSize:phEnd])

	if int(h.Shoff) > len(b) {
		return nil, fmt.Errorf("elf32: section header offset past end of file")
	}
	shs := parseSectionHeaders(b[h.Shoff:])

	sections := make([][]byte, 0, len(shs))
	for _, sh := range shs {
		if sh.Type == SHTNull {
			continue
		}
		end := sh.Offset + sh.Size
		if int(end) > len(b) {
			return nil, fmt.Errorf("elf32: section body out of bounds (offset %d size %d)", sh.Offset, sh.Size)
		}
		sections = append(sections, b[sh.Offset:end])
	}

	nonNull := make([]SectionHeader, 0, len(shs))
	for _, sh := range shs {
		if sh.Type != SHTNull {
			nonNull = append(nonNull, sh)
		}
	}

	return &File{Header: h, ProgramHeaders: phs, SectionHeaders: nonNull, Sections: sections}, nil
}

// SectionName resolves a section header's name against the parsed
// file's .shstrtab (always the final section body).
func (f *File) SectionName(sh SectionHeader) string {
	if len(f.Sections) == 0 {
		return ""
	}
	shstrtab := f.Sections[len(f.Sections)-1]
	if int(sh.Name) >= len(shstrtab) {
		return ""
	}
	end := sh.Name
	for int(end) < len(shstrtab) && shstrtab[end] != 0 {
		end++
	}
	return string(shstrtab[sh.Name:end])
}

// FindSection returns the body of the named section, if present.
// Sections holds no body for the SHT_NULL entry, so null headers are
// skipped when pairing headers with bodies.
func (f *File) FindSection(name string) ([]byte, bool) {
	idx := 0
	for _, sh := range f.SectionHeaders {
		if sh.Type == SHTNull {
			continue
		}
		if f.SectionName(sh) == name && idx < len(f.Sections) {
			return f.Sections[idx], true
		}
		idx++
	}
	return nil, false
}

// Validate runs the linker's conformity gate over a parsed object: the
// structural checks every input module must pass before linking
// proceeds, beyond what Parse already enforces (magic, machine,
// fixed-size fields).
func Validate(f *File, file string) diag.Diagnostics {
	var d diag.Diagnostics
	if f.Header.Type != ETRel {
		d.Errorf(diag.StageLink, 0, "%s: expected a relocatable (ET_REL) object, got e_type=%d", file, f.Header.Type)
	}
	if f.Header.Phnum != PHNum {
		d.Errorf(diag.StageLink, 0, "%s: expected %d program header entries, got %d", file, PHNum, f.Header.Phnum)
	}
	required := []string{".data", ".text", ".rel", ".symtab", ".strtab"}
	for _, name := range required {
		if _, ok := f.FindSection(name); !ok {
			d.Errorf(diag.StageLink, 0, "%s: missing required section %q", file, name)
		}
	}
	if text, ok := f.FindSection(".text"); ok && len(text)%4 != 0 {
		d.Errorf(diag.StageLink, 0, "%s: .text section size %d is not word-aligned", file, len(text))
	}
	return d
}
