// Package linker implements the ELF32/MIPS static linker: a conformity
// gate over relocatable inputs, a single-module fast path, and a
// multi-module path that consolidates sections, builds an external
// symbol dictionary, adjusts local symbols into scoped addresses, and
// applies R26/Pc16/Hi16/Lo16 relocations before rewriting the header
// to ET_EXEC.
package linker

import (
	log "github.com/sirupsen/logrus"

	"github.com/xyproto/name32/internal/diag"
	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/mem"
)

// Input is one relocatable module handed to the linker, named for
// diagnostics.
type Input struct {
	Name string
	File *elf32.File
}

// Link runs the full conformity-gate/link pipeline. It never panics on
// malformed user input: every failure is folded into the returned
// Diagnostics, matching §7's "linker never panics on user input"
// policy over §6's older "panic with diagnostic" wording.
func Link(inputs []Input) ([]byte, diag.Diagnostics) {
	var diags diag.Diagnostics

	for _, in := range inputs {
		d := elf32.Validate(in.File, in.Name)
		for _, item := range d.Items() {
			diags.Add(item)
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}

	if len(inputs) == 1 {
		out, d := linkSingle(inputs[0].File)
		for _, item := range d.Items() {
			diags.Add(item)
		}
		return out, diags
	}

	out, d := linkMultiple(inputs)
	for _, item := range d.Items() {
		diags.Add(item)
	}
	return out, diags
}

// linkSingle is the fast path for exactly one input module: the
// relocatable object already has absolute addresses relative to the
// toolchain's fixed text/data bases, so the only work is resolving
// main's entry address and rewriting e_type/e_entry.
func linkSingle(f *elf32.File) ([]byte, diag.Diagnostics) {
	var diags diag.Diagnostics

	data, _ := f.FindSection(".data")
	text, _ := f.FindSection(".text")
	symtab, _ := f.FindSection(".symtab")
	strtab, _ := f.FindSection(".strtab")
	line, _ := f.FindSection(".line")

	entry := resolveEntry(elf32.ParseSymbols(symtab), strtab)
	log.WithField("entry", entry).Debug("single-module link: entry resolved")

	out := elf32.Build(elf32.Kind{Executable: true, Entry: entry}, elf32.Sections{
		Data:   data,
		Text:   text,
		Symtab: symtab,
		Strtab: strtab,
		Line:   line,
	})
	return out.Marshal(), diags
}

// resolveEntry finds the first symbol named "main" in symtab, of any
// binding (the assembler marks labels local), falling back
// to the fixed text segment start when absent, per §4.6's header
// rewrite rule.
func resolveEntry(syms []elf32.Sym, strtab []byte) uint32 {
	for _, sym := range syms {
		if sym.LinkedName(strtab) == "main" {
			return sym.Value
		}
	}
	return mem.TextStart
}

func roundUp4(n uint32) uint32 {
	if rem := n % 4; rem != 0 {
		return n + (4 - rem)
	}
	return n
}
