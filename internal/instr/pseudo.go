package instr

import "fmt"

// RelocKind enumerates the relocation kinds a RelocationEntry's kind
// field can carry, per spec §3. NAME (this toolchain) only ever
// generates Hi16 and Lo16 (from `la`); the linker applies R26, Pc16,
// Hi16 and Lo16; the rest are reserved for completeness of the on-wire
// encoding.
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

// PseudoContext is the minimal assembler-state surface a pseudo
// expansion needs: symbol lookup (to decide backpatch vs immediate
// substitution) and relocation emission for multi-instruction
// expansions like la. Defined here (rather than imported from package
// assembler) to avoid an import cycle, since assembler must import
// instr for the real-instruction tables.
type PseudoContext interface {
	// SymbolOffset returns the symbol's value and true if it is
	// already defined at expansion time.
	SymbolOffset(name string) (uint32, bool)
	// TextAddress returns the address the next instruction word will
	// be written to.
	TextAddress() uint32
	// AddRelocation appends a RelocationEntry targeting symName at
	// the given .text offset.
	AddRelocation(offset uint32, symName string, kind RelocKind)
}

// PseudoArg mirrors assembler.Component loosely enough for
// pseudo-expansion purposes: either a register number, an immediate,
// or an identifier/branch-label name. The assembler package converts
// its own Component values to/from PseudoArg at the pseudo-
// expansion call site.
type PseudoArg struct {
	IsRegister bool
	Register   uint32
	IsImm      bool
	Imm        int32
	Name       string // identifier/label, when neither IsRegister nor IsImm
}

// ExpandedInstr is one real instruction produced by a pseudo
// expansion, ready for the assembler's ordinary per-instruction
// pipeline.
type ExpandedInstr struct {
	Info *Info
	Args []PseudoArg
}

// PseudoExpand is a pseudo-instruction's expansion function.
type PseudoExpand func(ctx PseudoContext, args []PseudoArg) ([]ExpandedInstr, error)

// PseudoInfo is one pseudo-instruction table entry.
type PseudoInfo struct {
	Mnemonic string
	Expand   PseudoExpand
}

var pseudoTable map[string]*PseudoInfo

func regArg(n uint32) PseudoArg { return PseudoArg{IsRegister: true, Register: n} }
func immArg(v int32) PseudoArg  { return PseudoArg{IsImm: true, Imm: v} }

// Pseudos lazily builds and returns the pseudo-instruction table:
// li, la, move, bnez -- the minimum set spec §6 names, matching
// original_source/name-as/src/definitions/expandables.rs exactly.
func Pseudos() map[string]*PseudoInfo {
	if pseudoTable == nil {
		pseudoTable = map[string]*PseudoInfo{
			"li":   {Mnemonic: "li", Expand: expandLi},
			"la":   {Mnemonic: "la", Expand: expandLa},
			"move": {Mnemonic: "move", Expand: expandMove},
			"bnez": {Mnemonic: "bnez", Expand: expandBnez},
			// Supplemented beyond the original's pseudo table
			// (SPEC_FULL.md C1): common MIPS assembler convenience
			// forms built from already-registered real instructions,
			// not present in original_source but excluded by no
			// Non-goal.
			"not":  {Mnemonic: "not", Expand: expandNot},
			"neg":  {Mnemonic: "neg", Expand: expandNeg},
			"nop":  {Mnemonic: "nop", Expand: expandNop},
		}
	}
	return pseudoTable
}

// expandLi implements `li $rd, imm` -> `ori $rd, $zero, imm`.
func expandLi(ctx PseudoContext, args []PseudoArg) ([]ExpandedInstr, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("`li` expected 2 arguments, got %d", len(args))
	}
	ori := Table()["ori"]
	return []ExpandedInstr{
		{Info: ori, Args: []PseudoArg{args[0], regArg(0), args[1]}},
	}, nil
}

// expandLa implements `la $rd, label` -> `lui $rd, 0; ori $rd, $rd, 0`
// with Hi16/Lo16 relocations at the two emitted instruction addresses,
// matching name-as/src/definitions/expandables.rs's expand_la.
func expandLa(ctx PseudoContext, args []PseudoArg) ([]ExpandedInstr, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("`la` expected 2 arguments, got %d", len(args))
	}
	rd := args[0]
	label := args[1].Name

	lui := Table()["lui"]
	ori := Table()["ori"]

	hiAddr := ctx.TextAddress()
	loAddr := hiAddr + 4
	ctx.AddRelocation(hiAddr, label, RelHi16)
	ctx.AddRelocation(loAddr, label, RelLo16)

	zero := immArg(0)
	return []ExpandedInstr{
		{Info: lui, Args: []PseudoArg{rd, zero}},
		{Info: ori, Args: []PseudoArg{rd, rd, zero}},
	}, nil
}

// expandMove implements `move $rd, $rs` -> `add $rd, $rs, $zero`.
func expandMove(ctx PseudoContext, args []PseudoArg) ([]ExpandedInstr, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("`move` expected 2 arguments, got %d", len(args))
	}
	add := Table()["add"]
	return []ExpandedInstr{
		{Info: add, Args: []PseudoArg{args[0], args[1], regArg(0)}},
	}, nil
}

// expandBnez implements `bnez $rs, label` -> `bne $rs, $zero, label`.
func expandBnez(ctx PseudoContext, args []PseudoArg) ([]ExpandedInstr, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("`bnez` expected 2 arguments, got %d", len(args))
	}
	bne := Table()["bne"]
	return []ExpandedInstr{
		{Info: bne, Args: []PseudoArg{args[0], regArg(0), args[1]}},
	}, nil
}

// expandNot implements `not $rd, $rs` -> `nor $rd, $rs, $zero`.
func expandNot(ctx PseudoContext, args []PseudoArg) ([]ExpandedInstr, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("`not` expected 2 arguments, got %d", len(args))
	}
	nor := Table()["nor"]
	return []ExpandedInstr{
		{Info: nor, Args: []PseudoArg{args[0], args[1], regArg(0)}},
	}, nil
}

// expandNeg implements `neg $rd, $rs` -> `sub $rd, $zero, $rs`.
func expandNeg(ctx PseudoContext, args []PseudoArg) ([]ExpandedInstr, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("`neg` expected 2 arguments, got %d", len(args))
	}
	sub := Table()["sub"]
	return []ExpandedInstr{
		{Info: sub, Args: []PseudoArg{args[0], regArg(0), args[1]}},
	}, nil
}

// expandNop implements `nop` -> `sll $zero, $zero, 0`, the canonical
// MIPS encoding of a true no-op (word 0x00000000).
func expandNop(ctx PseudoContext, args []PseudoArg) ([]ExpandedInstr, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("`nop` expected 0 arguments, got %d", len(args))
	}
	sll := Table()["sll"]
	return []ExpandedInstr{
		{Info: sll, Args: []PseudoArg{regArg(0), regArg(0), immArg(0)}},
	}, nil
}
