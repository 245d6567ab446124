package assembler

import (
	"strconv"
	"strings"

	"github.com/xyproto/name32/internal/diag"
	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/instr"
)

// addressAlignment is the byte width every MIPS32 instruction word
// occupies; section cursors advance by this amount per instruction.
const addressAlignment = 4

// Assemble runs the two-pass assembler over one source file's text
// and returns the resulting environment. Callers should check
// result.Diags.HasErrors() before treating the output as usable;
// Assemble always returns a non-nil *State even on failure so partial
// diagnostics can still be inspected.
func Assemble(source, currentDir string) *State {
	s := New()
	s.CurrentDir = currentDir

	lines := strings.Split(source, "\n")
	for i, raw := range lines {
		s.LineNumber = i + 1
		s.processLine(raw)
	}

	if len(s.Backpatches) > 0 {
		names := make([]string, 0, len(s.Backpatches))
		seen := make(map[string]bool)
		for _, bp := range s.Backpatches {
			if !seen[bp.Identifier] {
				seen[bp.Identifier] = true
				names = append(names, bp.Identifier)
			}
		}
		s.Diags.Errorf(diag.StageAssemble, 0, "undefined symbols referenced but never declared: %s", strings.Join(names, ", "))
	}

	return s
}

func (s *State) processLine(raw string) {
	expanded := s.expandLine(raw)
	components, err := tokenizeLine(expanded)
	if err != nil {
		s.Diags.Errorf(diag.StageLex, s.LineNumber, "%s", err)
		return
	}
	if len(components) == 0 {
		return
	}

	idx := 0
	for idx < len(components) && components[idx].Kind == CompLabel {
		s.addLabel(components[idx].Text)
		idx++
	}
	if idx >= len(components) {
		return
	}

	startAddr := s.CurrentAddress
	startLen := len(s.Text)
	head := components[idx]
	rest := components[idx+1:]

	switch head.Kind {
	case CompDirective:
		s.handleDirective(head.Text, rest)
	case CompIdentifier:
		s.assembleInstruction(head.Text, rest)
	default:
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "unexpected token %s", head.String())
	}

	if s.CurrentSection == SectionText && len(s.Text) != startLen {
		s.Line = append(s.Line, elf32.LineInfo{
			Content:      strings.TrimSpace(raw),
			LineNumber:   uint32(s.LineNumber),
			StartAddress: startAddr,
			EndAddress:   s.CurrentAddress,
		})
	}
}

// assembleInstruction dispatches a bare identifier as either a real or
// pseudo mnemonic, grounded on assemble_line.rs's lookup order: real
// instructions are tried first, then the pseudo table.
func (s *State) assembleInstruction(mnemonic string, args []Component) {
	if s.CurrentSection != SectionText {
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "instruction %q outside .text", mnemonic)
		return
	}

	if info, ok := instr.Table()[mnemonic]; ok {
		s.emitInstruction(info, args)
		return
	}
	if p, ok := instr.Pseudos()[mnemonic]; ok {
		s.expandPseudo(p, args)
		return
	}
	s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "unknown instruction %q", mnemonic)
}

// emitInstruction assembles one real instruction at the current
// address, appending a resolved word or a pending backpatch.
func (s *State) emitInstruction(info *instr.Info, args []Component) {
	shape, err := selectShape(info, args)
	if err != nil {
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "%s", err)
		return
	}

	addr := s.CurrentAddress
	res, err := assembleAtAddress(s, info, args, shape, addr)
	if err != nil {
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "%s", err)
		return
	}

	s.Text = append(s.Text, 0, 0, 0, 0)
	// res.Word carries the known opcode/register bits even when pending,
	// so the placeholder in .text is never a bare zero word.
	putWordBE(s.Text, addr-s.textBase(), res.Word)
	if !res.Resolved {
		s.addBackpatch(info, args, res.Pending)
	}
	s.CurrentAddress += addressAlignment
}

// expandPseudo converts a pseudo-instruction's arguments through
// instr.PseudoExpand and emits each produced real instruction in turn.
func (s *State) expandPseudo(p *instr.PseudoInfo, args []Component) {
	pargs := make([]instr.PseudoArg, len(args))
	for i, a := range args {
		switch a.Kind {
		case CompRegister:
			n, ok := instr.ParseRegister(a.Text)
			if !ok {
				s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "invalid register %q", a.Text)
				return
			}
			pargs[i] = instr.PseudoArg{IsRegister: true, Register: n}
		case CompImmediate:
			pargs[i] = instr.PseudoArg{IsImm: true, Imm: a.Imm}
		case CompIdentifier:
			pargs[i] = instr.PseudoArg{Name: a.Text}
		default:
			s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "unexpected argument %s to `%s`", a.String(), p.Mnemonic)
			return
		}
	}

	expanded, err := p.Expand(s, pargs)
	if err != nil {
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "%s", err)
		return
	}

	for _, ei := range expanded {
		s.emitInstruction(ei.Info, pseudoArgsToComponents(ei.Args))
	}
}

func pseudoArgsToComponents(args []instr.PseudoArg) []Component {
	out := make([]Component, len(args))
	for i, pa := range args {
		switch {
		case pa.IsRegister:
			out[i] = Component{Kind: CompRegister, Text: strconv.FormatUint(uint64(pa.Register), 10)}
		case pa.IsImm:
			out[i] = Component{Kind: CompImmediate, Imm: pa.Imm}
		default:
			out[i] = Component{Kind: CompIdentifier, Text: pa.Name}
		}
	}
	return out
}
