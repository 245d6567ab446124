package assembler

import (
	log "github.com/sirupsen/logrus"

	"github.com/xyproto/name32/internal/diag"
	"github.com/xyproto/name32/internal/instr"
	"github.com/xyproto/name32/internal/mem"
)

// addBackpatch enqueues a pending instruction: its partial word (opcode
// and any already-known register bits, offset/target field zeroed) is
// already written to .text by the caller, to be re-assembled and
// patched in place once identifier is defined by a later label, per
// spec §4.5 scenario 4. Only same-file branch/jump targets use this
// path; la's Hi16/Lo16 always go through a relocation instead (see
// pseudo.expandLa).
func (s *State) addBackpatch(info *instr.Info, args []Component, identifier string) {
	s.Backpatches = append(s.Backpatches, Backpatch{
		Info:       info,
		Args:       args,
		Identifier: identifier,
		TextOffset: s.CurrentAddress - s.textBase(),
		LineNumber: s.LineNumber,
	})
	log.WithFields(log.Fields{"mnemonic": info.Mnemonic, "target": identifier, "line": s.LineNumber}).
		Debug("forward reference queued for backpatching")
}

// textBase returns the address section_dot_text's byte 0 corresponds
// to, so TextOffset can be used as a slice index.
func (s *State) textBase() uint32 {
	return mem.TextStart
}

// resolveBackpatches re-assembles every pending instruction that
// references ident now that its address is known, patching the
// previously-placeholder word in section .text in place.
func (s *State) resolveBackpatches(ident string) {
	remaining := s.Backpatches[:0]
	for _, bp := range s.Backpatches {
		if bp.Identifier != ident {
			remaining = append(remaining, bp)
			continue
		}

		shape, err := selectShape(bp.Info, bp.Args)
		if err != nil {
			s.Diags.Errorf(diag.StageAssemble, bp.LineNumber, "%s", err)
			continue
		}
		addr := s.textBase() + bp.TextOffset
		res, err := assembleAtAddress(s, bp.Info, bp.Args, shape, addr)
		if err != nil {
			s.Diags.Errorf(diag.StageAssemble, bp.LineNumber, "%s", err)
			continue
		}
		if !res.Resolved {
			// Still unresolved (shouldn't happen: ident was just
			// defined), keep it pending rather than silently drop it.
			remaining = append(remaining, bp)
			continue
		}
		putWordBE(s.Text, bp.TextOffset, res.Word)
		log.WithFields(log.Fields{"mnemonic": bp.Info.Mnemonic, "target": ident, "word": res.Word}).
			Debug("backpatch resolved")
	}
	s.Backpatches = remaining
}
