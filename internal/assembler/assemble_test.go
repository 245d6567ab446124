package assembler

import (
	"encoding/binary"
	"testing"

	"github.com/xyproto/name32/internal/elf32"
)

func firstTextWord(t *testing.T, s *State) uint32 {
	t.Helper()
	if len(s.Text) < 4 {
		t.Fatalf("expected at least one assembled word, got %d bytes", len(s.Text))
	}
	return binary.BigEndian.Uint32(s.Text[:4])
}

func TestAssembleAddEncodesExpectedWord(t *testing.T) {
	s := Assemble(".text\nadd $t0, $t1, $t2\n", "")
	if s.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", s.Diags)
	}
	if got := firstTextWord(t, s); got != 0x012A4020 {
		t.Fatalf("encoded word = %#08x, want 0x012a4020", got)
	}
}

func TestAssembleOriEncodesExpectedWord(t *testing.T) {
	s := Assemble(".text\nori $t0, $t2, 0xBEEF\n", "")
	if s.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", s.Diags)
	}
	if got := firstTextWord(t, s); got != 0x3548BEEF {
		t.Fatalf("encoded word = %#08x, want 0x3548beef", got)
	}
}

func TestAssembleForwardJalBackpatchesOnLabelDefinition(t *testing.T) {
	src := ".text\njal test\nnop\ntest:\nnop\n"
	s := Assemble(src, "")
	if s.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", s.Diags)
	}
	if len(s.Backpatches) != 0 {
		t.Fatalf("expected the forward reference to `test` to resolve, got %d unresolved backpatches", len(s.Backpatches))
	}
	got := binary.BigEndian.Uint32(s.Text[:4])
	if got>>26 != 0x03 {
		t.Fatalf("first word opcode = %#x, want jal's opcode 0x03", got>>26)
	}
}

func TestAssembleForwardJalLeavesOpcodePlaceholderBeforeResolution(t *testing.T) {
	// Per spec scenario 4: the placeholder word for an unresolved `jal`
	// carries the real opcode bits with only the target field zeroed,
	// not a bare 0x00000000.
	s := Assemble(".text\njal test\n", "")
	if len(s.Backpatches) != 1 {
		t.Fatalf("expected 1 pending backpatch, got %d", len(s.Backpatches))
	}
	if got := firstTextWord(t, s); got != 0x0C000000 {
		t.Fatalf("placeholder word = %#08x, want 0x0c000000", got)
	}
}

func TestAssembleUndefinedSymbolReportsDiagnostic(t *testing.T) {
	s := Assemble(".text\njal nowhere\n", "")
	if !s.Diags.HasErrors() {
		t.Fatal("expected an undefined-symbol diagnostic")
	}
}

func TestAssembleInstructionOutsideSectionIsError(t *testing.T) {
	s := Assemble("add $t0, $t1, $t2\n", "")
	if !s.Diags.HasErrors() {
		t.Fatal("expected an error for an instruction outside any section")
	}
}

func TestAssembleLiExpandsToOri(t *testing.T) {
	s := Assemble(".text\nli $t0, 5\n", "")
	if s.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", s.Diags)
	}
	if len(s.Text) != 4 {
		t.Fatalf("expected a single emitted instruction, got %d bytes", len(s.Text))
	}
}

func TestAssembleEqvSubstitutesTokens(t *testing.T) {
	s := Assemble(".eqv ANSWER 42\n.text\nli $t0, ANSWER\n", "")
	if s.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", s.Diags)
	}
	got := firstTextWord(t, s)
	if got&0xffff != 42 {
		t.Fatalf("immediate field = %d, want 42", got&0xffff)
	}
}

func TestAssembleRecordsLineInfoPerInstruction(t *testing.T) {
	s := Assemble(".text\nadd $t0, $t1, $t2\nnop\n", "")
	if s.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", s.Diags)
	}
	if len(s.Line) != 2 {
		t.Fatalf("expected 2 line records, got %d", len(s.Line))
	}
	if s.Line[0].LineNumber != 2 {
		t.Fatalf("first line record's LineNumber = %d, want 2", s.Line[0].LineNumber)
	}
}

func TestEmitProducesParsableObject(t *testing.T) {
	s := Assemble(".text\nadd $t0, $t1, $t2\n", "")
	if s.Diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", s.Diags)
	}
	raw := s.Emit()
	f, err := elf32.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(Emit()) failed: %v", err)
	}
	text, ok := f.FindSection(".text")
	if !ok || len(text) != 4 {
		t.Fatalf(".text section missing or wrong size: %v bytes, ok=%v", len(text), ok)
	}
}
