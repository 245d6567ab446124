package instr

import (
	"testing"

	"github.com/xyproto/name32/internal/cpu"
	"github.com/xyproto/name32/internal/mem"
)

func TestLookupRTypeByOpcodeAndFunct(t *testing.T) {
	// add $t0, $t1, $t2 -> opcode 0, rs=9, rt=10, rd=8, funct=0x20
	raw := Raw{Opcode: 0x00, Rs: 9, Rt: 10, Rd: 8, Funct: 0x20}
	info, ok := Lookup(raw)
	if !ok {
		t.Fatal("expected add to be found")
	}
	if info.Mnemonic != "add" {
		t.Fatalf("mnemonic = %q, want add", info.Mnemonic)
	}
}

func TestLookupReservedInstructionMissing(t *testing.T) {
	// funct 0x0D (breakpoint) is deliberately absent from the table.
	raw := Raw{Opcode: 0x00, Funct: 0x0D}
	if _, ok := Lookup(raw); ok {
		t.Fatal("expected funct 0x0D to be absent from the lookup table")
	}
}

func TestLookupIType(t *testing.T) {
	raw := Raw{Opcode: 0x0D}
	info, ok := Lookup(raw)
	if !ok || info.Mnemonic != "ori" {
		t.Fatalf("expected ori, got %v ok=%v", info, ok)
	}
}

func TestExecAddProducesEncodedBits(t *testing.T) {
	p := cpu.New()
	p.SetGPR(9, 10)  // $t1
	p.SetGPR(10, 20) // $t2
	raw := Raw{Rs: 9, Rt: 10, Rd: 8, Funct: 0x20}
	status, err := execAdd(p, mem.New(), raw)
	if err != nil {
		t.Fatalf("execAdd: %v", err)
	}
	if status != Continue {
		t.Fatalf("status = %v, want Continue", status)
	}
	if got := p.GPR(8); got != 30 {
		t.Fatalf("$t0 = %d, want 30", got)
	}
}

func TestExecAddOverflowSetsException(t *testing.T) {
	p := cpu.New()
	p.SetGPR(9, 0x7fffffff)
	p.SetGPR(10, 1)
	raw := Raw{Rs: 9, Rt: 10, Rd: 8}
	if _, err := execAdd(p, mem.New(), raw); err != nil {
		t.Fatalf("execAdd: %v", err)
	}
	if p.Cp0.ExcCode() != cpu.ExcArithmeticOverflow {
		t.Fatalf("ExcCode = %v, want ExcArithmeticOverflow", p.Cp0.ExcCode())
	}
}

func TestExecOriMasksImmediate(t *testing.T) {
	p := cpu.New()
	p.SetGPR(10, 0) // $t2
	raw := Raw{Rs: 10, Rt: 8, Imm: 0xBEEF}
	if _, err := execOri(p, mem.New(), raw); err != nil {
		t.Fatalf("execOri: %v", err)
	}
	if got := p.GPR(8); got != 0xBEEF {
		t.Fatalf("$t0 = %#x, want 0xBEEF", got)
	}
}

func TestExecSyscallSetsExceptionCode(t *testing.T) {
	p := cpu.New()
	if _, err := execSyscall(p, mem.New(), Raw{}); err != nil {
		t.Fatalf("execSyscall: %v", err)
	}
	if p.Cp0.ExcCode() != cpu.ExcSyscall {
		t.Fatalf("ExcCode = %v, want ExcSyscall", p.Cp0.ExcCode())
	}
}

func TestExecJRejectsUnownedTarget(t *testing.T) {
	p := cpu.New()
	m := mem.NewFromBytes(make([]byte, 4), nil)
	_, err := execJ(p, m, Raw{Target: 0x3FFFFFFF})
	if err == nil {
		t.Fatal("expected error jumping outside .text")
	}
}

func TestParseRegisterNamesAndNumbers(t *testing.T) {
	cases := []struct {
		token string
		want  uint32
	}{
		{"$t0", 8},
		{"t0", 8},
		{"$zero", 0},
		{"$ra", 31},
		{"$8", 8},
		{"$31", 31},
	}
	for _, c := range cases {
		got, ok := ParseRegister(c.token)
		if !ok || got != c.want {
			t.Errorf("ParseRegister(%q) = %d,%v want %d,true", c.token, got, ok, c.want)
		}
	}
}

func TestParseRegisterRejectsOutOfRangeAndGarbage(t *testing.T) {
	if _, ok := ParseRegister("$32"); ok {
		t.Error("expected $32 to be rejected")
	}
	if _, ok := ParseRegister("$bogus"); ok {
		t.Error("expected $bogus to be rejected")
	}
}

func TestRegisterNameRoundTrip(t *testing.T) {
	if got := RegisterName(8); got != "$t0" {
		t.Fatalf("RegisterName(8) = %q, want $t0", got)
	}
}

type fakePseudoContext struct {
	symbols map[string]uint32
	addr    uint32
	relocs  []struct {
		offset uint32
		name   string
		kind   RelocKind
	}
}

func (f *fakePseudoContext) SymbolOffset(name string) (uint32, bool) {
	v, ok := f.symbols[name]
	return v, ok
}

func (f *fakePseudoContext) TextAddress() uint32 { return f.addr }

func (f *fakePseudoContext) AddRelocation(offset uint32, name string, kind RelocKind) {
	f.relocs = append(f.relocs, struct {
		offset uint32
		name   string
		kind   RelocKind
	}{offset, name, kind})
}

func TestExpandLiProducesOri(t *testing.T) {
	ctx := &fakePseudoContext{symbols: map[string]uint32{}}
	expanded, err := expandLi(ctx, []PseudoArg{regArg(8), immArg(5)})
	if err != nil {
		t.Fatalf("expandLi: %v", err)
	}
	if len(expanded) != 1 || expanded[0].Info.Mnemonic != "ori" {
		t.Fatalf("expected a single ori expansion, got %+v", expanded)
	}
}

func TestExpandLaEmitsHiLoRelocations(t *testing.T) {
	ctx := &fakePseudoContext{addr: mem.TextStart}
	expanded, err := expandLa(ctx, []PseudoArg{regArg(8), {Name: "buf"}})
	if err != nil {
		t.Fatalf("expandLa: %v", err)
	}
	if len(expanded) != 2 {
		t.Fatalf("expected lui+ori expansion, got %d instructions", len(expanded))
	}
	if len(ctx.relocs) != 2 || ctx.relocs[0].kind != RelHi16 || ctx.relocs[1].kind != RelLo16 {
		t.Fatalf("expected Hi16 then Lo16 relocations, got %+v", ctx.relocs)
	}
}

func TestExpandNopEncodesAsZeroWord(t *testing.T) {
	expanded, err := expandNop(&fakePseudoContext{}, nil)
	if err != nil {
		t.Fatalf("expandNop: %v", err)
	}
	if expanded[0].Info.Mnemonic != "sll" {
		t.Fatalf("expected sll, got %s", expanded[0].Info.Mnemonic)
	}
	args := expanded[0].Args
	if len(args) != 3 || !args[0].IsRegister || args[0].Register != 0 || !args[1].IsRegister || args[1].Register != 0 || !args[2].IsImm || args[2].Imm != 0 {
		t.Fatalf("expected sll $zero, $zero, 0 (all fields zero), got %+v", args)
	}
}

func TestExpandRejectsWrongArgCount(t *testing.T) {
	if _, err := expandMove(&fakePseudoContext{}, []PseudoArg{regArg(8)}); err == nil {
		t.Fatal("expected arg-count error for move with 1 argument")
	}
}
