package cpu

import "testing"

func TestNewProcessorStartsAtTextBase(t *testing.T) {
	p := New()
	if p.PC() == 0 {
		t.Fatal("expected PC to start at the fixed text base, got 0")
	}
}

func TestSetGPRZeroIsNoOp(t *testing.T) {
	p := New()
	p.SetGPR(0, 42)
	if p.GPR(0) != 0 {
		t.Fatalf("GPR(0) = %d, want 0", p.GPR(0))
	}
}

func TestSetGPRWritesAndReads(t *testing.T) {
	p := New()
	p.SetGPR(8, 99)
	if got := p.GPR(8); got != 99 {
		t.Fatalf("GPR(8) = %d, want 99", got)
	}
}

func TestResetZeroRegisterClearsScratchedZero(t *testing.T) {
	p := New()
	p.Gpr[0] = 5
	p.ResetZeroRegister()
	if p.Gpr[0] != 0 {
		t.Fatalf("Gpr[0] = %d, want 0 after reset", p.Gpr[0])
	}
}

func TestSetExceptionLatchesEPCOnce(t *testing.T) {
	p := New()
	p.Pc = 0x00400010
	p.SetException(ExcArithmeticOverflow)

	if !p.Cp0.EXL() {
		t.Fatal("expected EXL set after SetException")
	}
	if p.Cp0.ExcCode() != ExcArithmeticOverflow {
		t.Fatalf("ExcCode = %v, want ExcArithmeticOverflow", p.Cp0.ExcCode())
	}
	if p.Cp0.EPC() != 0x0040000c {
		t.Fatalf("EPC = %#x, want %#x", p.Cp0.EPC(), uint32(0x0040000c))
	}
	if p.Cp0.KSU() != KernelMode {
		t.Fatalf("KSU = %d, want KernelMode", p.Cp0.KSU())
	}

	// A second exception while already in one must not re-latch EPC.
	p.Pc = 0x00400100
	p.SetException(ExcBreakpoint)
	if p.Cp0.EPC() != 0x0040000c {
		t.Fatalf("EPC was re-latched: got %#x, want unchanged %#x", p.Cp0.EPC(), uint32(0x0040000c))
	}
	if p.Cp0.ExcCode() != ExcBreakpoint {
		t.Fatalf("ExcCode = %v, want ExcBreakpoint (second exception code still recorded)", p.Cp0.ExcCode())
	}
}

func TestRecoverFromExceptionResumesAfterEPC(t *testing.T) {
	p := New()
	p.Pc = 0x00400010
	p.SetException(ExcSyscall)
	p.RecoverFromException()

	if p.Cp0.EXL() {
		t.Fatal("expected EXL cleared after recovery")
	}
	if p.Cp0.EPC() != 0 {
		t.Fatalf("EPC = %#x, want 0 after recovery", p.Cp0.EPC())
	}
	if p.Pc != 0x00400010 {
		t.Fatalf("Pc = %#x, want %#x (EPC+4)", p.Pc, uint32(0x00400010))
	}
}

func TestDebugModeToggle(t *testing.T) {
	p := New()
	if p.Cp0.DebugMode() {
		t.Fatal("expected DebugMode off by default")
	}
	p.Cp0.SetDebugMode(true)
	if !p.Cp0.DebugMode() {
		t.Fatal("expected DebugMode on after SetDebugMode(true)")
	}
}

func TestExcCodeStringer(t *testing.T) {
	cases := map[ExcCode]string{
		ExcNone:       "NoException",
		ExcSyscall:    "Syscall",
		ExcBreakpoint: "Breakpoint",
		ExcAddressLoad: "AddressException(Load)",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", code, got, want)
		}
	}
}
