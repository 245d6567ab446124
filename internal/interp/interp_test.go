package interp

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/xyproto/name32/internal/cpu"
	"github.com/xyproto/name32/internal/instr"
	"github.com/xyproto/name32/internal/mem"
)

func word(op, rs, rt, rd, shamt, funct uint32) uint32 {
	return op<<26 | rs<<21 | rt<<16 | rd<<11 | shamt<<6 | funct
}

func iWord(op, rs, rt, imm uint32) uint32 {
	return op<<26 | rs<<21 | rt<<16 | (imm & 0xffff)
}

func textOf(words ...uint32) []byte {
	var b []byte
	for _, w := range words {
		b = binary.BigEndian.AppendUint32(b, w)
	}
	return b
}

func TestStepAddAndHalt(t *testing.T) {
	// addi $t0, $zero, 5 ; addi $t1, $zero, 7 ; add $t2, $t0, $t1 ; break
	text := textOf(
		iWord(0x08, 0, 8, 5),
		iWord(0x08, 0, 9, 7),
		word(0x00, 8, 9, 10, 0, 0x20),
		word(0x00, 0, 0, 0, 0, breakpointFunct),
	)
	m := mem.NewFromBytes(text, nil)
	ip := New(m, nil, strings.NewReader(""), &bytes.Buffer{})

	for i := 0; i < 3; i++ {
		status, err := ip.Step()
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if status != instr.Continue {
			t.Fatalf("step %d: expected Continue, got %v", i, status)
		}
	}

	if got := ip.CPU.GPR(10); got != 12 {
		t.Fatalf("$t2 = %d, want 12", got)
	}

	_, err := ip.Step()
	if err == nil {
		t.Fatal("expected breakpoint-outside-debug-mode to be fatal")
	}
}

func TestStepBreakpointInDebugMode(t *testing.T) {
	text := textOf(word(0x00, 0, 0, 0, 0, breakpointFunct))
	m := mem.NewFromBytes(text, nil)
	ip := New(m, nil, strings.NewReader(""), &bytes.Buffer{})
	ip.CPU.Cp0.SetDebugMode(true)

	status, err := ip.Step()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != instr.Break {
		t.Fatalf("expected Break status, got %v", status)
	}
}

func TestStepReservedInstruction(t *testing.T) {
	text := textOf(word(0x00, 0, 0, 0, 0, 0x3F))
	m := mem.NewFromBytes(text, nil)
	ip := New(m, nil, strings.NewReader(""), &bytes.Buffer{})

	_, err := ip.Step()
	if err == nil {
		t.Fatal("expected ReservedInstruction to be fatal")
	}
	if !strings.Contains(err.Error(), "ReservedInstruction") {
		t.Fatalf("error %q does not mention ReservedInstruction", err.Error())
	}
}

func TestStepAddressExceptionOutsideText(t *testing.T) {
	m := mem.NewFromBytes(nil, nil)
	ip := New(m, nil, strings.NewReader(""), &bytes.Buffer{})

	_, err := ip.Step()
	if err == nil {
		t.Fatal("expected address exception when PC has no owning text segment")
	}
}

func TestRunSyscallPrintIntAndExit(t *testing.T) {
	// addi $a0, $zero, 42 ; addi $v0, $zero, 1 ; syscall (print_int)
	// addi $v0, $zero, 10 ; syscall (exit)
	text := textOf(
		iWord(0x08, 0, 4, 42),
		iWord(0x08, 0, 2, sysPrintInt),
		word(0x00, 0, 0, 0, 0, 0x0C),
		iWord(0x08, 0, 2, sysExit),
		word(0x00, 0, 0, 0, 0, 0x0C),
	)
	m := mem.NewFromBytes(text, nil)
	var out bytes.Buffer
	ip := New(m, nil, strings.NewReader(""), &out)

	if err := ip.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "42" {
		t.Fatalf("stdout = %q, want %q", out.String(), "42")
	}
	if ip.ShouldContinue {
		t.Fatal("expected ShouldContinue cleared by exit syscall")
	}
}

func TestRunSyscallReadIntAndPrintChar(t *testing.T) {
	// syscall read_int ($v0=5) into $v0, move to $a0, print_char, exit
	text := textOf(
		iWord(0x08, 0, 2, sysReadInt),
		word(0x00, 0, 0, 0, 0, 0x0C),
		word(0x00, 2, 0, 4, 0, 0x20), // add $a0, $v0, $zero
		iWord(0x08, 0, 2, sysPrintChar),
		word(0x00, 0, 0, 0, 0, 0x0C),
		iWord(0x08, 0, 2, sysExit),
		word(0x00, 0, 0, 0, 0, 0x0C),
	)
	m := mem.NewFromBytes(text, nil)
	var out bytes.Buffer
	ip := New(m, nil, strings.NewReader("65\n"), &out)

	if err := ip.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "A" {
		t.Fatalf("stdout = %q, want %q", out.String(), "A")
	}
}

func TestRunUnknownSyscallIsFatal(t *testing.T) {
	text := textOf(
		iWord(0x08, 0, 2, 9), // no sbrk in this table
		word(0x00, 0, 0, 0, 0, 0x0C),
	)
	m := mem.NewFromBytes(text, nil)
	ip := New(m, nil, strings.NewReader(""), &bytes.Buffer{})

	if err := ip.Run(); err == nil {
		t.Fatal("expected unknown syscall number to be fatal")
	}
}

func TestDecodeFields(t *testing.T) {
	w := word(0x00, 9, 10, 11, 0, 0x22)
	raw := decode(w)
	if raw.Opcode != 0 || raw.Rs != 9 || raw.Rt != 10 || raw.Rd != 11 || raw.Funct != 0x22 {
		t.Fatalf("decode mismatch: %+v", raw)
	}
}

func TestResetZeroRegisterAfterStep(t *testing.T) {
	// add $zero, $t0, $t1 would be nonsensical MIPS but the CPU still
	// enforces gpr[0] == 0 after every instruction regardless of what
	// an executor writes.
	p := cpu.New()
	p.SetGPR(8, 5)
	p.SetGPR(9, 7)
	p.Gpr[0] = 99
	ip := New(mem.NewFromBytes(textOf(word(0x00, 8, 9, 0, 0, 0x20)), nil), nil, strings.NewReader(""), &bytes.Buffer{})
	ip.CPU = p
	if _, err := ip.Step(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.GPR(0) != 0 {
		t.Fatalf("gpr[0] = %d, want 0", p.GPR(0))
	}
}
