// Package interp implements the fetch/decode/execute loop that runs a
// linked ELF32/MIPS executable against the cpu and mem packages, plus
// the fixed syscall dispatch table invoked through the Syscall
// exception path.
package interp

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/xyproto/name32/internal/cpu"
	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/instr"
	"github.com/xyproto/name32/internal/mem"
)

// Interp ties a Processor and a Memory together with the I/O streams
// the syscall shim reads and writes, and the line table used to
// annotate fatal exceptions with source context.
type Interp struct {
	CPU   *cpu.Processor
	Mem   *mem.Memory
	Lines []elf32.LineInfo

	// ShouldContinue is cleared by the exit syscall; Run consults it
	// after every step.
	ShouldContinue bool

	Stdin  *bufio.Reader
	Stdout io.Writer
}

// New returns an Interp ready to execute at the fixed text start
// address, reading syscalls from stdin and writing to stdout.
func New(m *mem.Memory, lines []elf32.LineInfo, stdin io.Reader, stdout io.Writer) *Interp {
	return &Interp{
		CPU:            cpu.New(),
		Mem:            m,
		Lines:          lines,
		ShouldContinue: true,
		Stdin:          bufio.NewReader(stdin),
		Stdout:         stdout,
	}
}

// Run drives Step in a loop until an executor signals Complete, a
// fatal exception halts execution, or ShouldContinue is cleared by the
// exit syscall. It never hands a Breakpoint back to a caller -- DebugMode
// defaults off, so Step resolves breakpoints as fatal unless the
// caller has enabled debug mode and drives Step itself (see cmd/mips-emu
// and the debugger package).
func (ip *Interp) Run() error {
	for ip.ShouldContinue {
		status, err := ip.Step()
		if err != nil {
			return ip.annotate(err)
		}
		if status == instr.Complete {
			return nil
		}
		if status == instr.Break {
			return nil
		}
	}
	return nil
}

// Step performs one fetch/decode/execute cycle per §4.7: a PC outside
// owned text raises AddressException(Load); a misaligned or otherwise
// unreadable fetch raises BusFetch; an unrecognized opcode/funct pair
// raises ReservedInstruction; otherwise the matching executor runs and
// gpr[0] is forced back to zero. Any exception latched during the step
// (by the fetch stage, the executor, or the breakpoint special case) is
// then dispatched: Syscall and Breakpoint are handled inline, anything
// else is reported as a fatal error.
func (ip *Interp) Step() (instr.Status, error) {
	pc := ip.CPU.PC()

	if !ip.Mem.AllowsExecutionOf(pc) {
		ip.CPU.SetException(cpu.ExcAddressLoad)
		return ip.dispatchException()
	}

	word, err := ip.Mem.ReadTextWord(pc)
	if err != nil {
		ip.CPU.SetException(cpu.ExcBusFetch)
		return ip.dispatchException()
	}

	raw := decode(word)
	ip.CPU.SetPC(pc + 4)

	if isBreakpoint(raw) {
		ip.CPU.SetException(cpu.ExcBreakpoint)
		return ip.dispatchException()
	}

	info, ok := instr.Lookup(raw)
	if !ok {
		ip.CPU.SetException(cpu.ExcReservedInstruction)
		return ip.dispatchException()
	}

	status, execErr := info.Exec(ip.CPU, ip.Mem, raw)
	ip.CPU.ResetZeroRegister()
	if execErr != nil {
		ip.raiseFromExecError(execErr)
		return ip.dispatchException()
	}

	if ip.CPU.Cp0.EXL() {
		return ip.dispatchException()
	}
	return status, nil
}

// dispatchException handles whatever exception code is currently
// latched in Cause, per §4.7's exception table. Syscall invokes the
// shim and recovers in place; Breakpoint yields control back to the
// caller via instr.Break when debug mode is active, else is fatal;
// every other code halts with a reported error.
func (ip *Interp) dispatchException() (instr.Status, error) {
	code := ip.CPU.Cp0.ExcCode()
	switch code {
	case cpu.ExcSyscall:
		err := ip.runSyscall()
		ip.CPU.RecoverFromException()
		if err != nil {
			return instr.Complete, fmt.Errorf("syscall failed: %w", err)
		}
		if !ip.ShouldContinue {
			return instr.Complete, nil
		}
		return instr.Continue, nil
	case cpu.ExcBreakpoint:
		if ip.CPU.Cp0.DebugMode() {
			return instr.Break, nil
		}
		return instr.Complete, fmt.Errorf("breakpoint instruction outside debug mode at pc=0x%08x", ip.CPU.Cp0.EPC())
	default:
		return instr.Complete, fmt.Errorf("%s", code)
	}
}

// raiseFromExecError maps an executor's plain Go error into the
// matching coprocessor-0 exception: a tagged mem.Fault carries its own
// kind, anything else (an unowned jump target, for instance) is treated
// as an address exception on load, matching the original's blanket
// handling of jump-target errors.
func (ip *Interp) raiseFromExecError(err error) {
	var fault *mem.Fault
	if errors.As(err, &fault) {
		switch fault.Kind {
		case mem.FaultAddressStore:
			ip.CPU.SetException(cpu.ExcAddressStore)
		case mem.FaultBusFetch:
			ip.CPU.SetException(cpu.ExcBusFetch)
		default:
			ip.CPU.SetException(cpu.ExcAddressLoad)
		}
		return
	}
	ip.CPU.SetException(cpu.ExcAddressLoad)
}

// annotate appends the nearest known source line to a fatal error,
// when the address it halted at falls within a recorded .line range.
func (ip *Interp) annotate(err error) error {
	addr := ip.CPU.Cp0.EPC()
	for _, l := range ip.Lines {
		if addr >= l.StartAddress && addr < l.EndAddress {
			log.WithFields(log.Fields{"line": l.LineNumber, "pc": addr}).Debug("halted")
			return fmt.Errorf("line %d: %s: %w", l.LineNumber, l.Content, err)
		}
	}
	return err
}
