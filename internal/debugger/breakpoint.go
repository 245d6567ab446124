package debugger

import (
	"fmt"

	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/mem"
)

// breakWordFunct is the R-type funct encoding the interpreter
// recognizes as a breakpoint exception trigger.
const breakWordFunct = 0x0D

// maxBreakpoints bounds the live breakpoint table, per §4.8: the
// breakpoint index is packed into the injected word's bits 6..25, a
// 20-bit field.
const maxBreakpoints = 1 << 20

// Breakpoint is one live injected breakpoint: the original instruction
// word it replaced, and whether that saved word has already been
// re-executed once after the trap (see Debugger.handleBreakpoint).
type Breakpoint struct {
	Num             int
	Line            uint32
	Address         uint32
	Saved           uint32
	AlreadyExecuted bool
}

// breakWord packs a breakpoint index into a break instruction's code
// field (bits 6..25), matching the injected word the interpreter's
// fetch stage recognizes (opcode 0, funct 0x0D).
func breakWord(index int) uint32 {
	code := (uint32(index) & 0xFFFFF) << 6
	return code | breakWordFunct
}

// breakIndex extracts the breakpoint index packed into an injected
// break word's code field.
func breakIndex(word uint32) int {
	return int((word >> 6) & 0xFFFFF)
}

// newBreakpoint locates lineNum in lineinfo and reads the word
// currently at its start address so it can be restored later.
func newBreakpoint(num int, lineNum uint32, lines []elf32.LineInfo, m *mem.Memory) (*Breakpoint, error) {
	addr, ok := addressForLine(lines, lineNum)
	if !ok {
		return nil, fmt.Errorf("breakpoint not found in memory")
	}
	saved, err := m.ReadTextWord(addr)
	if err != nil {
		return nil, err
	}
	return &Breakpoint{Num: num, Line: lineNum, Address: addr, Saved: saved}, nil
}

func addressForLine(lines []elf32.LineInfo, lineNum uint32) (uint32, bool) {
	for _, l := range lines {
		if l.LineNumber == lineNum {
			return l.StartAddress, true
		}
	}
	return 0, false
}

// lineForAddress finds the source line whose start address matches
// addr, used to report which line a breakpoint trapped on.
func lineForAddress(lines []elf32.LineInfo, addr uint32) (elf32.LineInfo, bool) {
	for _, l := range lines {
		if l.StartAddress == addr {
			return l, true
		}
	}
	return elf32.LineInfo{}, false
}

// inject writes the break word over the breakpoint's address, using
// the privileged text writer since .text is otherwise execute-only
// from the running program's point of view.
func (b *Breakpoint) inject(m *mem.Memory, index int) error {
	return m.SetTextWord(b.Address, breakWord(index))
}

// restore writes the saved original word back over the breakpoint's
// address, undoing inject.
func (b *Breakpoint) restore(m *mem.Memory) error {
	return m.SetTextWord(b.Address, b.Saved)
}
