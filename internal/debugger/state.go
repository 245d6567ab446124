package debugger

import (
	"fmt"
	"io"

	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/mem"
)

// State holds everything the command loop needs across iterations:
// the live breakpoint table, the next breakpoint number to hand out,
// and the sticky "current listing position" the bare `l` command
// advances through.
type State struct {
	Breakpoints  []*Breakpoint
	nextBPNum    int
	globalListAt int
}

// NewState returns a State with listing centered on line 5, matching
// the original debugger's initial global_list_loc.
func NewState() *State {
	return &State{globalListAt: 5}
}

// AddBreakpoint injects a break word at lineNum's address, recording
// enough state to restore the original instruction on removal.
func (s *State) AddBreakpoint(lines []elf32.LineInfo, m *mem.Memory, lineNum uint32) (*Breakpoint, error) {
	if len(s.Breakpoints) >= maxBreakpoints {
		return nil, fmt.Errorf("maximum number of breakpoints (%d) reached", maxBreakpoints)
	}
	if int(lineNum) > len(lines) {
		return nil, fmt.Errorf("%d exceeds number of lines in program", lineNum)
	}

	bp, err := newBreakpoint(s.nextBPNum, lineNum, lines, m)
	if err != nil {
		return nil, err
	}
	if err := bp.inject(m, bp.Num); err != nil {
		return nil, err
	}
	s.nextBPNum++
	s.Breakpoints = append(s.Breakpoints, bp)
	return bp, nil
}

// RemoveBreakpoint restores the original word at breakpoint bpNum's
// address and drops it from the table.
func (s *State) RemoveBreakpoint(m *mem.Memory, bpNum int) (*Breakpoint, error) {
	for i, bp := range s.Breakpoints {
		if bp.Num == bpNum {
			if err := bp.restore(m); err != nil {
				return nil, err
			}
			s.Breakpoints = append(s.Breakpoints[:i], s.Breakpoints[i+1:]...)
			return bp, nil
		}
	}
	return nil, fmt.Errorf("breakpoint with number %d not found", bpNum)
}

// breakpointAt returns the live breakpoint whose injected word sits at
// addr, if any.
func (s *State) breakpointAt(addr uint32) (*Breakpoint, bool) {
	for _, bp := range s.Breakpoints {
		if bp.Address == addr {
			return bp, true
		}
	}
	return nil, false
}

// breakpointForTrappedWord resolves a trapped breakpoint two ways at
// once: by the address the exception latched, and by the index packed
// into the word's own code field, which must agree if .text hasn't
// been corrupted out from under the debugger.
func (s *State) breakpointForTrappedWord(addr uint32, word uint32) (*Breakpoint, bool) {
	bp, ok := s.breakpointAt(addr)
	if !ok {
		return nil, false
	}
	if bp.Num != breakIndex(word) {
		return nil, false
	}
	return bp, true
}

// PrintAllBreakpoints lists every live breakpoint's number and line.
func (s *State) PrintAllBreakpoints(out io.Writer) {
	fmt.Fprintln(out, "BP_NUM: LINE_NUM")
	for _, bp := range s.Breakpoints {
		fmt.Fprintf(out, "%6d: %d\n", bp.Num, bp.Line)
	}
}

// ListLines prints a window of lineinfo around lnum: 5 lines back, 3
// ahead, clamped to the program's bounds. lnum == 0 resumes from the
// sticky global listing position. After a non-zero listing the
// position advances by 9 lines; running off the end of the program
// resets it back to line 5, matching list_lines's own wrap-around.
func (s *State) ListLines(lines []elf32.LineInfo, lnum int, out io.Writer) {
	if lnum == 0 {
		lnum = s.globalListAt
	}

	begin := lnum - 5
	if begin < 0 {
		begin = 0
	}
	end := lnum + 3
	if max := len(lines) - 1; end > max {
		end = max
	}

	for i := begin; i <= end && i < len(lines); i++ {
		l := lines[i]
		fmt.Fprintf(out, "%3d #%08x  %s\n", l.LineNumber, l.StartAddress, l.Content)
	}

	if lnum+9 <= len(lines) {
		s.globalListAt = lnum + 9
	} else {
		s.globalListAt = 5
	}
}

// ListAll prints every recorded source line unconditionally, for `l all`.
func ListAll(lines []elf32.LineInfo, out io.Writer) {
	for _, l := range lines {
		fmt.Fprintf(out, "%3d #%08x  %s\n", l.LineNumber, l.StartAddress, l.Content)
	}
}
