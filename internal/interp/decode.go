package interp

import "github.com/xyproto/name32/internal/instr"

// breakpointFunct is the R-type funct code for the break instruction.
// It is deliberately absent from instr.Table/ByLookupKey -- see the
// comment on buildTables -- because the interpreter, not the assembler's
// lookup table, owns breakpoint dispatch.
const breakpointFunct = 0x0D

// decode splits a fetched big-endian instruction word into its R/I/J
// field layout. Which fields are meaningful depends on the opcode; the
// executor looked up via instr.Lookup knows which to read.
func decode(word uint32) instr.Raw {
	return instr.Raw{
		Opcode: word >> 26,
		Rs:     (word >> 21) & 0x1f,
		Rt:     (word >> 16) & 0x1f,
		Rd:     (word >> 11) & 0x1f,
		Shamt:  (word >> 6) & 0x1f,
		Funct:  word & 0x3f,
		Imm:    word & 0xffff,
		Target: word & 0x03ffffff,
	}
}

// isBreakpoint reports whether raw decodes to the break instruction.
func isBreakpoint(raw instr.Raw) bool {
	return raw.Opcode == 0x00 && raw.Funct == breakpointFunct
}
