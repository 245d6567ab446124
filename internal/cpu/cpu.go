// Package cpu implements the MIPS32 register file: 32 general-purpose
// registers, PC, hi/lo, and the Coprocessor-0 bit-field register file
// used for exception state.
package cpu

import "github.com/xyproto/name32/internal/mem"

// Processor holds the 32 GPRs, the program counter, and the
// multiply/divide result registers. gpr[0] is re-zeroed by the
// interpreter after every instruction (not enforced on read here) --
// see ResetZeroRegister.
type Processor struct {
	Pc  uint32
	Gpr [32]uint32
	HiR uint32
	LoR uint32
	Cp0 Coprocessor0
}

// New returns a Processor with PC at the fixed MIPS text base and all
// registers zeroed.
func New() *Processor {
	return &Processor{Pc: mem.TextStart}
}

func (p *Processor) GPR(n uint32) uint32 { return p.Gpr[n&0x1f] }

func (p *Processor) SetGPR(n uint32, v uint32) {
	if n == 0 {
		return
	}
	p.Gpr[n&0x1f] = v
}

func (p *Processor) PC() uint32     { return p.Pc }
func (p *Processor) SetPC(v uint32) { p.Pc = v }
func (p *Processor) Hi() uint32     { return p.HiR }
func (p *Processor) SetHi(v uint32) { p.HiR = v }
func (p *Processor) Lo() uint32     { return p.LoR }
func (p *Processor) SetLo(v uint32) { p.LoR = v }

// ResetZeroRegister re-zeroes gpr[0]. Spec note: this happens after
// each instruction rather than being enforced on read, because some
// executors temporarily use $at as scratch and rely on the next
// instruction observing a written value -- the same ambiguous-but-
// intentional ordering the original implementation preserves.
func (p *Processor) ResetZeroRegister() {
	p.Gpr[0] = 0
}
