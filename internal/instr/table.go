package instr

import (
	"fmt"
	"sync"

	"github.com/xyproto/name32/internal/cpu"
	"github.com/xyproto/name32/internal/mem"
)

var (
	tableOnce    sync.Once
	byMnemonic   map[string]*Info
	byLookupKey  map[uint32]*Info
)

// Table lazily builds and returns the mnemonic-keyed instruction
// table used at assembly time.
func Table() map[string]*Info {
	tableOnce.Do(buildTables)
	return byMnemonic
}

// ByLookupKey lazily builds and returns the execution-key-keyed
// instruction table used at run time.
func ByLookupKey() map[uint32]*Info {
	tableOnce.Do(buildTables)
	return byLookupKey
}

// Lookup finds the instruction table entry for a decoded raw word
// using the key scheme from spec §3: opcode<<6|funct for R-type
// (including REGIMM, keyed by rt instead of funct), opcode<<6
// otherwise. Returns false (ReservedInstruction, per spec §4.7) if no
// entry matches.
func Lookup(raw Raw) (*Info, bool) {
	table := ByLookupKey()
	var key uint32
	switch raw.Opcode {
	case 0x00:
		key = raw.Opcode<<6 | raw.Funct
	case 0x01:
		key = RegimmKey(raw.Rt)
	default:
		key = raw.Opcode << 6
	}
	info, ok := table[key]
	return info, ok
}

func register(info *Info) {
	byMnemonic[info.Mnemonic] = info
	byLookupKey[info.LookupKey()] = info
}

func rArgs() []ArgKind { return []ArgKind{ArgRd, ArgRs, ArgRt} }
func shiftArgs() []ArgKind { return []ArgKind{ArgRd, ArgRt, ArgImmediate} }
func iArgs() []ArgKind  { return []ArgKind{ArgRt, ArgRs, ArgImmediate} }
func loadStoreArgs() []ArgKind { return []ArgKind{ArgRt, ArgImmediate, ArgRs} }
func branchArgs() []ArgKind { return []ArgKind{ArgRs, ArgRt, ArgBranchLabel} }
func branchZArgs() []ArgKind { return []ArgKind{ArgRs, ArgBranchLabel} }
func jumpArgs() []ArgKind { return []ArgKind{ArgIdentifier} }

func signExtendImm(imm uint32) int32 {
	return int32(int16(uint16(imm)))
}

func buildTables() {
	byMnemonic = make(map[string]*Info)
	byLookupKey = make(map[uint32]*Info)

	// R-type, opcode 0x00.
	register(&Info{Mnemonic: "sll", Format: RType, Opcode: 0x00, Funct: 0x00, HasFunct: true, Args: shiftArgs(), Exec: execSll})
	register(&Info{Mnemonic: "srl", Format: RType, Opcode: 0x00, Funct: 0x02, HasFunct: true, Args: shiftArgs(), Exec: execSrl})
	register(&Info{Mnemonic: "jr", Format: RType, Opcode: 0x00, Funct: 0x08, HasFunct: true, Args: []ArgKind{ArgRs}, Exec: execJr})
	register(&Info{Mnemonic: "jalr", Format: RType, Opcode: 0x00, Funct: 0x09, HasFunct: true, Args: []ArgKind{ArgRd, ArgRs}, AltArgs: [][]ArgKind{{ArgRs}}, Exec: execJalr})
	register(&Info{Mnemonic: "syscall", Format: RType, Opcode: 0x00, Funct: 0x0C, HasFunct: true, Args: nil, Exec: execSyscall})
	register(&Info{Mnemonic: "add", Format: RType, Opcode: 0x00, Funct: 0x20, HasFunct: true, Args: rArgs(), Exec: execAdd})
	register(&Info{Mnemonic: "addu", Format: RType, Opcode: 0x00, Funct: 0x21, HasFunct: true, Args: rArgs(), Exec: execAddu})
	register(&Info{Mnemonic: "sub", Format: RType, Opcode: 0x00, Funct: 0x22, HasFunct: true, Args: rArgs(), Exec: execSub})
	register(&Info{Mnemonic: "subu", Format: RType, Opcode: 0x00, Funct: 0x23, HasFunct: true, Args: rArgs(), Exec: execSubu})
	register(&Info{Mnemonic: "and", Format: RType, Opcode: 0x00, Funct: 0x24, HasFunct: true, Args: rArgs(), Exec: execAnd})
	register(&Info{Mnemonic: "or", Format: RType, Opcode: 0x00, Funct: 0x25, HasFunct: true, Args: rArgs(), Exec: execOr})
	register(&Info{Mnemonic: "xor", Format: RType, Opcode: 0x00, Funct: 0x26, HasFunct: true, Args: rArgs(), Exec: execXor})
	register(&Info{Mnemonic: "nor", Format: RType, Opcode: 0x00, Funct: 0x27, HasFunct: true, Args: rArgs(), Exec: execNor})
	register(&Info{Mnemonic: "slt", Format: RType, Opcode: 0x00, Funct: 0x2A, HasFunct: true, Args: rArgs(), Exec: execSlt})
	register(&Info{Mnemonic: "sltu", Format: RType, Opcode: 0x00, Funct: 0x2B, HasFunct: true, Args: rArgs(), Exec: execSltu})
	// Also reachable by the funct-0x0D encoding used for breakpoint
	// injection; the debugger installs/removes these words directly
	// and the interpreter recognizes funct 0x0D as Breakpoint without
	// a table entry (see internal/interp).

	// J-type.
	register(&Info{Mnemonic: "j", Format: JType, Opcode: 0x02, Args: jumpArgs(), Exec: execJ})
	register(&Info{Mnemonic: "jal", Format: JType, Opcode: 0x03, Args: jumpArgs(), Exec: execJal})

	// I-type branches.
	register(&Info{Mnemonic: "beq", Format: IType, Opcode: 0x04, Args: branchArgs(), Exec: execBeq})
	register(&Info{Mnemonic: "bne", Format: IType, Opcode: 0x05, Args: branchArgs(), Exec: execBne})
	register(&Info{Mnemonic: "blez", Format: IType, Opcode: 0x06, Args: branchZArgs(), Exec: execBlez})
	register(&Info{Mnemonic: "bgtz", Format: IType, Opcode: 0x07, Args: branchZArgs(), Exec: execBgtz})

	// I-type arithmetic/logical.
	register(&Info{Mnemonic: "addi", Format: IType, Opcode: 0x08, Args: iArgs(), Exec: execAddi})
	register(&Info{Mnemonic: "addiu", Format: IType, Opcode: 0x09, Args: iArgs(), Exec: execAddiu})
	register(&Info{Mnemonic: "slti", Format: IType, Opcode: 0x0A, Args: iArgs(), Exec: execSlti})
	register(&Info{Mnemonic: "sltiu", Format: IType, Opcode: 0x0B, Args: iArgs(), Exec: execSltiu})
	register(&Info{Mnemonic: "andi", Format: IType, Opcode: 0x0C, Args: iArgs(), Exec: execAndi})
	register(&Info{Mnemonic: "ori", Format: IType, Opcode: 0x0D, Args: iArgs(), Exec: execOri})
	register(&Info{Mnemonic: "xori", Format: IType, Opcode: 0x0E, Args: iArgs(), Exec: execXori})
	register(&Info{Mnemonic: "lui", Format: IType, Opcode: 0x0F, Args: []ArgKind{ArgRt, ArgImmediate}, Exec: execLui})

	// I-type loads/stores.
	register(&Info{Mnemonic: "lb", Format: IType, Opcode: 0x20, Args: loadStoreArgs(), Exec: execLb})
	register(&Info{Mnemonic: "lw", Format: IType, Opcode: 0x23, Args: loadStoreArgs(), Exec: execLw})
	register(&Info{Mnemonic: "sb", Format: IType, Opcode: 0x28, Args: loadStoreArgs(), Exec: execSb})
	register(&Info{Mnemonic: "sw", Format: IType, Opcode: 0x2B, Args: loadStoreArgs(), Exec: execSw})
}

// --- R-type executors ---

func execSll(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rd, c.GPR(r.Rt)<<r.Shamt)
	return Continue, nil
}

func execSrl(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rd, c.GPR(r.Rt)>>r.Shamt)
	return Continue, nil
}

func execJr(c CPU, m *mem.Memory, r Raw) (Status, error) {
	target := c.GPR(r.Rs)
	if !m.AllowsExecutionOf(target) {
		return Continue, fmt.Errorf("attempted to jump to unowned address 0x%08x", target)
	}
	c.SetPC(target)
	return Continue, nil
}

func execJalr(c CPU, m *mem.Memory, r Raw) (Status, error) {
	rd := r.Rd
	if rd == 0 {
		rd = 31
	}
	target := c.GPR(r.Rs)
	if !m.AllowsExecutionOf(target) {
		return Continue, fmt.Errorf("attempted to jump to unowned address 0x%08x", target)
	}
	c.SetGPR(rd, c.PC())
	c.SetPC(target)
	return Continue, nil
}

func execSyscall(c CPU, m *mem.Memory, r Raw) (Status, error) {
	c.SetException(cpu.ExcSyscall)
	return Continue, nil
}

func execAdd(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	a, b := int32(c.GPR(r.Rs)), int32(c.GPR(r.Rt))
	sum := a + b
	if overflowsAdd(a, b, sum) {
		c.SetException(cpu.ExcArithmeticOverflow)
		return Continue, nil
	}
	c.SetGPR(r.Rd, uint32(sum))
	return Continue, nil
}

func execAddu(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rd, c.GPR(r.Rs)+c.GPR(r.Rt))
	return Continue, nil
}

func execSub(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	a, b := int32(c.GPR(r.Rs)), int32(c.GPR(r.Rt))
	diff := a - b
	if overflowsSub(a, b, diff) {
		c.SetException(cpu.ExcArithmeticOverflow)
		return Continue, nil
	}
	c.SetGPR(r.Rd, uint32(diff))
	return Continue, nil
}

func execSubu(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rd, c.GPR(r.Rs)-c.GPR(r.Rt))
	return Continue, nil
}

func execAnd(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rd, c.GPR(r.Rs)&c.GPR(r.Rt))
	return Continue, nil
}

func execOr(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rd, c.GPR(r.Rs)|c.GPR(r.Rt))
	return Continue, nil
}

func execXor(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rd, c.GPR(r.Rs)^c.GPR(r.Rt))
	return Continue, nil
}

func execNor(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rd, ^(c.GPR(r.Rs) | c.GPR(r.Rt)))
	return Continue, nil
}

func execSlt(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	if int32(c.GPR(r.Rs)) < int32(c.GPR(r.Rt)) {
		c.SetGPR(r.Rd, 1)
	} else {
		c.SetGPR(r.Rd, 0)
	}
	return Continue, nil
}

func execSltu(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	if c.GPR(r.Rs) < c.GPR(r.Rt) {
		c.SetGPR(r.Rd, 1)
	} else {
		c.SetGPR(r.Rd, 0)
	}
	return Continue, nil
}

// --- J-type executors ---

func execJ(c CPU, m *mem.Memory, r Raw) (Status, error) {
	target := (r.Target << 2) | (c.PC() & 0xF0000000)
	if !m.AllowsExecutionOf(target) {
		return Continue, fmt.Errorf("attempted to jump to unowned address 0x%08x", target)
	}
	c.SetPC(target)
	return Continue, nil
}

func execJal(c CPU, m *mem.Memory, r Raw) (Status, error) {
	target := (r.Target << 2) | (c.PC() & 0xF0000000)
	if !m.AllowsExecutionOf(target) {
		return Continue, fmt.Errorf("attempted to jump to unowned address 0x%08x", target)
	}
	c.SetGPR(31, c.PC())
	c.SetPC(target)
	return Continue, nil
}

// --- I-type branch executors ---
//
// PC has already been advanced by 4 (fetch step) by the time these
// run, so temp = pc + (sign_extend(imm) << 2) lands exactly on the
// label the assembler computed ((target-pc_at_assembly)>>2)-1 for.

func branchTo(c CPU, m *mem.Memory, imm uint32) (Status, error) {
	offset := signExtendImm(imm) << 2
	target := uint32(int32(c.PC()) + offset)
	if !m.AllowsExecutionOf(target) {
		return Continue, fmt.Errorf("attempted to access unowned address 0x%08x", target)
	}
	c.SetPC(target)
	return Continue, nil
}

func execBeq(c CPU, m *mem.Memory, r Raw) (Status, error) {
	if c.GPR(r.Rs) != c.GPR(r.Rt) {
		return Continue, nil
	}
	return branchTo(c, m, r.Imm)
}

func execBne(c CPU, m *mem.Memory, r Raw) (Status, error) {
	if c.GPR(r.Rs) == c.GPR(r.Rt) {
		return Continue, nil
	}
	return branchTo(c, m, r.Imm)
}

func execBlez(c CPU, m *mem.Memory, r Raw) (Status, error) {
	if int32(c.GPR(r.Rs)) > 0 {
		return Continue, nil
	}
	return branchTo(c, m, r.Imm)
}

func execBgtz(c CPU, m *mem.Memory, r Raw) (Status, error) {
	if int32(c.GPR(r.Rs)) <= 0 {
		return Continue, nil
	}
	return branchTo(c, m, r.Imm)
}

// --- I-type arithmetic/logical executors ---

func execAddi(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	a, b := int32(c.GPR(r.Rs)), signExtendImm(r.Imm)
	sum := a + b
	if overflowsAdd(a, b, sum) {
		c.SetException(cpu.ExcArithmeticOverflow)
		return Continue, nil
	}
	c.SetGPR(r.Rt, uint32(sum))
	return Continue, nil
}

func execAddiu(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rt, c.GPR(r.Rs)+r.Imm)
	return Continue, nil
}

func execSlti(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	if int32(c.GPR(r.Rs)) < signExtendImm(r.Imm) {
		c.SetGPR(r.Rt, 1)
	} else {
		c.SetGPR(r.Rt, 0)
	}
	return Continue, nil
}

func execSltiu(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	if c.GPR(r.Rs) < r.Imm {
		c.SetGPR(r.Rt, 1)
	} else {
		c.SetGPR(r.Rt, 0)
	}
	return Continue, nil
}

func execAndi(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rt, c.GPR(r.Rs)&(r.Imm&0xFFFF))
	return Continue, nil
}

func execOri(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rt, c.GPR(r.Rs)|(r.Imm&0xFFFF))
	return Continue, nil
}

func execXori(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rt, c.GPR(r.Rs)^(r.Imm&0xFFFF))
	return Continue, nil
}

func execLui(c CPU, _ *mem.Memory, r Raw) (Status, error) {
	c.SetGPR(r.Rt, (r.Imm&0xFFFF)<<16)
	return Continue, nil
}

// --- I-type load/store executors ---

func execLb(c CPU, m *mem.Memory, r Raw) (Status, error) {
	addr := uint32(int32(c.GPR(r.Rs)) + signExtendImm(r.Imm))
	b, err := m.ReadByte(addr)
	if err != nil {
		return Continue, err
	}
	c.SetGPR(r.Rt, uint32(int32(int8(b))))
	return Continue, nil
}

func execLw(c CPU, m *mem.Memory, r Raw) (Status, error) {
	addr := uint32(int32(c.GPR(r.Rs)) + signExtendImm(r.Imm))
	w, err := m.ReadWord(addr)
	if err != nil {
		return Continue, err
	}
	c.SetGPR(r.Rt, w)
	return Continue, nil
}

func execSb(c CPU, m *mem.Memory, r Raw) (Status, error) {
	addr := uint32(int32(c.GPR(r.Rs)) + signExtendImm(r.Imm))
	return Continue, m.SetByte(addr, byte(c.GPR(r.Rt)))
}

func execSw(c CPU, m *mem.Memory, r Raw) (Status, error) {
	addr := uint32(int32(c.GPR(r.Rs)) + signExtendImm(r.Imm))
	return Continue, m.SetWord(addr, c.GPR(r.Rt))
}

func overflowsAdd(a, b, sum int32) bool {
	return (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum > 0)
}

func overflowsSub(a, b, diff int32) bool {
	return (a >= 0 && b < 0 && diff < 0) || (a < 0 && b >= 0 && diff > 0)
}
