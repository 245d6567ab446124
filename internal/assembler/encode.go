package assembler

import (
	"encoding/binary"
	"fmt"

	"github.com/xyproto/name32/internal/instr"
)

const maxU16 = 0xFFFF
const minU16 = -0xFFFF

// matchShape reports whether args' component kinds satisfy shape,
// grounded on name-as's arg_configuration_is_ok.
func matchShape(args []Component, shape []instr.ArgKind) bool {
	if len(args) != len(shape) {
		return false
	}
	for i, a := range args {
		switch shape[i] {
		case instr.ArgRd, instr.ArgRs, instr.ArgRt:
			if a.Kind != CompRegister {
				return false
			}
		case instr.ArgImmediate:
			if a.Kind != CompImmediate {
				return false
			}
		case instr.ArgIdentifier, instr.ArgBranchLabel:
			if a.Kind != CompIdentifier {
				return false
			}
		}
	}
	return true
}

// selectShape finds the argument shape (canonical or alternate) that
// matches the parsed arguments, grounded on assemble_instruction's
// alt_args fallback logic.
func selectShape(info *instr.Info, args []Component) ([]instr.ArgKind, error) {
	for _, shape := range info.ArgShapes() {
		if matchShape(args, shape) {
			return shape, nil
		}
	}
	return nil, fmt.Errorf("`%s` given bad arguments", info.Mnemonic)
}

// encodeResult is what assembleAtAddress returns: either a fully
// resolved word, or a request to enqueue a backpatch for the named
// identifier.
type encodeResult struct {
	Word     uint32
	Resolved bool
	Pending  string // identifier awaiting definition, when !Resolved
}

// assembleAtAddress packs one real instruction's word given its
// already-matched argument shape and the symbol table as known at
// address addr, mirroring name-as's assemble_r_type/i_type/j_type.
func assembleAtAddress(s *State, info *instr.Info, args []Component, shape []instr.ArgKind, addr uint32) (encodeResult, error) {
	switch info.Format {
	case instr.RType:
		return assembleRType(info, args, shape)
	case instr.IType:
		return assembleIType(s, info, args, shape, addr)
	case instr.JType:
		return assembleJType(s, info, args, shape)
	default:
		return encodeResult{}, fmt.Errorf("unknown instruction format for `%s`", info.Mnemonic)
	}
}

func regValue(c Component) (uint32, error) {
	n, ok := instr.ParseRegister(c.Text)
	if !ok {
		return 0, fmt.Errorf("invalid register %q", c.Text)
	}
	return n, nil
}

func assembleRType(info *instr.Info, args []Component, shape []instr.ArgKind) (encodeResult, error) {
	var rd, rs, rt, shamt uint32
	for i, a := range args {
		switch shape[i] {
		case instr.ArgRd:
			v, err := regValue(a)
			if err != nil {
				return encodeResult{}, err
			}
			rd = v
		case instr.ArgRs:
			v, err := regValue(a)
			if err != nil {
				return encodeResult{}, err
			}
			rs = v
		case instr.ArgRt:
			v, err := regValue(a)
			if err != nil {
				return encodeResult{}, err
			}
			rt = v
		case instr.ArgImmediate:
			if a.Imm < 0 || a.Imm > 31 {
				return encodeResult{}, fmt.Errorf("shift amount out of range on `%s`", info.Mnemonic)
			}
			shamt = uint32(a.Imm)
		}
	}
	word := rs<<21 | rt<<16 | rd<<11 | shamt<<6 | info.Funct
	return encodeResult{Word: word, Resolved: true}, nil
}

func assembleIType(s *State, info *instr.Info, args []Component, shape []instr.ArgKind, addr uint32) (encodeResult, error) {
	var rs, rt uint32
	var imm int32
	haveImm := false
	var identifier string
	isBranch := false

	for i, a := range args {
		switch shape[i] {
		case instr.ArgRs:
			v, err := regValue(a)
			if err != nil {
				return encodeResult{}, err
			}
			rs = v
		case instr.ArgRt:
			v, err := regValue(a)
			if err != nil {
				return encodeResult{}, err
			}
			rt = v
		case instr.ArgImmediate:
			imm, haveImm = a.Imm, true
		case instr.ArgIdentifier, instr.ArgBranchLabel:
			identifier = a.Text
			isBranch = shape[i] == instr.ArgBranchLabel
		}
	}

	if identifier != "" {
		target, ok := s.symbolValue(identifier)
		if !ok {
			// Placeholder word: opcode/rs/rt bits are already known, only
			// the immediate/offset field (still undefined) is zeroed.
			partial := info.Opcode<<26 | rs<<21 | rt<<16
			return encodeResult{Word: partial, Resolved: false, Pending: identifier}, nil
		}
		if isBranch {
			offset := (int32(target) - int32(addr)) >> 2
			offset--
			if int32(int16(offset)) != offset {
				return encodeResult{}, fmt.Errorf("branch target misaligned or out of range on `%s`", info.Mnemonic)
			}
			imm, haveImm = offset, true
		} else {
			if int32(int16(target)) != int32(target) {
				return encodeResult{}, fmt.Errorf("identifier %q out of storable range for `%s`", identifier, info.Mnemonic)
			}
			imm, haveImm = int32(target), true
		}
	}

	if !haveImm {
		imm = 0
	}
	if imm > maxU16 || imm < minU16 {
		return encodeResult{}, fmt.Errorf("immediate exceeds 16 bits on `%s`", info.Mnemonic)
	}

	packedImm := uint32(uint16(int16(imm)))
	word := info.Opcode<<26 | rs<<21 | rt<<16 | packedImm
	return encodeResult{Word: word, Resolved: true}, nil
}

func assembleJType(s *State, info *instr.Info, args []Component, shape []instr.ArgKind) (encodeResult, error) {
	var identifier string
	for i, a := range args {
		if shape[i] == instr.ArgBranchLabel || shape[i] == instr.ArgIdentifier {
			identifier = a.Text
		}
	}
	if identifier == "" {
		return encodeResult{}, fmt.Errorf("no identifier provided for `%s`", info.Mnemonic)
	}

	target, ok := s.symbolValue(identifier)
	if !ok {
		// Placeholder word: opcode bits are already known, only the
		// target field (still undefined) is zeroed.
		return encodeResult{Word: info.Opcode << 26, Resolved: false, Pending: identifier}, nil
	}

	address := target >> 2
	if address&0xFC000000 != 0 {
		return encodeResult{}, fmt.Errorf("target address out of range for `%s`", info.Mnemonic)
	}
	return encodeResult{Word: info.Opcode<<26 | address, Resolved: true}, nil
}

func putWordBE(b []byte, off uint32, word uint32) {
	binary.BigEndian.PutUint32(b[off:off+4], word)
}
