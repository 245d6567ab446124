// Package mem implements the segmented MIPS32 address space: two
// owned byte segments (text, data) with independent [start,end)
// ranges and permission-checked access.
package mem

import "fmt"

// Fixed layout addresses, bit-exact to name-core/src/elf_def.rs.
const (
	TextStart  uint32 = 0x00400000
	DataStart  uint32 = 0x10010000
	StackTop   uint32 = 0x7ffffe00
	StackLimit uint32 = 0x7ffffe00 - 0x00100000 // 1 MiB of stack headroom below the top
)

// FaultKind names the coprocessor-0 exception a Memory violation maps
// onto; the interpreter translates these 1:1 into set_exception calls.
type FaultKind int

const (
	FaultAddressLoad FaultKind = iota
	FaultAddressStore
	FaultBusFetch
)

// Fault is a tagged memory-access error.
type Fault struct {
	Kind FaultKind
	Addr uint32
}

func (f *Fault) Error() string {
	switch f.Kind {
	case FaultAddressLoad:
		return fmt.Sprintf("address exception (load) at 0x%08x", f.Addr)
	case FaultAddressStore:
		return fmt.Sprintf("address exception (store) at 0x%08x", f.Addr)
	case FaultBusFetch:
		return fmt.Sprintf("bus error fetching 0x%08x", f.Addr)
	default:
		return fmt.Sprintf("memory fault at 0x%08x", f.Addr)
	}
}

// Memory holds the two owned byte segments of a running or
// to-be-assembled program.
type Memory struct {
	Text      []byte
	Data      []byte
	TextStart uint32
	TextEnd   uint32
	DataStart uint32
	DataEnd   uint32
}

// New returns a Memory with empty segments anchored at the fixed MIPS
// text/data base addresses.
func New() *Memory {
	return &Memory{
		TextStart: TextStart,
		TextEnd:   TextStart,
		DataStart: DataStart,
		DataEnd:   DataStart,
	}
}

// NewFromBytes builds a Memory around already-assembled/linked
// section bytes, as the interpreter does when loading an executable.
func NewFromBytes(text, data []byte) *Memory {
	return &Memory{
		Text:      text,
		Data:      data,
		TextStart: TextStart,
		TextEnd:   TextStart + uint32(len(text)),
		DataStart: DataStart,
		DataEnd:   DataStart + uint32(len(data)),
	}
}

func (m *Memory) inText(addr uint32) bool {
	return addr >= m.TextStart && addr < m.TextEnd
}

func (m *Memory) inData(addr uint32) bool {
	return addr >= m.DataStart && addr < m.DataEnd
}

// AllowsExecutionOf reports whether addr lies within the owned text
// segment.
func (m *Memory) AllowsExecutionOf(addr uint32) bool {
	return m.inText(addr)
}

// ReadByte returns the byte at addr from whichever segment owns it.
func (m *Memory) ReadByte(addr uint32) (byte, error) {
	switch {
	case m.inText(addr):
		return m.Text[addr-m.TextStart], nil
	case m.inData(addr):
		return m.Data[addr-m.DataStart], nil
	default:
		return 0, &Fault{Kind: FaultAddressLoad, Addr: addr}
	}
}

// ReadWord returns the big-endian 32-bit word at addr, which must be
// 4-byte aligned and fully contained in one segment.
func (m *Memory) ReadWord(addr uint32) (uint32, error) {
	if addr%4 != 0 {
		return 0, &Fault{Kind: FaultAddressLoad, Addr: addr}
	}
	b0, err := m.ReadByte(addr)
	if err != nil {
		return 0, err
	}
	b1, err := m.ReadByte(addr + 1)
	if err != nil {
		return 0, err
	}
	b2, err := m.ReadByte(addr + 2)
	if err != nil {
		return 0, err
	}
	b3, err := m.ReadByte(addr + 3)
	if err != nil {
		return 0, err
	}
	return uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3), nil
}

// SetByte writes a data-segment byte. Writes into the text segment are
// rejected here; only SetTextByte (used exclusively by the debugger's
// breakpoint injector) may mutate .text.
func (m *Memory) SetByte(addr uint32, val byte) error {
	switch {
	case m.inText(addr):
		return &Fault{Kind: FaultAddressStore, Addr: addr}
	case m.inData(addr):
		m.Data[addr-m.DataStart] = val
		return nil
	default:
		return &Fault{Kind: FaultAddressStore, Addr: addr}
	}
}

// SetWord writes a big-endian 32-bit word into the data segment.
func (m *Memory) SetWord(addr uint32, val uint32) error {
	if addr%4 != 0 {
		return &Fault{Kind: FaultAddressStore, Addr: addr}
	}
	if err := m.SetByte(addr, byte(val>>24)); err != nil {
		return err
	}
	if err := m.SetByte(addr+1, byte(val>>16)); err != nil {
		return err
	}
	if err := m.SetByte(addr+2, byte(val>>8)); err != nil {
		return err
	}
	return m.SetByte(addr+3, byte(val))
}

// SetTextByte is the privileged text-segment writer used only by the
// debugger to inject or restore a break instruction. Ordinary
// executors must never call this.
func (m *Memory) SetTextByte(addr uint32, val byte) error {
	if !m.inText(addr) {
		return &Fault{Kind: FaultAddressStore, Addr: addr}
	}
	m.Text[addr-m.TextStart] = val
	return nil
}

// ReadTextWord reads a big-endian word directly from .text, used by
// the fetch stage and by the debugger to inspect/restore instructions.
func (m *Memory) ReadTextWord(addr uint32) (uint32, error) {
	if !m.inText(addr) || addr%4 != 0 {
		return 0, &Fault{Kind: FaultBusFetch, Addr: addr}
	}
	off := addr - m.TextStart
	return uint32(m.Text[off])<<24 | uint32(m.Text[off+1])<<16 | uint32(m.Text[off+2])<<8 | uint32(m.Text[off+3]), nil
}

// SetTextWord writes a big-endian word directly into .text via the
// privileged path, used by the breakpoint injector.
func (m *Memory) SetTextWord(addr uint32, val uint32) error {
	if err := m.SetTextByte(addr, byte(val>>24)); err != nil {
		return err
	}
	if err := m.SetTextByte(addr+1, byte(val>>16)); err != nil {
		return err
	}
	if err := m.SetTextByte(addr+2, byte(val>>8)); err != nil {
		return err
	}
	return m.SetTextByte(addr+3, byte(val))
}

// AppendText appends bytes to .text, growing TextEnd accordingly. Used
// by the assembler while encoding.
func (m *Memory) AppendText(b ...byte) {
	m.Text = append(m.Text, b...)
	m.TextEnd += uint32(len(b))
}

// AppendData appends bytes to .data, growing DataEnd accordingly.
func (m *Memory) AppendData(b ...byte) {
	m.Data = append(m.Data, b...)
	m.DataEnd += uint32(len(b))
}
