package assembler

import "github.com/xyproto/name32/internal/elf32"

// Emit builds the relocatable ELF32 object for one assembled module,
// ready for the linker's conformity gate.
func (s *State) Emit() []byte {
	symtab, strtab := elf32.BuildSymtab(s.Symbols)

	sections := elf32.Sections{
		Data:   s.Data,
		Text:   s.Text,
		Rel:    elf32.MarshalRelocations(s.Rel),
		Symtab: symtab,
		Strtab: strtab,
		Line:   elf32.MarshalLineInfo(s.Line),
	}

	file := elf32.Build(elf32.Kind{Executable: false}, sections)
	return file.Marshal()
}
