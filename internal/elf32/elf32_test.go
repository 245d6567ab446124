package elf32

import "testing"

func TestBuildAndParseRoundTripRelocatable(t *testing.T) {
	symtab, strtab := BuildSymtab([]Symbol{
		{Identifier: "main", Value: 0x00400000, Size: 4, Visibility: Global, Type: SttFunc, Section: SecText},
	})
	sections := Sections{
		Data:   []byte{1, 2, 3, 4},
		Text:   []byte{0, 0, 0, 0},
		Rel:    MarshalRelocations([]RelocationEntry{{Offset: 0x00400000, Sym: 1, Kind: RelHi16}}),
		Symtab: symtab,
		Strtab: strtab,
		Line:   MarshalLineInfo([]LineInfo{{Content: "nop", LineNumber: 1, StartAddress: 0x00400000, EndAddress: 0x00400004}}),
	}

	built := Build(Kind{Executable: false}, sections)
	raw := built.Marshal()

	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Header.Type != ETRel {
		t.Fatalf("Header.Type = %d, want ETRel", parsed.Header.Type)
	}

	text, ok := parsed.FindSection(".text")
	if !ok || len(text) != 4 {
		t.Fatalf(".text missing or wrong size: %v, ok=%v", text, ok)
	}
	data, ok := parsed.FindSection(".data")
	if !ok || len(data) != 4 {
		t.Fatalf(".data missing or wrong size: %v, ok=%v", data, ok)
	}
}

func TestBuildExecutableOmitsRelSection(t *testing.T) {
	built := Build(Kind{Executable: true, Entry: 0x00400000}, Sections{
		Data: []byte{1}, Text: []byte{0, 0, 0, 0},
	})
	raw := built.Marshal()
	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Header.Type != ETExec {
		t.Fatalf("Header.Type = %d, want ETExec", parsed.Header.Type)
	}
	if parsed.Header.Entry != 0x00400000 {
		t.Fatalf("Entry = %#x, want 0x00400000", parsed.Header.Entry)
	}
	if _, ok := parsed.FindSection(".rel"); ok {
		t.Fatal("executable must not carry a .rel section")
	}
}

func TestMarshalLineInfoRoundTrip(t *testing.T) {
	lines := []LineInfo{
		{Content: "add $t0, $t1, $t2", LineNumber: 3, StartAddress: 0x00400004, EndAddress: 0x00400008},
		{Content: "syscall", LineNumber: 4, StartAddress: 0x00400008, EndAddress: 0x0040000c},
	}
	out := ParseLineInfo(MarshalLineInfo(lines))
	if len(out) != 2 {
		t.Fatalf("got %d line records, want 2", len(out))
	}
	if out[0].Content != lines[0].Content || out[0].LineNumber != lines[0].LineNumber {
		t.Fatalf("got %+v, want %+v", out[0], lines[0])
	}
}

func TestMarshalRelocationsRoundTrip(t *testing.T) {
	entries := []RelocationEntry{
		{Offset: 0x00400000, Sym: 1, Kind: RelHi16},
		{Offset: 0x00400004, Sym: 1, Kind: RelLo16},
	}
	out := ParseRelocations(MarshalRelocations(entries))
	if len(out) != 2 {
		t.Fatalf("got %d relocations, want 2", len(out))
	}
	if out[0].Kind != RelHi16 || out[1].Kind != RelLo16 {
		t.Fatalf("got kinds %v,%v, want Hi16,Lo16", out[0].Kind, out[1].Kind)
	}
}

func TestBuildSymtabAndLinkedNameRoundTrip(t *testing.T) {
	symtab, strtab := BuildSymtab([]Symbol{
		{Identifier: "main", Value: 0x00400000, Visibility: Global, Type: SttFunc, Section: SecText},
	})
	syms := ParseSymbols(symtab)
	if len(syms) != 2 { // null entry + main
		t.Fatalf("got %d symbols, want 2", len(syms))
	}
	if got := syms[1].LinkedName(strtab); got != "main" {
		t.Fatalf("LinkedName = %q, want main", got)
	}
	if syms[1].Bind() != StbGlobal {
		t.Fatalf("Bind = %d, want StbGlobal", syms[1].Bind())
	}
}

func TestValidateRejectsMalformedObject(t *testing.T) {
	d := Validate(&File{}, "bad.mobj")
	if !d.HasErrors() {
		t.Fatal("expected Validate to reject a zero-value File")
	}
}

func TestValidateAcceptsWellFormedObject(t *testing.T) {
	symtab, strtab := BuildSymtab(nil)
	built := Build(Kind{Executable: false}, Sections{
		Data: nil, Text: []byte{0, 0, 0, 0},
		Rel: nil, Symtab: symtab, Strtab: strtab, Line: nil,
	})
	d := Validate(built, "ok.mobj")
	if d.HasErrors() {
		t.Fatalf("unexpected errors: %s", d.Error())
	}
}
