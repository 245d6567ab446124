package linker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xyproto/name32/internal/assembler"
	"github.com/xyproto/name32/internal/elf32"
)

func assembleObject(t *testing.T, src string) *elf32.File {
	t.Helper()
	s := assembler.Assemble(src, "")
	require.False(t, s.Diags.HasErrors(), "assembling %q: %s", src, s.Diags.Error())
	f, err := elf32.Parse(s.Emit())
	require.NoError(t, err)
	return f
}

func TestLinkSingleModuleResolvesMainEntry(t *testing.T) {
	f := assembleObject(t, ".text\nmain:\naddi $t0, $zero, 1\nsyscall\n")

	out, diags := Link([]Input{{Name: "a.mobj", File: f}})
	require.False(t, diags.HasErrors(), diags.Error())

	linked, err := elf32.Parse(out)
	require.NoError(t, err)
	require.Equal(t, uint16(elf32.ETExec), linked.Header.Type)
	require.Equal(t, uint32(0x00400000), linked.Header.Entry) // main is the first text address
}

func TestLinkSingleModuleFallsBackToTextStartWithoutMain(t *testing.T) {
	f := assembleObject(t, ".text\nnop\n")

	out, diags := Link([]Input{{Name: "a.mobj", File: f}})
	require.False(t, diags.HasErrors(), diags.Error())

	linked, err := elf32.Parse(out)
	require.NoError(t, err)
	require.Equal(t, uint32(0x00400000), linked.Header.Entry)
}

func TestLinkMultipleModulesConsolidatesText(t *testing.T) {
	a := assembleObject(t, ".text\nmain:\nnop\nnop\n")
	b := assembleObject(t, ".text\nnop\n")

	out, diags := Link([]Input{{Name: "a.mobj", File: a}, {Name: "b.mobj", File: b}})
	require.False(t, diags.HasErrors(), diags.Error())

	linked, err := elf32.Parse(out)
	require.NoError(t, err)
	text, ok := linked.FindSection(".text")
	require.True(t, ok)
	require.Len(t, text, 12) // 2 instructions from a + 1 from b, 4 bytes each
}

func TestLinkReportsConformityErrorsWithoutPanicking(t *testing.T) {
	malformed := &elf32.File{}
	_, diags := Link([]Input{{Name: "bad.mobj", File: malformed}})
	require.True(t, diags.HasErrors())
}

func TestLinkMultipleModulesAllowsSameLocalNameInSeparateModules(t *testing.T) {
	a := assembleObject(t, ".text\nmain:\nnop\nj dup\ndup:\nnop\n")
	b := assembleObject(t, ".text\ndup:\nnop\n")

	_, diags := Link([]Input{{Name: "a.mobj", File: a}, {Name: "b.mobj", File: b}})
	require.False(t, diags.HasErrors(), "duplicate labels in separate modules' local scopes must not collide")
}
