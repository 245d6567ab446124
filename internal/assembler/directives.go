package assembler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/name32/internal/diag"
)

// handleDirective dispatches a parsed directive to its handler,
// grounded on name-as's directive_handler.rs. Only the directives
// named in the source language surface are supported: .text, .data,
// .eqv, .include, .asciiz.
func (s *State) handleDirective(name string, args []Component) {
	switch name {
	case "data":
		s.switchToDataSection()
	case "text":
		s.switchToTextSection()
	case "eqv":
		s.newEqv(args)
	case "include":
		s.includeFile(args)
	case "asciiz":
		s.addAsciiz(args)
	default:
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "unrecognized directive %q", name)
	}
}

func (s *State) switchToTextSection() {
	switch s.CurrentSection {
	case SectionNull:
		s.CurrentAddress = s.TextCounter
	case SectionText:
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "cannot declare .text when already in .text")
	case SectionData:
		s.DataAddress = s.CurrentAddress
		s.CurrentAddress = s.TextCounter
	}
	s.CurrentSection = SectionText
}

func (s *State) switchToDataSection() {
	switch s.CurrentSection {
	case SectionNull:
		s.CurrentAddress = s.DataAddress
	case SectionText:
		s.TextCounter = s.CurrentAddress
		s.CurrentAddress = s.DataAddress
	case SectionData:
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "cannot declare .data when already in .data")
	}
	s.CurrentSection = SectionData
}

// newEqv registers a token substitution, matching name-as's new_eqv:
// the first argument must be an identifier naming the macro, the rest
// is re-joined with spaces as its expansion text.
func (s *State) newEqv(args []Component) {
	if len(args) < 2 {
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "`.eqv` expected 2 or more arguments, got %d", len(args))
		return
	}
	if args[0].Kind != CompIdentifier {
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "`.eqv` expected an identifier name")
		return
	}
	name := args[0].Text
	parts := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		parts = append(parts, a.String())
	}
	s.Equivalences[name] = strings.Join(parts, " ")
}

// includeFile reads filename and processes only .eqv-style
// preprocessor lines from it, per spec §4.6's open-question
// resolution: comments are tolerated, ordinary code is an error.
func (s *State) includeFile(args []Component) {
	if len(args) != 1 || args[0].Kind != CompString {
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "`.include` expects a single double-quoted filename")
		return
	}
	path := args[0].Text
	if s.CurrentDir != "" {
		path = filepath.Join(s.CurrentDir, path)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "could not open file %q: %s", path, err)
		return
	}

	for _, line := range strings.Split(string(contents), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !strings.HasPrefix(trimmed, ".eqv") {
			s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "`.include` files may only contain preprocessor macros, found %q", trimmed)
			continue
		}
		components, err := tokenizeLine(trimmed)
		if err != nil {
			s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "%s", err)
			continue
		}
		if len(components) < 2 || components[0].Kind != CompDirective {
			s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "malformed `.eqv` line in included file")
			continue
		}
		s.newEqv(components[1:])
	}
}

// addAsciiz appends a NUL-terminated string literal to .data, matching
// name-as's add_new_asciiz: advances current_address and updates the
// most recently declared label's size to the bytes written.
func (s *State) addAsciiz(args []Component) {
	if len(args) != 1 || args[0].Kind != CompString {
		s.Diags.Errorf(diag.StageAssemble, s.LineNumber, "`.asciiz` expects a single double-quoted argument")
		return
	}
	bytes := append([]byte(args[0].Text), 0)
	s.CurrentAddress += uint32(len(bytes))
	s.Data = append(s.Data, bytes...)

	if idx := s.findSymbolIndex(s.MostRecentLabel); idx >= 0 {
		s.Symbols[idx].Size = uint32(len(bytes))
	}
}
