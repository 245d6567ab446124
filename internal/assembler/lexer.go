// Package assembler implements the two-pass MIPS32 assembler: a
// per-line tokenizer, pseudo-instruction and .eqv expansion, a
// backpatch queue for forward references, and final ELF32 object
// emission.
package assembler

import (
	"fmt"
	"strconv"
	"strings"
)

// ComponentKind tags one token produced by tokenizeLine.
type ComponentKind int

const (
	CompMnemonic ComponentKind = iota
	CompRegister
	CompImmediate
	CompIdentifier
	CompLabel
	CompDirective
	CompString
	CompColon
)

// Component is one tagged token of an assembly source line.
type Component struct {
	Kind ComponentKind
	Text string // raw text for Register/Identifier/Label/Directive/Mnemonic/String
	Imm  int32  // populated for CompImmediate
}

func (c Component) String() string {
	switch c.Kind {
	case CompRegister:
		return "$" + c.Text
	case CompImmediate:
		return strconv.Itoa(int(c.Imm))
	case CompString:
		return `"` + c.Text + `"`
	case CompLabel:
		return c.Text + ":"
	case CompDirective:
		return "." + c.Text
	default:
		return c.Text
	}
}

func isIdentStart(r byte) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r byte) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r byte) bool { return r >= '0' && r <= '9' }

// tokenizeLine scans one source line into an ordered component
// sequence, per spec §5's recognised atoms: directive (.name), label
// (name:), register ($name), identifier (name), numeric literal
// (decimal/0x/0b/0 with optional leading -), quoted string. Whitespace,
// commas, and parentheses are skipped; '#' starts a line comment.
func tokenizeLine(line string) ([]Component, error) {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}

	var out []Component
	i := 0
	n := len(line)

	for i < n {
		ch := line[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == ',' || ch == '(' || ch == ')':
			i++

		case ch == ':':
			out = append(out, Component{Kind: CompColon})
			i++

		case ch == '"':
			j := i + 1
			var sb strings.Builder
			for j < n && line[j] != '"' {
				if line[j] == '\\' && j+1 < n {
					switch line[j+1] {
					case 'n':
						sb.WriteByte('\n')
					case 't':
						sb.WriteByte('\t')
					case '"':
						sb.WriteByte('"')
					case '\\':
						sb.WriteByte('\\')
					default:
						sb.WriteByte(line[j+1])
					}
					j += 2
					continue
				}
				sb.WriteByte(line[j])
				j++
			}
			if j >= n {
				return nil, fmt.Errorf("unterminated string literal")
			}
			out = append(out, Component{Kind: CompString, Text: sb.String()})
			i = j + 1

		case ch == '.':
			j := i + 1
			for j < n && isIdentCont(line[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("malformed directive at column %d", i+1)
			}
			out = append(out, Component{Kind: CompDirective, Text: line[i+1 : j]})
			i = j

		case ch == '$':
			j := i + 1
			for j < n && isIdentCont(line[j]) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("malformed register at column %d", i+1)
			}
			out = append(out, Component{Kind: CompRegister, Text: line[i+1 : j]})
			i = j

		case ch == '-' || isDigit(ch):
			j := i + 1
			if ch == '-' {
				if j >= n || !isDigit(line[j]) {
					return nil, fmt.Errorf("malformed numeric literal at column %d", i+1)
				}
			}
			for j < n && (isIdentCont(line[j])) {
				j++
			}
			imm, err := parseImmediate(line[i:j])
			if err != nil {
				return nil, err
			}
			out = append(out, Component{Kind: CompImmediate, Imm: imm})
			i = j

		case isIdentStart(ch):
			j := i + 1
			for j < n && isIdentCont(line[j]) {
				j++
			}
			if j < n && line[j] == ':' {
				out = append(out, Component{Kind: CompLabel, Text: line[i:j]})
				i = j + 1
				continue
			}
			out = append(out, Component{Kind: CompIdentifier, Text: line[i:j]})
			i = j

		default:
			return nil, fmt.Errorf("unrecognized character %q at column %d", ch, i+1)
		}
	}

	return out, nil
}

// parseImmediate decodes a decimal, 0x-hex, 0b-binary, or 0-octal
// literal, with optional leading '-'.
func parseImmediate(tok string) (int32, error) {
	neg := false
	if strings.HasPrefix(tok, "-") {
		neg = true
		tok = tok[1:]
	}
	var v int64
	var err error
	switch {
	case strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X"):
		v, err = strconv.ParseInt(tok[2:], 16, 64)
	case strings.HasPrefix(tok, "0b") || strings.HasPrefix(tok, "0B"):
		v, err = strconv.ParseInt(tok[2:], 2, 64)
	case strings.HasPrefix(tok, "0") && len(tok) > 1:
		v, err = strconv.ParseInt(tok, 8, 64)
	default:
		v, err = strconv.ParseInt(tok, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("malformed numeric literal %q: %w", tok, err)
	}
	if neg {
		v = -v
	}
	return int32(v), nil
}
