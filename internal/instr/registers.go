package instr

import "fmt"

// registerNames maps every named MIPS register alias to its number,
// grounded on spec §6's source-language surface list. $N numeric names
// (0-31) are handled separately in ParseRegister since they are
// regular, not enumerable here.
var registerNames = map[string]uint32{
	"zero": 0,
	"at":   1,
	"v0":   2, "v1": 3,
	"a0": 4, "a1": 5, "a2": 6, "a3": 7,
	"t0": 8, "t1": 9, "t2": 10, "t3": 11, "t4": 12, "t5": 13, "t6": 14, "t7": 15,
	"s0": 16, "s1": 17, "s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"t8": 24, "t9": 25,
	"k0": 26, "k1": 27,
	"gp": 28,
	"sp": 29,
	"fp": 30,
	"ra": 31,
}

// registerNumToName is the inverse table, used by the debugger's
// register dump.
var registerNumToName [32]string

func init() {
	for name, n := range registerNames {
		if registerNumToName[n] == "" || len(name) < len(registerNumToName[n]) {
			registerNumToName[n] = name
		}
	}
}

// RegisterName returns the canonical short name for register n.
func RegisterName(n uint32) string {
	if n > 31 {
		return fmt.Sprintf("$%d", n)
	}
	return "$" + registerNumToName[n&0x1f]
}

// ParseRegister parses a token of the form "$name" or "$N" (with or
// without the leading '$', since the lexer may have already stripped
// it) into a register number 0-31.
func ParseRegister(token string) (uint32, bool) {
	s := token
	if len(s) > 0 && s[0] == '$' {
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}
	if n, ok := registerNames[s]; ok {
		return n, true
	}
	var num uint32
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		num = num*10 + uint32(r-'0')
	}
	if num > 31 {
		return 0, false
	}
	return num, true
}
