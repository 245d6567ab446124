// Package debugger implements the interactive line-oriented debugger:
// breakpoint injection via the `break` instruction, and a stdin
// command loop (r, c, s, l, p, m, pa, pb, b, del, help, q) driving an
// interp.Interp one step at a time.
package debugger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xyproto/name32/internal/instr"
	"github.com/xyproto/name32/internal/interp"
)

// Debugger owns the interpreter it steps and the breakpoint/listing
// state built up over a session.
type Debugger struct {
	Interp *interp.Interp
	State  *State
	out    io.Writer
	in     *bufio.Scanner
}

// New returns a Debugger for ip, enabling CP0's DebugMode bit so
// Step reports Break instead of treating breakpoints as fatal.
func New(ip *interp.Interp, in io.Reader, out io.Writer) *Debugger {
	ip.CPU.Cp0.SetDebugMode(true)
	return &Debugger{
		Interp: ip,
		State:  NewState(),
		out:    out,
		in:     bufio.NewScanner(in),
	}
}

// Run prints the banner and drives the command loop until `q`/`quit`/
// `exit`, or stdin closes.
func (d *Debugger) Run() error {
	fmt.Fprintln(d.out, "Welcome to the name32 debugger.")
	fmt.Fprintln(d.out, `For a list of commands, type "help".`)

	for {
		fmt.Fprint(d.out, "(name-db) ")
		if !d.in.Scan() {
			return nil
		}
		args := strings.Fields(d.in.Text())
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "r", "c":
			d.continuousExecute()
		case "s":
			d.step()
		case "l":
			d.list(args)
		case "p":
			d.printRegister(args)
		case "m":
			d.modifyRegister(args)
		case "pa":
			d.printAllRegisters(args)
		case "pb":
			d.State.PrintAllBreakpoints(d.out)
		case "b":
			d.addBreakpoint(args)
		case "del":
			d.removeBreakpoint(args)
		case "help":
			d.help(args)
		case "q", "quit", "exit":
			return nil
		default:
			fmt.Fprintln(d.out, `Option not recognized. Use "help" to view accepted options.`)
		}
	}
}

// continuousExecute drives Step until a breakpoint, a clean exit, or a
// fatal error, handling any breakpoint hit exactly once before
// resuming the loop via `c`'s caller -- `r` and `c` share this since
// the original source treats them identically once a program is
// running.
func (d *Debugger) continuousExecute() {
	for {
		status, err := d.Interp.Step()
		if err != nil {
			fmt.Fprintln(d.out, err)
			return
		}
		switch status {
		case instr.Continue:
			continue
		case instr.Break:
			d.handleBreakpoint()
			return
		case instr.Complete:
			return
		}
	}
}

// step executes exactly one instruction and reports a trapped
// breakpoint the same way continuousExecute does.
func (d *Debugger) step() {
	status, err := d.Interp.Step()
	if err != nil {
		fmt.Fprintln(d.out, err)
		return
	}
	if status == instr.Break {
		d.handleBreakpoint()
	}
}

// handleBreakpoint restores the trapped breakpoint's original
// instruction, executes it exactly once, re-injects the breakpoint so
// a later pass through the same address (a loop body, say) traps
// again, then returns control to the command prompt. AlreadyExecuted
// records that this breakpoint has fired at least once.
func (d *Debugger) handleBreakpoint() {
	addr := d.Interp.CPU.Cp0.EPC()
	word, err := d.Interp.Mem.ReadTextWord(addr)
	if err != nil {
		fmt.Fprintln(d.out, err)
		d.Interp.CPU.RecoverFromException()
		return
	}
	bp, ok := d.State.breakpointForTrappedWord(addr, word)
	if !ok {
		fmt.Fprintf(d.out, "breakpoint trapped at 0x%08x but no matching record found\n", addr)
		d.Interp.CPU.RecoverFromException()
		return
	}

	if line, ok := lineForAddress(d.Interp.Lines, addr); ok {
		fmt.Fprintf(d.out, "Breakpoint at line %d reached.\n", line.LineNumber)
	}

	if err := bp.restore(d.Interp.Mem); err != nil {
		fmt.Fprintln(d.out, err)
		return
	}
	d.Interp.CPU.RecoverFromException()
	d.Interp.CPU.SetPC(addr)
	if _, err := d.Interp.Step(); err != nil {
		fmt.Fprintln(d.out, err)
		return
	}
	if err := bp.inject(d.Interp.Mem, bp.Num); err != nil {
		fmt.Fprintln(d.out, err)
		return
	}
	bp.AlreadyExecuted = true
}

func (d *Debugger) list(args []string) {
	switch len(args) {
	case 1:
		d.State.ListLines(d.Interp.Lines, 0, d.out)
	case 2:
		if args[1] == "all" {
			ListAll(d.Interp.Lines, d.out)
			return
		}
		lnum, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(d.out, `l expects an unsigned int or "all" as an argument`)
			return
		}
		if lnum > len(d.Interp.Lines) {
			fmt.Fprintf(d.out, "%d out of bounds of program.\n", lnum)
			return
		}
		d.State.ListLines(d.Interp.Lines, lnum, d.out)
	default:
		fmt.Fprintf(d.out, "l expects 0 or 1 arguments, received %d\n", len(args)-1)
	}
}

func (d *Debugger) printRegister(args []string) {
	if len(args) < 2 {
		fmt.Fprintf(d.out, "p expects a non-zero argument, received %d\n", len(args)-1)
		return
	}
	for _, tok := range args[1:] {
		switch {
		case strings.HasPrefix(tok, "#"):
			addr, err := strconv.ParseUint(tok[1:], 16, 32)
			if err != nil {
				fmt.Fprintf(d.out, "%s is not a valid hex address.\n", tok)
				return
			}
			b, err := d.Interp.Mem.ReadByte(uint32(addr))
			if err != nil {
				fmt.Fprintln(d.out, err)
				return
			}
			fmt.Fprintf(d.out, "Value at address 0x%08x is %02x\n", addr, b)
		case strings.HasPrefix(tok, "$"):
			n, ok := instr.ParseRegister(tok)
			if !ok {
				fmt.Fprintf(d.out, "%s is not a valid register.\n", tok)
				return
			}
			fmt.Fprintf(d.out, "Value in register %s is %08x\n", instr.RegisterName(n), d.Interp.CPU.GPR(n))
		default:
			fmt.Fprintln(d.out, "Congrats! You discovered an unimplemented feature... or you forgot the dollar sign on your register.")
			return
		}
	}
}

// modifyRegister implements `m $reg value`, writing value into the
// named general-purpose register.
func (d *Debugger) modifyRegister(args []string) {
	if len(args) != 3 {
		fmt.Fprintf(d.out, "m expects 2 arguments, received %d\n", len(args)-1)
		return
	}
	if !strings.HasPrefix(args[1], "$") {
		fmt.Fprintln(d.out, "Congrats! You discovered an unimplemented feature... or you forgot the dollar sign on your register.")
		return
	}
	n, ok := instr.ParseRegister(args[1])
	if !ok {
		fmt.Fprintf(d.out, "%s is not a valid register.\n", args[1])
		return
	}
	value, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		fmt.Fprintf(d.out, "%s is not a valid value.\n", args[2])
		return
	}
	d.Interp.CPU.SetGPR(n, uint32(value))
	fmt.Fprintf(d.out, "Register %s set to %08x\n", instr.RegisterName(n), uint32(value))
}

func (d *Debugger) printAllRegisters(args []string) {
	if len(args) != 1 {
		fmt.Fprintf(d.out, "pa expects 0 arguments, received %d\n", len(args)-1)
		return
	}
	for n := uint32(0); n < 32; n++ {
		fmt.Fprintf(d.out, "%5s: %08x\n", instr.RegisterName(n), d.Interp.CPU.GPR(n))
	}
}

func (d *Debugger) addBreakpoint(args []string) {
	if len(args) != 2 {
		fmt.Fprintf(d.out, "b expects 1 argument, received %d\n", len(args)-1)
		return
	}
	lineNum, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fmt.Fprintln(d.out, "b takes an unsigned int as input")
		return
	}
	bp, err := d.State.AddBreakpoint(d.Interp.Lines, d.Interp.Mem, uint32(lineNum))
	if err != nil {
		fmt.Fprintln(d.out, err)
		return
	}
	fmt.Fprintf(d.out, "Successfully added breakpoint %d at line %d.\n", bp.Num, bp.Line)
}

func (d *Debugger) removeBreakpoint(args []string) {
	if len(args) != 2 {
		fmt.Fprintf(d.out, "del expects 1 argument, received %d\n", len(args)-1)
		return
	}
	num, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintln(d.out, "del takes an integer as input")
		return
	}
	bp, err := d.State.RemoveBreakpoint(d.Interp.Mem, num)
	if err != nil {
		fmt.Fprintln(d.out, err)
		return
	}
	fmt.Fprintf(d.out, "Removed breakpoint %d at line %d.\n", bp.Num, bp.Line)
}

func (d *Debugger) help(args []string) {
	if len(args) == 1 {
		fmt.Fprintln(d.out, "help - Display this menu.")
		fmt.Fprintln(d.out, "help [CMD] - Get more information about a specific db command CMD.")
		fmt.Fprintln(d.out, "r - Begin execution of program.")
		fmt.Fprintln(d.out, "c - Continue program execution until the next breakpoint.")
		fmt.Fprintln(d.out, "s - Execute only the next instruction.")
		fmt.Fprintln(d.out, "l [N|all] - Print a window of the program (around line N if given); l all prints the entire program.")
		fmt.Fprintln(d.out, "p - Print the value of a register (or registers); include the dollar sign. Also accepts #addr to print a byte of memory.")
		fmt.Fprintln(d.out, "m [$reg] [value] - Modify the value stored in a register.")
		fmt.Fprintln(d.out, "pa - Print value of ALL registers at once.")
		fmt.Fprintln(d.out, "pb - Print all breakpoints.")
		fmt.Fprintln(d.out, "b [N] - Insert a breakpoint at line number N.")
		fmt.Fprintln(d.out, "del [N] - Delete breakpoint number N.")
		fmt.Fprintln(d.out, "q - Exit (quit) debugger.")
		return
	}
	if len(args) != 2 {
		return
	}
	switch args[1] {
	case "r":
		fmt.Fprintln(d.out, "Begin execution of program.")
	case "c":
		fmt.Fprintln(d.out, "Continue program execution until the next breakpoint.")
	case "s":
		fmt.Fprintln(d.out, "Execute only the next instruction.")
	case "l":
		fmt.Fprintln(d.out, "When provided no arguments: print a window around the current listing position.")
		fmt.Fprintln(d.out, "When provided a line number: print 9 lines around the given line number.")
		fmt.Fprintln(d.out, `When provided "all": print the entire program.`)
	case "p":
		fmt.Fprintln(d.out, "Print the value stored in the provided register, or the byte at the provided #addr.")
	case "m":
		fmt.Fprintln(d.out, "Set the provided register to the provided value.")
	case "pa":
		fmt.Fprintln(d.out, "Print each register and the value stored therein.")
	case "pb":
		fmt.Fprintln(d.out, "Print all user-created breakpoints.")
	case "b":
		fmt.Fprintln(d.out, "Insert a breakpoint at the line number provided.")
	case "del":
		fmt.Fprintln(d.out, "Delete the breakpoint with the associated number.")
	case "help":
		fmt.Fprintln(d.out, "you're funny")
	case "q":
		fmt.Fprintln(d.out, "Exit the debugger.")
	default:
		fmt.Fprintf(d.out, "%s is either not recognized as a valid command or the help menu for it was neglected to be implemented.\n", args[1])
	}
}
