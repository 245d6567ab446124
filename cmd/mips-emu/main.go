// Command mips-emu runs a linked MIPS32/ELF32 executable, optionally
// under the interactive debugger.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xyproto/name32/internal/config"
	"github.com/xyproto/name32/internal/debugger"
	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/interp"
	"github.com/xyproto/name32/internal/mem"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		debug   bool
	)

	cmd := &cobra.Command{
		Use:           "mips-emu INPUT",
		Short:         "Run a linked MIPS32/ELF32 executable",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmu(args[0], verbose, debug)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log execution at debug level")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enter the interactive debugger before running")
	return cmd
}

func runEmu(path string, verbose, debug bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose || cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := elf32.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	text, _ := f.FindSection(".text")
	data, _ := f.FindSection(".data")
	lineBody, _ := f.FindSection(".line")
	lines := elf32.ParseLineInfo(lineBody)

	m := mem.NewFromBytes(text, data)
	ip := interp.New(m, lines, os.Stdin, os.Stdout)
	ip.CPU.SetPC(f.Header.Entry)

	if debug {
		return debugger.New(ip, os.Stdin, os.Stdout).Run()
	}

	if err := ip.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return nil
}
