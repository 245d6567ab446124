// Command mips-as assembles a MIPS32 source file into a relocatable
// ELF32 object.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xyproto/name32/internal/assembler"
	"github.com/xyproto/name32/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "mips-as INPUT [OUTPUT]",
		Short:         "Assemble a MIPS32 source file into a relocatable ELF32 object",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(args, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each assembly pass at debug level")
	return cmd
}

func runAssemble(args []string, verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose || cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	input := args[0]
	output := cfg.AssemblerDefaultOut
	if len(args) == 2 {
		output = args[1]
	}

	source, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}

	state := assembler.Assemble(string(source), filepath.Dir(input))
	if state.Diags.HasErrors() {
		fmt.Fprintln(os.Stderr, state.Diags.Error())
		os.Exit(1)
	}

	if err := os.WriteFile(output, state.Emit(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	log.WithFields(log.Fields{"input": input, "output": output}).Debug("assembly complete")
	return nil
}
