// Command mips-ld links one or more relocatable ELF32 object files
// into an executable.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xyproto/name32/internal/config"
	"github.com/xyproto/name32/internal/elf32"
	"github.com/xyproto/name32/internal/linker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		inputs  []string
		output  string
		verbose bool
		dump    bool
	)

	cmd := &cobra.Command{
		Use:           "mips-ld -i INPUT... -o OUTPUT",
		Short:         "Link relocatable ELF32/MIPS objects into an executable",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(inputs, output, verbose, dump)
		},
	}
	cmd.Flags().StringSliceVarP(&inputs, "input", "i", nil, "relocatable object file (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "linked executable path")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each link stage at debug level")
	cmd.Flags().BoolVar(&dump, "dump", false, "log each input module's .text/.data section sizes (requires -v)")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runLink(inputPaths []string, output string, verbose, dump bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose || cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if output == "" {
		output = cfg.LinkerDefaultOut
	}

	inputs := make([]linker.Input, len(inputPaths))
	for i, path := range inputPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		f, err := elf32.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		inputs[i] = linker.Input{Name: path, File: f}

		if dump {
			text, _ := f.FindSection(".text")
			data, _ := f.FindSection(".data")
			log.WithFields(log.Fields{
				"module":    path,
				"text_size": len(text),
				"data_size": len(data),
			}).Debug("section layout")
		}
	}

	out, diags := linker.Link(inputs)
	if diags.HasErrors() {
		fmt.Fprintln(os.Stderr, diags.Error())
		os.Exit(1)
	}

	if err := os.WriteFile(output, out, 0o755); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	log.WithFields(log.Fields{"inputs": inputPaths, "output": output}).Debug("link complete")
	return nil
}
