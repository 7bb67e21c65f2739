package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/world-editor/pkg/schema"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:           "validate <world.json>...",
		Short:         "Check world files against the editor schema",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, filename := range args {
				if err := validateFile(cmd, filename, strict); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d world files invalid", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	return cmd
}

func validateFile(cmd *cobra.Command, filename string, strict bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n", filename)

	if !strings.HasSuffix(filename, ".json") {
		return fmt.Errorf("world file must have .json extension: %s", filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	validator := NewWorldValidator(schema.Default())
	err = validator.Validate(data)
	if warnings := validator.Warnings(); len(warnings) > 0 {
		fmt.Fprintf(out, "Warnings in %s:\n%s\n", filename, strings.Join(warnings, "\n"))
		if err == nil && strict {
			return fmt.Errorf("%s has %d warnings", filename, len(warnings))
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	fmt.Fprintln(out, "World file is valid!")
	return nil
}
