// Command hl7-gen writes typed Go wrappers for HL7 v2 message structures
// from the schema tables.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/codegen"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hl7-gen [flags] STRUCTURE...",
		Short: "Generate typed HL7 v2 structure wrappers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, _ := cmd.Flags().GetString("version")
			pkg, _ := cmd.Flags().GetString("package")
			out, _ := cmd.Flags().GetString("out")
			tables, _ := cmd.Flags().GetString("tables")
			return run(cmd, version, pkg, out, tables, args)
		},
	}
	cmd.Flags().String("version", "2.5", "HL7 version to read structures from")
	cmd.Flags().String("package", "", "Go package name (default: v + version without dots)")
	cmd.Flags().String("out", ".", "Output directory")
	cmd.Flags().String("tables", "", "Directory of extra schema tables to load")
	return cmd
}

func run(cmd *cobra.Command, version, pkg, out, tables string, structures []string) error {
	registry, err := schema.NewRegistry(zerolog.Nop())
	if err != nil {
		return err
	}
	if tables != "" {
		if err := registry.LoadDir(tables); err != nil {
			return err
		}
	}
	v, err := registry.Version(version)
	if err != nil {
		return err
	}
	if pkg == "" {
		pkg = defaultPackage(version)
	}

	for _, structure := range structures {
		src, err := codegen.Generate(codegen.Options{Package: pkg, Version: v}, structure)
		if err != nil {
			return err
		}
		path := filepath.Join(out, codegen.FileName(structure))
		if err := os.WriteFile(path, src, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	}
	return nil
}

// defaultPackage turns 2.5.1 into v251.
func defaultPackage(version string) string {
	b := []byte{'v'}
	for i := 0; i < len(version); i++ {
		if version[i] != '.' {
			b = append(b, version[i])
		}
	}
	return string(b)
}
