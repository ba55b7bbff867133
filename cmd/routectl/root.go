package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigDir string
	Format    string // "json" | "text"
	NoColor   bool
}

var validFormats = []string{"text", "json"}

var (
	styleHeader = color.Style{color.FgCyan, color.OpBold}
	styleCell   = color.Style{color.FgGray}
	styleOutput = color.Style{color.FgGreen, color.OpBold}
	styleWarn   = color.Style{color.FgYellow, color.OpBold}
	styleSubtle = color.Style{color.FgGray, color.OpBold}
)

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "routectl",
		Short: "Inspect factory routes and block catalogs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			if opts.NoColor || opts.Format == "json" {
				color.Disable()
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "configs", "./configs", "config directory")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable coloured output")

	cmd.AddCommand(newInspectCommand(opts))
	cmd.AddCommand(newCatalogCommand(opts))
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
