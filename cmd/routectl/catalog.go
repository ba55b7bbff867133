package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"factorycraft.ai/internal/sim/catalogs"
)

type catalogEntry struct {
	Kind int `json:"kind"`
	catalogs.BlockDef
}

type catalogReport struct {
	PaletteDigest string         `json:"palette_digest"`
	DefsDigest    string         `json:"defs_digest"`
	Blocks        []catalogEntry `json:"blocks"`
}

func newCatalogCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Validate blocks.json and list the block palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, cmd.OutOrStdout())
		},
	}
}

func runCatalog(rootOpts *rootOptions, out io.Writer) error {
	cats, err := catalogs.Load(rootOpts.ConfigDir)
	if err != nil {
		return err
	}
	b := cats.Blocks
	rep := catalogReport{PaletteDigest: b.PaletteDigest, DefsDigest: b.DefsDigest}
	for i, id := range b.Palette {
		rep.Blocks = append(rep.Blocks, catalogEntry{Kind: i, BlockDef: b.Defs[id]})
	}
	if rootOpts.Format == "json" {
		return writeJSON(out, rep)
	}

	fmt.Fprintln(out, styleHeader.Sprintf("%d blocks, palette %s", len(rep.Blocks), short(rep.PaletteDigest)))
	for _, e := range rep.Blocks {
		line := fmt.Sprintf("  %3d %-18s", e.Kind, e.ID)
		if e.Class != "" {
			line += " " + styleOutput.Sprint(e.Class)
		}
		if e.Tint != "" {
			line += " tint=" + e.Tint
		}
		if e.Solid {
			line += styleSubtle.Sprint(" solid")
		}
		if e.Occluding {
			line += styleSubtle.Sprint(" occluding")
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
