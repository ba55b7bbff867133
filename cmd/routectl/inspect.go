package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/routes"
	"factorycraft.ai/internal/sim/world"
)

type inspectOptions struct {
	Snapshot string
	Kind     string
	At       string
	MaxNodes int
}

func newInspectCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect --snapshot <file> --at x,y,z",
		Short: "Build one route from a grid snapshot and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "grid snapshot (.snap.zst)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "PIPE", "route kind (PIPE|SIGNAL)")
	cmd.Flags().StringVar(&opts.At, "at", "", "route start coordinate x,y,z")
	cmd.Flags().IntVar(&opts.MaxNodes, "max-nodes", 0, "explored edge cap (0: unlimited)")
	_ = cmd.MarkFlagRequired("snapshot")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func runInspect(rootOpts *rootOptions, opts *inspectOptions, out io.Writer) error {
	kind, err := routes.ParseKind(opts.Kind)
	if err != nil {
		return err
	}
	cats, err := catalogs.Load(rootOpts.ConfigDir)
	if err != nil {
		return err
	}
	snap, err := snapshot.ReadSnapshot(opts.Snapshot)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	w, err := world.NewFromSnapshot(world.Config{ID: snap.Header.WorldID, MaxRouteNodes: opts.MaxNodes}, cats.Blocks, nil, snap)
	if err != nil {
		return err
	}
	start, err := grid.ParseCoord(w.ID(), opts.At)
	if err != nil {
		return err
	}

	r := w.Cache().GetOrBuild(kind, start)
	if rootOpts.Format == "json" {
		return writeJSON(out, routes.NewRecord(r, true))
	}
	printRoute(out, r, cats.Blocks, w.Store())
	return nil
}

func printRoute(out io.Writer, r *routes.Route, blocks *catalogs.BlockCatalog, store *grid.ChunkStore) {
	fmt.Fprintln(out, styleHeader.Sprintf("%s route in %s from %s: %d cells", r.Kind(), r.Start().World, fmtCoord(r.Start()), r.Len()))
	if r.Truncated() {
		fmt.Fprintln(out, styleWarn.Sprint("  truncated: explored edge cap reached"))
	}
	for _, c := range r.Locations() {
		line := fmt.Sprintf("  %-16s %s", fmtCoord(c), blocks.Name(store.CellKind(c)))
		if s, ok := r.Strength(c); ok && r.Kind() == routes.Signal {
			line += fmt.Sprintf(" strength=%d", s)
		}
		fmt.Fprintln(out, styleCell.Sprint(line))
	}
	total := 0
	for _, ctx := range r.Contexts() {
		for _, o := range r.Outputs(ctx) {
			total++
			fmt.Fprintln(out, styleOutput.Sprintf("  -> %s via %s %s (%s) context=%d",
				o.Variant, fmtCoord(o.Via), fmtCoord(o.Target), blocks.Name(store.CellKind(o.Target)), o.Context))
		}
	}
	if total == 0 {
		fmt.Fprintln(out, styleSubtle.Sprint("  no outputs"))
	}
}

func fmtCoord(c grid.Coord) string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}
