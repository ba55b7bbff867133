package world

import (
	"fmt"
	"log"

	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/grid"
)

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	return snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		PaletteDigest: w.blocks.PaletteDigest,
		Chunks:        w.store.ExportChunks(),
	}
}

// NewFromSnapshot restores a world's grid. Routes are rebuilt lazily and
// devices must be re-added by the caller.
func NewFromSnapshot(cfg Config, blocks *catalogs.BlockCatalog, logger *log.Logger, snap snapshot.SnapshotV1) (*World, error) {
	if snap.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", snap.Header.Version)
	}
	if cfg.ID == "" {
		cfg.ID = snap.Header.WorldID
	}
	if snap.Header.WorldID != cfg.ID {
		return nil, fmt.Errorf("snapshot: world mismatch: got %q want %q", snap.Header.WorldID, cfg.ID)
	}
	if blocks == nil {
		return nil, fmt.Errorf("world %s: nil block catalog", cfg.ID)
	}
	if snap.PaletteDigest != "" && snap.PaletteDigest != blocks.PaletteDigest {
		return nil, fmt.Errorf("snapshot: palette digest mismatch")
	}
	store, err := grid.ImportChunks(cfg.ID, snap.Chunks)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	w := newWorld(cfg, blocks, logger, store)
	w.tick.Store(snap.Header.Tick + 1)
	return w, nil
}
