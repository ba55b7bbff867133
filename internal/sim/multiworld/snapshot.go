package multiworld

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/world"
)

func openWorld(cfg world.Config, blocks *catalogs.BlockCatalog, logger *log.Logger, snapshotFor func(id string) string) (*world.World, error) {
	path := ""
	if snapshotFor != nil {
		path = snapshotFor(cfg.ID)
	}
	if path == "" {
		return world.New(cfg, blocks, logger)
	}
	snap, err := snapshot.ReadSnapshot(path)
	if errors.Is(err, fs.ErrNotExist) {
		return world.New(cfg, blocks, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	w, err := world.NewFromSnapshot(cfg, blocks, logger, snap)
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", cfg.ID, err)
	}
	if logger != nil {
		logger.Printf("restored from %s at tick %d", path, snap.Header.Tick)
	}
	return w, nil
}
