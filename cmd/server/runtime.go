package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"factorycraft.ai/internal/persistence/indexdb"
	persistlog "factorycraft.ai/internal/persistence/log"
	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/multiworld"
	"factorycraft.ai/internal/sim/routes"
	"factorycraft.ai/internal/sim/tuning"
	"factorycraft.ai/internal/sim/world"
)

type runtimeConfig struct {
	DataDir   string
	ConfigDir string
	DisableDB bool
}

type worldRuntime struct {
	id     string
	dir    string
	world  *world.World
	logger *log.Logger

	routeLog *persistlog.RouteLogger
	idx      *indexdb.SQLiteIndex
	snapCh   chan snapshot.SnapshotV1
}

// serverRuntime holds the per-world persistence collaborators.
type serverRuntime struct {
	worlds []*worldRuntime
	wg     sync.WaitGroup
}

func wireRuntime(cfg runtimeConfig, mgr *multiworld.Manager, cats *catalogs.Catalogs, tune tuning.Tuning, hub routes.Observer, logger *log.Logger) (*serverRuntime, error) {
	rt := &serverRuntime{}
	for _, id := range mgr.WorldIDs() {
		w, _ := mgr.World(id)
		dir := worldDir(cfg.DataDir, id)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			rt.Close()
			return nil, err
		}
		wl := log.New(os.Stdout, "[world "+id+"] ", log.LstdFlags|log.Lmicroseconds)
		wr := &worldRuntime{
			id:       id,
			dir:      dir,
			world:    w,
			logger:   wl,
			routeLog: persistlog.NewRouteLogger(dir, wl),
			snapCh:   make(chan snapshot.SnapshotV1, 2),
		}
		if !cfg.DisableDB {
			idx, err := indexdb.OpenSQLite(filepath.Join(dir, "index", "routes.sqlite"))
			if err != nil {
				rt.Close()
				return nil, fmt.Errorf("open index db (%s): %w", id, err)
			}
			if err := idx.UpsertCatalogs(cfg.ConfigDir, cats, tune); err != nil {
				logger.Printf("index db upsert catalogs (%s): %v", id, err)
			}
			wr.idx = idx
			w.Subscribe(idx)
		}
		w.Subscribe(wr.routeLog)
		if hub != nil {
			w.Subscribe(hub)
		}
		w.SetSnapshotSink(wr.snapCh)

		rt.worlds = append(rt.worlds, wr)
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			for snap := range wr.snapCh {
				wr.writeSnapshot(snap)
			}
		}()
	}
	return rt, nil
}

func (wr *worldRuntime) writeSnapshot(snap snapshot.SnapshotV1) {
	path := filepath.Join(wr.dir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		wr.logger.Printf("snapshot write: %v", err)
		return
	}
	if wr.idx != nil {
		wr.idx.RecordSnapshot(path, snap)
	}
}

// finalSnapshots must only run once every world loop has returned.
func (rt *serverRuntime) finalSnapshots() {
	for _, wr := range rt.worlds {
		tick := wr.world.CurrentTick()
		if tick == 0 {
			continue
		}
		wr.writeSnapshot(wr.world.ExportSnapshot(tick - 1))
	}
}

func (rt *serverRuntime) Close() {
	for _, wr := range rt.worlds {
		wr.world.SetSnapshotSink(nil)
		close(wr.snapCh)
	}
	rt.wg.Wait()
	for _, wr := range rt.worlds {
		if err := wr.routeLog.Close(); err != nil {
			wr.logger.Printf("route log close: %v", err)
		}
		if wr.idx != nil {
			_ = wr.idx.Close()
		}
	}
}
