package multiworld

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/world"
)

type Runtime struct {
	Spec  WorldSpec
	World *world.World
}

// Manager owns one independent world per configured id. Worlds never share
// a route cache.
type Manager struct {
	mu sync.RWMutex

	runtimes  map[string]*Runtime
	manifest  []WorldRef
	defaultID string
}

func NewManager(cfg Config, runtimes map[string]*Runtime) (*Manager, error) {
	if len(runtimes) == 0 {
		return nil, fmt.Errorf("empty runtimes")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, spec := range cfg.Worlds {
		rt := runtimes[spec.ID]
		if rt == nil || rt.World == nil {
			return nil, fmt.Errorf("missing runtime for world %s", spec.ID)
		}
		if rt.World.ID() != spec.ID {
			return nil, fmt.Errorf("runtime %s holds world %s", spec.ID, rt.World.ID())
		}
	}
	defaultID := cfg.DefaultWorldID
	if defaultID == "" {
		defaultID = cfg.Worlds[0].ID
	}
	return &Manager{
		runtimes:  runtimes,
		manifest:  cfg.Manifest(),
		defaultID: defaultID,
	}, nil
}

// Build creates a fresh world for every spec. snapshotFor may return a
// snapshot path per world; missing files start empty.
func Build(cfg Config, blocks *catalogs.BlockCatalog, snapshotFor func(id string) string) (*Manager, error) {
	runtimes := map[string]*Runtime{}
	for _, spec := range cfg.Worlds {
		logger := log.New(os.Stdout, "[world "+spec.ID+"] ", log.LstdFlags|log.Lmicroseconds)
		wcfg := world.Config{
			ID:                 spec.ID,
			TickRateHz:         spec.TickRateHz,
			SnapshotEveryTicks: spec.SnapshotEveryTicks,
			MaxRouteNodes:      spec.MaxRouteNodes,
		}
		w, err := openWorld(wcfg, blocks, logger, snapshotFor)
		if err != nil {
			return nil, err
		}
		runtimes[spec.ID] = &Runtime{Spec: spec, World: w}
	}
	return NewManager(cfg, runtimes)
}

func (m *Manager) WorldIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.runtimes))
	for id := range m.runtimes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Runtime(id string) *Runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runtimes[id]
}

func (m *Manager) World(id string) (*world.World, bool) {
	rt := m.Runtime(id)
	if rt == nil {
		return nil, false
	}
	return rt.World, true
}

func (m *Manager) DefaultWorld() *world.World {
	w, _ := m.World(m.defaultID)
	return w
}

func (m *Manager) Manifest() []WorldRef {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]WorldRef, len(m.manifest))
	copy(out, m.manifest)
	return out
}

// Metrics returns one entry per world, sorted by id.
func (m *Manager) Metrics() []world.Metrics {
	ids := m.WorldIDs()
	out := make([]world.Metrics, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.Runtime(id).World.Metrics())
	}
	return out
}

// Run starts every world loop and blocks until all of them return. The
// first non-cancellation error is returned; it stops the other worlds.
func (m *Manager) Run(ctx context.Context) error {
	ids := m.WorldIDs()
	errCh := make(chan error, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		w := m.Runtime(id).World
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				errCh <- fmt.Errorf("world %s: %w", w.ID(), err)
				m.Stop()
			}
		}()
	}
	wg.Wait()
	close(errCh)
	return <-errCh
}

func (m *Manager) Stop() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rt := range m.runtimes {
		rt.World.Stop()
	}
}
