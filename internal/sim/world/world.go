package world

import (
	"fmt"
	"log"
	"sync/atomic"

	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/devices"
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/routes"
	"factorycraft.ai/internal/sim/signal"
	"factorycraft.ai/internal/sim/transfer"
)

type Config struct {
	ID                 string
	TickRateHz         int
	SnapshotEveryTicks int
	MaxRouteNodes      int
}

func (c *Config) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.SnapshotEveryTicks < 0 {
		c.SnapshotEveryTicks = 0
	}
}

// Edit is a cell write submitted from outside the world loop.
type Edit struct {
	Pos  grid.Coord
	Cell grid.Cell
}

type Metrics struct {
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
	Routes  int64  `json:"routes"`
	Devices int64  `json:"devices"`
	Chunks  int64  `json:"chunks"`
}

// World is a single-threaded simulation context. It owns the grid, the
// route cache, the device registry and both protocol engines. All state must
// be accessed only from the world loop goroutine (or before Run starts).
type World struct {
	cfg    Config
	blocks *catalogs.BlockCatalog
	logger *log.Logger

	tick atomic.Uint64

	store    *grid.ChunkStore
	cache    *routes.Cache
	devices  *devices.Registry
	transfer *transfer.Engine
	signal   *signal.Engine

	edits chan Edit
	calls chan call
	stop  chan struct{}

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	routeCount  atomic.Int64
	deviceCount atomic.Int64
	chunkCount  atomic.Int64
}

type call struct {
	fn   func(*World)
	done chan struct{}
}

func New(cfg Config, blocks *catalogs.BlockCatalog, logger *log.Logger) (*World, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("world: empty id")
	}
	if blocks == nil {
		return nil, fmt.Errorf("world %s: nil block catalog", cfg.ID)
	}
	cfg.applyDefaults()
	return newWorld(cfg, blocks, logger, grid.NewChunkStore(cfg.ID)), nil
}

func newWorld(cfg Config, blocks *catalogs.BlockCatalog, logger *log.Logger, store *grid.ChunkStore) *World {
	w := &World{
		cfg:    cfg,
		blocks: blocks,
		logger: logger,
		store:  store,
		edits:  make(chan Edit, 1024),
		calls:  make(chan call, 64),
		stop:   make(chan struct{}),
	}
	w.cache = routes.NewCache(routes.CacheConfig{
		World:   cfg.ID,
		Builder: &routes.Builder{Grid: store, Palette: blocks, MaxNodes: cfg.MaxRouteNodes},
		Clock:   w.CurrentTick,
		Logger:  logger,
	})
	w.devices = devices.NewRegistry(cfg.ID, w.CurrentTick)
	w.devices.Grid = store
	w.devices.OnRemove(func(d devices.Device) { w.cache.InvalidateDevice(d.Pos()) })
	w.transfer = transfer.NewEngine(w.cache)
	w.transfer.OnPut(w.devices)
	w.transfer.OnPull(w.devices)
	w.signal = signal.NewEngine(w.cache)
	w.refreshMetrics()
	return w
}

func (w *World) ID() string                                    { return w.cfg.ID }
func (w *World) Config() Config                                { return w.cfg }
func (w *World) CurrentTick() uint64                           { return w.tick.Load() }
func (w *World) Blocks() *catalogs.BlockCatalog                { return w.blocks }
func (w *World) Store() *grid.ChunkStore                       { return w.store }
func (w *World) Cache() *routes.Cache                          { return w.cache }
func (w *World) Devices() *devices.Registry                    { return w.devices }
func (w *World) Transfer() *transfer.Engine                    { return w.transfer }
func (w *World) Signal() *signal.Engine                        { return w.signal }
func (w *World) Subscribe(o routes.Observer)                   { w.cache.Subscribe(o) }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// Env is the handle reference devices use to reach this world.
func (w *World) Env() devices.Env {
	return devices.Env{
		Clock:    w.CurrentTick,
		Registry: w.devices,
		Transfer: w.transfer,
		Signal:   w.signal,
	}
}

// At builds a coordinate in this world.
func (w *World) At(x, y, z int) grid.Coord { return grid.At(w.cfg.ID, x, y, z) }

// SetCell is the single cell mutation path. It reports whether the cell
// changed; changed cells invalidate every route that could have read them.
func (w *World) SetCell(c grid.Coord, cell grid.Cell) bool {
	if !w.store.SetCell(c, cell) {
		return false
	}
	w.cache.InvalidateAround(c)
	return true
}

// SetBlock writes a named block, optionally oriented.
func (w *World) SetBlock(c grid.Coord, block string, facing *grid.Direction) error {
	k, ok := w.blocks.Kind(block)
	if !ok {
		return fmt.Errorf("unknown block %q", block)
	}
	cell := grid.Plain(k)
	if facing != nil {
		cell = grid.Facing(k, *facing)
	}
	w.SetCell(c, cell)
	return nil
}

// ClearRegion unloads a chunk and drops every route touching it. It returns
// the number of routes removed.
func (w *World) ClearRegion(k grid.ChunkKey) int {
	cells := w.store.Unload(k)
	n := w.cache.InvalidateRegion(k)
	// routes just outside the chunk may have read its border cells
	for _, c := range cells {
		n += w.cache.InvalidateAround(c)
	}
	return n
}

func (w *World) AddDevice(d devices.Device) error {
	if err := w.devices.Add(d); err != nil {
		return err
	}
	w.cache.InvalidateDevice(d.Pos())
	return nil
}

func (w *World) RemoveDevice(pos grid.Coord) bool {
	_, ok := w.devices.Remove(pos)
	return ok
}

func (w *World) Metrics() Metrics {
	return Metrics{
		WorldID: w.cfg.ID,
		Tick:    w.CurrentTick(),
		Routes:  w.routeCount.Load(),
		Devices: w.deviceCount.Load(),
		Chunks:  w.chunkCount.Load(),
	}
}

func (w *World) refreshMetrics() {
	w.routeCount.Store(int64(w.cache.Len()))
	w.deviceCount.Store(int64(w.devices.Len()))
	w.chunkCount.Store(int64(len(w.store.Chunks)))
}
