package devices

import (
	"testing"

	"github.com/stretchr/testify/require"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/routes"
	"factorycraft.ai/internal/sim/signal"
	"factorycraft.ai/internal/sim/transfer"
)

const world = "w"

func at(x, y, z int) grid.Coord { return grid.At(world, x, y, z) }

type scene struct {
	t      *testing.T
	tick   uint64
	store  *grid.ChunkStore
	blocks *catalogs.BlockCatalog
	cache  *routes.Cache
	env    Env
}

func newScene(t *testing.T) *scene {
	t.Helper()
	blocks, err := catalogs.NewBlockCatalog([]catalogs.BlockDef{
		{ID: "AIR"},
		{ID: "MACHINE", Solid: true, Occluding: true},
		{ID: "CONDUIT", Solid: true, Class: "CONDUIT"},
		{ID: "ACTUATOR", Solid: true, Class: "ACTUATOR"},
		{ID: "STICKY_ACTUATOR", Solid: true, Class: "STICKY_ACTUATOR"},
		{ID: "WIRE", Class: "WIRE"},
		{ID: "AMPLIFIER", Class: "AMPLIFIER"},
		{ID: "COMPARATOR", Class: "COMPARATOR"},
	})
	require.NoError(t, err)

	s := &scene{t: t, store: grid.NewChunkStore(world), blocks: blocks}
	clock := func() uint64 { return s.tick }
	s.cache = routes.NewCache(routes.CacheConfig{
		World:   world,
		Builder: &routes.Builder{Grid: s.store, Palette: blocks},
		Clock:   clock,
	})
	reg := NewRegistry(world, clock)
	reg.Grid = s.store
	reg.OnRemove(func(d Device) { s.cache.InvalidateDevice(d.Pos()) })

	tr := transfer.NewEngine(s.cache)
	tr.OnPut(reg)
	tr.OnPull(reg)
	s.env = Env{Clock: clock, Registry: reg, Transfer: tr, Signal: signal.NewEngine(s.cache)}
	return s
}

func (s *scene) set(name string, x, y, z int) {
	s.store.SetCell(at(x, y, z), grid.Plain(s.blocks.MustKind(name)))
}

func (s *scene) setFacing(name string, d grid.Direction, x, y, z int) {
	s.store.SetCell(at(x, y, z), grid.Facing(s.blocks.MustKind(name), d))
}

func (s *scene) add(d Device) {
	s.t.Helper()
	require.NoError(s.t, s.env.Registry.Add(d))
}

func (s *scene) step() int {
	s.tick++
	return s.env.Registry.Tick(s.tick)
}
