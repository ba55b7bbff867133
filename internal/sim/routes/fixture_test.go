package routes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/grid"
)

const testWorld = "w"

type fixture struct {
	t       *testing.T
	store   *grid.ChunkStore
	blocks  *catalogs.BlockCatalog
	builder *Builder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blocks, err := catalogs.NewBlockCatalog([]catalogs.BlockDef{
		{ID: "AIR"},
		{ID: "STONE", Solid: true, Occluding: true},
		{ID: "CONDUIT", Solid: true, Class: "CONDUIT"},
		{ID: "CONDUIT_RED", Solid: true, Class: "CONDUIT", Tint: "RED"},
		{ID: "CONDUIT_BLUE", Solid: true, Class: "CONDUIT", Tint: "BLUE"},
		{ID: "ACTUATOR", Solid: true, Class: "ACTUATOR"},
		{ID: "STICKY_ACTUATOR", Solid: true, Class: "STICKY_ACTUATOR"},
		{ID: "WIRE", Class: "WIRE"},
		{ID: "AMPLIFIER", Class: "AMPLIFIER"},
		{ID: "COMPARATOR", Class: "COMPARATOR"},
	})
	require.NoError(t, err)
	store := grid.NewChunkStore(testWorld)
	return &fixture{
		t:       t,
		store:   store,
		blocks:  blocks,
		builder: &Builder{Grid: store, Palette: blocks},
	}
}

func at(x, y, z int) grid.Coord { return grid.At(testWorld, x, y, z) }

func (f *fixture) set(name string, x, y, z int) {
	f.store.SetCell(at(x, y, z), grid.Plain(f.blocks.MustKind(name)))
}

func (f *fixture) setFacing(name string, d grid.Direction, x, y, z int) {
	f.store.SetCell(at(x, y, z), grid.Facing(f.blocks.MustKind(name), d))
}

func (f *fixture) line(name string, x0, x1, y, z int) {
	for x := x0; x <= x1; x++ {
		f.set(name, x, y, z)
	}
}

func (f *fixture) cache() *Cache {
	return NewCache(CacheConfig{World: testWorld, Builder: f.builder})
}
