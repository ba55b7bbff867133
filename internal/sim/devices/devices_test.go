package devices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/transfer"
)

func TestDelayHandler(t *testing.T) {
	d := NewDelay(3)
	assert.True(t, d.Ready(1))
	assert.False(t, d.Ready(2))
	assert.False(t, d.Ready(3))
	assert.True(t, d.Ready(4))

	n := NoDelay()
	assert.True(t, n.Ready(1))
	assert.True(t, n.Ready(1))
}

func TestTickThrottle(t *testing.T) {
	var th TickThrottle
	assert.False(t, th.Throttled(0))
	th.Mark(5)
	assert.True(t, th.Throttled(5))
	assert.False(t, th.Throttled(6))
}

func TestRegistryAddRemove(t *testing.T) {
	s := newScene(t)
	reg := s.env.Registry
	box := NewStorageBox(s.env, at(0, 0, 0), 10)
	s.add(box)
	s.add(NewTank(at(-3, 0, 0), "WATER", 3))

	err := reg.Add(NewTank(at(0, 0, 0), "WATER", 1))
	assert.ErrorContains(t, err, "occupied")
	err = reg.Add(NewTank(grid.At("other", 0, 0, 0), "WATER", 1))
	assert.ErrorContains(t, err, "not in world")

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "TANK", all[0].Name())

	var removed []string
	reg.OnRemove(func(d Device) { removed = append(removed, d.Name()) })
	d, ok := reg.Remove(at(0, 0, 0))
	require.True(t, ok)
	assert.Same(t, box, d)
	assert.Equal(t, []string{"STORAGE_BOX"}, removed)
	_, ok = reg.Remove(at(0, 0, 0))
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryRefusesSelfDelivery(t *testing.T) {
	s := newScene(t)
	s.tick = 1
	box := NewStorageBox(s.env, at(0, 0, 0), 10)
	box.Item, box.Amount = "IRON", 5
	s.add(box)

	ev := &transfer.PutEvent{Target: box.Pos(), Collection: box}
	s.env.Registry.OnPipePut(ev)
	assert.False(t, ev.Transferred())

	other := NewStorageBox(s.env, at(9, 9, 9), 10)
	other.Item, other.Amount = "IRON", 3
	ev = &transfer.PutEvent{Target: box.Pos(), Collection: other}
	s.env.Registry.OnPipePut(ev)
	assert.True(t, ev.Transferred())
	assert.Equal(t, 8, box.Amount)
	assert.Equal(t, 0, other.Amount)
}

func TestStorageBoxCapacityLeavesRemainder(t *testing.T) {
	s := newScene(t)
	s.tick = 1
	box := NewStorageBox(s.env, at(0, 0, 0), 4)
	tank := NewTank(at(1, 0, 0), "IRON", 10)
	tank.MaxPerMove = 64

	ev := &transfer.PutEvent{Target: box.Pos(), Collection: tank}
	require.True(t, box.Accepts(tank))
	box.PipePut(tank, ev)
	assert.Equal(t, 4, ev.Moved())
	assert.Equal(t, 4, box.Amount)
	assert.Equal(t, 6, tank.Amount)

	s.tick = 2
	assert.False(t, box.Accepts(tank), "full")
}

func TestStorageBoxRejectsOtherItems(t *testing.T) {
	s := newScene(t)
	box := NewStorageBox(s.env, at(0, 0, 0), 10)
	box.Item, box.Amount = "IRON", 1
	assert.False(t, box.Accepts(NewTank(at(1, 0, 0), "WATER", 3)))
	assert.True(t, box.Accepts(NewTank(at(1, 0, 0), "IRON", 3)))
}

func TestTankTake(t *testing.T) {
	tank := NewTank(at(0, 0, 0), "LAVA", 3)
	assert.InDelta(t, 0.25, tank.TransferEnergyCost(), 1e-9)
	assert.Equal(t, 2, tank.Take(2))
	assert.Equal(t, 1, tank.Take(5))
	assert.True(t, tank.IsTransferEmpty())
	assert.Equal(t, 0, tank.Take(1))
	assert.True(t, NewTank(at(0, 0, 0), "LAVA", 0).IsTransferEmpty())
}

// box A -> pump -> conduit x=1..3 -> actuator (4,0,0) -> box B at (5,0,0)
func pumpScene(t *testing.T) (*scene, *StorageBox, *StorageBox, *Pump) {
	s := newScene(t)
	for x := 1; x <= 3; x++ {
		s.set("CONDUIT", x, 0, 0)
	}
	s.setFacing("ACTUATOR", grid.East, 4, 0, 0)

	a := NewStorageBox(s.env, at(0, 0, 0), 64)
	a.Item, a.Amount = "IRON", 10
	b := NewStorageBox(s.env, at(5, 0, 0), 4)
	p := NewPump(s.env, at(0, 1, 0), a.Pos(), at(1, 0, 0), 1)
	s.add(a)
	s.add(b)
	s.add(p)
	return s, a, b, p
}

func TestPumpMovesItemsAndPaysEnergy(t *testing.T) {
	s, a, b, p := pumpScene(t)
	p.AcceptEnergy(10)

	assert.Equal(t, 1, s.step())
	assert.Equal(t, 4, b.Amount)
	assert.Equal(t, 6, a.Amount)
	assert.InDelta(t, 9.5, p.Energy(), 1e-9)
	assert.Equal(t, 4, p.Moved)

	s.step()
	assert.Equal(t, 4, b.Amount, "sink full")
	assert.Equal(t, 10, a.Amount+b.Amount)
	assert.InDelta(t, 9.5, p.Energy(), 1e-9)
}

func TestPumpRefusesToRunWithoutEnergy(t *testing.T) {
	s, a, b, _ := pumpScene(t)
	s.step()
	assert.Equal(t, 10, a.Amount)
	assert.Equal(t, 0, b.Amount)
}

func TestRemovingSinkInvalidatesRoute(t *testing.T) {
	s, _, b, p := pumpScene(t)
	p.AcceptEnergy(10)
	s.step()
	require.Equal(t, 1, s.cache.Len())

	s.env.Registry.Remove(b.Pos())
	assert.Equal(t, 0, s.cache.Len())
}

func TestStorageBoxHonoursCollectionMaxTransfer(t *testing.T) {
	s := newScene(t)
	box := NewStorageBox(s.env, at(0, 0, 0), 64)
	tank := NewTank(at(1, 0, 0), "WATER", 10)
	require.Equal(t, 1, tank.MaxTransfer())

	ev := &transfer.PutEvent{Target: box.Pos(), Collection: tank}
	box.PipePut(tank, ev)
	assert.Equal(t, 1, ev.Moved())
	assert.Equal(t, 9, tank.Amount)
}

// tank (0,0,0) -> pump -> conduit x=1..3 -> actuator (4,0,0) -> box (5,0,0),
// plus actuator (2,0,1) -> box (2,0,2) when split is set
func tankScene(t *testing.T, split bool) (*scene, *Tank, *StorageBox, *StorageBox, *Pump) {
	s := newScene(t)
	for x := 1; x <= 3; x++ {
		s.set("CONDUIT", x, 0, 0)
	}
	s.setFacing("ACTUATOR", grid.East, 4, 0, 0)
	if split {
		s.setFacing("ACTUATOR", grid.South, 2, 0, 1)
	}

	tank := NewTank(at(0, 0, 0), "WATER", 10)
	far := NewStorageBox(s.env, at(5, 0, 0), 4)
	near := NewStorageBox(s.env, at(2, 0, 2), 4)
	p := NewPump(s.env, at(0, 1, 0), tank.Pos(), at(1, 0, 0), 1)
	s.add(tank)
	s.add(far)
	s.add(near)
	s.add(p)
	return s, tank, far, near, p
}

func TestPumpDrainsTankOneUnitPerTick(t *testing.T) {
	s, tank, far, _, p := tankScene(t, false)
	tank.Amount = 3
	p.AcceptEnergy(10)

	for i := 0; i < 4; i++ {
		s.step()
	}
	assert.Equal(t, 3, far.Amount)
	assert.Equal(t, "WATER", far.Item)
	assert.True(t, tank.IsTransferEmpty())
	assert.InDelta(t, 9.25, p.Energy(), 1e-9)
	assert.Equal(t, 3, p.Moved)
}

func TestPumpPaysForEveryDelivery(t *testing.T) {
	s, tank, far, near, p := tankScene(t, true)
	p.AcceptEnergy(0.3)

	s.step()
	assert.Equal(t, 1, far.Amount, "first output in discovery order")
	assert.Equal(t, 0, near.Amount, "second delivery is not paid for")
	assert.Equal(t, 9, tank.Amount)
	assert.InDelta(t, 0.05, p.Energy(), 1e-9)

	p.AcceptEnergy(10)
	s.step()
	assert.Equal(t, 2, far.Amount)
	assert.Equal(t, 1, near.Amount)
	assert.Equal(t, 7, tank.Amount)
	assert.InDelta(t, 9.55, p.Energy(), 1e-9)
}

// generator (0,0,10) -> wire (1,0,10) -> comparator (2,0,10) -> central (3,0,10)
// central -> wire (4,0,10),(4,0,11) -> amplifiers (5,0,10),(5,0,11) ->
// sticky actuators (6,0,10),(6,0,11); a pump consumes at (7,0,10) only.
func powerScene(t *testing.T) (*scene, *Generator, *PowerCentral, *Pump) {
	s := newScene(t)
	s.set("MACHINE", 0, 0, 10)
	s.set("WIRE", 1, 0, 10)
	s.setFacing("COMPARATOR", grid.East, 2, 0, 10)
	s.set("MACHINE", 3, 0, 10)
	s.set("WIRE", 4, 0, 10)
	s.set("WIRE", 4, 0, 11)
	for _, z := range []int{10, 11} {
		s.setFacing("AMPLIFIER", grid.East, 5, 0, z)
		s.setFacing("STICKY_ACTUATOR", grid.East, 6, 0, z)
	}

	g := NewGenerator(s.env, at(0, 0, 10), at(1, 0, 10), 1)
	g.Fuel = 2
	c := NewPowerCentral(s.env, at(3, 0, 10), at(4, 0, 10), 1)
	consumer := NewPump(s.env, at(7, 0, 10), at(7, 1, 10), at(8, 0, 10), 1)
	s.add(g)
	s.add(c)
	s.add(consumer)
	return s, g, c, consumer
}

func TestGeneratorFeedsCentralThroughComparator(t *testing.T) {
	s, g, c, _ := powerScene(t)

	s.step()
	assert.Equal(t, 1, g.Fuel)
	assert.InDelta(t, 8, g.Delivered, 1e-9)
	assert.InDelta(t, 0, g.Buffer(), 1e-9)
	assert.InDelta(t, 1, g.LastLoad, 1e-9)
	// the central thinks after the generator in the same tick
	assert.InDelta(t, 4, c.Energy(), 1e-9)
}

func TestCentralReportsPartialLoad(t *testing.T) {
	s, _, c, consumer := powerScene(t)

	s.step()
	assert.InDelta(t, 4, consumer.Energy(), 1e-9)
	assert.InDelta(t, 0.5, c.LastLoad, 1e-9, "one of two sticky actuators has a consumer")
}

func TestGeneratorWithoutCentralReportsNoLoad(t *testing.T) {
	s, g, _, _ := powerScene(t)
	s.env.Registry.Remove(at(3, 0, 10))

	s.step()
	assert.InDelta(t, 0, g.Delivered, 1e-9)
	assert.InDelta(t, 0, g.LastLoad, 1e-9)
	assert.InDelta(t, 8, g.Buffer(), 1e-9)
}

func TestTickSkipsThrottledThinkers(t *testing.T) {
	s, _, _, p := pumpScene(t)
	p.AcceptEnergy(10)
	s.tick = 3
	p.throttle.Mark(4)
	assert.Equal(t, 0, s.env.Registry.Tick(4))
	assert.Equal(t, 1, s.env.Registry.Tick(5))
}
