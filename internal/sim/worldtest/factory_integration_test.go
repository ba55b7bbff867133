package worldtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorycraft.ai/internal/sim/devices"
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/routes"
	world "factorycraft.ai/internal/sim/world"
)

func newFactoryHarness(t *testing.T) *Harness {
	t.Helper()
	return NewHarness(t, world.Config{ID: "test", TickRateHz: 5}, LoadCatalogs(t))
}

// box (0,0,0) -> conduits (1..3,0,0) -> actuator (4,0,0) east -> box (5,0,0)
func buildPumpLine(h *Harness) (*devices.StorageBox, *devices.StorageBox, *devices.Pump) {
	h.T.Helper()
	h.Line("CONDUIT", 1, 3, 0, 0)
	h.SetFacing(4, 0, 0, "ACTUATOR", grid.East)

	env := h.W.Env()
	src := devices.NewStorageBox(env, h.At(0, 0, 0), 64)
	src.Item, src.Amount = "IRON", 10
	dst := devices.NewStorageBox(env, h.At(5, 0, 0), 4)
	pump := devices.NewPump(env, h.At(0, 1, 0), src.Pos(), h.At(1, 0, 0), 1)
	pump.AcceptEnergy(10)
	h.Add(src)
	h.Add(dst)
	h.Add(pump)
	return src, dst, pump
}

func TestPumpLineSurvivesEdits(t *testing.T) {
	h := newFactoryHarness(t)
	src, dst, pump := buildPumpLine(h)

	h.Step()
	assert.Equal(t, 6, src.Amount)
	assert.Equal(t, 4, dst.Amount)
	require.Equal(t, 1, h.EventCount(routes.EventBuilt))
	dst.Capacity = 8

	h.SetBlock(2, 0, 0, "STONE")
	h.CheckInvariants()
	assert.Equal(t, 1, h.EventCount(routes.EventRemoved))

	h.Step()
	assert.Equal(t, 6, src.Amount, "line is broken")
	assert.Equal(t, 4, dst.Amount)
	assert.InDelta(t, 9.5, pump.Energy(), 1e-9)

	h.SetBlock(2, 0, 0, "CONDUIT")
	h.Step()
	assert.Equal(t, 2, src.Amount)
	assert.Equal(t, 8, dst.Amount)
	assert.InDelta(t, 9, pump.Energy(), 1e-9)
	assert.Equal(t, 8, pump.Moved)
	assert.Equal(t, 10, src.Amount+dst.Amount)
}

func TestPumpsOnOneNetworkShareARoute(t *testing.T) {
	h := newFactoryHarness(t)
	src, dst, _ := buildPumpLine(h)
	other := devices.NewStorageBox(h.W.Env(), h.At(3, 1, 1), 64)
	other.Item, other.Amount = "IRON", 5
	second := devices.NewPump(h.W.Env(), h.At(3, 2, 1), other.Pos(), h.At(3, 0, 0), 1)
	second.AcceptEnergy(10)
	h.Add(other)
	h.Add(second)

	h.StepFor(3)
	assert.Equal(t, 1, h.W.Cache().Len())
	assert.Equal(t, 1, h.EventCount(routes.EventBuilt))
	assert.Len(t, h.W.Cache().RoutesOfKindAt(routes.Pipe, h.At(3, 0, 0)), 1)
	assert.Equal(t, 15, src.Amount+dst.Amount+other.Amount)
}

func TestTurningActuatorRetargetsDelivery(t *testing.T) {
	h := newFactoryHarness(t)
	src, dst, _ := buildPumpLine(h)
	side := devices.NewStorageBox(h.W.Env(), h.At(4, 0, 1), 8)
	h.Add(side)

	h.SetFacing(4, 0, 0, "ACTUATOR", grid.South)
	h.Step()
	assert.Equal(t, 0, dst.Amount)
	assert.Equal(t, 8, side.Amount)
	assert.Equal(t, 2, src.Amount)
}

// generator (0,0,10) -> wire -> comparator -> central (3,0,10);
// central -> wires -> amplifiers -> sticky actuators; one pump consumes.
func TestPowerFlowsFromGeneratorToConsumer(t *testing.T) {
	h := newFactoryHarness(t)
	h.SetBlock(0, 0, 10, "MACHINE_CASING")
	h.SetBlock(1, 0, 10, "WIRE")
	h.SetFacing(2, 0, 10, "COMPARATOR", grid.East)
	h.SetBlock(3, 0, 10, "MACHINE_CASING")
	h.SetBlock(4, 0, 10, "WIRE")
	h.SetBlock(4, 0, 11, "WIRE")
	for _, z := range []int{10, 11} {
		h.SetFacing(5, 0, z, "AMPLIFIER", grid.East)
		h.SetFacing(6, 0, z, "STICKY_ACTUATOR", grid.East)
	}

	env := h.W.Env()
	g := devices.NewGenerator(env, h.At(0, 0, 10), h.At(1, 0, 10), 1)
	g.Fuel = 2
	c := devices.NewPowerCentral(env, h.At(3, 0, 10), h.At(4, 0, 10), 1)
	consumer := devices.NewPump(env, h.At(7, 0, 10), h.At(7, 1, 10), h.At(8, 0, 10), 1)
	h.Add(g)
	h.Add(c)
	h.Add(consumer)

	h.Step()
	assert.InDelta(t, 8, g.Delivered, 1e-9)
	assert.InDelta(t, 4, consumer.Energy(), 1e-9)
	assert.InDelta(t, 0.5, c.LastLoad, 1e-9)

	signalRoutes := 0
	for _, r := range h.Routes() {
		if r.Kind == "SIGNAL" {
			signalRoutes++
		}
	}
	assert.Equal(t, 2, signalRoutes)

	// with the consumer gone no output accepts
	require.True(t, h.W.RemoveDevice(consumer.Pos()))
	h.CheckInvariants()
	h.Step()
	assert.InDelta(t, 0, c.LastLoad, 1e-9)
}
