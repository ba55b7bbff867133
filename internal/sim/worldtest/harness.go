package worldtest

import (
	"testing"

	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/devices"
	"factorycraft.ai/internal/sim/grid"
	"factorycraft.ai/internal/sim/routes"
	world "factorycraft.ai/internal/sim/world"
)

// Harness is a small black-box test helper for driving a world via exported
// APIs: block placement by name, device registration, stepping and snapshot
// round trips. Route notifications are recorded for assertions.
//
// It avoids touching world internals so tests can live outside the world
// package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	events []routes.Event
}

func LoadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func NewHarness(t *testing.T, cfg world.Config, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	w, err := world.New(cfg, cats.Blocks, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w, cats)
}

// NewHarnessWithWorld is like NewHarness, but uses an already-constructed
// world instance (e.g. one restored from a snapshot).
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{T: t, Cats: cats, W: w}
	w.Subscribe(routes.ObserverFunc(func(e routes.Event) { h.events = append(h.events, e) }))
	return h
}

func (h *Harness) At(x, y, z int) grid.Coord { return h.W.At(x, y, z) }

func (h *Harness) SetBlock(x, y, z int, block string) {
	h.T.Helper()
	if err := h.W.SetBlock(h.At(x, y, z), block, nil); err != nil {
		h.T.Fatalf("SetBlock: %v", err)
	}
}

func (h *Harness) SetFacing(x, y, z int, block string, d grid.Direction) {
	h.T.Helper()
	if err := h.W.SetBlock(h.At(x, y, z), block, &d); err != nil {
		h.T.Fatalf("SetBlock: %v", err)
	}
}

// Line places block along x in [x0, x1] at (y, z).
func (h *Harness) Line(block string, x0, x1, y, z int) {
	h.T.Helper()
	for x := x0; x <= x1; x++ {
		h.SetBlock(x, y, z, block)
	}
}

func (h *Harness) Add(d devices.Device) {
	h.T.Helper()
	if err := h.W.AddDevice(d); err != nil {
		h.T.Fatalf("AddDevice: %v", err)
	}
}

// Step advances one tick and checks the route cache invariants.
func (h *Harness) Step() {
	h.T.Helper()
	h.W.Step()
	h.CheckInvariants()
}

func (h *Harness) StepFor(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.Step()
	}
}

func (h *Harness) CheckInvariants() {
	h.T.Helper()
	if err := h.W.Cache().CheckInvariants(); err != nil {
		h.T.Fatalf("route cache invariants: %v", err)
	}
}

func (h *Harness) Events() []routes.Event { return h.events }
func (h *Harness) ClearEvents()           { h.events = nil }

func (h *Harness) EventCount(t routes.EventType) int {
	n := 0
	for _, e := range h.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Routes summarizes every cached route, in origin order.
func (h *Harness) Routes() []routes.Record {
	var out []routes.Record
	for _, r := range h.W.Cache().Origins() {
		out = append(out, routes.NewRecord(r, true))
	}
	return out
}

func (h *Harness) Snapshot() (tick uint64, snap snapshot.SnapshotV1) {
	h.T.Helper()
	// Keep tick stable: export at currentTick-1 then import would restore to currentTick.
	cur := h.W.CurrentTick()
	if cur == 0 {
		return 0, h.W.ExportSnapshot(0)
	}
	tick = cur - 1
	return tick, h.W.ExportSnapshot(tick)
}

// Restore builds a new harness over a world imported from snap.
func (h *Harness) Restore(snap snapshot.SnapshotV1) *Harness {
	h.T.Helper()
	w, err := world.NewFromSnapshot(h.W.Config(), h.Cats.Blocks, nil, snap)
	if err != nil {
		h.T.Fatalf("NewFromSnapshot: %v", err)
	}
	return NewHarnessWithWorld(h.T, w, h.Cats)
}
