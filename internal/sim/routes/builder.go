package routes

import (
	"factorycraft.ai/internal/sim/grid"
)

// Builder discovers routes over a read-only grid view.
type Builder struct {
	Grid    grid.Adapter
	Palette grid.Palette
	// MaxNodes caps explored edges per build; zero means no cap.
	MaxNodes int
}

type opKind uint8

const (
	opExpand opKind = iota
	opAdmit
	opStrength
	opOutput
)

// op is one effect requested by an edge rule. Effects of a single rule call
// run in order, and an opExpand finishes its whole subtree before the next
// effect runs, which keeps the walk order identical to a recursive search.
type op struct {
	kind     opKind
	at       grid.Coord
	back     grid.Coord
	hasBack  bool
	dirs     []grid.Direction
	next     int
	strength int
	output   Output
}

type build struct {
	b     *Builder
	route *Route
	edges int
}

// Build discovers the route of the given kind starting at start. Empty dirs
// selects the default expansion set for the kind.
func (b *Builder) Build(kind Kind, start grid.Coord, dirs []grid.Direction) *Route {
	st := &build{b: b, route: newRoute(kind, start)}

	if st.isBody(kind, start) {
		st.route.admit(start)
		if kind == Signal {
			st.route.strength[start] = MaxStrength
		}
	}
	if len(dirs) == 0 {
		dirs = st.defaultDirs(kind, start)
	}

	stack := []*op{{kind: opExpand, at: start, dirs: dirs}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.kind != opExpand {
			stack = stack[:len(stack)-1]
			st.apply(top)
			continue
		}
		if top.next >= len(top.dirs) {
			stack = stack[:len(stack)-1]
			continue
		}
		d := top.dirs[top.next]
		top.next++

		rel := top.at.Step(d)
		if top.hasBack && rel == top.back {
			continue
		}
		if st.route.HasVisited(top.at, d) {
			continue
		}
		if b.MaxNodes > 0 && st.edges >= b.MaxNodes {
			st.route.truncated = true
			break
		}
		st.route.visit(top.at, d)
		st.edges++

		var ops []op
		if kind == Pipe {
			ops = st.pipeRule(top.at, rel)
		} else {
			ops = st.signalRule(top.at, rel)
		}
		for i := len(ops) - 1; i >= 0; i-- {
			o := ops[i]
			stack = append(stack, &o)
		}
	}
	return st.route
}

func (st *build) apply(o *op) {
	switch o.kind {
	case opAdmit:
		st.route.admit(o.at)
	case opStrength:
		st.route.strength[o.at] = o.strength
	case opOutput:
		st.route.addOutput(o.output)
	}
}

func (st *build) defaultDirs(kind Kind, start grid.Coord) []grid.Direction {
	if kind == Pipe {
		return grid.AllDirections
	}
	if st.class(start) == grid.ClassAmplifier {
		if f, ok := st.b.Grid.Orientation(start); ok {
			return []grid.Direction{f}
		}
	}
	return grid.LateralDirections
}

func (st *build) isBody(kind Kind, c grid.Coord) bool {
	switch st.class(c) {
	case grid.ClassConduit:
		return kind == Pipe
	case grid.ClassWire, grid.ClassAmplifier, grid.ClassComparator:
		return kind == Signal
	}
	return false
}

func (st *build) traits(c grid.Coord) grid.Traits {
	return st.b.Palette.Traits(st.b.Grid.CellKind(c))
}

func (st *build) class(c grid.Coord) grid.Class { return st.traits(c).Class }

// faced returns the cell a directional cell points at.
func (st *build) faced(c grid.Coord) (grid.Coord, grid.Direction, bool) {
	f, ok := st.b.Grid.Orientation(c)
	if !ok {
		return grid.Coord{}, 0, false
	}
	return c.Step(f), f, true
}

// input returns the cell behind a directional cell.
func (st *build) input(c grid.Coord) (grid.Coord, bool) {
	f, ok := st.b.Grid.Orientation(c)
	if !ok {
		return grid.Coord{}, false
	}
	return c.Step(f.Opposite()), true
}

func (st *build) strengthAt(c grid.Coord) int {
	if s, ok := st.route.strength[c]; ok {
		return s
	}
	return MaxStrength
}

func admitOp(c grid.Coord) op { return op{kind: opAdmit, at: c} }

func strengthOp(c grid.Coord, s int) op { return op{kind: opStrength, at: c, strength: s} }

func outputOp(o Output) op { return op{kind: opOutput, output: o} }

func expandOp(at, back grid.Coord, dirs []grid.Direction) op {
	return op{kind: opExpand, at: at, back: back, hasBack: true, dirs: dirs}
}

func expandOnlyOp(at grid.Coord, d grid.Direction) op {
	return op{kind: opExpand, at: at, dirs: []grid.Direction{d}}
}
