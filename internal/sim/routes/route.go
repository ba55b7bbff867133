package routes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zyedidia/generic/mapset"

	"factorycraft.ai/internal/sim/grid"
)

type Kind uint8

const (
	Pipe Kind = iota
	Signal
)

func (k Kind) String() string {
	switch k {
	case Pipe:
		return "PIPE"
	case Signal:
		return "SIGNAL"
	default:
		return fmt.Sprintf("KIND_%d", uint8(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PIPE":
		return Pipe, nil
	case "SIGNAL":
		return Signal, nil
	}
	return 0, fmt.Errorf("unknown route kind %q", s)
}

// Output contexts.
const (
	DefaultContext = 0
	// ContextSourceToSink carries power from a central to consumers
	// (amplifier facing a sticky actuator).
	ContextSourceToSink = 1
	// ContextSinkToSource carries power from generators back to a central
	// (comparator outputs).
	ContextSinkToSource = 2
)

const MaxStrength = 16

type Variant uint8

const (
	PipeOutput Variant = iota + 1
	SignalOutput
)

func (v Variant) String() string {
	switch v {
	case PipeOutput:
		return "PIPE_OUTPUT"
	case SignalOutput:
		return "SIGNAL_OUTPUT"
	}
	return "NONE"
}

// Output is a terminal of a route. Via is the cell that produced it
// (actuator, amplifier or comparator); Target is the cell a delivery is
// addressed to.
type Output struct {
	Variant Variant
	Via     grid.Coord
	Target  grid.Coord
	Context int
}

type Edge struct {
	From grid.Coord
	Dir  grid.Direction
}

// Route is the discovered graph for one origin connector. It is immutable
// once Build returns.
type Route struct {
	kind  Kind
	start grid.Coord

	locations mapset.Set[grid.Coord]
	order     []grid.Coord

	visited map[grid.Coord]mapset.Set[grid.Direction]
	edges   []Edge

	outputs  map[int][]Output
	strength map[grid.Coord]int

	truncated bool
}

func newRoute(kind Kind, start grid.Coord) *Route {
	return &Route{
		kind:      kind,
		start:     start,
		locations: mapset.New[grid.Coord](),
		visited:   map[grid.Coord]mapset.Set[grid.Direction]{},
		outputs:   map[int][]Output{},
		strength:  map[grid.Coord]int{},
	}
}

func (r *Route) Kind() Kind                 { return r.kind }
func (r *Route) Start() grid.Coord          { return r.start }
func (r *Route) Len() int                   { return len(r.order) }
func (r *Route) Truncated() bool            { return r.truncated }
func (r *Route) Contains(c grid.Coord) bool { return r.locations.Has(c) }

// Locations returns the body cells in discovery order.
func (r *Route) Locations() []grid.Coord {
	out := make([]grid.Coord, len(r.order))
	copy(out, r.order)
	return out
}

// Outputs returns the outputs of one context in discovery order.
func (r *Route) Outputs(ctx int) []Output {
	src := r.outputs[ctx]
	out := make([]Output, len(src))
	copy(out, src)
	return out
}

func (r *Route) OutputCount(ctx int) int { return len(r.outputs[ctx]) }

func (r *Route) Contexts() []int {
	out := make([]int, 0, len(r.outputs))
	for ctx := range r.outputs {
		out = append(out, ctx)
	}
	sort.Ints(out)
	return out
}

func (r *Route) HasVisited(c grid.Coord, d grid.Direction) bool {
	set, ok := r.visited[c]
	return ok && set.Has(d)
}

// VisitedEdges returns every explored edge in visit order.
func (r *Route) VisitedEdges() []Edge {
	out := make([]Edge, len(r.edges))
	copy(out, r.edges)
	return out
}

// Strength reports the signal strength recorded for c.
func (r *Route) Strength(c grid.Coord) (int, bool) {
	s, ok := r.strength[c]
	return s, ok
}

// TargetsCell reports whether any output of any context is addressed to c.
func (r *Route) TargetsCell(c grid.Coord) bool {
	for _, outs := range r.outputs {
		for _, o := range outs {
			if o.Target == c || o.Via == c {
				return true
			}
		}
	}
	return false
}

func (r *Route) String() string {
	return fmt.Sprintf("%s@%s(cells=%d outputs=%d)", r.kind, r.start, len(r.order), r.outputTotal())
}

func (r *Route) outputTotal() int {
	n := 0
	for _, outs := range r.outputs {
		n += len(outs)
	}
	return n
}

func (r *Route) admit(c grid.Coord) {
	if r.locations.Has(c) {
		return
	}
	r.locations.Put(c)
	r.order = append(r.order, c)
}

func (r *Route) visit(c grid.Coord, d grid.Direction) {
	set, ok := r.visited[c]
	if !ok {
		set = mapset.New[grid.Direction]()
		r.visited[c] = set
	}
	set.Put(d)
	r.edges = append(r.edges, Edge{From: c, Dir: d})
}

func (r *Route) addOutput(o Output) {
	r.outputs[o.Context] = append(r.outputs[o.Context], o)
}
