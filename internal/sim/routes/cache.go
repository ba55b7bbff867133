package routes

import (
	"fmt"
	"log"
	"sort"

	"factorycraft.ai/internal/sim/grid"
)

type EventType uint8

const (
	EventBuilt EventType = iota + 1
	EventRemoved
)

func (t EventType) String() string {
	switch t {
	case EventBuilt:
		return "ROUTE_BUILT"
	case EventRemoved:
		return "ROUTE_REMOVED"
	}
	return "UNKNOWN"
}

type Event struct {
	Type  EventType
	World string
	Tick  uint64
	Route *Route
}

// Observer receives build/remove notifications. Observers run synchronously
// inside the cache call that produced the event.
type Observer interface {
	OnRouteEvent(e Event)
}

type ObserverFunc func(e Event)

func (f ObserverFunc) OnRouteEvent(e Event) { f(e) }

type CacheConfig struct {
	World   string
	Builder *Builder
	// Clock stamps events with the current tick. Optional.
	Clock  func() uint64
	Logger *log.Logger
}

type originKey struct {
	kind Kind
	at   grid.Coord
}

// Cache is the per-world route index: origin -> route and member cell ->
// routes. Not safe for concurrent use; the owning world serializes access.
type Cache struct {
	world   string
	builder *Builder
	clock   func() uint64
	logger  *log.Logger

	origins map[originKey]*Route
	members map[grid.Coord][]*Route

	observers []Observer
}

func NewCache(cfg CacheConfig) *Cache {
	return &Cache{
		world:   cfg.World,
		builder: cfg.Builder,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		origins: map[originKey]*Route{},
		members: map[grid.Coord][]*Route{},
	}
}

func (c *Cache) World() string { return c.world }

func (c *Cache) Subscribe(o Observer) {
	if o == nil {
		return
	}
	c.observers = append(c.observers, o)
}

// GetOrBuild returns the cached route for (kind, start), building it on a
// miss. A start that is already a body cell of a cached route of the same
// kind resolves to that route. A fresh build replaces any cached route of
// its kind it overlaps, so a cell belongs to at most one cached route per
// kind. Routes without body cells are returned but never cached.
func (c *Cache) GetOrBuild(kind Kind, start grid.Coord) *Route {
	if start.World != c.world {
		return newRoute(kind, start)
	}
	key := originKey{kind: kind, at: start}
	if r, ok := c.origins[key]; ok {
		return r
	}
	if r := c.memberOfKind(kind, start); r != nil {
		return r
	}

	r := c.builder.Build(kind, start, nil)
	if r.Truncated() && c.logger != nil {
		c.logger.Printf("route %s truncated after %d edges", r, len(r.edges))
	}
	if r.Len() == 0 {
		return r
	}
	c.removeAll(c.overlapping(r))
	c.origins[key] = r
	for _, loc := range r.order {
		c.members[loc] = append(c.members[loc], r)
	}
	c.emit(EventBuilt, r)
	return r
}

func (c *Cache) memberOfKind(kind Kind, at grid.Coord) *Route {
	for _, r := range c.members[at] {
		if r.kind == kind {
			return r
		}
	}
	return nil
}

// overlapping lists the cached routes of r's kind sharing a body cell with
// r, in r's discovery order.
func (c *Cache) overlapping(r *Route) []*Route {
	var out []*Route
	seen := map[*Route]bool{}
	for _, loc := range r.order {
		for _, o := range c.members[loc] {
			if o.kind == r.kind && !seen[o] {
				seen[o] = true
				out = append(out, o)
			}
		}
	}
	return out
}

func (c *Cache) Lookup(kind Kind, start grid.Coord) (*Route, bool) {
	r, ok := c.origins[originKey{kind: kind, at: start}]
	return r, ok
}

// RoutesAt returns every cached route with c among its body cells.
func (c *Cache) RoutesAt(at grid.Coord) []*Route {
	src := c.members[at]
	out := make([]*Route, len(src))
	copy(out, src)
	return out
}

func (c *Cache) RoutesOfKindAt(kind Kind, at grid.Coord) []*Route {
	var out []*Route
	for _, r := range c.members[at] {
		if r.kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Origins returns the cached routes ordered by kind then start.
func (c *Cache) Origins() []*Route {
	out := make([]*Route, 0, len(c.origins))
	for _, r := range c.origins {
		out = append(out, r)
	}
	sortRoutes(out)
	return out
}

func (c *Cache) Len() int { return len(c.origins) }

// Invalidate drops every route that has at as a body cell or as its start.
// It returns the number of routes removed.
func (c *Cache) Invalidate(at grid.Coord) int {
	if at.World != c.world {
		return 0
	}
	return c.removeAll(c.affected([]grid.Coord{at}))
}

// InvalidateAround invalidates at and the 26 cells surrounding it. Every
// cell a build reads lies next to a body cell or the start, so this is the
// mutation hook for cell changes, including actuator and target cells that
// never become body cells.
func (c *Cache) InvalidateAround(at grid.Coord) int {
	if at.World != c.world {
		return 0
	}
	cells := make([]grid.Coord, 0, 27)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				cells = append(cells, grid.At(at.World, at.X+dx, at.Y+dy, at.Z+dz))
			}
		}
	}
	return c.removeAll(c.affected(cells))
}

// InvalidateRegion drops every route touching the chunk.
func (c *Cache) InvalidateRegion(k grid.ChunkKey) int {
	var cells []grid.Coord
	for at := range c.members {
		if k.Contains(at) {
			cells = append(cells, at)
		}
	}
	for key := range c.origins {
		if k.Contains(key.at) {
			cells = append(cells, key.at)
		}
	}
	return c.removeAll(c.affected(cells))
}

func (c *Cache) InvalidateCoords(cells []grid.Coord) int {
	own := make([]grid.Coord, 0, len(cells))
	for _, at := range cells {
		if at.World == c.world {
			own = append(own, at)
		}
	}
	return c.removeAll(c.affected(own))
}

// InvalidateDevice drops routes that start at or next to the device cell,
// and routes with an output addressed to it.
func (c *Cache) InvalidateDevice(at grid.Coord) int {
	if at.World != c.world {
		return 0
	}
	var hit []*Route
	for _, r := range c.origins {
		if r.start == at || r.start.Adjacent(at) || r.TargetsCell(at) {
			hit = append(hit, r)
		}
	}
	sortRoutes(hit)
	return c.removeAll(hit)
}

func (c *Cache) affected(cells []grid.Coord) []*Route {
	seen := map[*Route]bool{}
	var out []*Route
	add := func(r *Route) {
		if r == nil || seen[r] {
			return
		}
		seen[r] = true
		out = append(out, r)
	}
	for _, at := range cells {
		for _, r := range c.members[at] {
			add(r)
		}
		add(c.origins[originKey{kind: Pipe, at: at}])
		add(c.origins[originKey{kind: Signal, at: at}])
	}
	sortRoutes(out)
	return out
}

func (c *Cache) removeAll(rs []*Route) int {
	n := 0
	for _, r := range rs {
		if c.remove(r) {
			n++
		}
	}
	return n
}

func (c *Cache) remove(r *Route) bool {
	key := originKey{kind: r.kind, at: r.start}
	if c.origins[key] != r {
		return false
	}
	delete(c.origins, key)
	for _, loc := range r.order {
		list := c.members[loc]
		kept := list[:0]
		for _, other := range list {
			if other != r {
				kept = append(kept, other)
			}
		}
		if len(kept) == 0 {
			delete(c.members, loc)
		} else {
			c.members[loc] = kept
		}
	}
	c.emit(EventRemoved, r)
	return true
}

func (c *Cache) emit(t EventType, r *Route) {
	if len(c.observers) == 0 {
		return
	}
	e := Event{Type: t, World: c.world, Route: r}
	if c.clock != nil {
		e.Tick = c.clock()
	}
	for _, o := range c.observers {
		o.OnRouteEvent(e)
	}
}

// CheckInvariants verifies that both indices agree with each other and with
// the routes they hold.
func (c *Cache) CheckInvariants() error {
	for key, r := range c.origins {
		if r.kind != key.kind || r.start != key.at {
			return fmt.Errorf("origin %s/%s holds route %s", key.kind, key.at, r)
		}
		if r.Len() == 0 {
			return fmt.Errorf("empty route cached at %s", key.at)
		}
		for _, loc := range r.order {
			if countRoute(c.members[loc], r) != 1 {
				return fmt.Errorf("route %s missing from member index at %s", r, loc)
			}
		}
	}
	for at, list := range c.members {
		if len(list) == 0 {
			return fmt.Errorf("empty member entry at %s", at)
		}
		kinds := map[Kind]bool{}
		for _, r := range list {
			if !r.Contains(at) {
				return fmt.Errorf("route %s indexed at %s but does not contain it", r, at)
			}
			if c.origins[originKey{kind: r.kind, at: r.start}] != r {
				return fmt.Errorf("route %s indexed at %s has no origin entry", r, at)
			}
			if countRoute(list, r) != 1 {
				return fmt.Errorf("route %s listed twice at %s", r, at)
			}
			if kinds[r.kind] {
				return fmt.Errorf("two %s routes share %s", r.kind, at)
			}
			kinds[r.kind] = true
		}
	}
	return nil
}

func countRoute(list []*Route, r *Route) int {
	n := 0
	for _, o := range list {
		if o == r {
			n++
		}
	}
	return n
}

func sortRoutes(rs []*Route) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].kind != rs[j].kind {
			return rs[i].kind < rs[j].kind
		}
		return rs[i].start.Less(rs[j].start)
	})
}
