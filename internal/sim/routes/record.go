package routes

// OutputRecord is the wire form of an Output.
type OutputRecord struct {
	Variant string `json:"variant"`
	Via     [3]int `json:"via"`
	Target  [3]int `json:"target"`
	Context int    `json:"context"`
}

// Record is a flat, JSON-friendly summary of a route used by the event log,
// the index and the observer stream.
type Record struct {
	World     string         `json:"world_id"`
	Kind      string         `json:"kind"`
	Start     [3]int         `json:"start"`
	Len       int            `json:"len"`
	Truncated bool           `json:"truncated,omitempty"`
	Outputs   []OutputRecord `json:"outputs,omitempty"`
	Cells     [][3]int       `json:"cells,omitempty"`
}

// EventRecord is a Record stamped with the event that produced it.
type EventRecord struct {
	Type string `json:"type"`
	Tick uint64 `json:"tick"`
	Record
}

// NewRecord summarizes r. Cells are included only when withCells is set.
func NewRecord(r *Route, withCells bool) Record {
	rec := Record{
		World:     r.start.World,
		Kind:      r.kind.String(),
		Start:     r.start.ToArray(),
		Len:       r.Len(),
		Truncated: r.truncated,
	}
	for _, ctx := range r.Contexts() {
		for _, o := range r.outputs[ctx] {
			rec.Outputs = append(rec.Outputs, OutputRecord{
				Variant: o.Variant.String(),
				Via:     o.Via.ToArray(),
				Target:  o.Target.ToArray(),
				Context: o.Context,
			})
		}
	}
	if withCells {
		rec.Cells = make([][3]int, 0, len(r.order))
		for _, c := range r.order {
			rec.Cells = append(rec.Cells, c.ToArray())
		}
	}
	return rec
}

func NewEventRecord(e Event) EventRecord {
	return EventRecord{
		Type:   e.Type.String(),
		Tick:   e.Tick,
		Record: NewRecord(e.Route, false),
	}
}
