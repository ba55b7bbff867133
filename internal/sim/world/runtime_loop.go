package world

import (
	"context"
	"fmt"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingEdits []Edit

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case e := <-w.edits:
			pendingEdits = append(pendingEdits, e)
		case c := <-w.calls:
			c.fn(w)
			close(c.done)
		case <-ticker.C:
			w.stepInternal(pendingEdits)
			pendingEdits = pendingEdits[:0]
		}
	}
}

// Step advances the world by one tick outside the run loop. Tests and tools
// use it to drive the world deterministically.
func (w *World) Step() {
	w.stepInternal(nil)
}

func (w *World) stepInternal(edits []Edit) {
	nowTick := w.tick.Load()

	for _, e := range edits {
		w.SetCell(e.Pos, e.Cell)
	}
	w.devices.Tick(nowTick)

	w.refreshMetrics()
	w.maybeSnapshot(nowTick)
	w.tick.Add(1)
}

func (w *World) maybeSnapshot(nowTick uint64) {
	every := uint64(w.cfg.SnapshotEveryTicks)
	if w.snapshotSink == nil || every == 0 || nowTick == 0 || nowTick%every != 0 {
		return
	}
	snap := w.ExportSnapshot(nowTick)
	select {
	case w.snapshotSink <- snap:
	default:
		if w.logger != nil {
			w.logger.Printf("world %s: snapshot sink backpressure at tick %d", w.cfg.ID, nowTick)
		}
	}
}

// SubmitEdit queues a cell write for the next tick. It never blocks; false
// means the queue is full.
func (w *World) SubmitEdit(e Edit) bool {
	select {
	case w.edits <- e:
		return true
	default:
		return false
	}
}

// Do runs fn on the world loop goroutine and waits for it to finish.
func (w *World) Do(ctx context.Context, fn func(*World)) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case w.calls <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stop:
		return fmt.Errorf("world %s stopped", w.cfg.ID)
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *World) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}
