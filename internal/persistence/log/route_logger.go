package log

import (
	stdlog "log"
	"path/filepath"
	"strings"
	"sync/atomic"

	"factorycraft.ai/internal/sim/routes"
)

// RouteLogger persists route build/remove notifications of one world as
// compressed JSONL under <worldDir>/routes, one stream per route kind
// (pipe-<hour>.jsonl.zst, signal-<hour>.jsonl.zst). It is a routes.Observer.
type RouteLogger struct {
	w      *RotatingJSONL
	logger *stdlog.Logger

	written atomic.Uint64
	failed  atomic.Uint64
}

func NewRouteLogger(worldDir string, logger *stdlog.Logger) *RouteLogger {
	return &RouteLogger{
		w:      NewRotatingJSONL(filepath.Join(worldDir, "routes")),
		logger: logger,
	}
}

func (l *RouteLogger) OnRouteEvent(e routes.Event) {
	rec := routes.NewEventRecord(e)
	if err := l.w.Append(strings.ToLower(rec.Kind), rec); err != nil {
		// log the first failure only
		if l.failed.Add(1) == 1 && l.logger != nil {
			l.logger.Printf("route log write: %v", err)
		}
		return
	}
	l.written.Add(1)
}

func (l *RouteLogger) Written() uint64 { return l.written.Load() }
func (l *RouteLogger) Failed() uint64  { return l.failed.Load() }
func (l *RouteLogger) Close() error    { return l.w.Close() }
