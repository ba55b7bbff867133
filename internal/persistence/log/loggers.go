package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// RotatingJSONL appends JSON lines to named streams under one directory.
// Each stream rotates hourly into <stream>-<yyyy-mm-dd-hh>.jsonl.zst.
type RotatingJSONL struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	streams map[string]*hourFile
}

type hourFile struct {
	hour string
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
}

func NewRotatingJSONL(dir string) *RotatingJSONL {
	return &RotatingJSONL{
		dir:     dir,
		now:     time.Now,
		streams: map[string]*hourFile{},
	}
}

// Append writes v as one line of stream and flushes it through zstd.
func (w *RotatingJSONL) Append(stream string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", stream, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	hour := w.now().UTC().Format("2006-01-02-15")
	hf := w.streams[stream]
	if hf == nil || hf.hour != hour {
		if hf != nil {
			if err := hf.close(); err != nil {
				return fmt.Errorf("%s: %w", stream, err)
			}
			delete(w.streams, stream)
		}
		hf, err = w.open(stream, hour)
		if err != nil {
			return fmt.Errorf("%s: %w", stream, err)
		}
		w.streams[stream] = hf
	}

	b = append(b, '\n')
	if _, err := hf.buf.Write(b); err != nil {
		return fmt.Errorf("%s: %w", stream, err)
	}
	if err := hf.buf.Flush(); err != nil {
		return fmt.Errorf("%s: %w", stream, err)
	}
	return nil
}

// Streams lists the streams with an open file, sorted.
func (w *RotatingJSONL) Streams() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.streams))
	for name := range w.streams {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (w *RotatingJSONL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for name, hf := range w.streams {
		if err := hf.close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		delete(w.streams, name)
	}
	return errors.Join(errs...)
}

func (w *RotatingJSONL) path(stream, hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", stream, hour))
}

func (w *RotatingJSONL) open(stream, hour string) (*hourFile, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(w.path(stream, hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &hourFile{hour: hour, f: f, enc: enc, buf: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// close finishes the zstd frame; appending later in the same hour starts a
// new frame in the same file.
func (h *hourFile) close() error {
	flushErr := h.buf.Flush()
	encErr := h.enc.Close()
	fileErr := h.f.Close()
	return errors.Join(flushErr, encErr, fileErr)
}
