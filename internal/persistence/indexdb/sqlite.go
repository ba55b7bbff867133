package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"factorycraft.ai/internal/persistence/snapshot"
	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/routes"
	"factorycraft.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index of route events and snapshots.
// Writes are queued and applied by a single writer goroutine; the JSONL route
// logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

type reqKind int

const (
	reqRouteEvent reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	event    routes.EventRecord
	snapshot snapshotRow
}

type snapshotRow struct {
	World  string
	Tick   uint64
	Path   string
	Chunks int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS route_events (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			kind TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			len INTEGER NOT NULL,
			outputs INTEGER NOT NULL,
			truncated INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (world_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_route_events_start ON route_events(world_id, x, z, y, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			world_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			PRIMARY KEY (world_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped reports how many writes were discarded because the queue was full.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropped.Add(1)
	}
}

// OnRouteEvent implements routes.Observer.
func (s *SQLiteIndex) OnRouteEvent(e routes.Event) {
	s.enqueue(req{kind: reqRouteEvent, event: routes.NewEventRecord(e)})
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	s.enqueue(req{kind: reqSnapshot, snapshot: snapshotRow{
		World:  snap.Header.WorldID,
		Tick:   snap.Header.Tick,
		Path:   path,
		Chunks: len(snap.Chunks),
	}})
}

func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil {
			rows = append(rows, kv{name: "blocks_defs", digest: cats.Blocks.DefsDigest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "blocks_palette", digest: cats.Blocks.PaletteDigest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountEvents counts indexed route events of a world. An empty typ counts
// every type.
func (s *SQLiteIndex) CountEvents(ctx context.Context, world, typ string) (int, error) {
	q := `SELECT COUNT(*) FROM route_events WHERE world_id = ?`
	args := []any{world}
	if typ != "" {
		q += ` AND type = ?`
		args = append(args, typ)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CatalogDigest returns the stored digest of a catalog row.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&d)
	return d, err
}

// LatestSnapshot returns the newest indexed snapshot path for a world.
func (s *SQLiteIndex) LatestSnapshot(ctx context.Context, world string) (string, uint64, error) {
	var (
		path string
		tick int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT path, tick FROM snapshots WHERE world_id = ? ORDER BY tick DESC LIMIT 1`, world).Scan(&path, &tick)
	if err != nil {
		return "", 0, err
	}
	return path, uint64(tick), nil
}

type eventSeq struct {
	tick uint64
	seq  int
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO route_events(world_id,tick,seq,type,kind,x,y,z,len,outputs,truncated,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(world_id,tick,path,chunks) VALUES(?,?,?,?)`)
	defer func() {
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		// per-world event sequencing, assigned here so producers stay lock-free
		seqs = map[string]eventSeq{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRouteEvent:
			ev := r.event
			cur := seqs[ev.World]
			if cur.tick != ev.Tick {
				cur = eventSeq{tick: ev.Tick}
			}
			seq := cur.seq
			cur.seq++
			seqs[ev.World] = cur

			raw, _ := json.Marshal(ev)
			truncated := 0
			if ev.Truncated {
				truncated = 1
			}
			if insertEvent != nil {
				if _, err := tx.Stmt(insertEvent).Exec(
					ev.World,
					int64(ev.Tick),
					seq,
					ev.Type,
					ev.Kind,
					ev.Start[0], ev.Start[1], ev.Start[2],
					ev.Len,
					len(ev.Outputs),
					truncated,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(sn.World, int64(sn.Tick), sn.Path, sn.Chunks); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
