package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"factorycraft.ai/internal/sim/catalogs"
	"factorycraft.ai/internal/sim/multiworld"
	"factorycraft.ai/internal/sim/tuning"
	"factorycraft.ai/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		worldsPath = flag.String("worlds", "", "path to worlds.yaml (default: <configs>/worlds.yaml)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite route event index")
		loadLatest = flag.Bool("load_latest_snapshot", true, "restore each world from its latest snapshot in the data dir")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	wp := strings.TrimSpace(*worldsPath)
	if wp == "" {
		wp = filepath.Join(*configDir, "worlds.yaml")
	}
	if _, err := os.Stat(wp); err != nil {
		logger.Printf("worlds config not found (%s); using a single default world", wp)
		wp = ""
	}
	wcfg, err := multiworld.Load(wp)
	if err != nil {
		logger.Fatalf("load worlds config: %v", err)
	}
	wcfg.Normalize(tune)

	snapshotFor := func(id string) string { return "" }
	if *loadLatest {
		snapshotFor = func(id string) string { return latestSnapshot(worldDir(*dataDir, id)) }
	}
	mgr, err := multiworld.Build(wcfg, cats.Blocks, snapshotFor)
	if err != nil {
		logger.Fatalf("build worlds: %v", err)
	}

	hub := observer.NewHub()
	rt, err := wireRuntime(runtimeConfig{
		DataDir:   *dataDir,
		ConfigDir: *configDir,
		DisableDB: *disableDB,
	}, mgr, cats, tune, hub, logger)
	if err != nil {
		logger.Fatalf("wire runtime: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(mgr, observer.NewServer(mgr, hub, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("listening on %s worlds=%v", *addr, mgr.WorldIDs())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("ListenAndServe: %v", err)
			cancel()
		}
	}()

	if err := mgr.Run(ctx); err != nil {
		logger.Printf("worlds stopped: %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// Worlds are stopped; their state can be read directly.
	rt.finalSnapshots()
	rt.Close()
	logger.Printf("shutdown complete")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func worldDir(dataDir, id string) string {
	return filepath.Join(dataDir, "worlds", id)
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
