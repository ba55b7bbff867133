package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"

	"factorycraft.ai/internal/sim/multiworld"
	"factorycraft.ai/internal/transport/observer"
)

func newMux(mgr *multiworld.Manager, obs *observer.Server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		for _, m := range mgr.Metrics() {
			fmt.Fprintf(rw, "factorycraft_world_tick{world=%q} %d\n", m.WorldID, m.Tick)
			fmt.Fprintf(rw, "factorycraft_world_routes{world=%q} %d\n", m.WorldID, m.Routes)
			fmt.Fprintf(rw, "factorycraft_world_devices{world=%q} %d\n", m.WorldID, m.Devices)
			fmt.Fprintf(rw, "factorycraft_world_loaded_chunks{world=%q} %d\n", m.WorldID, m.Chunks)
		}
	})
	mux.HandleFunc("/admin/v1/worlds/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		out := map[string]any{
			"worlds":  mgr.Manifest(),
			"metrics": mgr.Metrics(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(out)
	})
	mux.HandleFunc("/admin/v1/routes", obs.RoutesHandler())
	mux.HandleFunc("/v1/observer/ws", obs.WSHandler())

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
