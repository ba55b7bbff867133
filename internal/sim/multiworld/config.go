package multiworld

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"factorycraft.ai/internal/sim/tuning"
)

type Config struct {
	DefaultWorldID string      `yaml:"default_world_id"`
	Worlds         []WorldSpec `yaml:"worlds"`
}

// WorldSpec describes one world. Zero numeric fields fall back to tuning.
type WorldSpec struct {
	ID                 string `yaml:"id"`
	TickRateHz         int    `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks"`
	MaxRouteNodes      int    `yaml:"max_route_nodes"`
	Description        string `yaml:"description,omitempty"`
}

type WorldRef struct {
	WorldID       string `json:"world_id"`
	TickRateHz    int    `json:"tick_rate_hz"`
	MaxRouteNodes int    `json:"max_route_nodes"`
	Description   string `json:"description,omitempty"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg = Config{}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultWorldID: "OVERWORLD",
		Worlds: []WorldSpec{
			{ID: "OVERWORLD", Description: "main factory floor"},
		},
	}
}

// Normalize fills unset per-world numbers from the tuning defaults.
func (c *Config) Normalize(t tuning.Tuning) {
	if c == nil {
		return
	}
	for i := range c.Worlds {
		c.Worlds[i].ID = strings.TrimSpace(c.Worlds[i].ID)
		if c.Worlds[i].TickRateHz <= 0 {
			c.Worlds[i].TickRateHz = t.TickRateHz
		}
		if c.Worlds[i].SnapshotEveryTicks <= 0 {
			c.Worlds[i].SnapshotEveryTicks = t.SnapshotEveryTicks
		}
		if c.Worlds[i].MaxRouteNodes <= 0 {
			c.Worlds[i].MaxRouteNodes = t.MaxRouteNodes
		}
	}
	if strings.TrimSpace(c.DefaultWorldID) == "" && len(c.Worlds) > 0 {
		c.DefaultWorldID = c.Worlds[0].ID
	}
}

func (c Config) Validate() error {
	if len(c.Worlds) == 0 {
		return fmt.Errorf("worlds must not be empty")
	}
	seen := map[string]bool{}
	for _, w := range c.Worlds {
		id := strings.TrimSpace(w.ID)
		if id == "" {
			return fmt.Errorf("world id must not be empty")
		}
		if strings.ContainsAny(id, "/\\ ") {
			return fmt.Errorf("world id %q must not contain path separators or spaces", id)
		}
		if seen[id] {
			return fmt.Errorf("duplicate world id: %s", id)
		}
		seen[id] = true
		if w.TickRateHz < 0 || w.TickRateHz > 1000 {
			return fmt.Errorf("world %s tick_rate_hz must be in [0, 1000]", id)
		}
		if w.SnapshotEveryTicks < 0 {
			return fmt.Errorf("world %s snapshot_every_ticks must be >= 0", id)
		}
		if w.MaxRouteNodes < 0 {
			return fmt.Errorf("world %s max_route_nodes must be >= 0", id)
		}
	}
	if c.DefaultWorldID != "" && !seen[c.DefaultWorldID] {
		return fmt.Errorf("default_world_id %q not found in worlds", c.DefaultWorldID)
	}
	return nil
}

func (c Config) Manifest() []WorldRef {
	out := make([]WorldRef, 0, len(c.Worlds))
	for _, w := range c.Worlds {
		out = append(out, WorldRef{
			WorldID:       w.ID,
			TickRateHz:    w.TickRateHz,
			MaxRouteNodes: w.MaxRouteNodes,
			Description:   w.Description,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorldID < out[j].WorldID })
	return out
}

func (c Config) WorldSpecByID(id string) (WorldSpec, bool) {
	for _, w := range c.Worlds {
		if w.ID == id {
			return w, true
		}
	}
	return WorldSpec{}, false
}
