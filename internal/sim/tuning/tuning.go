package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	MaxRouteNodes      int `yaml:"max_route_nodes"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	PumpDelayTicks      int `yaml:"pump_delay_ticks"`
	GeneratorDelayTicks int `yaml:"generator_delay_ticks"`
	CentralDelayTicks   int `yaml:"central_delay_ticks"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:          20,
		MaxRouteNodes:       4096,
		SnapshotEveryTicks:  6000,
		PumpDelayTicks:      8,
		GeneratorDelayTicks: 20,
		CentralDelayTicks:   20,
	}
}

func (t *Tuning) applyDefaults() {
	d := Defaults()
	if t.TickRateHz <= 0 {
		t.TickRateHz = d.TickRateHz
	}
	if t.MaxRouteNodes < 0 {
		t.MaxRouteNodes = 0
	}
	if t.SnapshotEveryTicks < 0 {
		t.SnapshotEveryTicks = 0
	}
	if t.PumpDelayTicks <= 0 {
		t.PumpDelayTicks = d.PumpDelayTicks
	}
	if t.GeneratorDelayTicks <= 0 {
		t.GeneratorDelayTicks = d.GeneratorDelayTicks
	}
	if t.CentralDelayTicks <= 0 {
		t.CentralDelayTicks = d.CentralDelayTicks
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TickRateHz > 1000 {
		return t, fmt.Errorf("tuning.yaml: tick_rate_hz %d out of range", t.TickRateHz)
	}
	t.applyDefaults()
	return t, nil
}
