package config

import (
	"sort"

	"github.com/san-kum/dyngraph/internal/physics"
)

var Presets = map[string]map[string]*Config{
	physics.ClassTableCart: {
		"step": {
			Model: physics.ClassTableCart, Integrator: "euler", Controller: "constant", Dt: 0.01, Steps: 500,
			Control: []float64{0.5},
		},
		"push": {
			Model: physics.ClassTableCart, Integrator: "euler", Controller: "none", Dt: 0.01, Steps: 200,
			Force: 5,
		},
		"track": {
			Model: physics.ClassTableCart, Integrator: "euler", Controller: "pid", Dt: 0.01, Steps: 1000,
			ControllerParams: ControllerConfig{Kp: DefaultKp, Ki: DefaultKi, Kd: DefaultKd, Target: 1.0},
		},
	},
	physics.ClassInvertedPendulum: {
		"balance": {
			Model: physics.ClassInvertedPendulum, Integrator: "rk4", Controller: "lqr", Dt: 0.01, Steps: 1000,
			InitState: InitStateConfig{Theta: 0.1},
		},
		"recover": {
			Model: physics.ClassInvertedPendulum, Integrator: "rk4", Controller: "lqr", Dt: 0.01, Steps: 1000,
			InitState: InitStateConfig{Theta: 0.3, Omega: 0.5},
		},
		"freefall": {
			Model: physics.ClassInvertedPendulum, Integrator: "euler", Controller: "none", Dt: 0.01, Steps: 300,
			InitState: InitStateConfig{Theta: 0.1},
		},
	},
}

// GetPreset returns a copy of the preset with Name set to the default, or
// nil if there is none.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	cp := cfg.Clone()
	if cp.Name == "" {
		cp.Name = DefaultName
	}
	return cp
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
