package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dyngraph/internal/control"
	"github.com/san-kum/dyngraph/internal/dynamo"
	"github.com/san-kum/dyngraph/internal/integrators"
	"github.com/san-kum/dyngraph/internal/physics"
	"github.com/san-kum/dyngraph/internal/sim"
)

const (
	DefaultDt    = 0.01
	DefaultSteps = 1000
	DefaultName  = "body"
	DefaultKp    = 2.0
	DefaultKi    = 0.1
	DefaultKd    = 0.05
)

type Config struct {
	Model            string           `yaml:"model" validate:"required,model"`
	Name             string           `yaml:"name" validate:"required"`
	Integrator       string           `yaml:"integrator" validate:"required,integrator"`
	Controller       string           `yaml:"controller" validate:"required,controller"`
	Dt               float64          `yaml:"dt" validate:"gt=0"`
	Steps            int              `yaml:"steps" validate:"gt=0"`
	Control          []float64        `yaml:"control,omitempty" validate:"omitempty,len=1"`
	Force            float64          `yaml:"force"`
	Outputs          []string         `yaml:"outputs,omitempty"`
	InitState        InitStateConfig  `yaml:"init_state"`
	Params           ModelParams      `yaml:"params"`
	ControllerParams ControllerConfig `yaml:"controller_params"`
}

type InitStateConfig struct {
	Pos   float64 `yaml:"pos"`
	Theta float64 `yaml:"theta"`
	Vel   float64 `yaml:"vel"`
	Omega float64 `yaml:"omega"`
}

// ModelParams overrides construction defaults. Nil fields keep the default.
type ModelParams struct {
	CartMass       *float64 `yaml:"cart_mass,omitempty" mapstructure:"cartMass" validate:"omitempty,gt=0"`
	CartHeight     *float64 `yaml:"cart_height,omitempty" mapstructure:"cartHeight" validate:"omitempty,gt=0"`
	PendulumMass   *float64 `yaml:"pendulum_mass,omitempty" mapstructure:"pendulumMass" validate:"omitempty,gt=0"`
	PendulumLength *float64 `yaml:"pendulum_length,omitempty" mapstructure:"pendulumLength" validate:"omitempty,gt=0"`
	Viscosity      *float64 `yaml:"viscosity,omitempty" mapstructure:"viscosity" validate:"omitempty,gte=0"`
}

type ControllerConfig struct {
	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
	Target float64 `yaml:"target"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("model", oneOf(physics.Classes))
	_ = validate.RegisterValidation("integrator", oneOf(integrators.Names))
	_ = validate.RegisterValidation("controller", oneOf(control.Names))
}

func oneOf(names func() []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(names(), fl.Field().String())
	}
}

func DefaultConfig() *Config {
	return &Config{
		Model:      physics.ClassTableCart,
		Name:       DefaultName,
		Integrator: "euler",
		Controller: "none",
		Dt:         DefaultDt,
		Steps:      DefaultSteps,
		ControllerParams: ControllerConfig{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
	}
}

// Validate checks field ranges and names against the known models,
// integrators and controllers.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetInitState orders the initial condition for the configured model.
func (c *Config) GetInitState() dynamo.State {
	switch c.Model {
	case physics.ClassInvertedPendulum:
		return dynamo.State{c.InitState.Pos, c.InitState.Theta, c.InitState.Vel, c.InitState.Omega}
	default:
		return dynamo.State{c.InitState.Pos}
	}
}

// GetControl returns the constant control, zero if unset.
func (c *Config) GetControl() dynamo.Control {
	if len(c.Control) == 0 {
		return dynamo.Control{0}
	}
	return dynamo.Control(c.Control).Clone()
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{Dt: c.Dt, Steps: c.Steps, Outputs: c.Outputs}
}

// Map returns the overridden parameters keyed by model parameter name.
func (p ModelParams) Map() map[string]float64 {
	out := make(map[string]float64)
	set := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	set("cartMass", p.CartMass)
	set("cartHeight", p.CartHeight)
	set("pendulumMass", p.PendulumMass)
	set("pendulumLength", p.PendulumLength)
	set("viscosity", p.Viscosity)
	return out
}

// MergeParams decodes raw name/value pairs, such as --param flags, over p.
// Values are converted weakly, so "0.8" and 0.8 are equivalent.
func (p *ModelParams) MergeParams(raw map[string]string) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           p,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidParameter, err)
	}
	return nil
}

// Law builds the configured control law.
func (c *Config) Law() (control.Law, error) {
	law, err := control.New(c.Controller, c.Model, c.GetControl(), c.ControllerParams.Target)
	if err != nil {
		return nil, err
	}
	if pid, ok := law.(*control.PID); ok {
		pid.Kp, pid.Ki, pid.Kd = c.ControllerParams.Kp, c.ControllerParams.Ki, c.ControllerParams.Kd
	}
	return law, nil
}

// Apply configures a freshly spawned model: integrator, parameters, initial
// state and constant inputs.
func (c *Config) Apply(m physics.Model) error {
	integ, err := integrators.New(c.Integrator)
	if err != nil {
		return err
	}
	m.SetIntegrator(integ)
	for name, v := range c.Params.Map() {
		if err := m.SetParam(name, v); err != nil {
			return err
		}
	}
	if err := m.SetState(c.GetInitState()); err != nil {
		return err
	}
	if err := m.ForceInput().Set(c.Force, 0); err != nil {
		return err
	}
	return m.ControlInput().Set(c.GetControl(), 0)
}

func (c *Config) Clone() *Config {
	cp := *c
	cp.Control = slices.Clone(c.Control)
	cp.Outputs = slices.Clone(c.Outputs)
	return &cp
}
