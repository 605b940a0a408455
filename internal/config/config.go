package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"autohand/internal/components"
	"autohand/internal/engine"
	"autohand/internal/grabbable"
	"autohand/internal/hand"
	"autohand/internal/logging"
	"autohand/internal/physics"

	"github.com/getsentry/sentry-go"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the simulation config file. Every section is optional; missing
// keys keep their defaults.
type Config struct {
	Physics   Physics            `yaml:"physics"`
	Layers    Layers             `yaml:"layers"`
	Hand      hand.Settings      `yaml:"hand"`
	Grabbable grabbable.Settings `yaml:"grabbable"`
	Log       Log                `yaml:"log"`
	Sentry    Sentry             `yaml:"sentry"`
}

type Physics struct {
	FixedTimestep    float32            `yaml:"fixedTimestep"`
	Gravity          components.Vec3Def `yaml:"gravity"`
	SolverIterations int                `yaml:"solverIterations"`
}

// Layers names the grab layers. Ignore lists extra layer pairs that never
// collide, by name.
type Layers struct {
	grabbable.LayerNames `yaml:",inline"`
	Ignore               [][2]string `yaml:"ignore"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Sentry is disabled when DSN is empty.
type Sentry struct {
	DSN         string  `yaml:"dsn"`
	Environment string  `yaml:"environment"`
	Release     string  `yaml:"release"`
	SampleRate  float64 `yaml:"sampleRate"`
}

func Default() *Config {
	return &Config{
		Physics: Physics{
			FixedTimestep:    1.0 / 90,
			Gravity:          components.Vec3Def{Y: -9.81},
			SolverIterations: physics.DefaultSolverIterations,
		},
		Layers:    Layers{LayerNames: grabbable.DefaultLayerNames()},
		Hand:      hand.DefaultSettings(),
		Grabbable: grabbable.DefaultSettings(),
		Log:       Log{Level: "info"},
		Sentry:    Sentry{Environment: "development", SampleRate: 1},
	}
}

// Load decodes a config over the defaults and validates it. Unknown keys
// are rejected.
func Load(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Physics.FixedTimestep <= 0 {
		return fmt.Errorf("%w: fixedTimestep must be positive", ErrInvalidConfig)
	}
	if c.Physics.SolverIterations <= 0 {
		return fmt.Errorf("%w: solverIterations must be positive", ErrInvalidConfig)
	}
	if err := c.Layers.validate(); err != nil {
		return err
	}
	if err := c.Hand.Validate(); err != nil {
		return fmt.Errorf("%w: hand: %v", ErrInvalidConfig, err)
	}
	if err := c.Grabbable.Validate(); err != nil {
		return fmt.Errorf("%w: grabbable: %v", ErrInvalidConfig, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Sentry.SampleRate < 0 || c.Sentry.SampleRate > 1 {
		return fmt.Errorf("%w: sentry sampleRate %v outside [0,1]", ErrInvalidConfig, c.Sentry.SampleRate)
	}
	return nil
}

func (l Layers) validate() error {
	names := []string{l.Grabbable, l.Grabbing, l.Releasing, l.Hand, l.HandHolding}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("%w: empty layer name", ErrInvalidConfig)
		}
		if seen[n] {
			return fmt.Errorf("%w: layer %q used twice", ErrInvalidConfig, n)
		}
		seen[n] = true
	}
	for _, pair := range l.Ignore {
		if pair[0] == "" || pair[1] == "" {
			return fmt.Errorf("%w: empty layer in ignore pair", ErrInvalidConfig)
		}
	}
	return nil
}

// Setup resolves the grab layers in table, isolates hands from objects in
// transit and applies the extra ignore pairs to m.
func (l Layers) Setup(table *engine.Layers, m grabbable.CollisionMatrix) (grabbable.Layers, error) {
	layers, err := grabbable.SetupLayers(table, l.LayerNames)
	if err != nil {
		return grabbable.Layers{}, err
	}
	layers.Isolate(m)
	for _, pair := range l.Ignore {
		a, err := layerIndex(table, pair[0])
		if err != nil {
			return grabbable.Layers{}, err
		}
		b, err := layerIndex(table, pair[1])
		if err != nil {
			return grabbable.Layers{}, err
		}
		m.IgnoreLayerCollision(a, b, true)
	}
	return layers, nil
}

func layerIndex(table *engine.Layers, name string) (int, error) {
	if i, ok := table.NameToLayer(name); ok {
		return i, nil
	}
	return table.Add(name)
}

// Apply copies the physics section onto w.
func (p Physics) Apply(w *physics.World) {
	w.Gravity = p.Gravity.Vector3()
	w.SolverIterations = p.SolverIterations
}

// Init configures the global Sentry hub. It is a no-op without a DSN.
func (s Sentry) Init() error {
	if s.DSN == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         s.DSN,
		Environment: s.Environment,
		Release:     s.Release,
		SampleRate:  s.SampleRate,
	})
}
