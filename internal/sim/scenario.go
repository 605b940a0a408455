package sim

import (
	"errors"
	"fmt"
	"io"
	"os"

	"autohand/internal/components"
	"autohand/internal/config"
	"autohand/internal/engine"
	"autohand/internal/pose"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a scripted run: a scene, keyframed follow targets standing in
// for tracked controllers, and a timeline of button presses.
type Scenario struct {
	Name    string      `yaml:"name"`
	Ticks   int         `yaml:"ticks"`
	Objects []ObjectDef `yaml:"objects"`
	Tracks  []TrackDef  `yaml:"tracks"`
	Inputs  []Input     `yaml:"inputs"`
	// Poses are named hand poses for setHeldPose inputs.
	Poses map[string]pose.Data `yaml:"poses"`
}

// ObjectDef is one scene object. Rotation is Euler angles in degrees.
type ObjectDef struct {
	Name       string              `yaml:"name"`
	Tags       []string            `yaml:"tags"`
	Layer      string              `yaml:"layer"`
	Active     *bool               `yaml:"active"`
	Position   components.Vec3Def  `yaml:"position"`
	Rotation   components.Vec3Def  `yaml:"rotation"`
	Scale      *components.Vec3Def `yaml:"scale"`
	Components []ComponentDef      `yaml:"components"`
	Children   []ObjectDef         `yaml:"children"`
}

// ComponentDef names a registered component; every other key is a prop.
type ComponentDef struct {
	Type  string         `yaml:"type"`
	Props map[string]any `yaml:",inline"`
}

func Load(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

func (s *Scenario) Validate() error {
	if s.Ticks < 0 {
		return fmt.Errorf("%w: negative tick count", ErrInvalidScenario)
	}
	var check func(defs []ObjectDef) error
	check = func(defs []ObjectDef) error {
		for _, d := range defs {
			if d.Name == "" {
				return fmt.Errorf("%w: object without a name", ErrInvalidScenario)
			}
			for _, c := range d.Components {
				if c.Type == "" {
					return fmt.Errorf("%w: %s: component without a type", ErrInvalidScenario, d.Name)
				}
			}
			if err := check(d.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(s.Objects); err != nil {
		return err
	}
	for _, t := range s.Tracks {
		if err := t.validate(); err != nil {
			return err
		}
	}
	for i, in := range s.Inputs {
		if err := in.validate(); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}
	return nil
}

// Build creates a world from cfg and populates it with the scenario.
func (s *Scenario) Build(cfg *config.Config, logger *zap.Logger) (*World, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	w, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	roots := make([]*engine.GameObject, 0, len(s.Objects))
	for _, def := range s.Objects {
		obj, err := w.buildObject(def)
		if err != nil {
			return nil, err
		}
		roots = append(roots, obj)
	}
	var errs []error
	for _, obj := range roots {
		if err := w.attach(obj); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		w.logger.Warn("scenario objects failed to bind", zap.Error(err))
	}

	for _, def := range s.Tracks {
		t, err := w.buildTrack(def)
		if err != nil {
			return nil, err
		}
		w.tracks = append(w.tracks, t)
	}
	// Follow targets sit at their first key before hands look them up.
	for _, t := range w.tracks {
		t.apply(0)
	}
	w.Scene.Start()

	lib := pose.NewLibrary()
	for name, d := range s.Poses {
		if err := lib.Put(name, d); err != nil {
			return nil, err
		}
	}
	w.timeline = newTimeline(s.Inputs, lib)
	w.logger.Info("scenario built",
		zap.String("scenario", s.Name),
		zap.Int("objects", len(w.Scene.GameObjects)),
		zap.Int("hands", w.hands.Len()),
		zap.Int("inputs", len(s.Inputs)))
	return w, nil
}

func (w *World) buildObject(def ObjectDef) (*engine.GameObject, error) {
	obj := engine.NewGameObject(def.Name)
	obj.Tags = append(obj.Tags, def.Tags...)
	if def.Active != nil {
		obj.Active = *def.Active
	}
	obj.Transform.Position = def.Position.Vector3()
	obj.Transform.Rotation = eulerDegrees(def.Rotation)
	if def.Scale != nil {
		obj.Transform.Scale = def.Scale.Vector3()
	}
	if def.Layer != "" {
		layer, err := layerIndex(w.table, def.Layer)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.Name, err)
		}
		obj.Layer = layer
	}
	for _, cdef := range def.Components {
		c, err := engine.CreateComponent(cdef.Type, w.withDefaults(cdef))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.Name, err)
		}
		obj.AddComponent(c)
	}
	for _, child := range def.Children {
		c, err := w.buildObject(child)
		if err != nil {
			return nil, err
		}
		obj.AddChild(c)
	}
	return obj, nil
}

func layerIndex(table *engine.Layers, name string) (int, error) {
	if i, ok := table.NameToLayer(name); ok {
		return i, nil
	}
	return table.Add(name)
}

// withDefaults lays the config's hand and grabbable defaults under the
// props of those components.
func (w *World) withDefaults(def ComponentDef) map[string]any {
	var base any
	switch def.Type {
	case "Hand":
		base = w.Config.Hand
	case "Grabbable":
		base = w.Config.Grabbable
	default:
		return def.Props
	}
	merged, err := toProps(base)
	if err != nil {
		w.logger.Warn("config defaults not applied", zap.String("component", def.Type), zap.Error(err))
		return def.Props
	}
	for k, v := range def.Props {
		merged[k] = v
	}
	return merged
}

func toProps(v any) (map[string]any, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func eulerDegrees(v components.Vec3Def) rl.Quaternion {
	return rl.QuaternionFromEuler(v.X*rl.Deg2rad, v.Y*rl.Deg2rad, v.Z*rl.Deg2rad)
}
