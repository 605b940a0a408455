package sim

import (
	"errors"
	"fmt"

	"autohand/internal/config"
	"autohand/internal/engine"
	"autohand/internal/follow"
	"autohand/internal/grabbable"
	"autohand/internal/hand"
	"autohand/internal/physics"

	"github.com/elliotchance/orderedmap/v2"
	"go.uber.org/zap"
)

var (
	ErrUnknownObject = errors.New("unknown object")
	ErrUnknownHand   = errors.New("unknown hand")
	ErrDuplicateHand = errors.New("duplicate hand name")
)

// World runs one simulation: a scene, its rigid-body world and the grab
// registry shared by every hand in it.
type World struct {
	Scene    *engine.Scene
	Physics  *physics.World
	Registry *grabbable.Registry
	Layers   grabbable.Layers
	Config   *config.Config

	logger *zap.Logger
	table  *engine.Layers
	hands  *orderedmap.OrderedMap[string, *hand.Hand]
	dt     float32
	tick   int
	clock  float64

	tracks   []*track
	timeline *timeline
	log      *EventLog
}

func New(cfg *config.Config, logger *zap.Logger) (*World, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	phys := physics.NewWorld(logger)
	cfg.Physics.Apply(phys)

	table := engine.NewLayers()
	layers, err := cfg.Layers.Setup(table, phys)
	if err != nil {
		return nil, fmt.Errorf("layers: %w", err)
	}

	w := &World{
		Scene:    engine.NewScene("sim"),
		Physics:  phys,
		Registry: grabbable.NewRegistry(layers, logger),
		Layers:   layers,
		Config:   cfg,
		logger:   logger.Named("sim"),
		table:    table,
		hands:    orderedmap.NewOrderedMap[string, *hand.Hand](),
		dt:       cfg.Physics.FixedTimestep,
		timeline: &timeline{},
		log:      &EventLog{},
	}
	w.Scene.OnDestroyed.AddListener(w.forget)
	return w, nil
}

func (w *World) Tick() int                  { return w.tick }
func (w *World) Time() float64              { return w.clock }
func (w *World) FixedDelta() float32        { return w.dt }
func (w *World) LayerTable() *engine.Layers { return w.table }
func (w *World) Events() *EventLog          { return w.log }

// Hand returns the hand on the object called name.
func (w *World) Hand(name string) (*hand.Hand, error) {
	h, ok := w.hands.Get(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownHand)
	}
	return h, nil
}

// Hands lists hands in the order they joined.
func (w *World) Hands() []*hand.Hand {
	out := make([]*hand.Hand, 0, w.hands.Len())
	for el := w.hands.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// DistanceGrabber returns the pointer under the hand called name.
func (w *World) DistanceGrabber(name string) (*hand.DistanceGrabber, error) {
	obj, err := w.Object(name)
	if err != nil {
		return nil, err
	}
	var found *hand.DistanceGrabber
	obj.Walk(func(o *engine.GameObject) bool {
		if found == nil {
			found = engine.GetComponent[*hand.DistanceGrabber](o)
		}
		return found == nil
	})
	if found == nil {
		return nil, fmt.Errorf("%q has no distance grabber: %w", name, ErrUnknownHand)
	}
	return found, nil
}

func (w *World) Object(name string) (*engine.GameObject, error) {
	obj := w.Scene.FindByName(name)
	if obj == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownObject)
	}
	return obj, nil
}

// Grabbable returns the grabbable on the object called name.
func (w *World) Grabbable(name string) (*grabbable.Grabbable, error) {
	obj, err := w.Object(name)
	if err != nil {
		return nil, err
	}
	g, ok := w.Registry.Lookup(obj)
	if !ok {
		return nil, fmt.Errorf("%q is not grabbable: %w", name, ErrUnknownObject)
	}
	return g, nil
}

// Add puts obj and its subtree into the simulation and starts it.
func (w *World) Add(obj *engine.GameObject) error {
	err := w.attach(obj)
	obj.Walk(func(o *engine.GameObject) bool {
		o.Start()
		return true
	})
	return err
}

// attach binds obj without starting it, so a scenario can add every
// object before hands resolve their follow targets by name.
func (w *World) attach(obj *engine.GameObject) error {
	if obj.Parent == nil || obj.Parent.Scene != w.Scene {
		w.Scene.AddGameObject(obj)
	}
	var errs []error
	var pullers []*hand.DistanceGrabber
	obj.Walk(func(o *engine.GameObject) bool {
		for _, c := range o.Components() {
			switch v := c.(type) {
			case *hand.Hand:
				if err := w.addHand(o, v); err != nil {
					errs = append(errs, err)
				}
			case *follow.HeadFollower:
				v.SetLogger(w.logger.Named("head"))
			case *hand.DistanceGrabber:
				pullers = append(pullers, v)
			}
		}
		return true
	})
	for _, d := range pullers {
		if h, ok := engine.GetComponentInParent[*hand.Hand](d.GetGameObject()); ok {
			w.log.watchPuller(w, h.GetGameObject().Name, d)
		}
	}
	w.Physics.AddObject(obj)
	if err := w.Registry.Register(obj); err != nil {
		errs = append(errs, err)
	}
	w.watchGrabbables(obj)
	return errors.Join(errs...)
}

func (w *World) addHand(o *engine.GameObject, h *hand.Hand) error {
	if _, dup := w.hands.Get(o.Name); dup {
		return fmt.Errorf("%q: %w", o.Name, ErrDuplicateHand)
	}
	h.Bind(w.Physics, w.Registry, w.logger)
	w.hands.Set(o.Name, h)
	w.log.watchHand(w, o.Name, h)
	return nil
}

func (w *World) watchGrabbables(obj *engine.GameObject) {
	obj.Walk(func(o *engine.GameObject) bool {
		if g := engine.GetComponent[*grabbable.Grabbable](o); g != nil {
			w.log.watchGrabbable(w, o.Name, g)
		}
		return true
	})
}

func (w *World) forget(obj *engine.GameObject) {
	w.Physics.RemoveObject(obj)
	w.Registry.Unregister(obj)
	if h, ok := w.hands.Get(obj.Name); ok && h.GetGameObject() == obj {
		w.hands.Delete(obj.Name)
	}
}

// Step runs one fixed tick: scripted input and follow targets for this
// tick, component fixed updates, then physics.
func (w *World) Step() {
	for _, t := range w.tracks {
		t.apply(w.tick)
	}
	w.timeline.run(w, w.tick)
	w.Scene.FixedUpdate(w.dt)
	w.Physics.Step(w.dt)
	w.tick++
	w.clock += float64(w.dt)
}

// Frame runs the variable step. It only animates fingers and poses.
func (w *World) Frame(dt float32) {
	w.Scene.Update(dt)
}

// Run steps n ticks, rendering one frame per tick.
func (w *World) Run(n int) {
	for i := 0; i < n; i++ {
		w.Step()
		w.Frame(w.dt)
	}
}
