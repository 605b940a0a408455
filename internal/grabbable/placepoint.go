package grabbable

import (
	"strings"

	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func init() {
	engine.RegisterComponent("PlacePoint", func(props map[string]any) (engine.Component, error) {
		s := NewSlot()
		if err := engine.DecodeProps(props, s); err != nil {
			return nil, err
		}
		return s, nil
	})
}

// PlaceOptions configure how a grabbable binds to a place point.
type PlaceOptions struct {
	// ForcePlace pulls the object out of the hands as soon as it enters.
	ForcePlace bool
	// OnlyPlaceWhileHolding ignores objects that drift in unheld.
	OnlyPlaceWhileHolding bool
	// GrabbableHighlight also highlights the object while it hovers.
	GrabbableHighlight bool
	PlaceRadius        float32
}

// PlacePoint is a spot a released grabbable snaps to. Grabbables find it
// through trigger overlaps with the point's object.
type PlacePoint interface {
	CanPlace(g *Grabbable) bool
	Place(g *Grabbable)
	Remove(g *Grabbable)
	Highlight(g *Grabbable)
	StopHighlight(g *Grabbable)
	PlacedObject() *Grabbable
	Distance(obj *engine.GameObject) float32
	Options() PlaceOptions
}

// Slot is the stock place point: it snaps the object onto its own pose.
type Slot struct {
	engine.BaseComponent `yaml:"-"`

	PlaceRadius           float32 `yaml:"placeRadius"`
	ForcePlace            bool    `yaml:"forcePlace"`
	OnlyPlaceWhileHolding bool    `yaml:"onlyPlaceWhileHolding"`
	GrabbableHighlight    bool    `yaml:"grabbableHighlight"`
	MakeKinematic         bool    `yaml:"makeKinematic"`
	// NameFilter, when set, only accepts objects whose name contains it.
	NameFilter string `yaml:"nameFilter"`

	OnPlace         engine.EventWithArg[*Grabbable] `yaml:"-"`
	OnRemove        engine.EventWithArg[*Grabbable] `yaml:"-"`
	OnHighlight     engine.EventWithArg[*Grabbable] `yaml:"-"`
	OnStopHighlight engine.EventWithArg[*Grabbable] `yaml:"-"`

	placed       *Grabbable
	highlighted  *Grabbable
	wasKinematic bool
}

func NewSlot() *Slot {
	return &Slot{PlaceRadius: 0.1}
}

func (s *Slot) Options() PlaceOptions {
	return PlaceOptions{
		ForcePlace:            s.ForcePlace,
		OnlyPlaceWhileHolding: s.OnlyPlaceWhileHolding,
		GrabbableHighlight:    s.GrabbableHighlight,
		PlaceRadius:           s.PlaceRadius,
	}
}

func (s *Slot) PlacedObject() *Grabbable { return s.placed }

func (s *Slot) Distance(obj *engine.GameObject) float32 {
	return rl.Vector3Distance(obj.WorldPosition(), s.GetGameObject().WorldPosition())
}

func (s *Slot) CanPlace(g *Grabbable) bool {
	if s.placed != nil && s.placed != g {
		return false
	}
	obj := g.GetGameObject()
	if s.NameFilter != "" && !strings.Contains(obj.Name, s.NameFilter) {
		return false
	}
	return s.Distance(obj) <= s.PlaceRadius
}

// Place stops the object and moves it onto the slot.
func (s *Slot) Place(g *Grabbable) {
	s.placed = g
	g.SetPlacePoint(s)
	if body := g.Body; body != nil {
		body.Velocity = rl.Vector3{}
		body.AngularVelocity = rl.Vector3{}
		body.SetPosition(s.GetGameObject().WorldPosition())
		body.SetRotation(s.GetGameObject().WorldRotation())
		if s.MakeKinematic {
			s.wasKinematic = body.IsKinematic
			body.IsKinematic = true
		}
	}
	s.StopHighlight(g)
	s.OnPlace.Invoke(g)
}

func (s *Slot) Remove(g *Grabbable) {
	if s.placed != g {
		return
	}
	if s.MakeKinematic && g.Body != nil {
		g.Body.IsKinematic = s.wasKinematic
	}
	s.placed = nil
	s.OnRemove.Invoke(g)
}

func (s *Slot) Highlight(g *Grabbable) {
	if s.highlighted == g {
		return
	}
	s.highlighted = g
	s.OnHighlight.Invoke(g)
}

func (s *Slot) StopHighlight(g *Grabbable) {
	if s.highlighted != g {
		return
	}
	s.highlighted = nil
	s.OnStopHighlight.Invoke(g)
}
