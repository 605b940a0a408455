package grabbable

import (
	"fmt"

	"autohand/internal/engine"
)

// LayerNames names the layers the grab system switches objects between.
type LayerNames struct {
	Grabbable   string `yaml:"grabbable"`
	Grabbing    string `yaml:"grabbing"`
	Releasing   string `yaml:"releasing"`
	Hand        string `yaml:"hand"`
	HandHolding string `yaml:"handHolding"`
}

func DefaultLayerNames() LayerNames {
	return LayerNames{
		Grabbable:   "Grabbable",
		Grabbing:    "Grabbing",
		Releasing:   "Releasing",
		Hand:        "Hand",
		HandHolding: "HandHolding",
	}
}

// Layers holds resolved layer indices.
type Layers struct {
	Default     int
	Grabbable   int
	Grabbing    int
	Releasing   int
	Hand        int
	HandHolding int
}

// SetupLayers adds any missing names to table and returns their indices.
func SetupLayers(table *engine.Layers, names LayerNames) (Layers, error) {
	l := Layers{}
	l.Default, _ = table.NameToLayer(engine.DefaultLayerName)
	for _, slot := range []struct {
		name string
		dst  *int
	}{
		{names.Grabbable, &l.Grabbable},
		{names.Grabbing, &l.Grabbing},
		{names.Releasing, &l.Releasing},
		{names.Hand, &l.Hand},
		{names.HandHolding, &l.HandHolding},
	} {
		if slot.name == "" {
			return Layers{}, fmt.Errorf("empty layer name: %w", ErrUnknownLayer)
		}
		i, err := table.Add(slot.name)
		if err != nil {
			return Layers{}, err
		}
		*slot.dst = i
	}
	return l, nil
}

// HandMask covers both hand layers.
func (l Layers) HandMask() engine.LayerMask {
	return engine.MaskOf(l.Hand, l.HandHolding)
}

// GrabMask covers every layer a grabbable sits on during its life.
func (l Layers) GrabMask() engine.LayerMask {
	return engine.MaskOf(l.Grabbable, l.Grabbing, l.Releasing)
}

// ReachMask is what hand casts may hit: everything except the hands.
func (l Layers) ReachMask() engine.LayerMask {
	return engine.AllLayers.Without(l.Hand, l.HandHolding)
}

// CollisionMatrix is the part of the physics world layer isolation needs.
type CollisionMatrix interface {
	IgnoreLayerCollision(a, b int, ignore bool)
}

// Isolate makes hand colliders pass through objects that are mid-grab or
// cooling down after release.
func (l Layers) Isolate(m CollisionMatrix) {
	for _, hand := range []int{l.Hand, l.HandHolding} {
		m.IgnoreLayerCollision(hand, l.Grabbing, true)
		m.IgnoreLayerCollision(hand, l.Releasing, true)
	}
}
