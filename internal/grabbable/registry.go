package grabbable

import (
	"errors"
	"fmt"

	"autohand/internal/components"
	"autohand/internal/engine"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Registry resolves scene objects to the grab capabilities attached to
// them. Hands query it for every detection hit, so lookups are map based
// and child links are flattened at registration.
type Registry struct {
	Layers Layers

	logger      *zap.Logger
	grabbables  map[*engine.GameObject]*Grabbable
	placePoints map[*engine.GameObject]PlacePoint
	touches     map[*engine.GameObject]*TouchEvent
	areas       map[*engine.GameObject]*TriggerArea
	distance    map[*engine.GameObject]*DistanceGrabbable
	hands       []Holder
	version     uint64
}

func NewRegistry(layers Layers, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		Layers:      layers,
		logger:      logger.Named("grabbable"),
		grabbables:  make(map[*engine.GameObject]*Grabbable),
		placePoints: make(map[*engine.GameObject]PlacePoint),
		touches:     make(map[*engine.GameObject]*TouchEvent),
		areas:       make(map[*engine.GameObject]*TriggerArea),
		distance:    make(map[*engine.GameObject]*DistanceGrabbable),
	}
}

// Version changes whenever the registered grabbables or hands change.
// Holders of cached hand or grabbable lists compare it to invalidate them.
func (r *Registry) Version() uint64 { return r.version }

// Register binds every capability found in obj's subtree. Grabbables that
// cannot be bound are disabled and reported; the rest are still
// registered and the failures returned joined.
func (r *Registry) Register(obj *engine.GameObject) error {
	var grabs []*Grabbable
	obj.Walk(func(o *engine.GameObject) bool {
		for _, c := range o.Components() {
			switch v := c.(type) {
			case *Grabbable:
				grabs = append(grabs, v)
			case *TouchEvent:
				r.touches[o] = v
			case *TriggerArea:
				v.registry = r
				r.areas[o] = v
			case *DistanceGrabbable:
				r.distance[o] = v
			case PlacePoint:
				r.placePoints[o] = v
			}
		}
		return true
	})

	var errs []error
	for _, g := range grabs {
		if err := r.registerGrabbable(g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) registerGrabbable(g *Grabbable) error {
	obj := g.GetGameObject()
	if existing, ok := r.grabbables[obj]; ok && existing == g {
		return fmt.Errorf("%s: %w", obj.Name, ErrAlreadyRegistered)
	}
	g.registry = r
	g.logger = r.logger
	if g.Body == nil {
		g.Body = engine.GetComponent[*components.Rigidbody](obj)
	}
	if g.Body == nil {
		g.disabled = true
		err := fmt.Errorf("%s: %w", obj.Name, ErrMissingBody)
		r.logger.Error("grabbable disabled", zap.String("object", obj.Name), zap.Error(err))
		sentry.CaptureException(err)
		return err
	}

	if obj.Layer == r.Layers.Default {
		obj.SwapLayerRecursive(r.Layers.Default, r.Layers.Grabbable)
	}
	g.originalLayer = obj.Layer
	g.originalParent = obj.Parent
	g.wasGrabbable = g.IsGrabbable
	g.Body.MaxDepenetrationVelocity /= 2
	g.lock = engine.GetComponent[*GrabLock](obj)

	for _, name := range g.JointedBodyNames {
		var target *engine.GameObject
		if obj.Scene != nil {
			target = obj.Scene.FindByName(name)
		}
		rb := engine.GetComponent[*components.Rigidbody](target)
		if rb == nil {
			r.logger.Warn("jointed body not found", zap.String("object", obj.Name), zap.String("body", name))
			continue
		}
		g.AddJointedBody(rb)
	}

	if g.MakeChildrenGrabbable {
		r.linkChildren(g)
	}
	r.grabbables[obj] = g
	r.version++
	r.logger.Debug("registered", zap.String("object", obj.Name), zap.Int("children", len(g.children)))
	return nil
}

// linkChildren gives every solid child collider below g a link back to it.
// Subtrees owned by another grabbable or a place point are left alone.
func (r *Registry) linkChildren(g *Grabbable) {
	root := g.GetGameObject()
	for _, child := range root.Children {
		child.Walk(func(o *engine.GameObject) bool {
			if engine.GetComponent[*Grabbable](o) != nil {
				return false
			}
			if _, ok := r.placePoints[o]; ok {
				return false
			}
			if !hasSolidCollider(o) {
				return true
			}
			link := engine.GetComponent[*GrabbableChild](o)
			if link == nil {
				link = &GrabbableChild{}
				o.AddComponent(link)
			}
			link.Parent = g
			o.Layer = root.Layer
			g.children = append(g.children, link)
			r.grabbables[o] = g
			return true
		})
	}
}

func hasSolidCollider(o *engine.GameObject) bool {
	for _, c := range components.Colliders(o) {
		if !c.Trigger() {
			return true
		}
	}
	return false
}

// Unregister drops every capability in obj's subtree.
func (r *Registry) Unregister(obj *engine.GameObject) {
	obj.Walk(func(o *engine.GameObject) bool {
		if g, ok := r.grabbables[o]; ok && g.GetGameObject() == o {
			r.unregisterGrabbable(g)
		}
		delete(r.placePoints, o)
		delete(r.touches, o)
		if a, ok := r.areas[o]; ok {
			a.registry = nil
			delete(r.areas, o)
		}
		delete(r.distance, o)
		return true
	})
}

func (r *Registry) unregisterGrabbable(g *Grabbable) {
	obj := g.GetGameObject()
	if r.grabbables[obj] != g {
		return
	}
	delete(r.grabbables, obj)
	for _, link := range g.children {
		if o := link.GetGameObject(); o != nil {
			delete(r.grabbables, o)
			o.RemoveComponent(link)
		}
	}
	g.children = nil
	r.version++
}

// Lookup resolves a hit object to its grabbable, following child links.
// Disabled and dying grabbables are not returned.
func (r *Registry) Lookup(obj *engine.GameObject) (*Grabbable, bool) {
	g, ok := r.grabbables[obj]
	if !ok || g.disabled || g.beingDestroyed {
		return nil, false
	}
	return g, true
}

func (r *Registry) PlacePointOf(obj *engine.GameObject) (PlacePoint, bool) {
	p, ok := r.placePoints[obj]
	return p, ok
}

func (r *Registry) TouchEventOf(obj *engine.GameObject) (*TouchEvent, bool) {
	t, ok := r.touches[obj]
	return t, ok
}

func (r *Registry) TriggerAreaOf(obj *engine.GameObject) (*TriggerArea, bool) {
	a, ok := r.areas[obj]
	return a, ok
}

// DistanceGrabbableOf resolves a hit object, following child links, to the
// distance grab settings of its grabbable.
func (r *Registry) DistanceGrabbableOf(obj *engine.GameObject) (*DistanceGrabbable, bool) {
	g, ok := r.Lookup(obj)
	if !ok {
		return nil, false
	}
	d, ok := r.distance[g.GetGameObject()]
	return d, ok
}

func (r *Registry) AddHand(h Holder) {
	if indexOfHolder(r.hands, h) >= 0 {
		return
	}
	r.hands = append(r.hands, h)
	r.version++
}

func (r *Registry) RemoveHand(h Holder) {
	i := indexOfHolder(r.hands, h)
	if i < 0 {
		return
	}
	r.hands = append(r.hands[:i], r.hands[i+1:]...)
	r.version++
}

// Hands returns the started, enabled hands in registration order.
func (r *Registry) Hands() []Holder {
	return r.hands
}
