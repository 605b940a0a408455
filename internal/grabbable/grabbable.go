// Package grabbable is the object side of grabbing: who holds an object,
// which layer and parent it has while held, and how it leaves the hands.
package grabbable

import (
	"autohand/internal/components"
	"autohand/internal/engine"

	"github.com/elliotchance/orderedmap/v2"
	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"
)

func init() {
	engine.RegisterComponent("Grabbable", func(props map[string]any) (engine.Component, error) {
		def := grabbableDef{Settings: DefaultSettings()}
		if err := engine.DecodeProps(props, &def); err != nil {
			return nil, err
		}
		if err := def.Settings.Validate(); err != nil {
			return nil, err
		}
		g := New(def.Settings)
		g.HeldPositionOffset = def.HeldPositionOffset
		g.HeldRotationOffset = def.HeldRotationOffset
		g.JointedBodyNames = def.JointedBodies
		return g, nil
	})
}

type grabbableDef struct {
	Settings           `yaml:",inline"`
	HeldPositionOffset rl.Vector3 `yaml:"heldPositionOffset"`
	HeldRotationOffset rl.Vector3 `yaml:"heldRotationOffset"`
	JointedBodies      []string   `yaml:"jointedBodies"`
}

// Holder is a hand as seen from the object it holds.
type Holder interface {
	engine.JointBreakHandler
	ForceReleaseGrab()
	ReleaseGrabLock()
	ThrowVelocity() rl.Vector3
	ThrowAngularVelocity() rl.Vector3
	Body() *components.Rigidbody
	IsLeft() bool
}

// grabbingResetDelay is how long a freshly held object stays on the
// grabbing layer.
const grabbingResetDelay = 0.1

type layerReset struct {
	active    bool
	remaining float32
	from      int
}

type Grabbable struct {
	engine.BaseComponent
	Settings

	Body *components.Rigidbody
	// Offsets applied to the holding hand's follow target, in degrees for
	// rotation. Left hands mirror them on X.
	HeldPositionOffset rl.Vector3
	HeldRotationOffset rl.Vector3
	JointedBodies      []*components.Rigidbody
	JointedBodyNames   []string

	OnBeforeGrab   engine.EventWithArg[Holder]
	OnGrab         engine.EventWithArg[Holder]
	OnRelease      engine.EventWithArg[Holder]
	OnForceRelease engine.EventWithArg[Holder]
	OnJointBroken  engine.EventWithArg[Holder]
	OnSqueeze      engine.EventWithArg[Holder]
	OnUnsqueeze    engine.EventWithArg[Holder]
	OnHighlight    engine.EventWithArg[Holder]
	OnUnhighlight  engine.EventWithArg[Holder]

	registry *Registry
	logger   *zap.Logger
	disabled bool

	heldBy  *orderedmap.OrderedMap[Holder, struct{}]
	pending []Holder

	beingHeld      bool
	beingGrabbed   bool
	beingDestroyed bool
	throwing       bool
	throwReset     int
	highlighting   bool
	wasGrabbable   bool

	originalLayer  int
	originalParent *engine.GameObject
	jointedParents []*engine.GameObject
	children       []*GrabbableChild
	lock           *GrabLock

	placePoint     PlacePoint
	lastPlacePoint PlacePoint

	reset layerReset
}

func New(settings Settings) *Grabbable {
	return &Grabbable{
		Settings: settings,
		heldBy:   orderedmap.NewOrderedMap[Holder, struct{}](),
		logger:   zap.NewNop(),
	}
}

// GrabPriority weights this object's hits during hand detection.
func (g *Grabbable) GrabPriority() float32 {
	return g.GrabDistancePriority
}

// Disabled is set when registration failed; the object is then ignored by
// every hand.
func (g *Grabbable) Disabled() bool         { return g.disabled }
func (g *Grabbable) IsHeld() bool           { return g.beingHeld }
func (g *Grabbable) BeingGrabbed() bool     { return g.beingGrabbed }
func (g *Grabbable) IsThrowing() bool       { return g.throwing }
func (g *Grabbable) IsHighlighted() bool    { return g.highlighting }
func (g *Grabbable) HeldCount() int         { return g.heldBy.Len() }
func (g *Grabbable) OriginalLayer() int     { return g.originalLayer }
func (g *Grabbable) GrabLock() *GrabLock    { return g.lock }
func (g *Grabbable) PlacePoint() PlacePoint { return g.placePoint }

func (g *Grabbable) OriginalParent() *engine.GameObject { return g.originalParent }

// HeldBy returns the holders in the order they grabbed.
func (g *Grabbable) HeldBy() []Holder {
	return g.heldBy.Keys()
}

func (g *Grabbable) IsHeldBy(h Holder) bool {
	_, ok := g.heldBy.Get(h)
	return ok
}

func (g *Grabbable) layers() Layers {
	if g.registry == nil {
		return Layers{}
	}
	return g.registry.Layers
}

func (g *Grabbable) FixedUpdate(dt float32) {
	if g.disabled {
		return
	}
	if g.reset.active {
		g.reset.remaining -= dt
		if g.reset.remaining <= 0 {
			g.finishLayerReset()
		}
	}
	if g.throwReset > 0 {
		g.throwReset--
		if g.throwReset == 0 {
			g.throwing = false
		}
	}
	if g.wasGrabbable && !g.IsGrabbable {
		g.ForceHandsRelease()
	}
	g.wasGrabbable = g.IsGrabbable
}

// SwapLayer moves the object, its linked children and its subtree from one
// layer to another. Nodes on other layers are left alone.
func (g *Grabbable) SwapLayer(from, to int) {
	for _, c := range g.children {
		if o := c.GetGameObject(); o != nil && o.Layer == from {
			o.Layer = to
		}
	}
	g.GetGameObject().SwapLayerRecursive(from, to)
}

func (g *Grabbable) scheduleLayerReset(delay float32, from int) {
	g.reset = layerReset{active: true, remaining: delay, from: from}
}

func (g *Grabbable) cancelLayerReset() {
	g.reset = layerReset{}
}

// finishLayerReset returns the object to its original layer if nothing moved
// it off the layer the reset was scheduled for.
func (g *Grabbable) finishLayerReset() {
	from := g.reset.from
	g.reset = layerReset{}
	if g.Body != nil {
		g.Body.WakeUp()
	}
	if g.GetGameObject().Layer == from {
		g.SwapLayer(from, g.originalLayer)
	}
}

func (g *Grabbable) Highlight(h Holder) {
	if g.highlighting {
		return
	}
	g.highlighting = true
	g.OnHighlight.Invoke(h)
}

func (g *Grabbable) Unhighlight(h Holder) {
	if !g.highlighting {
		return
	}
	g.highlighting = false
	g.OnUnhighlight.Invoke(h)
}

func (g *Grabbable) Squeeze(h Holder) {
	g.OnSqueeze.Invoke(h)
}

func (g *Grabbable) Unsqueeze(h Holder) {
	g.OnUnsqueeze.Invoke(h)
}

// BeforeGrab marks the object as mid-grab by h and, with ParentOnGrab,
// moves it and its jointed bodies under the hand's parent.
func (g *Grabbable) BeforeGrab(h Holder) {
	g.OnBeforeGrab.Invoke(h)
	g.beingGrabbed = true
	g.addPending(h)
	g.cancelLayerReset()
	if !g.ParentOnGrab || h.Body() == nil {
		return
	}
	parent := h.Body().GetGameObject().Parent
	g.Body.GetGameObject().SetParent(parent, true)
	for _, jb := range g.JointedBodies {
		jb.GetGameObject().SetParent(parent, true)
	}
}

// Grab completes a grab by h: the hand's joints exist and it is added to
// the holder set.
func (g *Grabbable) Grab(h Holder) {
	if g.placePoint != nil {
		g.placePoint.Remove(g)
		g.placePoint = nil
	}
	if g.LockHandOnGrab && h.Body() != nil {
		h.Body().IsKinematic = true
	}
	g.scheduleLayerReset(grabbingResetDelay, g.layers().Grabbing)

	g.removePending(h)
	g.heldBy.Set(h, struct{}{})
	g.throwing = false
	g.beingHeld = true
	g.beingGrabbed = len(g.pending) > 0
	g.OnGrab.Invoke(h)
}

// CancelGrab undoes BeforeGrab for an approach that never connected.
func (g *Grabbable) CancelGrab(h Holder) {
	if !g.removePending(h) {
		return
	}
	g.beingGrabbed = len(g.pending) > 0
	if g.heldBy.Len() > 0 || g.beingGrabbed {
		return
	}
	if !g.beingDestroyed {
		g.SetOriginalParent()
		g.SwapLayer(g.layers().Grabbing, g.originalLayer)
	}
}

// Release removes h after a normal release. thrown selects whether the
// object leaves with the hand's throw velocity or stops dead; an object
// still on the grabbing layer is never thrown.
func (g *Grabbable) Release(h Holder, thrown bool) {
	if !g.beingHeld {
		return
	}
	if g.LockHandOnGrab && h.Body() != nil {
		h.Body().IsKinematic = false
	}
	if !g.heldBy.Delete(h) {
		return
	}
	layers := g.layers()
	obj := g.GetGameObject()
	if g.heldBy.Len() == 0 {
		g.beingHeld = false
		if !g.beingDestroyed {
			g.SetOriginalParent()
			if obj.Layer == layers.Releasing {
				thrown = false
			}
		}
	}
	g.SwapLayer(obj.Layer, layers.Releasing)
	g.scheduleLayerReset(g.IgnoreReleaseTime, layers.Releasing)

	g.OnRelease.Invoke(h)

	if g.Body != nil {
		if !g.beingHeld && thrown && !g.throwing {
			g.throwing = true
			g.Body.Velocity = rl.Vector3Scale(h.ThrowVelocity(), g.ThrowMultiplier)
			g.Body.AngularVelocity = rl.Vector3Scale(h.ThrowAngularVelocity(), g.ThrowAngleMultiplier)
			g.Body.WakeUp()
		}
		if !thrown {
			g.Body.Velocity = rl.Vector3{}
			g.Body.AngularVelocity = rl.Vector3{}
		}
	}

	if pp := g.placePoint; pp != nil {
		if pp.CanPlace(g) {
			pp.Place(g)
		}
		if pp.Options().GrabbableHighlight {
			g.Unhighlight(h)
		}
		pp.StopHighlight(g)
	}
}

// HandRelease asks every holder to let go through its grab-lock path.
func (g *Grabbable) HandRelease() {
	hands := g.heldBy.Keys()
	for i := len(hands) - 1; i >= 0; i-- {
		hands[i].ReleaseGrabLock()
	}
}

// ForceHandsRelease drops every holder and every hand still approaching,
// without throwing.
func (g *Grabbable) ForceHandsRelease() {
	hands := append(g.heldBy.Keys(), g.pending...)
	for i := len(hands) - 1; i >= 0; i-- {
		g.ForceHandRelease(hands[i])
	}
	g.beingGrabbed = false
}

// ForceHandRelease drops h without throw velocity. The hand calls back in
// here from its own forced release, so the second entry finds h gone and
// returns; OnForceRelease fires once per hand.
func (g *Grabbable) ForceHandRelease(h Holder) {
	held := g.heldBy.Delete(h)
	pending := g.removePending(h)
	if !held && !pending {
		return
	}
	h.ForceReleaseGrab()

	if g.LockHandOnGrab && h.Body() != nil {
		h.Body().IsKinematic = false
	}
	g.beingGrabbed = len(g.pending) > 0
	if g.heldBy.Len() == 0 && (held || !g.beingGrabbed) {
		g.beingHeld = false
		if !g.beingDestroyed {
			g.SetOriginalParent()
		}
		if g.Body != nil {
			releasing := g.layers().Releasing
			obj := g.GetGameObject()
			g.SwapLayer(obj.Layer, releasing)
			g.cancelLayerReset()
			if !g.beingDestroyed {
				g.scheduleLayerReset(g.IgnoreReleaseTime, releasing)
			}
		}
	}
	g.logger.Debug("force released", zap.String("object", g.GetGameObject().Name), zap.Bool("held", held))
	g.OnForceRelease.Invoke(h)
}

// HandJointBroken is called by a hand whose joint to this object broke.
func (g *Grabbable) HandJointBroken(h Holder) {
	if !g.PullApartBreakOnly || g.heldBy.Len() > 1 {
		g.OnJointBroken.Invoke(h)
		if g.Body != nil {
			g.Body.WakeUp()
			g.Body.Velocity = rl.Vector3Scale(g.Body.Velocity, 1.0/1000)
			g.Body.AngularVelocity = rl.Vector3Scale(g.Body.AngularVelocity, 1.0/1000)
		}
	}
	g.ForceHandsRelease()
}

// OnJointBreak handles the object-owned half of a hand joint pair by
// forwarding the break to the hand on the other end.
func (g *Grabbable) OnJointBreak(connected *engine.GameObject, force float32) {
	for _, h := range g.heldBy.Keys() {
		if b := h.Body(); b != nil && b.GetGameObject() == connected {
			h.OnJointBreak(g.GetGameObject(), force)
			return
		}
	}
}

// SetOriginalParent restores the parents captured at registration.
func (g *Grabbable) SetOriginalParent() {
	if g.Body == nil {
		return
	}
	g.Body.GetGameObject().SetParent(g.originalParent, true)
	for i, jb := range g.JointedBodies {
		if i < len(g.jointedParents) {
			jb.GetGameObject().SetParent(g.jointedParents[i], true)
		}
	}
}

func (g *Grabbable) AddJointedBody(rb *components.Rigidbody) {
	g.JointedBodies = append(g.JointedBodies, rb)
	g.jointedParents = append(g.jointedParents, rb.GetGameObject().Parent)
	if !rb.IsKinematic && g.HeldCount() > 0 {
		rb.GetGameObject().SetParent(g.Body.GetGameObject().Parent, true)
	}
}

func (g *Grabbable) RemoveJointedBody(rb *components.Rigidbody) {
	for i, jb := range g.JointedBodies {
		if jb != rb {
			continue
		}
		other, ok := g.registry.Lookup(rb.GetGameObject())
		if !ok || other.HeldCount() == 0 {
			rb.GetGameObject().SetParent(g.jointedParents[i], true)
		}
		g.JointedBodies = append(g.JointedBodies[:i], g.JointedBodies[i+1:]...)
		g.jointedParents = append(g.jointedParents[:i], g.jointedParents[i+1:]...)
		return
	}
}

func (g *Grabbable) SetPlacePoint(p PlacePoint) {
	g.placePoint = p
}

func (g *Grabbable) OnDestroy() {
	g.beingDestroyed = true
	g.ForceHandsRelease()
	if g.registry != nil {
		g.registry.unregisterGrabbable(g)
	}
}

func (g *Grabbable) OnCollisionEnter(other *engine.GameObject) {
	if g.throwing && !g.layers().HandMask().Contains(other.Layer) {
		g.throwReset = 1
	}
}

func (g *Grabbable) OnCollisionExit(other *engine.GameObject) {}

func (g *Grabbable) OnTriggerEnter(other *engine.GameObject) {
	if g.registry == nil {
		return
	}
	point, ok := g.registry.PlacePointOf(other)
	if !ok {
		return
	}
	opts := point.Options()
	if g.heldBy.Len() == 0 && opts.OnlyPlaceWhileHolding {
		return
	}
	if g.placePoint != nil {
		return
	}
	if !point.CanPlace(g) {
		return
	}
	g.placePoint = point
	if opts.ForcePlace {
		if g.lastPlacePoint != point {
			g.ForceHandsRelease()
			point.Place(g)
			g.lastPlacePoint = point
		}
		return
	}
	point.Highlight(g)
	if opts.GrabbableHighlight && g.heldBy.Len() > 0 {
		g.Highlight(g.heldBy.Keys()[0])
	}
}

func (g *Grabbable) OnTriggerExit(other *engine.GameObject) {
	if g.registry == nil {
		return
	}
	point, ok := g.registry.PlacePointOf(other)
	if !ok {
		return
	}
	obj := g.GetGameObject()
	if g.placePoint == point && point.Distance(obj) > 0.01 {
		point.StopHighlight(g)
		if point.Options().GrabbableHighlight && g.heldBy.Len() > 0 {
			g.Unhighlight(g.heldBy.Keys()[0])
		}
		g.placePoint = nil
	}
	if g.lastPlacePoint == point && point.Distance(obj) > point.Options().PlaceRadius {
		g.lastPlacePoint = nil
	}
}

func (g *Grabbable) addPending(h Holder) {
	for _, p := range g.pending {
		if p == h {
			return
		}
	}
	g.pending = append(g.pending, h)
}

func (g *Grabbable) removePending(h Holder) bool {
	for i, p := range g.pending {
		if p == h {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			return true
		}
	}
	return false
}
