package hand

import (
	"fmt"

	"autohand/internal/detect"
	"autohand/internal/engine"
	"autohand/internal/grabbable"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"
)

func init() {
	engine.RegisterComponent("DistanceGrabber", func(props map[string]any) (engine.Component, error) {
		d := NewDistanceGrabber(DefaultDistanceSettings())
		if err := engine.DecodeProps(props, &d.DistanceSettings); err != nil {
			return nil, err
		}
		if err := d.DistanceSettings.Validate(); err != nil {
			return nil, err
		}
		return d, nil
	})
}

// DistanceSettings tune pointing at and pulling far away objects.
type DistanceSettings struct {
	MaxRange   float32 `yaml:"maxRange"`
	CastRadius float32 `yaml:"castRadius"`
	// InstantPull grabs the selected object at once instead of launching it.
	InstantPull bool `yaml:"instantPull"`
	// FlickPull pulls when the hand turns faster than FlickThreshold radians
	// per second. Otherwise the hand pulls by moving PullGrabDistance back
	// from the selected object.
	FlickPull        bool    `yaml:"flickPull"`
	FlickThreshold   float32 `yaml:"flickThreshold"`
	PullGrabDistance float32 `yaml:"pullGrabDistance"`
	// A grab press within CatchAssistRadius of a pulled object catches it,
	// for CatchAssistSeconds after the pull.
	CatchAssistRadius  float32 `yaml:"catchAssistRadius"`
	CatchAssistSeconds float32 `yaml:"catchAssistSeconds"`
}

func DefaultDistanceSettings() DistanceSettings {
	return DistanceSettings{
		MaxRange:           5,
		CastRadius:         0.03,
		FlickThreshold:     7,
		PullGrabDistance:   0.1,
		CatchAssistRadius:  0.2,
		CatchAssistSeconds: 3,
	}
}

func (s DistanceSettings) Validate() error {
	switch {
	case s.MaxRange <= 0:
		return fmt.Errorf("%w: distance grab range must be positive", ErrInvalidSettings)
	case s.CastRadius < 0 || s.CatchAssistRadius < 0 || s.CatchAssistSeconds < 0:
		return fmt.Errorf("%w: negative catch assist", ErrInvalidSettings)
	case s.FlickThreshold <= 0 || s.PullGrabDistance <= 0:
		return fmt.Errorf("%w: pull thresholds must be positive", ErrInvalidSettings)
	}
	return nil
}

type catch struct {
	target   *grabbable.DistanceGrabbable
	deadline float64
}

// DistanceGrabber points from its own object along +Z and pulls the
// distance grabbable it selects into the hand above it.
type DistanceGrabber struct {
	engine.BaseComponent
	DistanceSettings

	OnPull        engine.EventWithArg[*grabbable.DistanceGrabbable]
	OnStartTarget engine.EventWithArg[*grabbable.DistanceGrabbable]
	OnStopTarget  engine.EventWithArg[*grabbable.DistanceGrabbable]
	OnSelect      engine.EventWithArg[*grabbable.DistanceGrabbable]
	OnDeselect    engine.EventWithArg[*grabbable.DistanceGrabbable]

	hand     *Hand
	detector *detect.Detector[*grabbable.DistanceGrabbable]
	clock    float64

	pointing    bool
	lookAssist  float32
	targeting   *grabbable.DistanceGrabbable
	selected    *grabbable.DistanceGrabbable
	selectedHit engine.Hit
	selectedAt  rl.Vector3
	catches     []catch

	triggerID engine.ListenerID
	grabbedID engine.ListenerID
}

func NewDistanceGrabber(settings DistanceSettings) *DistanceGrabber {
	return &DistanceGrabber{DistanceSettings: settings}
}

func (d *DistanceGrabber) Start() { d.bind() }

// bind finds the hand above the pointer and builds the detector once the
// hand is bound and started.
func (d *DistanceGrabber) bind() bool {
	if d.hand == nil {
		h, ok := engine.GetComponentInParent[*Hand](d.GetGameObject())
		if !ok {
			return false
		}
		d.hand = h
		d.triggerID = h.OnTriggerGrab.AddListener(func(GrabEvent) { d.catchAssist() })
		d.grabbedID = h.OnBeforeGrabbed.AddListener(func(GrabEvent) {
			d.StopPointing()
			d.CancelSelect()
		})
	}
	if d.detector == nil && d.hand.world != nil && d.hand.registry != nil {
		d.detector = detect.New(d.hand.world, d.hand.registry.DistanceGrabbableOf, 1, 0)
		d.detector.Radius = d.CastRadius
	}
	return d.detector != nil && d.hand.palm != nil
}

func (d *DistanceGrabber) Hand() *Hand                             { return d.hand }
func (d *DistanceGrabber) Pointing() bool                          { return d.pointing }
func (d *DistanceGrabber) Targeting() *grabbable.DistanceGrabbable { return d.targeting }
func (d *DistanceGrabber) Selected() *grabbable.DistanceGrabbable  { return d.selected }
func (d *DistanceGrabber) SetInstantPull(on bool)                  { d.InstantPull = on }
func (d *DistanceGrabber) SetFlickPull(on bool)                    { d.FlickPull = on }

// StartPointing turns the pointer on. Look assist is off while pointing.
func (d *DistanceGrabber) StartPointing() {
	if d.pointing || !d.bind() || d.hand.holding != nil {
		return
	}
	d.pointing = true
	d.lookAssist = d.hand.LookAssistSpeed
	d.hand.LookAssistSpeed = 0
}

func (d *DistanceGrabber) StopPointing() {
	if !d.pointing {
		return
	}
	d.pointing = false
	d.hand.LookAssistSpeed = d.lookAssist
	d.StopTargeting()
}

// StartTargeting highlights t as the object under the pointer.
func (d *DistanceGrabber) StartTargeting(t *grabbable.DistanceGrabbable) {
	if t == d.targeting {
		return
	}
	d.StopTargeting()
	d.targeting = t
	t.OnStartTargeting.Invoke()
	d.OnStartTarget.Invoke(t)
	if g := t.Grabbable(); g != nil {
		g.Highlight(d.hand)
	}
}

func (d *DistanceGrabber) StopTargeting() {
	t := d.targeting
	if t == nil {
		return
	}
	d.targeting = nil
	t.OnStopTargeting.Invoke()
	d.OnStopTarget.Invoke(t)
	if g := t.Grabbable(); g != nil && t != d.selected {
		g.Unhighlight(d.hand)
	}
}

// SelectTarget locks the pointer onto the current target, ready to pull.
func (d *DistanceGrabber) SelectTarget() bool {
	t := d.targeting
	if t == nil || d.selected != nil {
		return false
	}
	hit, ok := d.cast(t)
	if !ok {
		return false
	}
	d.selected = t
	d.selectedHit = hit
	d.selectedAt = d.hand.palm.WorldPosition()
	t.OnStartSelecting.Invoke()
	d.OnSelect.Invoke(t)
	return true
}

func (d *DistanceGrabber) CancelSelect() {
	s := d.selected
	if s == nil {
		return
	}
	d.selected = nil
	s.OnStopSelecting.Invoke()
	d.OnDeselect.Invoke(s)
	if g := s.Grabbable(); g != nil && s != d.targeting {
		g.Unhighlight(d.hand)
	}
}

// ActivatePull pulls the selected object. Instant pulls grab it straight
// into the palm; otherwise it is launched at the palm and caught on a grab
// press near it.
func (d *DistanceGrabber) ActivatePull() bool {
	s := d.selected
	if s == nil {
		return false
	}
	hit := d.selectedHit
	d.StopPointing()
	d.CancelSelect()
	g := s.Grabbable()
	if g == nil || !d.hand.CanGrab(g) {
		return false
	}
	d.OnPull.Invoke(s)
	if d.InstantPull || s.InstantPull {
		d.hand.logger.Debug("instant pull", zap.String("object", g.GetGameObject().Name))
		return d.hand.GrabHit(hit, g)
	}
	s.SetTarget(d.hand.palm, d.hand.world.Gravity)
	d.catches = append(d.catches, catch{target: s, deadline: d.clock + float64(d.CatchAssistSeconds)})
	d.hand.logger.Debug("distance pull", zap.String("object", g.GetGameObject().Name))
	return true
}

func (d *DistanceGrabber) FixedUpdate(dt float32) {
	d.clock += float64(dt)
	if !d.bind() || d.hand.disabled {
		return
	}
	d.pruneCatches()
	if d.pointing && d.selected == nil {
		d.point()
	}
	if d.selected != nil && d.pullGesture() {
		d.ActivatePull()
	}
}

func (d *DistanceGrabber) point() {
	res := d.detector.ClosestWhere(d.origin(), d.GetGameObject().WorldRotation(), d.MaxRange, d.hand.layers().ReachMask(), d.targetable)
	if !res.Found() {
		d.StopTargeting()
		return
	}
	d.StartTargeting(res.Target)
}

func (d *DistanceGrabber) origin() rl.Vector3 { return d.GetGameObject().WorldPosition() }

func (d *DistanceGrabber) targetable(_ engine.Hit, t *grabbable.DistanceGrabbable) bool {
	g := t.Grabbable()
	return t.Targetable && !t.Flying() && g != nil && !g.IsHeld() && d.hand.CanGrab(g)
}

// cast re-hits t from the pointer so the pull has a surface point.
func (d *DistanceGrabber) cast(t *grabbable.DistanceGrabbable) (engine.Hit, bool) {
	res := d.detector.ClosestWhere(d.origin(), d.GetGameObject().WorldRotation(), d.MaxRange, d.hand.layers().ReachMask(),
		func(_ engine.Hit, found *grabbable.DistanceGrabbable) bool { return found == t })
	return res.Hit, res.Found()
}

func (d *DistanceGrabber) pullGesture() bool {
	if d.FlickPull {
		return rl.Vector3Length(d.hand.body.AngularVelocity) > d.FlickThreshold
	}
	toTarget := rl.Vector3Subtract(d.selectedHit.Point, d.selectedAt)
	if rl.Vector3Length(toTarget) < 1e-6 {
		return false
	}
	moved := rl.Vector3Subtract(d.hand.palm.WorldPosition(), d.selectedAt)
	return -rl.Vector3DotProduct(moved, rl.Vector3Normalize(toTarget)) >= d.PullGrabDistance
}

// catchAssist grabs a pulled object near the palm on a grab press.
func (d *DistanceGrabber) catchAssist() {
	h := d.hand
	if h.holding != nil || h.approach != nil || h.grabbing {
		return
	}
	palm := h.palm.WorldPosition()
	for _, c := range d.catches {
		g := c.target.Grabbable()
		if g == nil {
			continue
		}
		obj := g.GetGameObject()
		if rl.Vector3Distance(palm, obj.WorldPosition()) > d.CatchAssistRadius {
			continue
		}
		if h.GrabHit(d.catchHit(palm, g), g) {
			d.dropCatch(c.target)
			return
		}
	}
}

// catchHit is the point on g facing the palm, or its center when the
// surface cannot be hit.
func (d *DistanceGrabber) catchHit(palm rl.Vector3, g *grabbable.Grabbable) engine.Hit {
	obj := g.GetGameObject()
	center := obj.WorldPosition()
	dir := rl.Vector3Subtract(center, palm)
	hit, ok := d.hand.world.Raycast(palm, dir, d.CatchAssistRadius*2, engine.MaskOf(d.hand.layers().Grabbable))
	if ok {
		if found, ok := d.hand.registry.Lookup(hit.GameObject); ok && found == g {
			return hit
		}
	}
	return engine.Hit{GameObject: obj, Point: center, Distance: rl.Vector3Length(dir)}
}

func (d *DistanceGrabber) pruneCatches() {
	kept := d.catches[:0]
	for _, c := range d.catches {
		g := c.target.Grabbable()
		if d.clock > c.deadline || g == nil || g.IsHeld() || g.GetGameObject().Destroyed() {
			continue
		}
		kept = append(kept, c)
	}
	d.catches = kept
}

func (d *DistanceGrabber) catchIndex(t *grabbable.DistanceGrabbable) int {
	for i, c := range d.catches {
		if c.target == t {
			return i
		}
	}
	return -1
}

func (d *DistanceGrabber) dropCatch(t *grabbable.DistanceGrabbable) {
	if i := d.catchIndex(t); i >= 0 {
		d.catches = append(d.catches[:i], d.catches[i+1:]...)
	}
}

func (d *DistanceGrabber) OnDestroy() {
	if d.hand == nil {
		return
	}
	d.StopPointing()
	d.CancelSelect()
	d.hand.OnTriggerGrab.RemoveListener(d.triggerID)
	d.hand.OnBeforeGrabbed.RemoveListener(d.grabbedID)
	d.catches = nil
}
