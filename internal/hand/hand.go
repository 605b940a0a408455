// Package hand is the hand side of grabbing: a physically followed body
// that finds objects in front of its palm, approaches and poses onto them,
// holds them with a pair of fixed joints and lets go by throwing, dropping
// or being forced off.
package hand

import (
	"fmt"

	"autohand/internal/components"
	"autohand/internal/detect"
	"autohand/internal/engine"
	"autohand/internal/follow"
	"autohand/internal/grabbable"
	"autohand/internal/omath"
	"autohand/internal/physics"
	"autohand/internal/pose"
	"autohand/internal/throw"

	"github.com/elliotchance/orderedmap/v2"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func init() {
	engine.RegisterComponent("Hand", func(props map[string]any) (engine.Component, error) {
		def := handDef{Settings: DefaultSettings()}
		if err := engine.DecodeProps(props, &def); err != nil {
			return nil, err
		}
		if err := def.Settings.Validate(); err != nil {
			return nil, err
		}
		h := New(def.Left, def.Settings)
		h.FollowTarget = def.Follow
		h.FollowPositionTarget = def.FollowPosition
		h.FollowRotationTarget = def.FollowRotation
		h.poseIndex = def.PoseIndex
		return h, nil
	})
}

type handDef struct {
	Settings       `yaml:",inline"`
	Left           bool   `yaml:"left"`
	Follow         string `yaml:"follow"`
	FollowPosition string `yaml:"followPosition"`
	FollowRotation string `yaml:"followRotation"`
	PoseIndex      int    `yaml:"poseIndex"`
}

// State is the grab life-cycle stage a hand is in.
type State int

const (
	Idle State = iota
	Targeting
	Approaching
	Held
	Releasing
	ForceReleasing
)

// noState marks the transient release states as inactive.
const noState State = -1

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Targeting:
		return "targeting"
	case Approaching:
		return "approaching"
	case Held:
		return "held"
	case Releasing:
		return "releasing"
	case ForceReleasing:
		return "forceReleasing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// GrabEvent is passed to hand listeners. ID identifies the approach that
// produced the hold; it is the zero UUID for holds made by SetHeldPose
// before any approach.
type GrabEvent struct {
	Hand      *Hand
	Grabbable *grabbable.Grabbable
	ID        uuid.UUID
}

const (
	// lookAssistDegrees is the look assist turn rate per second at speed 1.
	lookAssistDegrees = 50
	handDepenetration = 2
)

type Hand struct {
	engine.BaseComponent
	Settings

	Left bool
	// Names of the scene objects the hand follows. Position and rotation
	// targets fall back to FollowTarget.
	FollowTarget         string
	FollowPositionTarget string
	FollowRotationTarget string

	OnTriggerGrab         engine.EventWithArg[GrabEvent]
	OnBeforeGrabbed       engine.EventWithArg[GrabEvent]
	OnGrabbed             engine.EventWithArg[GrabEvent]
	OnBeforeReleased      engine.EventWithArg[GrabEvent]
	OnReleased            engine.EventWithArg[GrabEvent]
	OnForcedRelease       engine.EventWithArg[GrabEvent]
	OnHeldConnectionBreak engine.EventWithArg[GrabEvent]
	OnSqueezed            engine.EventWithArg[GrabEvent]
	OnUnsqueezed          engine.EventWithArg[GrabEvent]
	OnHighlight           engine.EventWithArg[GrabEvent]
	OnStopHighlight       engine.EventWithArg[GrabEvent]
	OnHandCollisionStart  engine.EventWithArg[*engine.GameObject]
	OnHandCollisionStop   engine.EventWithArg[*engine.GameObject]

	world    *physics.World
	registry *grabbable.Registry
	logger   *zap.Logger

	poseIndex int
	started   bool
	// disabled stops everything; grabDisabled keeps the hand following
	// but never grabbing.
	disabled     bool
	grabDisabled bool

	body       *components.Rigidbody
	palm       *engine.GameObject
	followPos  *engine.GameObject
	followRot  *engine.GameObject
	controller *follow.Controller
	detector   *detect.Detector[*grabbable.Grabbable]
	estimator  *throw.Estimator
	fingers    []*Finger
	curve      Curve

	holding    *grabbable.Grabbable
	lookingAt  *grabbable.Grabbable
	grabPoint  *engine.GameObject
	handJoint  *physics.FixedJoint
	heldJoint  *physics.FixedJoint
	grabPose   *pose.GrabbablePose
	grabID     uuid.UUID
	approach   *approach
	tries      *tryGrab
	transient  State
	clock      float64
	collisions map[*engine.GameObject]int
	// areas counts overlapping colliders per trigger area, in entry order.
	areas *orderedmap.OrderedMap[*grabbable.TriggerArea, int]

	grabPositionOffset rl.Vector3
	grabRotationOffset rl.Quaternion

	grabbing   bool
	grabLocked bool
	squeezing  bool
	freezePos  bool
	freezeRot  bool

	animation *poseAnimation
	grip      float32
	idealGrip float32
	currGrip  float32
}

func New(left bool, settings Settings) *Hand {
	return &Hand{
		Settings:           settings,
		Left:               left,
		logger:             zap.NewNop(),
		transient:          noState,
		collisions:         make(map[*engine.GameObject]int),
		areas:              orderedmap.NewOrderedMap[*grabbable.TriggerArea, int](),
		grabRotationOffset: rl.QuaternionIdentity(),
		idealGrip:          1,
		currGrip:           1,
	}
}

// Bind hands the component its collaborators. It must run before Start.
func (h *Hand) Bind(world *physics.World, registry *grabbable.Registry, logger *zap.Logger) {
	h.world = world
	h.registry = registry
	if logger != nil {
		h.logger = logger
	}
}

// SetFollow binds the follow targets directly. A nil rotation target uses
// the position target.
func (h *Hand) SetFollow(position, rotation *engine.GameObject) {
	h.followPos = position
	h.followRot = rotation
	if rotation == nil {
		h.followRot = position
	}
}

func (h *Hand) side() string {
	if h.Left {
		return "left"
	}
	return "right"
}

func (h *Hand) Start() {
	if h.started {
		return
	}
	h.started = true
	h.logger = h.logger.Named("hand").With(zap.String("hand", h.side()))
	g := h.GetGameObject()

	h.body = engine.GetComponent[*components.Rigidbody](g)
	if h.body == nil {
		h.configError(fmt.Errorf("%s: %w", g.Name, ErrMissingBody))
		h.disabled = true
		return
	}
	h.body.UseGravity = false
	h.body.MaxDepenetrationVelocity = handDepenetration
	if h.registry != nil {
		g.SetLayerRecursive(h.registry.Layers.Hand)
	}

	h.palm = findDescendant(g, h.PalmName)
	if h.palm == nil {
		h.configError(fmt.Errorf("%s: %w", g.Name, ErrMissingPalm))
		h.grabDisabled = true
		h.palm = g
	}
	h.resolveFollow()

	h.controller = follow.NewController(h.body, h.Follow)
	h.estimator = throw.NewEstimator(h.ThrowExpireTime, h.ThrowPower, throw.DefaultCapacity)
	curve, err := ParseCurve(h.GrabCurve)
	if err != nil {
		h.configError(err)
		curve, _ = ParseCurve("")
	}
	h.curve = curve

	g.Walk(func(o *engine.GameObject) bool {
		if f := engine.GetComponent[*Finger](o); f != nil {
			if h.world != nil {
				f.world = h.world
			}
			f.Start()
			h.fingers = append(h.fingers, f)
		}
		return true
	})

	if h.world == nil || h.registry == nil {
		h.configError(fmt.Errorf("%s: %w", g.Name, ErrNotBound))
		h.grabDisabled = true
	} else {
		h.detector = detect.New(h.world, h.registry.Lookup, h.RayCount, h.GrabSpreadOffset)
		h.registry.AddHand(h)
	}
	h.body.WakeUp()
	h.logger.Debug("hand started", zap.Int("fingers", len(h.fingers)), zap.Bool("canGrab", !h.grabDisabled))
}

func (h *Hand) configError(err error) {
	h.logger.Error("hand configuration", zap.Error(err))
	sentry.CaptureException(err)
}

func findDescendant(root *engine.GameObject, name string) *engine.GameObject {
	var found *engine.GameObject
	root.Walk(func(o *engine.GameObject) bool {
		if found != nil {
			return false
		}
		if o != root && o.Name == name {
			found = o
		}
		return found == nil
	})
	return found
}

func (h *Hand) resolveFollow() {
	scene := h.GetGameObject().Scene
	find := func(name string) *engine.GameObject {
		if name == "" || scene == nil {
			return nil
		}
		return scene.FindByName(name)
	}
	main := find(h.FollowTarget)
	if h.followPos == nil {
		h.followPos = find(h.FollowPositionTarget)
		if h.followPos == nil {
			h.followPos = main
		}
	}
	if h.followRot == nil {
		h.followRot = find(h.FollowRotationTarget)
		if h.followRot == nil {
			h.followRot = main
		}
	}
	if h.followPos == nil {
		h.logger.Warn("hand has no follow target", zap.String("target", h.FollowTarget))
	}
}

// Body is the hand's rigidbody.
func (h *Hand) Body() *components.Rigidbody { return h.body }
func (h *Hand) IsLeft() bool                { return h.Left }
func (h *Hand) PoseIndex() int              { return h.poseIndex }

// Fingers returns the finger rig in hierarchy order.
func (h *Hand) Fingers() []pose.Finger {
	out := make([]pose.Finger, len(h.fingers))
	for i, f := range h.fingers {
		out[i] = f
	}
	return out
}

func (h *Hand) PoseRoot() *engine.GameObject { return h.GetGameObject() }

// Palm is the anchor detection and alignment work from.
func (h *Hand) Palm() *engine.GameObject { return h.palm }

// Holding returns the held grabbable, which is also set during an
// approach once the target is committed.
func (h *Hand) Holding() *grabbable.Grabbable { return h.holding }

// LookingAt is the grabbable currently highlighted by this hand.
func (h *Hand) LookingAt() *grabbable.Grabbable { return h.lookingAt }

func (h *Hand) IsGrabbing() bool  { return h.grabbing }
func (h *Hand) IsSqueezing() bool { return h.squeezing }
func (h *Hand) Disabled() bool    { return h.disabled }

// CanGrabAnything is false when configuration errors disabled grabbing.
func (h *Hand) CanGrabAnything() bool { return !h.disabled && !h.grabDisabled }

// Joints returns the joint pair while holding.
func (h *Hand) Joints() (hand, held *physics.FixedJoint) { return h.handJoint, h.heldJoint }

// State reports the grab stage. Releasing and ForceReleasing are only
// visible while the release itself runs, e.g. from event listeners.
func (h *Hand) State() State {
	switch {
	case h.transient != noState:
		return h.transient
	case h.approach != nil || h.grabbing:
		return Approaching
	case h.holding != nil:
		return Held
	case h.lookingAt != nil:
		return Targeting
	}
	return Idle
}

func (h *Hand) event(g *grabbable.Grabbable) GrabEvent {
	return GrabEvent{Hand: h, Grabbable: g, ID: h.grabID}
}

func (h *Hand) layers() grabbable.Layers {
	if h.registry == nil {
		return grabbable.Layers{}
	}
	return h.registry.Layers
}

func (h *Hand) FixedUpdate(dt float32) {
	if h.body == nil || h.disabled {
		return
	}
	h.clock += float64(dt)
	h.stepTryGrab()
	if h.approach != nil {
		h.stepApproach(dt)
	}
	h.updateThrowing()
	if h.grabbing || h.body.IsKinematic {
		return
	}
	h.moveTo(dt)
	h.torqueTo()
	h.updateHighlight(dt)
}

// Update runs the variable step: pose animation and finger sway only.
func (h *Hand) Update(dt float32) {
	if h.body == nil || h.disabled {
		return
	}
	h.stepAnimation(dt)
	h.updateFingers(dt)
}

// followPose is where the hand is trying to be this tick.
func (h *Hand) followPose() (rl.Vector3, rl.Quaternion, bool) {
	if h.followPos == nil || h.followPos.Destroyed() {
		return rl.Vector3{}, rl.Quaternion{}, false
	}
	rotObj := h.followRot
	if rotObj == nil || rotObj.Destroyed() {
		rotObj = h.followPos
	}
	pos := rl.Vector3Add(h.followPos.WorldPosition(), h.grabPositionOffset)
	rot := rl.QuaternionNormalize(rl.QuaternionMultiply(rotObj.WorldRotation(), h.grabRotationOffset))

	if held := h.holding; held != nil {
		posOff, rotOff := held.HeldPositionOffset, held.HeldRotationOffset
		if h.Left {
			posOff.X = -posOff.X
			rotOff = rl.Vector3{X: rotOff.X, Y: -rotOff.Y, Z: -rotOff.Z}
		}
		pos = rl.Vector3Add(pos, rl.Vector3RotateByQuaternion(posOff, h.body.Rotation()))
		euler := rl.QuaternionFromEuler(rotOff.X*rl.Deg2rad, rotOff.Y*rl.Deg2rad, rotOff.Z*rl.Deg2rad)
		rot = rl.QuaternionNormalize(rl.QuaternionMultiply(rot, euler))
	}
	return pos, rot, true
}

func (h *Hand) holdingSingle() bool {
	return h.holding != nil && h.grabLocked && h.holding.HeldCount() == 1 && h.grabPoint != nil
}

func (h *Hand) moveTo(dt float32) {
	if h.freezePos {
		return
	}
	if h.holdingSingle() {
		h.body.SetPosition(h.grabPoint.WorldPosition())
	}
	target, _, ok := h.followPose()
	if !ok {
		return
	}
	hold := follow.Hold{
		Holding:   h.holding != nil,
		Colliding: len(h.collisions) > 0,
	}
	if h.holding != nil {
		hold.ReleaseOnTeleport = h.holding.ReleaseOnTeleport
	}
	switch h.controller.MoveTo(target, dt, hold) {
	case follow.Teleport:
		h.logger.Debug("corrective teleport", zap.Int("corrections", h.controller.Corrections()))
		h.SetHandLocation(target, h.body.Rotation())
	case follow.Release:
		h.logger.Info("held object left follow range")
		h.ForceReleaseGrab()
	}
}

func (h *Hand) torqueTo() {
	if h.freezeRot {
		return
	}
	if h.holdingSingle() {
		h.body.SetRotation(h.grabPoint.WorldRotation())
	}
	if _, rot, ok := h.followPose(); ok {
		h.controller.TorqueTo(rot)
	}
}

// updateHighlight tracks what the palm points at while empty-handed and
// turns the hand toward it.
func (h *Hand) updateHighlight(dt float32) {
	if h.holding != nil || h.grabbing || h.detector == nil || h.grabDisabled {
		h.controller.RotationOffset = rl.QuaternionIdentity()
		return
	}
	res := h.detector.Closest(h.palm.WorldPosition(), h.palm.WorldRotation(), h.ReachDistance, h.layers().ReachMask())
	if !res.Found() {
		h.clearHighlight()
		h.controller.RotationOffset = rl.QuaternionIdentity()
		return
	}
	if res.Target != h.lookingAt {
		h.clearHighlight()
		h.lookingAt = res.Target
		h.OnHighlight.Invoke(h.event(res.Target))
		res.Target.Highlight(h)
	}
	if h.LookAssistSpeed <= 0 {
		return
	}
	toward := omath.FromTo(h.palm.Forward(), rl.Vector3Subtract(res.Hit.Point, h.body.Position()))
	step := lookAssistDegrees * dt * h.LookAssistSpeed * res.Target.LookAssistMultiplier * rl.Deg2rad
	h.controller.RotationOffset = omath.RotateTowards(h.controller.RotationOffset, toward, step)
}

func (h *Hand) clearHighlight() {
	if h.lookingAt == nil {
		return
	}
	prev := h.lookingAt
	h.lookingAt = nil
	h.OnStopHighlight.Invoke(h.event(prev))
	prev.Unhighlight(h)
}

func (h *Hand) updateThrowing() {
	if h.holding == nil || h.grabbing {
		h.estimator.Clear()
		return
	}
	var angular rl.Vector3
	if h.holding.Body != nil {
		angular = h.holding.Body.AngularVelocity
	}
	h.estimator.Add(h.clock, h.body.Velocity, angular)
}

// ThrowVelocity is the velocity a released object leaves with.
func (h *Hand) ThrowVelocity() rl.Vector3 {
	if h.grabbing || h.estimator == nil {
		return rl.Vector3{}
	}
	return h.estimator.Velocity(h.clock, h.body.Velocity)
}

func (h *Hand) ThrowAngularVelocity() rl.Vector3 {
	if h.grabbing || h.estimator == nil {
		return rl.Vector3{}
	}
	return h.estimator.AngularVelocity(h.clock)
}

// CanGrab reports whether g may be grabbed by this hand right now.
func (h *Hand) CanGrab(g *grabbable.Grabbable) bool {
	if g == nil || !h.CanGrabAnything() {
		return false
	}
	obj := g.GetGameObject()
	if obj == nil || obj.Destroyed() || g.Disabled() || !g.IsGrabbable {
		return false
	}
	if g.IsHeld() && g.SingleHandOnly && !g.AllowHeldSwapping {
		return false
	}
	return g.HandType.Allows(h.Left)
}

// Squeeze is the grip press.
func (h *Hand) Squeeze() {
	h.OnSqueezed.Invoke(h.event(h.holding))
	if h.holding != nil {
		h.holding.Squeeze(h)
	}
	h.squeezing = true
	for _, a := range h.triggerAreas() {
		a.Squeeze(h)
	}
}

func (h *Hand) Unsqueeze() {
	h.squeezing = false
	h.OnUnsqueezed.Invoke(h.event(h.holding))
	if h.holding != nil {
		h.holding.Unsqueeze(h)
	}
	for _, a := range h.triggerAreas() {
		a.Unsqueeze(h)
	}
}

// SetHandLocation moves the hand, and what it holds unless the object
// releases on teleport, to pos and rot.
func (h *Hand) SetHandLocation(pos rl.Vector3, rot rl.Quaternion) {
	held := h.holding
	if held != nil && !held.ParentOnGrab {
		return
	}
	if held == nil || held.ReleaseOnTeleport || held.Body == nil {
		h.body.SetPosition(pos)
		h.body.SetRotation(rot)
		return
	}
	delta := rl.Vector3Subtract(pos, h.body.Position())
	deltaRot := rl.QuaternionMultiply(rot, rl.QuaternionInvert(h.body.Rotation()))
	h.body.SetPosition(pos)
	h.body.SetRotation(rot)
	h.grabPositionOffset = rl.Vector3RotateByQuaternion(h.grabPositionOffset, deltaRot)

	held.Body.SetPosition(rl.Vector3Add(held.Body.Position(), delta))
	for _, jb := range held.JointedBodies {
		if h.registry != nil {
			if other, ok := h.registry.Lookup(jb.GetGameObject()); ok && other.HeldCount() > 0 {
				continue
			}
		}
		jb.SetPosition(rl.Vector3Add(jb.Position(), delta))
	}
}

func (h *Hand) OnCollisionEnter(other *engine.GameObject) {
	h.collisions[other]++
	if h.collisions[other] > 1 {
		return
	}
	h.OnHandCollisionStart.Invoke(other)
	if h.registry != nil {
		if t, ok := h.registry.TouchEventOf(other); ok {
			t.Touch(h)
		}
	}
}

func (h *Hand) OnCollisionExit(other *engine.GameObject) {
	n, ok := h.collisions[other]
	if !ok {
		return
	}
	if n > 1 {
		h.collisions[other] = n - 1
		return
	}
	delete(h.collisions, other)
	h.OnHandCollisionStop.Invoke(other)
	if h.registry != nil {
		if t, ok := h.registry.TouchEventOf(other); ok {
			t.Untouch(h)
		}
	}
}

// OnTriggerEnter tracks trigger areas the hand is inside of. A hand with
// several colliders enters an area once.
func (h *Hand) OnTriggerEnter(other *engine.GameObject) {
	if h.registry == nil || h.disabled {
		return
	}
	a, ok := h.registry.TriggerAreaOf(other)
	if !ok {
		return
	}
	n, _ := h.areas.Get(a)
	h.areas.Set(a, n+1)
	if n == 0 {
		a.Enter(h)
	}
}

func (h *Hand) OnTriggerExit(other *engine.GameObject) {
	if h.registry == nil {
		return
	}
	a, ok := h.registry.TriggerAreaOf(other)
	if !ok {
		return
	}
	n, ok := h.areas.Get(a)
	if !ok {
		return
	}
	if n > 1 {
		h.areas.Set(a, n-1)
		return
	}
	h.areas.Delete(a)
	a.Exit(h)
}

// triggerAreas returns the areas the hand is in, oldest first.
func (h *Hand) triggerAreas() []*grabbable.TriggerArea {
	return h.areas.Keys()
}

func (h *Hand) exitTriggerAreas() {
	for _, a := range h.triggerAreas() {
		h.areas.Delete(a)
		a.Exit(h)
	}
}

// Disable force-releases anything held and stops the hand. Enable undoes
// it; configuration errors stay in effect.
func (h *Hand) Disable() {
	if h.disabled {
		return
	}
	h.ForceReleaseGrab()
	h.clearHighlight()
	h.tries = nil
	h.CancelPose()
	h.exitTriggerAreas()
	h.disabled = true
	if h.registry != nil {
		h.registry.RemoveHand(h)
	}
}

func (h *Hand) Enable() {
	if h.body == nil || !h.disabled {
		return
	}
	h.disabled = false
	if h.registry != nil && h.detector != nil {
		h.registry.AddHand(h)
	}
}

func (h *Hand) OnDestroy() {
	h.Disable()
	if h.registry != nil {
		h.registry.RemoveHand(h)
	}
}
