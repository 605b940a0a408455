package hand

import (
	"autohand/internal/engine"
	"autohand/internal/grabbable"
	"autohand/internal/omath"
	"autohand/internal/pose"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type phase int

const (
	// waitFree polls until no other hand is mid-grab on the target.
	waitFree phase = iota
	// swapWait is the one tick a single-hand object gets to leave its
	// previous holder.
	swapWait
	interpolate
	// returning runs after the joints exist, easing the hand back toward
	// its follow target.
	returning
)

func (p phase) String() string {
	switch p {
	case waitFree:
		return "waitFree"
	case swapWait:
		return "swapWait"
	case interpolate:
		return "interpolate"
	case returning:
		return "returning"
	}
	return "unknown"
}

// approach is one grab in progress. It is advanced once per physics tick
// by stepApproach until it connects or aborts.
type approach struct {
	id           uuid.UUID
	target       *grabbable.Grabbable
	hit          engine.Hit
	distanceGrab bool
	phase        phase
	// committed is set once the target has been told about the grab.
	committed bool
	connected bool
	waited    int
	startDist float32

	startPose  pose.Data
	endPose    pose.Data
	poseTarget *engine.GameObject
	elapsed    float32
	duration   float32
}

func (a *approach) instant() bool {
	return a.distanceGrab || a.target.InstantGrab
}

const (
	tryGrabAttempts = 5
	tryGrabInterval = 0.1
)

type tryGrab struct {
	target   *grabbable.Grabbable
	attempts int
	next     float64
}

// Grab is the trigger press. Empty-handed, it grabs the best candidate in
// front of the palm; holding an object with a grab lock, it presses the
// lock instead.
func (h *Hand) Grab() {
	h.OnTriggerGrab.Invoke(h.event(h.holding))
	if h.body == nil || h.disabled {
		return
	}
	for _, area := range h.triggerAreas() {
		area.Grab(h)
	}
	if h.holding == nil && !h.grabbing && h.approach == nil {
		if !h.CanGrabAnything() {
			return
		}
		res := h.detector.Closest(h.palm.WorldPosition(), h.palm.WorldRotation(), h.ReachDistance, h.layers().ReachMask())
		if res.Found() {
			h.startApproach(res.Hit, res.Target, false)
		}
		return
	}
	if h.holding != nil {
		if lock := h.holding.GrabLock(); lock != nil {
			lock.OnGrabPressed.Invoke()
		}
	}
}

// GrabHit grabs g at hit from a distance. Only free bodies can be pulled
// in; the object is snapped to the palm without pose interpolation.
func (h *Hand) GrabHit(hit engine.Hit, g *grabbable.Grabbable) bool {
	if h.body == nil || h.disabled || h.holding != nil || h.grabbing {
		return false
	}
	if g == nil || g.Body == nil || g.Body.IsKinematic || !h.CanGrab(g) {
		return false
	}
	h.startApproach(hit, g, true)
	return true
}

// TryGrab grabs g specifically, retrying a few times while it is out of
// the palm's reach.
func (h *Hand) TryGrab(g *grabbable.Grabbable) {
	if g == nil || h.body == nil || h.disabled {
		return
	}
	h.tries = &tryGrab{target: g}
	h.attemptGrab()
}

func (h *Hand) stepTryGrab() {
	if h.tries == nil || h.clock < h.tries.next {
		return
	}
	h.attemptGrab()
}

func (h *Hand) attemptGrab() {
	t := h.tries
	t.attempts++
	t.next = h.clock + tryGrabInterval
	if t.attempts >= tryGrabAttempts {
		h.tries = nil
	}
	if h.holding != nil || h.grabbing || !h.CanGrab(t.target) {
		return
	}
	obj := t.target.GetGameObject()
	palmPos := h.palm.WorldPosition()
	dist := rl.Vector3Distance(palmPos, obj.WorldPosition())
	l := h.layers()
	mask := engine.MaskOf(l.Grabbable, l.Grabbing)

	res := h.detector.ClosestWhere(palmPos, h.palm.WorldRotation(), dist, mask,
		func(_ engine.Hit, target *grabbable.Grabbable) bool { return target == t.target })
	if res.Found() {
		h.tries = nil
		h.startApproach(res.Hit, t.target, false)
		return
	}
	dir := rl.Vector3Subtract(obj.WorldPosition(), palmPos)
	hit, ok := h.world.Raycast(palmPos, dir, dist*2, mask)
	if !ok {
		return
	}
	if found, ok := h.registry.Lookup(hit.GameObject); ok && found == t.target {
		h.tries = nil
		h.startApproach(hit, t.target, false)
	}
}

func (h *Hand) startApproach(hit engine.Hit, g *grabbable.Grabbable, distanceGrab bool) {
	if h.approach != nil {
		h.abortApproach("superseded")
	}
	if !h.CanGrab(g) {
		return
	}
	a := &approach{id: uuid.New(), target: g, hit: hit, distanceGrab: distanceGrab}
	h.approach = a
	h.grabID = a.id
	h.logger.Debug("approach started",
		zap.Stringer("grab", a.id),
		zap.String("object", g.GetGameObject().Name),
		zap.Bool("distance", distanceGrab))
	h.stepApproach(0)
}

func (h *Hand) targetLost(a *approach) bool {
	obj := a.target.GetGameObject()
	if obj == nil || obj.Destroyed() {
		return true
	}
	return a.committed && h.holding != a.target
}

func (h *Hand) stepApproach(dt float32) {
	a := h.approach
	if h.targetLost(a) {
		h.abortApproach("target lost")
		return
	}
	g := a.target
	switch a.phase {
	case waitFree:
		if g.BeingGrabbed() {
			a.waited++
			if a.waited > h.ContentionPollTicks {
				h.abortApproach("contention")
			}
			return
		}
		if !h.CanGrab(g) {
			h.abortApproach("not grabbable")
			return
		}
		if g.SingleHandOnly && g.HeldCount() > 0 {
			h.logger.Debug("hand swap", zap.Stringer("grab", a.id), zap.Int("holders", g.HeldCount()))
			g.ForceHandsRelease()
			a.phase = swapWait
			return
		}
		h.beginConnect(a)
	case swapWait:
		if !h.CanGrab(g) {
			h.abortApproach("not grabbable")
			return
		}
		h.beginConnect(a)
	case interpolate:
		a.elapsed += dt
		if a.elapsed < a.duration {
			pose.Lerp(a.startPose, a.endPose, h.curve(a.elapsed/a.duration)).Apply(h, a.poseTarget)
			return
		}
		a.endPose.Apply(h, a.poseTarget)
		h.connect(a)
	case returning:
		if target, _, ok := h.followPose(); ok {
			step := h.ReachDistance * dt / h.GrabReturnTime
			h.body.SetPosition(omath.MoveTowards(h.body.Position(), target, step))
		}
		a.elapsed += dt
		if a.elapsed >= a.duration {
			h.finishApproach()
		}
	}
}

// beginConnect commits the hand to the target: layers, parent, grab point,
// palm alignment and target pose.
func (h *Hand) beginConnect(a *approach) {
	g := a.target
	obj := g.GetGameObject()

	if h.lookingAt == g {
		h.clearHighlight()
	}
	g.Unhighlight(h)
	h.CancelPose()

	h.holding = g
	a.committed = true
	g.BeforeGrab(h)
	h.OnBeforeGrabbed.Invoke(h.event(g))
	if h.approach != a || h.targetLost(a) {
		return
	}
	g.SwapLayer(obj.Layer, h.layers().Grabbing)

	anchor := a.hit.GameObject
	if anchor == nil || anchor.Destroyed() {
		anchor = obj
	}
	h.grabPoint = newGrabPoint(anchor, a.hit.Point, rl.QuaternionIdentity())

	h.grabbing = true
	h.freezeRot = true
	h.body.Velocity = rl.Vector3{}
	h.body.AngularVelocity = rl.Vector3{}

	point := h.grabPoint.WorldPosition()
	a.startDist = rl.Vector3Distance(h.palm.WorldPosition(), point) / h.ReachDistance
	h.aimPalm(point)

	var start pose.Data
	if p, ok := h.predeterminedPose(obj); ok {
		h.grabPose = p
		start = pose.Capture(h, obj)
	} else {
		start = pose.Capture(h, h.grabPoint)
		h.autoAlign(a)
	}

	if h.GrabTime > 0 && !a.instant() {
		a.poseTarget = h.grabPoint
		a.endPose = pose.Capture(h, h.grabPoint)
		if h.grabPose != nil {
			a.poseTarget = obj
			a.endPose, _ = h.grabPose.HandPose(h)
		}
		a.startPose = start
		a.duration = h.GrabTime * a.startDist
		a.elapsed = 0
		a.phase = interpolate
		if a.duration > 0 {
			pose.Lerp(a.startPose, a.endPose, h.curve(0)).Apply(h, a.poseTarget)
			return
		}
		a.endPose.Apply(h, a.poseTarget)
	} else if h.grabPose != nil {
		if d, ok := h.grabPose.HandPose(h); ok {
			d.Apply(h, obj)
		}
	}
	h.connect(a)
}

func newGrabPoint(parent *engine.GameObject, pos rl.Vector3, rot rl.Quaternion) *engine.GameObject {
	gp := engine.NewGameObject("Grab Point")
	gp.Transform.Position = pos
	gp.Transform.Rotation = rot
	gp.SetParent(parent, true)
	if parent.Scene != nil {
		parent.Scene.AddGameObject(gp)
	}
	return gp
}

// aimPalm turns the hand about its palm so the palm faces point.
func (h *Hand) aimPalm(point rl.Vector3) {
	palmPos := h.palm.WorldPosition()
	dir := rl.Vector3Subtract(point, palmPos)
	if rl.Vector3Length(dir) < 1e-6 {
		return
	}
	delta := omath.FromTo(h.palm.Forward(), dir)
	offset := rl.Vector3Subtract(h.body.Position(), palmPos)
	h.body.SetPosition(rl.Vector3Add(palmPos, rl.Vector3RotateByQuaternion(offset, delta)))
	h.body.SetRotation(rl.QuaternionNormalize(rl.QuaternionMultiply(delta, h.body.Rotation())))
}

func (h *Hand) predeterminedPose(obj *engine.GameObject) (*pose.GrabbablePose, bool) {
	if c := engine.GetComponent[*pose.Combiner](obj); c != nil && c.CanSetPose(h) {
		return c.Closest(h)
	}
	if p := engine.GetComponent[*pose.GrabbablePose](obj); p != nil && p.CanSetPose(h) {
		return p, true
	}
	return nil, false
}

// autoAlign puts the palm on the grab point, or pulls a free object onto
// the palm for instant and distance grabs, then closes each finger until
// it touches the object.
func (h *Hand) autoAlign(a *approach) {
	g := a.target
	for _, f := range h.fingers {
		f.ResetBend()
	}
	palmPos := h.palm.WorldPosition()
	palmOffset := rl.Vector3Subtract(h.body.Position(), palmPos)
	point := h.grabPoint.WorldPosition()

	if a.instant() && g.HeldCount() == 0 && g.Body != nil {
		g.Body.Velocity = rl.Vector3{}
		g.Body.AngularVelocity = rl.Vector3{}
		g.Body.SetPosition(rl.Vector3Add(g.Body.Position(), rl.Vector3Subtract(palmPos, point)))
		h.body.WakeUp()
		g.Body.WakeUp()
	} else {
		h.body.SetPosition(rl.Vector3Add(point, palmOffset))
	}

	mask := engine.MaskOf(h.layers().Grabbing)
	touched := 0
	for _, f := range h.fingers {
		if f.BendUntilHit(h.FingerBendSteps, mask) {
			touched++
		}
	}
	h.logger.Debug("fingers aligned", zap.Stringer("grab", a.id), zap.Int("touching", touched), zap.Int("fingers", len(h.fingers)))
}

// connect creates the joint pair and completes the grab.
func (h *Hand) connect(a *approach) {
	g := a.target
	if h.targetLost(a) {
		h.abortApproach("target lost")
		return
	}
	if g.MaintainGrabOffset && h.followPos != nil {
		h.grabPositionOffset = rl.Vector3Subtract(h.body.Position(), h.followPos.WorldPosition())
		h.grabRotationOffset = rl.QuaternionNormalize(rl.QuaternionMultiply(
			rl.QuaternionInvert(h.followRotation().WorldRotation()), h.body.Rotation()))
	}
	if err := h.createJoints(g); err != nil {
		h.logger.Error("grab joints", zap.Stringer("grab", a.id), zap.Error(err))
		h.abortApproach("joint")
		return
	}
	h.grabPoint.SetWorldPosition(h.body.Position())
	h.grabPoint.SetWorldRotation(h.body.Rotation())
	a.connected = true

	h.OnGrabbed.Invoke(h.event(g))
	g.Grab(h)
	h.grabLocked = true
	l := h.layers()
	h.GetGameObject().SwapLayerRecursive(l.Hand, l.HandHolding)
	h.logger.Info("grabbed",
		zap.Stringer("grab", a.id),
		zap.String("object", g.GetGameObject().Name),
		zap.Int("holders", g.HeldCount()))

	if h.approach != a {
		return
	}
	free := g.Body != nil && !g.Body.IsKinematic && !g.ReleaseOnTeleport && g.ParentOnGrab
	if free && h.GrabReturnTime > 0 && g.HeldCount() == 1 && !a.instant() {
		a.phase = returning
		a.elapsed = 0
		a.duration = h.GrabReturnTime * a.startDist
		return
	}
	h.finishApproach()
}

func (h *Hand) followRotation() *engine.GameObject {
	if h.followRot != nil {
		return h.followRot
	}
	return h.followPos
}

func (h *Hand) finishApproach() {
	h.approach = nil
	h.grabbing = false
	h.freezePos = false
	h.freezeRot = false
}

// abortApproach unwinds an approach. Before the joints exist the target
// gets its layer and parent back; afterwards the hold stays.
func (h *Hand) abortApproach(reason string) {
	a := h.approach
	if a == nil {
		return
	}
	h.logger.Debug("approach aborted",
		zap.Stringer("grab", a.id),
		zap.Stringer("phase", a.phase),
		zap.String("reason", reason))
	if a.connected {
		h.finishApproach()
		return
	}
	if a.committed && h.holding == a.target {
		h.BreakGrabConnection(false)
	}
	h.finishApproach()
	if a.committed {
		a.target.CancelGrab(h)
	}
}
