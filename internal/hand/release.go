package hand

import (
	"errors"
	"fmt"

	"autohand/internal/engine"
	"autohand/internal/grabbable"
	"autohand/internal/physics"
	"autohand/internal/pose"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Release is the trigger release. An object that was still on the
// grabbing layer is dropped rather than thrown. Objects with a grab lock
// stay held.
func (h *Hand) Release() {
	for _, area := range h.triggerAreas() {
		area.Release(h)
	}
	if a := h.approach; a != nil && !a.connected {
		h.abortApproach("released")
		return
	}
	held := h.holding
	if held == nil {
		if h.grabLocked {
			h.BreakGrabConnection(true)
		}
		return
	}
	if held.GrabLock() != nil {
		return
	}
	h.finishApproach()
	h.release(held, held.GetGameObject().Layer != h.layers().Grabbing)
}

// ReleaseGrabLock releases through a grab lock, always throwing.
func (h *Hand) ReleaseGrabLock() {
	if a := h.approach; a != nil && !a.connected {
		h.abortApproach("released")
		return
	}
	held := h.holding
	if held == nil {
		if h.grabLocked {
			h.BreakGrabConnection(true)
		}
		return
	}
	h.finishApproach()
	h.release(held, true)
}

func (h *Hand) release(held *grabbable.Grabbable, thrown bool) {
	h.transient = Releasing
	defer func() { h.transient = noState }()

	ev := h.event(held)
	h.OnBeforeReleased.Invoke(ev)
	if h.squeezing {
		held.Unsqueeze(h)
	}
	vel := h.ThrowVelocity()
	held.Release(h, thrown)
	h.OnReleased.Invoke(ev)
	h.BreakGrabConnection(true)
	h.logger.Info("released",
		zap.Stringer("grab", ev.ID),
		zap.String("object", held.GetGameObject().Name),
		zap.Bool("thrown", thrown),
		zap.Float32("speed", rl.Vector3Length(vel)))
}

// ForceReleaseGrab drops whatever the hand holds or is approaching,
// without throwing and without the release events.
func (h *Hand) ForceReleaseGrab() {
	held := h.holding
	h.approach = nil
	if held == nil {
		h.finishApproach()
		return
	}
	h.transient = ForceReleasing
	defer func() { h.transient = noState }()

	if h.squeezing {
		held.Unsqueeze(h)
	}
	ev := h.event(held)
	h.OnForcedRelease.Invoke(ev)
	if held.Body != nil {
		held.Body.WakeUp()
	}
	h.BreakGrabConnection(true)
	h.finishApproach()
	h.logger.Info("force released", zap.Stringer("grab", ev.ID), zap.String("object", held.GetGameObject().Name))
	held.ForceHandRelease(h)
}

// OnJointBreak is called when the hand-owned joint breaks, or by the held
// object when its own half does.
func (h *Hand) OnJointBreak(connected *engine.GameObject, force float32) {
	held := h.holding
	if held == nil {
		return
	}
	h.destroyJoints()
	h.logger.Info("grab joint broke",
		zap.Stringer("grab", h.grabID),
		zap.String("object", held.GetGameObject().Name),
		zap.Float32("force", force))
	held.HandJointBroken(h)
	h.ForceReleaseGrab()
}

// BreakGrabConnection tears down the joints and grab point and forgets the
// held object. It does not tell the object; callers do that first.
func (h *Hand) BreakGrabConnection(callEvent bool) {
	held := h.holding
	if h.grabbing && held != nil && held.Body != nil {
		held.Body.Velocity = rl.Vector3{}
		held.Body.AngularVelocity = rl.Vector3{}
		held.SetOriginalParent()
	}
	h.grabLocked = false
	h.grabPose = nil
	h.grabPositionOffset = rl.Vector3{}
	h.grabRotationOffset = rl.QuaternionIdentity()

	h.destroyGrabPoint()
	h.destroyJoints()

	if callEvent {
		h.OnHeldConnectionBreak.Invoke(h.event(held))
	}
	h.holding = nil
	l := h.layers()
	if obj := h.GetGameObject(); obj != nil && l.HandHolding != l.Hand {
		obj.SwapLayerRecursive(l.HandHolding, l.Hand)
	}
}

func (h *Hand) createJoints(g *grabbable.Grabbable) error {
	if g.Body == nil {
		return fmt.Errorf("%s: %w", g.GetGameObject().Name, grabbable.ErrMissingBody)
	}
	cfg := physics.JointConfig{
		BreakForce:         g.JointBreakForce,
		BreakTorque:        g.JointBreakTorque,
		MassScale:          1,
		ConnectedMassScale: 1,
	}
	handJoint, err := h.world.CreateFixedJoint(h.body, g.Body, cfg)
	if err != nil {
		return err
	}
	heldJoint, err := h.world.CreateFixedJoint(g.Body, h.body, cfg)
	if err != nil {
		_ = h.world.DestroyJoint(handJoint)
		return err
	}
	h.handJoint, h.heldJoint = handJoint, heldJoint
	return nil
}

func (h *Hand) destroyJoints() {
	for _, j := range []*physics.FixedJoint{h.handJoint, h.heldJoint} {
		if j == nil || h.world == nil {
			continue
		}
		if err := h.world.DestroyJoint(j); err != nil && !errors.Is(err, physics.ErrJointRemoved) {
			h.logger.Warn("destroy joint", zap.Stringer("joint", j), zap.Error(err))
		}
	}
	h.handJoint, h.heldJoint = nil, nil
}

func (h *Hand) destroyGrabPoint() {
	gp := h.grabPoint
	h.grabPoint = nil
	switch {
	case gp == nil:
	case gp.Scene != nil:
		gp.Scene.Destroy(gp)
	case gp.Parent != nil:
		gp.Parent.RemoveChild(gp)
	}
}

// SetHeldPose puts g in the hand with a saved pose, skipping the approach.
// Anything already held is force-released first.
func (h *Hand) SetHeldPose(data pose.Data, g *grabbable.Grabbable) error {
	if h.body == nil {
		return ErrMissingBody
	}
	if h.world == nil {
		return ErrNotBound
	}
	if !h.CanGrab(g) || g.Body == nil {
		name := "<nil>"
		if g != nil {
			name = g.GetGameObject().Name
		}
		return fmt.Errorf("%s: %w", name, ErrCannotGrab)
	}
	if h.holding != nil || h.approach != nil {
		h.ForceReleaseGrab()
	}
	h.tries = nil
	h.CancelPose()
	h.clearHighlight()

	obj := g.GetGameObject()
	h.grabID = uuid.New()
	h.holding = g
	h.OnBeforeGrabbed.Invoke(h.event(g))
	g.BeforeGrab(h)
	g.SwapLayer(obj.Layer, h.layers().Grabbing)

	g.Body.SetPosition(h.body.Position())
	data.Apply(h, obj)

	if err := h.createJoints(g); err != nil {
		h.BreakGrabConnection(false)
		g.CancelGrab(h)
		return err
	}
	h.grabPoint = newGrabPoint(obj, h.body.Position(), h.body.Rotation())

	h.OnGrabbed.Invoke(h.event(g))
	g.Grab(h)
	if target, rot, ok := h.followPose(); ok {
		h.SetHandLocation(target, rot)
	}
	h.grabLocked = true
	l := h.layers()
	h.GetGameObject().SwapLayerRecursive(l.Hand, l.HandHolding)
	h.logger.Info("held pose set", zap.Stringer("grab", h.grabID), zap.String("object", obj.Name))
	return nil
}
