package physics

import (
	"fmt"
	"math"
	"slices"

	"autohand/internal/components"
	"autohand/internal/engine"
	"autohand/internal/omath"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"
)

// Unbreakable disables a joint break limit.
var Unbreakable = float32(math.Inf(1))

type JointConfig struct {
	BreakForce         float32
	BreakTorque        float32
	MassScale          float32
	ConnectedMassScale float32
	EnableCollision    bool
}

// FixedJoint locks the pose of Connected relative to Owner as it was when
// the joint was created.
type FixedJoint struct {
	Owner     *components.Rigidbody
	Connected *components.Rigidbody
	Config    JointConfig

	localAnchor rl.Vector3
	relRotation rl.Quaternion

	destroyed bool
	broken    bool

	linearImpulse  rl.Vector3
	angularImpulse rl.Vector3
	lastForce      float32
	lastTorque     float32
}

func (j *FixedJoint) Destroyed() bool { return j == nil || j.destroyed }
func (j *FixedJoint) Broken() bool    { return j != nil && j.broken }

// CurrentForce is the corrective force applied in the last step.
func (j *FixedJoint) CurrentForce() float32 { return j.lastForce }

func (j *FixedJoint) CurrentTorque() float32 { return j.lastTorque }

// CreateFixedJoint connects two bodies at their current relative pose.
func (w *World) CreateFixedJoint(owner, connected *components.Rigidbody, cfg JointConfig) (*FixedJoint, error) {
	if owner == nil || connected == nil {
		return nil, ErrNoBody
	}
	if owner == connected {
		return nil, ErrSameBody
	}
	if cfg.MassScale <= 0 {
		cfg.MassScale = 1
	}
	if cfg.ConnectedMassScale <= 0 {
		cfg.ConnectedMassScale = 1
	}
	if cfg.BreakForce <= 0 {
		cfg.BreakForce = Unbreakable
	}
	if cfg.BreakTorque <= 0 {
		cfg.BreakTorque = Unbreakable
	}
	qA := owner.Rotation()
	inv := rl.QuaternionInvert(qA)
	j := &FixedJoint{
		Owner:       owner,
		Connected:   connected,
		Config:      cfg,
		localAnchor: rl.Vector3RotateByQuaternion(rl.Vector3Subtract(connected.Position(), owner.Position()), inv),
		relRotation: rl.QuaternionNormalize(rl.QuaternionMultiply(inv, connected.Rotation())),
	}
	w.joints = append(w.joints, j)
	owner.WakeUp()
	connected.WakeUp()
	return j, nil
}

// DestroyJoint removes j. A joint destroyed during a step is never
// evaluated again in that step.
func (w *World) DestroyJoint(j *FixedJoint) error {
	if j.Destroyed() {
		return ErrJointRemoved
	}
	j.destroyed = true
	return nil
}

func (w *World) Joints() []*FixedJoint {
	w.compactJoints()
	return w.joints
}

func (w *World) compactJoints() {
	w.joints = slices.DeleteFunc(w.joints, (*FixedJoint).Destroyed)
}

// jointed reports whether a and b share a joint with collision disabled.
func (w *World) jointed(a, b *components.Rigidbody) bool {
	for _, j := range w.joints {
		if j.destroyed || j.Config.EnableCollision {
			continue
		}
		if (j.Owner == a && j.Connected == b) || (j.Owner == b && j.Connected == a) {
			return true
		}
	}
	return false
}

func (w *World) solveJoints(dt float32) {
	w.compactJoints()
	live := make([]*FixedJoint, 0, len(w.joints))
	for _, j := range w.joints {
		if !w.bodyLive(j.Owner) || !w.bodyLive(j.Connected) {
			continue
		}
		j.linearImpulse, j.angularImpulse = rl.Vector3{}, rl.Vector3{}
		j.Owner.WakeUp()
		j.Connected.WakeUp()
		live = append(live, j)
	}
	if len(live) == 0 {
		return
	}

	for it := 0; it < w.SolverIterations; it++ {
		for _, j := range live {
			j.solve(dt)
		}
	}

	for _, j := range live {
		if j.destroyed {
			continue
		}
		j.lastForce = rl.Vector3Length(j.linearImpulse) / dt
		j.lastTorque = rl.Vector3Length(j.angularImpulse) / dt
		if j.lastForce <= j.Config.BreakForce && j.lastTorque <= j.Config.BreakTorque {
			continue
		}
		j.broken = true
		j.destroyed = true
		w.logger.Debug("joint broke",
			zap.String("owner", j.Owner.GetGameObject().Name),
			zap.String("connected", j.Connected.GetGameObject().Name),
			zap.Float32("force", j.lastForce),
			zap.Float32("torque", j.lastTorque))
		notifyJointBreak(j.Owner.GetGameObject(), j.Connected.GetGameObject(), j.lastForce)
	}
	w.compactJoints()
}

func notifyJointBreak(owner, connected *engine.GameObject, force float32) {
	for _, c := range owner.Components() {
		if h, ok := c.(engine.JointBreakHandler); ok {
			h.OnJointBreak(connected, force)
		}
	}
}

// solve runs one velocity iteration: Connected is pushed toward its
// locked pose with an impulse split by inverse mass.
func (j *FixedJoint) solve(dt float32) {
	a, b := j.Owner, j.Connected
	wA := a.InverseMass() / j.Config.MassScale
	wB := b.InverseMass() / j.Config.ConnectedMassScale

	pA, qA := a.Position(), a.Rotation()
	rA := rl.Vector3RotateByQuaternion(j.localAnchor, qA)
	target := rl.Vector3Add(pA, rA)
	posErr := rl.Vector3Subtract(target, b.Position())

	if wA+wB > 0 {
		pointVel := rl.Vector3Add(a.Velocity, rl.Vector3CrossProduct(a.AngularVelocity, rA))
		rel := rl.Vector3Subtract(b.Velocity, pointVel)
		desired := rl.Vector3Subtract(rl.Vector3Scale(posErr, jointBias/dt), rel)
		impulse := rl.Vector3Scale(desired, 1/(wA+wB))
		a.Velocity = rl.Vector3Subtract(a.Velocity, rl.Vector3Scale(impulse, wA))
		b.Velocity = rl.Vector3Add(b.Velocity, rl.Vector3Scale(impulse, wB))
		j.linearImpulse = rl.Vector3Add(j.linearImpulse, impulse)
	}

	invA := a.WorldInverseInertia().Mul(1 / j.Config.MassScale)
	invB := b.WorldInverseInertia().Mul(1 / j.Config.ConnectedMassScale)
	k := invA.Add(invB)
	if absf(k.Det()) < 1e-12 {
		return
	}
	targetRot := rl.QuaternionMultiply(qA, j.relRotation)
	rotErr := omath.RotationVector(rl.QuaternionMultiply(targetRot, rl.QuaternionInvert(b.Rotation())))
	relW := rl.Vector3Subtract(b.AngularVelocity, a.AngularVelocity)
	desiredW := rl.Vector3Subtract(rl.Vector3Scale(rotErr, jointBias/dt), relW)
	l := k.Inv().Mul3x1(components.ToVec3(desiredW))
	a.AngularVelocity = rl.Vector3Subtract(a.AngularVelocity, components.FromVec3(invA.Mul3x1(l)))
	b.AngularVelocity = rl.Vector3Add(b.AngularVelocity, components.FromVec3(invB.Mul3x1(l)))
	j.angularImpulse = rl.Vector3Add(j.angularImpulse, components.FromVec3(l))
}

func (j *FixedJoint) String() string {
	return fmt.Sprintf("FixedJoint(%s->%s)", j.Owner.GetGameObject().Name, j.Connected.GetGameObject().Name)
}
