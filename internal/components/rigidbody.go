package components

import (
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

func init() {
	engine.RegisterComponent("Rigidbody", func(props map[string]any) (engine.Component, error) {
		rb := NewRigidbody()
		def := rigidbodyDef{
			Mass:        rb.Mass,
			Drag:        rb.Drag,
			AngularDrag: rb.AngularDrag,
			UseGravity:  rb.UseGravity,
		}
		if err := engine.DecodeProps(props, &def); err != nil {
			return nil, err
		}
		rb.Mass = def.Mass
		rb.Drag = def.Drag
		rb.AngularDrag = def.AngularDrag
		rb.UseGravity = def.UseGravity
		rb.IsKinematic = def.IsKinematic
		return rb, nil
	})
}

type rigidbodyDef struct {
	Mass        float32 `yaml:"mass"`
	Drag        float32 `yaml:"drag"`
	AngularDrag float32 `yaml:"angularDrag"`
	UseGravity  bool    `yaml:"useGravity"`
	IsKinematic bool    `yaml:"isKinematic"`
}

// Sleep thresholds
const (
	SleepVelocityThreshold = 0.05 // m/s
	SleepAngularThreshold  = 0.05 // rad/s
	SleepTimeThreshold     = 0.5  // seconds of low velocity before sleeping
)

type ForceMode int

const (
	// Force is continuous, scaled by mass and the step.
	Force ForceMode = iota
	// Acceleration is continuous and ignores mass.
	Acceleration
	// Impulse changes velocity immediately, scaled by mass.
	Impulse
	// VelocityChange changes velocity immediately and ignores mass.
	VelocityChange
)

type Rigidbody struct {
	engine.BaseComponent
	Velocity        rl.Vector3
	AngularVelocity rl.Vector3 // radians per second, world space
	Mass            float32
	Drag            float32
	AngularDrag     float32
	UseGravity      bool
	IsKinematic     bool

	// Diagonal inertia in the frame given by InertiaTensorRotation relative
	// to the body. Zero means derive it from the attached colliders.
	InertiaTensor         rl.Vector3
	InertiaTensorRotation rl.Quaternion

	MaxAngularVelocity       float32
	MaxDepenetrationVelocity float32

	IsSleeping bool
	CanSleep   bool
	sleepTimer float32

	force  rl.Vector3
	torque rl.Vector3
}

func NewRigidbody() *Rigidbody {
	return &Rigidbody{
		Mass:                     1.0,
		AngularDrag:              0.05,
		UseGravity:               true,
		InertiaTensorRotation:    rl.QuaternionIdentity(),
		MaxAngularVelocity:       50,
		MaxDepenetrationVelocity: 10,
		CanSleep:                 true,
	}
}

func (r *Rigidbody) Position() rl.Vector3 {
	return r.GetGameObject().WorldPosition()
}

func (r *Rigidbody) SetPosition(p rl.Vector3) {
	r.GetGameObject().SetWorldPosition(p)
}

func (r *Rigidbody) Rotation() rl.Quaternion {
	return r.GetGameObject().WorldRotation()
}

func (r *Rigidbody) SetRotation(q rl.Quaternion) {
	r.GetGameObject().SetWorldRotation(q)
}

// InverseMass is zero for kinematic bodies.
func (r *Rigidbody) InverseMass() float32 {
	if r.IsKinematic || r.Mass <= 0 {
		return 0
	}
	return 1 / r.Mass
}

func (r *Rigidbody) AddForce(f rl.Vector3, mode ForceMode) {
	if r.IsKinematic {
		return
	}
	switch mode {
	case Force:
		r.force = rl.Vector3Add(r.force, f)
	case Acceleration:
		r.force = rl.Vector3Add(r.force, rl.Vector3Scale(f, r.Mass))
	case Impulse:
		r.Velocity = rl.Vector3Add(r.Velocity, rl.Vector3Scale(f, r.InverseMass()))
	case VelocityChange:
		r.Velocity = rl.Vector3Add(r.Velocity, f)
	}
	r.WakeUp()
}

// AddTorque takes a world-space torque.
func (r *Rigidbody) AddTorque(t rl.Vector3, mode ForceMode) {
	if r.IsKinematic {
		return
	}
	switch mode {
	case Force:
		r.torque = rl.Vector3Add(r.torque, t)
	case Acceleration:
		r.torque = rl.Vector3Add(r.torque, r.ApplyInertia(t))
	case Impulse:
		r.AngularVelocity = rl.Vector3Add(r.AngularVelocity, r.ApplyInverseInertia(t))
	case VelocityChange:
		r.AngularVelocity = rl.Vector3Add(r.AngularVelocity, t)
	}
	r.WakeUp()
}

// TakeAccumulated returns and clears the force and torque added since the
// last step.
func (r *Rigidbody) TakeAccumulated() (force, torque rl.Vector3) {
	force, torque = r.force, r.torque
	r.force, r.torque = rl.Vector3{}, rl.Vector3{}
	return force, torque
}

func (r *Rigidbody) WakeUp() {
	r.IsSleeping = false
	r.sleepTimer = 0
}

func (r *Rigidbody) Sleep() {
	r.IsSleeping = true
	r.Velocity = rl.Vector3{}
	r.AngularVelocity = rl.Vector3{}
}

// TrySleep checks if the rigidbody should go to sleep based on velocity
func (r *Rigidbody) TrySleep(deltaTime float32) {
	if !r.CanSleep || r.IsSleeping || r.IsKinematic {
		return
	}
	if rl.Vector3Length(r.Velocity) < SleepVelocityThreshold &&
		rl.Vector3Length(r.AngularVelocity) < SleepAngularThreshold {
		r.sleepTimer += deltaTime
		if r.sleepTimer >= SleepTimeThreshold {
			r.Sleep()
		}
		return
	}
	r.sleepTimer = 0
}

// InertiaDiagonal returns the principal moments, deriving them from the
// first collider on the body when none were set.
func (r *Rigidbody) InertiaDiagonal() rl.Vector3 {
	if r.InertiaTensor != (rl.Vector3{}) {
		return r.InertiaTensor
	}
	g := r.GetGameObject()
	m := r.Mass
	if s := engine.GetComponent[*SphereCollider](g); s != nil {
		i := 0.4 * m * s.Radius * s.Radius
		return rl.Vector3{X: i, Y: i, Z: i}
	}
	if b := engine.GetComponent[*BoxCollider](g); b != nil {
		x, y, z := b.Size.X, b.Size.Y, b.Size.Z
		return rl.Vector3{
			X: m / 12 * (y*y + z*z),
			Y: m / 12 * (x*x + z*z),
			Z: m / 12 * (x*x + y*y),
		}
	}
	i := 0.4 * m * 0.05 * 0.05
	return rl.Vector3{X: i, Y: i, Z: i}
}

// InertiaToWorld is the rotation from the inertia frame to world space.
func (r *Rigidbody) InertiaToWorld() rl.Quaternion {
	return rl.QuaternionMultiply(r.Rotation(), r.InertiaTensorRotation)
}

// WorldInverseInertia returns R * diag(1/I) * R^T.
func (r *Rigidbody) WorldInverseInertia() mgl32.Mat3 {
	if r.IsKinematic {
		return mgl32.Mat3{}
	}
	d := r.InertiaDiagonal()
	inv := mgl32.Diag3(mgl32.Vec3{recip(d.X), recip(d.Y), recip(d.Z)})
	rot := QuatToMat3(r.InertiaToWorld())
	return rot.Mul3(inv).Mul3(rot.Transpose())
}

// ApplyInverseInertia maps a world-space torque impulse to an angular
// velocity change.
func (r *Rigidbody) ApplyInverseInertia(t rl.Vector3) rl.Vector3 {
	return FromVec3(r.WorldInverseInertia().Mul3x1(ToVec3(t)))
}

// ApplyInertia maps a world-space angular acceleration to a torque.
func (r *Rigidbody) ApplyInertia(w rl.Vector3) rl.Vector3 {
	d := r.InertiaDiagonal()
	rot := QuatToMat3(r.InertiaToWorld())
	inertia := rot.Mul3(mgl32.Diag3(mgl32.Vec3{d.X, d.Y, d.Z})).Mul3(rot.Transpose())
	return FromVec3(inertia.Mul3x1(ToVec3(w)))
}

func recip(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return 1 / v
}

func ToVec3(v rl.Vector3) mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}

func FromVec3(v mgl32.Vec3) rl.Vector3 {
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}
}

// QuatToMat3 converts a raylib quaternion to a column-major rotation matrix.
func QuatToMat3(q rl.Quaternion) mgl32.Mat3 {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}}.Normalize().Mat4().Mat3()
}
