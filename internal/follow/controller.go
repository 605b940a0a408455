package follow

import (
	"errors"
	"fmt"

	"autohand/internal/components"
	"autohand/internal/omath"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrInvalidSettings = errors.New("invalid follow settings")
	ErrNoBody          = errors.New("follower has no rigidbody")
)

const (
	// maxCorrections is how many corrective teleports a holding body gets
	// before the hold is dropped. Each teleport costs two and one is paid
	// back per tick.
	maxCorrections = 3
	correctionCost = 2

	// collidingVelocityLimit caps the follow speed while touching something
	// and still far from the target.
	collidingVelocityLimit = 2
	collidingDistance      = 0.1

	rotationKp = 90
	rotationKd = 60
	// maxLerpDegrees bounds the per-tick rotation step before the PD.
	maxLerpDegrees = 2
)

type Settings struct {
	PositionStrength  float32 `yaml:"followPositionStrength"`
	RotationStrength  float32 `yaml:"followRotationStrength"`
	MaxVelocity       float32 `yaml:"maxVelocity"`
	MaxFollowDistance float32 `yaml:"maxFollowDistance"`
}

func DefaultSettings() Settings {
	return Settings{
		PositionStrength:  80,
		RotationStrength:  100,
		MaxVelocity:       4,
		MaxFollowDistance: 0.75,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.PositionStrength < 0:
		return fmt.Errorf("%w: negative position strength", ErrInvalidSettings)
	case s.RotationStrength < 0:
		return fmt.Errorf("%w: negative rotation strength", ErrInvalidSettings)
	case s.MaxVelocity <= 0:
		return fmt.Errorf("%w: max velocity must be positive", ErrInvalidSettings)
	case s.MaxFollowDistance <= 0:
		return fmt.Errorf("%w: max follow distance must be positive", ErrInvalidSettings)
	}
	return nil
}

// Outcome tells the caller what MoveTo did beyond setting a velocity.
type Outcome int

const (
	Followed Outcome = iota
	// Snapped means the empty body was placed on the target.
	Snapped
	// Teleport asks the caller to move the body and what it holds onto
	// the target.
	Teleport
	// Release asks the caller to drop what it holds.
	Release
)

func (o Outcome) String() string {
	switch o {
	case Snapped:
		return "snapped"
	case Teleport:
		return "teleport"
	case Release:
		return "release"
	}
	return "followed"
}

// Hold describes what the followed body is carrying this tick.
type Hold struct {
	Holding           bool
	ReleaseOnTeleport bool
	Colliding         bool
}

// Controller drives a rigidbody toward a moving pose with velocity and
// torque. Hands and the head follower share it.
type Controller struct {
	Settings
	Body *components.Rigidbody

	// StartDrag is the body's drag when bound; drag rises up to twice this
	// near the target.
	StartDrag float32

	// RotationOffset is applied on top of the target rotation (look assist).
	RotationOffset rl.Quaternion

	corrections int
}

func NewController(body *components.Rigidbody, settings Settings) *Controller {
	return &Controller{
		Settings:       settings,
		Body:           body,
		StartDrag:      body.Drag,
		RotationOffset: rl.QuaternionIdentity(),
	}
}

// Corrections is the current corrective teleport budget in use.
func (c *Controller) Corrections() int {
	return c.corrections
}

// MoveTo sets the body velocity toward target. dt is the fixed step.
func (c *Controller) MoveTo(target rl.Vector3, dt float32, hold Hold) Outcome {
	if c.PositionStrength <= 0 {
		return Followed
	}
	pos := c.Body.Position()
	distance := rl.Vector3Distance(target, pos)

	if minDist := dt; distance <= minDist && minDist > 0 {
		c.Body.Drag = omath.Lerp(c.StartDrag, c.StartDrag*2, 1-distance/minDist)
	} else {
		c.Body.Drag = c.StartDrag
	}

	outcome := Followed
	if distance > c.MaxFollowDistance {
		switch {
		case hold.Holding && !hold.ReleaseOnTeleport && c.corrections < maxCorrections:
			c.corrections += correctionCost
			outcome = Teleport
		case hold.Holding:
			outcome = Release
		default:
			c.Body.SetPosition(target)
			outcome = Snapped
		}
	}
	if c.corrections > 0 {
		c.corrections--
	}

	limit := c.MaxVelocity
	if distance > collidingDistance && hold.Colliding {
		limit = collidingVelocityLimit
	}

	var vel rl.Vector3
	if distance > 0 {
		dir := rl.Vector3Scale(rl.Vector3Subtract(target, pos), 1/distance)
		vel = omath.ClampAxes(rl.Vector3Scale(dir, c.PositionStrength*distance), limit)
	}
	c.Body.Velocity = vel
	c.Body.WakeUp()
	return outcome
}

// TorqueTo adds a PD torque turning the body toward RotationOffset*target.
// The torque is scaled by the inertia tensor in its principal frame so the
// response does not depend on the body's shape.
func (c *Controller) TorqueTo(target rl.Quaternion) {
	body := c.Body
	rot := body.Rotation()
	toRot := rl.QuaternionMultiply(c.RotationOffset, target)
	if rot.X*toRot.X+rot.Y*toRot.Y+rot.Z*toRot.Z+rot.W*toRot.W < 0 {
		toRot = rl.Quaternion{X: -toRot.X, Y: -toRot.Y, Z: -toRot.Z, W: -toRot.W}
	}

	angleDeg := omath.Angle(rot, toRot) * rl.Rad2deg
	desired := rl.QuaternionNlerp(rot, toRot, omath.Clamp(angleDeg, 0, maxLerpDegrees)/4)

	axis, angle := omath.ToAxisAngle(rl.QuaternionMultiply(desired, rl.QuaternionInvert(rot)))
	kp := rotationKp * c.RotationStrength
	pidv := rl.Vector3Subtract(
		rl.Vector3Scale(axis, kp*angle),
		rl.Vector3Scale(body.AngularVelocity, rotationKd),
	)

	basis := components.QuatToMat3(body.InertiaToWorld())
	local := basis.Transpose().Mul3x1(components.ToVec3(pidv))
	inertia := body.InertiaDiagonal()
	scaled := mgl32.Vec3{local[0] * inertia.X, local[1] * inertia.Y, local[2] * inertia.Z}
	torque := components.FromVec3(basis.Mul3x1(scaled))
	if math32.IsNaN(torque.X) || math32.IsNaN(torque.Y) || math32.IsNaN(torque.Z) {
		return
	}
	body.AddTorque(torque, components.Force)
}
