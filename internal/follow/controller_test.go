package follow

import (
	"testing"

	"autohand/internal/components"
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = float32(1) / 90

func newBody(pos rl.Vector3) *components.Rigidbody {
	g := engine.NewGameObject("Hand")
	g.Transform.Position = pos
	rb := components.NewRigidbody()
	rb.Drag = 1
	g.AddComponent(rb)
	g.AddComponent(components.NewSphereCollider(0.05))
	return rb
}

func TestMoveToVelocityIsProportionalAndClamped(t *testing.T) {
	rb := newBody(rl.Vector3{})
	c := NewController(rb, DefaultSettings())

	out := c.MoveTo(rl.Vector3{X: 0.01}, dt, Hold{})
	assert.Equal(t, Followed, out)
	assert.InDelta(t, 0.8, rb.Velocity.X, 1e-4)

	c.MoveTo(rl.Vector3{X: 0.5, Y: -0.5}, dt, Hold{})
	assert.InDelta(t, 4, rb.Velocity.X, 1e-4)
	assert.InDelta(t, -4, rb.Velocity.Y, 1e-4)
}

func TestMoveToSlowsWhileColliding(t *testing.T) {
	rb := newBody(rl.Vector3{})
	c := NewController(rb, DefaultSettings())

	c.MoveTo(rl.Vector3{Z: 0.5}, dt, Hold{Colliding: true})
	assert.InDelta(t, 2, rb.Velocity.Z, 1e-4)

	c.MoveTo(rl.Vector3{Z: 0.05}, dt, Hold{Colliding: true})
	assert.InDelta(t, 4, rb.Velocity.Z, 1e-4)
}

func TestMoveToRaisesDragNearTarget(t *testing.T) {
	rb := newBody(rl.Vector3{})
	c := NewController(rb, DefaultSettings())

	c.MoveTo(rl.Vector3{}, dt, Hold{})
	assert.InDelta(t, 2, rb.Drag, 1e-5)

	c.MoveTo(rl.Vector3{X: dt / 2}, dt, Hold{})
	assert.InDelta(t, 1.5, rb.Drag, 1e-3)

	c.MoveTo(rl.Vector3{X: 1}, dt, Hold{})
	assert.Equal(t, float32(1), rb.Drag)
}

func TestMoveToSnapsWhenEmptyHanded(t *testing.T) {
	rb := newBody(rl.Vector3{})
	c := NewController(rb, DefaultSettings())

	out := c.MoveTo(rl.Vector3{Y: 2}, dt, Hold{})

	assert.Equal(t, Snapped, out)
	assert.Equal(t, rl.Vector3{Y: 2}, rb.Position())
}

func TestMoveToBoundsCorrectiveTeleports(t *testing.T) {
	rb := newBody(rl.Vector3{})
	c := NewController(rb, DefaultSettings())
	far := rl.Vector3{X: 5}
	hold := Hold{Holding: true}

	var outcomes []Outcome
	for i := 0; i < 4; i++ {
		outcomes = append(outcomes, c.MoveTo(far, dt, hold))
	}

	assert.Equal(t, []Outcome{Teleport, Teleport, Teleport, Release}, outcomes)
	assert.Equal(t, rl.Vector3{}, rb.Position(), "controller never moves a holding body itself")
}

func TestMoveToReleaseOnTeleport(t *testing.T) {
	rb := newBody(rl.Vector3{})
	c := NewController(rb, DefaultSettings())

	out := c.MoveTo(rl.Vector3{X: 5}, dt, Hold{Holding: true, ReleaseOnTeleport: true})

	assert.Equal(t, Release, out)
}

func TestCorrectionBudgetRecovers(t *testing.T) {
	rb := newBody(rl.Vector3{})
	c := NewController(rb, DefaultSettings())
	hold := Hold{Holding: true}

	require.Equal(t, Teleport, c.MoveTo(rl.Vector3{X: 5}, dt, hold))
	assert.Equal(t, 1, c.Corrections())
	c.MoveTo(rl.Vector3{}, dt, hold)
	assert.Equal(t, 0, c.Corrections())
	assert.Equal(t, Teleport, c.MoveTo(rl.Vector3{X: 5}, dt, hold))
}

func TestTorqueToTurnsTowardTarget(t *testing.T) {
	rb := newBody(rl.Vector3{})
	c := NewController(rb, DefaultSettings())

	c.TorqueTo(rl.QuaternionFromAxisAngle(rl.Vector3{Y: 1}, 30*rl.Deg2rad))
	_, torque := rb.TakeAccumulated()

	assert.Greater(t, torque.Y, float32(0))
	assert.InDelta(t, 0, torque.X, 1e-4)
	assert.InDelta(t, 0, torque.Z, 1e-4)
}

func TestTorqueToDampsSpin(t *testing.T) {
	rb := newBody(rl.Vector3{})
	rb.AngularVelocity = rl.Vector3{Z: 3}
	c := NewController(rb, DefaultSettings())

	c.TorqueTo(rl.QuaternionIdentity())
	_, torque := rb.TakeAccumulated()

	assert.Less(t, torque.Z, float32(0))
}

func TestTorqueToAppliesRotationOffset(t *testing.T) {
	rb := newBody(rl.Vector3{})
	c := NewController(rb, DefaultSettings())
	c.RotationOffset = rl.QuaternionFromAxisAngle(rl.Vector3{X: 1}, -20*rl.Deg2rad)

	c.TorqueTo(rl.QuaternionIdentity())
	_, torque := rb.TakeAccumulated()

	assert.Less(t, torque.X, float32(0))
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	bad := DefaultSettings()
	bad.MaxVelocity = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSettings)
}

func TestHeadFollowerChasesTarget(t *testing.T) {
	scene := engine.NewScene("Test")
	head := engine.NewGameObject("Headset")
	head.Transform.Position = rl.Vector3{Y: 1.7, Z: 0.2}
	scene.AddGameObject(head)

	follower := engine.NewGameObject("HeadFollower")
	follower.Transform.Position = rl.Vector3{Y: 1.6}
	follower.AddComponent(components.NewRigidbody())
	hf := &HeadFollower{Target: "Headset", Settings: DefaultSettings()}
	follower.AddComponent(hf)
	scene.AddGameObject(follower)
	scene.Start()

	scene.FixedUpdate(dt)
	rb := engine.GetComponent[*components.Rigidbody](follower)

	assert.Greater(t, rb.Velocity.Z, float32(0))
	assert.Greater(t, rb.Velocity.Y, float32(0))
	assert.False(t, rb.UseGravity)

	head.Transform.Position = rl.Vector3{Y: 1.7, Z: 5}
	scene.FixedUpdate(dt)
	assert.Equal(t, head.WorldPosition(), follower.WorldPosition())
}

func TestHeadFollowerFromProps(t *testing.T) {
	c, err := engine.CreateComponent("HeadFollower", map[string]any{
		"target":                 "Headset",
		"followPositionStrength": 40,
	})
	require.NoError(t, err)

	hf := c.(*HeadFollower)
	assert.Equal(t, "Headset", hf.Target)
	assert.Equal(t, float32(40), hf.Settings.PositionStrength)
	assert.Equal(t, float32(4), hf.Settings.MaxVelocity)
}
