package omath

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
)

func TestToAxisAngleRoundTrip(t *testing.T) {
	q := rl.QuaternionFromAxisAngle(rl.Vector3{Y: 1}, 1.2)
	axis, angle := ToAxisAngle(q)

	assert.InDelta(t, 1.2, angle, 1e-4)
	assert.InDelta(t, 1, axis.Y, 1e-4)

	v := RotationVector(q)
	back := rl.QuaternionFromAxisAngle(rl.Vector3Normalize(v), rl.Vector3Length(v))
	assert.InDelta(t, 0, Angle(q, back), 1e-3)
}

func TestToAxisAngleTakesShortestArc(t *testing.T) {
	q := rl.QuaternionFromAxisAngle(rl.Vector3{Z: 1}, 1.5*rl.Pi)
	_, angle := ToAxisAngle(q)

	assert.InDelta(t, 0.5*rl.Pi, angle, 1e-3)
}

func TestRotateTowardsLimitsStep(t *testing.T) {
	from := rl.QuaternionIdentity()
	to := rl.QuaternionFromAxisAngle(rl.Vector3{X: 1}, 1)

	mid := RotateTowards(from, to, 0.25)
	assert.InDelta(t, 0.25, Angle(from, mid), 1e-3)
	assert.InDelta(t, 0, Angle(to, RotateTowards(from, to, 2)), 1e-4)
}

func TestClampAxesAndMoveTowards(t *testing.T) {
	v := ClampAxes(rl.Vector3{X: 10, Y: -10, Z: 1}, 4)
	assert.Equal(t, rl.Vector3{X: 4, Y: -4, Z: 1}, v)

	p := MoveTowards(rl.Vector3{}, rl.Vector3{X: 10}, 2)
	assert.InDelta(t, 2, p.X, 1e-6)
	assert.Equal(t, rl.Vector3{X: 1}, MoveTowards(rl.Vector3{}, rl.Vector3{X: 1}, 2))
}
