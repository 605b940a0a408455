package omath

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ToAxisAngle returns the rotation axis and angle in radians of q, taking
// the shortest arc so the angle is in [0, π].
func ToAxisAngle(q rl.Quaternion) (rl.Vector3, float32) {
	q = rl.QuaternionNormalize(q)
	if q.W < 0 {
		q = rl.Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
	}
	w := Clamp(q.W, -1, 1)
	angle := 2 * math32.Acos(w)
	s := math32.Sqrt(1 - w*w)
	if s < 1e-6 {
		return rl.Vector3{X: 1}, 0
	}
	return rl.Vector3{X: q.X / s, Y: q.Y / s, Z: q.Z / s}, angle
}

// RotationVector is axis*angle of q.
func RotationVector(q rl.Quaternion) rl.Vector3 {
	axis, angle := ToAxisAngle(q)
	return rl.Vector3Scale(axis, angle)
}

// Angle returns the angle in radians between two rotations.
func Angle(a, b rl.Quaternion) float32 {
	a, b = rl.QuaternionNormalize(a), rl.QuaternionNormalize(b)
	d := absf(a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W)
	if d >= 1 {
		return 0
	}
	return 2 * math32.Acos(d)
}

// RotateTowards rotates from toward to by at most maxRadians.
func RotateTowards(from, to rl.Quaternion, maxRadians float32) rl.Quaternion {
	angle := Angle(from, to)
	if angle == 0 || angle <= maxRadians {
		return rl.QuaternionNormalize(to)
	}
	return rl.QuaternionSlerp(from, to, maxRadians/angle)
}

// FromTo returns the shortest rotation taking direction from onto to.
func FromTo(from, to rl.Vector3) rl.Quaternion {
	if rl.Vector3Length(from) < 1e-9 || rl.Vector3Length(to) < 1e-9 {
		return rl.QuaternionIdentity()
	}
	return rl.QuaternionFromVector3ToVector3(rl.Vector3Normalize(from), rl.Vector3Normalize(to))
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
