package omath

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Clamp01 clamps v to [0, 1].
func Clamp01(v float32) float32 {
	return Clamp(v, 0, 1)
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp interpolates between a and b with t clamped to [0, 1].
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*Clamp01(t)
}

// ClampAxes clamps each component of v to [-limit, limit].
func ClampAxes(v rl.Vector3, limit float32) rl.Vector3 {
	return rl.Vector3{
		X: Clamp(v.X, -limit, limit),
		Y: Clamp(v.Y, -limit, limit),
		Z: Clamp(v.Z, -limit, limit),
	}
}

// MoveTowards moves current toward target by at most maxDelta.
func MoveTowards(current, target rl.Vector3, maxDelta float32) rl.Vector3 {
	d := rl.Vector3Subtract(target, current)
	dist := rl.Vector3Length(d)
	if dist <= maxDelta || dist == 0 {
		return target
	}
	return rl.Vector3Add(current, rl.Vector3Scale(d, maxDelta/dist))
}
