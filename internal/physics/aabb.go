package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// AABB is used as the broad-phase bound of a collider.
type AABB struct {
	Min rl.Vector3
	Max rl.Vector3
}

// NewAABBFromCenter creates an AABB from a center point and full size dimensions.
func NewAABBFromCenter(center, size rl.Vector3) AABB {
	half := rl.Vector3{X: size.X / 2, Y: size.Y / 2, Z: size.Z / 2}
	return AABB{
		Min: rl.Vector3Subtract(center, half),
		Max: rl.Vector3Add(center, half),
	}
}

// NewAABBFromSphere bounds a sphere of radius r.
func NewAABBFromSphere(center rl.Vector3, r float32) AABB {
	return NewAABBFromCenter(center, rl.Vector3{X: 2 * r, Y: 2 * r, Z: 2 * r})
}

func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Expand grows the box by r on every side.
func (a AABB) Expand(r float32) AABB {
	d := rl.Vector3{X: r, Y: r, Z: r}
	return AABB{Min: rl.Vector3Subtract(a.Min, d), Max: rl.Vector3Add(a.Max, d)}
}

// Sweep returns the bound of a moving the box from its place along d.
func (a AABB) Sweep(d rl.Vector3) AABB {
	moved := AABB{Min: rl.Vector3Add(a.Min, d), Max: rl.Vector3Add(a.Max, d)}
	return AABB{Min: rl.Vector3Min(a.Min, moved.Min), Max: rl.Vector3Max(a.Max, moved.Max)}
}
