package physics

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// OBB represents an Oriented Bounding Box
type OBB struct {
	Center   rl.Vector3    // World-space center
	HalfSize rl.Vector3    // Half-extents along local axes
	Axes     [3]rl.Vector3 // Local X, Y, Z axes (rotated)
}

// NewOBB creates an OBB from center, half extents and a rotation.
func NewOBB(center, halfSize rl.Vector3, rotation rl.Quaternion) OBB {
	return OBB{
		Center:   center,
		HalfSize: halfSize,
		Axes: [3]rl.Vector3{
			rl.Vector3RotateByQuaternion(rl.Vector3{X: 1}, rotation),
			rl.Vector3RotateByQuaternion(rl.Vector3{Y: 1}, rotation),
			rl.Vector3RotateByQuaternion(rl.Vector3{Z: 1}, rotation),
		},
	}
}

func (o OBB) half(i int) float32 {
	switch i {
	case 0:
		return o.HalfSize.X
	case 1:
		return o.HalfSize.Y
	}
	return o.HalfSize.Z
}

// toLocal expresses a world point in the box frame.
func (o OBB) toLocal(p rl.Vector3) rl.Vector3 {
	d := rl.Vector3Subtract(p, o.Center)
	return rl.Vector3{
		X: rl.Vector3DotProduct(d, o.Axes[0]),
		Y: rl.Vector3DotProduct(d, o.Axes[1]),
		Z: rl.Vector3DotProduct(d, o.Axes[2]),
	}
}

func (o OBB) toWorld(l rl.Vector3) rl.Vector3 {
	p := o.Center
	p = rl.Vector3Add(p, rl.Vector3Scale(o.Axes[0], l.X))
	p = rl.Vector3Add(p, rl.Vector3Scale(o.Axes[1], l.Y))
	p = rl.Vector3Add(p, rl.Vector3Scale(o.Axes[2], l.Z))
	return p
}

// Expanded grows every half extent by r.
func (o OBB) Expanded(r float32) OBB {
	o.HalfSize = rl.Vector3{X: o.HalfSize.X + r, Y: o.HalfSize.Y + r, Z: o.HalfSize.Z + r}
	return o
}

func (o OBB) Contains(p rl.Vector3) bool {
	l := o.toLocal(p)
	return absf(l.X) <= o.HalfSize.X && absf(l.Y) <= o.HalfSize.Y && absf(l.Z) <= o.HalfSize.Z
}

// IntersectsOBB tests if two OBBs intersect using the Separating Axis Theorem
func (a OBB) IntersectsOBB(b OBB) bool {
	t := rl.Vector3Subtract(b.Center, a.Center)

	for i := 0; i < 3; i++ {
		if !overlapOnAxis(a, b, a.Axes[i], t) {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		if !overlapOnAxis(a, b, b.Axes[i], t) {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			axis := rl.Vector3CrossProduct(a.Axes[i], b.Axes[j])
			// Parallel edges give no axis.
			if rl.Vector3Length(axis) > 0.0001 {
				if !overlapOnAxis(a, b, rl.Vector3Normalize(axis), t) {
					return false
				}
			}
		}
	}
	return true
}

func projectedRadius(o OBB, axis rl.Vector3) float32 {
	return o.HalfSize.X*absf(rl.Vector3DotProduct(o.Axes[0], axis)) +
		o.HalfSize.Y*absf(rl.Vector3DotProduct(o.Axes[1], axis)) +
		o.HalfSize.Z*absf(rl.Vector3DotProduct(o.Axes[2], axis))
}

// overlapOnAxis checks if two OBBs overlap when projected onto a given axis
func overlapOnAxis(a, b OBB, axis, t rl.Vector3) bool {
	return absf(rl.Vector3DotProduct(t, axis)) <= projectedRadius(a, axis)+projectedRadius(b, axis)
}

// ResolveOBB returns the minimum translation vector to push 'a' out of 'b'.
// Returns zero vector if no overlap.
func (a OBB) ResolveOBB(b OBB) rl.Vector3 {
	if !a.IntersectsOBB(b) {
		return rl.Vector3Zero()
	}

	t := rl.Vector3Subtract(b.Center, a.Center)
	minPenetration := float32(math.MaxFloat32)
	var mtv rl.Vector3

	testAxis := func(axis rl.Vector3) {
		if rl.Vector3Length(axis) < 0.0001 {
			return
		}
		axis = rl.Vector3Normalize(axis)
		dist := rl.Vector3DotProduct(t, axis)
		penetration := projectedRadius(a, axis) + projectedRadius(b, axis) - absf(dist)
		if penetration < minPenetration {
			minPenetration = penetration
			if dist < 0 {
				mtv = rl.Vector3Scale(axis, penetration)
			} else {
				mtv = rl.Vector3Scale(axis, -penetration)
			}
		}
	}

	for i := 0; i < 3; i++ {
		testAxis(a.Axes[i])
		testAxis(b.Axes[i])
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			testAxis(rl.Vector3CrossProduct(a.Axes[i], b.Axes[j]))
		}
	}
	return mtv
}

// IntersectsSphere tests if an OBB intersects with a sphere
func (o OBB) IntersectsSphere(center rl.Vector3, radius float32) bool {
	closest := ClosestPointOnOBB(o, center)
	return rl.Vector3DistanceSqr(closest, center) <= radius*radius
}

// ClosestPointOnOBB returns the closest point on or inside the OBB to point.
func ClosestPointOnOBB(o OBB, point rl.Vector3) rl.Vector3 {
	l := o.toLocal(point)
	return o.toWorld(rl.Vector3{
		X: clampf(l.X, -o.HalfSize.X, o.HalfSize.X),
		Y: clampf(l.Y, -o.HalfSize.Y, o.HalfSize.Y),
		Z: clampf(l.Z, -o.HalfSize.Z, o.HalfSize.Z),
	})
}

// Raycast intersects a ray with the box using the slab test in the box
// frame. A ray starting inside reports the exit point.
func (o OBB) Raycast(origin, direction rl.Vector3, maxDistance float32) (t float32, normal rl.Vector3, ok bool) {
	lo := o.toLocal(origin)
	ld := rl.Vector3{
		X: rl.Vector3DotProduct(direction, o.Axes[0]),
		Y: rl.Vector3DotProduct(direction, o.Axes[1]),
		Z: rl.Vector3DotProduct(direction, o.Axes[2]),
	}
	orig := [3]float32{lo.X, lo.Y, lo.Z}
	dir := [3]float32{ld.X, ld.Y, ld.Z}

	tmin, tmax := float32(-1e30), float32(1e30)
	enterAxis, enterSign := -1, float32(0)
	for i := 0; i < 3; i++ {
		h := o.half(i)
		if absf(dir[i]) < 1e-8 {
			if orig[i] < -h || orig[i] > h {
				return 0, rl.Vector3{}, false
			}
			continue
		}
		t1 := (-h - orig[i]) / dir[i]
		t2 := (h - orig[i]) / dir[i]
		sign := float32(-1)
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1
		}
		if t1 > tmin {
			tmin = t1
			enterAxis, enterSign = i, sign
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, rl.Vector3{}, false
		}
	}
	if tmax < 0 {
		return 0, rl.Vector3{}, false
	}
	t = tmin
	if t < 0 {
		t = tmax
		enterAxis = -1
	}
	if t > maxDistance {
		return 0, rl.Vector3{}, false
	}
	if enterAxis >= 0 {
		normal = rl.Vector3Scale(o.Axes[enterAxis], enterSign)
	} else {
		normal = rl.Vector3Negate(direction)
	}
	return t, normal, true
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clampf(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
