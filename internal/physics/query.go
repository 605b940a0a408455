package physics

import (
	"autohand/internal/engine"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

var _ engine.WorldAccess = (*World)(nil)

func (w *World) queryable(e *colliderEntry, mask engine.LayerMask) bool {
	return e.live() && !e.col.Trigger() && mask.Contains(e.object().Layer)
}

// Raycast returns the closest non-trigger hit along the ray.
func (w *World) Raycast(origin, direction rl.Vector3, maxDistance float32, mask engine.LayerMask) (engine.Hit, bool) {
	return w.SphereCast(origin, 0, direction, maxDistance, mask)
}

// SphereCast sweeps a sphere along direction and returns the closest hit.
// Colliders already overlapping the sphere at origin are ignored.
func (w *World) SphereCast(origin rl.Vector3, radius float32, direction rl.Vector3, maxDistance float32, mask engine.LayerMask) (engine.Hit, bool) {
	if rl.Vector3Length(direction) < 1e-9 {
		return engine.Hit{}, false
	}
	direction = rl.Vector3Normalize(direction)

	var best engine.Hit
	best.Distance = maxDistance
	found := false
	swept := NewAABBFromSphere(origin, 0).Sweep(rl.Vector3Scale(direction, maxDistance))
	for _, e := range w.colliders {
		if !w.queryable(e, mask) || !boundsOf(e.col).Expand(radius).Intersects(swept) {
			continue
		}
		hit, ok := castCollider(e, origin, radius, direction, best.Distance)
		if ok && (!found || hit.Distance < best.Distance) {
			best = hit
			best.GameObject = e.object()
			found = true
		}
	}
	return best, found
}

func castCollider(e *colliderEntry, origin rl.Vector3, radius float32, direction rl.Vector3, maxDistance float32) (engine.Hit, bool) {
	isSphere, center, r, box := shapeOf(e.col)
	if isSphere {
		t, ok := raySphere(origin, direction, center, r+radius, maxDistance)
		if !ok {
			return engine.Hit{}, false
		}
		at := rl.Vector3Add(origin, rl.Vector3Scale(direction, t))
		normal := rl.Vector3Normalize(rl.Vector3Subtract(at, center))
		return engine.Hit{
			Point:    rl.Vector3Add(center, rl.Vector3Scale(normal, r)),
			Normal:   normal,
			Distance: t,
		}, true
	}

	grown := box.Expanded(radius)
	if grown.Contains(origin) {
		return engine.Hit{}, false
	}
	t, normal, ok := grown.Raycast(origin, direction, maxDistance)
	if !ok {
		return engine.Hit{}, false
	}
	at := rl.Vector3Add(origin, rl.Vector3Scale(direction, t))
	point := ClosestPointOnOBB(box, at)
	if radius > 0 && rl.Vector3Distance(point, at) > radius*1.001 {
		// Grazed a corner of the grown box; advance to the true contact.
		t2, ok2 := sweepToBox(box, origin, direction, radius, t, maxDistance)
		if !ok2 {
			return engine.Hit{}, false
		}
		t = t2
		at = rl.Vector3Add(origin, rl.Vector3Scale(direction, t))
		point = ClosestPointOnOBB(box, at)
		normal = rl.Vector3Normalize(rl.Vector3Subtract(at, point))
	}
	return engine.Hit{Point: point, Normal: normal, Distance: t}, true
}

// sweepToBox marches from t0 until the sphere touches the box.
func sweepToBox(box OBB, origin, direction rl.Vector3, radius, t0, maxDistance float32) (float32, bool) {
	const steps = 16
	step := radius / 4
	if step <= 0 {
		return 0, false
	}
	for t := t0; t <= maxDistance; t += step {
		at := rl.Vector3Add(origin, rl.Vector3Scale(direction, t))
		if rl.Vector3Distance(ClosestPointOnOBB(box, at), at) <= radius {
			lo, hi := t-step, t
			for i := 0; i < steps; i++ {
				mid := (lo + hi) / 2
				p := rl.Vector3Add(origin, rl.Vector3Scale(direction, mid))
				if rl.Vector3Distance(ClosestPointOnOBB(box, p), p) <= radius {
					hi = mid
				} else {
					lo = mid
				}
			}
			return hi, true
		}
		if t > t0+4*radius {
			break
		}
	}
	return 0, false
}

// raySphere returns the entry distance of a unit ray into a sphere. Rays
// starting inside report no hit.
func raySphere(origin, direction, center rl.Vector3, radius, maxDistance float32) (float32, bool) {
	oc := rl.Vector3Subtract(origin, center)
	c := rl.Vector3DotProduct(oc, oc) - radius*radius
	if c <= 0 {
		return 0, false
	}
	b := rl.Vector3DotProduct(oc, direction)
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math32.Sqrt(disc)
	if t < 0 || t > maxDistance {
		return 0, false
	}
	return t, true
}

// OverlapSphere returns the objects whose solid colliders touch the sphere.
func (w *World) OverlapSphere(center rl.Vector3, radius float32, mask engine.LayerMask) []*engine.GameObject {
	var out []*engine.GameObject
	seen := make(map[*engine.GameObject]bool)
	for _, e := range w.colliders {
		if !w.queryable(e, mask) {
			continue
		}
		isSphere, c, r, box := shapeOf(e.col)
		touching := false
		if isSphere {
			touching = rl.Vector3Distance(center, c) <= r+radius
		} else {
			touching = box.IntersectsSphere(center, radius)
		}
		if touching && !seen[e.object()] {
			seen[e.object()] = true
			out = append(out, e.object())
		}
	}
	return out
}
