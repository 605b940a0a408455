// Package detect finds what a hand is reaching for by sweeping a cone of
// sphere casts out of the palm.
package detect

import (
	"autohand/internal/engine"
	"autohand/internal/omath"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	DefaultRayCount = 50
	// DefaultCastRadius is the radius of every cast sphere.
	DefaultCastRadius = 0.035

	// Later rays are pushed back slightly so the center of the cone wins
	// near ties.
	firstRayWeight = 1.0
	lastRayWeight  = 1.05
)

// Cone returns count unit directions in palm space. Ray 0 is the palm
// forward axis (+Z); later rays spiral outward with an angular offset of
// pow(i, 1.3+spread)/(0.8π) degrees.
func Cone(count int, spread float32) []rl.Vector3 {
	rays := make([]rl.Vector3, count)
	base := rl.Vector3{X: -1}
	for i := range rays {
		fi := float32(i)
		amp := math32.Pow(fi, 1.3+spread) / (math32.Pi * 0.8)
		roll := rl.QuaternionFromAxisAngle(rl.Vector3{Z: 1}, math32.Sin(fi)*amp*rl.Deg2rad)
		yaw := rl.QuaternionFromAxisAngle(rl.Vector3{Y: 1}, (math32.Cos(fi)*amp+90)*rl.Deg2rad)
		rays[i] = rl.Vector3Normalize(rl.Vector3RotateByQuaternion(base, rl.QuaternionMultiply(yaw, roll)))
	}
	return rays
}

// Candidate is anything a cast hit can resolve to.
type Candidate interface {
	comparable
	// GrabPriority scales the hit distance during selection. Smaller wins.
	GrabPriority() float32
}

// Resolver maps a hit object to its candidate, following child links.
type Resolver[T Candidate] func(g *engine.GameObject) (T, bool)

// Result is the outcome of one sweep. The zero Result means nothing was
// found: Direction is exactly zero only in that case.
type Result[T Candidate] struct {
	Hit    engine.Hit
	Target T
	// Direction is the mean of (hit point - origin) over every accepted
	// cast. Used for aim assist, not for selection.
	Direction rl.Vector3
	Hits      int
}

func (r Result[T]) Found() bool {
	return r.Hits > 0
}

type Detector[T Candidate] struct {
	World   engine.WorldAccess
	Resolve Resolver[T]
	Rays    []rl.Vector3
	Radius  float32

	hits    []engine.Hit
	targets []T
}

func New[T Candidate](world engine.WorldAccess, resolve Resolver[T], rayCount int, spread float32) *Detector[T] {
	if rayCount <= 0 {
		rayCount = DefaultRayCount
	}
	return &Detector[T]{
		World:   world,
		Resolve: resolve,
		Rays:    Cone(rayCount, spread),
		Radius:  DefaultCastRadius,
	}
}

// Closest sweeps every ray from origin, rotated by rotation, and returns
// the best candidate.
func (d *Detector[T]) Closest(origin rl.Vector3, rotation rl.Quaternion, maxDistance float32, mask engine.LayerMask) Result[T] {
	return d.ClosestWhere(origin, rotation, maxDistance, mask, nil)
}

// ClosestWhere is Closest restricted to hits accepted by keep.
func (d *Detector[T]) ClosestWhere(origin rl.Vector3, rotation rl.Quaternion, maxDistance float32, mask engine.LayerMask, keep func(hit engine.Hit, target T) bool) Result[T] {
	if d.World == nil || d.Resolve == nil || maxDistance <= 0 {
		return Result[T]{}
	}
	d.hits = d.hits[:0]
	d.targets = d.targets[:0]
	for _, ray := range d.Rays {
		dir := rl.Vector3RotateByQuaternion(ray, rotation)
		hit, ok := d.World.SphereCast(origin, d.Radius, dir, maxDistance, mask)
		if !ok || hit.GameObject == nil {
			continue
		}
		target, ok := d.Resolve(hit.GameObject)
		if !ok {
			continue
		}
		if keep != nil && !keep(hit, target) {
			continue
		}
		d.hits = append(d.hits, hit)
		d.targets = append(d.targets, target)
	}
	return d.pick(origin)
}

func (d *Detector[T]) pick(origin rl.Vector3) Result[T] {
	n := len(d.hits)
	if n == 0 {
		return Result[T]{}
	}
	best := 0
	bestScore := d.hits[0].Distance * firstRayWeight * d.targets[0].GrabPriority()
	var dir rl.Vector3
	for i, hit := range d.hits {
		weight := omath.Lerp(firstRayWeight, lastRayWeight, float32(i)/float32(n)) * d.targets[i].GrabPriority()
		if score := hit.Distance * weight; score < bestScore {
			best, bestScore = i, score
		}
		dir = rl.Vector3Add(dir, rl.Vector3Subtract(hit.Point, origin))
	}
	dir = rl.Vector3Scale(dir, 1/float32(n))
	if dir == (rl.Vector3{}) {
		// Keep the sentinel unambiguous when hits cancel out.
		dir = rl.Vector3{Z: 1e-6}
	}
	return Result[T]{
		Hit:       d.hits[best],
		Target:    d.targets[best],
		Direction: dir,
		Hits:      n,
	}
}
