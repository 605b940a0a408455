package physics

import (
	"cmp"
	"slices"

	"autohand/internal/components"
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// pairKey orders two collider ids so a pair has one key.
type pairKey struct {
	a, b int
}

type pairInfo struct {
	a, b *colliderEntry
}

func makePair(a, b *colliderEntry) (pairKey, pairInfo) {
	if a.id > b.id {
		a, b = b, a
	}
	return pairKey{a.id, b.id}, pairInfo{a, b}
}

// shapeOf returns the world-space shape of a collider as either a sphere
// or a box.
func shapeOf(c components.Collider) (sphere bool, center rl.Vector3, radius float32, box OBB) {
	switch s := c.(type) {
	case *components.SphereCollider:
		return true, s.WorldCenter(), s.WorldRadius(), OBB{}
	case *components.BoxCollider:
		return false, rl.Vector3{}, 0, NewOBB(s.WorldCenter(), s.WorldHalfExtents(), s.WorldRotation())
	}
	center, radius = c.Bounds()
	return true, center, radius, OBB{}
}

func boundsOf(c components.Collider) AABB {
	center, radius := c.Bounds()
	return NewAABBFromSphere(center, radius)
}

// overlap returns the normal pushing a out of b and the penetration depth.
func overlap(a, b components.Collider) (rl.Vector3, float32, bool) {
	if !boundsOf(a).Intersects(boundsOf(b)) {
		return rl.Vector3{}, 0, false
	}

	aSphere, aC, aR, aBox := shapeOf(a)
	bSphere, bC, bR, bBox := shapeOf(b)
	switch {
	case aSphere && bSphere:
		return sphereSphere(aC, aR, bC, bR)
	case aSphere && !bSphere:
		return sphereBox(aC, aR, bBox)
	case !aSphere && bSphere:
		n, d, ok := sphereBox(bC, bR, aBox)
		return rl.Vector3Negate(n), d, ok
	}
	mtv := aBox.ResolveOBB(bBox)
	depth := rl.Vector3Length(mtv)
	if depth == 0 {
		return rl.Vector3{}, 0, false
	}
	return rl.Vector3Scale(mtv, 1/depth), depth, true
}

func sphereSphere(ca rl.Vector3, ra float32, cb rl.Vector3, rb float32) (rl.Vector3, float32, bool) {
	diff := rl.Vector3Subtract(ca, cb)
	dist := rl.Vector3Length(diff)
	if dist >= ra+rb {
		return rl.Vector3{}, 0, false
	}
	if dist < 1e-6 {
		return rl.Vector3{Y: 1}, ra + rb, true
	}
	return rl.Vector3Scale(diff, 1/dist), ra + rb - dist, true
}

func sphereBox(c rl.Vector3, r float32, box OBB) (rl.Vector3, float32, bool) {
	closest := ClosestPointOnOBB(box, c)
	diff := rl.Vector3Subtract(c, closest)
	dist := rl.Vector3Length(diff)
	if dist > r {
		return rl.Vector3{}, 0, false
	}
	if dist > 1e-6 {
		return rl.Vector3Scale(diff, 1/dist), r - dist, true
	}
	// Center inside the box: push out through the nearest face.
	cube := NewOBB(c, rl.Vector3{X: r, Y: r, Z: r}, rl.QuaternionIdentity())
	mtv := cube.ResolveOBB(box)
	depth := rl.Vector3Length(mtv)
	if depth == 0 {
		return rl.Vector3{Y: 1}, r, true
	}
	return rl.Vector3Scale(mtv, 1/depth), depth, true
}

func (w *World) interacts(a, b *colliderEntry) bool {
	if a.body != nil && a.body == b.body {
		return false
	}
	if a.body == nil && b.body == nil {
		return false
	}
	if !w.LayersCollide(a.object().Layer, b.object().Layer) {
		return false
	}
	if a.body != nil && b.body != nil && w.jointed(a.body, b.body) {
		return false
	}
	return true
}

// findContacts resolves solid contacts and returns the touching and
// overlapping pairs for this step.
func (w *World) findContacts(dt float32) (map[pairKey]pairInfo, map[pairKey]pairInfo) {
	collisions := make(map[pairKey]pairInfo)
	triggers := make(map[pairKey]pairInfo)

	entries := make([]*colliderEntry, 0, len(w.colliders))
	for _, e := range w.colliders {
		if e.live() {
			entries = append(entries, e)
		}
	}

	for i := 0; i < len(entries); i++ {
		for k := i + 1; k < len(entries); k++ {
			a, b := entries[i], entries[k]
			if !w.interacts(a, b) {
				continue
			}
			normal, depth, ok := overlap(a.col, b.col)
			if !ok {
				continue
			}
			key, info := makePair(a, b)
			if a.col.Trigger() || b.col.Trigger() {
				triggers[key] = info
				continue
			}
			collisions[key] = info
			w.resolveContact(a, b, normal, depth, dt)
		}
	}
	return collisions, triggers
}

func inverseMass(e *colliderEntry) float32 {
	if e.body == nil {
		return 0
	}
	return e.body.InverseMass()
}

func (w *World) resolveContact(a, b *colliderEntry, normal rl.Vector3, depth, dt float32) {
	wA, wB := inverseMass(a), inverseMass(b)
	total := wA + wB
	if total == 0 {
		return
	}

	if corr := (depth - contactSlop) * contactBias / total; corr > 0 {
		if wA > 0 {
			push := clampPush(rl.Vector3Scale(normal, corr*wA), a.body.MaxDepenetrationVelocity*dt)
			a.body.SetPosition(rl.Vector3Add(a.body.Position(), push))
		}
		if wB > 0 {
			push := clampPush(rl.Vector3Scale(normal, -corr*wB), b.body.MaxDepenetrationVelocity*dt)
			b.body.SetPosition(rl.Vector3Add(b.body.Position(), push))
		}
	}

	var vA, vB rl.Vector3
	if a.body != nil {
		vA = a.body.Velocity
	}
	if b.body != nil {
		vB = b.body.Velocity
	}
	rel := rl.Vector3Subtract(vA, vB)
	vn := rl.Vector3DotProduct(rel, normal)
	if vn >= 0 {
		return
	}
	j := -vn / total
	impulse := rl.Vector3Scale(normal, j)

	tangent := rl.Vector3Subtract(rel, rl.Vector3Scale(normal, vn))
	if tl := rl.Vector3Length(tangent); tl > 1e-6 {
		jt := tl / total
		if limit := contactFriction * j; jt > limit {
			jt = limit
		}
		impulse = rl.Vector3Subtract(impulse, rl.Vector3Scale(tangent, jt/tl))
	}

	if wA > 0 {
		a.body.Velocity = rl.Vector3Add(a.body.Velocity, rl.Vector3Scale(impulse, wA))
		a.body.WakeUp()
	}
	if wB > 0 {
		b.body.Velocity = rl.Vector3Subtract(b.body.Velocity, rl.Vector3Scale(impulse, wB))
		b.body.WakeUp()
	}
}

func clampPush(v rl.Vector3, limit float32) rl.Vector3 {
	if limit <= 0 {
		return v
	}
	if l := rl.Vector3Length(v); l > limit {
		return rl.Vector3Scale(v, limit/l)
	}
	return v
}

func sortedKeys(m map[pairKey]pairInfo) []pairKey {
	keys := make([]pairKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y pairKey) int {
		if c := cmp.Compare(x.a, y.a); c != 0 {
			return c
		}
		return cmp.Compare(x.b, y.b)
	})
	return keys
}

// dispatchCollisionCallbacks sends enter for new pairs and exit for ended
// ones, in a stable order.
func (w *World) dispatchCollisionCallbacks(current map[pairKey]pairInfo) {
	for _, k := range sortedKeys(current) {
		if _, ok := w.activeCollisions[k]; ok {
			continue
		}
		p := current[k]
		notifyCollision(p.a.owner(), p.b.object(), true)
		notifyCollision(p.b.owner(), p.a.object(), true)
	}
	for _, k := range sortedKeys(w.activeCollisions) {
		if _, ok := current[k]; ok {
			continue
		}
		p := w.activeCollisions[k]
		notifyCollision(p.a.owner(), p.b.object(), false)
		notifyCollision(p.b.owner(), p.a.object(), false)
	}
	w.activeCollisions = current
}

func (w *World) dispatchTriggerCallbacks(current map[pairKey]pairInfo) {
	for _, k := range sortedKeys(current) {
		if _, ok := w.activeTriggers[k]; ok {
			continue
		}
		p := current[k]
		notifyTrigger(p.a.owner(), p.b.object(), true)
		notifyTrigger(p.b.owner(), p.a.object(), true)
	}
	for _, k := range sortedKeys(w.activeTriggers) {
		if _, ok := current[k]; ok {
			continue
		}
		p := w.activeTriggers[k]
		notifyTrigger(p.a.owner(), p.b.object(), false)
		notifyTrigger(p.b.owner(), p.a.object(), false)
	}
	w.activeTriggers = current
}

func notifyCollision(obj, other *engine.GameObject, enter bool) {
	if obj == nil || obj.Destroyed() {
		return
	}
	for _, c := range obj.Components() {
		if h, ok := c.(engine.CollisionHandler); ok {
			if enter {
				h.OnCollisionEnter(other)
			} else {
				h.OnCollisionExit(other)
			}
		}
	}
}

func notifyTrigger(obj, other *engine.GameObject, enter bool) {
	if obj == nil || obj.Destroyed() {
		return
	}
	for _, c := range obj.Components() {
		if h, ok := c.(engine.TriggerHandler); ok {
			if enter {
				h.OnTriggerEnter(other)
			} else {
				h.OnTriggerExit(other)
			}
		}
	}
}
