package physics

import (
	"slices"

	"autohand/internal/components"
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"
)

const (
	DefaultSolverIterations = 6
	// jointBias is the share of joint drift corrected per step.
	jointBias = 0.2
	// contactSlop is the penetration left unresolved to keep resting
	// contacts stable.
	contactSlop     = 0.001
	contactBias     = 0.8
	contactFriction = 0.4
)

type colliderEntry struct {
	id   int
	col  components.Collider
	body *components.Rigidbody
}

func (e *colliderEntry) object() *engine.GameObject {
	return e.col.GetGameObject()
}

// owner is the GameObject that receives callbacks for this collider.
func (e *colliderEntry) owner() *engine.GameObject {
	if e.body != nil {
		return e.body.GetGameObject()
	}
	return e.col.GetGameObject()
}

func (e *colliderEntry) live() bool {
	g := e.object()
	return g != nil && !g.Destroyed() && g.ActiveInHierarchy()
}

func (e *colliderEntry) dynamic() bool {
	return e.body != nil && !e.body.IsKinematic
}

// World is a fixed-step rigid-body world for rigidbodies, colliders and
// fixed joints.
type World struct {
	Gravity          rl.Vector3
	SolverIterations int

	logger    *zap.Logger
	bodies    []*components.Rigidbody
	colliders []*colliderEntry
	joints    []*FixedJoint
	nextID    int

	// ignore[a] has bit b set when layers a and b do not interact.
	ignore [engine.MaxLayers]uint32

	activeCollisions map[pairKey]pairInfo
	activeTriggers   map[pairKey]pairInfo
}

func NewWorld(logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &World{
		Gravity:          rl.Vector3{Y: -9.81},
		SolverIterations: DefaultSolverIterations,
		logger:           logger.Named("physics"),
		activeCollisions: make(map[pairKey]pairInfo),
		activeTriggers:   make(map[pairKey]pairInfo),
	}
}

// AddObject registers the bodies and colliders of g and its descendants.
// Objects already registered are skipped.
func (w *World) AddObject(g *engine.GameObject) {
	g.Walk(func(o *engine.GameObject) bool {
		if rb := engine.GetComponent[*components.Rigidbody](o); rb != nil && !slices.Contains(w.bodies, rb) {
			w.bodies = append(w.bodies, rb)
		}
		for _, c := range components.Colliders(o) {
			if w.findCollider(c) != nil {
				continue
			}
			w.nextID++
			w.colliders = append(w.colliders, &colliderEntry{id: w.nextID, col: c})
		}
		return true
	})
	w.refreshAttachments()
}

// RemoveObject unregisters g only, not its children. Joints on its body
// are destroyed without break callbacks.
func (w *World) RemoveObject(g *engine.GameObject) {
	if rb := engine.GetComponent[*components.Rigidbody](g); rb != nil {
		w.bodies = slices.DeleteFunc(w.bodies, func(b *components.Rigidbody) bool { return b == rb })
		for _, j := range w.joints {
			if j.Owner == rb || j.Connected == rb {
				j.destroyed = true
			}
		}
		w.compactJoints()
	}
	w.colliders = slices.DeleteFunc(w.colliders, func(e *colliderEntry) bool {
		return e.object() == g
	})
	w.refreshAttachments()
}

func (w *World) findCollider(c components.Collider) *colliderEntry {
	for _, e := range w.colliders {
		if e.col == c {
			return e
		}
	}
	return nil
}

// refreshAttachments binds every collider to the body it currently moves with.
func (w *World) refreshAttachments() {
	for _, e := range w.colliders {
		rb := components.AttachedBody(e.col)
		if rb != nil && !slices.Contains(w.bodies, rb) {
			rb = nil
		}
		e.body = rb
	}
}

func (w *World) Bodies() []*components.Rigidbody {
	return w.bodies
}

// IgnoreLayerCollision sets whether layers a and b skip contacts and triggers.
func (w *World) IgnoreLayerCollision(a, b int, ignore bool) {
	if a < 0 || b < 0 || a >= engine.MaxLayers || b >= engine.MaxLayers {
		return
	}
	if ignore {
		w.ignore[a] |= 1 << uint(b)
		w.ignore[b] |= 1 << uint(a)
	} else {
		w.ignore[a] &^= 1 << uint(b)
		w.ignore[b] &^= 1 << uint(a)
	}
}

func (w *World) LayersCollide(a, b int) bool {
	if a < 0 || b < 0 || a >= engine.MaxLayers || b >= engine.MaxLayers {
		return false
	}
	return w.ignore[a]&(1<<uint(b)) == 0
}

// Step advances the world by dt: forces, joints, integration, contacts,
// then callbacks.
func (w *World) Step(dt float32) {
	if dt <= 0 {
		return
	}
	w.refreshAttachments()
	w.applyForces(dt)
	w.solveJoints(dt)
	w.integrate(dt)

	collisions, triggers := w.findContacts(dt)
	w.dispatchCollisionCallbacks(collisions)
	w.dispatchTriggerCallbacks(triggers)

	for _, rb := range w.bodies {
		rb.TrySleep(dt)
	}
}

func (w *World) bodyLive(rb *components.Rigidbody) bool {
	g := rb.GetGameObject()
	return g != nil && !g.Destroyed() && g.ActiveInHierarchy()
}

func (w *World) applyForces(dt float32) {
	for _, rb := range w.bodies {
		force, torque := rb.TakeAccumulated()
		if rb.IsKinematic || rb.IsSleeping || !w.bodyLive(rb) {
			continue
		}
		acc := rl.Vector3Scale(force, rb.InverseMass())
		if rb.UseGravity {
			acc = rl.Vector3Add(acc, w.Gravity)
		}
		rb.Velocity = rl.Vector3Add(rb.Velocity, rl.Vector3Scale(acc, dt))
		rb.AngularVelocity = rl.Vector3Add(rb.AngularVelocity, rb.ApplyInverseInertia(rl.Vector3Scale(torque, dt)))

		rb.Velocity = rl.Vector3Scale(rb.Velocity, dragFactor(rb.Drag, dt))
		rb.AngularVelocity = rl.Vector3Scale(rb.AngularVelocity, dragFactor(rb.AngularDrag, dt))
	}
}

func dragFactor(drag, dt float32) float32 {
	f := 1 - drag*dt
	if f < 0 {
		return 0
	}
	return f
}

func (w *World) integrate(dt float32) {
	for _, rb := range w.bodies {
		if rb.IsKinematic || rb.IsSleeping || !w.bodyLive(rb) {
			continue
		}
		if rb.MaxAngularVelocity > 0 {
			if l := rl.Vector3Length(rb.AngularVelocity); l > rb.MaxAngularVelocity {
				rb.AngularVelocity = rl.Vector3Scale(rb.AngularVelocity, rb.MaxAngularVelocity/l)
			}
		}
		rb.SetPosition(rl.Vector3Add(rb.Position(), rl.Vector3Scale(rb.Velocity, dt)))

		omega := rb.AngularVelocity
		if angle := rl.Vector3Length(omega) * dt; angle > 1e-9 {
			step := rl.QuaternionFromAxisAngle(rl.Vector3Normalize(omega), angle)
			rb.SetRotation(rl.QuaternionNormalize(rl.QuaternionMultiply(step, rb.Rotation())))
		}
	}
}
