package engine

import (
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var nextUID atomic.Uint64

// Transform is expressed in the parent's space. Rotation is a unit quaternion.
type Transform struct {
	Position rl.Vector3
	Rotation rl.Quaternion
	Scale    rl.Vector3
}

type GameObject struct {
	UID        uint64
	Name       string
	Tags       []string
	Layer      int
	Transform  Transform
	Active     bool
	Scene      *Scene
	Parent     *GameObject
	Children   []*GameObject
	components []Component
	started    bool
	destroyed  bool
	destroying bool
}

func NewGameObject(name string) *GameObject {
	return &GameObject{
		UID:    nextUID.Add(1),
		Name:   name,
		Active: true,
		Transform: Transform{
			Position: rl.Vector3{},
			Rotation: rl.QuaternionIdentity(),
			Scale:    rl.Vector3{X: 1, Y: 1, Z: 1},
		},
		components: make([]Component, 0),
		Children:   make([]*GameObject, 0),
	}
}

func (g *GameObject) AddComponent(c Component) {
	c.SetGameObject(g)
	g.components = append(g.components, c)
}

// RemoveComponent detaches c. Returns false if c was not attached.
func (g *GameObject) RemoveComponent(c Component) bool {
	for i, existing := range g.components {
		if existing == c {
			g.components = append(g.components[:i], g.components[i+1:]...)
			return true
		}
	}
	return false
}

// GetComponent returns the first component of type T, or the zero value.
func GetComponent[T any](g *GameObject) T {
	var zero T
	if g == nil {
		return zero
	}
	for _, c := range g.components {
		if typed, ok := c.(T); ok {
			return typed
		}
	}
	return zero
}

// GetComponentInParent searches g and then its ancestors.
func GetComponentInParent[T any](g *GameObject) (T, bool) {
	for o := g; o != nil; o = o.Parent {
		for _, c := range o.components {
			if typed, ok := c.(T); ok {
				return typed, true
			}
		}
	}
	var zero T
	return zero, false
}

func (g *GameObject) Start() {
	if g.started {
		return
	}
	for _, c := range g.components {
		c.Start()
	}
	g.started = true
}

func (g *GameObject) FixedUpdate(deltaTime float32) {
	if !g.Active || g.destroyed {
		return
	}
	for _, c := range g.components {
		if f, ok := c.(FixedUpdater); ok {
			f.FixedUpdate(deltaTime)
		}
	}
}

func (g *GameObject) Update(deltaTime float32) {
	if !g.Active || g.destroyed {
		return
	}
	for _, c := range g.components {
		c.Update(deltaTime)
	}
}

func (g *GameObject) Components() []Component {
	return g.components
}

func (g *GameObject) HasTag(tag string) bool {
	for _, t := range g.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Destroyed reports whether the object was removed through Scene.Destroy.
func (g *GameObject) Destroyed() bool {
	return g == nil || g.destroyed
}

// ActiveInHierarchy is false if g or any ancestor is inactive.
func (g *GameObject) ActiveInHierarchy() bool {
	for o := g; o != nil; o = o.Parent {
		if !o.Active || o.destroyed {
			return false
		}
	}
	return true
}

func (g *GameObject) AddChild(child *GameObject) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = g
	g.Children = append(g.Children, child)
}

func (g *GameObject) RemoveChild(child *GameObject) {
	for i, c := range g.Children {
		if c == child {
			g.Children = append(g.Children[:i], g.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// SetParent moves g under parent (nil for the scene root). With keepWorld
// the world pose is preserved and the local transform recomputed.
func (g *GameObject) SetParent(parent *GameObject, keepWorld bool) {
	if g.Parent == parent {
		return
	}
	pos, rot := g.WorldPosition(), g.WorldRotation()
	if g.Parent != nil {
		g.Parent.RemoveChild(g)
	}
	if parent != nil {
		parent.AddChild(g)
	}
	if keepWorld {
		g.SetWorldPosition(pos)
		g.SetWorldRotation(rot)
	}
}

// IsChildOf reports whether ancestor appears in g's parent chain.
func (g *GameObject) IsChildOf(ancestor *GameObject) bool {
	for o := g.Parent; o != nil; o = o.Parent {
		if o == ancestor {
			return true
		}
	}
	return false
}

func (g *GameObject) WorldPosition() rl.Vector3 {
	if g.Parent == nil {
		return g.Transform.Position
	}
	return g.Parent.TransformPoint(g.Transform.Position)
}

func (g *GameObject) WorldRotation() rl.Quaternion {
	if g.Parent == nil {
		return g.Transform.Rotation
	}
	return rl.QuaternionNormalize(rl.QuaternionMultiply(g.Parent.WorldRotation(), g.Transform.Rotation))
}

func (g *GameObject) WorldScale() rl.Vector3 {
	if g.Parent == nil {
		return g.Transform.Scale
	}
	ps := g.Parent.WorldScale()
	return rl.Vector3{
		X: ps.X * g.Transform.Scale.X,
		Y: ps.Y * g.Transform.Scale.Y,
		Z: ps.Z * g.Transform.Scale.Z,
	}
}

func (g *GameObject) SetWorldPosition(pos rl.Vector3) {
	if g.Parent == nil {
		g.Transform.Position = pos
		return
	}
	g.Transform.Position = g.Parent.InverseTransformPoint(pos)
}

func (g *GameObject) SetWorldRotation(rot rl.Quaternion) {
	if g.Parent == nil {
		g.Transform.Rotation = rl.QuaternionNormalize(rot)
		return
	}
	inv := rl.QuaternionInvert(g.Parent.WorldRotation())
	g.Transform.Rotation = rl.QuaternionNormalize(rl.QuaternionMultiply(inv, rot))
}

// TransformPoint maps a point from g's local space to world space.
func (g *GameObject) TransformPoint(local rl.Vector3) rl.Vector3 {
	s := g.WorldScale()
	scaled := rl.Vector3{X: local.X * s.X, Y: local.Y * s.Y, Z: local.Z * s.Z}
	return rl.Vector3Add(g.WorldPosition(), rl.Vector3RotateByQuaternion(scaled, g.WorldRotation()))
}

// InverseTransformPoint maps a world point into g's local space.
func (g *GameObject) InverseTransformPoint(world rl.Vector3) rl.Vector3 {
	rel := rl.Vector3Subtract(world, g.WorldPosition())
	p := rl.Vector3RotateByQuaternion(rel, rl.QuaternionInvert(g.WorldRotation()))
	s := g.WorldScale()
	if s.X != 0 {
		p.X /= s.X
	}
	if s.Y != 0 {
		p.Y /= s.Y
	}
	if s.Z != 0 {
		p.Z /= s.Z
	}
	return p
}

// TransformDirection rotates a local direction into world space.
func (g *GameObject) TransformDirection(local rl.Vector3) rl.Vector3 {
	return rl.Vector3RotateByQuaternion(local, g.WorldRotation())
}

// InverseTransformDirection rotates a world direction into local space.
func (g *GameObject) InverseTransformDirection(world rl.Vector3) rl.Vector3 {
	return rl.Vector3RotateByQuaternion(world, rl.QuaternionInvert(g.WorldRotation()))
}

// Forward is the local +Z axis in world space.
func (g *GameObject) Forward() rl.Vector3 {
	return g.TransformDirection(rl.Vector3{Z: 1})
}

// Up is the local +Y axis in world space.
func (g *GameObject) Up() rl.Vector3 {
	return g.TransformDirection(rl.Vector3{Y: 1})
}

// Walk visits g and every descendant depth first. Returning false from fn
// skips that node's children.
func (g *GameObject) Walk(fn func(o *GameObject) bool) {
	if !fn(g) {
		return
	}
	for _, c := range g.Children {
		c.Walk(fn)
	}
}

// SetLayerRecursive assigns layer to g and all descendants.
func (g *GameObject) SetLayerRecursive(layer int) {
	g.Walk(func(o *GameObject) bool {
		o.Layer = layer
		return true
	})
}

// SwapLayerRecursive moves every node currently on from to to. Nodes on
// other layers keep their layer.
func (g *GameObject) SwapLayerRecursive(from, to int) {
	g.Walk(func(o *GameObject) bool {
		if o.Layer == from {
			o.Layer = to
		}
		return true
	})
}
