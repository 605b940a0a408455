package components

import (
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Collider is implemented by every shape the physics world understands.
type Collider interface {
	engine.Component
	Trigger() bool
	// Bounds returns a world-space bounding sphere.
	Bounds() (center rl.Vector3, radius float32)
}

// AttachedBody returns the Rigidbody a collider moves with: the one on its
// own GameObject or the nearest ancestor.
func AttachedBody(c Collider) *Rigidbody {
	rb, _ := engine.GetComponentInParent[*Rigidbody](c.GetGameObject())
	return rb
}

// Colliders returns every collider attached to g.
func Colliders(g *engine.GameObject) []Collider {
	var out []Collider
	for _, c := range g.Components() {
		if col, ok := c.(Collider); ok {
			out = append(out, col)
		}
	}
	return out
}

func maxAbs(v rl.Vector3) float32 {
	m := v.X
	if m < 0 {
		m = -m
	}
	for _, c := range []float32{v.Y, v.Z} {
		if c < 0 {
			c = -c
		}
		if c > m {
			m = c
		}
	}
	return m
}
