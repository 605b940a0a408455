package components

import (
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func init() {
	engine.RegisterComponent("BoxCollider", func(props map[string]any) (engine.Component, error) {
		def := boxColliderDef{Size: Vec3Def{X: 1, Y: 1, Z: 1}}
		if err := engine.DecodeProps(props, &def); err != nil {
			return nil, err
		}
		b := NewBoxCollider(def.Size.Vector3())
		b.Center = def.Center.Vector3()
		b.IsTrigger = def.IsTrigger
		return b, nil
	})
}

type boxColliderDef struct {
	Size      Vec3Def `yaml:"size"`
	Center    Vec3Def `yaml:"center"`
	IsTrigger bool    `yaml:"isTrigger"`
}

type BoxCollider struct {
	engine.BaseComponent
	Size      rl.Vector3
	Center    rl.Vector3 // local offset
	IsTrigger bool
}

func NewBoxCollider(size rl.Vector3) *BoxCollider {
	return &BoxCollider{Size: size}
}

func (b *BoxCollider) WorldCenter() rl.Vector3 {
	return b.GetGameObject().TransformPoint(b.Center)
}

// WorldHalfExtents returns the half size scaled by the world scale.
func (b *BoxCollider) WorldHalfExtents() rl.Vector3 {
	s := b.GetGameObject().WorldScale()
	return rl.Vector3{
		X: abs(b.Size.X*s.X) / 2,
		Y: abs(b.Size.Y*s.Y) / 2,
		Z: abs(b.Size.Z*s.Z) / 2,
	}
}

func (b *BoxCollider) WorldRotation() rl.Quaternion {
	return b.GetGameObject().WorldRotation()
}

func (b *BoxCollider) Trigger() bool { return b.IsTrigger }

func (b *BoxCollider) Bounds() (rl.Vector3, float32) {
	return b.WorldCenter(), rl.Vector3Length(b.WorldHalfExtents())
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
