package components

import (
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func init() {
	engine.RegisterComponent("SphereCollider", func(props map[string]any) (engine.Component, error) {
		def := sphereColliderDef{Radius: 0.5}
		if err := engine.DecodeProps(props, &def); err != nil {
			return nil, err
		}
		s := NewSphereCollider(def.Radius)
		s.Center = def.Center.Vector3()
		s.IsTrigger = def.IsTrigger
		return s, nil
	})
}

type sphereColliderDef struct {
	Radius    float32 `yaml:"radius"`
	Center    Vec3Def `yaml:"center"`
	IsTrigger bool    `yaml:"isTrigger"`
}

type SphereCollider struct {
	engine.BaseComponent
	Radius    float32
	Center    rl.Vector3 // local offset
	IsTrigger bool
}

func NewSphereCollider(radius float32) *SphereCollider {
	return &SphereCollider{Radius: radius}
}

// WorldCenter returns the world-space center of this collider
func (s *SphereCollider) WorldCenter() rl.Vector3 {
	return s.GetGameObject().TransformPoint(s.Center)
}

func (s *SphereCollider) WorldRadius() float32 {
	return s.Radius * maxAbs(s.GetGameObject().WorldScale())
}

func (s *SphereCollider) Trigger() bool { return s.IsTrigger }

func (s *SphereCollider) Bounds() (rl.Vector3, float32) {
	return s.WorldCenter(), s.WorldRadius()
}
