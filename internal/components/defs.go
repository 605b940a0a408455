package components

import rl "github.com/gen2brain/raylib-go/raylib"

// Vec3Def is the scenario-file form of a vector.
type Vec3Def struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

func (v Vec3Def) Vector3() rl.Vector3 {
	return rl.Vector3{X: v.X, Y: v.Y, Z: v.Z}
}
