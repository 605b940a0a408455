package hand

import (
	"autohand/internal/engine"
	"autohand/internal/omath"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func init() {
	engine.RegisterComponent("Finger", func(props map[string]any) (engine.Component, error) {
		f := NewFinger()
		if err := engine.DecodeProps(props, f); err != nil {
			return nil, err
		}
		return f, nil
	})
}

// Finger is a single-joint digit. Bending rotates it about its local X
// axis, curling the tip (local +Y) toward the palm side (+Z).
type Finger struct {
	engine.BaseComponent `yaml:"-"`

	TipOffset rl.Vector3 `yaml:"tipOffset"`
	TipRadius float32    `yaml:"tipRadius"`
	// MaxAngle is the full-bend rotation in degrees.
	MaxAngle float32 `yaml:"maxAngle"`

	world   engine.WorldAccess
	base    rl.Quaternion
	bend    float32
	started bool
}

func NewFinger() *Finger {
	return &Finger{
		TipOffset: rl.Vector3{Y: 0.08},
		TipRadius: 0.01,
		MaxAngle:  90,
		base:      rl.QuaternionIdentity(),
	}
}

func (f *Finger) Start() {
	if f.started {
		return
	}
	f.base = f.GetGameObject().Transform.Rotation
	f.started = true
}

func (f *Finger) Bend() float32 { return f.bend }

func (f *Finger) SetBend(bend float32) {
	if !f.started {
		f.Start()
	}
	f.bend = omath.Clamp01(bend)
	curl := rl.QuaternionFromAxisAngle(rl.Vector3{X: 1}, f.bend*f.MaxAngle*rl.Deg2rad)
	f.GetGameObject().Transform.Rotation = rl.QuaternionNormalize(rl.QuaternionMultiply(f.base, curl))
}

func (f *Finger) ResetBend() { f.SetBend(0) }

// Tip is the world position of the fingertip.
func (f *Finger) Tip() rl.Vector3 {
	return f.GetGameObject().TransformPoint(f.TipOffset)
}

// BendUntilHit opens the finger, then closes it in steps until the tip
// overlaps something on mask. A finger that never touches ends closed.
func (f *Finger) BendUntilHit(steps int, mask engine.LayerMask) bool {
	f.ResetBend()
	if f.world == nil || steps <= 0 {
		return false
	}
	for i := 1; i <= steps; i++ {
		f.SetBend(float32(i) / float32(steps))
		if len(f.world.OverlapSphere(f.Tip(), f.TipRadius, mask)) > 0 {
			return true
		}
	}
	return false
}
