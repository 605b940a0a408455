package hand

import (
	"testing"

	"autohand/internal/components"
	"autohand/internal/engine"
	"autohand/internal/physics"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newFingerWorld(t *testing.T, obstacle *rl.Vector3) (*Finger, *physics.World) {
	t.Helper()
	world := physics.NewWorld(zap.NewNop())
	if obstacle != nil {
		wall := engine.NewGameObject("Wall")
		wall.Transform.Position = *obstacle
		wall.AddComponent(components.NewBoxCollider(rl.Vector3{X: 0.04, Y: 0.04, Z: 0.04}))
		world.AddObject(wall)
	}
	obj := engine.NewGameObject("Index")
	f := NewFinger()
	obj.AddComponent(f)
	obj.Start()
	f.world = world
	return f, world
}

func TestFingerBendCurlsTipTowardPalmSide(t *testing.T) {
	f, _ := newFingerWorld(t, nil)

	assert.InDelta(t, 0.08, f.Tip().Y, 1e-5)
	f.SetBend(1)
	tip := f.Tip()
	assert.InDelta(t, 0, tip.Y, 1e-5)
	assert.InDelta(t, 0.08, tip.Z, 1e-5)

	f.SetBend(3)
	assert.Equal(t, float32(1), f.Bend())
}

func TestFingerBendUntilHitStopsAtObstacle(t *testing.T) {
	f, _ := newFingerWorld(t, &rl.Vector3{Y: 0.04, Z: 0.08})

	hit := f.BendUntilHit(50, engine.MaskOf(0))

	assert.True(t, hit)
	assert.Greater(t, f.Bend(), float32(0.2))
	assert.Less(t, f.Bend(), float32(0.8))
}

func TestFingerBendUntilHitClosesWhenNothingTouches(t *testing.T) {
	f, _ := newFingerWorld(t, nil)

	assert.False(t, f.BendUntilHit(20, engine.MaskOf(0)))
	assert.Equal(t, float32(1), f.Bend())
}

func TestFingerUnboundOnlyResets(t *testing.T) {
	f, _ := newFingerWorld(t, nil)
	f.SetBend(0.5)
	f.world = nil

	assert.False(t, f.BendUntilHit(10, engine.AllLayers))
	assert.Zero(t, f.Bend())
}
