package detect

import (
	"testing"

	"autohand/internal/components"
	"autohand/internal/engine"
	"autohand/internal/physics"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type target struct {
	name     string
	priority float32
}

func (t *target) GrabPriority() float32 { return t.priority }

// scriptedWorld answers the n-th cast with hits[n].
type scriptedWorld struct {
	hits  []*engine.Hit
	calls int
}

func (s *scriptedWorld) Raycast(rl.Vector3, rl.Vector3, float32, engine.LayerMask) (engine.Hit, bool) {
	return engine.Hit{}, false
}

func (s *scriptedWorld) SphereCast(_ rl.Vector3, _ float32, _ rl.Vector3, _ float32, _ engine.LayerMask) (engine.Hit, bool) {
	i := s.calls
	s.calls++
	if i >= len(s.hits) || s.hits[i] == nil {
		return engine.Hit{}, false
	}
	return *s.hits[i], true
}

func (s *scriptedWorld) OverlapSphere(rl.Vector3, float32, engine.LayerMask) []*engine.GameObject {
	return nil
}

func resolver(targets map[*engine.GameObject]*target) Resolver[*target] {
	return func(g *engine.GameObject) (*target, bool) {
		t, ok := targets[g]
		return t, ok
	}
}

func hitAt(g *engine.GameObject, point rl.Vector3, distance float32) *engine.Hit {
	return &engine.Hit{GameObject: g, Point: point, Distance: distance}
}

func TestConeStartsOnPalmForward(t *testing.T) {
	rays := Cone(DefaultRayCount, 0)

	require.Len(t, rays, 50)
	assert.InDelta(t, 0, rays[0].X, 1e-5)
	assert.InDelta(t, 0, rays[0].Y, 1e-5)
	assert.InDelta(t, 1, rays[0].Z, 1e-5)
	for _, r := range rays {
		assert.InDelta(t, 1, rl.Vector3Length(r), 1e-4)
	}
}

func TestConeSpreadWidensOuterRays(t *testing.T) {
	narrow := Cone(DefaultRayCount, 0)
	wide := Cone(DefaultRayCount, 0.2)
	forward := rl.Vector3{Z: 1}

	assert.Less(t, rl.Vector3DotProduct(wide[49], forward), rl.Vector3DotProduct(narrow[49], forward))
}

func TestClosestNoHitIsSentinel(t *testing.T) {
	d := New(&scriptedWorld{}, resolver(nil), 10, 0)

	res := d.Closest(rl.Vector3{}, rl.QuaternionIdentity(), 0.3, engine.AllLayers)

	assert.False(t, res.Found())
	assert.Equal(t, rl.Vector3{}, res.Direction)
	assert.Nil(t, res.Target)
}

func TestClosestSingleCandidateIgnoresPriority(t *testing.T) {
	g := engine.NewGameObject("Cup")
	cup := &target{name: "cup", priority: 5}
	world := &scriptedWorld{hits: []*engine.Hit{nil, nil, hitAt(g, rl.Vector3{Z: 0.2}, 0.2)}}
	d := New(world, resolver(map[*engine.GameObject]*target{g: cup}), 10, 0)

	res := d.Closest(rl.Vector3{}, rl.QuaternionIdentity(), 0.3, engine.AllLayers)

	require.True(t, res.Found())
	assert.Same(t, cup, res.Target)
	assert.Equal(t, rl.Vector3{Z: 0.2}, res.Direction)
}

func TestClosestLowerPriorityWeightWins(t *testing.T) {
	a, b := engine.NewGameObject("A"), engine.NewGameObject("B")
	ta := &target{name: "a", priority: 1}
	tb := &target{name: "b", priority: 0.5}
	world := &scriptedWorld{hits: []*engine.Hit{
		hitAt(a, rl.Vector3{X: -0.1, Z: 0.2}, 0.2),
		hitAt(b, rl.Vector3{X: 0.1, Z: 0.2}, 0.2),
	}}
	d := New(world, resolver(map[*engine.GameObject]*target{a: ta, b: tb}), 2, 0)

	res := d.Closest(rl.Vector3{}, rl.QuaternionIdentity(), 0.3, engine.AllLayers)

	assert.Same(t, tb, res.Target)
	assert.Equal(t, 2, res.Hits)
	assert.InDelta(t, 0, res.Direction.X, 1e-6)
	assert.InDelta(t, 0.2, res.Direction.Z, 1e-6)
}

func TestClosestTieKeepsEarliestRay(t *testing.T) {
	a, b := engine.NewGameObject("A"), engine.NewGameObject("B")
	ta, tb := &target{priority: 1}, &target{priority: 1}
	world := &scriptedWorld{hits: []*engine.Hit{
		hitAt(a, rl.Vector3{Z: 0.2}, 0.2),
		hitAt(b, rl.Vector3{Z: 0.2}, 0.2),
	}}
	d := New(world, resolver(map[*engine.GameObject]*target{a: ta, b: tb}), 2, 0)

	assert.Same(t, ta, d.Closest(rl.Vector3{}, rl.QuaternionIdentity(), 0.3, engine.AllLayers).Target)
}

func TestClosestOuterRayNeedsToBeClearlyCloser(t *testing.T) {
	a, b := engine.NewGameObject("A"), engine.NewGameObject("B")
	ta, tb := &target{priority: 1}, &target{priority: 1}
	world := &scriptedWorld{hits: []*engine.Hit{
		hitAt(a, rl.Vector3{Z: 0.2}, 0.2),
		hitAt(b, rl.Vector3{Z: 0.199}, 0.199),
	}}
	d := New(world, resolver(map[*engine.GameObject]*target{a: ta, b: tb}), 2, 0)

	// 0.199 * lerp(1, 1.05, 1/2) = 0.2039 > 0.2
	assert.Same(t, ta, d.Closest(rl.Vector3{}, rl.QuaternionIdentity(), 0.3, engine.AllLayers).Target)
}

func TestClosestSkipsUnresolvedAndFiltered(t *testing.T) {
	wall, a, b := engine.NewGameObject("Wall"), engine.NewGameObject("A"), engine.NewGameObject("B")
	ta, tb := &target{priority: 1}, &target{priority: 1}
	world := &scriptedWorld{hits: []*engine.Hit{
		hitAt(wall, rl.Vector3{Z: 0.05}, 0.05),
		hitAt(a, rl.Vector3{Z: 0.1}, 0.1),
		hitAt(b, rl.Vector3{Z: 0.2}, 0.2),
	}}
	d := New(world, resolver(map[*engine.GameObject]*target{a: ta, b: tb}), 3, 0)

	res := d.ClosestWhere(rl.Vector3{}, rl.QuaternionIdentity(), 0.3, engine.AllLayers,
		func(_ engine.Hit, tg *target) bool { return tg == tb })

	assert.Same(t, tb, res.Target)
	assert.Equal(t, 1, res.Hits)
}

func TestClosestAgainstPhysicsWorld(t *testing.T) {
	w := physics.NewWorld(nil)
	ball := engine.NewGameObject("Ball")
	ball.Transform.Position = rl.Vector3{Z: 0.2}
	ball.AddComponent(components.NewSphereCollider(0.05))
	w.AddObject(ball)

	tb := &target{priority: 1}
	d := New(w, resolver(map[*engine.GameObject]*target{ball: tb}), DefaultRayCount, 0)

	res := d.Closest(rl.Vector3{}, rl.QuaternionIdentity(), 0.3, engine.AllLayers)
	require.True(t, res.Found())
	assert.Same(t, ball, res.Hit.GameObject)
	assert.InDelta(t, 0.15, res.Hit.Point.Z, 0.02)

	// Palm turned away.
	away := rl.QuaternionFromAxisAngle(rl.Vector3{Y: 1}, rl.Pi)
	assert.False(t, d.Closest(rl.Vector3{}, away, 0.3, engine.AllLayers).Found())
}
