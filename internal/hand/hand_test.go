package hand

import (
	"testing"

	"autohand/internal/components"
	"autohand/internal/engine"
	"autohand/internal/grabbable"
	"autohand/internal/physics"
	"autohand/internal/pose"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const dt = float32(1) / 90

type rig struct {
	scene  *engine.Scene
	world  *physics.World
	reg    *grabbable.Registry
	layers grabbable.Layers
	root   *engine.GameObject
}

func newRig(t *testing.T) *rig {
	t.Helper()
	layers, err := grabbable.SetupLayers(engine.NewLayers(), grabbable.DefaultLayerNames())
	require.NoError(t, err)
	world := physics.NewWorld(zap.NewNop())
	world.Gravity = rl.Vector3{}
	layers.Isolate(world)

	scene := engine.NewScene("hands")
	root := engine.NewGameObject("Rig")
	scene.AddGameObject(root)
	return &rig{
		scene:  scene,
		world:  world,
		reg:    grabbable.NewRegistry(layers, zap.NewNop()),
		layers: layers,
		root:   root,
	}
}

// hand builds a hand under the rig at pos whose palm faces +Z, or -Z when
// facingBack is set.
func (r *rig) hand(t *testing.T, left, facingBack bool, pos rl.Vector3, settings Settings) *Hand {
	t.Helper()
	obj := engine.NewGameObject("Hand")
	obj.Transform.Position = pos
	if facingBack {
		obj.Transform.Rotation = rl.QuaternionFromAxisAngle(rl.Vector3{Y: 1}, math32.Pi)
	}
	obj.AddComponent(components.NewRigidbody())
	obj.AddComponent(components.NewSphereCollider(0.03))
	obj.AddChild(engine.NewGameObject("Palm"))

	finger := engine.NewGameObject("Index")
	finger.AddComponent(NewFinger())
	obj.AddChild(finger)

	target := engine.NewGameObject("Target")
	target.Transform.Position = pos
	target.Transform.Rotation = obj.Transform.Rotation
	r.scene.AddGameObject(target)

	h := New(left, settings)
	obj.AddComponent(h)
	r.root.AddChild(obj)
	r.scene.AddGameObject(obj)
	r.world.AddObject(obj)
	h.Bind(r.world, r.reg, zap.NewNop())
	h.SetFollow(target, nil)
	obj.Start()
	require.True(t, h.CanGrabAnything())
	return h
}

func (r *rig) object(t *testing.T, name string, pos rl.Vector3, settings grabbable.Settings, extra ...engine.Component) *grabbable.Grabbable {
	t.Helper()
	obj := engine.NewGameObject(name)
	obj.Transform.Position = pos
	obj.AddComponent(components.NewRigidbody())
	obj.AddComponent(components.NewBoxCollider(rl.Vector3{X: 0.1, Y: 0.1, Z: 0.1}))
	for _, c := range extra {
		obj.AddComponent(c)
	}
	g := grabbable.New(settings)
	obj.AddComponent(g)
	r.scene.AddGameObject(obj)
	r.world.AddObject(obj)
	require.NoError(t, r.reg.Register(obj))
	obj.Start()
	return g
}

func (r *rig) step(n int) {
	for i := 0; i < n; i++ {
		r.scene.FixedUpdate(dt)
		r.world.Step(dt)
	}
}

func TestGrabWithNothingInReachStaysIdle(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	r.object(t, "Far", rl.Vector3{Z: 2}, grabbable.DefaultSettings())

	h.Grab()
	r.step(1)

	assert.Equal(t, Idle, h.State())
	assert.Nil(t, h.Holding())
	assert.Empty(t, r.world.Joints())
}

func TestGrabConnectsJointPair(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Cup", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	var grabbed []GrabEvent
	h.OnGrabbed.AddListener(func(e GrabEvent) { grabbed = append(grabbed, e) })

	h.Grab()

	require.Equal(t, Held, h.State())
	assert.Same(t, g, h.Holding())
	assert.True(t, g.IsHeldBy(h))
	assert.Len(t, r.world.Joints(), 2)
	assert.Equal(t, r.layers.Grabbing, g.GetGameObject().Layer)
	assert.Equal(t, r.layers.HandHolding, h.GetGameObject().Layer)
	assert.Same(t, r.root, g.GetGameObject().Parent)
	require.Len(t, grabbed, 1)
	assert.NotZero(t, grabbed[0].ID)

	r.step(12)
	assert.Equal(t, r.layers.Grabbable, g.GetGameObject().Layer)
	assert.Equal(t, Held, h.State())
}

func TestReleaseRestoresParentAndLayer(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Cup", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	var during State
	h.OnReleased.AddListener(func(GrabEvent) { during = h.State() })

	h.Grab()
	r.step(12)
	h.Release()

	assert.Equal(t, Releasing, during)
	assert.Equal(t, Idle, h.State())
	assert.Empty(t, r.world.Joints())
	assert.Nil(t, g.GetGameObject().Parent)
	assert.Equal(t, r.layers.Releasing, g.GetGameObject().Layer)
	assert.Equal(t, r.layers.Hand, h.GetGameObject().Layer)
	assert.Nil(t, r.scene.FindByName("Grab Point"))

	r.step(30)
	assert.Equal(t, r.layers.Grabbable, g.GetGameObject().Layer)
}

func TestThrowUsesWindowedMeanTimesMultiplier(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	settings := grabbable.DefaultSettings()
	settings.ThrowMultiplier = 1.5
	g := r.object(t, "Ball", rl.Vector3{Z: 0.15}, settings)

	h.Grab()
	r.step(12)
	require.Equal(t, Held, h.State())
	assert.Positive(t, h.estimator.Len())

	h.estimator.Clear()
	h.estimator.Add(h.clock-0.25, rl.Vector3{X: 10}, rl.Vector3{Y: 10})
	h.estimator.Add(h.clock-0.2, rl.Vector3{X: 10}, rl.Vector3{Y: 10})
	h.estimator.Add(h.clock-0.1, rl.Vector3{X: 1}, rl.Vector3{Y: 1})
	h.estimator.Add(h.clock, rl.Vector3{X: 3}, rl.Vector3{Y: 2})

	h.Release()

	// mean 2, throw power 2, multiplier 1.5
	assert.InDelta(t, 6, g.Body.Velocity.X, 1e-4)
	assert.InDelta(t, 1.5, g.Body.AngularVelocity.Y, 1e-4)
	assert.True(t, g.IsThrowing())
}

func TestReleaseWhileStillGrabbingLayerDrops(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Ball", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	h.Grab()
	h.estimator.Add(h.clock, rl.Vector3{X: 5}, rl.Vector3{})
	h.Release()

	assert.Equal(t, rl.Vector3{}, g.Body.Velocity)
	assert.False(t, g.IsThrowing())
}

func TestSingleHandSwapMovesObjectAfterOneTick(t *testing.T) {
	r := newRig(t)
	settings := grabbable.DefaultSettings()
	settings.SingleHandOnly = true
	right := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	left := r.hand(t, true, true, rl.Vector3{Z: 0.3}, DefaultSettings())
	g := r.object(t, "Knife", rl.Vector3{Z: 0.15}, settings)

	forced := 0
	right.OnForcedRelease.AddListener(func(GrabEvent) { forced++ })

	right.Grab()
	require.Equal(t, Held, right.State())

	left.Grab()
	assert.Equal(t, 1, forced)
	assert.Equal(t, Idle, right.State())
	assert.Equal(t, Approaching, left.State())
	assert.False(t, g.IsHeld())

	r.step(1)
	assert.Equal(t, Held, left.State())
	assert.Equal(t, []grabbable.Holder{left}, g.HeldBy())
	assert.Len(t, r.world.Joints(), 2)
	assert.Equal(t, 1, forced)
}

func TestSecondHandWaitsForFirstThenHoldsTwoHanded(t *testing.T) {
	r := newRig(t)
	slow := DefaultSettings()
	slow.GrabTime = 0.3
	right := r.hand(t, false, false, rl.Vector3{}, slow)
	left := r.hand(t, true, true, rl.Vector3{Z: 0.3}, DefaultSettings())
	g := r.object(t, "Crate", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	right.Grab()
	left.Grab()
	require.Equal(t, Approaching, right.State())
	require.Equal(t, Approaching, left.State())
	assert.True(t, g.BeingGrabbed())
	assert.Equal(t, waitFree, left.approach.phase)
	assert.Nil(t, left.Holding())

	r.step(40)
	assert.Equal(t, Held, right.State())
	assert.Equal(t, Held, left.State())
	assert.Equal(t, 2, g.HeldCount())
	assert.Equal(t, []grabbable.Holder{right, left}, g.HeldBy())
	assert.Len(t, r.world.Joints(), 4)
}

func TestContentionWaitIsBounded(t *testing.T) {
	r := newRig(t)
	slow := DefaultSettings()
	slow.GrabTime = 0.3
	impatient := DefaultSettings()
	impatient.ContentionPollTicks = 3
	right := r.hand(t, false, false, rl.Vector3{}, slow)
	left := r.hand(t, true, true, rl.Vector3{Z: 0.3}, impatient)
	g := r.object(t, "Crate", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	right.Grab()
	left.Grab()
	require.NotNil(t, left.approach)

	r.step(5)
	assert.Nil(t, left.approach)
	assert.Nil(t, left.Holding())
	assert.Equal(t, Approaching, right.State())

	r.step(30)
	assert.Equal(t, Held, right.State())
	assert.Equal(t, []grabbable.Holder{right}, g.HeldBy())
	assert.Len(t, r.world.Joints(), 2)
}

func TestPullApartBreakFiresOnce(t *testing.T) {
	r := newRig(t)
	settings := grabbable.DefaultSettings()
	settings.JointBreakForce = 0.01
	settings.JointBreakTorque = 0.01
	right := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	left := r.hand(t, true, true, rl.Vector3{Z: 0.3}, DefaultSettings())
	g := r.object(t, "Rope", rl.Vector3{Z: 0.15}, settings)

	breaks := 0
	g.OnJointBroken.AddListener(func(grabbable.Holder) { breaks++ })
	forced := map[*Hand]int{}
	for _, h := range []*Hand{right, left} {
		h.OnForcedRelease.AddListener(func(e GrabEvent) { forced[e.Hand]++ })
	}

	right.Grab()
	left.Grab()
	require.Equal(t, 2, g.HeldCount())

	right.followPos.Transform.Position = rl.Vector3{X: -0.2}
	left.followPos.Transform.Position = rl.Vector3{X: 0.2, Z: 0.3}
	r.step(1)

	assert.Equal(t, 1, breaks)
	assert.Equal(t, 1, forced[right])
	assert.Equal(t, 1, forced[left])
	assert.Equal(t, Idle, right.State())
	assert.Equal(t, Idle, left.State())
	assert.False(t, g.IsHeld())
	assert.Empty(t, r.world.Joints())
}

func TestSingleHandBreakSkipsPullApartEvent(t *testing.T) {
	r := newRig(t)
	settings := grabbable.DefaultSettings()
	settings.JointBreakForce = 0.01
	settings.JointBreakTorque = 0.01
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Anchor", rl.Vector3{Z: 0.15}, settings)
	g.Body.IsKinematic = true

	breaks := 0
	g.OnJointBroken.AddListener(func(grabbable.Holder) { breaks++ })

	h.Grab()
	h.followPos.Transform.Position = rl.Vector3{X: -0.3}
	r.step(1)

	assert.Zero(t, breaks)
	assert.Equal(t, Idle, h.State())
	assert.Empty(t, r.world.Joints())
}

func TestDestroyMidApproachAborts(t *testing.T) {
	r := newRig(t)
	settings := DefaultSettings()
	settings.GrabTime = 1
	h := r.hand(t, false, false, rl.Vector3{}, settings)
	g := r.object(t, "Vase", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	h.Grab()
	r.step(2)
	require.Equal(t, Approaching, h.State())
	require.Same(t, g, h.Holding())

	r.scene.Destroy(g.GetGameObject())

	assert.Equal(t, Idle, h.State())
	assert.Nil(t, h.Holding())
	assert.Nil(t, h.grabPoint)
	assert.Empty(t, r.world.Joints())
	assert.NotPanics(t, func() { r.step(3) })
}

func TestReleaseMidApproachCancels(t *testing.T) {
	r := newRig(t)
	settings := DefaultSettings()
	settings.GrabTime = 1
	h := r.hand(t, false, false, rl.Vector3{}, settings)
	g := r.object(t, "Vase", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	h.Grab()
	r.step(2)
	require.Equal(t, r.layers.Grabbing, g.GetGameObject().Layer)

	h.Release()

	assert.Equal(t, Idle, h.State())
	assert.False(t, g.BeingGrabbed())
	assert.Equal(t, r.layers.Grabbable, g.GetGameObject().Layer)
	assert.Nil(t, g.GetGameObject().Parent)
	assert.Nil(t, r.scene.FindByName("Grab Point"))
	assert.Empty(t, r.world.Joints())
}

func TestGrabTimeInterpolatesBeforeConnecting(t *testing.T) {
	r := newRig(t)
	settings := DefaultSettings()
	settings.GrabTime = 0.3
	h := r.hand(t, false, false, rl.Vector3{}, settings)
	r.object(t, "Box", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	h.Grab()
	assert.Equal(t, Approaching, h.State())
	assert.Empty(t, r.world.Joints())

	r.step(30)
	assert.Equal(t, Held, h.State())
	assert.Len(t, r.world.Joints(), 2)
}

func TestGrabLockSuppressesRelease(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	lock := &grabbable.GrabLock{}
	g := r.object(t, "Drill", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings(), lock)

	pressed := 0
	lock.OnGrabPressed.AddListener(func() { pressed++ })

	h.Grab()
	r.step(12)
	h.Release()
	assert.Equal(t, Held, h.State())

	h.Grab()
	assert.Equal(t, 1, pressed)

	h.ReleaseGrabLock()
	assert.Equal(t, Idle, h.State())
	assert.False(t, g.IsHeld())
}

func TestTryGrabReachesObjectBehindThePalm(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Remote", rl.Vector3{Z: -0.2}, grabbable.DefaultSettings())

	h.Grab()
	require.Equal(t, Idle, h.State())

	h.TryGrab(g)
	assert.Equal(t, Held, h.State())
	assert.Same(t, g, h.Holding())
	assert.Nil(t, h.tries)
}

func TestTryGrabGivesUpAfterFiveAttempts(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	settings := grabbable.DefaultSettings()
	settings.HandType = grabbable.LeftHand
	g := r.object(t, "Glove", rl.Vector3{Z: 0.15}, settings)

	h.TryGrab(g)
	r.step(10)
	require.NotNil(t, h.tries)
	assert.Equal(t, 2, h.tries.attempts)

	r.step(40)
	assert.Nil(t, h.tries)
	assert.Nil(t, h.Holding())
	// Still in view, so the glove stays highlighted.
	assert.Equal(t, Targeting, h.State())
}

func TestHighlightFollowsTarget(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Apple", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	var events []string
	h.OnHighlight.AddListener(func(GrabEvent) { events = append(events, "on") })
	h.OnStopHighlight.AddListener(func(GrabEvent) { events = append(events, "off") })

	r.step(1)
	assert.Equal(t, Targeting, h.State())
	assert.Same(t, g, h.LookingAt())
	assert.True(t, g.IsHighlighted())

	g.Body.SetPosition(rl.Vector3{Z: 3})
	r.step(1)
	assert.Equal(t, Idle, h.State())
	assert.False(t, g.IsHighlighted())
	assert.Equal(t, []string{"on", "off"}, events)
}

func TestSetHeldPoseConnectsImmediately(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Mug", rl.Vector3{X: 1}, grabbable.DefaultSettings())

	require.NoError(t, h.SetHeldPose(pose.Data{Bends: []float32{0.4}}, g))

	assert.Equal(t, Held, h.State())
	assert.True(t, g.IsHeldBy(h))
	assert.Len(t, r.world.Joints(), 2)
	assert.InDelta(t, 0.4, h.fingers[0].Bend(), 1e-6)

	other := r.object(t, "Plate", rl.Vector3{X: -1}, grabbable.DefaultSettings())
	require.NoError(t, h.SetHeldPose(pose.Data{}, other))
	assert.False(t, g.IsHeld())
	assert.Same(t, other, h.Holding())
	assert.Len(t, r.world.Joints(), 2)
}

func TestSetHeldPoseRejectsWrongHand(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	settings := grabbable.DefaultSettings()
	settings.HandType = grabbable.LeftHand
	g := r.object(t, "Glove", rl.Vector3{X: 1}, settings)

	err := h.SetHeldPose(pose.Data{}, g)
	require.ErrorIs(t, err, ErrCannotGrab)
	assert.Equal(t, Idle, h.State())
}

func TestSqueezeReachesHeldObject(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Trigger", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	squeezes, unsqueezes := 0, 0
	g.OnSqueeze.AddListener(func(grabbable.Holder) { squeezes++ })
	g.OnUnsqueeze.AddListener(func(grabbable.Holder) { unsqueezes++ })

	h.Squeeze()
	assert.Zero(t, squeezes)
	h.Unsqueeze()

	h.Grab()
	h.Squeeze()
	assert.True(t, h.IsSqueezing())
	assert.Equal(t, 1, squeezes)

	h.ForceReleaseGrab()
	assert.Equal(t, 1, unsqueezes)
}

func TestDisableForceReleases(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, false, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Cup", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	h.Grab()
	h.Disable()

	assert.True(t, h.Disabled())
	assert.False(t, g.IsHeld())
	h.Grab()
	assert.Equal(t, Idle, h.State())

	h.Enable()
	// One tick to pull the palm back off the cup's face.
	r.step(1)
	h.Grab()
	assert.Equal(t, Held, h.State())
}

func TestMissingPalmDisablesGrabbing(t *testing.T) {
	r := newRig(t)
	obj := engine.NewGameObject("Stump")
	obj.AddComponent(components.NewRigidbody())
	h := New(false, DefaultSettings())
	obj.AddComponent(h)
	r.scene.AddGameObject(obj)
	r.world.AddObject(obj)
	h.Bind(r.world, r.reg, zap.NewNop())
	obj.Start()
	r.object(t, "Cup", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())

	assert.False(t, h.CanGrabAnything())
	assert.False(t, h.Disabled())
	h.Grab()
	assert.Equal(t, Idle, h.State())
}

func TestMissingBodyDisablesHand(t *testing.T) {
	obj := engine.NewGameObject("Ghost")
	h := New(true, DefaultSettings())
	obj.AddComponent(h)
	obj.Start()

	assert.True(t, h.Disabled())
	assert.NotPanics(t, func() {
		h.FixedUpdate(dt)
		h.Grab()
		h.Release()
	})
}

func TestLeftHandMirrorsHeldOffsets(t *testing.T) {
	r := newRig(t)
	h := r.hand(t, true, false, rl.Vector3{}, DefaultSettings())
	g := r.object(t, "Gun", rl.Vector3{Z: 0.15}, grabbable.DefaultSettings())
	g.HeldPositionOffset = rl.Vector3{X: 0.1}

	h.Grab()
	pos, _, ok := h.followPose()
	require.True(t, ok)
	want := rl.Vector3Add(h.grabPositionOffset, rl.Vector3RotateByQuaternion(rl.Vector3{X: -0.1}, h.body.Rotation()))
	assert.InDelta(t, want.X, pos.X, 1e-5)
	assert.InDelta(t, want.Z, pos.Z, 1e-5)
}
