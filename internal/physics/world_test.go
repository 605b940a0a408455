package physics

import (
	"testing"

	"autohand/internal/components"
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const step = float32(1) / 90

type contactRecorder struct {
	engine.BaseComponent
	collisionEnter, collisionExit []*engine.GameObject
	triggerEnter, triggerExit     []*engine.GameObject
	breaks                        int
}

func (p *contactRecorder) OnCollisionEnter(o *engine.GameObject) {
	p.collisionEnter = append(p.collisionEnter, o)
}
func (p *contactRecorder) OnCollisionExit(o *engine.GameObject) {
	p.collisionExit = append(p.collisionExit, o)
}
func (p *contactRecorder) OnTriggerEnter(o *engine.GameObject) {
	p.triggerEnter = append(p.triggerEnter, o)
}
func (p *contactRecorder) OnTriggerExit(o *engine.GameObject) {
	p.triggerExit = append(p.triggerExit, o)
}
func (p *contactRecorder) OnJointBreak(*engine.GameObject, float32) { p.breaks++ }

func newBall(name string, pos rl.Vector3, radius float32) (*engine.GameObject, *components.Rigidbody) {
	g := engine.NewGameObject(name)
	g.Transform.Position = pos
	rb := components.NewRigidbody()
	rb.CanSleep = false
	g.AddComponent(rb)
	g.AddComponent(components.NewSphereCollider(radius))
	return g, rb
}

func newFloor() *engine.GameObject {
	g := engine.NewGameObject("Floor")
	g.Transform.Position = rl.Vector3{Y: -0.5}
	g.AddComponent(components.NewBoxCollider(rl.Vector3{X: 20, Y: 1, Z: 20}))
	return g
}

func TestWorldGravityIntegratesVelocity(t *testing.T) {
	w := NewWorld(nil)
	ball, rb := newBall("Ball", rl.Vector3{Y: 10}, 0.1)
	w.AddObject(ball)

	for i := 0; i < 90; i++ {
		w.Step(step)
	}

	assert.InDelta(t, -9.81, rb.Velocity.Y, 0.1)
	assert.Less(t, ball.WorldPosition().Y, float32(6))
}

func TestWorldKinematicBodyIgnoresGravity(t *testing.T) {
	w := NewWorld(nil)
	ball, rb := newBall("Ball", rl.Vector3{Y: 1}, 0.1)
	rb.IsKinematic = true
	w.AddObject(ball)

	w.Step(step)

	assert.Equal(t, float32(1), ball.WorldPosition().Y)
}

func TestWorldBallRestsOnFloor(t *testing.T) {
	w := NewWorld(nil)
	floor := newFloor()
	ball, _ := newBall("Ball", rl.Vector3{Y: 0.5}, 0.1)
	rec := &contactRecorder{}
	ball.AddComponent(rec)
	w.AddObject(floor)
	w.AddObject(ball)

	for i := 0; i < 180; i++ {
		w.Step(step)
	}

	assert.InDelta(t, 0.1, ball.WorldPosition().Y, 0.02)
	require.Len(t, rec.collisionEnter, 1)
	assert.Same(t, floor, rec.collisionEnter[0])
}

func TestWorldIgnoredLayersPassThrough(t *testing.T) {
	w := NewWorld(nil)
	floor := newFloor()
	ball, _ := newBall("Ball", rl.Vector3{Y: 0.2}, 0.1)
	ball.Layer = 3
	w.IgnoreLayerCollision(0, 3, true)
	w.AddObject(floor)
	w.AddObject(ball)

	for i := 0; i < 60; i++ {
		w.Step(step)
	}

	assert.Less(t, ball.WorldPosition().Y, float32(-0.5))
	assert.False(t, w.LayersCollide(3, 0))
	assert.True(t, w.LayersCollide(3, 3))
}

func TestWorldTriggerEnterAndExit(t *testing.T) {
	w := NewWorld(nil)
	zone := engine.NewGameObject("Zone")
	trigger := components.NewSphereCollider(0.5)
	trigger.IsTrigger = true
	zone.AddComponent(trigger)
	zoneRec := &contactRecorder{}
	zone.AddComponent(zoneRec)

	ball, rb := newBall("Ball", rl.Vector3{}, 0.1)
	rb.UseGravity = false
	w.AddObject(zone)
	w.AddObject(ball)

	w.Step(step)
	require.Len(t, zoneRec.triggerEnter, 1)
	assert.Same(t, ball, zoneRec.triggerEnter[0])
	assert.Empty(t, zoneRec.collisionEnter)

	w.Step(step)
	assert.Len(t, zoneRec.triggerEnter, 1)

	ball.Transform.Position = rl.Vector3{X: 3}
	w.Step(step)
	require.Len(t, zoneRec.triggerExit, 1)
	assert.Same(t, ball, zoneRec.triggerExit[0])
}

func TestWorldExitDeliveredForDestroyedObject(t *testing.T) {
	scene := engine.NewScene("Test")
	w := NewWorld(nil)
	zone := engine.NewGameObject("Zone")
	trigger := components.NewBoxCollider(rl.Vector3{X: 1, Y: 1, Z: 1})
	trigger.IsTrigger = true
	zone.AddComponent(trigger)
	rec := &contactRecorder{}
	zone.AddComponent(rec)
	ball, rb := newBall("Ball", rl.Vector3{}, 0.1)
	rb.UseGravity = false
	scene.AddGameObject(zone)
	scene.AddGameObject(ball)
	w.AddObject(zone)
	w.AddObject(ball)

	w.Step(step)
	scene.Destroy(ball)
	w.Step(step)

	assert.Len(t, rec.triggerExit, 1)
}

func TestFixedJointHoldsRelativePose(t *testing.T) {
	w := NewWorld(nil)
	anchor, a := newBall("Anchor", rl.Vector3{Y: 1}, 0.05)
	a.IsKinematic = true
	load, b := newBall("Load", rl.Vector3{X: 0.2, Y: 1}, 0.05)
	w.AddObject(anchor)
	w.AddObject(load)

	j, err := w.CreateFixedJoint(a, b, JointConfig{})
	require.NoError(t, err)

	for i := 0; i < 90; i++ {
		w.Step(step)
	}

	assert.False(t, j.Destroyed())
	assert.InDelta(t, 0.2, load.WorldPosition().X, 0.05)
	assert.InDelta(t, 1, load.WorldPosition().Y, 0.05)
}

func TestCreateFixedJointValidates(t *testing.T) {
	w := NewWorld(nil)
	_, a := newBall("A", rl.Vector3{}, 0.1)

	_, err := w.CreateFixedJoint(a, nil, JointConfig{})
	assert.ErrorIs(t, err, ErrNoBody)
	_, err = w.CreateFixedJoint(a, a, JointConfig{})
	assert.ErrorIs(t, err, ErrSameBody)
}

func TestFixedJointBreaksOnceAndSkipsDestroyed(t *testing.T) {
	w := NewWorld(nil)
	handA, a := newBall("HandA", rl.Vector3{}, 0.05)
	a.UseGravity = false
	recA := &contactRecorder{}
	handA.AddComponent(recA)
	obj, b := newBall("Object", rl.Vector3{X: 0.1}, 0.05)
	b.UseGravity = false
	w.AddObject(handA)
	w.AddObject(obj)

	first, err := w.CreateFixedJoint(a, b, JointConfig{BreakForce: 100, BreakTorque: 100})
	require.NoError(t, err)
	second, err := w.CreateFixedJoint(b, a, JointConfig{BreakForce: 100, BreakTorque: 100})
	require.NoError(t, err)
	require.NoError(t, w.DestroyJoint(second))
	assert.ErrorIs(t, w.DestroyJoint(second), ErrJointRemoved)

	handA.Transform.Position = rl.Vector3{X: -10}
	w.Step(step)

	assert.True(t, first.Broken())
	assert.False(t, second.Broken())
	assert.Equal(t, 1, recA.breaks)
	assert.Empty(t, w.Joints())
}

func TestJointedBodiesDoNotCollide(t *testing.T) {
	w := NewWorld(nil)
	handA, a := newBall("Hand", rl.Vector3{}, 0.1)
	a.UseGravity = false
	rec := &contactRecorder{}
	handA.AddComponent(rec)
	obj, b := newBall("Object", rl.Vector3{X: 0.15}, 0.1)
	b.UseGravity = false
	w.AddObject(handA)
	w.AddObject(obj)

	_, err := w.CreateFixedJoint(a, b, JointConfig{})
	require.NoError(t, err)
	w.Step(step)

	assert.Empty(t, rec.collisionEnter)
}

func TestRemoveObjectDestroysItsJoints(t *testing.T) {
	w := NewWorld(nil)
	ga, a := newBall("A", rl.Vector3{}, 0.1)
	gb, b := newBall("B", rl.Vector3{X: 1}, 0.1)
	w.AddObject(ga)
	w.AddObject(gb)
	j, err := w.CreateFixedJoint(a, b, JointConfig{})
	require.NoError(t, err)

	w.RemoveObject(gb)

	assert.True(t, j.Destroyed())
	assert.False(t, j.Broken())
	assert.Len(t, w.Bodies(), 1)
}
