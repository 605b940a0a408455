package grabbable

import (
	"fmt"

	"autohand/internal/components"
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func init() {
	engine.RegisterComponent("DistanceGrabbable", func(props map[string]any) (engine.Component, error) {
		d := NewDistanceGrabbable()
		if err := engine.DecodeProps(props, &d.DistanceSettings); err != nil {
			return nil, err
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		return d, nil
	})
}

// DistanceSettings tune how an object flies to a hand that pulled it.
type DistanceSettings struct {
	Targetable bool `yaml:"targetable"`
	// InstantPull grabs at once instead of launching the object.
	InstantPull bool `yaml:"instantPull"`
	// ArcTime is the flight time in seconds of the launch arc.
	ArcTime    float32          `yaml:"arcTime"`
	StopLayers engine.LayerMask `yaml:"stopLayers"`

	// Gravitate bends the flight toward the hand once the hand has moved
	// RequiredPullDistance from where the pull began.
	Gravitate            bool    `yaml:"gravitate"`
	RequiredPullDistance float32 `yaml:"requiredPullDistance"`
	GravitationVelocity  float32 `yaml:"gravitationVelocity"`

	// Rotate turns the object toward the hand's rotation in flight until it
	// is within RotateUntil of the starting distance.
	Rotate        bool    `yaml:"rotate"`
	RotationSpeed float32 `yaml:"rotationSpeed"`
	RotateUntil   float32 `yaml:"rotateUntil"`
}

func DefaultDistanceSettings() DistanceSettings {
	return DistanceSettings{
		Targetable:           true,
		ArcTime:              0.6,
		Gravitate:            true,
		RequiredPullDistance: 0.2,
		GravitationVelocity:  1,
		Rotate:               true,
		RotationSpeed:        5,
		RotateUntil:          0.12,
	}
}

func (s DistanceSettings) Validate() error {
	switch {
	case s.ArcTime <= 0:
		return fmt.Errorf("%w: arc time must be positive", ErrInvalidSettings)
	case s.RequiredPullDistance < 0 || s.GravitationVelocity < 0:
		return fmt.Errorf("%w: negative gravitation", ErrInvalidSettings)
	case s.RotationSpeed < 0 || s.RotateUntil < 0 || s.RotateUntil > 1:
		return fmt.Errorf("%w: rotation out of range", ErrInvalidSettings)
	}
	return nil
}

// DistanceGrabbable lets a distance grabber target, select and pull the
// grabbable on the same object.
type DistanceGrabbable struct {
	engine.BaseComponent
	DistanceSettings

	OnPull           engine.Event
	OnPullCanceled   engine.Event
	OnStartTargeting engine.Event
	OnStopTargeting  engine.Event
	OnStartSelecting engine.Event
	OnStopSelecting  engine.Event

	grabbable *Grabbable
	body      *components.Rigidbody
	target    *engine.GameObject
	gravity   rl.Vector3

	launch      bool
	flying      bool
	rotating    bool
	startDist   float32
	pullOrigin  rl.Vector3
	originKnown bool
}

func NewDistanceGrabbable() *DistanceGrabbable {
	return &DistanceGrabbable{DistanceSettings: DefaultDistanceSettings()}
}

func (d *DistanceGrabbable) Start() { d.resolve() }

func (d *DistanceGrabbable) resolve() {
	if d.grabbable == nil {
		d.grabbable = engine.GetComponent[*Grabbable](d.GetGameObject())
	}
	if d.body == nil && d.grabbable != nil {
		d.body = d.grabbable.Body
	}
	if d.body == nil {
		d.body = engine.GetComponent[*components.Rigidbody](d.GetGameObject())
	}
}

func (d *DistanceGrabbable) Grabbable() *Grabbable {
	d.resolve()
	return d.grabbable
}

// GrabPriority ranks pointer hits the same way hand detection does.
func (d *DistanceGrabbable) GrabPriority() float32 {
	if d.Grabbable() == nil {
		return 1
	}
	return d.grabbable.GrabPriority()
}

// Flying reports a launched object that has not touched anything yet.
func (d *DistanceGrabbable) Flying() bool { return d.flying || d.launch }

// SetTarget launches the object at target on the next physics tick.
// gravity is the world gravity the arc has to beat.
func (d *DistanceGrabbable) SetTarget(target *engine.GameObject, gravity rl.Vector3) {
	d.target = target
	d.gravity = gravity
	d.launch = true
	d.originKnown = false
}

func (d *DistanceGrabbable) FixedUpdate(dt float32) {
	d.resolve()
	if d.InstantPull || d.body == nil || d.target == nil {
		return
	}
	if d.target.Destroyed() || (d.grabbable != nil && d.grabbable.IsHeld()) {
		d.stop()
		d.target = nil
		return
	}
	pos := d.body.Position()
	goal := d.target.WorldPosition()
	if d.launch {
		d.launch = false
		d.OnPull.Invoke()
		d.startDist = rl.Vector3Distance(pos, goal)
		d.body.Velocity = arcVelocity(pos, goal, d.ArcTime, d.gravity)
		d.body.WakeUp()
		d.flying = true
		d.rotating = true
	}
	if d.Rotate && d.rotating {
		if rl.Vector3Distance(pos, goal) > d.startDist*d.RotateUntil {
			t := min(d.RotationSpeed*dt, 1)
			d.body.SetRotation(rl.QuaternionNormalize(rl.QuaternionSlerp(d.body.Rotation(), d.target.WorldRotation(), t)))
		} else {
			d.rotating = false
		}
	}
	if d.Gravitate {
		d.gravitate(pos, goal)
	}
}

// gravitate steers the current speed at the hand once the hand has moved
// far enough since the launch.
func (d *DistanceGrabbable) gravitate(pos, goal rl.Vector3) {
	if !d.flying {
		d.originKnown = false
		return
	}
	if !d.originKnown {
		d.pullOrigin = goal
		d.originKnown = true
	}
	if rl.Vector3Distance(d.pullOrigin, goal) <= d.RequiredPullDistance {
		return
	}
	speed := rl.Vector3Length(d.body.Velocity)
	dir := rl.Vector3Normalize(rl.Vector3Subtract(goal, pos))
	d.body.Velocity = rl.Vector3Scale(dir, d.GravitationVelocity*speed)
}

func (d *DistanceGrabbable) stop() {
	d.launch = false
	d.flying = false
	d.rotating = false
}

// OnCollisionEnter ends the flight. Hitting a stop layer cancels the pull.
func (d *DistanceGrabbable) OnCollisionEnter(other *engine.GameObject) {
	d.stop()
	if other != nil && d.StopLayers.Contains(other.Layer) {
		d.OnPullCanceled.Invoke()
	}
}

func (d *DistanceGrabbable) OnCollisionExit(*engine.GameObject) {}

// arcVelocity is the launch velocity that lands at target after t seconds
// under gravity.
func arcVelocity(origin, target rl.Vector3, t float32, gravity rl.Vector3) rl.Vector3 {
	delta := rl.Vector3Subtract(target, origin)
	return rl.Vector3Subtract(rl.Vector3Scale(delta, 1/t), rl.Vector3Scale(gravity, 0.5*t))
}
