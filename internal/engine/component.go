package engine

type Component interface {
	Start()
	Update(deltaTime float32)
	SetGameObject(g *GameObject)
	GetGameObject() *GameObject
}

// FixedUpdater is implemented by components that step with the physics tick.
// All grab state changes happen here, never in Update.
type FixedUpdater interface {
	FixedUpdate(deltaTime float32)
}

// Destroyable is notified before its GameObject leaves the scene.
type Destroyable interface {
	OnDestroy()
}

// CollisionHandler is implemented by components that want to receive collision callbacks.
type CollisionHandler interface {
	OnCollisionEnter(other *GameObject)
	OnCollisionExit(other *GameObject)
}

// TriggerHandler receives overlap callbacks for trigger colliders.
type TriggerHandler interface {
	OnTriggerEnter(other *GameObject)
	OnTriggerExit(other *GameObject)
}

// JointBreakHandler is notified when a joint owned by its GameObject
// exceeds its break force or torque.
type JointBreakHandler interface {
	OnJointBreak(connected *GameObject, force float32)
}

// BaseComponent provides default implementation for Component interface
type BaseComponent struct {
	gameObject *GameObject
}

func (b *BaseComponent) Start() {}

func (b *BaseComponent) Update(deltaTime float32) {}

func (b *BaseComponent) SetGameObject(g *GameObject) {
	b.gameObject = g
}

func (b *BaseComponent) GetGameObject() *GameObject {
	return b.gameObject
}
