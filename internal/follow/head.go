package follow

import (
	"fmt"

	"autohand/internal/components"
	"autohand/internal/engine"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"
)

func init() {
	engine.RegisterComponent("HeadFollower", func(props map[string]any) (engine.Component, error) {
		def := headFollowerDef{Settings: DefaultSettings()}
		if err := engine.DecodeProps(props, &def); err != nil {
			return nil, err
		}
		if err := def.Settings.Validate(); err != nil {
			return nil, err
		}
		return &HeadFollower{Target: def.Target, Settings: def.Settings}, nil
	})
}

type headFollowerDef struct {
	Target   string `yaml:"target"`
	Settings `yaml:",inline"`
}

// HeadFollower chases the headset object named Target with the same
// controller the hands use. It never holds anything, so a large gap just
// snaps it into place.
type HeadFollower struct {
	engine.BaseComponent
	Target   string
	Settings Settings

	target     *engine.GameObject
	controller *Controller
	logger     *zap.Logger
	dt         float32
}

// SetLogger is called when the follower joins a simulation.
func (h *HeadFollower) SetLogger(logger *zap.Logger) {
	h.logger = logger
}

// SetTarget binds the followed object directly.
func (h *HeadFollower) SetTarget(target *engine.GameObject) {
	h.target = target
}

func (h *HeadFollower) Start() {
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	g := h.GetGameObject()
	body := engine.GetComponent[*components.Rigidbody](g)
	if body == nil {
		h.logger.Error("head follower disabled", zap.String("object", g.Name),
			zap.Error(fmt.Errorf("%s: %w", g.Name, ErrNoBody)))
		return
	}
	body.UseGravity = false
	h.controller = NewController(body, h.Settings)
	if h.target == nil && h.Target != "" && g.Scene != nil {
		h.target = g.Scene.FindByName(h.Target)
	}
	if h.target == nil {
		h.logger.Warn("head follower has no target", zap.String("target", h.Target))
	}
}

func (h *HeadFollower) FixedUpdate(dt float32) {
	if h.controller == nil || h.target == nil || h.target.Destroyed() {
		return
	}
	h.controller.MoveTo(h.target.WorldPosition(), dt, Hold{})
	h.controller.TorqueTo(h.target.WorldRotation())
}

// Offset is the gap between the follower and its target.
func (h *HeadFollower) Offset() rl.Vector3 {
	if h.target == nil {
		return rl.Vector3{}
	}
	return rl.Vector3Subtract(h.target.WorldPosition(), h.GetGameObject().WorldPosition())
}
