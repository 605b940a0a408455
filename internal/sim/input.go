package sim

import (
	"fmt"
	"slices"

	"autohand/internal/pose"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Action int

const (
	ActionGrab Action = iota
	ActionRelease
	ActionReleaseLock
	ActionSqueeze
	ActionUnsqueeze
	ActionForceRelease
	ActionTryGrab
	ActionDistanceGrab
	ActionSetHeldPose
	ActionUpdatePose
	ActionSetGrip
	ActionDisable
	ActionEnable
	ActionDestroy
	ActionSetGrabbable
	ActionStartPointing
	ActionStopPointing
	ActionSelectTarget
	ActionCancelSelect
	ActionActivatePull
)

var actionNames = map[Action]string{
	ActionGrab:         "grab",
	ActionRelease:      "release",
	ActionReleaseLock:  "releaseLock",
	ActionSqueeze:      "squeeze",
	ActionUnsqueeze:    "unsqueeze",
	ActionForceRelease: "forceRelease",
	ActionTryGrab:      "tryGrab",
	ActionDistanceGrab: "distanceGrab",
	ActionSetHeldPose:  "setHeldPose",
	ActionUpdatePose:   "updatePose",
	ActionSetGrip:      "setGrip",
	ActionDisable:      "disable",
	ActionEnable:       "enable",
	ActionDestroy:      "destroy",
	ActionSetGrabbable: "setGrabbable",

	ActionStartPointing: "startPointing",
	ActionStopPointing:  "stopPointing",
	ActionSelectTarget:  "selectTarget",
	ActionCancelSelect:  "cancelSelect",
	ActionActivatePull:  "activatePull",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrInvalidScenario, s)
}

func (a Action) MarshalYAML() (any, error) { return a.String(), nil }

func (a *Action) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Action) needsHand() bool {
	return a != ActionDestroy && a != ActionSetGrabbable
}

func (a Action) needsObject() bool {
	switch a {
	case ActionTryGrab, ActionDistanceGrab, ActionSetHeldPose, ActionDestroy, ActionSetGrabbable:
		return true
	}
	return false
}

// Input is one scripted press at a tick. Value is the grip for setGrip and
// the duration in seconds for updatePose.
type Input struct {
	Tick    int     `yaml:"tick"`
	Action  Action  `yaml:"action"`
	Hand    string  `yaml:"hand"`
	Object  string  `yaml:"object"`
	Pose    string  `yaml:"pose"`
	Value   float32 `yaml:"value"`
	Enabled bool    `yaml:"enabled"`
}

func (in Input) validate() error {
	switch {
	case in.Tick < 0:
		return fmt.Errorf("%w: negative tick", ErrInvalidScenario)
	case in.Action.needsHand() && in.Hand == "":
		return fmt.Errorf("%w: %s needs a hand", ErrInvalidScenario, in.Action)
	case in.Action.needsObject() && in.Object == "":
		return fmt.Errorf("%w: %s needs an object", ErrInvalidScenario, in.Action)
	case (in.Action == ActionSetHeldPose || in.Action == ActionUpdatePose) && in.Pose == "":
		return fmt.Errorf("%w: %s needs a pose", ErrInvalidScenario, in.Action)
	}
	return nil
}

// timeline replays inputs in tick order. Inputs sharing a tick run in file
// order.
type timeline struct {
	inputs []Input
	poses  *pose.Library
	next   int
}

func newTimeline(inputs []Input, poses *pose.Library) *timeline {
	sorted := slices.Clone(inputs)
	slices.SortStableFunc(sorted, func(a, b Input) int { return a.Tick - b.Tick })
	return &timeline{inputs: sorted, poses: poses}
}

func (t *timeline) run(w *World, tick int) {
	for t.next < len(t.inputs) && t.inputs[t.next].Tick <= tick {
		in := t.inputs[t.next]
		t.next++
		if err := t.apply(w, in); err != nil {
			w.logger.Warn("input failed",
				zap.Int("tick", tick),
				zap.Stringer("action", in.Action),
				zap.Error(err))
		}
	}
}

func (t *timeline) apply(w *World, in Input) error {
	switch in.Action {
	case ActionDestroy, ActionSetGrabbable:
		return t.applyObject(w, in)
	case ActionStartPointing, ActionStopPointing, ActionSelectTarget, ActionCancelSelect, ActionActivatePull:
		return t.applyPointer(w, in)
	}
	h, err := w.Hand(in.Hand)
	if err != nil {
		return err
	}
	switch in.Action {
	case ActionGrab:
		h.Grab()
	case ActionRelease:
		h.Release()
	case ActionReleaseLock:
		h.ReleaseGrabLock()
	case ActionSqueeze:
		h.Squeeze()
	case ActionUnsqueeze:
		h.Unsqueeze()
	case ActionForceRelease:
		h.ForceReleaseGrab()
	case ActionSetGrip:
		h.SetGrip(in.Value)
	case ActionDisable:
		h.Disable()
	case ActionEnable:
		h.Enable()
	case ActionUpdatePose:
		d, err := t.poses.Get(in.Pose)
		if err != nil {
			return err
		}
		h.UpdatePose(d, in.Value)
	case ActionTryGrab, ActionDistanceGrab, ActionSetHeldPose:
		g, err := w.Grabbable(in.Object)
		if err != nil {
			return err
		}
		switch in.Action {
		case ActionTryGrab:
			h.TryGrab(g)
		case ActionDistanceGrab:
			if h.Palm() == nil {
				return fmt.Errorf("%q has not started", in.Hand)
			}
			from := h.Palm().WorldPosition()
			to := g.GetGameObject().WorldPosition()
			hit, ok := w.Physics.Raycast(from, rl.Vector3Subtract(to, from), rl.Vector3Distance(from, to)*2, w.Layers.ReachMask())
			if !ok || !h.GrabHit(hit, g) {
				return fmt.Errorf("distance grab of %q refused", in.Object)
			}
		case ActionSetHeldPose:
			d, err := t.poses.Get(in.Pose)
			if err != nil {
				return err
			}
			return h.SetHeldPose(d, g)
		}
	}
	return nil
}

func (t *timeline) applyPointer(w *World, in Input) error {
	d, err := w.DistanceGrabber(in.Hand)
	if err != nil {
		return err
	}
	switch in.Action {
	case ActionStartPointing:
		d.StartPointing()
	case ActionStopPointing:
		d.StopPointing()
	case ActionSelectTarget:
		if !d.SelectTarget() {
			return fmt.Errorf("%q is not pointing at anything", in.Hand)
		}
	case ActionCancelSelect:
		d.CancelSelect()
	case ActionActivatePull:
		if !d.ActivatePull() {
			return fmt.Errorf("pull by %q refused", in.Hand)
		}
	}
	return nil
}

func (t *timeline) applyObject(w *World, in Input) error {
	obj, err := w.Object(in.Object)
	if err != nil {
		return err
	}
	if in.Action == ActionDestroy {
		w.Scene.Destroy(obj)
		return nil
	}
	g, err := w.Grabbable(in.Object)
	if err != nil {
		return err
	}
	g.IsGrabbable = in.Enabled
	return nil
}
