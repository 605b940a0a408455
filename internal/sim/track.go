package sim

import (
	"fmt"
	"slices"

	"autohand/internal/components"
	"autohand/internal/engine"
	"autohand/internal/hand"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// TrackDef keyframes an object, usually a hand's follow target. Keys that
// leave out position or rotation hold the previous key's value. Ease names
// a grab curve and shapes every segment.
type TrackDef struct {
	Target string   `yaml:"target"`
	Ease   string   `yaml:"ease"`
	Keys   []KeyDef `yaml:"keys"`
}

type KeyDef struct {
	Tick     int                 `yaml:"tick"`
	Position *components.Vec3Def `yaml:"position"`
	Rotation *components.Vec3Def `yaml:"rotation"`
}

func (d TrackDef) validate() error {
	if d.Target == "" {
		return fmt.Errorf("%w: track without a target", ErrInvalidScenario)
	}
	if len(d.Keys) == 0 {
		return fmt.Errorf("%w: track %q has no keys", ErrInvalidScenario, d.Target)
	}
	for i := 1; i < len(d.Keys); i++ {
		if d.Keys[i].Tick <= d.Keys[i-1].Tick {
			return fmt.Errorf("%w: track %q keys out of order at %d", ErrInvalidScenario, d.Target, d.Keys[i].Tick)
		}
	}
	if _, err := hand.ParseCurve(d.Ease); err != nil {
		return fmt.Errorf("%w: track %q: %v", ErrInvalidScenario, d.Target, err)
	}
	return nil
}

type key struct {
	tick int
	pos  rl.Vector3
	rot  rl.Quaternion
}

type track struct {
	target *engine.GameObject
	ease   hand.Curve
	keys   []key
}

func (w *World) buildTrack(def TrackDef) (*track, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	target, err := w.Object(def.Target)
	if err != nil {
		return nil, fmt.Errorf("track: %w", err)
	}
	ease, _ := hand.ParseCurve(def.Ease)

	t := &track{target: target, ease: ease, keys: make([]key, 0, len(def.Keys))}
	pos, rot := target.WorldPosition(), target.WorldRotation()
	for _, k := range def.Keys {
		if k.Position != nil {
			pos = k.Position.Vector3()
		}
		if k.Rotation != nil {
			rot = eulerDegrees(*k.Rotation)
		}
		t.keys = append(t.keys, key{tick: k.Tick, pos: pos, rot: rot})
	}
	return t, nil
}

// sample returns the keyed transform at tick.
func (t *track) sample(tick int) (rl.Vector3, rl.Quaternion) {
	i, found := slices.BinarySearchFunc(t.keys, tick, func(k key, tick int) int { return k.tick - tick })
	switch {
	case found:
		return t.keys[i].pos, t.keys[i].rot
	case i == 0:
		return t.keys[0].pos, t.keys[0].rot
	case i == len(t.keys):
		last := t.keys[len(t.keys)-1]
		return last.pos, last.rot
	}
	a, b := t.keys[i-1], t.keys[i]
	f := t.ease(float32(tick-a.tick) / float32(b.tick-a.tick))
	return rl.Vector3Lerp(a.pos, b.pos, f), rl.QuaternionSlerp(a.rot, b.rot, f)
}

func (t *track) apply(tick int) {
	if t.target.Destroyed() {
		return
	}
	pos, rot := t.sample(tick)
	t.target.SetWorldPosition(pos)
	t.target.SetWorldRotation(rot)
}
