package sim

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autohand/internal/components"
	"autohand/internal/config"
	"autohand/internal/engine"
	"autohand/internal/hand"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const rigYAML = `
name: handoff
ticks: 60
objects:
  - name: Right Target
    position: {y: 1}
  - name: Left Target
    position: {y: 1, z: 0.3}
    rotation: {y: 180}
  - name: Right Hand
    position: {y: 1}
    components:
      - type: Rigidbody
      - type: SphereCollider
        radius: 0.03
      - type: Hand
        follow: Right Target
    children:
      - name: Palm
      - name: Index
        components:
          - type: Finger
  - name: Left Hand
    position: {y: 1, z: 0.3}
    rotation: {y: 180}
    components:
      - type: Rigidbody
      - type: SphereCollider
        radius: 0.03
      - type: Hand
        left: true
        follow: Left Target
    children:
      - name: Palm
      - name: Index
        components:
          - type: Finger
  - name: Cup
    position: {y: 1, z: 0.15}
    components:
      - type: Rigidbody
      - type: BoxCollider
        size: {x: 0.1, y: 0.1, z: 0.1}
      - type: Grabbable
        singleHandOnly: true
poses:
  mug:
    bends: [0.4]
`

func build(t *testing.T, extra string, cfg *config.Config) *World {
	t.Helper()
	s, err := Load(strings.NewReader(rigYAML + extra))
	require.NoError(t, err)
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Physics.Gravity = components.Vec3Def{}
	w, err := s.Build(cfg, zap.NewNop())
	require.NoError(t, err)
	return w
}

func mustHand(t *testing.T, w *World, name string) *hand.Hand {
	t.Helper()
	h, err := w.Hand(name)
	require.NoError(t, err)
	return h
}

func TestBuildBindsScenario(t *testing.T) {
	w := build(t, "", nil)

	assert.Len(t, w.Hands(), 2)
	right := mustHand(t, w, "Right Hand")
	assert.True(t, right.CanGrabAnything())
	assert.Len(t, right.Fingers(), 1)

	_, err := w.Hand("Nobody")
	assert.ErrorIs(t, err, ErrUnknownHand)
	_, err = w.Grabbable("Right Target")
	assert.ErrorIs(t, err, ErrUnknownObject)

	cup, err := w.Grabbable("Cup")
	require.NoError(t, err)
	assert.True(t, cup.SingleHandOnly)
	assert.Equal(t, w.Layers.Grabbable, cup.GetGameObject().Layer)
	assert.Equal(t, w.Layers.Hand, right.GetGameObject().Layer)
}

func TestHandoffBetweenHands(t *testing.T) {
	w := build(t, `
inputs:
  - {tick: 1, action: grab, hand: Right Hand}
  - {tick: 20, action: grab, hand: Left Hand}
`, nil)

	w.Run(30)

	left := mustHand(t, w, "Left Hand")
	right := mustHand(t, w, "Right Hand")
	assert.Equal(t, hand.Held, left.State())
	assert.Nil(t, right.Holding())
	// The cup is still in front of the right palm.
	assert.Equal(t, hand.Targeting, right.State())

	log := w.Events()
	grabs := log.Of(EventGrab)
	require.Len(t, grabs, 2)
	assert.Equal(t, "Right Hand", grabs[0].Hand)
	assert.Equal(t, 1, grabs[0].Tick)
	assert.Equal(t, "Left Hand", grabs[1].Hand)
	assert.Equal(t, 1, log.Count(EventForcedRelease))

	s := w.Summarize("handoff")
	assert.Equal(t, "Cup", s.Held["Left Hand"])
	assert.Equal(t, "", s.Held["Right Hand"])
	assert.Equal(t, 30, s.Ticks)
	assert.Contains(t, s.String(), "grab=2")
}

func TestTrackedReleaseThrows(t *testing.T) {
	w := build(t, `
tracks:
  - target: Right Target
    keys:
      - {tick: 20, position: {y: 1}}
      - {tick: 40, position: {x: 0.5, y: 1}}
inputs:
  - {tick: 1, action: grab, hand: Right Hand}
  - {tick: 35, action: release, hand: Right Hand}
`, nil)

	w.Run(40)

	log := w.Events()
	assert.Equal(t, 1, log.Count(EventThrow))
	assert.Zero(t, log.Count(EventRelease))
	cup, err := w.Grabbable("Cup")
	require.NoError(t, err)
	assert.Positive(t, cup.Body.Velocity.X)
}

func TestDestroyInputForceReleases(t *testing.T) {
	w := build(t, `
inputs:
  - {tick: 1, action: grab, hand: Right Hand}
  - {tick: 10, action: destroy, object: Cup}
`, nil)

	w.Run(12)

	right := mustHand(t, w, "Right Hand")
	assert.Equal(t, hand.Idle, right.State())
	assert.Equal(t, 1, w.Events().Count(EventForcedRelease))
	_, err := w.Object("Cup")
	assert.ErrorIs(t, err, ErrUnknownObject)
	assert.Empty(t, w.Physics.Joints())
}

func TestSetGrabbableInputStopsGrabs(t *testing.T) {
	w := build(t, `
inputs:
  - {tick: 0, action: setGrabbable, object: Cup, enabled: false}
  - {tick: 1, action: grab, hand: Right Hand}
`, nil)

	w.Run(5)

	assert.Zero(t, w.Events().Count(EventGrab))
}

func TestSetHeldPoseInput(t *testing.T) {
	w := build(t, `
inputs:
  - {tick: 2, action: setHeldPose, hand: Left Hand, object: Cup, pose: mug}
  - {tick: 4, action: squeeze, hand: Left Hand}
`, nil)

	w.Run(6)

	left := mustHand(t, w, "Left Hand")
	assert.Equal(t, hand.Held, left.State())
	assert.InDelta(t, 0.4, left.Fingers()[0].Bend(), 1e-6)
	assert.Equal(t, 1, w.Events().Count(EventSqueeze))
}

func TestTryGrabInput(t *testing.T) {
	w := build(t, `
inputs:
  - {tick: 1, action: tryGrab, hand: Left Hand, object: Cup}
`, nil)

	w.Run(3)

	assert.Equal(t, hand.Held, mustHand(t, w, "Left Hand").State())
}

func TestConfigHandDefaultsApply(t *testing.T) {
	cfg := config.Default()
	cfg.Hand.ReachDistance = 0.01
	w := build(t, `
inputs:
  - {tick: 1, action: grab, hand: Right Hand}
`, cfg)

	w.Run(3)

	assert.Equal(t, float32(0.01), mustHand(t, w, "Right Hand").ReachDistance)
	assert.Zero(t, w.Events().Count(EventGrab))
}

func TestTrackSampleEasesBetweenKeys(t *testing.T) {
	obj := engine.NewGameObject("Target")
	tr := &track{target: obj}
	tr.ease, _ = hand.ParseCurve("quadIn")
	tr.keys = []key{
		{tick: 10, pos: rl.Vector3{}, rot: rl.QuaternionIdentity()},
		{tick: 20, pos: rl.Vector3{X: 1}, rot: rl.QuaternionIdentity()},
	}

	pos, _ := tr.sample(0)
	assert.Equal(t, rl.Vector3{}, pos)
	pos, _ = tr.sample(15)
	assert.InDelta(t, 0.25, pos.X, 1e-6)
	pos, _ = tr.sample(20)
	assert.Equal(t, float32(1), pos.X)
	pos, _ = tr.sample(99)
	assert.Equal(t, float32(1), pos.X)

	tr.apply(15)
	assert.InDelta(t, 0.25, obj.WorldPosition().X, 1e-6)
}

func TestTimelineOrdersByTickStably(t *testing.T) {
	tl := newTimeline([]Input{
		{Tick: 5, Action: ActionRelease, Hand: "a"},
		{Tick: 1, Action: ActionGrab, Hand: "b"},
		{Tick: 5, Action: ActionSqueeze, Hand: "c"},
	}, nil)

	var hands []string
	for _, in := range tl.inputs {
		hands = append(hands, in.Hand)
	}
	assert.Equal(t, []string{"b", "a", "c"}, hands)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"unknown action": "inputs:\n  - {tick: 1, action: wave, hand: A}\n",
		"missing hand":   "inputs:\n  - {tick: 1, action: grab}\n",
		"missing object": "inputs:\n  - {tick: 1, action: tryGrab, hand: A}\n",
		"missing pose":   "inputs:\n  - {tick: 1, action: setHeldPose, hand: A, object: B}\n",
		"key order":      "tracks:\n  - target: T\n    keys: [{tick: 5}, {tick: 5}]\n",
		"no keys":        "tracks:\n  - target: T\n",
		"bad ease":       "tracks:\n  - target: T\n    ease: wobble\n    keys: [{tick: 1}]\n",
		"unnamed":        "objects:\n  - position: {x: 1}\n",
		"unknown field":  "object: []\n",
		"ticks":          "ticks: -1\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(src))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestBuildRejectsUnknownComponent(t *testing.T) {
	s, err := Load(strings.NewReader("objects:\n  - name: A\n    components:\n      - type: Teleporter\n"))
	require.NoError(t, err)

	_, err = s.Build(nil, nil)
	assert.ErrorIs(t, err, engine.ErrUnknownComponent)
}

func TestBuildRejectsTrackWithoutTarget(t *testing.T) {
	s, err := Load(strings.NewReader("tracks:\n  - target: Ghost\n    keys: [{tick: 0}]\n"))
	require.NoError(t, err)

	_, err = s.Build(nil, nil)
	assert.ErrorIs(t, err, ErrUnknownObject)
}

func TestLoadFileNamesScenarioAfterPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ticks: 3\n"), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Name)
	assert.Equal(t, 3, s.Ticks)
}

func TestExampleScenariosBuildAndRun(t *testing.T) {
	paths, err := filepath.Glob("../../scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadFile(path)
			require.NoError(t, err)
			w, err := s.Build(nil, zap.NewNop())
			require.NoError(t, err)
			assert.NotPanics(t, func() { w.Run(s.Ticks) })
			assert.NotZero(t, w.Events().Count(EventGrab))
		})
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := config.LoadFile("../../configs/handsim.yaml")
	require.NoError(t, err)
	_, err = New(cfg, nil)
	assert.NoError(t, err)
}

const pullYAML = `
name: pull
ticks: 10
objects:
  - name: Target
    position: {y: 1}
  - name: Hand
    position: {y: 1}
    components:
      - type: Rigidbody
      - type: SphereCollider
        radius: 0.03
      - type: Hand
        follow: Target
    children:
      - name: Palm
      - name: Pointer
        components:
          - type: DistanceGrabber
      - name: Index
        components:
          - type: Finger
  - name: Ball
    position: {y: 1, z: 2}
    components:
      - type: Rigidbody
      - type: BoxCollider
        size: {x: 0.1, y: 0.1, z: 0.1}
      - type: Grabbable
      - type: DistanceGrabbable
        instantPull: true
inputs:
  - {tick: 1, action: startPointing, hand: Hand}
  - {tick: 2, action: selectTarget, hand: Hand}
  - {tick: 3, action: activatePull, hand: Hand}
`

func TestPointerInputsPullIntoHand(t *testing.T) {
	s, err := Load(strings.NewReader(pullYAML))
	require.NoError(t, err)
	cfg := config.Default()
	cfg.Physics.Gravity = components.Vec3Def{}
	w, err := s.Build(cfg, zap.NewNop())
	require.NoError(t, err)

	w.Run(5)

	h := mustHand(t, w, "Hand")
	assert.Equal(t, hand.Held, h.State())
	pulls := w.Events().Of(EventPull)
	require.Len(t, pulls, 1)
	assert.Equal(t, "Ball", pulls[0].Object)
	assert.Equal(t, 3, pulls[0].Tick)
	assert.Equal(t, 1, w.Events().Count(EventGrab))
	assert.Contains(t, w.Summarize("pull").String(), "pull=1")

	_, err = w.DistanceGrabber("Ball")
	assert.ErrorIs(t, err, ErrUnknownHand)
}

func TestPointerInputWithoutTargetFails(t *testing.T) {
	w := build(t, `
inputs:
  - {tick: 1, action: selectTarget, hand: Right Hand}
`, nil)

	assert.NotPanics(t, func() { w.Run(2) })
	assert.Zero(t, w.Events().Count(EventPull))
}
