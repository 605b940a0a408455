package grabbable

import (
	"testing"

	"autohand/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type areaLog struct {
	enter, exit, grab, release, squeeze, unsqueeze []Holder
}

func watchArea(a *TriggerArea) *areaLog {
	l := &areaLog{}
	a.OnHandEnter.AddListener(func(h Holder) { l.enter = append(l.enter, h) })
	a.OnHandExit.AddListener(func(h Holder) { l.exit = append(l.exit, h) })
	a.OnHandGrab.AddListener(func(h Holder) { l.grab = append(l.grab, h) })
	a.OnHandRelease.AddListener(func(h Holder) { l.release = append(l.release, h) })
	a.OnHandSqueeze.AddListener(func(h Holder) { l.squeeze = append(l.squeeze, h) })
	a.OnHandUnsqueeze.AddListener(func(h Holder) { l.unsqueeze = append(l.unsqueeze, h) })
	return l
}

func (f *fixture) area(t *testing.T) *TriggerArea {
	t.Helper()
	obj := engine.NewGameObject("Button")
	a := NewTriggerArea()
	obj.AddComponent(a)
	f.scene.AddGameObject(obj)
	require.NoError(t, f.reg.Register(obj))
	found, ok := f.reg.TriggerAreaOf(obj)
	require.True(t, ok)
	require.Same(t, a, found)
	return a
}

func TestTriggerAreaOneHandedFirstHandDrives(t *testing.T) {
	f := newFixture(t)
	a := f.area(t)
	l := watchArea(a)
	first, second := f.hand(nil), f.hand(nil)

	a.Enter(first)
	a.Enter(second)
	a.Grab(second)
	a.Grab(first)
	a.Squeeze(first)

	assert.Equal(t, []Holder{first}, l.enter)
	assert.Equal(t, []Holder{first}, l.grab)
	assert.Equal(t, []Holder{first}, l.squeeze)
	assert.True(t, a.Grabbing())

	a.Exit(first)

	assert.Equal(t, []Holder{first}, l.exit)
	assert.Equal(t, []Holder{first}, l.release)
	assert.Equal(t, []Holder{first}, l.unsqueeze)
	assert.False(t, a.Grabbing())
	assert.False(t, a.Squeezing())
	// The remaining hand takes over.
	assert.Equal(t, []Holder{first, second}, l.enter)
	assert.Equal(t, []Holder{second}, a.Hands())

	a.Grab(second)
	a.Release(second)
	assert.Equal(t, []Holder{first, second}, l.grab)
	assert.Equal(t, []Holder{first, second}, l.release)
}

func TestTriggerAreaExitKeepsPressWhenConfigured(t *testing.T) {
	f := newFixture(t)
	a := f.area(t)
	a.ExitRelease = false
	l := watchArea(a)
	h := f.hand(nil)

	a.Enter(h)
	a.Grab(h)
	a.Exit(h)

	assert.Empty(t, l.release)
	assert.True(t, a.Grabbing())
	assert.Empty(t, a.Hands())
}

func TestTriggerAreaManyHandedEveryHandDrives(t *testing.T) {
	f := newFixture(t)
	a := f.area(t)
	a.OneHanded = false
	l := watchArea(a)
	first, second := f.hand(nil), f.hand(nil)

	a.Enter(first)
	a.Enter(second)
	a.Squeeze(second)
	a.Unsqueeze(first)

	assert.Equal(t, []Holder{first, second}, l.enter)
	assert.Equal(t, []Holder{second}, l.squeeze)
	assert.Equal(t, []Holder{first}, l.unsqueeze)
}

func TestTriggerAreaDropsHandsLeavingRegistry(t *testing.T) {
	f := newFixture(t)
	a := f.area(t)
	l := watchArea(a)
	gone, stays := f.hand(nil), f.hand(nil)
	f.reg.AddHand(gone)
	f.reg.AddHand(stays)
	a.Enter(gone)
	a.Enter(stays)
	a.FixedUpdate(0)
	require.Len(t, a.Hands(), 2)

	before := f.reg.Version()
	f.reg.RemoveHand(gone)
	assert.NotEqual(t, before, f.reg.Version())
	assert.Equal(t, []Holder{stays}, f.reg.Hands())

	a.FixedUpdate(0)

	assert.Equal(t, []Holder{gone}, l.exit)
	assert.Equal(t, []Holder{stays}, a.Hands())
}

func TestRegistryHandSetIgnoresDuplicates(t *testing.T) {
	f := newFixture(t)
	h := f.hand(nil)

	f.reg.AddHand(h)
	v := f.reg.Version()
	f.reg.AddHand(h)
	assert.Equal(t, v, f.reg.Version())
	assert.Len(t, f.reg.Hands(), 1)

	f.reg.RemoveHand(h)
	f.reg.RemoveHand(h)
	assert.Empty(t, f.reg.Hands())
	assert.Equal(t, v+1, f.reg.Version())
}

func TestUnregisterDetachesTriggerArea(t *testing.T) {
	f := newFixture(t)
	a := f.area(t)

	f.reg.Unregister(a.GetGameObject())

	_, ok := f.reg.TriggerAreaOf(a.GetGameObject())
	assert.False(t, ok)
	assert.NotPanics(t, func() { a.FixedUpdate(0) })
}
