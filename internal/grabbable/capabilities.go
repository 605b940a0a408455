package grabbable

import "autohand/internal/engine"

func init() {
	engine.RegisterComponent("GrabLock", func(props map[string]any) (engine.Component, error) {
		return &GrabLock{}, nil
	})
	engine.RegisterComponent("TouchEvent", func(props map[string]any) (engine.Component, error) {
		t := &TouchEvent{OneHanded: true}
		if err := engine.DecodeProps(props, t); err != nil {
			return nil, err
		}
		return t, nil
	})
}

// GrabbableChild links a child collider to the grabbable that owns it.
// The registry adds these; scenarios never declare them.
type GrabbableChild struct {
	engine.BaseComponent
	Parent *Grabbable
}

// GrabLock keeps a held object in the hand when the grab input is
// released. Pressing grab again while held fires OnGrabPressed instead.
type GrabLock struct {
	engine.BaseComponent
	OnGrabPressed engine.Event
}

// TouchEvent reports hands touching an object. With OneHanded, the first
// hand in owns the stop event.
type TouchEvent struct {
	engine.BaseComponent
	OneHanded bool `yaml:"oneHanded"`

	OnStartTouch engine.EventWithArg[Holder] `yaml:"-"`
	OnStopTouch  engine.EventWithArg[Holder] `yaml:"-"`

	hands []Holder
}

func (t *TouchEvent) Touching() []Holder { return t.hands }

func (t *TouchEvent) Touch(h Holder) {
	if indexOfHolder(t.hands, h) >= 0 {
		return
	}
	t.OnStartTouch.Invoke(h)
	t.hands = append(t.hands, h)
}

func (t *TouchEvent) Untouch(h Holder) {
	i := indexOfHolder(t.hands, h)
	if i < 0 {
		return
	}
	switch {
	case t.OneHanded && i == 0:
		t.OnStopTouch.Invoke(h)
		if len(t.hands) > 1 {
			t.OnStartTouch.Invoke(t.hands[1])
		}
	case !t.OneHanded:
		t.OnStopTouch.Invoke(h)
	}
	t.hands = append(t.hands[:i], t.hands[i+1:]...)
}
