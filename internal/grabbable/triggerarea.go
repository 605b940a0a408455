package grabbable

import "autohand/internal/engine"

func init() {
	engine.RegisterComponent("TriggerArea", func(props map[string]any) (engine.Component, error) {
		a := NewTriggerArea()
		if err := engine.DecodeProps(props, a); err != nil {
			return nil, err
		}
		return a, nil
	})
}

// TriggerArea relays the trigger and grip buttons of hands inside a
// trigger collider. With OneHanded, only the first hand in drives the
// events until it leaves.
type TriggerArea struct {
	engine.BaseComponent
	OneHanded bool `yaml:"oneHanded"`
	// ExitRelease and ExitUnsqueeze end a press that is still active when
	// its hand leaves.
	ExitRelease   bool `yaml:"exitRelease"`
	ExitUnsqueeze bool `yaml:"exitUnsqueeze"`

	OnHandEnter     engine.EventWithArg[Holder] `yaml:"-"`
	OnHandExit      engine.EventWithArg[Holder] `yaml:"-"`
	OnHandGrab      engine.EventWithArg[Holder] `yaml:"-"`
	OnHandRelease   engine.EventWithArg[Holder] `yaml:"-"`
	OnHandSqueeze   engine.EventWithArg[Holder] `yaml:"-"`
	OnHandUnsqueeze engine.EventWithArg[Holder] `yaml:"-"`

	registry  *Registry
	seen      uint64
	hands     []Holder
	grabbing  bool
	squeezing bool
}

func NewTriggerArea() *TriggerArea {
	return &TriggerArea{OneHanded: true, ExitRelease: true, ExitUnsqueeze: true}
}

func (a *TriggerArea) Hands() []Holder { return a.hands }
func (a *TriggerArea) Grabbing() bool  { return a.grabbing }
func (a *TriggerArea) Squeezing() bool { return a.squeezing }

// FixedUpdate drops hands that left the registry, which happens when a
// hand is disabled or destroyed while inside.
func (a *TriggerArea) FixedUpdate(float32) {
	if a.registry == nil || a.registry.Version() == a.seen {
		return
	}
	a.seen = a.registry.Version()
	live := a.registry.Hands()
	for _, h := range append([]Holder(nil), a.hands...) {
		if indexOfHolder(live, h) < 0 {
			a.Exit(h)
		}
	}
}

// owns reports whether h drives the area's events.
func (a *TriggerArea) owns(h Holder) bool {
	if !a.OneHanded {
		return true
	}
	return len(a.hands) > 0 && a.hands[0] == h
}

func (a *TriggerArea) Enter(h Holder) {
	if indexOfHolder(a.hands, h) >= 0 {
		return
	}
	a.hands = append(a.hands, h)
	if !a.OneHanded || len(a.hands) == 1 {
		a.OnHandEnter.Invoke(h)
	}
}

func (a *TriggerArea) Exit(h Holder) {
	i := indexOfHolder(a.hands, h)
	if i < 0 {
		return
	}
	if a.owns(h) {
		a.OnHandExit.Invoke(h)
		if a.grabbing && a.ExitRelease {
			a.grabbing = false
			a.OnHandRelease.Invoke(h)
		}
		if a.squeezing && a.ExitUnsqueeze {
			a.squeezing = false
			a.OnHandUnsqueeze.Invoke(h)
		}
	}
	a.hands = append(a.hands[:i], a.hands[i+1:]...)
	if a.OneHanded && i == 0 && len(a.hands) > 0 {
		a.OnHandEnter.Invoke(a.hands[0])
	}
}

func (a *TriggerArea) Grab(h Holder) {
	if a.grabbing || !a.owns(h) {
		return
	}
	a.grabbing = true
	a.OnHandGrab.Invoke(h)
}

func (a *TriggerArea) Release(h Holder) {
	if !a.grabbing || !a.owns(h) {
		return
	}
	a.grabbing = false
	a.OnHandRelease.Invoke(h)
}

func (a *TriggerArea) Squeeze(h Holder) {
	if a.squeezing || !a.owns(h) {
		return
	}
	a.squeezing = true
	a.OnHandSqueeze.Invoke(h)
}

func (a *TriggerArea) Unsqueeze(h Holder) {
	if !a.squeezing || !a.owns(h) {
		return
	}
	a.squeezing = false
	a.OnHandUnsqueeze.Invoke(h)
}

func indexOfHolder(hs []Holder, h Holder) int {
	for i, existing := range hs {
		if existing == h {
			return i
		}
	}
	return -1
}
