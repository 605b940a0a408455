package grabbable

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// HandType limits which hands may hold a grabbable.
type HandType int

const (
	BothHands HandType = iota
	LeftHand
	RightHand
	NoHand
)

var handTypeNames = map[HandType]string{
	BothHands: "both",
	LeftHand:  "left",
	RightHand: "right",
	NoHand:    "none",
}

func (t HandType) String() string {
	if n, ok := handTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("HandType(%d)", int(t))
}

func ParseHandType(s string) (HandType, error) {
	for t, n := range handTypeNames {
		if strings.EqualFold(n, s) {
			return t, nil
		}
	}
	return BothHands, fmt.Errorf("hand type %q: %w", s, ErrInvalidSettings)
}

// Allows reports whether a hand on the given side may hold the object.
func (t HandType) Allows(left bool) bool {
	switch t {
	case NoHand:
		return false
	case LeftHand:
		return left
	case RightHand:
		return !left
	}
	return true
}

func (t HandType) MarshalYAML() (any, error) {
	return t.String(), nil
}

func (t *HandType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseHandType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Settings are the per-object grab options. They double as the defaults
// section of the simulation config.
type Settings struct {
	HandType              HandType `yaml:"handType"`
	IsGrabbable           bool     `yaml:"isGrabbable"`
	SingleHandOnly        bool     `yaml:"singleHandOnly"`
	AllowHeldSwapping     bool     `yaml:"allowHeldSwapping"`
	InstantGrab           bool     `yaml:"instantGrab"`
	MaintainGrabOffset    bool     `yaml:"maintainGrabOffset"`
	ParentOnGrab          bool     `yaml:"parentOnGrab"`
	MakeChildrenGrabbable bool     `yaml:"makeChildrenGrabbable"`
	LockHandOnGrab        bool     `yaml:"lockHandOnGrab"`
	GrabDistancePriority  float32  `yaml:"grabDistancePriority"`

	ThrowMultiplier      float32 `yaml:"throwMultiplier"`
	ThrowAngleMultiplier float32 `yaml:"throwAngleMultiplier"`
	ReleaseOnTeleport    bool    `yaml:"releaseOnTeleport"`
	// IgnoreReleaseTime is how long a released object stays on the
	// releasing layer.
	IgnoreReleaseTime    float32 `yaml:"ignoreReleaseTime"`
	LookAssistMultiplier float32 `yaml:"lookAssistMultiplier"`

	JointBreakForce  float32 `yaml:"jointBreakForce"`
	JointBreakTorque float32 `yaml:"jointBreakTorque"`
	// PullApartBreakOnly limits the joint break event to objects held by
	// more than one hand.
	PullApartBreakOnly bool `yaml:"pullApartBreakOnly"`
}

func DefaultSettings() Settings {
	return Settings{
		HandType:              BothHands,
		IsGrabbable:           true,
		AllowHeldSwapping:     true,
		ParentOnGrab:          true,
		MakeChildrenGrabbable: true,
		GrabDistancePriority:  1,
		ThrowMultiplier:       1,
		ThrowAngleMultiplier:  1,
		IgnoreReleaseTime:     0.25,
		LookAssistMultiplier:  1,
		JointBreakForce:       5000,
		JointBreakTorque:      3000,
		PullApartBreakOnly:    true,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.GrabDistancePriority <= 0:
		return fmt.Errorf("grabDistancePriority %v: %w", s.GrabDistancePriority, ErrInvalidSettings)
	case s.IgnoreReleaseTime < 0:
		return fmt.Errorf("ignoreReleaseTime %v: %w", s.IgnoreReleaseTime, ErrInvalidSettings)
	case s.JointBreakForce <= 0 || s.JointBreakTorque <= 0:
		return fmt.Errorf("joint break limits must be positive: %w", ErrInvalidSettings)
	}
	if _, ok := handTypeNames[s.HandType]; !ok {
		return fmt.Errorf("hand type %d: %w", int(s.HandType), ErrInvalidSettings)
	}
	return nil
}
