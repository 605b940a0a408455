package hand

import (
	"errors"
	"fmt"

	"autohand/internal/follow"
)

var (
	ErrMissingBody     = errors.New("hand has no rigidbody")
	ErrMissingPalm     = errors.New("hand has no palm")
	ErrNotBound        = errors.New("hand is not bound to a world")
	ErrInvalidSettings = errors.New("invalid hand settings")
	ErrCannotGrab      = errors.New("grabbable cannot be held by this hand")
)

// Settings are the tunables shared by both hands.
type Settings struct {
	Follow follow.Settings `yaml:",inline"`

	ReachDistance   float32 `yaml:"reachDistance"`
	ThrowPower      float32 `yaml:"throwPower"`
	ThrowExpireTime float64 `yaml:"throwVelocityExpireTime"`

	// GrabTime is how long a full-reach approach takes to pose the hand.
	// Zero connects on the first tick.
	GrabTime       float32 `yaml:"grabTime"`
	GrabReturnTime float32 `yaml:"grabReturnTime"`
	GrabCurve      string  `yaml:"grabCurve"`

	FingerBendSteps  int     `yaml:"fingerBendSteps"`
	RayCount         int     `yaml:"rayCount"`
	GrabSpreadOffset float32 `yaml:"grabSpreadOffset"`
	LookAssistSpeed  float32 `yaml:"lookAssistSpeed"`
	SwayStrength     float32 `yaml:"swayStrength"`
	GripOffset       float32 `yaml:"gripOffset"`

	// ContentionPollTicks bounds how long an approach waits for another
	// hand to finish grabbing the same object.
	ContentionPollTicks int    `yaml:"contentionPollTicks"`
	PalmName            string `yaml:"palmName"`
}

func DefaultSettings() Settings {
	return Settings{
		Follow:              follow.DefaultSettings(),
		ReachDistance:       0.3,
		ThrowPower:          2,
		ThrowExpireTime:     0.2,
		GrabCurve:           "linear",
		FingerBendSteps:     50,
		RayCount:            50,
		LookAssistSpeed:     1,
		SwayStrength:        0.7,
		GripOffset:          0.1,
		ContentionPollTicks: 30,
		PalmName:            "Palm",
	}
}

func (s Settings) Validate() error {
	if err := s.Follow.Validate(); err != nil {
		return err
	}
	switch {
	case s.ReachDistance <= 0:
		return fmt.Errorf("%w: reach distance must be positive", ErrInvalidSettings)
	case s.ThrowExpireTime <= 0:
		return fmt.Errorf("%w: throw expire time must be positive", ErrInvalidSettings)
	case s.GrabTime < 0 || s.GrabReturnTime < 0:
		return fmt.Errorf("%w: negative grab timing", ErrInvalidSettings)
	case s.FingerBendSteps <= 0:
		return fmt.Errorf("%w: finger bend steps must be positive", ErrInvalidSettings)
	case s.RayCount <= 0:
		return fmt.Errorf("%w: ray count must be positive", ErrInvalidSettings)
	case s.ContentionPollTicks < 0:
		return fmt.Errorf("%w: negative contention poll", ErrInvalidSettings)
	case s.PalmName == "":
		return fmt.Errorf("%w: empty palm name", ErrInvalidSettings)
	}
	if _, err := ParseCurve(s.GrabCurve); err != nil {
		return err
	}
	return nil
}
