package hand

import (
	"fmt"
	"slices"

	"autohand/internal/omath"

	"github.com/gen2brain/raylib-go/easings"
)

// Curve maps approach progress in [0, 1] to pose blend in [0, 1].
type Curve func(t float32) float32

var curves = map[string]func(t, b, c, d float32) float32{
	"linear":    easings.LinearNone,
	"sineIn":    easings.SineIn,
	"sineOut":   easings.SineOut,
	"sineInOut": easings.SineInOut,
	"quadIn":    easings.QuadIn,
	"quadOut":   easings.QuadOut,
	"quadInOut": easings.QuadInOut,
	"cubicIn":   easings.CubicIn,
	"cubicOut":  easings.CubicOut,
	"circOut":   easings.CircOut,
}

// ParseCurve looks up an easing by name. The empty name is linear.
func ParseCurve(name string) (Curve, error) {
	if name == "" {
		name = "linear"
	}
	ease, ok := curves[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown grab curve %q", ErrInvalidSettings, name)
	}
	return func(t float32) float32 {
		return omath.Clamp01(ease(omath.Clamp01(t), 0, 1, 1))
	}, nil
}

// CurveNames lists the accepted curve names.
func CurveNames() []string {
	names := make([]string, 0, len(curves))
	for n := range curves {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
