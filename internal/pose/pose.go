// Package pose captures, blends and applies hand poses: one bend value per
// finger plus an optional hand placement relative to a held object.
package pose

import (
	"encoding/binary"
	"math"
	"slices"

	"autohand/internal/engine"
	"autohand/internal/omath"

	"github.com/cespare/xxhash/v2"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Finger is one bendable digit of a hand rig.
type Finger interface {
	Bend() float32
	// SetBend sets the bend fraction, 0 open and 1 closed.
	SetBend(bend float32)
	ResetBend()
	// BendUntilHit closes the finger in steps until its tip touches
	// something on mask, and reports whether it did.
	BendUntilHit(steps int, mask engine.LayerMask) bool
}

// Poseable is a hand a pose can be captured from and applied to.
type Poseable interface {
	Fingers() []Finger
	// PoseRoot is the object whose world transform the pose places.
	PoseRoot() *engine.GameObject
}

// Data is a snapshot of a hand. Position and Rotation are in the space of
// the object the pose was captured against when Relative is set, world
// space otherwise.
type Data struct {
	Bends    []float32     `yaml:"bends"`
	Relative bool          `yaml:"relative"`
	Position rl.Vector3    `yaml:"position"`
	Rotation rl.Quaternion `yaml:"rotation"`
}

// Capture records h. A nil relativeTo captures the finger bends only.
func Capture(h Poseable, relativeTo *engine.GameObject) Data {
	fingers := h.Fingers()
	d := Data{Bends: make([]float32, len(fingers)), Rotation: rl.QuaternionIdentity()}
	for i, f := range fingers {
		d.Bends[i] = f.Bend()
	}
	root := h.PoseRoot()
	if relativeTo == nil || root == nil {
		return d
	}
	d.Relative = true
	d.Position, d.Rotation = relativePose(root, relativeTo)
	return d
}

// CaptureWorld records h with its world placement.
func CaptureWorld(h Poseable) Data {
	d := Capture(h, nil)
	if root := h.PoseRoot(); root != nil {
		d.Position = root.WorldPosition()
		d.Rotation = root.WorldRotation()
	}
	return d
}

func relativePose(root, relativeTo *engine.GameObject) (rl.Vector3, rl.Quaternion) {
	inv := rl.QuaternionInvert(relativeTo.WorldRotation())
	pos := rl.Vector3RotateByQuaternion(rl.Vector3Subtract(root.WorldPosition(), relativeTo.WorldPosition()), inv)
	rot := rl.QuaternionNormalize(rl.QuaternionMultiply(inv, root.WorldRotation()))
	return pos, rot
}

// Placement returns where the hand goes when d is applied against
// relativeTo.
func (d Data) Placement(relativeTo *engine.GameObject) (rl.Vector3, rl.Quaternion) {
	if !d.Relative || relativeTo == nil {
		return d.Position, d.Rotation
	}
	rot := relativeTo.WorldRotation()
	pos := rl.Vector3Add(relativeTo.WorldPosition(), rl.Vector3RotateByQuaternion(d.Position, rot))
	return pos, rl.QuaternionNormalize(rl.QuaternionMultiply(rot, d.Rotation))
}

// Apply bends the fingers and, for a relative pose with a target, moves the
// hand root so it sits where it was captured.
func (d Data) Apply(h Poseable, relativeTo *engine.GameObject) {
	for i, f := range h.Fingers() {
		if i < len(d.Bends) {
			f.SetBend(d.Bends[i])
		}
	}
	root := h.PoseRoot()
	if !d.Relative || relativeTo == nil || root == nil {
		return
	}
	pos, rot := d.Placement(relativeTo)
	root.SetWorldPosition(pos)
	root.SetWorldRotation(rot)
}

// Lerp blends a toward b. t is clamped to [0, 1]; bends and position blend
// linearly and rotation by shortest-arc slerp. Fingers missing from one side
// keep the other side's value. The endpoints return copies of a and b.
func Lerp(a, b Data, t float32) Data {
	t = omath.Clamp01(t)
	switch t {
	case 0:
		return a.clone()
	case 1:
		return b.clone()
	}
	n := max(len(a.Bends), len(b.Bends))
	out := Data{
		Bends:    make([]float32, n),
		Relative: a.Relative || b.Relative,
		Position: rl.Vector3Lerp(a.Position, b.Position, t),
	}
	for i := range out.Bends {
		switch {
		case i >= len(a.Bends):
			out.Bends[i] = b.Bends[i]
		case i >= len(b.Bends):
			out.Bends[i] = a.Bends[i]
		default:
			out.Bends[i] = omath.Lerp(a.Bends[i], b.Bends[i], t)
		}
	}
	out.Rotation = slerp(a.Rotation, b.Rotation, t)
	return out
}

func (d Data) clone() Data {
	d.Bends = slices.Clone(d.Bends)
	return d
}

func slerp(a, b rl.Quaternion, t float32) rl.Quaternion {
	if a.X*b.X+a.Y*b.Y+a.Z*b.Z+a.W*b.W < 0 {
		b = rl.Quaternion{X: -b.X, Y: -b.Y, Z: -b.Z, W: -b.W}
	}
	return rl.QuaternionNormalize(rl.QuaternionSlerp(a, b, t))
}

// Fingerprint hashes the pose so identical poses can be skipped.
func (d Data) Fingerprint() uint64 {
	buf := make([]byte, 0, 4*(len(d.Bends)+8))
	for _, b := range d.Bends {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(b))
	}
	for _, v := range []float32{
		d.Position.X, d.Position.Y, d.Position.Z,
		d.Rotation.X, d.Rotation.Y, d.Rotation.Z, d.Rotation.W,
	} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	if d.Relative {
		buf = append(buf, 1)
	}
	return xxhash.Sum64(buf)
}

// Equal reports whether a and b match within tolerance.
func Equal(a, b Data, tolerance float32) bool {
	if len(a.Bends) != len(b.Bends) || a.Relative != b.Relative {
		return false
	}
	for i := range a.Bends {
		if absf(a.Bends[i]-b.Bends[i]) > tolerance {
			return false
		}
	}
	if rl.Vector3Distance(a.Position, b.Position) > tolerance {
		return false
	}
	return omath.Angle(a.Rotation, b.Rotation) <= tolerance
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
