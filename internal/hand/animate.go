package hand

import (
	"autohand/internal/omath"
	"autohand/internal/pose"

	"github.com/chewxy/math32"
)

const (
	// gripEaseRate scales how fast the idle grip chases its goal.
	gripEaseRate = 25
	// swayVelocityScale converts palm-backward speed into grip.
	swayVelocityScale = 8
)

type poseAnimation struct {
	from    pose.Data
	to      pose.Data
	elapsed float32
	total   float32
	applied uint64
}

// UpdatePose bends the fingers into target over seconds. The blend follows
// a square-root curve so most of the motion happens early. Any grab
// cancels it.
func (h *Hand) UpdatePose(target pose.Data, seconds float32) {
	h.animation = &poseAnimation{from: pose.Capture(h, nil), to: target, total: seconds}
}

// CancelPose stops a running UpdatePose where it is.
func (h *Hand) CancelPose() {
	h.animation = nil
}

// Animating reports whether an UpdatePose is still running.
func (h *Hand) Animating() bool { return h.animation != nil }

func (h *Hand) stepAnimation(dt float32) {
	a := h.animation
	if a == nil {
		return
	}
	t := float32(1)
	if a.total > 0 && a.elapsed < a.total {
		t = math32.Sqrt(a.elapsed / a.total)
	}
	d := pose.Lerp(a.from, a.to, t)
	if fp := d.Fingerprint(); fp != a.applied {
		d.Apply(h, nil)
		a.applied = fp
	}
	if t >= 1 {
		h.animation = nil
		return
	}
	a.elapsed += dt
}

// SetGrip sets the idle grip, 0 open and 1 closed.
func (h *Hand) SetGrip(grip float32) {
	h.grip = omath.Clamp01(grip)
}

// Grip is the bend the idle fingers are currently at.
func (h *Hand) Grip() float32 { return h.currGrip }

// updateFingers eases the idle fingers toward the grip plus a sway that
// curls them as the palm moves backward.
func (h *Hand) updateFingers(dt float32) {
	if !h.grabbing && !h.squeezing && h.holding == nil {
		h.idealGrip = h.grip
	}
	if h.holding != nil || h.grabPose != nil || h.animation != nil || h.palm == nil {
		return
	}
	vel := -h.palm.InverseTransformDirection(h.body.Velocity).Z
	goal := h.idealGrip + h.GripOffset + h.SwayStrength*(vel/swayVelocityScale)

	step := dt * math32.Abs(h.currGrip-goal) * gripEaseRate
	if h.currGrip < goal {
		h.currGrip = min(h.currGrip+step, goal)
	} else {
		h.currGrip = max(h.currGrip-step, goal)
	}
	for _, f := range h.fingers {
		f.SetBend(h.currGrip)
	}
}
