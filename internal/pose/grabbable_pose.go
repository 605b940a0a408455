package pose

import (
	"autohand/internal/engine"
	"autohand/internal/omath"

	rl "github.com/gen2brain/raylib-go/raylib"
)

func init() {
	engine.RegisterComponent("GrabbablePose", func(props map[string]any) (engine.Component, error) {
		p := &GrabbablePose{}
		if err := engine.DecodeProps(props, p); err != nil {
			return nil, err
		}
		return p, nil
	})
	engine.RegisterComponent("PoseCombiner", func(props map[string]any) (engine.Component, error) {
		def := struct {
			RotationWeight float32 `yaml:"rotationWeight"`
		}{RotationWeight: 0.1}
		if err := engine.DecodeProps(props, &def); err != nil {
			return nil, err
		}
		return &Combiner{RotationWeight: def.RotationWeight}, nil
	})
}

// Handed is a poseable hand that knows its side and which pose set it uses.
type Handed interface {
	Poseable
	IsLeft() bool
	PoseIndex() int
}

// GrabbablePose is a predetermined grip stored on a grabbable. Poses are
// captured relative to the object the component sits on.
type GrabbablePose struct {
	engine.BaseComponent `yaml:"-"`

	Left      *Data `yaml:"left"`
	Right     *Data `yaml:"right"`
	PoseIndex int   `yaml:"poseIndex"`
	Disabled  bool  `yaml:"disabled"`
}

// CanSetPose reports whether h can use this pose.
func (p *GrabbablePose) CanSetPose(h Handed) bool {
	if p.Disabled || h == nil || h.PoseIndex() != p.PoseIndex {
		return false
	}
	return p.forSide(h.IsLeft()) != nil
}

func (p *GrabbablePose) forSide(left bool) *Data {
	if left {
		return p.Left
	}
	return p.Right
}

// HandPose returns the stored pose for h's side. ok is false when
// CanSetPose would be.
func (p *GrabbablePose) HandPose(h Handed) (Data, bool) {
	if !p.CanSetPose(h) {
		return Data{}, false
	}
	return *p.forSide(h.IsLeft()), true
}

// SavePose captures h's current pose into the slot for its side.
func (p *GrabbablePose) SavePose(h Handed) {
	d := Capture(h, p.GetGameObject())
	if h.IsLeft() {
		p.Left = &d
	} else {
		p.Right = &d
	}
}

// Combiner chooses among several GrabbablePose components on one object:
// the usable pose whose hand placement is nearest the hand wins.
type Combiner struct {
	engine.BaseComponent
	// RotationWeight converts radians of difference into metres when
	// ranking poses.
	RotationWeight float32
	poses          []*GrabbablePose
}

// Add registers an extra pose that is not a component of the object.
func (c *Combiner) Add(p *GrabbablePose) {
	c.poses = append(c.poses, p)
}

// Poses returns the explicitly added poses followed by every GrabbablePose
// on the combiner's object.
func (c *Combiner) Poses() []*GrabbablePose {
	out := append([]*GrabbablePose(nil), c.poses...)
	if g := c.GetGameObject(); g != nil {
		for _, comp := range g.Components() {
			if p, ok := comp.(*GrabbablePose); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// CanSetPose reports whether any pose fits h.
func (c *Combiner) CanSetPose(h Handed) bool {
	for _, p := range c.Poses() {
		if p.CanSetPose(h) {
			return true
		}
	}
	return false
}

// Closest returns the usable pose nearest to h's current placement.
func (c *Combiner) Closest(h Handed) (*GrabbablePose, bool) {
	root := h.PoseRoot()
	var best *GrabbablePose
	bestScore := float32(0)
	for _, p := range c.Poses() {
		d, ok := p.HandPose(h)
		if !ok {
			continue
		}
		score := float32(0)
		if root != nil {
			anchor := p.GetGameObject()
			if anchor == nil {
				anchor = c.GetGameObject()
			}
			pos, rot := d.Placement(anchor)
			score = rl.Vector3Distance(pos, root.WorldPosition()) +
				c.RotationWeight*omath.Angle(rot, root.WorldRotation())
		}
		if best == nil || score < bestScore {
			best, bestScore = p, score
		}
	}
	return best, best != nil
}
