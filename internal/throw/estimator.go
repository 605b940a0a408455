// Package throw estimates release velocity from a trailing window of hand
// motion samples.
package throw

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	DefaultExpireTime = 0.2
	DefaultPower      = 2
	// DefaultCapacity holds well over one window at 90 Hz. Longer windows
	// grow the ring.
	DefaultCapacity = 64

	// ageEpsilon absorbs clock rounding so a sample exactly ExpireTime old
	// is always treated as expired.
	ageEpsilon = 1e-9
)

// Sample is one physics tick of hand motion.
type Sample struct {
	Time            float64
	Velocity        rl.Vector3
	AngularVelocity rl.Vector3
}

// Estimator keeps samples younger than ExpireTime in a ring that doubles
// when every slot still holds a live sample.
type Estimator struct {
	ExpireTime float64
	// Power scales the linear mean; angular velocity is never scaled.
	Power float32

	buffer   []Sample
	capacity int
	head     int // next write position
	size     int
}

func NewEstimator(expireTime float64, power float32, capacity int) *Estimator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Estimator{
		ExpireTime: expireTime,
		Power:      power,
		buffer:     make([]Sample, capacity),
		capacity:   capacity,
	}
}

// Add records a sample taken at now and drops expired ones.
func (e *Estimator) Add(now float64, velocity, angular rl.Vector3) {
	e.Evict(now)
	if e.size == e.capacity {
		e.grow()
	}
	e.buffer[e.head] = Sample{Time: now, Velocity: velocity, AngularVelocity: angular}
	e.head = (e.head + 1) % e.capacity
	e.size++
}

func (e *Estimator) grow() {
	samples := e.Samples()
	e.capacity *= 2
	e.buffer = make([]Sample, e.capacity)
	copy(e.buffer, samples)
	e.head = len(samples)
}

// Evict drops every sample whose age is at least ExpireTime. It walks back
// from the newest sample and cuts the ring at the first expired one.
func (e *Estimator) Evict(now float64) {
	for i := 0; i < e.size; i++ {
		idx := (e.head - 1 - i + e.capacity) % e.capacity
		if now-e.buffer[idx].Time >= e.ExpireTime-ageEpsilon {
			e.size = i
			return
		}
	}
}

func (e *Estimator) Clear() {
	e.head, e.size = 0, 0
}

func (e *Estimator) Len() int {
	return e.size
}

// Samples returns the retained samples, oldest first.
func (e *Estimator) Samples() []Sample {
	out := make([]Sample, 0, e.size)
	for i := e.size - 1; i >= 0; i-- {
		out = append(out, e.buffer[(e.head-1-i+e.capacity)%e.capacity])
	}
	return out
}

// Velocity is the mean retained linear velocity times Power. With nothing
// retained it is fallback times Power.
func (e *Estimator) Velocity(now float64, fallback rl.Vector3) rl.Vector3 {
	e.Evict(now)
	if e.size == 0 {
		return rl.Vector3Scale(fallback, e.Power)
	}
	var sum rl.Vector3
	for i := 0; i < e.size; i++ {
		sum = rl.Vector3Add(sum, e.buffer[(e.head-1-i+e.capacity)%e.capacity].Velocity)
	}
	return rl.Vector3Scale(sum, e.Power/float32(e.size))
}

// AngularVelocity is the mean retained angular velocity, or zero.
func (e *Estimator) AngularVelocity(now float64) rl.Vector3 {
	e.Evict(now)
	if e.size == 0 {
		return rl.Vector3{}
	}
	var sum rl.Vector3
	for i := 0; i < e.size; i++ {
		sum = rl.Vector3Add(sum, e.buffer[(e.head-1-i+e.capacity)%e.capacity].AngularVelocity)
	}
	return rl.Vector3Scale(sum, 1/float32(e.size))
}
