package engine

import rl "github.com/gen2brain/raylib-go/raylib"

// Hit holds information about a ray or shape cast hit.
// Defined here to avoid circular imports with physics package.
type Hit struct {
	GameObject *GameObject
	Point      rl.Vector3
	Normal     rl.Vector3
	Distance   float32
}

// WorldAccess provides components with scene queries without creating
// circular import dependencies. Trigger colliders are never reported.
type WorldAccess interface {
	Raycast(origin, direction rl.Vector3, maxDistance float32, mask LayerMask) (Hit, bool)
	SphereCast(origin rl.Vector3, radius float32, direction rl.Vector3, maxDistance float32, mask LayerMask) (Hit, bool)
	OverlapSphere(center rl.Vector3, radius float32, mask LayerMask) []*GameObject
}
