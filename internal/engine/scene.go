package engine

type Scene struct {
	Name        string
	GameObjects []*GameObject
	uidMap      map[uint64]*GameObject

	// OnDestroyed fires once per removed object after its Destroyable
	// components have run.
	OnDestroyed EventWithArg[*GameObject]
}

func NewScene(name string) *Scene {
	return &Scene{
		Name:        name,
		GameObjects: make([]*GameObject, 0),
		uidMap:      make(map[uint64]*GameObject),
	}
}

// AddGameObject adds g and every descendant not yet in the scene.
func (s *Scene) AddGameObject(g *GameObject) {
	g.Walk(func(o *GameObject) bool {
		if _, ok := s.uidMap[o.UID]; ok {
			return true
		}
		o.Scene = s
		s.GameObjects = append(s.GameObjects, o)
		s.uidMap[o.UID] = o
		return true
	})
}

// RemoveGameObject drops g from the scene lists without notifying anything.
func (s *Scene) RemoveGameObject(g *GameObject) {
	delete(s.uidMap, g.UID)
	for i, obj := range s.GameObjects {
		if obj == g {
			s.GameObjects = append(s.GameObjects[:i:i], s.GameObjects[i+1:]...)
			break
		}
	}
	if g.Scene == s {
		g.Scene = nil
	}
}

func (s *Scene) FindByUID(uid uint64) *GameObject {
	return s.uidMap[uid]
}

func (s *Scene) FindByName(name string) *GameObject {
	for _, g := range s.GameObjects {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (s *Scene) FindByTag(tag string) []*GameObject {
	var result []*GameObject
	for _, g := range s.GameObjects {
		if g.HasTag(tag) {
			result = append(result, g)
		}
	}
	return result
}

// Destroy removes g and its subtree. Destroyable components on every node
// run first, while the hierarchy is still intact; then the nodes are
// detached, marked destroyed and OnDestroyed fires for each.
func (s *Scene) Destroy(g *GameObject) {
	if g == nil || g.destroyed || g.destroying {
		return
	}
	var nodes []*GameObject
	g.Walk(func(o *GameObject) bool {
		if o.destroyed || o.destroying {
			return false
		}
		o.destroying = true
		nodes = append(nodes, o)
		return true
	})

	for _, o := range nodes {
		for _, c := range o.components {
			if d, ok := c.(Destroyable); ok {
				guard(d.OnDestroy)
			}
		}
	}

	if g.Parent != nil {
		g.Parent.RemoveChild(g)
	}
	for _, o := range nodes {
		o.destroyed = true
		o.destroying = false
		s.RemoveGameObject(o)
	}
	for _, o := range nodes {
		s.OnDestroyed.Invoke(o)
	}
}

func (s *Scene) Start() {
	for _, g := range s.snapshot() {
		g.Start()
	}
}

// FixedUpdate steps every active object with the physics tick. Objects
// destroyed earlier in the same tick are skipped.
func (s *Scene) FixedUpdate(deltaTime float32) {
	for _, g := range s.snapshot() {
		if g.destroyed || !g.ActiveInHierarchy() {
			continue
		}
		g.FixedUpdate(deltaTime)
	}
}

func (s *Scene) Update(deltaTime float32) {
	for _, g := range s.snapshot() {
		if g.destroyed || !g.ActiveInHierarchy() {
			continue
		}
		g.Update(deltaTime)
	}
}

func (s *Scene) snapshot() []*GameObject {
	out := make([]*GameObject, len(s.GameObjects))
	copy(out, s.GameObjects)
	return out
}
