package engine

import (
	"fmt"
)

const MaxLayers = 32

// LayerMask is a bit set of layer indices.
type LayerMask uint32

const (
	NoLayers  LayerMask = 0
	AllLayers LayerMask = 0xFFFFFFFF
)

func MaskOf(layers ...int) LayerMask {
	var m LayerMask
	for _, l := range layers {
		if l >= 0 && l < MaxLayers {
			m |= 1 << uint(l)
		}
	}
	return m
}

func (m LayerMask) Contains(layer int) bool {
	if layer < 0 || layer >= MaxLayers {
		return false
	}
	return m&(1<<uint(layer)) != 0
}

func (m LayerMask) Without(layers ...int) LayerMask {
	return m &^ MaskOf(layers...)
}

const DefaultLayerName = "Default"

// Layers maps layer names to indices. Slot 0 is always "Default".
type Layers struct {
	names [MaxLayers]string
}

func NewLayers() *Layers {
	l := &Layers{}
	l.names[0] = DefaultLayerName
	return l
}

// Define binds name to index, replacing whatever was there.
func (l *Layers) Define(index int, name string) error {
	if index < 0 || index >= MaxLayers {
		return fmt.Errorf("layer %q at %d: %w", name, index, ErrInvalidLayer)
	}
	if name == "" {
		return fmt.Errorf("empty name at %d: %w", index, ErrInvalidLayer)
	}
	if existing, ok := l.NameToLayer(name); ok && existing != index {
		return fmt.Errorf("layer %q already at %d: %w", name, existing, ErrInvalidLayer)
	}
	l.names[index] = name
	return nil
}

// Add places name in the first free slot, or returns its existing index.
func (l *Layers) Add(name string) (int, error) {
	if i, ok := l.NameToLayer(name); ok {
		return i, nil
	}
	for i := 1; i < MaxLayers; i++ {
		if l.names[i] == "" {
			l.names[i] = name
			return i, nil
		}
	}
	return -1, fmt.Errorf("no free slot for %q: %w", name, ErrInvalidLayer)
}

func (l *Layers) NameToLayer(name string) (int, bool) {
	for i, n := range l.names {
		if n != "" && n == name {
			return i, true
		}
	}
	return -1, false
}

// MustLayer is NameToLayer for names known to be defined.
func (l *Layers) MustLayer(name string) int {
	i, ok := l.NameToLayer(name)
	if !ok {
		panic(fmt.Sprintf("layer %q not defined", name))
	}
	return i
}

func (l *Layers) LayerToName(index int) string {
	if index < 0 || index >= MaxLayers {
		return ""
	}
	return l.names[index]
}

// GetMask returns the mask of the named layers. Unknown names are skipped.
func (l *Layers) GetMask(names ...string) LayerMask {
	var m LayerMask
	for _, n := range names {
		if i, ok := l.NameToLayer(n); ok {
			m |= MaskOf(i)
		}
	}
	return m
}
