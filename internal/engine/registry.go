package engine

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// ComponentFactory creates a Component from decoded scenario props.
type ComponentFactory func(props map[string]any) (Component, error)

var componentRegistry = map[string]ComponentFactory{}

// RegisterComponent registers a named factory. Packages call it from init().
func RegisterComponent(name string, factory ComponentFactory) {
	if _, exists := componentRegistry[name]; exists {
		panic(fmt.Sprintf("component %q already registered", name))
	}
	componentRegistry[name] = factory
}

// CreateComponent looks up a registered component by name and creates it with the given props.
func CreateComponent(name string, props map[string]any) (Component, error) {
	factory, ok := componentRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownComponent)
	}
	c, err := factory(props)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// RegisteredComponents returns the sorted list of registered names.
func RegisteredComponents() []string {
	names := make([]string, 0, len(componentRegistry))
	for name := range componentRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DecodeProps fills out from a props map using its yaml tags. Fields
// missing from props keep the values already in out.
func DecodeProps(props map[string]any, out any) error {
	if len(props) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(props)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProps, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProps, err)
	}
	return nil
}
