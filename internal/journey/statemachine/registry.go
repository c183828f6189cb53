package statemachine

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// Registry holds one initialized machine per journey type.
type Registry struct {
	machines map[string]*Machine
}

// NewRegistry loads every *.yaml map in fsys, initializes each machine and
// checks that every journey change names a loaded journey and state.
func NewRegistry(fsys fs.FS, opts ...Option) (*Registry, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("list journey maps: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no journey maps found", ErrInvalidMap)
	}
	sort.Strings(files)

	r := &Registry{machines: make(map[string]*Machine, len(files))}
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("read journey map %s: %w", f, err)
		}
		m, err := Load(data, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(f), err)
		}
		if _, dup := r.machines[m.Name()]; dup {
			return nil, fmt.Errorf("%w: journey %s declared twice", ErrInvalidMap, m.Name())
		}
		if err := m.Initialize(); err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(f), err)
		}
		r.machines[m.Name()] = m
	}

	for _, m := range r.machines {
		for _, ev := range m.crossJourneyTargets() {
			target, ok := r.machines[ev.TargetJourney]
			if !ok {
				return nil, fmt.Errorf("%w: %s changes to unknown journey %s", ErrInvalidMap, m.Name(), ev.TargetJourney)
			}
			state := ev.TargetState
			if state == "" {
				state = target.InitialState()
			}
			if state == "" || !target.HasState(state) {
				return nil, fmt.Errorf("%w: %s changes to %s with unknown entry state %q", ErrInvalidMap, m.Name(), ev.TargetJourney, state)
			}
		}
	}
	return r, nil
}

// Get returns the machine for a journey type.
func (r *Registry) Get(journeyType string) (*Machine, bool) {
	m, ok := r.machines[journeyType]
	return m, ok
}

// Journeys lists the loaded journey types in name order.
func (r *Registry) Journeys() []string {
	out := make([]string, 0, len(r.machines))
	for name := range r.machines {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
