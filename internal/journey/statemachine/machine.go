// Package statemachine resolves journey events against a hierarchical map of
// states loaded from YAML.
package statemachine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"

	journey "ipvcore/internal/journey/models"
)

var (
	// ErrUnknownEvent means neither the state nor any ancestor declares the event.
	ErrUnknownEvent = errors.New("unknown journey event")
	// ErrUnknownState means the caller's current state is not in this journey.
	ErrUnknownState = errors.New("unknown journey state")
	// ErrNotInitialized is returned by Transition before Initialize has run.
	ErrNotInitialized = errors.New("state machine not initialized")
	// ErrInvalidMap wraps every configuration problem found while loading.
	ErrInvalidMap = errors.New("invalid journey map")
)

const noParent = -1

// FeatureChecker answers whether a feature (or CRI) is enabled for the
// request. It is queried on every resolution, never cached.
type FeatureChecker interface {
	IsEnabled(ctx context.Context, feature string) bool
}

// State is one node of the journey tree.
type State struct {
	Name     string
	Response StepResponse

	parent     int
	parentName string
	events     map[string]*Event
}

// Event maps to a target state in this journey, or to another journey when
// TargetJourney is set.
type Event struct {
	TargetState   string
	TargetJourney string

	target   int
	disabled []conditional
}

type conditional struct {
	feature string
	event   *Event
}

// Result is the outcome of a transition.
type Result struct {
	// State is the new state name, in TargetJourney when that is set.
	State string
	// Response is the new state's response. Nil on a journey change.
	Response StepResponse
	// TargetJourney is set when the event leaves this journey.
	TargetJourney string
	// Recovery is set when the caller's page did not match the session; the
	// state is unchanged and Response is the attempt-recovery page.
	Recovery bool
}

// Machine is an initialized journey map.
type Machine struct {
	name         string
	initialState string
	states       []State
	index        map[string]int
	features     FeatureChecker
	logger       *slog.Logger
	initialized  bool
}

// Option configures a Machine.
type Option func(*Machine)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

func WithFeatureChecker(fc FeatureChecker) Option {
	return func(m *Machine) {
		m.features = fc
	}
}

// Name is the journey type this machine implements.
func (m *Machine) Name() string { return m.name }

// InitialState is the entry state used on a journey change.
func (m *Machine) InitialState() string { return m.initialState }

// HasState reports whether name is declared.
func (m *Machine) HasState(name string) bool {
	_, ok := m.index[name]
	return ok
}

// State returns a declared state.
func (m *Machine) State(name string) (*State, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return &m.states[i], true
}

// Initialize resolves parent names and event targets to indexes. It runs
// exactly once; a second call is a no-op.
func (m *Machine) Initialize() error {
	if m.initialized {
		return nil
	}
	for i := range m.states {
		s := &m.states[i]
		s.parent = noParent
		if s.parentName != "" {
			p, ok := m.index[s.parentName]
			if !ok {
				return fmt.Errorf("%w: state %s has unknown parent %s", ErrInvalidMap, s.Name, s.parentName)
			}
			s.parent = p
		}
	}
	for i := range m.states {
		if err := m.checkAcyclic(i); err != nil {
			return err
		}
		s := &m.states[i]
		for name, ev := range s.events {
			if err := m.initEvent(ev); err != nil {
				return fmt.Errorf("%w: state %s event %s: %w", ErrInvalidMap, s.Name, name, err)
			}
		}
	}
	if m.initialState != "" && !m.HasState(m.initialState) {
		return fmt.Errorf("%w: initial state %s is not declared", ErrInvalidMap, m.initialState)
	}
	m.initialized = true
	return nil
}

func (m *Machine) initEvent(ev *Event) error {
	ev.target = noParent
	switch {
	case ev.TargetJourney != "":
		// cross-journey targets are checked by the registry
	case ev.TargetState == "":
		return errors.New("event has no target")
	default:
		t, ok := m.index[ev.TargetState]
		if !ok {
			return fmt.Errorf("target state %s is not declared", ev.TargetState)
		}
		ev.target = t
	}
	for _, c := range ev.disabled {
		if err := m.initEvent(c.event); err != nil {
			return fmt.Errorf("checkIfDisabled %s: %w", c.feature, err)
		}
	}
	return nil
}

func (m *Machine) checkAcyclic(start int) error {
	steps := 0
	for i := m.states[start].parent; i != noParent; i = m.states[i].parent {
		steps++
		if steps > len(m.states) {
			return fmt.Errorf("%w: parent cycle through %s", ErrInvalidMap, m.states[start].Name)
		}
	}
	return nil
}

// Transition resolves eventName from current, walking up the parent chain.
// When currentPage is set and current is a page state showing a different
// page, the attempt-recovery page is returned and nothing is resolved.
func (m *Machine) Transition(ctx context.Context, current, eventName, currentPage string) (Result, error) {
	if !m.initialized {
		return Result{}, ErrNotInitialized
	}
	i, ok := m.index[current]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s in %s", ErrUnknownState, current, m.name)
	}

	if currentPage != "" {
		if page, ok := m.states[i].Response.(PageResponse); ok && page.PageID != currentPage {
			m.logger.WarnContext(ctx, "page mismatch, routing to recovery",
				"journey", m.name, "state", current, "expected_page", page.PageID, "current_page", currentPage)
			return Result{State: current, Response: PageResponse{PageID: journey.PageAttemptRecovery}, Recovery: true}, nil
		}
	}

	ev := m.lookup(i, eventName)
	if ev == nil {
		return Result{}, fmt.Errorf("%w: %s from %s in %s", ErrUnknownEvent, eventName, current, m.name)
	}
	ev = m.resolve(ctx, ev)

	if ev.TargetJourney != "" {
		return Result{State: ev.TargetState, TargetJourney: ev.TargetJourney}, nil
	}
	target := &m.states[ev.target]
	return Result{State: target.Name, Response: target.Response}, nil
}

func (m *Machine) lookup(i int, eventName string) *Event {
	for ; i != noParent; i = m.states[i].parent {
		if ev, ok := m.states[i].events[eventName]; ok {
			return ev
		}
	}
	return nil
}

// resolve follows the first disabled feature's alternative, recursively.
func (m *Machine) resolve(ctx context.Context, ev *Event) *Event {
	for _, c := range ev.disabled {
		if m.features == nil || m.features.IsEnabled(ctx, c.feature) {
			continue
		}
		m.logger.InfoContext(ctx, "feature disabled, using alternative event", "journey", m.name, "feature", c.feature)
		return m.resolve(ctx, c.event)
	}
	return ev
}

// crossJourneyTargets lists every journey change declared in the map,
// including conditional alternatives.
func (m *Machine) crossJourneyTargets() []Event {
	var out []Event
	var walk func(*Event)
	walk = func(ev *Event) {
		if ev.TargetJourney != "" {
			out = append(out, *ev)
		}
		for _, c := range ev.disabled {
			walk(c.event)
		}
	}
	for i := range m.states {
		for _, ev := range m.states[i].events {
			walk(ev)
		}
	}
	return out
}

// --- YAML loading ---

type rawMap struct {
	Name         string              `yaml:"name"`
	Description  string              `yaml:"description"`
	InitialState string              `yaml:"initialState"`
	States       map[string]rawState `yaml:"states"`
}

type rawState struct {
	Parent   string              `yaml:"parent"`
	Response *rawResponse        `yaml:"response"`
	Events   map[string]rawEvent `yaml:"events"`
}

type rawEvent struct {
	TargetState     string    `yaml:"targetState"`
	TargetJourney   string    `yaml:"targetJourney"`
	CheckIfDisabled yaml.Node `yaml:"checkIfDisabled"`
}

// Load parses a journey map. The returned machine still needs Initialize.
func Load(data []byte, opts ...Option) (*Machine, error) {
	var raw rawMap
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMap, err)
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidMap)
	}
	if len(raw.States) == 0 {
		return nil, fmt.Errorf("%w: %s declares no states", ErrInvalidMap, raw.Name)
	}

	m := &Machine{
		name:         raw.Name,
		initialState: raw.InitialState,
		index:        make(map[string]int, len(raw.States)),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, name := range slices.Sorted(maps.Keys(raw.States)) {
		rs := raw.States[name]
		resp, err := rs.Response.build()
		if err != nil {
			return nil, fmt.Errorf("%w: state %s: %w", ErrInvalidMap, name, err)
		}
		st := State{Name: name, Response: resp, parentName: rs.Parent, parent: noParent, events: make(map[string]*Event, len(rs.Events))}
		for evName, re := range rs.Events {
			ev, err := buildEvent(re)
			if err != nil {
				return nil, fmt.Errorf("%w: state %s event %s: %w", ErrInvalidMap, name, evName, err)
			}
			st.events[evName] = ev
		}
		m.index[name] = len(m.states)
		m.states = append(m.states, st)
	}
	return m, nil
}

func buildEvent(re rawEvent) (*Event, error) {
	ev := &Event{TargetState: re.TargetState, TargetJourney: re.TargetJourney, target: noParent}
	node := &re.CheckIfDisabled
	if node.Kind == 0 {
		return ev, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.New("checkIfDisabled must be a mapping")
	}
	// Mapping content alternates key, value; declaration order is the
	// evaluation order.
	for i := 0; i+1 < len(node.Content); i += 2 {
		feature := node.Content[i].Value
		var alt rawEvent
		if err := node.Content[i+1].Decode(&alt); err != nil {
			return nil, fmt.Errorf("checkIfDisabled %s: %w", feature, err)
		}
		altEvent, err := buildEvent(alt)
		if err != nil {
			return nil, fmt.Errorf("checkIfDisabled %s: %w", feature, err)
		}
		ev.disabled = append(ev.disabled, conditional{feature: feature, event: altEvent})
	}
	return ev, nil
}
