// Package highlight tracks hover, selection and status highlights of canvas
// nodes and resolves them to exactly one visual style per node.
package highlight

import (
	"sort"

	"agentscope/internal/domain"
)

// Style is the single resolved look of a node, ordered by precedence.
type Style int

const (
	StyleDefault Style = iota
	StyleOK
	StyleRunning
	StyleWarning
	StyleError
)

func (s Style) String() string {
	switch s {
	case StyleOK:
		return "ok"
	case StyleRunning:
		return "running"
	case StyleWarning:
		return "warning"
	case StyleError:
		return "error"
	default:
		return "default"
	}
}

type set map[string]struct{}

func (s set) add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
}

func (s set) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type State struct {
	ok       set
	warnings set
	errors   set
	running  set

	hovered  string
	selected string
}

func NewState() *State {
	return &State{ok: set{}, warnings: set{}, errors: set{}, running: set{}}
}

// Resolve picks the style of a node: error, then warning, then running,
// then ok, then the kind default.
func (s *State) Resolve(id string) Style {
	switch {
	case s.errors.has(id):
		return StyleError
	case s.warnings.has(id):
		return StyleWarning
	case s.running.has(id):
		return StyleRunning
	case s.ok.has(id):
		return StyleOK
	}
	return StyleDefault
}

func (s *State) SetOK(ids ...string) {
	s.ok = set{}
	s.ok.add(ids...)
}

func (s *State) ClearOK() { s.ok = set{} }

func (s *State) AddErrors(ids ...string) { s.errors.add(ids...) }

func (s *State) ClearErrors() { s.errors = set{} }

func (s *State) AddWarnings(ids ...string) { s.warnings.add(ids...) }

func (s *State) ClearWarnings() { s.warnings = set{} }

// SetRunning replaces the running set with the running test node and its
// targets.
func (s *State) SetRunning(ids ...string) {
	s.running = set{}
	s.running.add(ids...)
}

func (s *State) ClearRunning() { s.running = set{} }

func (s *State) Running() []string { return s.running.sorted() }

func (s *State) OK() []string       { return s.ok.sorted() }
func (s *State) Warnings() []string { return s.warnings.sorted() }
func (s *State) Errors() []string   { return s.errors.sorted() }

func (s *State) Hover(id string)  { s.hovered = id }
func (s *State) Hovered() string  { return s.hovered }
func (s *State) Select(id string) { s.selected = id }
func (s *State) Selected() string { return s.selected }

// Reset drops every highlight, used when a different analysis is loaded.
func (s *State) Reset() {
	*s = *NewState()
}

// ApplyResult marks the targets of a finished test. Failures mark errors,
// warnings and pending recommendations mark persistent warnings, and a clean
// pass marks a transient ok highlight. It reports whether the ok set changed
// and needs a timed clear.
func (s *State) ApplyResult(status domain.TestStatus, recommendations int, targets []string) bool {
	switch {
	case status.Failed():
		s.AddErrors(targets...)
	case status == domain.TestStatusWarning || recommendations > 0:
		s.AddWarnings(targets...)
	case status == domain.TestStatusPassed:
		s.SetOK(targets...)
		return len(targets) > 0
	}
	return false
}
