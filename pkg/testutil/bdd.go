package testutil

import "testing"

// Scenario runs a named lifecycle as ordered steps. Steps share state through
// the enclosing closure, so a failed step stops the ones after it.
type Scenario struct {
	t      *testing.T
	failed bool
}

// NewScenario starts a scenario under t.
func NewScenario(t *testing.T) *Scenario {
	t.Helper()
	return &Scenario{t: t}
}

// Given sets up state.
func (s *Scenario) Given(desc string, fn func(t *testing.T)) *Scenario {
	return s.step("Given "+desc, fn)
}

// When performs the action under test.
func (s *Scenario) When(desc string, fn func(t *testing.T)) *Scenario {
	return s.step("When "+desc, fn)
}

// Then checks the outcome.
func (s *Scenario) Then(desc string, fn func(t *testing.T)) *Scenario {
	return s.step("Then "+desc, fn)
}

func (s *Scenario) step(name string, fn func(t *testing.T)) *Scenario {
	s.t.Helper()
	if s.failed {
		s.t.Run(name, func(t *testing.T) { t.Skip("earlier step failed") })
		return s
	}
	if !s.t.Run(name, fn) {
		s.failed = true
	}
	return s
}
