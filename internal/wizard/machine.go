// Package wizard implements the order-creation wizard: per-step validators,
// the step-gated navigation state machine and the session that ties them to
// the collected order data.
package wizard

import (
	"sort"

	"go.uber.org/zap"
)

const (
	StepCustomer = 1
	StepAddress  = 2
	StepProducts = 3
	StepReview   = 4
	StepPayment  = 5

	TotalSteps = 5
)

type State struct {
	CurrentStep    int   `json:"current_step"`
	CompletedSteps []int `json:"completed_steps"`
	TotalSteps     int   `json:"total_steps"`
}

// Machine tracks the current step and the set of completed steps. Forward
// navigation to step n requires steps 1..n-1 to be complete. Machine is not
// safe for concurrent use; Session serializes access.
type Machine struct {
	current   int
	completed []int
	total     int
	logger    *zap.Logger
}

func NewMachine(totalSteps int, logger *zap.Logger) *Machine {
	if totalSteps < 1 {
		totalSteps = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{current: 1, completed: []int{}, total: totalSteps, logger: logger}
}

func (m *Machine) CurrentStep() int { return m.current }

func (m *Machine) TotalSteps() int { return m.total }

func (m *Machine) IsLastStep() bool { return m.current == m.total }

func (m *Machine) CompletedSteps() []int {
	out := make([]int, len(m.completed))
	copy(out, m.completed)
	return out
}

func (m *Machine) State() State {
	return State{CurrentStep: m.current, CompletedSteps: m.CompletedSteps(), TotalSteps: m.total}
}

func (m *Machine) IsStepComplete(n int) bool {
	idx := sort.SearchInts(m.completed, n)
	return idx < len(m.completed) && m.completed[idx] == n
}

func (m *Machine) inRange(n int) bool {
	return n >= 1 && n <= m.total
}

func (m *Machine) CanNavigateToStep(n int) bool {
	if !m.inRange(n) {
		return false
	}
	if n == 1 || n < m.current {
		return true
	}
	for step := 1; step < n; step++ {
		if !m.IsStepComplete(step) {
			return false
		}
	}
	return true
}

// MarkStepComplete adds n to the completed set, keeping it sorted. Repeated
// calls and out-of-range steps are no-ops.
func (m *Machine) MarkStepComplete(n int) {
	if !m.inRange(n) || m.IsStepComplete(n) {
		return
	}
	m.completed = append(m.completed, n)
	sort.Ints(m.completed)
}

// GoToStep moves to n when navigation is allowed and reports whether it moved.
func (m *Machine) GoToStep(n int) bool {
	if !m.inRange(n) {
		m.logger.Warn("wizard step out of range", zap.Int("step", n), zap.Int("total_steps", m.total))
		return false
	}
	if !m.CanNavigateToStep(n) {
		m.logger.Warn("wizard step is gated",
			zap.Int("step", n),
			zap.Int("current_step", m.current),
			zap.Ints("completed_steps", m.completed),
		)
		return false
	}
	m.current = n
	return true
}

// GoToNextStep marks the current step complete and advances. No-op on the last step.
func (m *Machine) GoToNextStep() bool {
	if m.current >= m.total {
		return false
	}
	m.MarkStepComplete(m.current)
	m.current++
	return true
}

// GoToPreviousStep moves back one step without touching the completed set.
func (m *Machine) GoToPreviousStep() bool {
	if m.current <= 1 {
		return false
	}
	m.current--
	return true
}
