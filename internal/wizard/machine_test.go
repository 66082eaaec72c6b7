package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCanNavigateToStepOne(t *testing.T) {
	m := NewMachine(TotalSteps, nil)
	assert.True(t, m.CanNavigateToStep(1))
	m.GoToNextStep()
	m.GoToNextStep()
	assert.True(t, m.CanNavigateToStep(1))
}

func TestStepGate(t *testing.T) {
	m := NewMachine(TotalSteps, nil)
	assert.False(t, m.CanNavigateToStep(2))
	m.MarkStepComplete(1)
	assert.True(t, m.CanNavigateToStep(2))
	assert.False(t, m.CanNavigateToStep(3))
	assert.False(t, m.CanNavigateToStep(0))
	assert.False(t, m.CanNavigateToStep(TotalSteps+1))
}

func TestMarkStepCompleteIsIdempotentAndSorted(t *testing.T) {
	m := NewMachine(TotalSteps, nil)
	m.MarkStepComplete(3)
	m.MarkStepComplete(1)
	m.MarkStepComplete(3)
	m.MarkStepComplete(9)
	assert.Equal(t, []int{1, 3}, m.CompletedSteps())
}

func TestGoToStepRejectsGatedAndOutOfRange(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := NewMachine(TotalSteps, zap.New(core))

	assert.False(t, m.GoToStep(3))
	assert.Equal(t, 1, m.CurrentStep())
	assert.False(t, m.GoToStep(0))
	assert.False(t, m.GoToStep(6))
	assert.Equal(t, 1, m.CurrentStep())
	assert.Equal(t, 3, logs.Len())
}

func TestGoToNextStepVisitsEveryStep(t *testing.T) {
	m := NewMachine(TotalSteps, nil)
	visited := []int{m.CurrentStep()}
	for i := 0; i < TotalSteps-1; i++ {
		assert.True(t, m.GoToNextStep())
		visited = append(visited, m.CurrentStep())
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, visited)
	assert.Equal(t, []int{1, 2, 3, 4}, m.CompletedSteps())
	assert.True(t, m.IsLastStep())

	assert.False(t, m.GoToNextStep())
	assert.Equal(t, TotalSteps, m.CurrentStep())
	assert.Equal(t, []int{1, 2, 3, 4}, m.CompletedSteps())
}

func TestBackwardNavigationKeepsCompletedSteps(t *testing.T) {
	m := NewMachine(TotalSteps, nil)
	m.GoToNextStep()
	m.GoToNextStep()
	assert.True(t, m.GoToPreviousStep())
	assert.Equal(t, 2, m.CurrentStep())
	assert.Equal(t, []int{1, 2}, m.CompletedSteps())

	assert.True(t, m.GoToStep(3), "step 3 reachable because 1 and 2 are complete")
	assert.True(t, m.GoToStep(1))
	assert.False(t, m.GoToPreviousStep())
	assert.Equal(t, 1, m.CurrentStep())
}
