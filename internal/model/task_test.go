package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusPending, false}, // no going back
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusCancelled, false}, // terminal
		{StatusCancelled, StatusPending, false},   // terminal
		{StatusCancelled, StatusCompleted, false},
		{StatusPending, StatusPending, true}, // same-status writes allowed
		{StatusCompleted, StatusCompleted, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestValidStatusAndPriority(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusCancelled))
	assert.False(t, ValidStatus("done"))
	assert.False(t, ValidStatus(""))

	assert.True(t, ValidPriority(PriorityHigh))
	assert.False(t, ValidPriority("urgent"))

	assert.True(t, ValidEnergy(EnergyLow))
	assert.False(t, ValidEnergy("none"))
}

func TestValidScoreBounds(t *testing.T) {
	assert.True(t, ValidScore(0))
	assert.True(t, ValidScore(0.85))
	assert.True(t, ValidScore(1))
	assert.False(t, ValidScore(-0.01))
	assert.False(t, ValidScore(1.01))
}

func TestValidateSteps(t *testing.T) {
	ok := []PlanStepInput{
		{Order: 1, Text: "outline"},
		{Order: 2, Text: "draft"},
		{Order: 3, Text: "review"},
	}
	i, valid := ValidateSteps(ok)
	assert.True(t, valid)
	assert.Equal(t, -1, i)

	_, valid = ValidateSteps(nil)
	assert.False(t, valid, "empty batch is invalid")

	i, valid = ValidateSteps([]PlanStepInput{{Order: 0, Text: "x"}})
	assert.False(t, valid)
	assert.Equal(t, 0, i)

	i, valid = ValidateSteps([]PlanStepInput{{Order: 1, Text: "a"}, {Order: 2, Text: ""}})
	assert.False(t, valid)
	assert.Equal(t, 1, i, "empty text reported at its index")

	i, valid = ValidateSteps([]PlanStepInput{{Order: 1, Text: "a"}, {Order: 1, Text: "b"}})
	assert.False(t, valid)
	assert.Equal(t, 1, i, "duplicate order reported at its index")
}

func TestValidStepStatus(t *testing.T) {
	assert.True(t, ValidStepStatus(StepSkipped))
	assert.False(t, ValidStepStatus("paused"))
}
