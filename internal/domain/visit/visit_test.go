package visit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	t.Run("scheduled can complete or cancel", func(t *testing.T) {
		v := &Visit{Status: StatusScheduled}
		assert.True(t, v.CanTransitionTo(StatusCompleted))
		assert.True(t, v.CanTransitionTo(StatusCancelled))
	})

	t.Run("completed is terminal", func(t *testing.T) {
		v := &Visit{Status: StatusCompleted}
		assert.False(t, v.CanTransitionTo(StatusScheduled))
		assert.False(t, v.CanTransitionTo(StatusCancelled))
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		v := &Visit{Status: StatusCancelled}
		assert.False(t, v.CanTransitionTo(StatusScheduled))
		assert.False(t, v.CanTransitionTo(StatusCompleted))
	})
}

func TestCancel(t *testing.T) {
	t.Run("from scheduled", func(t *testing.T) {
		v := &Visit{Status: StatusScheduled}
		assert.NoError(t, v.Cancel())
		assert.Equal(t, StatusCancelled, v.Status)
	})

	t.Run("cancelling twice fails without further mutation", func(t *testing.T) {
		v := &Visit{Status: StatusScheduled}
		assert.NoError(t, v.Cancel())
		assert.ErrorIs(t, v.Cancel(), ErrInvalidStatusTransition)
		assert.Equal(t, StatusCancelled, v.Status)
	})

	t.Run("completed visits cannot be cancelled", func(t *testing.T) {
		v := &Visit{Status: StatusCompleted}
		assert.ErrorIs(t, v.Cancel(), ErrInvalidStatusTransition)
		assert.Equal(t, StatusCompleted, v.Status)
	})
}

func TestComplete(t *testing.T) {
	v := &Visit{Status: StatusScheduled}
	assert.NoError(t, v.Complete())
	assert.Equal(t, StatusCompleted, v.Status)
	assert.ErrorIs(t, v.Complete(), ErrInvalidStatusTransition)
}

func TestSickLeaveIssued(t *testing.T) {
	v := &Visit{}
	assert.False(t, v.SickLeaveIssued())

	v.SickLeave = &SickLeave{DurationDays: 5}
	assert.True(t, v.SickLeaveIssued())
}

func TestValidateTime(t *testing.T) {
	assert.NoError(t, ValidateTime("09:00"))
	assert.NoError(t, ValidateTime("23:59"))
	assert.ErrorIs(t, ValidateTime("24:00"), ErrInvalidVisitTime)
	assert.ErrorIs(t, ValidateTime("9am"), ErrInvalidVisitTime)
	assert.ErrorIs(t, ValidateTime(""), ErrInvalidVisitTime)
}

func TestStatusIsValid(t *testing.T) {
	assert.True(t, StatusScheduled.IsValid())
	assert.True(t, StatusCompleted.IsValid())
	assert.True(t, StatusCancelled.IsValid())
	assert.False(t, VisitStatus("no_show").IsValid())
}
