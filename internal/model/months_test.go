package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMonths(t *testing.T) {
	tests := []struct {
		in     time.Time
		months int
		want   time.Time
	}{
		{time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC), 1, time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)},
		{time.Date(2028, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), -1, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 12, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), 6, time.Date(2027, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC), 0, time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := AddMonths(tt.in, tt.months)
		assert.True(t, tt.want.Equal(got), "AddMonths(%s, %d) = %s, want %s", tt.in, tt.months, got, tt.want)
	}
}

func TestNextDue(t *testing.T) {
	assert.Nil(t, NextDue(nil, 12))

	last := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	due := NextDue(&last, 1)
	if assert.NotNil(t, due) {
		assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), *due)
	}
}

func TestQuestionDerivePoints(t *testing.T) {
	single := Question{Type: QuestionSingle, CorrectAnswers: []string{"A"}}
	multi := Question{Type: QuestionMultiple, CorrectAnswers: []string{"A", "", "C"}}
	assert.Equal(t, 1, single.DerivePoints())
	assert.Equal(t, 2, multi.DerivePoints())
}

func TestTestDeadline(t *testing.T) {
	start := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	assert.Nil(t, (&Test{}).Deadline(start))

	limit := 20
	d := (&Test{TimeLimitMinutes: &limit}).Deadline(start)
	if assert.NotNil(t, d) {
		assert.Equal(t, start.Add(20*time.Minute), *d)
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("trainer")
	assert.NoError(t, err)
	assert.Equal(t, RoleTrainer, r)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}
