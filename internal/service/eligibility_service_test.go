package service

import (
	"testing"
	"time"

	"github.com/lshigami/compliance/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestDecide(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	svc := &eligibilityService{}

	t.Run("open attempt continues regardless of other rules", func(t *testing.T) {
		v := svc.Decide(EligibilityFacts{
			OpenAttempt:     &model.TestAttempt{ID: 42},
			FailedSincePass: 5,
			Record:          &model.TrainingRecord{Required: true},
		}, now)
		assert.Equal(t, VerdictContinue, v.Kind)
		assert.Equal(t, uint(42), v.AttemptID)
	})

	t.Run("ceiling beats the date rules", func(t *testing.T) {
		v := svc.Decide(EligibilityFacts{
			FailedSincePass: 2,
			Record:          &model.TrainingRecord{Required: true},
		}, now)
		require.Equal(t, VerdictBlocked, v.Kind)
		assert.Equal(t, CodeMaxAttemptsReached, v.Block.Code)
		assert.Equal(t, int64(2), v.Block.Details.FailedAttempts)
	})

	t.Run("one failure is still eligible", func(t *testing.T) {
		v := svc.Decide(EligibilityFacts{FailedSincePass: 1}, now)
		assert.Equal(t, VerdictEligible, v.Kind)
	})

	t.Run("required training never completed", func(t *testing.T) {
		v := svc.Decide(EligibilityFacts{Record: &model.TrainingRecord{Required: true}}, now)
		require.Equal(t, VerdictBlocked, v.Kind)
		assert.Equal(t, CodeFirstTestRequired, v.Block.Code)
	})

	t.Run("not required and never completed", func(t *testing.T) {
		v := svc.Decide(EligibilityFacts{Record: &model.TrainingRecord{}}, now)
		assert.Equal(t, VerdictEligible, v.Kind)
	})

	t.Run("too early to retake", func(t *testing.T) {
		due := now.AddDate(0, 0, 45) // 2026-12-01
		v := svc.Decide(EligibilityFacts{Record: &model.TrainingRecord{
			Required:        true,
			LastCompletedAt: timePtr(due.AddDate(-1, 0, 0)),
			NextDueAt:       &due,
		}}, now)
		require.Equal(t, VerdictBlocked, v.Kind)
		assert.Equal(t, CodeTooEarlyToRetake, v.Block.Code)
		require.NotNil(t, v.Block.Details.AllowedFrom)
		assert.Equal(t, time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC), *v.Block.Details.AllowedFrom)
		assert.Equal(t, 15, v.Block.Details.DaysUntilAllowed)
		assert.Equal(t, due, *v.Block.Details.NextDueAt)
	})

	t.Run("window opens on the allowed day", func(t *testing.T) {
		due := time.Date(2026, 11, 17, 8, 0, 0, 0, time.UTC)
		v := svc.Decide(EligibilityFacts{Record: &model.TrainingRecord{
			Required:        true,
			LastCompletedAt: timePtr(due.AddDate(-1, 0, 0)),
			NextDueAt:       &due,
		}}, now)
		assert.Equal(t, VerdictEligible, v.Kind)
	})

	t.Run("window opens at the exact instant", func(t *testing.T) {
		due := time.Date(2026, 11, 17, 18, 0, 0, 0, time.UTC)
		record := &model.TrainingRecord{
			Required:        true,
			LastCompletedAt: timePtr(due.AddDate(-1, 0, 0)),
			NextDueAt:       &due,
		}
		v := svc.Decide(EligibilityFacts{Record: record}, now)
		require.Equal(t, VerdictBlocked, v.Kind)
		assert.Equal(t, CodeTooEarlyToRetake, v.Block.Code)
		assert.Equal(t, 0, v.Block.Details.DaysUntilAllowed)

		v = svc.Decide(EligibilityFacts{Record: record}, time.Date(2026, 10, 17, 18, 0, 0, 0, time.UTC))
		assert.Equal(t, VerdictEligible, v.Kind)
	})

	t.Run("overdue training is eligible", func(t *testing.T) {
		due := now.AddDate(0, -2, 0)
		v := svc.Decide(EligibilityFacts{Record: &model.TrainingRecord{
			Required:        true,
			LastCompletedAt: timePtr(due.AddDate(-1, 0, 0)),
			NextDueAt:       &due,
		}}, now)
		assert.Equal(t, VerdictEligible, v.Kind)
	})
}

func TestDaysBetweenCountsCalendarDays(t *testing.T) {
	from := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, daysBetween(from, from))
	assert.Equal(t, 15, daysBetween(from, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 365, daysBetween(from, time.Date(2027, 10, 17, 0, 0, 0, 0, time.UTC)))
}

func TestGuidanceDependsOnRole(t *testing.T) {
	svc := &eligibilityService{}
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	facts := EligibilityFacts{Record: &model.TrainingRecord{Required: true}}

	for _, tt := range []struct {
		role model.Role
		want string
	}{
		{model.RoleWorker, "with a trainer"},
		{model.RoleTrainer, "manual result"},
		{model.RoleAdmin, "manual result"},
	} {
		facts.Role = tt.role
		v := svc.Decide(facts, now)
		require.Equal(t, VerdictBlocked, v.Kind)
		assert.Contains(t, v.Block.Details.Guidance, tt.want, tt.role)
	}

	facts = EligibilityFacts{FailedSincePass: 2, Role: model.RoleWorker}
	assert.Contains(t, svc.Decide(facts, now).Block.Details.Guidance, "Contact your trainer")
	facts.Role = model.RoleTrainer
	assert.NotContains(t, svc.Decide(facts, now).Block.Details.Guidance, "Contact your trainer")
}
