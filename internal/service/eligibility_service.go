package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaxFailedAttempts is how many failed online attempts are allowed since the
// last pass before the worker has to retake the test with a trainer.
const MaxFailedAttempts = 2

type VerdictKind string

const (
	VerdictEligible VerdictKind = "eligible"
	VerdictContinue VerdictKind = "continue"
	VerdictBlocked  VerdictKind = "blocked"
)

type Verdict struct {
	Kind      VerdictKind
	AttemptID uint              // set for VerdictContinue
	Block     *EligibilityError // set for VerdictBlocked
}

// EligibilityFacts is everything the decision depends on. Role only shapes
// the guidance text, never the verdict.
type EligibilityFacts struct {
	OpenAttempt     *model.TestAttempt
	FailedSincePass int64
	Record          *model.TrainingRecord
	Role            model.Role
}

type EligibilityService interface {
	// Evaluate gathers facts through tx so the caller can act on the verdict
	// inside the same transaction.
	Evaluate(ctx context.Context, tx *gorm.DB, actor model.Actor, testID uint, record *model.TrainingRecord, at time.Time) (*Verdict, error)
	Decide(facts EligibilityFacts, at time.Time) *Verdict
}

type eligibilityService struct {
	attemptRepo repository.TestAttemptRepository
}

func NewEligibilityService(attemptRepo repository.TestAttemptRepository) EligibilityService {
	return &eligibilityService{attemptRepo: attemptRepo}
}

func (s *eligibilityService) Evaluate(ctx context.Context, tx *gorm.DB, actor model.Actor, testID uint, record *model.TrainingRecord, at time.Time) (*Verdict, error) {
	attempts := s.attemptRepo
	if tx != nil {
		attempts = attempts.WithTx(tx)
	}
	userID := actor.UserID
	facts := EligibilityFacts{Record: record, Role: actor.Role}

	open, err := attempts.FindOpen(ctx, userID, testID)
	switch {
	case err == nil:
		facts.OpenAttempt = open
		// An open attempt wins regardless of the remaining rules.
		return s.Decide(facts, at), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to look up open attempt: %w", err)
	}

	var since *time.Time
	lastPass, err := attempts.FindLatestPassed(ctx, userID, testID)
	switch {
	case err == nil:
		since = &lastPass.StartedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to look up last passed attempt: %w", err)
	}
	facts.FailedSincePass, err = attempts.CountFailedSince(ctx, userID, testID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed attempts: %w", err)
	}

	verdict := s.Decide(facts, at)
	log.Debug().Uint("userID", userID).Uint("testID", testID).Str("verdict", string(verdict.Kind)).
		Int64("failedSincePass", facts.FailedSincePass).Msg("Eligibility evaluated")
	return verdict, nil
}

// Decide applies the rules in order; the first match wins.
func (s *eligibilityService) Decide(facts EligibilityFacts, at time.Time) *Verdict {
	if facts.OpenAttempt != nil {
		return &Verdict{Kind: VerdictContinue, AttemptID: facts.OpenAttempt.ID}
	}

	if facts.FailedSincePass >= MaxFailedAttempts {
		return blocked(CodeMaxAttemptsReached, EligibilityDetails{
			FailedAttempts: facts.FailedSincePass,
			Guidance:       guidance(CodeMaxAttemptsReached, facts.Role),
		})
	}

	record := facts.Record
	if record == nil || !record.Required {
		return &Verdict{Kind: VerdictEligible}
	}

	if record.LastCompletedAt == nil {
		return blocked(CodeFirstTestRequired, EligibilityDetails{
			Guidance: guidance(CodeFirstTestRequired, facts.Role),
		})
	}

	if record.NextDueAt != nil {
		allowedFrom := model.AddMonths(*record.NextDueAt, -1)
		if at.Before(allowedFrom) {
			due := *record.NextDueAt
			today := now.With(at.In(allowedFrom.Location())).BeginningOfDay()
			return blocked(CodeTooEarlyToRetake, EligibilityDetails{
				AllowedFrom:      &allowedFrom,
				DaysUntilAllowed: daysBetween(today, now.With(allowedFrom).BeginningOfDay()),
				NextDueAt:        &due,
				Guidance:         guidance(CodeTooEarlyToRetake, facts.Role),
			})
		}
	}

	return &Verdict{Kind: VerdictEligible}
}

// guidance tells workers who to ask, and trainers and admins that they can
// record an in-person result themselves.
func guidance(code EligibilityCode, role model.Role) string {
	staff := role == model.RoleAdmin || role == model.RoleTrainer
	switch code {
	case CodeMaxAttemptsReached:
		if staff {
			return "Too many failed attempts. Run the test in person and record the result as a manual result."
		}
		return "Too many failed attempts. Contact your trainer to retake the test in person."
	case CodeFirstTestRequired:
		if staff {
			return "The first test for this training is taken in person. Record it as a manual result."
		}
		return "The first test for this training must be taken in person with a trainer."
	case CodeTooEarlyToRetake:
		if staff {
			return "The online retake opens one month before the training expires. An in-person result can be recorded at any time."
		}
		return "The retake opens one month before the training expires."
	default:
		return ""
	}
}

func blocked(code EligibilityCode, details EligibilityDetails) *Verdict {
	return &Verdict{Kind: VerdictBlocked, Block: &EligibilityError{Code: code, Details: details}}
}

// daysBetween counts calendar days; both arguments are midnights in the same zone.
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
