package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStartAttemptCreatesThenResumes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), nil)

	first, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	assert.False(t, first.Resumed)

	again, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	assert.True(t, again.Resumed)
	assert.Equal(t, first.AttemptID, again.AttemptID)

	var open int64
	require.NoError(t, f.db.Model(&model.TestAttempt{}).Where("completed_at IS NULL").Count(&open).Error)
	assert.Equal(t, int64(1), open)
}

func TestStartAttemptInactiveTestIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def := f.seedTraining(t, "BOZP", 12)
	first := f.seedTest(t, def, nil)
	f.seedTest(t, def, nil) // deactivates first

	_, err := f.svc.StartAttempt(ctx, worker, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.StartAttempt(ctx, worker, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitAttemptPassIssuesOneCertificate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def := f.seedTraining(t, "BOZP", 12)
	test := f.seedTest(t, def, nil)

	start, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	res, err := f.svc.SubmitAttempt(ctx, worker, start.AttemptID, correctAnswers(test))
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 3, res.EarnedPoints)
	assert.Equal(t, 3, res.TotalPoints)
	require.NotNil(t, res.Certificate)
	assert.True(t, strings.HasPrefix(res.Certificate.CertificateNumber, "CERT-20261017-"))
	assert.True(t, res.Certificate.ValidUntil.Equal(model.AddMonths(f.now, 12)))

	record, err := f.records.Get(ctx, worker.UserID, def)
	require.NoError(t, err)
	require.NotNil(t, record.LastCompletedAt)
	assert.True(t, record.LastCompletedAt.Equal(f.now))
	assert.True(t, record.NextDueAt.Equal(model.AddMonths(f.now, 12)))

	_, err = f.svc.SubmitAttempt(ctx, worker, start.AttemptID, correctAnswers(test))
	assert.ErrorIs(t, err, ErrAttemptCompleted)
	assert.Equal(t, int64(1), f.countCertificates(t))

	certs, err := f.svc.ListCertificates(ctx, worker)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, "BOZP", certs[0].TrainingCode)
}

func TestSubmitAttemptFailDoesNotTouchRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def := f.seedTraining(t, "BOZP", 12)
	test := f.seedTest(t, def, nil)

	start, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	res, err := f.svc.SubmitAttempt(ctx, worker, start.AttemptID, wrongAnswers(test))
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Nil(t, res.Certificate)
	assert.Equal(t, 0, res.EarnedPoints)

	record, err := f.records.Get(ctx, worker.UserID, def)
	require.NoError(t, err)
	assert.Nil(t, record.LastCompletedAt)
	assert.Equal(t, int64(0), f.countCertificates(t))
}

func TestSubmitAttemptOfAnotherUserIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), nil)

	start, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)

	_, err = f.svc.SubmitAttempt(ctx, other, start.AttemptID, correctAnswers(test))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetAttempt(ctx, other, start.AttemptID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.AbandonAttempt(ctx, other, start.AttemptID), ErrNotFound)
}

func TestSubmitAttemptIgnoresForeignQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), nil)

	start, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	answers := correctAnswers(test)
	answers[99999] = model.SubmittedAnswer{Value: "X"}

	res, err := f.svc.SubmitAttempt(ctx, worker, start.AttemptID, answers)
	require.NoError(t, err)
	assert.True(t, res.Passed)

	detail, err := f.svc.GetAttempt(ctx, worker, start.AttemptID)
	require.NoError(t, err)
	assert.Len(t, detail.Answers, 2)
	assert.NotContains(t, detail.Answers, uint(99999))
}

func TestSubmitAfterTimeLimitCannotPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	limit := 30
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), &limit)

	start, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)

	f.now = f.now.Add(30*time.Minute + 30*time.Second)
	res, err := f.svc.SubmitAttempt(ctx, worker, start.AttemptID, correctAnswers(test))
	require.NoError(t, err)
	assert.True(t, res.Passed, "still inside the grace period")

	start2, err := f.svc.StartAttempt(ctx, other, test.ID)
	require.NoError(t, err)
	f.now = f.now.Add(45 * time.Minute)
	res, err = f.svc.SubmitAttempt(ctx, other, start2.AttemptID, correctAnswers(test))
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, 100.0, res.Score)
	assert.Nil(t, res.Certificate)
}

func TestStartAttemptClosesExpiredAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	limit := 30
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), &limit)

	first, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	second, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	assert.False(t, second.Resumed)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)

	old, err := f.attempts.FindByID(ctx, first.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptAbandoned, old.Status)
	require.NotNil(t, old.Passed)
	assert.False(t, *old.Passed)
}

type lockedAttempts struct {
	repository.TestAttemptRepository
}

func (r lockedAttempts) WithTx(tx *gorm.DB) repository.TestAttemptRepository {
	return lockedAttempts{r.TestAttemptRepository.WithTx(tx)}
}

func (r lockedAttempts) Complete(context.Context, *model.TestAttempt) error {
	return errors.New("attempt row is locked")
}

func TestStartAttemptFailsWhenExpiredAttemptCannotBeClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	limit := 10
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), &limit)

	first, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)

	locked := lockedAttempts{f.attempts}
	svc := NewAttemptService(f.db, f.tests, f.questions, locked, f.certs, f.records,
		NewEligibilityService(locked), NewScoringService(), f.authz, f.validate, f.clock)

	f.now = f.now.Add(time.Hour)
	res, err := svc.StartAttempt(ctx, worker, test.ID)
	assert.Nil(t, res)
	var integrity *IntegrityError
	require.ErrorAs(t, err, &integrity)

	open, err := f.attempts.FindByID(ctx, first.AttemptID)
	require.NoError(t, err)
	assert.True(t, open.InProgress())
}

// alwaysEligible skips the open-attempt lookup, as a concurrent start racing
// past the check would.
type alwaysEligible struct {
	EligibilityService
}

func (alwaysEligible) Evaluate(context.Context, *gorm.DB, model.Actor, uint, *model.TrainingRecord, time.Time) (*Verdict, error) {
	return &Verdict{Kind: VerdictEligible}, nil
}

func TestStartAttemptRaceResumesWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), nil)

	winner, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)

	racing := NewAttemptService(f.db, f.tests, f.questions, f.attempts, f.certs, f.records,
		alwaysEligible{}, NewScoringService(), f.authz, f.validate, f.clock)
	res, err := racing.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	assert.True(t, res.Resumed)
	assert.Equal(t, winner.AttemptID, res.AttemptID)

	var open int64
	require.NoError(t, f.db.Model(&model.TestAttempt{}).Where("user_id = ? AND completed_at IS NULL", worker.UserID).Count(&open).Error)
	assert.EqualValues(t, 1, open)
}

func TestStartAttemptRaceDoesNotResumeExpiredAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	limit := 10
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), &limit)

	_, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)

	racing := NewAttemptService(f.db, f.tests, f.questions, f.attempts, f.certs, f.records,
		alwaysEligible{}, NewScoringService(), f.authz, f.validate, f.clock)
	f.now = f.now.Add(time.Hour)
	res, err := racing.StartAttempt(ctx, worker, test.ID)
	assert.Nil(t, res)
	var integrity *IntegrityError
	assert.ErrorAs(t, err, &integrity)
}

func TestFailedAttemptCeilingAndManualReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def := f.seedTraining(t, "BOZP", 12)
	test := f.seedTest(t, def, nil)

	// First failure: a wrong submission.
	start, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitAttempt(ctx, worker, start.AttemptID, wrongAnswers(test))
	require.NoError(t, err)

	// Second failure: an abandoned attempt.
	f.now = f.now.Add(time.Minute)
	start, err = f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.AbandonAttempt(ctx, worker, start.AttemptID))
	assert.ErrorIs(t, f.svc.AbandonAttempt(ctx, worker, start.AttemptID), ErrAttemptCompleted)

	f.now = f.now.Add(time.Minute)
	_, err = f.svc.StartAttempt(ctx, worker, test.ID)
	var blocked *EligibilityError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, CodeMaxAttemptsReached, blocked.Code)
	assert.Equal(t, int64(2), blocked.Details.FailedAttempts)

	// Another worker is not affected.
	_, err = f.svc.StartAttempt(ctx, other, test.ID)
	require.NoError(t, err)

	// A manual pass by an admin resets the ceiling.
	f.now = f.now.Add(time.Hour)
	score, passed := 90.0, true
	manual, err := f.svc.RecordManualResult(ctx, admin, test.ID, dto.ManualResultDTO{UserID: worker.UserID, Score: &score, Passed: &passed, Notes: "in person"})
	require.NoError(t, err)
	require.NotNil(t, manual.Certificate)

	f.now = f.now.Add(time.Hour)
	restart, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	assert.False(t, restart.Resumed)
}

func TestFirstTestMustBeInPerson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def := f.seedTraining(t, "BOZP", 12)
	test := f.seedTest(t, def, nil)
	require.NoError(t, f.records.SetRequired(ctx, worker.UserID, def.Code, true))

	_, err := f.svc.StartAttempt(ctx, worker, test.ID)
	var blocked *EligibilityError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, CodeFirstTestRequired, blocked.Code)
}

func TestRetakeWindowOpensOneMonthBeforeDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def := f.seedTraining(t, "BOZP", 12)
	test := f.seedTest(t, def, nil)
	require.NoError(t, f.records.SetRequired(ctx, worker.UserID, def.Code, true))
	_, err := f.records.MarkCompleted(ctx, worker.UserID, def, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, err = f.svc.StartAttempt(ctx, worker, test.ID)
	var blocked *EligibilityError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, CodeTooEarlyToRetake, blocked.Code)
	assert.Equal(t, 15, blocked.Details.DaysUntilAllowed)
	require.NotNil(t, blocked.Details.AllowedFrom)
	assert.Equal(t, "2026-11-01", blocked.Details.AllowedFrom.Format("2006-01-02"))

	f.now = time.Date(2026, 11, 1, 7, 0, 0, 0, time.UTC)
	_, err = f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
}

type failingRecords struct {
	repository.TrainingRecordRepository
}

func (r failingRecords) WithTx(tx *gorm.DB) repository.TrainingRecordRepository {
	return failingRecords{r.TrainingRecordRepository.WithTx(tx)}
}

func (r failingRecords) MarkCompleted(context.Context, uint, *model.TrainingDefinition, time.Time) (*model.TrainingRecord, error) {
	return nil, errors.New("legacy table is locked")
}

func TestSubmitRollsBackWhenRecordUpdateFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), nil)
	svc := f.attemptService(failingRecords{f.records})

	start, err := svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)

	_, err = svc.SubmitAttempt(ctx, worker, start.AttemptID, correctAnswers(test))
	var integrity *IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.True(t, integrity.Retryable())

	attempt, err := f.attempts.FindByID(ctx, start.AttemptID)
	require.NoError(t, err)
	assert.True(t, attempt.InProgress())
	assert.Nil(t, attempt.Passed)
	assert.Equal(t, int64(0), f.countCertificates(t))
}

func TestRecordManualResultGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	def := f.seedTraining(t, "BOZP", 12)
	test := f.seedTest(t, def, nil)
	score, passed := 50.0, false
	req := dto.ManualResultDTO{UserID: worker.UserID, Score: &score, Passed: &passed}

	var denied *AuthorizationError
	_, err := f.svc.RecordManualResult(ctx, worker, test.ID, req)
	require.ErrorAs(t, err, &denied)

	_, err = f.svc.RecordManualResult(ctx, trainer, test.ID, req)
	require.ErrorAs(t, err, &denied)

	require.NoError(t, f.assignments.Create(ctx, &model.TrainingAssignment{TrainerID: trainer.UserID, TrainingDefinitionID: def.ID}))
	res, err := f.svc.RecordManualResult(ctx, trainer, test.ID, req)
	require.NoError(t, err)
	assert.Nil(t, res.Certificate)

	attempt, err := f.attempts.FindByID(ctx, res.AttemptID)
	require.NoError(t, err)
	assert.True(t, attempt.IsManual)
	require.NotNil(t, attempt.RecordedBy)
	assert.Equal(t, trainer.UserID, *attempt.RecordedBy)
	assert.Equal(t, model.AttemptFailed, attempt.Status)

	bad := 120.0
	_, err = f.svc.RecordManualResult(ctx, admin, test.ID, dto.ManualResultDTO{UserID: worker.UserID, Score: &bad, Passed: &passed})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "Score")
}

func TestRecordManualResultClosesOpenAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	test := f.seedTest(t, f.seedTraining(t, "BOZP", 12), nil)

	start, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	score, passed := 95.0, true
	_, err = f.svc.RecordManualResult(ctx, admin, test.ID, dto.ManualResultDTO{UserID: worker.UserID, Score: &score, Passed: &passed})
	require.NoError(t, err)

	open, err := f.attempts.FindByID(ctx, start.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptAbandoned, open.Status)

	list, err := f.svc.ListAttempts(ctx, worker, test.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCertificateDTO(t *testing.T) {
	issued := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	cert := &model.Certificate{
		ID:                   3,
		CertificateNumber:    "CERT-20261017-ABC",
		TestAttemptID:        9,
		UserID:               worker.UserID,
		TrainingDefinitionID: 4,
		IssuedAt:             issued,
		ValidUntil:           issued.AddDate(1, 0, 0),
	}
	out, err := certificateDTO(cert, "BOZP")
	require.NoError(t, err)
	assert.Equal(t, dto.CertificateDTO{
		ID:                   3,
		CertificateNumber:    "CERT-20261017-ABC",
		TestAttemptID:        9,
		UserID:               worker.UserID,
		TrainingDefinitionID: 4,
		TrainingCode:         "BOZP",
		IssuedAt:             issued,
		ValidUntil:           issued.AddDate(1, 0, 0),
	}, *out)
}
