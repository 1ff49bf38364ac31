package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/lshigami/compliance/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	worker  = model.Actor{UserID: 100, Role: model.RoleWorker}
	other   = model.Actor{UserID: 101, Role: model.RoleWorker}
	trainer = model.Actor{UserID: 200, Role: model.RoleTrainer}
	admin   = model.Actor{UserID: 1, Role: model.RoleAdmin}
)

// fixture wires the services over a private sqlite database and a clock the
// test can move.
type fixture struct {
	db          *gorm.DB
	now         time.Time
	whitelist   *repository.CodeWhitelist
	defs        repository.TrainingDefinitionRepository
	tests       repository.TestRepository
	questions   repository.QuestionRepository
	attempts    repository.TestAttemptRepository
	certs       repository.CertificateRepository
	assignments repository.TrainingAssignmentRepository
	records     repository.TrainingRecordRepository
	authz       AuthorizationService
	validate    *validator.Validate
	svc         AttemptService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:          db,
		now:         time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
		whitelist:   repository.NewCodeWhitelist(),
		defs:        repository.NewTrainingDefinitionRepository(db),
		tests:       repository.NewTestRepository(db),
		questions:   repository.NewQuestionRepository(db),
		attempts:    repository.NewTestAttemptRepository(db),
		certs:       repository.NewCertificateRepository(db),
		assignments: repository.NewTrainingAssignmentRepository(db),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
	f.records = repository.NewTrainingRecordRepository(db, f.whitelist)
	f.authz = NewAuthorizationService(f.assignments, f.tests, repository.NewAuditRepository(db))
	f.svc = f.attemptService(f.records)
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) attemptService(records repository.TrainingRecordRepository) AttemptService {
	return NewAttemptService(f.db, f.tests, f.questions, f.attempts, f.certs, records,
		NewEligibilityService(f.attempts), NewScoringService(), f.authz, f.validate, f.clock)
}

func (f *fixture) seedTraining(t *testing.T, code string, validityMonths int) *model.TrainingDefinition {
	t.Helper()
	def := &model.TrainingDefinition{Code: code, Name: code, ValidityMonths: validityMonths}
	require.NoError(t, f.defs.Create(context.Background(), def))
	f.whitelist.Add(code)
	return def
}

// seedTest creates an active test with one single-choice question (B) and
// one multiple-choice question (A, C), three points in total.
func (f *fixture) seedTest(t *testing.T, def *model.TrainingDefinition, timeLimit *int) *model.Test {
	t.Helper()
	test := &model.Test{
		TrainingDefinitionID: def.ID,
		Title:                def.Code + " test",
		PassingScore:         60,
		TimeLimitMinutes:     timeLimit,
		Questions: []model.Question{
			{Prompt: "Pick B", Type: model.QuestionSingle, Options: []string{"A", "B", "C"}, CorrectAnswers: []string{"B"}, Required: true, OrderInTest: 1},
			{Prompt: "Pick A and C", Type: model.QuestionMultiple, Options: []string{"A", "B", "C", "D"}, CorrectAnswers: []string{"A", "C"}, Required: true, OrderInTest: 2},
		},
	}
	ctx := context.Background()
	require.NoError(t, f.tests.Create(ctx, test))
	require.NoError(t, f.tests.Activate(ctx, test))
	return test
}

func correctAnswers(test *model.Test) model.AttemptAnswers {
	return model.AttemptAnswers{
		test.Questions[0].ID: {Value: "B"},
		test.Questions[1].ID: {Values: []string{"A", "C"}},
	}
}

func wrongAnswers(test *model.Test) model.AttemptAnswers {
	return model.AttemptAnswers{
		test.Questions[0].ID: {Value: "A"},
		test.Questions[1].ID: {Values: []string{"B"}},
	}
}

func (f *fixture) countCertificates(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Certificate{}).Count(&n).Error)
	return n
}
