package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Clock is injected so the date rules can be tested.
type Clock func() time.Time

// SubmissionGrace is how long after the time limit a submission may still pass.
const SubmissionGrace = time.Minute

// AttemptService runs the attempt lifecycle. Every mutating method is a single
// transaction: an attempt is never marked passed unless its certificate and
// the training record update are committed with it.
type AttemptService interface {
	StartAttempt(ctx context.Context, actor model.Actor, testID uint) (*dto.StartAttemptResponse, error)
	SubmitAttempt(ctx context.Context, actor model.Actor, attemptID uint, answers model.AttemptAnswers) (*dto.SubmitAttemptResponse, error)
	AbandonAttempt(ctx context.Context, actor model.Actor, attemptID uint) error
	RecordManualResult(ctx context.Context, actor model.Actor, testID uint, req dto.ManualResultDTO) (*dto.ManualResultResponse, error)
	GetAttempt(ctx context.Context, actor model.Actor, attemptID uint) (*dto.TestAttemptDetailDTO, error)
	ListAttempts(ctx context.Context, actor model.Actor, testID uint) ([]dto.TestAttemptSummaryDTO, error)
	ListCertificates(ctx context.Context, actor model.Actor) ([]dto.CertificateDTO, error)
}

type attemptService struct {
	db           *gorm.DB
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.TestAttemptRepository
	certRepo     repository.CertificateRepository
	recordRepo   repository.TrainingRecordRepository
	eligibility  EligibilityService
	scoring      ScoringService
	authz        AuthorizationService
	validate     *validator.Validate
	now          Clock
}

func NewAttemptService(
	db *gorm.DB,
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.TestAttemptRepository,
	certRepo repository.CertificateRepository,
	recordRepo repository.TrainingRecordRepository,
	eligibility EligibilityService,
	scoring ScoringService,
	authz AuthorizationService,
	validate *validator.Validate,
	clock Clock,
) AttemptService {
	if clock == nil {
		clock = time.Now
	}
	return &attemptService{
		db:           db,
		testRepo:     testRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		certRepo:     certRepo,
		recordRepo:   recordRepo,
		eligibility:  eligibility,
		scoring:      scoring,
		authz:        authz,
		validate:     validate,
		now:          clock,
	}
}

// loadTest returns ErrNotFound for missing tests and for tests whose training was deleted.
func loadTest(ctx context.Context, tests repository.TestRepository, testID uint, withQuestions bool) (*model.Test, error) {
	var (
		test *model.Test
		err  error
	)
	if withQuestions {
		test, err = tests.FindByIDWithQuestions(ctx, testID)
	} else {
		test, err = tests.FindByID(ctx, testID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load test %d: %w", testID, err)
	}
	if test.TrainingDefinition.ID == 0 {
		return nil, ErrNotFound
	}
	return test, nil
}

func (s *attemptService) StartAttempt(ctx context.Context, actor model.Actor, testID uint) (*dto.StartAttemptResponse, error) {
	test, err := loadTest(ctx, s.testRepo, testID, false)
	if err != nil {
		return nil, err
	}
	if !test.IsActive {
		log.Warn().Uint("testID", testID).Msg("StartAttempt: test is not active")
		return nil, ErrNotFound
	}

	var (
		resp      *dto.StartAttemptResponse
		blockedBy *EligibilityError
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		attempts := s.attemptRepo.WithTx(tx)

		record, err := s.recordRepo.WithTx(tx).Get(ctx, actor.UserID, &test.TrainingDefinition)
		if err != nil {
			return err
		}
		verdict, err := s.eligibility.Evaluate(ctx, tx, actor, test.ID, record, now)
		if err != nil {
			return err
		}

		if verdict.Kind == VerdictContinue {
			open, err := attempts.FindByID(ctx, verdict.AttemptID)
			if err != nil {
				return err
			}
			deadline := test.Deadline(open.StartedAt)
			if deadline == nil || now.Before(deadline.Add(SubmissionGrace)) {
				resp = &dto.StartAttemptResponse{AttemptID: open.ID, Resumed: true}
				return nil
			}
			// The time ran out without a submission; it counts as a failure.
			if err := attempts.Complete(ctx, abandonedState(open, now)); err != nil {
				return err
			}
			log.Info().Uint("attemptID", open.ID).Msg("StartAttempt: expired attempt closed as abandoned")
			if verdict, err = s.eligibility.Evaluate(ctx, tx, actor, test.ID, record, now); err != nil {
				return err
			}
		}

		if verdict.Kind == VerdictBlocked {
			// Commit, so an expired attempt closed above stays closed.
			blockedBy = verdict.Block
			return nil
		}

		attempt := &model.TestAttempt{
			UserID:    actor.UserID,
			TestID:    test.ID,
			Status:    model.AttemptInProgress,
			StartedAt: now,
		}
		if err := attempts.Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		resp = &dto.StartAttemptResponse{AttemptID: attempt.ID}
		return nil
	})
	if err == nil && blockedBy != nil {
		log.Info().Uint("userID", actor.UserID).Uint("testID", testID).Str("code", string(blockedBy.Code)).Msg("StartAttempt: blocked")
		return nil, blockedBy
	}
	if err == nil {
		log.Info().Uint("userID", actor.UserID).Uint("testID", testID).Uint("attemptID", resp.AttemptID).
			Bool("resumed", resp.Resumed).Msg("StartAttempt: ok")
		return resp, nil
	}

	if errors.Is(err, repository.ErrUnknownTrainingCode) {
		return nil, NewValidationError("training_code", err.Error())
	}
	// A concurrent start won the one-open-attempt index; hand out its attempt.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		open, findErr := s.attemptRepo.FindOpen(ctx, actor.UserID, testID)
		if findErr == nil {
			deadline := test.Deadline(open.StartedAt)
			if deadline == nil || s.now().Before(deadline.Add(SubmissionGrace)) {
				log.Info().Uint("attemptID", open.ID).Msg("StartAttempt: concurrent start detected, resuming")
				return &dto.StartAttemptResponse{AttemptID: open.ID, Resumed: true}, nil
			}
		}
	}
	log.Error().Err(err).Uint("userID", actor.UserID).Uint("testID", testID).Msg("StartAttempt: transaction failed")
	return nil, &IntegrityError{Op: "start attempt", Err: err}
}

func (s *attemptService) SubmitAttempt(ctx context.Context, actor model.Actor, attemptID uint, answers model.AttemptAnswers) (*dto.SubmitAttemptResponse, error) {
	var resp *dto.SubmitAttemptResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.attemptRepo.WithTx(tx)

		attempt, err := attempts.FindByIDForUpdate(ctx, attemptID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && attempt.UserID != actor.UserID) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !attempt.InProgress() {
			return ErrAttemptCompleted
		}

		test, err := loadTest(ctx, s.testRepo.WithTx(tx), attempt.TestID, false)
		if err != nil {
			return err
		}
		questions, err := s.questionRepo.WithTx(tx).FindByTestID(ctx, test.ID)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return NewValidationError("test", "test has no questions")
		}

		kept := model.AttemptAnswers{}
		for qid, a := range answers {
			if !containsQuestion(questions, qid) {
				log.Warn().Uint("questionID", qid).Uint("attemptID", attemptID).Msg("SubmitAttempt: answer for a question not part of this test, skipping.")
				continue
			}
			kept[qid] = a
		}

		now := s.now()
		result := s.scoring.Score(questions, kept)
		passed := s.scoring.Passed(result.Score, test.PassingScore)
		if deadline := test.Deadline(attempt.StartedAt); deadline != nil && now.After(deadline.Add(SubmissionGrace)) {
			log.Warn().Uint("attemptID", attemptID).Time("deadline", *deadline).Msg("SubmitAttempt: submitted after the time limit, cannot pass")
			passed = false
		}

		score := result.Score
		attempt.CompletedAt = &now
		attempt.Score = &score
		attempt.Passed = &passed
		attempt.EarnedPoints = result.EarnedPoints
		attempt.TotalPoints = result.TotalPoints
		attempt.Answers = datatypes.NewJSONType(kept)
		attempt.Status = model.AttemptFailed
		if passed {
			attempt.Status = model.AttemptPassed
		}
		if err := attempts.Complete(ctx, attempt); err != nil {
			return err
		}

		resp = &dto.SubmitAttemptResponse{
			AttemptID:    attempt.ID,
			Score:        score,
			Passed:       passed,
			TotalPoints:  result.TotalPoints,
			EarnedPoints: result.EarnedPoints,
		}
		if !passed {
			return nil
		}
		cert, err := s.recordSuccess(ctx, tx, attempt, &test.TrainingDefinition, now)
		if err != nil {
			return err
		}
		resp.Certificate, err = certificateDTO(cert, test.TrainingDefinition.Code)
		return err
	})
	if err != nil {
		return nil, s.lifecycleError("submit attempt", attemptID, err)
	}
	log.Info().Uint("attemptID", attemptID).Float64("score", resp.Score).Bool("passed", resp.Passed).Msg("SubmitAttempt: completed")
	return resp, nil
}

func (s *attemptService) AbandonAttempt(ctx context.Context, actor model.Actor, attemptID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.attemptRepo.WithTx(tx)
		attempt, err := attempts.FindByIDForUpdate(ctx, attemptID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && attempt.UserID != actor.UserID) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !attempt.InProgress() {
			return ErrAttemptCompleted
		}
		return attempts.Complete(ctx, abandonedState(attempt, s.now()))
	})
	if err != nil {
		return s.lifecycleError("abandon attempt", attemptID, err)
	}
	log.Info().Uint("attemptID", attemptID).Uint("userID", actor.UserID).Msg("AbandonAttempt: attempt abandoned")
	return nil
}

func (s *attemptService) RecordManualResult(ctx context.Context, actor model.Actor, testID uint, req dto.ManualResultDTO) (*dto.ManualResultResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationFromValidator(err)
	}
	decision, err := s.authz.CanManageTest(ctx, actor, testID, ActionRecordManual)
	if err != nil {
		return nil, err
	}
	if err := decision.Deny(ActionRecordManual); err != nil {
		return nil, err
	}
	test, err := loadTest(ctx, s.testRepo, testID, false)
	if err != nil {
		return nil, err
	}

	var resp *dto.ManualResultResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.attemptRepo.WithTx(tx)
		now := s.now()

		// An online attempt left open would block the worker after this result.
		open, err := attempts.FindOpen(ctx, req.UserID, testID)
		switch {
		case err == nil:
			if err := attempts.Complete(ctx, abandonedState(open, now)); err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		score, passed := *req.Score, *req.Passed
		recordedBy := actor.UserID
		attempt := &model.TestAttempt{
			UserID:      req.UserID,
			TestID:      testID,
			Status:      model.AttemptFailed,
			StartedAt:   now,
			CompletedAt: &now,
			Score:       &score,
			Passed:      &passed,
			IsManual:    true,
			RecordedBy:  &recordedBy,
			Notes:       req.Notes,
		}
		if passed {
			attempt.Status = model.AttemptPassed
		}
		if err := attempts.Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to create manual attempt: %w", err)
		}

		resp = &dto.ManualResultResponse{AttemptID: attempt.ID}
		if !passed {
			return nil
		}
		cert, err := s.recordSuccess(ctx, tx, attempt, &test.TrainingDefinition, now)
		if err != nil {
			return err
		}
		resp.Certificate, err = certificateDTO(cert, test.TrainingDefinition.Code)
		return err
	})
	if err != nil {
		return nil, s.lifecycleError("record manual result", testID, err)
	}
	log.Info().Uint("testID", testID).Uint("userID", req.UserID).Uint("recordedBy", actor.UserID).
		Bool("passed", *req.Passed).Msg("RecordManualResult: recorded")
	return resp, nil
}

// recordSuccess updates the training record and issues the certificate; it
// must run inside the transaction that completed the attempt.
func (s *attemptService) recordSuccess(ctx context.Context, tx *gorm.DB, attempt *model.TestAttempt, def *model.TrainingDefinition, now time.Time) (*model.Certificate, error) {
	if _, err := s.recordRepo.WithTx(tx).MarkCompleted(ctx, attempt.UserID, def, now); err != nil {
		return nil, fmt.Errorf("failed to update training record: %w", err)
	}
	number, err := NewCertificateNumber(now)
	if err != nil {
		return nil, err
	}
	cert := &model.Certificate{
		CertificateNumber:    number,
		TestAttemptID:        attempt.ID,
		UserID:               attempt.UserID,
		TrainingDefinitionID: def.ID,
		IssuedAt:             now,
		ValidUntil:           model.AddMonths(now, def.ValidityMonths),
	}
	if err := s.certRepo.WithTx(tx).Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("failed to issue certificate: %w", err)
	}
	return cert, nil
}

// NewCertificateNumber uses a random (crypto/rand backed) UUID so concurrent
// passes cannot collide.
func NewCertificateNumber(at time.Time) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate certificate number: %w", err)
	}
	return fmt.Sprintf("CERT-%s-%s", at.Format("20060102"), strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))), nil
}

func abandonedState(a *model.TestAttempt, now time.Time) *model.TestAttempt {
	score, passed := 0.0, false
	a.Status = model.AttemptAbandoned
	a.CompletedAt = &now
	a.Score = &score
	a.Passed = &passed
	return a
}

func containsQuestion(questions []model.Question, id uint) bool {
	for i := range questions {
		if questions[i].ID == id {
			return true
		}
	}
	return false
}

// lifecycleError keeps domain errors as they are and reports everything else
// as a rolled back, retryable failure.
func (s *attemptService) lifecycleError(op string, id uint, err error) error {
	var (
		validation *ValidationError
		authz      *AuthorizationError
	)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAttemptCompleted),
		errors.As(err, &validation), errors.As(err, &authz):
		return err
	case errors.Is(err, repository.ErrAttemptNotOpen):
		return ErrAttemptCompleted
	case errors.Is(err, repository.ErrUnknownTrainingCode):
		return NewValidationError("training_code", err.Error())
	}
	log.Error().Err(err).Str("op", op).Uint("id", id).Msg("Lifecycle transaction rolled back")
	return &IntegrityError{Op: op, Err: err}
}

func validationFromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewValidationError("request", err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
	}
	return &ValidationError{Fields: fields}
}

func (s *attemptService) GetAttempt(ctx context.Context, actor model.Actor, attemptID uint) (*dto.TestAttemptDetailDTO, error) {
	attempt, err := s.attemptRepo.FindByID(ctx, attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt %d: %w", attemptID, err)
	}
	if attempt.UserID != actor.UserID && actor.Role != model.RoleAdmin {
		return nil, ErrNotFound
	}

	var resp dto.TestAttemptDetailDTO
	if err := copier.Copy(&resp.TestAttemptSummaryDTO, attempt); err != nil {
		log.Error().Err(err).Msg("GetAttempt: Failed to copy attempt model to DTO.")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	resp.EarnedPoints = attempt.EarnedPoints
	resp.TotalPoints = attempt.TotalPoints
	resp.Notes = attempt.Notes
	if data := attempt.Answers.Data(); len(data) > 0 {
		resp.Answers = make(map[uint]dto.AnswerValueDTO, len(data))
		for qid, a := range data {
			resp.Answers[qid] = dto.AnswerValueDTO{Value: a.Value, Values: a.Values}
		}
	}
	if attempt.InProgress() {
		if test, err := s.testRepo.FindByID(ctx, attempt.TestID); err == nil {
			resp.Deadline = test.Deadline(attempt.StartedAt)
		}
	}
	return &resp, nil
}

func (s *attemptService) ListAttempts(ctx context.Context, actor model.Actor, testID uint) ([]dto.TestAttemptSummaryDTO, error) {
	attempts, err := s.attemptRepo.FindAllByTestAndUser(ctx, testID, actor.UserID)
	if err != nil {
		log.Error().Err(err).Uint("testID", testID).Uint("userID", actor.UserID).Msg("ListAttempts: Failed to find attempts from repository.")
		return nil, fmt.Errorf("error fetching attempts for test %d: %w", testID, err)
	}
	dtos := make([]dto.TestAttemptSummaryDTO, 0, len(attempts))
	for i := range attempts {
		var summary dto.TestAttemptSummaryDTO
		if err := copier.Copy(&summary, &attempts[i]); err != nil {
			log.Error().Err(err).Uint("attemptID", attempts[i].ID).Msg("ListAttempts: Error copying attempt to summary DTO")
			continue
		}
		dtos = append(dtos, summary)
	}
	return dtos, nil
}

func (s *attemptService) ListCertificates(ctx context.Context, actor model.Actor) ([]dto.CertificateDTO, error) {
	certs, err := s.certRepo.FindAllByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("error fetching certificates: %w", err)
	}
	out := make([]dto.CertificateDTO, 0, len(certs))
	for i := range certs {
		c, err := certificateDTO(&certs[i], certs[i].TrainingDefinition.Code)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func certificateDTO(cert *model.Certificate, code string) (*dto.CertificateDTO, error) {
	var out dto.CertificateDTO
	if err := copier.Copy(&out, cert); err != nil {
		log.Error().Err(err).Uint("certificateID", cert.ID).Msg("Failed to copy certificate model to DTO.")
		return nil, fmt.Errorf("error preparing certificate data: %w", err)
	}
	out.TrainingCode = code
	return &out, nil
}
