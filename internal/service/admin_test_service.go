package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type AdminTestService interface {
	CreateTest(ctx context.Context, actor model.Actor, req dto.TestCreateDTO) (*dto.TestResponseDTO, error)
	ActivateTest(ctx context.Context, actor model.Actor, testID uint) (*dto.TestResponseDTO, error)
}

type adminTestService struct {
	db             *gorm.DB
	testRepo       repository.TestRepository
	definitionRepo repository.TrainingDefinitionRepository
	authz          AuthorizationService
	validate       *validator.Validate
}

func NewAdminTestService(
	db *gorm.DB,
	testRepo repository.TestRepository,
	definitionRepo repository.TrainingDefinitionRepository,
	authz AuthorizationService,
	validate *validator.Validate,
) AdminTestService {
	return &adminTestService{
		db:             db,
		testRepo:       testRepo,
		definitionRepo: definitionRepo,
		authz:          authz,
		validate:       validate,
	}
}

func (s *adminTestService) CreateTest(ctx context.Context, actor model.Actor, req dto.TestCreateDTO) (*dto.TestResponseDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationFromValidator(err)
	}
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	decision, err := s.authz.CanManageTraining(ctx, actor, req.TrainingID, ActionManageTests)
	if err != nil {
		return nil, err
	}
	if err := decision.Deny(ActionManageTests); err != nil {
		return nil, err
	}
	if _, err := s.definitionRepo.FindByID(ctx, req.TrainingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load training %d: %w", req.TrainingID, err)
	}

	testModel := model.Test{
		TrainingDefinitionID: req.TrainingID,
		Title:                req.Title,
		Description:          req.Description,
		PassingScore:         req.PassingScore,
		TimeLimitMinutes:     req.TimeLimitMinutes,
		Questions:            questions,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tests := s.testRepo.WithTx(tx)
		if err := tests.Create(ctx, &testModel); err != nil {
			return fmt.Errorf("database error creating test: %w", err)
		}
		if req.Activate {
			return tests.Activate(ctx, &testModel)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Uint("trainingID", req.TrainingID).Msg("Failed to create test in database")
		return nil, err
	}

	created, err := s.testRepo.FindByIDWithQuestions(ctx, testModel.ID)
	if err != nil {
		log.Error().Err(err).Uint("testID", testModel.ID).Msg("Failed to retrieve newly created test with questions for response")
		return toTestResponse(&testModel), nil
	}
	log.Info().Uint("testID", created.ID).Uint("trainingID", created.TrainingDefinitionID).Bool("active", created.IsActive).Msg("Test created")
	return toTestResponse(created), nil
}

func (s *adminTestService) ActivateTest(ctx context.Context, actor model.Actor, testID uint) (*dto.TestResponseDTO, error) {
	decision, err := s.authz.CanManageTest(ctx, actor, testID, ActionManageTests)
	if err != nil {
		return nil, err
	}
	if err := decision.Deny(ActionManageTests); err != nil {
		return nil, err
	}

	var activated *model.Test
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tests := s.testRepo.WithTx(tx)
		test, err := loadTest(ctx, tests, testID, false)
		if err != nil {
			return err
		}
		if err := tests.Activate(ctx, test); err != nil {
			return err
		}
		activated = test
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Uint("testID", testID).Msg("Failed to activate test")
		return nil, &IntegrityError{Op: "activate test", Err: err}
	}
	log.Info().Uint("testID", testID).Uint("trainingID", activated.TrainingDefinitionID).Msg("Test activated, siblings deactivated")
	return toTestResponse(activated), nil
}

// buildQuestions checks what the struct tags cannot: a single-choice question
// has exactly one correct answer and every correct answer is one of the options.
func buildQuestions(in []dto.QuestionCreateDTO) ([]model.Question, error) {
	fields := map[string]string{}
	out := make([]model.Question, 0, len(in))
	for i, q := range in {
		key := fmt.Sprintf("questions[%d]", i)
		options := model.NonEmpty(q.Options)
		correct := model.NonEmpty(q.CorrectAnswers)
		qType := model.QuestionType(q.Type)

		if len(options) < 2 {
			fields[key+".options"] = "at least two non-empty options are required"
		}
		if qType == model.QuestionSingle && len(correct) != 1 {
			fields[key+".correct_answers"] = "single choice questions need exactly one correct answer"
		}
		optionSet := toSet(options)
		seen := map[string]struct{}{}
		for _, c := range correct {
			if _, ok := optionSet[c]; !ok {
				fields[key+".correct_answers"] = fmt.Sprintf("%q is not one of the options", c)
			}
			if _, dup := seen[c]; dup {
				fields[key+".correct_answers"] = fmt.Sprintf("%q is listed twice", c)
			}
			seen[c] = struct{}{}
		}

		required := true
		if q.Required != nil {
			required = *q.Required
		}
		order := q.OrderInTest
		if order == 0 {
			order = i + 1
		}
		out = append(out, model.Question{
			Prompt:         q.Prompt,
			Type:           qType,
			Options:        q.Options,
			CorrectAnswers: correct,
			Required:       required,
			OrderInTest:    order,
		})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return out, nil
}

func toTestResponse(t *model.Test) *dto.TestResponseDTO {
	resp := &dto.TestResponseDTO{
		ID:                   t.ID,
		TrainingDefinitionID: t.TrainingDefinitionID,
		TrainingCode:         t.TrainingDefinition.Code,
		Title:                t.Title,
		Description:          t.Description,
		PassingScore:         t.PassingScore,
		TimeLimitMinutes:     t.TimeLimitMinutes,
		IsActive:             t.IsActive,
		CreatedAt:            t.CreatedAt,
	}
	for i := range t.Questions {
		q := &t.Questions[i]
		resp.Questions = append(resp.Questions, dto.QuestionResponseDTO{
			ID:          q.ID,
			TestID:      q.TestID,
			Prompt:      q.Prompt,
			Type:        string(q.Type),
			Options:     q.CleanOptions(),
			Required:    q.Required,
			Points:      q.DerivePoints(),
			OrderInTest: q.OrderInTest,
		})
	}
	return resp
}
