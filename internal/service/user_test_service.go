package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/rs/zerolog/log"
)

type UserTestService interface {
	GetTestDetails(ctx context.Context, testID uint) (*dto.TestResponseDTO, error)
	GetActiveTestForTraining(ctx context.Context, trainingID uint) (*dto.TestResponseDTO, error)
}

type userTestService struct {
	testRepo repository.TestRepository
}

func NewUserTestService(testRepo repository.TestRepository) UserTestService {
	return &userTestService{testRepo: testRepo}
}

// GetTestDetails returns the questions without their correct answers.
func (s *userTestService) GetTestDetails(ctx context.Context, testID uint) (*dto.TestResponseDTO, error) {
	test, err := loadTest(ctx, s.testRepo, testID, true)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Uint("testID", testID).Msg("Failed to get test details from repository")
		}
		return nil, err
	}
	return toTestResponse(test), nil
}

func (s *userTestService) GetActiveTestForTraining(ctx context.Context, trainingID uint) (*dto.TestResponseDTO, error) {
	tests, err := s.testRepo.FindAllByTraining(ctx, trainingID)
	if err != nil {
		return nil, fmt.Errorf("error fetching tests of training %d: %w", trainingID, err)
	}
	for i := range tests {
		if tests[i].IsActive {
			return s.GetTestDetails(ctx, tests[i].ID)
		}
	}
	return nil, ErrNotFound
}
