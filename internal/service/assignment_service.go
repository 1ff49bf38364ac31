package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AssignmentService keeps the trainer to training mapping one to one.
type AssignmentService interface {
	AssignTrainer(ctx context.Context, actor model.Actor, req dto.AssignTrainerDTO) (*dto.AssignmentDTO, error)
	UnassignTrainer(ctx context.Context, actor model.Actor, assignmentID uint) error
	RestoreAssignment(ctx context.Context, actor model.Actor, assignmentID uint) (*dto.AssignmentDTO, error)
	ListAssignments(ctx context.Context, actor model.Actor, includeDeleted bool) ([]dto.AssignmentDTO, error)
}

type assignmentService struct {
	db             *gorm.DB
	assignmentRepo repository.TrainingAssignmentRepository
	definitionRepo repository.TrainingDefinitionRepository
	authz          AuthorizationService
}

func NewAssignmentService(
	db *gorm.DB,
	assignmentRepo repository.TrainingAssignmentRepository,
	definitionRepo repository.TrainingDefinitionRepository,
	authz AuthorizationService,
) AssignmentService {
	return &assignmentService{
		db:             db,
		assignmentRepo: assignmentRepo,
		definitionRepo: definitionRepo,
		authz:          authz,
	}
}

func (s *assignmentService) requireAdmin(ctx context.Context, actor model.Actor) error {
	decision, err := s.authz.RequireAdmin(ctx, actor, ActionManageAssignments)
	if err != nil {
		return err
	}
	return decision.Deny(ActionManageAssignments)
}

func (s *assignmentService) AssignTrainer(ctx context.Context, actor model.Actor, req dto.AssignTrainerDTO) (*dto.AssignmentDTO, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	var created *model.TrainingAssignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		def, err := s.definitionRepo.WithTx(tx).FindByID(ctx, req.TrainingID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		assignments := s.assignmentRepo.WithTx(tx)
		if _, err := assignments.FindActiveByTraining(ctx, def.ID); err == nil {
			return NewValidationError("training_id", "training already has an assigned trainer")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		a := &model.TrainingAssignment{TrainerID: req.TrainerID, TrainingDefinitionID: def.ID}
		if err := assignments.Create(ctx, a); err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}
		a.TrainingDefinition = *def
		created = a
		return nil
	})
	if err != nil {
		return nil, assignmentError("assign trainer", err)
	}
	log.Info().Uint("trainerID", req.TrainerID).Uint("trainingID", req.TrainingID).Msg("Trainer assigned")
	return toAssignmentDTO(created), nil
}

func (s *assignmentService) UnassignTrainer(ctx context.Context, actor model.Actor, assignmentID uint) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if err := s.assignmentRepo.Delete(ctx, assignmentID); err != nil {
		return assignmentError("unassign trainer", err)
	}
	log.Info().Uint("assignmentID", assignmentID).Msg("Trainer unassigned")
	return nil
}

func (s *assignmentService) RestoreAssignment(ctx context.Context, actor model.Actor, assignmentID uint) (*dto.AssignmentDTO, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	var restored *model.TrainingAssignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignments := s.assignmentRepo.WithTx(tx)
		a, err := assignments.FindByID(ctx, assignmentID)
		if err != nil {
			return err
		}
		if !a.DeletedAt.Valid {
			return NewValidationError("assignment_id", "assignment is not deleted")
		}
		if _, err := assignments.FindActiveByTraining(ctx, a.TrainingDefinitionID); err == nil {
			return NewValidationError("training_id", "training already has an assigned trainer")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := assignments.Restore(ctx, assignmentID); err != nil {
			return err
		}
		a.DeletedAt = gorm.DeletedAt{}
		restored = a
		return nil
	})
	if err != nil {
		return nil, assignmentError("restore assignment", err)
	}
	log.Info().Uint("assignmentID", assignmentID).Msg("Assignment restored")
	return toAssignmentDTO(restored), nil
}

func (s *assignmentService) ListAssignments(ctx context.Context, actor model.Actor, includeDeleted bool) ([]dto.AssignmentDTO, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	list, err := s.assignmentRepo.FindAll(ctx, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("error fetching assignments: %w", err)
	}
	out := make([]dto.AssignmentDTO, 0, len(list))
	for i := range list {
		out = append(out, *toAssignmentDTO(&list[i]))
	}
	return out, nil
}

func assignmentError(op string, err error) error {
	var validation *ValidationError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.As(err, &validation):
		return err
	}
	log.Error().Err(err).Str("op", op).Msg("Assignment operation failed")
	return &IntegrityError{Op: op, Err: err}
}

func toAssignmentDTO(a *model.TrainingAssignment) *dto.AssignmentDTO {
	out := &dto.AssignmentDTO{
		ID:           a.ID,
		TrainerID:    a.TrainerID,
		TrainingID:   a.TrainingDefinitionID,
		TrainingCode: a.TrainingDefinition.Code,
		CreatedAt:    a.CreatedAt,
	}
	if a.DeletedAt.Valid {
		deletedAt := a.DeletedAt.Time
		out.DeletedAt = &deletedAt
	}
	return out
}
