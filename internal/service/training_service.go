package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/lifecycle"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// NewOwnershipGraph declares which content rows are owned by which. User
// owned rows (attempts, certificates) are deliberately absent.
func NewOwnershipGraph() *lifecycle.Graph {
	return lifecycle.NewGraph(
		lifecycle.Edge{Parent: &model.TrainingDefinition{}, Child: &model.Test{}, ForeignKey: "training_definition_id"},
		lifecycle.Edge{Parent: &model.Test{}, Child: &model.Question{}, ForeignKey: "test_id"},
		lifecycle.Edge{Parent: &model.TrainingDefinition{}, Child: &model.TrainingAssignment{}, ForeignKey: "training_definition_id"},
	)
}

type TrainingService interface {
	SyncTrainings(ctx context.Context, actor model.Actor) (*dto.SyncReportDTO, error)
	ListTrainings(ctx context.Context, actor model.Actor, includeDeleted bool) ([]dto.TrainingDefinitionDTO, error)
	DeleteTraining(ctx context.Context, actor model.Actor, trainingID uint) (*dto.LifecycleReportDTO, error)
	RestoreTraining(ctx context.Context, actor model.Actor, trainingID uint) (*dto.LifecycleReportDTO, error)
	PurgeTraining(ctx context.Context, actor model.Actor, trainingID uint) (*dto.LifecycleReportDTO, error)
	SetRequired(ctx context.Context, actor model.Actor, req dto.SetRequiredDTO) error
}

type trainingService struct {
	db             *gorm.DB
	definitionRepo repository.TrainingDefinitionRepository
	recordRepo     repository.TrainingRecordRepository
	columnSync     ColumnSyncService
	authz          AuthorizationService
	graph          *lifecycle.Graph
}

func NewTrainingService(
	db *gorm.DB,
	definitionRepo repository.TrainingDefinitionRepository,
	recordRepo repository.TrainingRecordRepository,
	columnSync ColumnSyncService,
	authz AuthorizationService,
	graph *lifecycle.Graph,
) TrainingService {
	return &trainingService{
		db:             db,
		definitionRepo: definitionRepo,
		recordRepo:     recordRepo,
		columnSync:     columnSync,
		authz:          authz,
		graph:          graph,
	}
}

func (s *trainingService) requireAdmin(ctx context.Context, actor model.Actor, action string) error {
	decision, err := s.authz.RequireAdmin(ctx, actor, action)
	if err != nil {
		return err
	}
	return decision.Deny(action)
}

func (s *trainingService) SyncTrainings(ctx context.Context, actor model.Actor) (*dto.SyncReportDTO, error) {
	if err := s.requireAdmin(ctx, actor, ActionSyncTrainings); err != nil {
		return nil, err
	}
	report, err := s.columnSync.Sync(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SyncReportDTO{
		Detected: report.Detected,
		Created:  report.Created,
		Existing: report.Existing,
		Errors:   report.Errors,
	}, nil
}

func (s *trainingService) ListTrainings(ctx context.Context, actor model.Actor, includeDeleted bool) ([]dto.TrainingDefinitionDTO, error) {
	if includeDeleted {
		if err := s.requireAdmin(ctx, actor, ActionManageTrainings); err != nil {
			return nil, err
		}
	}
	defs, err := s.definitionRepo.FindAll(ctx, includeDeleted)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list training definitions")
		return nil, fmt.Errorf("error fetching trainings: %w", err)
	}
	out := make([]dto.TrainingDefinitionDTO, 0, len(defs))
	for _, d := range defs {
		item := dto.TrainingDefinitionDTO{
			ID:             d.ID,
			Code:           d.Code,
			Name:           d.Name,
			Description:    d.Description,
			ValidityMonths: d.ValidityMonths,
		}
		if d.DeletedAt.Valid {
			deletedAt := d.DeletedAt.Time
			item.DeletedAt = &deletedAt
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *trainingService) DeleteTraining(ctx context.Context, actor model.Actor, trainingID uint) (*dto.LifecycleReportDTO, error) {
	return s.cascade(ctx, actor, trainingID, "delete", s.graph.SoftDelete)
}

func (s *trainingService) RestoreTraining(ctx context.Context, actor model.Actor, trainingID uint) (*dto.LifecycleReportDTO, error) {
	return s.cascade(ctx, actor, trainingID, "restore", s.graph.Restore)
}

func (s *trainingService) PurgeTraining(ctx context.Context, actor model.Actor, trainingID uint) (*dto.LifecycleReportDTO, error) {
	db := s.db.WithContext(ctx)
	var attempts int64
	testIDs := db.Unscoped().Model(&model.Test{}).Select("id").Where("training_definition_id = ?", trainingID)
	if err := db.Model(&model.TestAttempt{}).Where("test_id IN (?)", testIDs).Count(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to check attempts: %w", err)
	}
	// Attempts and certificates are user history and outlive the content.
	if attempts > 0 {
		return nil, NewValidationError("training_id", "training has recorded attempts and cannot be purged")
	}
	return s.cascade(ctx, actor, trainingID, "purge", s.graph.Purge)
}

type cascadeFunc func(ctx context.Context, db *gorm.DB, root interface{}, id uint) (lifecycle.Report, error)

func (s *trainingService) cascade(ctx context.Context, actor model.Actor, trainingID uint, op string, run cascadeFunc) (*dto.LifecycleReportDTO, error) {
	if err := s.requireAdmin(ctx, actor, ActionManageTrainings); err != nil {
		return nil, err
	}
	report, err := run(ctx, s.db, &model.TrainingDefinition{}, trainingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("op", op).Uint("trainingID", trainingID).Msg("Training cascade failed")
		return nil, &IntegrityError{Op: op + " training", Err: err}
	}
	if err := s.columnSync.RefreshWhitelist(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh training code whitelist after cascade")
	}
	return &dto.LifecycleReportDTO{Affected: report}, nil
}

func (s *trainingService) SetRequired(ctx context.Context, actor model.Actor, req dto.SetRequiredDTO) error {
	if !repository.ValidTrainingCodeFormat(req.TrainingCode) {
		return NewValidationError("training_code", "invalid format")
	}
	def, err := s.definitionRepo.FindByCode(ctx, req.TrainingCode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load training %q: %w", req.TrainingCode, err)
	}
	decision, err := s.authz.CanManageTraining(ctx, actor, def.ID, ActionManageTrainings)
	if err != nil {
		return err
	}
	if err := decision.Deny(ActionManageTrainings); err != nil {
		return err
	}
	if err := s.recordRepo.SetRequired(ctx, req.UserID, def.Code, req.Required); err != nil {
		if errors.Is(err, repository.ErrUnknownTrainingCode) {
			return NewValidationError("training_code", err.Error())
		}
		return fmt.Errorf("failed to set required flag: %w", err)
	}
	log.Info().Uint("userID", req.UserID).Str("code", def.Code).Bool("required", req.Required).Msg("Training requirement updated")
	return nil
}
