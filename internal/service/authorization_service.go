package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Actions checked by the guard.
const (
	ActionManageTests       = "manage_tests"
	ActionRecordManual      = "record_manual_result"
	ActionManageTrainings   = "manage_trainings"
	ActionManageAssignments = "manage_assignments"
	ActionSyncTrainings     = "sync_trainings"
)

type Decision struct {
	Granted bool
	Reason  string
}

// AuthorizationService decides who may manage training content. It keeps no
// state between calls; every decision is written to the audit trail.
type AuthorizationService interface {
	CanManageTraining(ctx context.Context, actor model.Actor, trainingID uint, action string) (Decision, error)
	CanManageTest(ctx context.Context, actor model.Actor, testID uint, action string) (Decision, error)
	RequireAdmin(ctx context.Context, actor model.Actor, action string) (Decision, error)
}

type authorizationService struct {
	assignmentRepo repository.TrainingAssignmentRepository
	testRepo       repository.TestRepository
	auditRepo      repository.AuditRepository
}

func NewAuthorizationService(
	assignmentRepo repository.TrainingAssignmentRepository,
	testRepo repository.TestRepository,
	auditRepo repository.AuditRepository,
) AuthorizationService {
	return &authorizationService{
		assignmentRepo: assignmentRepo,
		testRepo:       testRepo,
		auditRepo:      auditRepo,
	}
}

func (s *authorizationService) CanManageTraining(ctx context.Context, actor model.Actor, trainingID uint, action string) (Decision, error) {
	resource := fmt.Sprintf("training:%d", trainingID)
	d, err := s.decideForTraining(ctx, actor, trainingID)
	if err != nil {
		return s.failed(ctx, actor, action, resource, err)
	}
	s.audit(ctx, actor, action, resource, d)
	return d, nil
}

func (s *authorizationService) CanManageTest(ctx context.Context, actor model.Actor, testID uint, action string) (Decision, error) {
	resource := fmt.Sprintf("test:%d", testID)
	test, err := s.testRepo.FindByID(ctx, testID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		d := Decision{Granted: actor.Role == model.RoleAdmin, Reason: "test not found"}
		s.audit(ctx, actor, action, resource, d)
		return d, ErrNotFound
	}
	if err != nil {
		return s.failed(ctx, actor, action, resource, fmt.Errorf("failed to load test %d: %w", testID, err))
	}
	d, err := s.decideForTraining(ctx, actor, test.TrainingDefinitionID)
	if err != nil {
		return s.failed(ctx, actor, action, resource, err)
	}
	s.audit(ctx, actor, action, resource, d)
	return d, nil
}

func (s *authorizationService) RequireAdmin(ctx context.Context, actor model.Actor, action string) (Decision, error) {
	var d Decision
	switch actor.Role {
	case model.RoleAdmin:
		d = Decision{Granted: true, Reason: "admin"}
	case model.RoleTrainer, model.RoleWorker:
		d = Decision{Reason: "admin role required"}
	default:
		d = Decision{Reason: fmt.Sprintf("unknown role %q", actor.Role)}
	}
	s.audit(ctx, actor, action, "system", d)
	return d, nil
}

func (s *authorizationService) decideForTraining(ctx context.Context, actor model.Actor, trainingID uint) (Decision, error) {
	switch actor.Role {
	case model.RoleAdmin:
		return Decision{Granted: true, Reason: "admin"}, nil
	case model.RoleTrainer:
		ok, err := s.assignmentRepo.ExistsActive(ctx, actor.UserID, trainingID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to check assignment: %w", err)
		}
		if !ok {
			return Decision{Reason: "trainer is not assigned to this training"}, nil
		}
		return Decision{Granted: true, Reason: "assigned trainer"}, nil
	case model.RoleWorker:
		return Decision{Reason: "workers cannot manage training content"}, nil
	default:
		return Decision{Reason: fmt.Sprintf("unknown role %q", actor.Role)}, nil
	}
}

// failed records a check that could not be decided as denied.
func (s *authorizationService) failed(ctx context.Context, actor model.Actor, action, resource string, err error) (Decision, error) {
	d := Decision{Reason: "check failed: " + err.Error()}
	s.audit(ctx, actor, action, resource, d)
	return d, err
}

func (s *authorizationService) audit(ctx context.Context, actor model.Actor, action, resource string, d Decision) {
	event := log.Info()
	if !d.Granted {
		event = log.Warn()
	}
	event.Uint("actorID", actor.UserID).
		Str("role", string(actor.Role)).
		Str("action", action).
		Str("resource", resource).
		Bool("granted", d.Granted).
		Str("reason", d.Reason).
		Msg("authorization decision")

	entry := &model.AuthorizationAudit{
		ActorID:  actor.UserID,
		Role:     actor.Role,
		Action:   action,
		Resource: resource,
		Granted:  d.Granted,
		Reason:   d.Reason,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to persist authorization audit entry")
	}
}

// Deny converts a negative decision into the error surfaced to callers.
func (d Decision) Deny(action string) error {
	if d.Granted {
		return nil
	}
	return &AuthorizationError{Action: action, Reason: d.Reason}
}
