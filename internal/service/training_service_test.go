package service

import (
	"context"
	"testing"

	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) trainingService() TrainingService {
	sync := NewColumnSyncService(repository.NewColumnCatalog(f.db, "employees"), repository.LegacyColumns{}, f.defs, f.whitelist, 12)
	return NewTrainingService(f.db, f.defs, f.records, sync, f.authz, NewOwnershipGraph())
}

func TestDeleteAndRestoreTrainingCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.trainingService()
	def := f.seedTraining(t, "BOZP", 12)
	test := f.seedTest(t, def, nil)
	require.NoError(t, f.assignments.Create(ctx, &model.TrainingAssignment{TrainerID: trainer.UserID, TrainingDefinitionID: def.ID}))

	// A question deleted earlier on its own must stay deleted after restore.
	require.NoError(t, f.db.Delete(&model.Question{}, test.Questions[1].ID).Error)

	_, err := svc.DeleteTraining(ctx, trainer, def.ID)
	var denied *AuthorizationError
	require.ErrorAs(t, err, &denied)

	report, err := svc.DeleteTraining(ctx, admin, def.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Affected["TrainingDefinition"])
	assert.Equal(t, int64(1), report.Affected["Test"])
	assert.Equal(t, int64(1), report.Affected["Question"])
	assert.Equal(t, int64(1), report.Affected["TrainingAssignment"])

	_, err = f.svc.StartAttempt(ctx, worker, test.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.ListTrainings(ctx, admin, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].DeletedAt)

	report, err = svc.RestoreTraining(ctx, admin, def.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Affected["Question"])

	restored, err := f.tests.FindByIDWithQuestions(ctx, test.ID)
	require.NoError(t, err)
	assert.Len(t, restored.Questions, 1)
	ok, err := f.assignments.ExistsActive(ctx, trainer.UserID, def.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.RestoreTraining(ctx, admin, def.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeTraining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.trainingService()
	def := f.seedTraining(t, "BOZP", 12)
	test := f.seedTest(t, def, nil)

	_, err := f.svc.StartAttempt(ctx, worker, test.ID)
	require.NoError(t, err)
	_, err = svc.PurgeTraining(ctx, admin, def.ID)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	unused := f.seedTraining(t, "PO", 12)
	f.seedTest(t, unused, nil)
	report, err := svc.PurgeTraining(ctx, admin, unused.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Affected["Question"])

	var remaining int64
	require.NoError(t, f.db.Unscoped().Model(&model.TrainingDefinition{}).Where("id = ?", unused.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestSetRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.trainingService()
	def := f.seedTraining(t, "BOZP", 12)

	err := svc.SetRequired(ctx, worker, dto.SetRequiredDTO{UserID: worker.UserID, TrainingCode: "BOZP", Required: true})
	var denied *AuthorizationError
	require.ErrorAs(t, err, &denied)

	require.NoError(t, svc.SetRequired(ctx, admin, dto.SetRequiredDTO{UserID: worker.UserID, TrainingCode: "BOZP", Required: true}))
	record, err := f.records.Get(ctx, worker.UserID, def)
	require.NoError(t, err)
	assert.True(t, record.Required)

	err = svc.SetRequired(ctx, admin, dto.SetRequiredDTO{UserID: worker.UserID, TrainingCode: "BOZP; DROP TABLE x", Required: true})
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	err = svc.SetRequired(ctx, admin, dto.SetRequiredDTO{UserID: worker.UserID, TrainingCode: "NOPE", Required: true})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncTrainingsRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.trainingService().SyncTrainings(context.Background(), trainer)
	var denied *AuthorizationError
	assert.ErrorAs(t, err, &denied)
}
