package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/compliance/internal/controller"
	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/service"
	"github.com/rs/zerolog/log"
)

type AdminTrainingController struct {
	trainingService   service.TrainingService
	assignmentService service.AssignmentService
}

func NewAdminTrainingController(ts service.TrainingService, as service.AssignmentService) *AdminTrainingController {
	return &AdminTrainingController{trainingService: ts, assignmentService: as}
}

// SyncTrainings godoc
// @Summary (Admin) Create trainings for new legacy columns
// @Tags Admin - Trainings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SyncReportDTO
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/trainings/sync [post]
func (c *AdminTrainingController) SyncTrainings(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	report, err := c.trainingService.SyncTrainings(ctx.Request.Context(), actor)
	if err != nil {
		controller.Error(ctx, "SyncTrainings", err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}

// ListTrainings godoc
// @Summary List training definitions
// @Tags Admin - Trainings
// @Produce json
// @Security BearerAuth
// @Param include_deleted query bool false "Include soft-deleted trainings (admin only)"
// @Success 200 {array} dto.TrainingDefinitionDTO
// @Router /admin/trainings [get]
func (c *AdminTrainingController) ListTrainings(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	includeDeleted := ctx.Query("include_deleted") == "true"
	list, err := c.trainingService.ListTrainings(ctx.Request.Context(), actor, includeDeleted)
	if err != nil {
		controller.Error(ctx, "ListTrainings", err)
		return
	}
	ctx.JSON(http.StatusOK, list)
}

// DeleteTraining godoc
// @Summary (Admin) Soft-delete a training with its tests, questions and assignments
// @Tags Admin - Trainings
// @Produce json
// @Security BearerAuth
// @Param training_id path int true "Training ID"
// @Success 200 {object} dto.LifecycleReportDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/trainings/{training_id} [delete]
func (c *AdminTrainingController) DeleteTraining(ctx *gin.Context) {
	c.lifecycle(ctx, "DeleteTraining", c.trainingService.DeleteTraining)
}

// RestoreTraining godoc
// @Summary (Admin) Restore a soft-deleted training and what was deleted with it
// @Tags Admin - Trainings
// @Produce json
// @Security BearerAuth
// @Param training_id path int true "Training ID"
// @Success 200 {object} dto.LifecycleReportDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/trainings/{training_id}/restore [post]
func (c *AdminTrainingController) RestoreTraining(ctx *gin.Context) {
	c.lifecycle(ctx, "RestoreTraining", c.trainingService.RestoreTraining)
}

// PurgeTraining godoc
// @Summary (Admin) Permanently delete a training nobody has attempted
// @Tags Admin - Trainings
// @Produce json
// @Security BearerAuth
// @Param training_id path int true "Training ID"
// @Success 200 {object} dto.LifecycleReportDTO
// @Failure 400 {object} dto.ErrorResponse "Training has recorded attempts"
// @Router /admin/trainings/{training_id}/purge [delete]
func (c *AdminTrainingController) PurgeTraining(ctx *gin.Context) {
	c.lifecycle(ctx, "PurgeTraining", c.trainingService.PurgeTraining)
}

type lifecycleFunc func(ctx context.Context, actor model.Actor, trainingID uint) (*dto.LifecycleReportDTO, error)

func (c *AdminTrainingController) lifecycle(ctx *gin.Context, op string, run lifecycleFunc) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	trainingID, ok := controller.ParamID(ctx, "training_id")
	if !ok {
		return
	}
	report, err := run(ctx.Request.Context(), actor, trainingID)
	if err != nil {
		controller.Error(ctx, op, err)
		return
	}
	log.Info().Str("op", op).Uint("trainingID", trainingID).Interface("affected", report.Affected).Msg("Training lifecycle operation completed")
	ctx.JSON(http.StatusOK, report)
}

// SetRequired godoc
// @Summary (Admin/Trainer) Mark a training as required or not for a user
// @Tags Admin - Trainings
// @Accept json
// @Security BearerAuth
// @Param body body dto.SetRequiredDTO true "Requirement"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /admin/trainings/required [put]
func (c *AdminTrainingController) SetRequired(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	var req dto.SetRequiredDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "Invalid request body", err)
		return
	}
	if err := c.trainingService.SetRequired(ctx.Request.Context(), actor, req); err != nil {
		controller.Error(ctx, "SetRequired", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// AssignTrainer godoc
// @Summary (Admin) Assign a trainer to a training
// @Tags Admin - Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AssignTrainerDTO true "Assignment"
// @Success 201 {object} dto.AssignmentDTO
// @Failure 400 {object} dto.ErrorResponse "Training already has a trainer"
// @Router /admin/assignments [post]
func (c *AdminTrainingController) AssignTrainer(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	var req dto.AssignTrainerDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		controller.BadRequest(ctx, "Invalid request body", err)
		return
	}
	a, err := c.assignmentService.AssignTrainer(ctx.Request.Context(), actor, req)
	if err != nil {
		controller.Error(ctx, "AssignTrainer", err)
		return
	}
	ctx.JSON(http.StatusCreated, a)
}

// ListAssignments godoc
// @Summary (Admin) List trainer assignments
// @Tags Admin - Assignments
// @Produce json
// @Security BearerAuth
// @Param include_deleted query bool false "Include removed assignments"
// @Success 200 {array} dto.AssignmentDTO
// @Router /admin/assignments [get]
func (c *AdminTrainingController) ListAssignments(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	list, err := c.assignmentService.ListAssignments(ctx.Request.Context(), actor, ctx.Query("include_deleted") == "true")
	if err != nil {
		controller.Error(ctx, "ListAssignments", err)
		return
	}
	ctx.JSON(http.StatusOK, list)
}

// UnassignTrainer godoc
// @Summary (Admin) Remove a trainer assignment
// @Tags Admin - Assignments
// @Security BearerAuth
// @Param assignment_id path int true "Assignment ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/assignments/{assignment_id} [delete]
func (c *AdminTrainingController) UnassignTrainer(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	id, ok := controller.ParamID(ctx, "assignment_id")
	if !ok {
		return
	}
	if err := c.assignmentService.UnassignTrainer(ctx.Request.Context(), actor, id); err != nil {
		controller.Error(ctx, "UnassignTrainer", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// RestoreAssignment godoc
// @Summary (Admin) Restore a removed trainer assignment
// @Tags Admin - Assignments
// @Produce json
// @Security BearerAuth
// @Param assignment_id path int true "Assignment ID"
// @Success 200 {object} dto.AssignmentDTO
// @Failure 400 {object} dto.ErrorResponse "Training already has a trainer"
// @Router /admin/assignments/{assignment_id}/restore [post]
func (c *AdminTrainingController) RestoreAssignment(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	id, ok := controller.ParamID(ctx, "assignment_id")
	if !ok {
		return
	}
	a, err := c.assignmentService.RestoreAssignment(ctx.Request.Context(), actor, id)
	if err != nil {
		controller.Error(ctx, "RestoreAssignment", err)
		return
	}
	ctx.JSON(http.StatusOK, a)
}
