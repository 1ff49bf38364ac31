package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/compliance/internal/controller"
	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/service"
	"github.com/rs/zerolog/log"
)

type AdminTestController struct {
	adminTestService service.AdminTestService
	attemptService   service.AttemptService
}

func NewAdminTestController(adminTestService service.AdminTestService, attemptService service.AttemptService) *AdminTestController {
	return &AdminTestController{adminTestService: adminTestService, attemptService: attemptService}
}

// CreateTest godoc
// @Summary (Admin/Trainer) Create a test for a training
// @Description Creates a test with its questions. With activate=true it replaces the training's active test.
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param test_data body dto.TestCreateDTO true "Test creation data including all questions"
// @Success 201 {object} dto.TestResponseDTO "Test created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid input data"
// @Failure 403 {object} dto.ErrorResponse "Not allowed to manage this training"
// @Router /admin/tests [post]
func (c *AdminTestController) CreateTest(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	var req dto.TestCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateTest: Failed to bind JSON")
		controller.BadRequest(ctx, "Invalid request body", err)
		return
	}
	testResp, err := c.adminTestService.CreateTest(ctx.Request.Context(), actor, req)
	if err != nil {
		controller.Error(ctx, "CreateTest", err)
		return
	}
	ctx.JSON(http.StatusCreated, testResp)
}

// ActivateTest godoc
// @Summary (Admin/Trainer) Make a test the active one of its training
// @Tags Admin - Tests
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/tests/{test_id}/activate [post]
func (c *AdminTestController) ActivateTest(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	testID, ok := controller.ParamID(ctx, "test_id")
	if !ok {
		return
	}
	testResp, err := c.adminTestService.ActivateTest(ctx.Request.Context(), actor, testID)
	if err != nil {
		controller.Error(ctx, "ActivateTest", err)
		return
	}
	ctx.JSON(http.StatusOK, testResp)
}

// RecordManualResult godoc
// @Summary (Admin/Trainer) Record the result of an in-person test
// @Description A passing result issues a certificate and resets the retake ceiling.
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Param result body dto.ManualResultDTO true "Manual result"
// @Success 201 {object} dto.ManualResultResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse "Rolled back, retry"
// @Router /admin/tests/{test_id}/manual-results [post]
func (c *AdminTestController) RecordManualResult(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	testID, ok := controller.ParamID(ctx, "test_id")
	if !ok {
		return
	}
	var req dto.ManualResultDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Uint("testID", testID).Msg("Admin RecordManualResult: Failed to bind JSON")
		controller.BadRequest(ctx, "Invalid request body", err)
		return
	}
	resp, err := c.attemptService.RecordManualResult(ctx.Request.Context(), actor, testID, req)
	if err != nil {
		controller.Error(ctx, "RecordManualResult", err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}
