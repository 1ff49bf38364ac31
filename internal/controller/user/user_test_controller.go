package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/compliance/internal/controller"
	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/model"
	"github.com/lshigami/compliance/internal/service"
	"github.com/rs/zerolog/log"
)

type UserTestController struct {
	userTestService service.UserTestService
	attemptService  service.AttemptService
}

func NewUserTestController(uts service.UserTestService, as service.AttemptService) *UserTestController {
	return &UserTestController{
		userTestService: uts,
		attemptService:  as,
	}
}

// GetTestDetails godoc
// @Summary (User) Get details of a specific test
// @Description Get a test with its questions. Correct answers are never included.
// @Tags User - Tests & Attempts
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Test ID format"
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /tests/{test_id} [get]
func (c *UserTestController) GetTestDetails(ctx *gin.Context) {
	testID, ok := controller.ParamID(ctx, "test_id")
	if !ok {
		return
	}
	test, err := c.userTestService.GetTestDetails(ctx.Request.Context(), testID)
	if err != nil {
		controller.Error(ctx, "GetTestDetails", err)
		return
	}
	ctx.JSON(http.StatusOK, test)
}

// GetActiveTest godoc
// @Summary (User) Get the active test of a training
// @Tags User - Tests & Attempts
// @Produce json
// @Security BearerAuth
// @Param training_id path int true "Training ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 404 {object} dto.ErrorResponse "No active test"
// @Router /trainings/{training_id}/active-test [get]
func (c *UserTestController) GetActiveTest(ctx *gin.Context) {
	trainingID, ok := controller.ParamID(ctx, "training_id")
	if !ok {
		return
	}
	test, err := c.userTestService.GetActiveTestForTraining(ctx.Request.Context(), trainingID)
	if err != nil {
		controller.Error(ctx, "GetActiveTest", err)
		return
	}
	ctx.JSON(http.StatusOK, test)
}

// StartAttempt godoc
// @Summary (User) Start or resume a test attempt
// @Description Returns the open attempt if one exists. A blocked start answers 409 with an error code and remediation details.
// @Tags User - Tests & Attempts
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.StartAttemptResponse
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Failure 409 {object} dto.EligibilityErrorResponse "Start blocked"
// @Router /tests/{test_id}/attempts [post]
func (c *UserTestController) StartAttempt(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	testID, ok := controller.ParamID(ctx, "test_id")
	if !ok {
		return
	}
	resp, err := c.attemptService.StartAttempt(ctx.Request.Context(), actor, testID)
	if err != nil {
		controller.Error(ctx, "StartAttempt", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SubmitAttempt godoc
// @Summary (User) Submit answers for an open attempt
// @Tags User - Tests & Attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Param submission body dto.SubmitAttemptDTO true "Answers"
// @Success 200 {object} dto.SubmitAttemptResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid answers"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already completed"
// @Failure 503 {object} dto.ErrorResponse "Rolled back, retry"
// @Router /test-attempts/{attempt_id}/submit [post]
func (c *UserTestController) SubmitAttempt(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	var req dto.SubmitAttemptDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("User SubmitAttempt: Failed to bind JSON")
		controller.BadRequest(ctx, "Invalid request body", err)
		return
	}
	resp, err := c.attemptService.SubmitAttempt(ctx.Request.Context(), actor, attemptID, toAttemptAnswers(req.Answers))
	if err != nil {
		controller.Error(ctx, "SubmitAttempt", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// AbandonAttempt godoc
// @Summary (User) Abandon an open attempt
// @Description The abandoned attempt counts as a failed attempt.
// @Tags User - Tests & Attempts
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already completed"
// @Router /test-attempts/{attempt_id}/abandon [post]
func (c *UserTestController) AbandonAttempt(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	if err := c.attemptService.AbandonAttempt(ctx.Request.Context(), actor, attemptID); err != nil {
		controller.Error(ctx, "AbandonAttempt", err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GetUserTestAttempts godoc
// @Summary (User) List my attempts of a test
// @Tags User - Tests & Attempts
// @Produce json
// @Security BearerAuth
// @Param test_id path int true "Test ID"
// @Success 200 {array} dto.TestAttemptSummaryDTO
// @Router /tests/{test_id}/my-attempts [get]
func (c *UserTestController) GetUserTestAttempts(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	testID, ok := controller.ParamID(ctx, "test_id")
	if !ok {
		return
	}
	attempts, err := c.attemptService.ListAttempts(ctx.Request.Context(), actor, testID)
	if err != nil {
		controller.Error(ctx, "GetUserTestAttempts", err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}

// GetSpecificTestAttemptDetails godoc
// @Summary (User) Get one attempt with its answers
// @Tags User - Tests & Attempts
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.TestAttemptDetailDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /test-attempts/{attempt_id} [get]
func (c *UserTestController) GetSpecificTestAttemptDetails(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	attemptID, ok := controller.ParamID(ctx, "attempt_id")
	if !ok {
		return
	}
	attempt, err := c.attemptService.GetAttempt(ctx.Request.Context(), actor, attemptID)
	if err != nil {
		controller.Error(ctx, "GetSpecificTestAttemptDetails", err)
		return
	}
	ctx.JSON(http.StatusOK, attempt)
}

// GetMyCertificates godoc
// @Summary (User) List my certificates
// @Tags User - Certificates
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.CertificateDTO
// @Router /me/certificates [get]
func (c *UserTestController) GetMyCertificates(ctx *gin.Context) {
	actor, ok := controller.Actor(ctx)
	if !ok {
		return
	}
	certs, err := c.attemptService.ListCertificates(ctx.Request.Context(), actor)
	if err != nil {
		controller.Error(ctx, "GetMyCertificates", err)
		return
	}
	ctx.JSON(http.StatusOK, certs)
}

func toAttemptAnswers(in []dto.AnswerDTO) model.AttemptAnswers {
	out := make(model.AttemptAnswers, len(in))
	for _, a := range in {
		out[a.QuestionID] = model.SubmittedAnswer{Value: a.Value, Values: a.Values}
	}
	return out
}
