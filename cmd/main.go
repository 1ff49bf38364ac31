package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/lshigami/compliance/config"
	"github.com/lshigami/compliance/database"
	_ "github.com/lshigami/compliance/docs" // Swagger docs
	adminctrl "github.com/lshigami/compliance/internal/controller/admin"
	"github.com/lshigami/compliance/internal/controller/middleware"
	userctrl "github.com/lshigami/compliance/internal/controller/user"
	"github.com/lshigami/compliance/internal/logger"
	"github.com/lshigami/compliance/internal/repository"
	"github.com/lshigami/compliance/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Compliance Training API
// @version 1.0
// @description Online tests, retake rules and certificates for mandatory workplace trainings.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)

	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			database.NewDatabase,
			NewGinEngine,
			NewValidator,
			func() service.Clock { return time.Now },
		),

		// Repositories Layer
		fx.Provide(
			repository.NewCodeWhitelist,
			repository.NewTrainingDefinitionRepository,
			repository.NewTestRepository,
			repository.NewQuestionRepository,
			repository.NewTestAttemptRepository,
			repository.NewCertificateRepository,
			repository.NewTrainingAssignmentRepository,
			repository.NewAuditRepository,
			NewTrainingRecordRepository,
			func(db *gorm.DB, cfg *config.Config) repository.ColumnCatalog {
				return repository.NewColumnCatalog(db, cfg.Legacy.Table)
			},
		),

		// Services Layer
		fx.Provide(
			service.NewScoringService,
			service.NewEligibilityService,
			service.NewAuthorizationService,
			service.NewOwnershipGraph,
			func(catalog repository.ColumnCatalog, defs repository.TrainingDefinitionRepository, wl *repository.CodeWhitelist, cfg *config.Config) service.ColumnSyncService {
				return service.NewColumnSyncService(catalog, repository.LegacyColumns{Prefix: cfg.Legacy.ColumnPrefix}, defs, wl, cfg.Training.DefaultValidityMonths)
			},
			service.NewAttemptService,
			service.NewAdminTestService,
			service.NewUserTestService,
			service.NewTrainingService,
			service.NewAssignmentService,
		),

		// API Controllers Layer
		fx.Provide(
			adminctrl.NewAdminTestController,
			adminctrl.NewAdminTrainingController,
			userctrl.NewUserTestController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(LoadTrainingCodes),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop application cleanly")
	}
}

func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// NewTrainingRecordRepository picks where completion dates and required flags live.
func NewTrainingRecordRepository(db *gorm.DB, wl *repository.CodeWhitelist, cfg *config.Config) repository.TrainingRecordRepository {
	if cfg.Training.RecordStore == "legacy" {
		log.Info().Str("table", cfg.Legacy.Table).Msg("Training records are read from the legacy employee table")
		return repository.NewLegacyTrainingRecordRepository(db, wl, cfg.Legacy.Table, cfg.Legacy.KeyColumn, cfg.Legacy.ColumnPrefix)
	}
	return repository.NewTrainingRecordRepository(db, wl)
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutes mounts every API route behind the auth middleware.
func RegisterRoutes(
	router *gin.Engine,
	secret string,
	adminTestCtrl *adminctrl.AdminTestController,
	adminTrainingCtrl *adminctrl.AdminTrainingController,
	userTestCtrl *userctrl.UserTestController,
) {
	api := router.Group("/api/v1", middleware.Auth(secret))
	{
		api.GET("/tests/:test_id", userTestCtrl.GetTestDetails)
		api.GET("/trainings/:training_id/active-test", userTestCtrl.GetActiveTest)
		api.POST("/tests/:test_id/attempts", userTestCtrl.StartAttempt)
		api.GET("/tests/:test_id/my-attempts", userTestCtrl.GetUserTestAttempts)
		api.GET("/test-attempts/:attempt_id", userTestCtrl.GetSpecificTestAttemptDetails)
		api.POST("/test-attempts/:attempt_id/submit", userTestCtrl.SubmitAttempt)
		api.POST("/test-attempts/:attempt_id/abandon", userTestCtrl.AbandonAttempt)
		api.GET("/me/certificates", userTestCtrl.GetMyCertificates)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/tests", adminTestCtrl.CreateTest)
		admin.POST("/tests/:test_id/activate", adminTestCtrl.ActivateTest)
		admin.POST("/tests/:test_id/manual-results", adminTestCtrl.RecordManualResult)

		admin.POST("/trainings/sync", adminTrainingCtrl.SyncTrainings)
		admin.GET("/trainings", adminTrainingCtrl.ListTrainings)
		admin.PUT("/trainings/required", adminTrainingCtrl.SetRequired)
		admin.DELETE("/trainings/:training_id", adminTrainingCtrl.DeleteTraining)
		admin.POST("/trainings/:training_id/restore", adminTrainingCtrl.RestoreTraining)
		admin.DELETE("/trainings/:training_id/purge", adminTrainingCtrl.PurgeTraining)

		admin.GET("/assignments", adminTrainingCtrl.ListAssignments)
		admin.POST("/assignments", adminTrainingCtrl.AssignTrainer)
		admin.DELETE("/assignments/:assignment_id", adminTrainingCtrl.UnassignTrainer)
		admin.POST("/assignments/:assignment_id/restore", adminTrainingCtrl.RestoreAssignment)
	}
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	adminTestCtrl *adminctrl.AdminTestController,
	adminTrainingCtrl *adminctrl.AdminTrainingController,
	userTestCtrl *userctrl.UserTestController,
) {
	RegisterRoutes(router, cfg.Auth.JWTSecret, adminTestCtrl, adminTrainingCtrl, userTestCtrl)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Compliance API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}

// LoadTrainingCodes fills the column whitelist before the first request,
// creating definitions for new legacy columns when configured to.
func LoadTrainingCodes(cfg *config.Config, sync service.ColumnSyncService) error {
	ctx := context.Background()
	if cfg.Training.SyncOnStartup {
		report, err := sync.Sync(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Startup training sync failed, falling back to stored definitions")
		} else {
			log.Info().Strs("created", report.Created).Int("detected", len(report.Detected)).Msg("Startup training sync finished")
			return nil
		}
	}
	return sync.RefreshWhitelist(ctx)
}
