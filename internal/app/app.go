package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"placeprep_backend/internal/config"
	"placeprep_backend/internal/controller"
	"placeprep_backend/internal/repository"
	"placeprep_backend/internal/service"
	"placeprep_backend/internal/util"
	"placeprep_backend/pkg/configwatcher"
	"placeprep_backend/pkg/database"
	"placeprep_backend/pkg/logger"
	"placeprep_backend/pkg/monitoring"
	"placeprep_backend/pkg/security"
	"placeprep_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
	tracer          *sdktrace.TracerProvider
}

type repositories struct {
	user          *repository.UserRepository
	question      *repository.QuestionRepository
	bookmark      *repository.BookmarkRepository
	testSeries    *repository.TestSeriesRepository
	participation *repository.ParticipationRepository
	activity      *repository.ActivityRepository
	freePractice  *repository.FreePracticeRepository
	notification  *repository.NotificationRepository
}

type services struct {
	auth         *service.AuthService
	mail         *service.MailService
	storage      service.StorageProvider
	question     *service.QuestionService
	leaderboard  *service.LeaderboardService
	contest      *service.ContestService
	practice     *service.PracticeService
	result       *service.ResultService
	export       *service.ExportService
	notification *service.NotificationService
	notifyHub    *service.NotificationHub
	autoSubmit   *service.AutoSubmitService
}

type controllers struct {
	auth         *controller.AuthController
	question     *controller.QuestionController
	testSeries   *controller.TestSeriesController
	practice     *controller.PracticeController
	result       *controller.ResultController
	notification *controller.NotificationController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		question:      repository.NewQuestionRepository(db),
		bookmark:      repository.NewBookmarkRepository(db),
		testSeries:    repository.NewTestSeriesRepository(db),
		participation: repository.NewParticipationRepository(db),
		activity:      repository.NewActivityRepository(db),
		freePractice:  repository.NewFreePracticeRepository(db),
		notification:  repository.NewNotificationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.mail = service.NewMailService(cfg)
	s.storage = service.NewStorageProvider(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, s.mail, service.NewGoogleVerifier(cfg.Google.ClientID), cfg)
	s.question = service.NewQuestionService(repos.question, repos.bookmark)

	s.notifyHub = service.NewNotificationHub(rdb)
	s.notification = service.NewNotificationService(repos.notification, repos.user, s.notifyHub, s.mail, cfg.Contest.HighScoreThreshold)

	var cache service.LeaderboardCache
	if rdb != nil {
		cache = service.NewRedisLeaderboardCache(rdb, cfg.Contest.LeaderboardTTL())
	}
	s.leaderboard = service.NewLeaderboardService(repos.testSeries, repos.participation, repos.activity, repos.user, cache)

	s.contest = service.NewContestService(
		repos.testSeries,
		repos.question,
		repos.participation,
		repos.activity,
		repos.user,
		s.leaderboard,
		s.notification,
		cfg.Contest.ViolationThreshold,
	)
	s.practice = service.NewPracticeService(repos.freePractice, repos.question, repos.participation, repos.activity, s.notification)
	s.result = service.NewResultService(repos.participation, repos.testSeries, repos.freePractice, repos.activity)
	s.export = service.NewExportService(repos.testSeries, repos.activity, s.leaderboard, s.storage)

	s.autoSubmit = service.NewAutoSubmitService(
		repos.testSeries,
		repos.participation,
		repos.activity,
		repos.question,
		repos.user,
		s.leaderboard,
		s.notification,
		time.Duration(cfg.Contest.ReminderLeadMinutes)*time.Minute,
	)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.contest.SetViolationThreshold(newCfg.Contest.ViolationThreshold)
		s.notification.SetHighScoreThreshold(newCfg.Contest.HighScoreThreshold)
		logger.Log.Info("Contest thresholds updated",
			zap.Int("violationThreshold", s.contest.ViolationThreshold()),
			zap.Int("highScoreThreshold", s.notification.HighScoreThreshold()),
		)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth, a.Config),
		question:     controller.NewQuestionController(s.question),
		testSeries:   controller.NewTestSeriesController(s.contest, s.leaderboard, s.export),
		practice:     controller.NewPracticeController(s.practice),
		result:       controller.NewResultController(s.result),
		notification: controller.NewNotificationController(s.notification, s.notifyHub),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// NewApp connects the stores and builds every service. The HTTP router is only built when
// the app is going to serve.
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(cfg, migrate)
	if err != nil {
		return nil, err
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// leaderboards go uncached and notifications stay on this instance
		logger.Log.Warn("Redis unavailable, running without cache and cross-instance push", zap.Error(err))
		rdb = nil
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, rdb)
	return app, nil
}

func (a *App) buildRouter() {
	cfg := a.Config
	monitoring.Init()

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	a.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			a.tracer = tp
		}
	}

	controllers := a.initControllers(a.services, a.DB, a.Redis)
	a.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}
	a.Router = router
}

// Sweep runs one auto-submission pass outside the scheduler.
func (a *App) Sweep(ctx context.Context) (service.SweepReport, error) {
	return a.services.autoSubmit.Sweep(ctx)
}

// Run serves HTTP until SIGINT or SIGTERM, together with the notification hub, the contest
// scheduler and the config watcher.
func (a *App) Run(configFile string) error {
	a.buildRouter()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.services.notifyHub.Start(ctx); err != nil {
		return err
	}

	scheduler, err := a.startScheduler(ctx)
	if err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()

	if _, err := os.Stat(configFile); err == nil {
		go func() {
			err := configwatcher.WatchConfig(ctx, configFile, func(newCfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(newCfg)
				}
			})
			if err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
	return nil
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Log.Sync()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
