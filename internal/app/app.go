package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"quiz_backend/internal/config"
	"quiz_backend/internal/controller"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/service"
	"quiz_backend/pkg/database"
	"quiz_backend/pkg/events"
	"quiz_backend/pkg/logger"
	"quiz_backend/pkg/monitoring"
	"quiz_backend/pkg/security"
	"quiz_backend/pkg/storage"
	"quiz_backend/pkg/tracing"
	"syscall"
	"time"

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
	publisher       events.Publisher
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

// Dependencies are the external collaborators of the app. Zero values are
// replaced by in-process defaults.
type Dependencies struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Completer    service.Completer
	Archive      storage.Provider
	Publisher    events.Publisher
	OptionOrders service.OptionOrderSource
}

type repositories struct {
	user     *repository.UserRepository
	course   *repository.CourseRepository
	quiz     *repository.QuizRepository
	question *repository.QuestionRepository
	answer   *repository.AnswerRepository
}

type services struct {
	ledger      *service.AttemptLedger
	scoring     *service.ScoringEngine
	progression *service.ProgressionEngine
	resolver    *service.FeedbackResolver
	catalog     *service.CatalogService
	quiz        *service.QuizService
	review      *service.ReviewService
	aiFeedback  *service.AIFeedbackService
	completer   service.Completer
}

type controllers struct {
	quiz     *controller.QuizController
	catalog  *controller.CatalogController
	feedback *controller.FeedbackController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig hands a reloaded config to every registered callback.
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		course:   repository.NewCourseRepository(db),
		quiz:     repository.NewQuizRepository(db),
		question: repository.NewQuestionRepository(db),
		answer:   repository.NewAnswerRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, deps Dependencies) *services {
	s := &services{}

	var locker service.Locker
	if deps.Redis != nil {
		locker = service.NewRedisLocker(deps.Redis, time.Duration(cfg.Quiz.LockTTLSeconds)*time.Second)
	} else {
		locker = service.NewLocalLocker()
	}

	orders := deps.OptionOrders
	if orders == nil {
		orders = service.RandomOrderSource{Min: cfg.Quiz.OptionOrderMin, Max: cfg.Quiz.OptionOrderMax}
	}

	s.completer = deps.Completer
	if s.completer == nil {
		s.completer = service.NewOpenAICompleter(cfg.AI)
	}

	s.ledger = service.NewAttemptLedger(repos.answer, locker, deps.Publisher)
	s.scoring = service.NewScoringEngine(s.ledger)
	s.progression = service.NewProgressionEngine(repos.question, repos.quiz, repos.answer, s.ledger)
	s.resolver = service.NewFeedbackResolver(cfg.Quiz.Locale)
	s.catalog = service.NewCatalogService(repos.course, repos.quiz, repos.question, orders, cfg.Quiz.DefaultMaxAttempts)
	s.quiz = service.NewQuizService(repos.question, s.ledger, s.scoring, s.progression, s.resolver)
	s.review = service.NewReviewService(repos.answer, repos.quiz, repos.course, s.ledger, s.resolver, deps.Publisher)
	s.aiFeedback = service.NewAIFeedbackService(
		repos.answer,
		repos.quiz,
		repos.course,
		s.ledger,
		s.completer,
		deps.Archive,
		deps.Publisher,
		cfg.AI.PromptTemplate,
	)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		quiz:     controller.NewQuizController(s.catalog, s.quiz, s.progression, s.review),
		catalog:  controller.NewCatalogController(s.catalog),
		feedback: controller.NewFeedbackController(s.review, s.aiFeedback),
		health:   controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New wires repositories, services and routes around already opened
// infrastructure.
func New(cfg *config.Config, deps Dependencies) *App {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}

	app := &App{
		Config:    cfg,
		DB:        deps.DB,
		Redis:     deps.Redis,
		publisher: deps.Publisher,
	}

	repos := app.initRepositories(deps.DB)
	app.services = app.initServices(repos, cfg, deps)
	controllers := app.initControllers(app.services)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		if c, ok := app.services.completer.(*service.OpenAICompleter); ok {
			c.UpdateConfig(newCfg.AI)
		}
		app.services.aiFeedback.SetPromptTemplate(newCfg.AI.PromptTemplate)
		logger.Log.Info("AI settings refreshed", zap.String("model", newCfg.AI.Model))
	})

	return app
}

// NewApp opens the configured infrastructure and builds the app on top of it.
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	deps := Dependencies{DB: db}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		deps.Redis = rdb
	}

	archive, err := storage.New(&cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	deps.Archive = archive

	if cfg.Events.Enabled {
		pub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			logger.Log.Fatal("Failed to connect to message broker", zap.Error(err))
		}
		deps.Publisher = pub
	}

	app := New(cfg, deps)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("quiz-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
