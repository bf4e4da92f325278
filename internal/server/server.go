package server

import (
	"context"
	"log/slog"
	"time"

	"backend-lanewatch/internal/auth"
	"backend-lanewatch/internal/config"
	"backend-lanewatch/internal/db"
	"backend-lanewatch/internal/middleware"
	"backend-lanewatch/internal/render"
	"backend-lanewatch/internal/report"
	"backend-lanewatch/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

const visitorTTL = 10 * time.Minute

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      db.Querier
	Redis   *redis.Client
	Stream  *stream.Hub
	Reports *report.Service
	Orphans *report.OrphanQueue
	Logger  *slog.Logger
}

// NewServer wires the HTTP surface. A nil redis client disables the report
// cache, the orphan queue and cross-instance feed relay; the rest still works.
func NewServer(ctx context.Context, cfg config.Config, q db.Querier, redisClient *redis.Client, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{ErrorHandler: render.ErrorHandler})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     q,
		Redis:  redisClient,
		Stream: stream.NewHub(ctx, redisClient, log),
		Logger: log,
	}

	opts := []report.Option{
		report.WithPublisher(s.Stream),
		report.WithRollbackTimeout(cfg.RollbackTimeout),
	}
	if redisClient != nil {
		s.Orphans = report.NewOrphanQueue(redisClient)
		opts = append(opts,
			report.WithCache(report.NewRedisCache(redisClient, cfg.ReportCacheTTL)),
			report.WithOrphanRecorder(s.Orphans),
		)
	}
	s.Reports = report.NewService(report.NewPostgresStore(q), log, opts...)

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/home", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"Message": "Welcome to our server!"})
	})

	authSvc := auth.NewService(s.Cfg.JWTSecret, s.Cfg.JWTTTL, s.DB)
	jwtMiddleware := auth.JWTMiddleware(authSvc)
	loginThrottle := middleware.Limit(s.Cfg.LoginRatePerSec, s.Cfg.LoginRateBurst, visitorTTL, s.Logger)
	reportThrottle := middleware.Limit(s.Cfg.ReportRatePerSec, s.Cfg.ReportRateBurst, visitorTTL, s.Logger)

	auth.RegisterRoutes(s.App.Group("/users"), authSvc, jwtMiddleware, loginThrottle)
	report.RegisterRoutes(s.App.Group("/reports"), s.Reports, jwtMiddleware, reportThrottle)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware)
}
