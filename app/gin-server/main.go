package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/bookbot/config"
	"github.com/yoockh/bookbot/internal/api/handlers"
	"github.com/yoockh/bookbot/internal/api/middleware"
	"github.com/yoockh/bookbot/internal/api/routes"
	"github.com/yoockh/bookbot/internal/auth"
	"github.com/yoockh/bookbot/internal/bootstrap"
	"github.com/yoockh/bookbot/internal/catalog"
	"github.com/yoockh/bookbot/internal/logger"
	"github.com/yoockh/bookbot/internal/metrics"
	"github.com/yoockh/bookbot/internal/ratelimit"
	mongorepo "github.com/yoockh/bookbot/internal/repositories/mongo"
	pgrepo "github.com/yoockh/bookbot/internal/repositories/postgres"
	"github.com/yoockh/bookbot/internal/services"
	"github.com/yoockh/bookbot/internal/tools"
)

func main() {
	cfg, err := config.Load("")
	log := logger.New(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("config load error")
	}
	if err := cfg.ValidateServer(); err != nil {
		log.WithError(err).Fatal("config error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers bootstrap.Closers
	defer func() {
		if err := closers.Close(); err != nil {
			log.WithError(err).Warn("close clients")
		}
	}()

	// Init PostgreSQL
	if err := config.InitPostgres(cfg.PostgresURI); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	defer config.ClosePostgres()
	log.Info("PostgreSQL connected")

	// Init Redis (optional: login rate limiting)
	var limiter middleware.Limiter
	retryAfter := 60
	if cfg.RedisAddr != "" {
		if err := config.InitRedis(cfg.RedisAddr); err != nil {
			log.WithError(err).Fatal("Redis init error")
		}
		defer config.RedisClient.Close()
		log.Info("Redis connected")

		n, window, _ := config.ParseRate(cfg.LoginRateLimit)
		if n > 0 {
			fw, err := ratelimit.NewFixedWindowLimiter(config.RedisClient, "bookbot:login", n, window)
			if err != nil {
				log.WithError(err).Fatal("rate limiter init error")
			}
			limiter = fw
			retryAfter = int(window.Seconds())
		}
	}

	// Init MongoDB (optional: chat audit log)
	var chatLogs mongorepo.ChatLogRepository
	if cfg.MongoURI != "" {
		if err := config.InitMongo(cfg.MongoURI); err != nil {
			log.WithError(err).Fatal("MongoDB init error")
		}
		defer config.CloseMongo(context.Background())
		db, err := config.EnsureMongoIndexes(cfg.MongoDB)
		if err != nil {
			log.WithError(err).Fatal("MongoDB index error")
		}
		chatLogs = mongorepo.NewChatLogRepo(db)
		log.Info("MongoDB connected")
	}

	cat, err := catalog.Load(cfg.SummariesPath)
	if err != nil {
		log.WithError(err).Fatal("book summaries load error")
	}

	oa := bootstrap.OpenAI(cfg)
	model, err := bootstrap.ChatModel(ctx, cfg, oa)
	if err != nil {
		log.WithError(err).Fatal("chat model init error")
	}
	closers.Add(model)

	index, err := bootstrap.VectorIndex(ctx, cfg, config.PostgresDB)
	if err != nil {
		log.WithError(err).Fatal("vector index init error")
	}
	if cfg.VectorIndex == config.IndexMemory {
		n, err := services.NewIngestService(oa, index, 0, 0, log).Load(ctx, cat.Books())
		if err != nil {
			log.WithError(err).Fatal("in-memory index load error")
		}
		log.WithField("books", n).Info("in-memory index loaded")
	}

	m := metrics.New()

	tokens, err := auth.NewManager(cfg.SecretKey)
	if err != nil {
		log.WithError(err).Fatal("token manager init error")
	}
	authSvc := services.NewAuthService(pgrepo.NewUserRepo(config.PostgresDB), tokens, log)

	chatSvc := services.NewChatService(services.ChatConfig{
		Model:         model,
		Tools:         tools.NewDispatcher(oa, index, cat),
		Titles:        cat,
		Images:        oa,
		Covers:        bootstrap.Covers(ctx, cfg, log, &closers),
		Logs:          chatLogs,
		Metrics:       m,
		Log:           log,
		MaxToolRounds: cfg.MaxToolRounds,
		ModelTimeout:  cfg.ModelTimeout,
	})
	speechSvc := services.NewSpeechService(bootstrap.Speech(ctx, cfg, log, &closers), chatSvc, 0, log)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := routes.NewEngine(routes.Deps{
		Auth:        handlers.NewAuthHandler(authSvc),
		Chat:        handlers.NewChatHandler(chatSvc, speechSvc, services.NewChatLogService(chatLogs)),
		WS:          handlers.NewWSHandler(chatSvc, middleware.OriginAllowed(cfg.CORSOrigins), log),
		Authn:       authSvc,
		Limiter:     limiter,
		RetryAfter:  retryAfter,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     m,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.Port,
			"provider": cfg.LLMProvider,
			"index":    cfg.VectorIndex,
			"books":    cat.Len(),
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}
