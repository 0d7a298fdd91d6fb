package main

import (
	"context"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dembasy/jokko/internal/config"
	"github.com/dembasy/jokko/internal/handlers"
	"github.com/dembasy/jokko/internal/mq"
	"github.com/dembasy/jokko/internal/presence"
	"github.com/dembasy/jokko/internal/repositories"
	"github.com/dembasy/jokko/internal/routers"
	"github.com/dembasy/jokko/internal/services"
	"github.com/dembasy/jokko/internal/storage"
	"github.com/dembasy/jokko/internal/ws"
	"github.com/dembasy/jokko/pkg/bloom"
	"github.com/dembasy/jokko/pkg/logger"
	"github.com/dembasy/jokko/pkg/ratelimit"
	"github.com/dembasy/jokko/pkg/token"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLog, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer appLog.Close()

	token.Configure(cfg.JWT.Secret, cfg.JWT.TTL)

	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	db, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		appLog.Fatal("failed to init postgres", zap.Error(err))
	}

	redisClient, err := storage.InitRedis(&cfg.Redis)
	if err != nil {
		appLog.Fatal("failed to init redis", zap.Error(err))
	}

	groupRepo := repositories.NewGroupRepository(db)
	contactRepo := repositories.NewContactRepository(db)
	conversationRepo := repositories.NewConversationRepository(db)
	userRepo := repositories.NewUserRepository(db)

	userService := services.NewUserService(userRepo, appLog)

	tracker := presence.NewTracker(redisClient, nil, cfg.Presence.TTL)

	// Seed the phone directory filter so unknown numbers are rejected
	// without hitting the database. Registration keeps it current from
	// here on.
	phoneFilter := bloom.New(100000, 0.01)
	if phones, err := userRepo.ListPhones(context.Background()); err != nil {
		appLog.Warn("failed to seed phone filter, disabling it", zap.Error(err))
		phoneFilter = nil
	} else {
		for _, p := range phones {
			phoneFilter.AddString(p)
		}
	}
	userService.SetPhoneFilter(phoneFilter)

	producer, err := mq.NewProducer(&cfg.Kafka, appLog)
	if err != nil {
		appLog.Warn("kafka unavailable, events will not be published", zap.Error(err))
		producer = nil
	} else {
		defer producer.Close()
	}

	sessions := services.NewSessionManager(services.SessionDeps{
		Groups:        groupRepo,
		Contacts:      contactRepo,
		Conversations: conversationRepo,
		Users:         userRepo,
		Presence:      tracker,
		Confirm:       services.ContextConfirmer,
		PhoneFilter:   phoneFilter,
		Log:           appLog,
		OnSession: func(s *services.Session) {
			if producer == nil {
				return
			}
			ch, _ := s.Bus.Subscribe(256)
			go producer.Relay(s.User.ID, ch)
		},
	})

	hub := ws.NewHub(tracker, appLog)
	go hub.Run()

	limiter := ratelimit.NewFixedWindowLimiter(redisClient, appLog.Logger, true)

	authHandler := handlers.NewAuthHandler(userService, sessions, appLog)
	groupHandler := handlers.NewGroupHandler(userService, sessions, appLog)
	contactHandler := handlers.NewContactHandler(userService, sessions, appLog)
	conversationHandler := handlers.NewConversationHandler(userService, sessions, appLog)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	routers.SetupRoutes(r,
		authHandler,
		groupHandler,
		contactHandler,
		conversationHandler,
		hub,
		sessions,
		limiter,
	)

	appLog.Info("starting server", zap.Int("port", cfg.Server.Port))
	if err := r.Run(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
		appLog.Fatal("server exited", zap.Error(err))
	}
}
