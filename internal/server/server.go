package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/randosoru/apiserver/config"
	"github.com/randosoru/apiserver/internal/db"
	"github.com/randosoru/apiserver/internal/handlers"
	"github.com/randosoru/apiserver/internal/identity"
	"github.com/randosoru/apiserver/internal/live"
	"github.com/randosoru/apiserver/internal/mq"
	"github.com/randosoru/apiserver/internal/oauth"
	"github.com/randosoru/apiserver/internal/services"
	"github.com/randosoru/apiserver/internal/storage"
	"github.com/randosoru/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Broker
}

// New constructs a Server with basic middleware and defaults. All
// dependencies are built here explicitly; optional backends (event
// relay, object storage) are wired only when configured.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	codec, err := identity.NewCodec(cfg.IDSalt)
	if err != nil {
		return nil, err
	}
	tokens := identity.NewTokens(cfg.JWTSecret)

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	guildRepo := store.NewGuildRepository(dbConn)
	formRepo := store.NewFormRepository(dbConn)
	recordRepo := store.NewRecordRepository(dbConn)

	hub := live.NewHub()
	var notifier services.Notifier = hub
	var broker mq.Broker
	if cfg.Relay.Backend != "" {
		broker, err = newBroker(ctx, cfg)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		relay := mq.NewRelay(broker, hub)
		notifier = relay
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("server: event relay stopped: %v", err)
			}
		}()
	}

	var images *storage.ImageStore
	if cfg.Storage.Backend != "" {
		backend, err := newObjectStorage(ctx, cfg)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		images = storage.NewImageStore(backend)
		if err := images.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	userService := services.NewUserService(userRepo, codec)
	guildService := services.NewGuildService(guildRepo)
	formService := services.NewFormService(formRepo, codec, notifier, cfg.FormOwnerCheck)
	recordService := services.NewRecordService(recordRepo, formRepo, userRepo, codec, notifier)

	discordClient := oauth.NewDiscordClient(cfg.Discord)
	lineClient := oauth.NewLineClient(cfg.Line)

	authMiddleware := handlers.RequireAuth(tokens, codec)

	oauthHandler := handlers.NewOauthHandler(userService, tokens, discordClient, lineClient)
	userHandler := handlers.NewUserHandler(userService, guildService, recordService)
	formHandler := handlers.NewFormHandler(formService, recordService, images)
	botHandler := handlers.NewBotHandler(userService, formService, recordService, cfg.BotTokens, cfg.BotTokenHashes)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/ws", live.ServeWS(hub))
	router.Route("/oauth", oauthHandler.Router)
	userHandler.Router(router, authMiddleware)
	router.Route("/forms", func(r chi.Router) {
		formHandler.Router(r, authMiddleware)
	})
	router.Route("/bot", botHandler.Router)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

func newBroker(ctx context.Context, cfg config.Config) (mq.Broker, error) {
	switch cfg.Relay.Backend {
	case "rabbitmq":
		return mq.NewRabbitMQBroker(cfg.Relay.RabbitMQ)
	case "pubsub":
		return mq.NewPubSubBroker(ctx, cfg.Relay.PubSub)
	default:
		return nil, fmt.Errorf("unknown relay backend %q", cfg.Relay.Backend)
	}
}

func newObjectStorage(ctx context.Context, cfg config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return storage.NewMinioClient(cfg.Storage.Minio)
	case "gcs":
		return storage.NewGCSClient(ctx, cfg.Storage.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}
