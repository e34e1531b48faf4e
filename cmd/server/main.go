package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"ylack/internal/config"
	"ylack/internal/db"
	"ylack/internal/message"
	"ylack/internal/middleware"
	"ylack/internal/reaction"
	"ylack/internal/user"
	"ylack/internal/workspace"
	"ylack/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Platform layer.
	database, err := db.NewDatabase(cfg.DSN)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	log.Println("connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Println("database schema initialized")

	var redisClient *redis.Client
	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rc.Ping(context.Background()).Result(); err != nil {
		// History caching is an optimization; the server runs without it.
		log.Printf("redis unavailable at %s, history cache disabled: %v", cfg.RedisAddr, err)
	} else {
		redisClient = rc
		log.Println("connected to Redis")
	}

	// Collaborators.
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	wsRepo := workspace.NewRepository(database.Conn)
	wsService := workspace.NewService(wsRepo)
	wsHandler := workspace.NewHandler(wsService)

	// Realtime core.
	hub := ws.NewHub()
	socketHandler := ws.NewHandler(hub)

	messageRepo := message.NewRepository(database.Conn)
	var historyCache *message.HistoryCache
	if redisClient != nil {
		historyCache = message.NewHistoryCache(redisClient)
	}
	messageService := message.NewService(messageRepo, hub, historyCache)
	messageHandler := message.NewHandler(messageService, wsService)

	reactionRepo := reaction.NewRepository(database.Conn)
	reactionService := reaction.NewService(reactionRepo, messageRepo)
	reactionHandler := reaction.NewHandler(reactionService, wsService)

	authMiddleware := middleware.NewAuth(userService)

	// Routes.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes.
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Get("/ws", socketHandler.ServeWs)

		r.Route("/api", func(api chi.Router) {
			api.Get("/users/search", userHandler.SearchUsers)
			wsHandler.RegisterRoutes(api)
			messageHandler.RegisterRoutes(api)
			reactionHandler.RegisterRoutes(api)
		})
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		log.Printf("server starting on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	hub.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
