package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/answerly-api/internal/config"
	"github.com/yourusername/answerly-api/internal/handler"
	"github.com/yourusername/answerly-api/internal/middleware"
	pgRepo "github.com/yourusername/answerly-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/answerly-api/internal/repository/redis"
	"github.com/yourusername/answerly-api/internal/service"
	ws "github.com/yourusername/answerly-api/internal/websocket"
	"github.com/yourusername/answerly-api/pkg/auth"
	"github.com/yourusername/answerly-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	setRepo := pgRepo.NewQuestionSetRepo(db)
	answerRepo := pgRepo.NewAnswerRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient, cfg.Cache.Prefix)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Токены выпускает внешний провайдер идентичности, сервис их только проверяет
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		log.Printf("Failed to initialize JWT service: %v", err)
		os.Exit(1)
	}

	// Живая лента отправок
	wsHub := ws.NewHub()
	wsManager := ws.NewManager(wsHub)

	// Инициализируем сервисы
	setService := service.NewQuestionSetService(
		setRepo,
		cacheRepo,
		service.NewRandomSlugGenerator(cfg.Slug.Length),
		wsManager,
		service.QuestionSetConfig{
			MaxSlugRetries:      cfg.Slug.MaxRetries,
			DefaultTimeLimitSec: cfg.Submission.DefaultTimeLimitSec,
			PublicViewTTL:       cfg.Cache.PublicViewTTLDuration(),
		},
	)
	answerService := service.NewAnswerService(setRepo, answerRepo, wsManager)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	submitLimiter := rateLimiter.Limit(middleware.SubmissionRateLimitConfig(
		cfg.Submission.RateLimit,
		time.Duration(cfg.Submission.RateWindowSec)*time.Second,
	))

	// Инициализируем роутер Gin
	router := gin.Default()

	// В production не доверяем прокси-заголовкам, в development доверяем localhost
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", auth.CSRFHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "live_connections": wsHub.ClientCount()})
	})

	// Настраиваем маршруты API
	handler.Routes{
		QuestionSets:  handler.NewQuestionSetHandler(setService),
		Answers:       handler.NewAnswerHandler(answerService),
		Admin:         handler.NewAdminHandler(answerService),
		WS:            handler.NewWSHandler(setService, wsHub, cfg.CORS.AllowOrigins),
		Auth:          authMiddleware,
		SubmitLimiter: submitLimiter,
	}.Register(router.Group("/api"))

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exited properly")
}
