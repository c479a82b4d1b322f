package main

import (
	"context"
	"internship-auth/config"
	_ "internship-auth/docs"
	"internship-auth/internal/handler"
	"internship-auth/internal/ports"
	"internship-auth/internal/repository"
	"internship-auth/internal/security"
	"internship-auth/internal/service"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Internship marketplace auth
// @version 1.0
// @description Аутентификация и допуск запросов для маркетплейса стажировок

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	configPath := pflag.String("config", "config.yaml", "путь к файлу конфигурации")
	generateKeys := pflag.String("generate-keys", "", "сгенерировать пару RSA-ключей в указанный каталог и выйти")
	pflag.Parse()

	if *generateKeys != "" {
		keys, err := security.GenerateKeyStore(2048)
		if err != nil {
			log.Fatalf("Ошибка генерации ключей: %v", err)
		}
		if err := keys.WritePEM(*generateKeys); err != nil {
			log.Fatalf("Ошибка записи ключей: %v", err)
		}
		log.Printf("Ключи записаны в %s (kid %s)", *generateKeys, keys.KeyID())
		return
	}

	if err := godotenv.Load(); err != nil {
		log.Println("файл .env не найден, используются переменные окружения")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		log.Fatalf("Не удалось подключиться к БД: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка при закрытии БД: %v", err)
		}
	}()

	redisClient, err := config.SetupRedis(&cfg.RedisConfig)
	if err != nil {
		log.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Ошибка при закрытии Redis: %v", err)
		}
	}()

	var objects ports.ObjectReader
	if security.IsS3Location(cfg.JWT.PrivateKeyLocation) || security.IsS3Location(cfg.JWT.PublicKeyLocation) {
		s3Service, err := service.NewS3Service(ctx, &cfg.S3Config)
		if err != nil {
			log.Fatalf("Ошибка создания S3 сервиса: %v", err)
		}
		objects = s3Service
	}

	keys, err := security.LoadKeyStore(ctx, cfg.JWT.PrivateKeyLocation, cfg.JWT.PublicKeyLocation, objects)
	if err != nil {
		log.Fatalf("Ошибка загрузки ключей подписи: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(redisClient)
	rateLimitRepo := repository.NewRateLimitRepository(redisClient)

	tokenService := security.NewTokenService(keys, tokenRepo, tokenRepo, cfg.JWT)
	authService := service.NewAuthenticationService(tokenService, userRepo)

	var limiter ports.Admitter
	if cfg.RateLimit.Enabled {
		limiter = service.NewRateLimiter(rateLimitRepo, cfg.RateLimit, time.Now)
	} else {
		log.Println("rate limit отключен конфигурацией")
	}
	gate := security.NewRequestGate(tokenService, limiter)

	authHandler := handler.NewAuthenticationHandler(authService, cfg.Cookie, cfg.JWT.RefreshTokenTTL)
	healthHandler := handler.NewHealthHandler(redisClient, db)

	srv, router := config.SetupServer(cfg.ServerAddr)
	setupRoutes(router, authHandler, healthHandler, gate)

	runServer(ctx, srv)
}

// setupRoutes не подключает middleware.RealIP: ключ rate limit берется
// из X-Forwarded-For или адреса соединения, X-Real-IP не учитывается
func setupRoutes(r chi.Router, h *handler.AuthenticationHandler, health *handler.HealthHandler, gate *security.RequestGate) {
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/healthz", health.Health)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(gate.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.RefreshToken)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.GetCurrentUser)
		})
	})
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("сервер запущен на " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		log.Printf("получен сигнал %v остановки работы сервера ", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Printf("ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}
}
