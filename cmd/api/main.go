package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"recipebox/internal/account"
	"recipebox/internal/api"
	"recipebox/internal/auth"
	"recipebox/internal/config"
	"recipebox/internal/database"
	"recipebox/internal/recipe"
	"recipebox/internal/relation"
	"recipebox/internal/storage"
)

func main() {
	// .env 只用于本地开发，缺失时忽略。
	_ = godotenv.Load()

	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	privateKey, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read jwt private key: %v", err)
	}
	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read jwt public key: %v", err)
	}
	authService, err := auth.NewService(privateKey, publicKey, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, auth.NewRedisDenylist(redisClient))
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	renderer, err := recipe.NewRenderer(512)
	if err != nil {
		log.Fatalf("init markdown renderer: %v", err)
	}

	likes := relation.NewStore(db, relation.Likes)
	bookmarks := relation.NewStore(db, relation.Bookmarks)
	accounts := account.NewStore(db, bookmarks)
	recipes := recipe.NewStore(db, likes, bookmarks)

	scanner := api.NewClamdScanner(cfg.Clamd.Addr)
	if scanner == nil {
		logger.Warn("clamd address not configured, avatar uploads will not be scanned")
	}

	router := api.NewRouter(cfg.API, logger)
	handlers := api.Handlers{
		Validator: authService,
		Accounts:  accounts,
		Auth:      api.NewAuthHandler(accounts, authService, redisClient, asynqClient, cfg.Auth.LoginRateLimitPerHour),
		Users:     api.NewUserHandler(accounts, recipes, likes, bookmarks, renderer, asynqClient),
		Avatars:   api.NewAvatarHandler(accounts, storageClient, scanner, asynqClient),
		Recipes:   api.NewRecipeHandler(recipes, likes, bookmarks, renderer),
	}
	api.RegisterRoutes(router, handlers)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
