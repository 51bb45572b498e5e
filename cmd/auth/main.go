package main

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/atlaslabs/atlas-auth/internal/bootstrap"
	"github.com/atlaslabs/atlas-auth/internal/config"
	httptransport "github.com/atlaslabs/atlas-auth/internal/http"
	"github.com/atlaslabs/atlas-auth/internal/http/handler"
	httpmiddleware "github.com/atlaslabs/atlas-auth/internal/http/middleware"
	"github.com/atlaslabs/atlas-auth/internal/jwt"
	"github.com/atlaslabs/atlas-auth/internal/repository"
	"github.com/atlaslabs/atlas-auth/internal/server"
	"github.com/atlaslabs/atlas-auth/internal/service"
	"github.com/atlaslabs/atlas-auth/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newMongoClient,
			newDatabase,
			newUserRepository,
			newTokenCodec,
			service.NewAuthService,
			handler.NewAuthHandler,
			newHealthHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, ensureIndexes, bootstrap.EnsureAdmin, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newMongoClient(lc fx.Lifecycle, cfg config.Config) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return client, nil
}

func newDatabase(client *mongo.Client, cfg config.Config) *mongo.Database {
	return client.Database(cfg.DatabaseName)
}

func newUserRepository(db *mongo.Database) (repository.UserRepository, *repository.MongoUserRepo) {
	repo := repository.NewMongoUserRepo(db)
	return repo, repo
}

func newTokenCodec(cfg config.Config) *jwt.Codec {
	return jwt.NewCodec([]byte(cfg.AuthSecret), cfg.AccessTokenTTL)
}

func newHealthHandler(db *mongo.Database) *handler.HealthHandler {
	return handler.NewHealthHandler(db)
}

func newAuthMiddleware(authService *service.AuthService) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{AuthService: authService}
}

func ensureIndexes(lc fx.Lifecycle, repo *repository.MongoUserRepo) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return repo.EnsureIndexes(startCtx)
		},
	})
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			logger.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
