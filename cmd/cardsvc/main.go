// cmd/cardsvc/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sinoman/internal/attendance"
	"sinoman/internal/config"
	"sinoman/internal/eventstore"
	"sinoman/internal/finance"
	"sinoman/internal/logger"
	"sinoman/internal/membercard"
	"sinoman/internal/membership"
	"sinoman/internal/server"
	"sinoman/internal/telemetry"
)

const serviceName = "sinoman-cardsvc"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync() //nolint:errcheck

	if err := run(cfg, lg); err != nil {
		lg.Fatal("card service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: serviceName,
			Environment: cfg.Environment,
			Endpoint:    cfg.OTelEndpoint,
			Insecure:    cfg.OTelInsecure,
			Headers:     telemetry.ParseHeaders(cfg.OTelHeaders),
		})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				lg.Warn("telemetry shutdown", zap.Error(err))
			}
		}()
	}

	codec, err := membercard.NewKeyedCodec(cfg.CardSecret, cfg.CardSalt, cfg.CardChecksumKey)
	if err != nil {
		return err
	}
	if cfg.CardChecksumKey == "" && cfg.IsProduction() {
		lg.Warn("CARD_CHECKSUM_KEY is not set; card checksums are forgeable")
	}

	var checks []func(context.Context) error

	var store eventstore.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		pg := eventstore.NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate event store: %w", err)
		}
		store = pg
		checks = append(checks, db.PingContext)
		lg.Info("using postgres event store")
	} else {
		store = eventstore.NewMemoryStore()
		lg.Warn("DATABASE_URL not set; card events are kept in memory")
	}

	var recorder attendance.Recorder
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		recorder = attendance.NewRedisRecorder(rdb, lg, attendance.DefaultRetention)
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		lg.Info("using redis attendance recorder", zap.String("addr", cfg.RedisAddr))
	} else {
		recorder = attendance.NewMemoryRecorder()
		lg.Warn("REDIS_ADDR not set; check-ins are kept in memory")
	}

	svc := membership.NewService(store, recorder, codec, lg,
		membership.WithLimiter(verifyLimiter(cfg.VerifyRatePerMinute)))

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.New(server.Config{
			Logger:     lg,
			Membership: membership.NewHandler(svc, lg),
			Finance:    finance.NewHandler(lg),
			Ready: func(r *http.Request) error {
				for _, check := range checks {
					if err := check(r.Context()); err != nil {
						return err
					}
				}
				return nil
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("card service listening", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// verifyLimiter spreads perMinute evenly, allowing bursts of a tenth of it.
func verifyLimiter(perMinute int) *rate.Limiter {
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}
