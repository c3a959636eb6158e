package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/logger"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/storage"
	"github.com/iliyamo/table-reservation/internal/timeslot"
	"github.com/iliyamo/table-reservation/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(db.DB, cfg.DBName); err != nil {
			log.WithError(err).Fatal("migrations")
		}
	}

	slots, err := timeslot.NewCatalog(cfg.TimeSlots)
	if err != nil {
		log.WithError(err).Fatal("time slots")
	}
	tokens := utils.TokenOptions{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}

	users := repository.NewUserRepo(db)
	tables := repository.NewTableRepo(db)
	bookings := repository.NewBookingRepo(db)

	authSvc := service.NewAuthService(users, tokens, cfg.BcryptCost, log)
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := authSvc.SeedAdmin(seedCtx, service.AdminSeed{
		Username:    cfg.AdminUsername,
		Email:       cfg.AdminEmail,
		Password:    cfg.AdminPassword,
		FullName:    cfg.AdminFullName,
		PhoneNumber: cfg.AdminPhone,
	}); err != nil {
		log.WithError(err).Fatal("seed admin")
	}
	cancel()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable: caching off, rate limiting is per instance")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher := queue.NewPublisher(cfg.RabbitMQURL, log)
	defer publisher.Close()
	if cfg.QueueConsumerEnabled && cfg.RabbitMQURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.BookingLogPath, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("booking consumer stopped")
			}
		}()
	}

	images, uploadDir, err := imageStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("image storage")
	}

	loc := cfg.Location()
	bookingSvc := service.NewBookingService(bookings, tables, slots, loc, publisher, log)
	tableSvc := service.NewTableService(tables, slots, loc, log)

	checks := []handler.Check{{Name: "mysql", Probe: db.PingContext}}
	if rdb != nil {
		checks = append(checks, handler.Check{Name: "redis", Optional: true, Probe: redisProbe(rdb)})
	}

	e := router.New(router.Deps{
		Auth:        handler.NewAuthHandler(authSvc),
		Bookings:    handler.NewBookingHandler(bookingSvc),
		Tables:      handler.NewTableHandler(tableSvc),
		Uploads:     handler.NewUploadHandler(images, cfg.MaxImageBytes, log),
		Health:      handler.NewHealthHandler(checks...),
		Tokens:      tokens,
		Cache:       config.LoadCacheConfig(),
		RateLimit:   config.LoadRateLimitConfig(),
		Redis:       rdb,
		Log:         log,
		UploadDir:   uploadDir,
		CORSOrigins: cfg.CORSOrigins,
		BodyLimit:   "1M",
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// imageStore picks the configured backend.  The local directory is returned
// so the router can serve it; S3 images are served by the bucket.
func imageStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (storage.ImageStore, string, error) {
	if cfg.StorageDriver == "s3" {
		s, err := storage.NewS3Store(ctx, cfg.S3, log)
		return s, "", err
	}
	s, err := storage.NewLocalStore(cfg.UploadDir, "/uploads")
	if err != nil {
		return nil, "", err
	}
	return s, cfg.UploadDir, nil
}

func redisProbe(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
