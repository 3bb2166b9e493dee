package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/thereayou/accounts/internal/avatars"
	"github.com/thereayou/accounts/internal/cache"
	"github.com/thereayou/accounts/internal/config"
	"github.com/thereayou/accounts/internal/database"
	"github.com/thereayou/accounts/internal/logging"
	"github.com/thereayou/accounts/internal/mailer"
	"github.com/thereayou/accounts/internal/services"
	"github.com/thereayou/accounts/internal/verification"
	"github.com/thereayou/accounts/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg       config.Config
	log       logging.Logger
	db        *database.Database
	redis     *redis.Client
	generator *verification.Generator
	http      *http.Server
}

// NewServer connects to postgres and redis and wires the account service.
func NewServer(ctx context.Context, cfg config.Config, log logging.Logger) (*Server, error) {
	db := &database.Database{}
	if err := db.Connect(ctx, cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		db.Close()
		rdb.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	var m mailer.Mailer
	if cfg.SendGridAPIKey != "" {
		m = mailer.NewSendGridMailer(cfg.SendGridAPIKey)
	} else {
		log.Warn(ctx, "SENDGRID_API_KEY not set, verification emails are only logged")
		m = mailer.NewLogMailer(log)
	}
	generator := verification.NewGenerator(m, log, cfg.PublicBaseURL, cfg.MailFrom)

	processor := avatars.NewProcessor(avatars.Options{
		Dir:      cfg.AvatarDir,
		TmpDir:   cfg.UploadTmpDir,
		MaxBytes: cfg.AvatarMaxBytes,
	})

	svc := services.NewService(services.Deps{
		Store:    db,
		Hasher:   auth.NewBcryptHasher(cfg.BcryptCost),
		Tokens:   auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		Verifier: generator,
		Limiter:  cache.NewRedisResendLimiter(rdb, cfg.VerifyResendCooldown),
		Avatars:  processor,
		Logger:   log,
		Policy:   services.SessionPolicy(cfg.SessionPolicy),
	})

	router := NewRouter(svc, log, cfg)

	return &Server{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     rdb,
		generator: generator,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           Handler(router, cfg),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "server starting", "addr", s.cfg.HTTPAddr, "session_policy", s.cfg.SessionPolicy)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	s.log.Info(context.Background(), "server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)

	s.close()
	return err
}

func (s *Server) close() {
	s.generator.Wait()
	if err := s.redis.Close(); err != nil {
		s.log.Warn(context.Background(), "redis close", "error", err)
	}
	if err := s.db.Close(); err != nil {
		s.log.Warn(context.Background(), "postgres close", "error", err)
	}
}
