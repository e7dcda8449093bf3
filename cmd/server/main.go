package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/classtrack/internal/handler"
	"github.com/yourorg/classtrack/internal/infrastructure/redis"
	"github.com/yourorg/classtrack/internal/observability/metrics"
	"github.com/yourorg/classtrack/internal/observability/tracing"
	"github.com/yourorg/classtrack/internal/reliability/retry"
	"github.com/yourorg/classtrack/internal/repository"
	"github.com/yourorg/classtrack/internal/security"
	"github.com/yourorg/classtrack/internal/security/audit"
	"github.com/yourorg/classtrack/internal/security/auth"
	"github.com/yourorg/classtrack/internal/security/middleware"
	"github.com/yourorg/classtrack/internal/security/ratelimit"
	"github.com/yourorg/classtrack/internal/service"
	"github.com/yourorg/classtrack/internal/worker"
	"github.com/yourorg/classtrack/pkg/cache"
	"github.com/yourorg/classtrack/pkg/config"
	"github.com/yourorg/classtrack/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := newLogger(cfg.LogLevel)
	log.Info("starting ClassTrack server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set)
	shutdownTracing, err := tracing.Init(ctx, log, "classtrack-server", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect Redis and Postgres, retrying through startup races with
	// the containers coming up next to us
	retryCfg := retry.DefaultConfig()
	redisClient, err := retry.Do(ctx, retryCfg, log, "redis connect", func(ctx context.Context) (*redis.Client, error) {
		return redis.NewClient(cfg.RedisURL)
	})
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	pool, err := retry.Do(ctx, retryCfg, log, "postgres connect", func(ctx context.Context) (*database.ConnectionPool, error) {
		return database.NewConnectionPool(ctx, &database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}, log)
	})
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.GetDB()

	// 5. Repositories
	tenantRepo := repository.NewPostgresTenantRepository(db, log)
	providerUserRepo := repository.NewPostgresProviderUserRepository(db, log)
	schoolUserRepo := repository.NewPostgresSchoolUserRepository(db, log)
	teacherRepo := repository.NewPostgresTeacherRepository(db, log)
	studentRepo := repository.NewPostgresStudentRepository(db, log)
	classRepo := repository.NewPostgresClassRepository(db, log)
	subjectRepo := repository.NewPostgresSubjectRepository(db, log)
	classSubjectRepo := repository.NewPostgresClassSubjectRepository(db, log)
	gradeTypeRepo := repository.NewPostgresGradeTypeRepository(db, log)
	termRepo := repository.NewPostgresTermRepository(db, log)
	gradeRepo := repository.NewPostgresGradeRepository(db, log)

	// 6. Security components
	providerTM := auth.NewTokenManager(cfg.ProviderJWTSecret, auth.DomainProvider)
	schoolTM := auth.NewTokenManager(cfg.SchoolJWTSecret, auth.DomainSchool)
	authz := security.NewAuthorizationService(log)
	loginLimiter := ratelimit.NewLimiter(cfg.LoginRateLimitPerMinute, time.Minute)

	// 7. Services
	sessions := service.NewSessionStore(redisClient, cfg.TokenTTL, log)
	feed := service.NewActivityFeed(redisClient, log)
	auditLogger := audit.NewLogger(log, feed)
	rosters := cache.New()

	authService := service.NewAuthService(providerUserRepo, schoolUserRepo, tenantRepo, providerTM, schoolTM, sessions, cfg.TokenTTL, log)
	tenantService := service.NewTenantService(tenantRepo, schoolUserRepo, cfg.Plans, auditLogger, log)
	providerUserService := service.NewProviderUserService(providerUserRepo, auditLogger, log)
	schoolService := service.NewSchoolService(studentRepo, teacherRepo, schoolUserRepo, classRepo, subjectRepo, classSubjectRepo, termRepo, gradeTypeRepo, rosters, auditLogger, log)
	gradeService := service.NewGradeService(gradeRepo, gradeTypeRepo, studentRepo, termRepo, rosters, auditLogger, log)

	// 8. Handlers and routes
	mux := handler.NewRouter(handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService, auditLogger, log),
		Tenants:       handler.NewTenantHandler(tenantService, authz, log),
		ProviderUsers: handler.NewProviderUserHandler(providerUserService, authz, log),
		Students:      handler.NewStudentHandler(schoolService, authz, log),
		Teachers:      handler.NewTeacherHandler(schoolService, authz, log),
		Classes:       handler.NewClassHandler(schoolService, authz, log),
		Subjects:      handler.NewSubjectHandler(schoolService, authz, log),
		GradeTypes:    handler.NewGradeTypeHandler(schoolService, authz, log),
		Terms:         handler.NewTermHandler(schoolService, authz, log),
		Grades:        handler.NewGradeHandler(gradeService, authz, log),
		Activity:      handler.NewActivityHandler(feed, authz, cfg.CORSAllowedOrigins, log),
		Readiness:     []handler.Pinger{redisClient, handler.PingerFunc(pool.Health)},
	})

	// CORS honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> content type -> login
	// rate limit -> auth -> CORS -> routes
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.ValidateJSONContentType(log)(
				middleware.LoginRateLimitMiddleware(loginLimiter, log)(
					middleware.AuthMiddleware(schoolTM, providerTM, sessions, log)(handlerWithCORS),
				),
			),
		),
		log,
	)

	// 9. Session sweeper in background
	sweeper := worker.NewSessionSweeper(sessions, log, time.Duration(cfg.SessionSweepIntervalMinutes)*time.Minute)
	go sweeper.Start(ctx)

	// 10. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("login_rate_limit", cfg.LoginRateLimitPerMinute),
		slog.Duration("token_ttl", cfg.TokenTTL),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop the sweeper
	loginLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
