package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/config"
	"github.com/medibook/medibook/internal/domain/appointment"
	"github.com/medibook/medibook/internal/domain/checkout"
	"github.com/medibook/medibook/internal/domain/doctor"
	"github.com/medibook/medibook/internal/domain/history"
	"github.com/medibook/medibook/internal/domain/identity"
	"github.com/medibook/medibook/internal/domain/prescription"
	"github.com/medibook/medibook/internal/domain/review"
	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/db"
	"github.com/medibook/medibook/internal/platform/events"
	"github.com/medibook/medibook/internal/platform/middleware"
	"github.com/medibook/medibook/internal/platform/overlay"
	"github.com/medibook/medibook/internal/platform/remote"
	"github.com/medibook/medibook/internal/platform/telemetry"
	"github.com/medibook/medibook/internal/platform/validate"
	"github.com/medibook/medibook/internal/platform/websocket"
)

const clinicName = "MediBook Clinic"

// longLived routes keep the caller's context instead of the request timeout.
var longLived = []string{"/ws", "/api/v1/checkout"}

func runServer(migrate bool) error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	srv, err := newServer(ctx, cfg, logger, migrate)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	defer srv.Close()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.StorageBackend).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = srv.echo.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.echo.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

type server struct {
	echo    *echo.Echo
	metrics *telemetry.Metrics
	closers []func()
}

func (s *server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// storage is what the chosen backend provides to the domain services.
type storage struct {
	store  overlay.Store
	appts  appointment.Repository
	pinger db.Pinger
}

func openStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger, migrate bool, srv *server) (*storage, error) {
	now := time.Now()
	var seedAppts []*appointment.Appointment
	if cfg.SeedMockData {
		seedAppts = appointment.SeedAppointments(now)
	}
	localOpts := []appointment.LocalOption{appointment.WithLatency(cfg.SimulatedLatency)}

	switch cfg.StorageBackend {
	case config.BackendRedis:
		rs, err := overlay.NewRedisStore(ctx, cfg.RedisURL, "medibook")
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, func() { _ = rs.Close() })
		logger.Info().Msg("connected to redis")
		return &storage{
			store:  rs,
			appts:  appointment.NewLocalRepository(rs, seedAppts, localOpts...),
			pinger: rs,
		}, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, err
		}
		srv.closers = append(srv.closers, pool.Close)
		logger.Info().Msg("connected to database")

		if migrate {
			n, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
			if err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Int("applied", n).Msg("migrations applied")
		}

		repo := appointment.NewPGRepository(pool)
		for _, a := range seedAppts {
			if _, err := repo.Append(ctx, a); err != nil && !errors.Is(err, appointment.ErrConflict) {
				return nil, fmt.Errorf("seed appointments: %w", err)
			}
		}
		return &storage{store: overlay.NewPostgresStore(pool), appts: repo, pinger: pool}, nil

	default:
		store := overlay.NewMemoryStore()
		return &storage{store: store, appts: appointment.NewLocalRepository(store, seedAppts, localOpts...)}, nil
	}
}

func buildCatalog(cfg *config.Config) (*appointment.Catalog, error) {
	step := time.Duration(cfg.SlotMinutes) * time.Minute
	var parts []appointment.DayPart
	for _, w := range cfg.Windows() {
		p, err := appointment.ParseWindow(w, step)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, errors.New("no slot windows configured")
	}
	return appointment.NewCatalog(parts...), nil
}

// newServer wires storage, services and routes. It does not start listening.
func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, migrate bool) (*server, error) {
	srv := &server{metrics: telemetry.NewMetrics()}
	ok := false
	defer func() {
		if !ok {
			srv.Close()
		}
	}()

	st, err := openStorage(ctx, cfg, logger, migrate, srv)
	if err != nil {
		return nil, err
	}
	catalog, err := buildCatalog(cfg)
	if err != nil {
		return nil, err
	}

	var seedDoctors []*doctor.Doctor
	if cfg.SeedMockData {
		seedDoctors = doctor.SeedDoctors()
	}
	apptRepo := st.appts
	var doctorRepo doctor.Repository = doctor.NewLocalRepository(st.store, seedDoctors)

	// Remote backend first, local state when it cannot be reached.
	if cfg.RemoteAPIURL != "" {
		client := remote.NewClient(cfg.RemoteAPIURL, cfg.RemoteTimeout)
		apptRepo = appointment.NewFallbackRepository(appointment.NewRemoteRepository(client), apptRepo,
			remote.Fallback{Resource: "appointments", Logger: logger, Recorder: srv.metrics})
		doctorRepo = doctor.NewFallbackRepository(doctor.NewRemoteRepository(client), doctorRepo,
			remote.Fallback{Resource: "doctors", Logger: logger, Recorder: srv.metrics})
		logger.Info().Str("url", client.BaseURL()).Msg("remote backend enabled")
	}

	// Notification bridge and its websocket relay
	bus := events.NewBus(logger)
	bus.SubscribeAll(func(_ context.Context, e events.Event) {
		logger.Debug().
			Str("event", string(e.Kind)).
			Str("appointment_id", e.Payload.AppointmentID).
			Str("status", e.Payload.Status).
			Msg("appointment event")
	})
	hub := websocket.NewHub(logger)
	srv.closers = append(srv.closers, websocket.NewRelay(hub).Attach(bus))

	// Services
	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
	issuer, err := auth.NewIssuer(jwtCfg, cfg.AuthTokenTTL)
	if err != nil {
		return nil, err
	}
	doctorSvc := doctor.NewService(doctorRepo, nil)
	identitySvc := identity.NewService(st.store, issuer,
		identity.WithHashCost(cfg.PasswordHashCost),
		identity.WithDoctorDirectory(doctorSvc),
	)
	if cfg.SeedMockData {
		if err := identitySvc.Seed(ctx, identity.SeedUsers()); err != nil {
			return nil, err
		}
	}

	apptSvc := appointment.NewService(apptRepo, catalog, bus,
		appointment.WithDoctorDirectory(doctorSvc),
		appointment.WithTransitionRecorder(srv.metrics),
	)
	doctorSvc.SetAppointments(apptSvc)

	pipeline := checkout.NewPipeline(cfg.PaymentTimeScale, checkout.DefaultSteps()...)
	checkoutSvc := checkout.NewService(pipeline, apptSvc, srv.metrics, logger)
	reviewSvc := review.NewService(st.store, apptSvc, doctorSvc)
	rxSvc := prescription.NewService(st.store, apptSvc)
	historySvc := history.NewService(apptSvc, rxSvc, identitySvc)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "Accept", "X-Request-ID"},
	}))
	e.Use(srv.metrics.Middleware())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, longLived...))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	apiRoot := e.Group("/api", middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(cfg.StorageBackend, st.pinger))
	e.GET("/metrics", srv.metrics.Handler())

	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)
	doctor.NewHandler(doctorSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(apptSvc).RegisterRoutes(apiV1)
	checkout.NewHandler(checkoutSvc).RegisterRoutes(apiV1)
	review.NewHandler(reviewSvc).RegisterRoutes(apiV1)
	prescription.NewHandler(rxSvc, doctorSvc, clinicName).RegisterRoutes(apiV1)
	history.NewHandler(historySvc).RegisterRoutes(apiRoot)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(e.Group(""))

	srv.echo = e
	ok = true
	return srv, nil
}
