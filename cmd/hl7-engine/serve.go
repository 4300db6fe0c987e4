package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/hl7engine/internal/config"
	"github.com/ehr/hl7engine/internal/domain/messagelog"
	"github.com/ehr/hl7engine/internal/platform/auth"
	"github.com/ehr/hl7engine/internal/platform/db"
	"github.com/ehr/hl7engine/internal/platform/forward"
	"github.com/ehr/hl7engine/internal/platform/hl7v2"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/mllp"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/validation"
	"github.com/ehr/hl7engine/internal/platform/middleware"
	"github.com/ehr/hl7engine/internal/platform/telemetry"
	"github.com/ehr/hl7engine/internal/platform/webhook"
	"github.com/ehr/hl7engine/internal/platform/websocket"
)

const er7ContentType = "x-application/hl7-v2+er7"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MLLP listener and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()
			return a.run(ctx)
		},
	}
}

// app holds everything serve starts.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	telemetry  *telemetry.Provider
	pool       *pgxpool.Pool
	watcher    *schema.Watcher
	publisher  forward.Publisher
	feed       *websocket.Hub
	messages   *messagelog.Service
	processor  *hl7v2.Processor
	mllp       *mllp.Server
	echo       *echo.Echo
	shutdownIn time.Duration
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, shutdownIn: 10 * time.Second}
	built := false
	defer func() {
		if !built {
			a.close()
		}
	}()

	var err error
	a.telemetry, err = telemetry.New(ctx, telemetry.Config{
		ServiceName:    "hl7-engine",
		ServiceVersion: serviceVersion,
		OTLPEndpoint:   cfg.OTELEndpoint,
		TracingEnabled: telemetry.BoolPtr(cfg.OTELEndpoint != ""),
		Environment:    cfg.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	registry, err := schema.NewRegistry(logger)
	if err != nil {
		return nil, err
	}
	if cfg.HL7SchemaDir != "" {
		a.watcher, err = schema.NewWatcher(registry, cfg.HL7SchemaDir, logger)
		if err != nil {
			return nil, err
		}
		a.watcher.OnReload(a.telemetry.Metrics().SchemaReloaded)
		if err := a.watcher.Start(ctx); err != nil {
			return nil, fmt.Errorf("load schema dir %s: %w", cfg.HL7SchemaDir, err)
		}
	}

	unexpected, err := cfg.UnexpectedSegments()
	if err != nil {
		return nil, err
	}
	p := parser.New(registry, parser.Options{
		DefaultVersion:     cfg.HL7DefaultVersion,
		StrictVersion:      cfg.HL7StrictVersion,
		UnexpectedSegments: unexpected,
		Logger:             logger,
	})
	ack := hl7v2.NewAcknowledger(registry, cfg.HL7DefaultVersion)
	builder, err := hl7v2.NewBuilder(registry, cfg.HL7DefaultVersion)
	if err != nil {
		return nil, err
	}

	repo, err := a.messageRepo(ctx)
	if err != nil {
		return nil, err
	}
	a.messages = messagelog.NewService(repo, logger)

	a.feed = websocket.NewHub(logger)
	a.publisher, err = newPublisher(cfg, a.feed, a.telemetry.Metrics(), logger)
	if err != nil {
		return nil, err
	}

	a.processor = hl7v2.NewProcessor(p, ack, hl7v2.ProcessorOptions{
		Validate:   cfg.HL7Validate,
		Validation: validation.Options{},
		Journal:    a.messages,
		Publisher:  a.publisher,
		Metrics:    a.telemetry.Metrics(),
		Logger:     logger,
	})

	a.mllp = mllp.NewServer(mllp.Config{
		Addr:           cfg.MLLPAddr,
		MaxMessageSize: cfg.MLLPMaxMessageSize,
		ReadTimeout:    cfg.MLLPReadTimeout,
	}, a.processor, logger, a.telemetry.Metrics())

	a.echo = a.router(hl7v2.NewHandler(p, builder, ack, validation.Options{}))
	built = true
	return a, nil
}

// messageRepo connects to Postgres and applies the message log migrations,
// or keeps the log in memory when no database is configured.
func (a *app) messageRepo(ctx context.Context) (messagelog.Repository, error) {
	if a.cfg.DatabaseURL == "" {
		a.logger.Warn().Msg("DATABASE_URL not set, message log is kept in memory")
		return messagelog.NewMemoryRepo(0), nil
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      a.cfg.DatabaseURL,
		MaxConns: a.cfg.DBMaxConns,
		MinConns: a.cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.pool = pool
	a.logger.Info().Msg("connected to database")

	n, err := messagelog.NewMigrator(pool).Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("message log migrations: %w", err)
	}
	if n > 0 {
		a.logger.Info().Int("count", n).Msg("applied message log migrations")
	}
	return messagelog.NewRepoPG(pool), nil
}

// newPublisher fans accepted messages out to the live feed and to the
// configured brokers. The webhook retries for a long time, so it is fed
// from a queue.
func newPublisher(cfg *config.Config, feed *websocket.Hub, metrics *telemetry.Metrics, logger zerolog.Logger) (forward.Publisher, error) {
	sinks := forward.Multi{feed}
	if len(cfg.KafkaBrokers) > 0 {
		k, err := forward.NewKafka(forward.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, logger)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, k)
	}
	if cfg.AMQPURL != "" {
		q, err := forward.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue, logger)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, q)
	}
	if cfg.WebhookURL != "" {
		w, err := webhook.New(webhook.Config{URL: cfg.WebhookURL, Secret: cfg.WebhookSecret}, logger)
		if err != nil {
			sinks.Close()
			return nil, err
		}
		sinks = append(sinks, forward.NewAsync(w, forward.AsyncConfig{
			Name: "webhook",
			OnError: func(name string, _ forward.Event, _ error) {
				metrics.ForwardFailed(name)
			},
		}, logger))
	}
	return sinks, nil
}

func (a *app) router(h *hl7v2.Handler) *echo.Echo {
	cfg := a.cfg
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", cfg.MLLPMaxMessageSize)))
	e.Use(middleware.RequestTimeout(30*time.Second, "/metrics", "/api/v1/messages/stream"))
	e.Use(a.telemetry.TracingMiddleware())
	e.Use(a.telemetry.MetricsMiddleware())

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": serviceVersion,
			"mllp":    a.mllp.Addr(),
		})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool))
	} else {
		e.GET("/health/db", db.HealthHandler(nil))
	}
	e.GET("/metrics", a.telemetry.PrometheusHandler())

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	integration := apiV1.Group("", auth.RequireRole(auth.RoleIntegration))
	h.RegisterRoutes(integration)
	integration.POST("/hl7v2/messages", a.ingest)

	messagelog.NewHandler(a.messages).RegisterRoutes(apiV1)
	websocket.NewHandler(a.feed, cfg.CORSOrigins).RegisterRoutes(apiV1)
	return e
}

// ingest runs an ER7 request body through the same pipeline as the MLLP
// listener and answers with the acknowledgment.
func (a *app) ingest(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty message body")
	}
	res, err := a.processor.Process(c.Request().Context(), string(body))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if res.ACK == "" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Blob(http.StatusOK, er7ContentType, []byte(res.ACK))
}

// run serves MLLP and HTTP until ctx is cancelled or either listener fails,
// then shuts both down.
func (a *app) run(ctx context.Context) error {
	if err := a.mllp.Listen(); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.mllp.Serve(); err != nil && !errors.Is(err, mllp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		addr := ":" + a.cfg.Port
		a.logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownIn)
		defer cancel()
		var errs []error
		if err := a.mllp.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("mllp shutdown: %w", err))
		}
		if err := a.echo.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info().Msg("server stopped")
	return nil
}

// close releases what newApp opened. It is safe on a partly built app.
func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("closing publishers")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Error().Err(err).Msg("flushing traces")
		}
	}
}
