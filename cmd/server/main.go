// Command server runs the RUConnect daemon: local authentication,
// client registration with RUC validation, the Bluetooth peripheral
// link and its WebSocket event stream.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"ruconnect/internal/audit"
	"ruconnect/internal/auth"
	"ruconnect/internal/auth/device"
	authhandler "ruconnect/internal/auth/handler"
	"ruconnect/internal/auth/revocation"
	"ruconnect/internal/bluetooth"
	bthandler "ruconnect/internal/bluetooth/handler"
	"ruconnect/internal/client"
	clienthandler "ruconnect/internal/client/handler"
	jwttoken "ruconnect/internal/jwt_token"
	"ruconnect/internal/platform/config"
	"ruconnect/internal/platform/httpserver"
	"ruconnect/internal/platform/logger"
	"ruconnect/internal/platform/metrics"
	"ruconnect/internal/platform/migrate"
	"ruconnect/internal/platform/postgres"
	redisplatform "ruconnect/internal/platform/redis"
	httptransport "ruconnect/internal/transport/http"
	"ruconnect/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Persistence. The memory driver keeps the daemon self-contained;
	// postgres migrates on startup and persists across restarts.
	var (
		userStore    auth.UserStore
		sessionStore auth.SessionStore
		clientStore  client.Store
		auditStore   audit.Store

		pool  *pgxpool.Pool
		sqlDB *sql.DB
	)
	switch cfg.Store.Driver {
	case "postgres":
		var err error
		pool, err = postgres.NewPool(ctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrate.Up(ctx, pool, log); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}

		// The audit store speaks database/sql; bridge it onto the same
		// pool. The handle stays open for the process lifetime.
		sqlDB = stdlib.OpenDBFromPool(pool)
		defer sqlDB.Close()

		userStore = auth.NewPostgresUserStore(pool)
		sessionStore = auth.NewPostgresSessionStore(pool)
		clientStore = client.NewPostgresStore(pool)
		auditStore = audit.NewPostgresStore(sqlDB)
	default:
		userStore = auth.NewInMemoryUserStore()
		sessionStore = auth.NewInMemorySessionStore()
		clientStore = client.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}

	// Redis is the preferred revocation backend. Without it the postgres
	// driver keeps the list in the database; the memory driver keeps it
	// in process memory, where it empties on restart.
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	var (
		trl   revocation.TokenRevocationList
		pgTRL *revocation.PostgresTRL
	)
	switch {
	case redisClient != nil:
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
		log.Info("token revocation list backed by redis")
	case sqlDB != nil:
		pgTRL = revocation.NewPostgresTRL(sqlDB)
		trl = pgTRL
		log.Info("token revocation list backed by postgres")
	default:
		trl = revocation.NewInMemoryTRL()
		log.Info("token revocation list running in memory")
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)
	jwtValidator := jwttoken.NewJWTServiceAdapter(jwtService)

	// Audit pipeline: non-blocking publisher, single worker, optional
	// Kafka mirror.
	publisher := audit.NewPublisher(cfg.Audit.Buffer, m, log)
	var sink audit.Sink
	var kafkaSink *audit.KafkaSink
	if len(cfg.Audit.Brokers) > 0 {
		kafkaSink, err = audit.NewKafkaSink(ctx, cfg.Audit.Brokers, cfg.Audit.Topic, log)
		if err != nil {
			return fmt.Errorf("connect audit kafka sink: %w", err)
		}
		sink = kafkaSink
		log.Info("audit events mirrored to kafka", "topic", cfg.Audit.Topic)
	}
	worker := audit.NewWorker(auditStore, publisher.Inbox(), sink, log)

	authService := auth.NewService(
		userStore,
		sessionStore,
		trl,
		jwtService,
		device.NewService(cfg.Auth.DeviceBinding),
		publisher,
		m,
		log,
		cfg.Auth,
	)
	clientService := client.NewService(clientStore, publisher, m, log)
	auditService := audit.NewService(auditStore)

	authHandler := authhandler.New(authService, log)
	clientHandler := clienthandler.New(clientService, log)

	deps := httptransport.Deps{
		Logger:  log,
		Metrics: m,
		Public: []httptransport.PublicHandler{
			authHandler,
			httptransport.NewValidationHandler(m, log),
		},
		Protected: []httptransport.FeatureHandler{
			authHandler,
			clientHandler,
			httptransport.NewAuditHandler(auditService, log),
		},
		JWTValidator:      jwtValidator,
		RevocationChecker: trl,
	}

	if pool != nil {
		deps.Health = append(deps.Health, httptransport.HealthChecker{
			Name:  "postgres",
			Check: pool.Ping,
		})
	}
	if redisClient != nil {
		deps.Health = append(deps.Health, httptransport.HealthChecker{
			Name:  "redis",
			Check: redisClient.Health,
		})
	}

	// The Bluetooth link is optional so the daemon can run on hosts
	// without an adapter.
	var (
		manager *bluetooth.Manager
		hub     *ws.Hub
	)
	if cfg.Bluetooth.Enabled {
		manager, err = bluetooth.NewManager(bluetooth.NewAdapter(log), cfg.Bluetooth, m, log)
		if err != nil {
			return fmt.Errorf("initialize bluetooth manager: %w", err)
		}
		hub = ws.NewHub(m, log)
		deps.Protected = append(deps.Protected, bthandler.New(manager, log))
		deps.EventStream = hub.HandleEvents
	} else {
		log.Info("bluetooth disabled by configuration")
	}

	srv := httpserver.New(cfg.Server, httptransport.New(deps))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("audit worker: %w", err)
		}
		return nil
	})

	// Redis entries expire on their own; the postgres list needs a
	// periodic sweep.
	if pgTRL != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					pruned, err := pgTRL.DeleteExpired(gctx)
					if err != nil {
						log.Error("failed to prune expired token revocations", "error", err)
						continue
					}
					if pruned > 0 {
						log.Info("pruned expired token revocations", "count", pruned)
					}
				}
			}
		})
	}

	if hub != nil {
		g.Go(func() error {
			if err := hub.Run(gctx, manager.Events()); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event hub: %w", err)
			}
			return nil
		})
	}

	err = g.Wait()

	if kafkaSink != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if closeErr := kafkaSink.Close(flushCtx); closeErr != nil {
			log.Error("failed to flush audit kafka sink", "error", closeErr)
		}
	}

	if err != nil {
		return err
	}
	log.Info("daemon stopped")
	return nil
}
