package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/gatherly/backend/internal/coordinator"
	"github.com/anonto42/gatherly/backend/internal/graph"
	"github.com/anonto42/gatherly/backend/internal/ledger"
	"github.com/anonto42/gatherly/backend/internal/metrics"
	"github.com/anonto42/gatherly/backend/internal/notify"
	"github.com/anonto42/gatherly/backend/internal/registry"
	"github.com/anonto42/gatherly/backend/internal/repositories"
	"github.com/anonto42/gatherly/backend/internal/router"
	"github.com/anonto42/gatherly/backend/pkg/config"
	"github.com/anonto42/gatherly/backend/pkg/firebase"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

var serverPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and metrics servers",
	Long: `Start the HTTP API and the Prometheus metrics endpoint.

The server will:
- Connect to PostgreSQL (or SQLite when POSTGRES_URL is unset)
- Connect to MongoDB and Redis when configured
- Rebuild the in-memory registry, graph and ledger from storage
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with configuration from the environment
  server serve

  # Start on another port with console logs
  server serve --port 3000 --log-format console`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "API port (default: 8080)")
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverPort != "" {
		cfg.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("env", cfg.Env).Msg("starting gatherly server")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	defer initCancel()

	db, err := config.InitDB(initCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrate(initCtx, db, cfg, logger); err != nil {
		return err
	}

	users := repositories.NewPostgresUserRepository(db.SQL)

	var events registry.Store
	if db.Mongo != nil {
		events = repositories.NewMongoEventRepository(db.Mongo.Database(cfg.MongoDatabase))
	} else {
		logger.Warn().Msg("MONGO_URI not set, events will not survive a restart")
	}
	g := graph.New(repositories.NewPostgresFriendshipRepository(db.SQL))
	l := ledger.New(repositories.NewPostgresNotificationRepository(db.SQL), g)

	opts := []coordinator.Option{
		coordinator.WithUserDirectory(users),
		coordinator.WithLogger(logger),
	}
	if fanout := buildNotifier(cfg, db, users, logger); fanout.Len() > 0 {
		opts = append(opts, coordinator.WithNotifier(fanout))
	}
	coord := coordinator.New(registry.New(events), g, l, opts...)
	if err := coord.Load(initCtx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	defer coord.Wait()

	deps := router.Deps{
		Coordinator: coord,
		Users:       users,
		Stores:      db,
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.JWTTTL,
		Log:         logger,
	}
	fb, err := firebase.InitFirebase(initCtx, cfg.FirebaseCredentialsPath)
	switch {
	case err == nil:
		deps.Firebase = fb.AuthClient
		logger.Info().Msg("firebase authentication enabled")
	case errors.Is(err, firebase.ErrNotConfigured):
		logger.Warn().Msg("FIREBASE_CREDENTIALS_PATH not set, firebase login disabled")
	default:
		return err
	}

	api := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(deps),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{api, metricsSrv} {
		group.Go(func() error {
			logger.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(api.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	if err := group.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// buildNotifier collects the delivery channels that are configured.
func buildNotifier(cfg *config.Config, db *config.DB, users notify.UserLookup, logger zerolog.Logger) *notify.Fanout {
	var channels []notify.Channel
	if cfg.ResendAPIKey != "" {
		channels = append(channels, notify.NewMailer(resend.NewClient(cfg.ResendAPIKey), cfg.MailFrom, users, logger))
	} else {
		logger.Warn().Msg("RESEND_API_KEY not set, email notifications disabled")
	}
	if db.Redis != nil {
		channels = append(channels, notify.NewRedisPublisher(db.Redis, "gatherly"))
	}
	return notify.NewFanout(metrics.RecordDelivery, channels...)
}
