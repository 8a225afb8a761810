package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"ticket-maintenance/config"
	"ticket-maintenance/internal/handlers"
	"ticket-maintenance/internal/identity"
	"ticket-maintenance/internal/notify"
	"ticket-maintenance/internal/services"
	"ticket-maintenance/internal/store"
	_ "ticket-maintenance/migrations"
	"ticket-maintenance/monitoring"
	"ticket-maintenance/pkg/logger"
	"ticket-maintenance/security"
	"ticket-maintenance/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	l := logger.InitializeZapLogger(logger.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})
	defer l.Sync()

	if missing := cfg.Missing(); len(missing) > 0 {
		l.Warnf(context.Background(), "Passes needing these settings will fail: %v", missing)
	}

	var monitor *monitoring.Monitor
	if cfg.Monitoring.EnableMetrics {
		monitor = monitoring.NewMonitor(prometheus.DefaultRegisterer)
	}

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	app.RootCmd.AddCommand(reconcileCommand(app, cfg, l, monitor))

	var redisClient *redis.Client

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		maintenance, client, err := newMaintenance(app, cfg, l, monitor, cfg.Maintenance.DryRun)
		if err != nil {
			return err
		}
		redisClient = client

		maintenanceHandler := handlers.NewMaintenanceHandler(maintenance, l)

		// Maintenance endpoints
		runRoute := e.Router.POST("/api/v1/maintenance/run", maintenanceHandler.RunMaintenance).
			Bind(apis.RequireSuperuserAuth())
		if client != nil {
			limiter := security.NewRateLimiter(client, cfg.Maintenance.TriggerLimit, cfg.Maintenance.TriggerWindow)
			runRoute.Bind(limiter.TriggerRateLimit())
		}
		e.Router.GET("/api/v1/maintenance/report", maintenanceHandler.GetLastReport).
			Bind(apis.RequireSuperuserAuth())

		if monitor != nil {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if redisClient != nil {
				if err := utils.RedisHealthCheck(redisClient); err != nil {
					return e.JSON(503, map[string]string{
						"status": "unhealthy",
						"error":  err.Error(),
					})
				}
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		if cfg.Maintenance.Schedule != "" {
			app.Cron().MustAdd("maintenance", cfg.Maintenance.Schedule, func() {
				ctx := context.Background()
				if _, err := maintenance.Run(ctx); err != nil {
					l.Errorf(ctx, "Scheduled maintenance failed: %v", err)
				}
			})
			l.Infof(context.Background(), "Maintenance scheduled: %s", cfg.Maintenance.Schedule)
		}

		l.Info(context.Background(), "Server routes registered")

		return e.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return e.Next()
	})

	return app.Start()
}

func reconcileCommand(app *pocketbase.PocketBase, cfg *config.Config, l logger.Logger, monitor *monitoring.Monitor) *cobra.Command {
	var dryRun bool

	command := &cobra.Command{
		Use:   "reconcile",
		Short: "Runs the daily maintenance passes once and exits",
		RunE: func(command *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			maintenance, client, err := newMaintenance(app, cfg, l, monitor, dryRun || cfg.Maintenance.DryRun)
			if err != nil {
				return err
			}
			if client != nil {
				defer client.Close()
			}

			report, err := maintenance.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(command.OutOrStdout(), report.Summary())

			if !report.Healthy() {
				return fmt.Errorf("maintenance run %s finished with failures", report.RunID)
			}
			return nil
		},
	}

	command.Flags().BoolVar(&dryRun, "dry-run", false, "classify and log without writing anything")

	return command
}

// newMaintenance wires the store decorators, the account service and the
// optional run lock, notifier and metrics. The returned client is nil when no
// Redis URL is configured.
func newMaintenance(app core.App, cfg *config.Config, l logger.Logger, monitor *monitoring.Monitor, dryRun bool) (*services.MaintenanceService, *redis.Client, error) {
	var st store.DocumentStore = store.NewBreakerStore(
		store.NewPocketBaseStore(app, cfg.DatabaseID),
		utils.NewCircuitBreaker("store", uint32(cfg.Maintenance.BreakerThreshold), cfg.Maintenance.BreakerCooldown),
	)

	var accounts identity.AccountService = identity.NewPocketBaseAccounts(app, cfg.Identity.UsersCollection)
	if dryRun {
		st = store.NewDryRunStore(st, l)
		accounts = identity.NewDryRunAccounts(l)
	}

	opts := []services.Option{services.WithDryRun(dryRun)}

	var client *redis.Client
	if cfg.Redis.URL != "" {
		var err error
		client, err = utils.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect run lock backend: %w", err)
		}
		opts = append(opts, services.WithRunLock(utils.NewRunLock(client, cfg.Redis.LockKey, cfg.Redis.LockTTL)))
	}

	if cfg.PubNub.Enabled() {
		opts = append(opts, services.WithNotifier(notify.NewPubNubNotifier(cfg.PubNub)))
	}
	if monitor != nil {
		opts = append(opts, services.WithRecorder(monitor))
	}

	passes := services.DefaultPasses(st, accounts, cfg, l)
	return services.NewMaintenanceService(cfg, l, passes, opts...), client, nil
}
