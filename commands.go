package main

import (
	"fmt"
	"strings"

	"habitd/internal/api"
	"habitd/internal/auth"
	"habitd/internal/config"
	"habitd/internal/database"
	"habitd/internal/logging"
	"habitd/internal/metrics"
	"habitd/internal/push"
	"habitd/internal/store"
	"habitd/internal/tracker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "habitd",
	Short: "Daily habit progress and reminder server",
	Long: `habitd tracks four daily habits (water, sleep, exercise, nutrition),
resolves each day's targets, aggregates logged progress, schedules reminders
and records achievements. It serves a JSON API under /api.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		return serve(cfg, log)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and apply column migrations, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.Initialize(cfg.Database.Path, cfg.Database.EncryptionKey)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		applied, err := database.Migrate(db)
		if err != nil {
			return err
		}
		log.Info("Migrations complete", zap.Strings("applied", applied))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

func serve(cfg *config.Config, log *zap.Logger) error {
	db, err := database.Initialize(cfg.Database.Path, cfg.Database.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		applied, err := database.Migrate(db)
		if err != nil {
			log.Error("Migration error", zap.Error(err))
		} else {
			log.Info("Migrations applied", zap.Strings("applied", applied))
		}
	} else {
		log.Info("Migrations skipped (set RUN_MIGRATIONS=true to enable)")
	}

	tokens, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return err
	}

	st := store.New(db, log.Named("store"))
	sender := push.NewSender(cfg.Push, st, log.Named("push"))
	if !sender.Enabled() {
		log.Info("Web push not configured, achievement pushes disabled")
	}
	svc := tracker.New(st, log.Named("tracker"), tracker.WithNotifier(sender))
	defer svc.Wait()

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler(log.Named("http")),
	})
	app.Use(logger.New())
	app.Use(metrics.Middleware())

	log.Info("CORS allowed origins", zap.String("origins", cfg.Server.AllowedOrigins))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: !strings.Contains(cfg.Server.AllowedOrigins, "*"),
	}))

	api.SetupRoutes(app, api.Deps{
		Store:               st,
		Tracker:             svc,
		Tokens:              tokens,
		Push:                sender,
		Logger:              log.Named("api"),
		DefaultTimezone:     cfg.Habits.DefaultTimezone,
		DisableRegistration: cfg.Auth.DisableRegistration,
	})

	log.Info("Server starting", zap.String("port", cfg.Server.Port))
	return app.Listen(":" + cfg.Server.Port)
}
