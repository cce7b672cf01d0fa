package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"udaan_go/config"
	"udaan_go/controllers"
	"udaan_go/database"
	"udaan_go/database/seeders"
	"udaan_go/middleware"
	"udaan_go/routes"
	"udaan_go/services"
	"udaan_go/utils"
)

const version = "1.0.0"

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	setupLogging(cfg)

	store, conns, err := database.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open record store")
	}
	defer conns.Close()

	ctx := context.Background()
	svc := services.NewContainer(ctx, cfg, store, conns)

	if cfg.SeedDemoData {
		if err := seeders.SeedAll(ctx, seeders.Services{Students: svc.Students, Teachers: svc.Teachers, Fees: svc.Fees}); err != nil {
			logrus.WithError(err).Error("Demo data seeding failed")
		}
	}

	go svc.Hub.Run()

	stopNotif := make(chan struct{})
	if svc.Notifications != nil && cfg.UseRedisNotifications {
		svc.Notifications.StartWorker(stopNotif)
	}

	scheduler := services.NewScheduler(services.ScheduleConfig{
		BackupCron:          cfg.BackupCron,
		DefaulterDigestCron: cfg.DefaulterDigestCron,
	}, svc.Backups, svc.Fees, svc.Dashboard, svc.ActivityLogs, svc.Notifier(), svc.Hub)
	if err := scheduler.Start(); err != nil {
		logrus.WithError(err).Fatal("Failed to start scheduler")
	}

	passwordHash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to hash admin password")
	}

	var blacklist middleware.TokenBlacklist
	if conns.Redis != nil {
		blacklist = middleware.NewRedisBlacklist(conns.Redis)
	}

	health := services.NewHealthService("", version, services.HealthDeps{
		Store:       store,
		StoreDriver: cfg.StoreDriver,
		DB:          conns.DB,
		Redis:       conns.Redis,
		Environment: cfg.AppEnv,
		Flags: services.HealthFlags{
			SkipMigrate:           cfg.SkipMigrate,
			UseRedisNotifications: cfg.UseRedisNotifications,
			BackupsEnabled:        svc.Backups.Enabled(),
			LineEnabled:           svc.Line != nil,
			AIEnabled:             cfg.GeminiAPIKey != "",
		},
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    int(cfg.MaxFileSize),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.LoggerMiddleware())

	routes.SetupRoutes(app, svc, routes.Options{
		Auth: controllers.AuthConfig{
			AdminUsername:     cfg.AdminUsername,
			AdminPasswordHash: passwordHash,
			JWTSecret:         cfg.JWTSecret,
			JWTExpiresIn:      cfg.JWTExpiresIn,
		},
		Blacklist:  blacklist,
		Health:     health,
		LineSecret: cfg.LineChannelSecret,
	})

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logrus.Info("Shutting down server...")

		scheduler.Stop()
		close(stopNotif)
		svc.Hub.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("Server shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"environment": cfg.AppEnv,
		"store":       cfg.StoreDriver,
		"version":     version,
	}).Info("Udaan School API starting")

	if err := app.Listen(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

// setupLogging configures the logging system
func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.AppEnv == "development" || cfg.LogFile == "" {
		logrus.SetOutput(os.Stdout)
		return
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		logrus.WithError(err).Warn("Could not create logs directory")
		return
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logrus.SetOutput(file)
	}
}

// customErrorHandler handles errors no controller turned into a response
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
