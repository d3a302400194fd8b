package main

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ipeterlow/labdopingv2/internal/handler"
	"github.com/ipeterlow/labdopingv2/internal/middleware"
	"github.com/ipeterlow/labdopingv2/internal/model"
	"github.com/ipeterlow/labdopingv2/internal/policy"
	"github.com/ipeterlow/labdopingv2/internal/storage"
	"github.com/ipeterlow/labdopingv2/pkg/config"
	"github.com/ipeterlow/labdopingv2/pkg/database"
	"github.com/ipeterlow/labdopingv2/pkg/jwtutil"
	"github.com/ipeterlow/labdopingv2/pkg/logger"
	"github.com/ipeterlow/labdopingv2/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting labsample service...", zap.String("environment", cfg.Server.Env))

	// Initialize JWT utilities
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utilities initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize database and run migrations
	if _, err := database.InitDB(&cfg.Database); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(
		&model.Company{},
		&model.Sample{},
		&model.CharacteristicSample{},
		&model.Document{},
		&model.User{},
		&model.Role{},
		&model.Permission{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := policy.Seed(database.GetDB()); err != nil {
		log.Fatal("Failed to seed permissions", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_host", cfg.Database.Host),
		zap.String("db_name", cfg.Database.Name))

	// Initialize document blob storage
	store, err := storage.Open(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal("Failed to initialize blob storage", zap.Error(err))
	}
	log.Info("Blob storage initialized", zap.String("driver", cfg.Storage.Driver))

	// Laboratory timezone used for report delivery timestamps
	labTZ, err := time.LoadLocation(cfg.Lab.Timezone)
	if err != nil {
		log.Fatal("Invalid lab timezone", zap.String("timezone", cfg.Lab.Timezone), zap.Error(err))
	}

	handler.Init(store, labTZ)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := c.Response().Status

			log := logger.FromContext(c)
			log.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Float64("duration_s", duration),
				zap.String("ip", c.RealIP()),
			)

			prometheus.HttpRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()

			prometheus.HttpRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Observe(duration)

			return err
		}
	})

	// Public routes that don't require authentication
	e.GET("/", handler.HealthCheck)
	e.GET("/health", handler.HealthCheck)
	e.POST("/api/login", handler.Login)

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API routes that require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Sample intake and workflow
	api.GET("/dopingsample", handler.ListReceptions, middleware.RequirePermission("dopingsample.index"))
	api.POST("/dopingsample", handler.CreateReception, middleware.RequirePermission("dopingsample.create"))
	api.GET("/dopingsample/:receptionId", handler.GetReceptionGroup, middleware.RequirePermission("dopingsample.show"))
	api.PUT("/dopingsample/:receptionId", handler.UpdateReceptionGroup, middleware.RequirePermission("dopingsample.edit"))
	api.GET("/dopingsample/:receptionId/receipt", handler.ReceptionReceipt, middleware.RequirePermission("dopingsample.show"))
	api.PUT("/dopingsample/status/:id", handler.UpdateSampleStatus, middleware.RequirePermission("dopingsample.edit"))
	api.DELETE("/dopingsample/:id", handler.DeleteSample, middleware.RequirePermission("dopingsample.destroy"))

	// Report documents
	api.POST("/reportsample/informe", handler.UploadInforme, middleware.RequirePermission("reportsample.create"))
	api.POST("/reportsample/cadena", handler.UploadCadenaCustodia, middleware.RequirePermission("reportsample.create"))
	api.GET("/reportsample/download/:id", handler.DownloadDocument, middleware.RequirePermission("reportsample.show"))

	// Sample listings and detail
	api.GET("/sample", handler.ListReports, middleware.RequirePermission("sample.index"))
	api.GET("/sample/:id", handler.GetSampleDetail, middleware.RequirePermission("sample.show"))
	api.GET("/dashboard", handler.Dashboard, middleware.RequirePermission("sample.index"))

	// Per-type books
	api.GET("/bookurinesample", handler.BookList(model.TypeOrina), middleware.RequirePermission("bookurinesample.index"))
	api.GET("/bookurinesample/export", handler.BookExport(model.TypeOrina), middleware.RequirePermission("bookurinesample.index"))
	api.PUT("/bookurinesample/:id", handler.UpdateCharacteristic, middleware.RequirePermission("bookurinesample.edit"))
	api.PUT("/bookurinesample/results/:id", handler.UpdateResults, middleware.RequirePermission("bookurinesample.edit"))

	api.GET("/bookhairsample", handler.BookList(model.TypePelo), middleware.RequirePermission("bookhairsample.index"))
	api.GET("/bookhairsample/export", handler.BookExport(model.TypePelo), middleware.RequirePermission("bookhairsample.index"))
	api.PUT("/bookhairsample/:id", handler.UpdateCharacteristic, middleware.RequirePermission("bookhairsample.edit"))
	api.PUT("/bookhairsample/results/:id", handler.UpdateResults, middleware.RequirePermission("bookhairsample.edit"))

	api.GET("/booksalivasample", handler.BookList(model.TypeSaliva), middleware.RequirePermission("booksalivasample.index"))
	api.GET("/booksalivasample/export", handler.BookExport(model.TypeSaliva), middleware.RequirePermission("booksalivasample.index"))
	api.PUT("/booksalivasample/:id", handler.UpdateCharacteristic, middleware.RequirePermission("booksalivasample.edit"))
	api.PUT("/booksalivasample/results/:id", handler.UpdateResults, middleware.RequirePermission("booksalivasample.edit"))

	// Client companies
	api.GET("/company", handler.ListCompanies, middleware.RequirePermission("company.index"))
	api.POST("/company", handler.CreateCompany, middleware.RequirePermission("company.create"))
	api.GET("/company/:id", handler.GetCompany, middleware.RequirePermission("company.show"))
	api.PUT("/company/:id", handler.UpdateCompany, middleware.RequirePermission("company.edit"))
	api.DELETE("/company/:id", handler.DeleteCompany, middleware.RequirePermission("company.destroy"))

	// User, role and permission administration
	api.GET("/users", handler.ListUsers, middleware.RequirePermission("users.index"))
	api.POST("/users", handler.CreateUser, middleware.RequirePermission("users.create"))
	api.GET("/users/:id", handler.GetUser, middleware.RequirePermission("users.show"))
	api.PUT("/users/:id", handler.UpdateUser, middleware.RequirePermission("users.edit"))
	api.DELETE("/users/:id", handler.DeleteUser, middleware.RequirePermission("users.destroy"))

	api.GET("/roles", handler.ListRoles, middleware.RequirePermission("roles.index"))
	api.POST("/roles", handler.CreateRole, middleware.RequirePermission("roles.create"))
	api.GET("/roles/:id", handler.GetRole, middleware.RequirePermission("roles.show"))
	api.PUT("/roles/:id", handler.UpdateRole, middleware.RequirePermission("roles.edit"))
	api.DELETE("/roles/:id", handler.DeleteRole, middleware.RequirePermission("roles.destroy"))

	api.GET("/permissions", handler.ListPermissions, middleware.RequirePermission("permissions.index"))

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
