package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Feedbird/platform-sub002/internal/activity"
	"github.com/Feedbird/platform-sub002/internal/connections"
	"github.com/Feedbird/platform-sub002/internal/handlers"
	"github.com/Feedbird/platform-sub002/internal/media"
	"github.com/Feedbird/platform-sub002/internal/notifications"
	"github.com/Feedbird/platform-sub002/internal/platforms"
	"github.com/Feedbird/platform-sub002/internal/publisher"
	"github.com/Feedbird/platform-sub002/internal/reconciler"
	"github.com/Feedbird/platform-sub002/internal/storage"
	"github.com/Feedbird/platform-sub002/internal/store"
	"github.com/Feedbird/platform-sub002/pkg/config"
	"github.com/Feedbird/platform-sub002/pkg/database"
	"github.com/Feedbird/platform-sub002/pkg/email"
	"github.com/Feedbird/platform-sub002/pkg/logging"
	"github.com/Feedbird/platform-sub002/pkg/monitoring"
	"github.com/Feedbird/platform-sub002/pkg/server"
	"github.com/Feedbird/platform-sub002/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("herald")
	config.LoadEnv(logger)

	port := config.GetEnv("PORT", "18040")

	dbConfig := database.DefaultConfig()
	dbConfig.URL = config.RequireEnv("DATABASE_URL")
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	posts := store.NewPostStore(db)
	social := store.NewSocialStore(db)
	activities := store.NewActivityStore(db)
	messages := store.NewMessageStore(db)

	s3Client, err := storage.NewS3Client(storage.S3Config{
		Bucket:    config.RequireEnv("S3_BUCKET"),
		Prefix:    config.GetEnv("S3_PREFIX", ""),
		Region:    config.GetEnv("S3_REGION", "us-east-1"),
		Endpoint:  config.GetEnv("S3_ENDPOINT", ""),
		PublicURL: config.GetEnv("MEDIA_PUBLIC_URL", ""),
		AccessKey: config.GetEnv("S3_ACCESS_KEY", ""),
		SecretKey: config.GetEnv("S3_SECRET_KEY", ""),
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize S3 client")
	}

	registry := platforms.NewRegistry()
	registry.MustRegister(platforms.NewFacebookAdapter())
	registry.MustRegister(platforms.NewLinkedInAdapter())
	registry.MustRegister(platforms.NewTikTokAdapter())

	materializer := media.NewMaterializer(s3Client, logger)
	recorder := activity.NewRecorder(activities, posts, logger)
	manager := connections.NewManager(social, registry, logger)

	dispatcher := publisher.NewDispatcher(publisher.Config{
		Posts:        posts,
		Pages:        social,
		Activities:   recorder,
		Materializer: materializer,
		Registry:     registry,
		Logger:       logger,
		PageTimeout:  config.GetEnvDuration("PUBLISH_PAGE_TIMEOUT", publisher.DefaultPageTimeout),
	})

	mailer := email.NewSender(email.Config{
		Host:     config.GetEnv("SMTP_HOST", ""),
		Port:     config.GetEnv("SMTP_PORT", "587"),
		User:     config.GetEnv("SMTP_USER", ""),
		Password: config.GetEnv("SMTP_PASSWORD", ""),
		From:     config.GetEnv("FROM_EMAIL", "noreply@feedbird.com"),
		FromName: config.GetEnv("FROM_NAME", "Feedbird"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver := reconciler.NewDriver(posts, config.GetEnvDuration("RECONCILE_INTERVAL", time.Minute), logger)
	go driver.Start(ctx)

	if config.GetEnvBool("DIGEST_ENABLED", true) {
		digester := notifications.NewDigester(
			messages,
			mailer,
			config.GetEnvDuration("DIGEST_UNREAD_AFTER", 30*time.Minute),
			config.GetEnvDuration("DIGEST_INTERVAL", 10*time.Minute),
			logger,
		)
		go digester.Start(ctx)
	}

	healthChecker := monitoring.NewHealthChecker("herald", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("herald", version.Version, version.GitCommit)

	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("storage", monitoring.StorageHealthCheck(s3Client))

	publishMetrics := &handlers.PublishMetrics{
		PublishRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herald_publish_requests_total",
			Help: "Publish requests by outcome",
		}, []string{"outcome"}),
		ConnectionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herald_connection_requests_total",
			Help: "Connection lifecycle requests by operation and outcome",
		}, []string{"operation", "outcome"}),
	}
	metricsCollector.RegisterCustomMetric("publish_requests", publishMetrics.PublishRequests)
	metricsCollector.RegisterCustomMetric("connection_requests", publishMetrics.ConnectionRequests)

	app := server.SetupServiceRouter(logger, "herald", healthChecker, metricsCollector)

	postHandler := handlers.NewPostHandler(posts, dispatcher, recorder, logger, publishMetrics)
	connectionHandler := handlers.NewConnectionHandler(manager, social, logger, publishMetrics)

	api := app.Group("/api/v1")
	{
		api.GET("/posts/:id", postHandler.GetPost)
		api.POST("/posts/:id/publish", postHandler.Publish)
		api.POST("/posts/:id/approve", postHandler.Approve)
		api.POST("/posts/:id/request-changes", postHandler.RequestChanges)
		api.POST("/posts/:id/mark-revised", postHandler.MarkRevised)
		api.GET("/posts/:id/activities", postHandler.ListActivities)

		api.POST("/accounts/:id/pages/stage", connectionHandler.StagePages)
		api.POST("/pages/:id/confirm", connectionHandler.ConfirmPage)
		api.POST("/pages/:id/disconnect", connectionHandler.DisconnectPage)
		api.POST("/pages/:id/check-status", connectionHandler.CheckPageStatus)
		api.POST("/pages/:id/sync-history", connectionHandler.SyncHistory)
		api.DELETE("/pages/:id/posts/:postId", connectionHandler.DeletePagePost)

		api.GET("/workspaces/:id/page-counts", connectionHandler.PageCounts)
	}

	serverConfig := server.DefaultConfig("herald", port)
	if err := server.Start(serverConfig, app, logger); err != nil {
		logger.Fatal(err.Error())
	}
}
