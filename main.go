package main

import (
	"io"
	"net/http"
	"os"

	"ozon-monitor/internal/api"
	"ozon-monitor/internal/config"
	"ozon-monitor/internal/database"
	"ozon-monitor/internal/services"
	"ozon-monitor/internal/services/ozon"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found")
	}

	cfg := config.Load()
	setupLogging(cfg)

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	client := ozon.NewClient()
	prices := services.NewPriceService(db, client, cfg)
	scheduler := services.NewSchedulerService(db, prices)

	hub := api.NewHub()
	scheduler.SetTaskListener(hub.BroadcastTask)

	// Pick up the configured times on boot; later config changes come
	// through the API and restart the scheduler themselves.
	if err := scheduler.Restart(); err != nil {
		logrus.WithError(err).Fatal("failed to start scheduler")
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", hub.Serve)

	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, db, prices, scheduler, hub)

	logrus.WithField("port", cfg.Port).Info("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		logrus.SetOutput(io.MultiWriter(os.Stdout, rotated))
	}
}
