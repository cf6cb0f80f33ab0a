package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/peer-tutoring-api/api/swagger"
	"github.com/noah-isme/peer-tutoring-api/internal/handler"
	"github.com/noah-isme/peer-tutoring-api/internal/middleware"
	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/internal/repository"
	"github.com/noah-isme/peer-tutoring-api/internal/service"
	"github.com/noah-isme/peer-tutoring-api/pkg/cache"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
	"github.com/noah-isme/peer-tutoring-api/pkg/database"
	"github.com/noah-isme/peer-tutoring-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/peer-tutoring-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/peer-tutoring-api/pkg/middleware/requestid"
)

// @title Peer Tutoring API
// @version 1.0.0
// @description Scheduling backend for a high-school peer tutoring program
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, availability caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		logr.Sugar().Warnw("unknown booking timezone, falling back to UTC", "timezone", cfg.Booking.Timezone)
		loc = time.UTC
	}

	validate := validator.New()

	subjectRepo := repository.NewSubjectRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(cfg.Notifications, logr, loc)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(tutorRepo, cfg.JWT, cfg.Admin, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	tutorSvc := service.NewTutorService(tutorRepo, availabilityRepo, cfg.Booking, validate, logr)
	availabilitySvc := service.NewAvailabilityService(subjectRepo, tutorRepo, availabilityRepo, bookingRepo, redisClient, cfg.Booking, loc, logr)
	bookingSvc := service.NewBookingService(bookingRepo, tutorRepo, subjectRepo, availabilitySvc, notificationSvc, metricsSvc, cfg.Booking, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	tutorHandler := handler.NewTutorHandler(tutorSvc, bookingSvc)
	adminHandler := handler.NewAdminHandler(tutorSvc, bookingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/signup", authHandler.Signup)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/admin/login", authHandler.AdminLogin)

		api.GET("/subjects", subjectHandler.List)
		api.GET("/availability", availabilityHandler.Day)
		api.POST("/bookings", bookingHandler.Create)

		tutors := api.Group("/tutors/me")
		tutors.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTutor))
		{
			tutors.GET("", tutorHandler.Me)
			tutors.PUT("/subjects", tutorHandler.UpdateSubjects)
			tutors.GET("/windows", tutorHandler.ListWindows)
			tutors.POST("/windows", tutorHandler.CreateWindow)
			tutors.DELETE("/windows/:id", tutorHandler.DeleteWindow)
			tutors.GET("/blackouts", tutorHandler.ListBlackouts)
			tutors.POST("/blackouts", tutorHandler.CreateBlackout)
			tutors.DELETE("/blackouts/:id", tutorHandler.DeleteBlackout)
			tutors.GET("/bookings", tutorHandler.ListBookings)
			tutors.POST("/bookings/:id/cancel", tutorHandler.CancelBooking)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/bookings", adminHandler.ListBookings)
			admin.POST("/bookings/:id/cancel", adminHandler.CancelBooking)
			admin.GET("/tutors", adminHandler.ListTutors)
			admin.POST("/tutors/:id/deactivate", adminHandler.DeactivateTutor)
			admin.GET("/tutors/export", adminHandler.ExportRoster)
			admin.POST("/subjects", subjectHandler.Create)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
