package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/noah-isme/peer-tutoring-api/internal/repository"
	"github.com/noah-isme/peer-tutoring-api/internal/service"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
	"github.com/noah-isme/peer-tutoring-api/pkg/database"
	"github.com/noah-isme/peer-tutoring-api/pkg/logger"
)

// Run from cron shortly after the booking cutoff each evening. The sweep is
// idempotent: reminded bookings are stamped and skipped on re-runs.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		loc = time.UTC
	}

	bookingRepo := repository.NewBookingRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(cfg.Notifications, logr, loc)
	reminderSvc := service.NewReminderService(bookingRepo, tutorRepo, subjectRepo, notificationSvc, metricsSvc, loc, logr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, err := reminderSvc.Run(ctx, time.Now())
	if err != nil {
		logr.Sugar().Errorw("reminder sweep failed", "error", err)
		os.Exit(1)
	}

	logr.Sugar().Infow("reminder sweep finished", "sent", sent)
}
