package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
	"github.com/noah-isme/peer-tutoring-api/pkg/jobs"
)

// smsPayload is the unit of work queued for asynchronous delivery.
type smsPayload struct {
	Phone   string
	Message string
}

// NotificationService delivers SMS through the Textbelt gateway. Without an
// API key every send degrades to a logged no-op that still succeeds, so
// booking and cancellation flows never fail or block on delivery.
type NotificationService struct {
	cfg    config.NotificationConfig
	client *http.Client
	logger *zap.Logger
	queue  *jobs.Queue
	loc    *time.Location
}

// NewNotificationService constructs the service and its delivery queue.
func NewNotificationService(cfg config.NotificationConfig, logger *zap.Logger, loc *time.Location) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &NotificationService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		loc:    loc,
	}
	s.queue = jobs.NewQueue("sms", s.handleJob, jobs.QueueConfig{Logger: logger})
	return s
}

// Start begins asynchronous delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// QueueBookingConfirmation texts the student and the tutor about a new
// booking. Enqueue failures are logged, never propagated.
func (s *NotificationService) QueueBookingConfirmation(booking models.Booking, tutor models.Tutor, subjectName string) {
	label := s.slotLabel(booking)
	tutorPhone := smsPhone(tutor.Phone)

	s.enqueue(booking.StudentPhone, fmt.Sprintf(
		"%s: You're booked for %s on %s with %s. Tutor contact: %s. If you need to cancel, please text your tutor.",
		s.cfg.Sender, subjectName, label, tutor.Name, tutorPhone,
	))
	s.enqueue(tutor.Phone, fmt.Sprintf(
		"%s: You have been booked for %s with %s for %s. Visit the tutor portal if you need to cancel.",
		s.cfg.Sender, label, booking.StudentName, subjectName,
	))
}

// QueueCancellationNotice texts the student that their session was cancelled.
func (s *NotificationService) QueueCancellationNotice(booking models.Booking, tutor models.Tutor) {
	s.enqueue(booking.StudentPhone, fmt.Sprintf(
		"%s: Tutor %s has canceled your session on %s. Please book another time.",
		s.cfg.Sender, tutor.Name, s.slotLabel(booking),
	))
}

// SendReminder synchronously texts both parties about a session starting
// within the reminder horizon. Used by the reminder dispatch CLI.
func (s *NotificationService) SendReminder(ctx context.Context, booking models.Booking, tutor models.Tutor, subjectName string) error {
	timeLabel := booking.StartTime.Label()

	if err := s.send(ctx, booking.StudentPhone, fmt.Sprintf(
		"Reminder: You have a tutoring session with %s tomorrow at %s.", tutor.Name, timeLabel,
	)); err != nil {
		return err
	}
	return s.send(ctx, tutor.Phone, fmt.Sprintf(
		"Reminder: You have a tutoring session with %s tomorrow at %s for %s.", booking.StudentName, timeLabel, subjectName,
	))
}

func (s *NotificationService) enqueue(phone, message string) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "sms",
		Payload: smsPayload{Phone: phone, Message: message},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue sms", zap.Error(err))
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(smsPayload)
	if !ok {
		s.logger.Error("unexpected sms job payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.send(ctx, payload.Phone, payload.Message)
}

func (s *NotificationService) send(ctx context.Context, phone, message string) error {
	target := smsPhone(phone)

	if s.cfg.TextbeltAPIKey == "" {
		s.logger.Info("sms skipped, no api key configured", zap.String("phone", target))
		return nil
	}

	form := url.Values{}
	form.Set("phone", target)
	form.Set("message", message)
	form.Set("sender", s.cfg.Sender)
	form.Set("key", s.cfg.TextbeltAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TextbeltURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("sms gateway reported failure: %s", result.Error)
	}

	s.logger.Info("sms sent", zap.String("phone", target))
	return nil
}

// slotLabel renders "Monday, March 2 at 3:00 PM" in the booking timezone.
func (s *NotificationService) slotLabel(booking models.Booking) string {
	start := booking.StartTime.On(booking.SessionDate.Time, s.loc)
	return start.Format("Monday, January 2 at 3:04 PM")
}
