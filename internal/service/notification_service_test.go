package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/peer-tutoring-api/internal/models"
	"github.com/noah-isme/peer-tutoring-api/pkg/config"
)

func reminderFixtures(t *testing.T) (models.Booking, models.Tutor) {
	t.Helper()
	start, err := models.ParseTimeOfDay("15:00")
	require.NoError(t, err)
	end, err := models.ParseTimeOfDay("15:30")
	require.NoError(t, err)

	booking := models.Booking{
		ID:           "bk-1",
		SubjectID:    "subj-1",
		TutorID:      "tutor-1",
		StudentName:  "Jordan",
		StudentPhone: "555-123-4567",
		SessionDate:  mustServiceDate(t, "2026-03-02"),
		StartTime:    start,
		EndTime:      end,
		Status:       models.BookingStatusConfirmed,
	}
	tutor := models.Tutor{ID: "tutor-1", Name: "Alex", Phone: "5559876543", Active: true}
	return booking, tutor
}

func mustServiceDate(t *testing.T, value string) models.Date {
	t.Helper()
	d, err := models.ParseDate(value)
	require.NoError(t, err)
	return d
}

func TestNotificationServiceSendReminderPostsForm(t *testing.T) {
	var got []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = append(got, map[string]string{
			"phone":   r.PostFormValue("phone"),
			"message": r.PostFormValue("message"),
			"sender":  r.PostFormValue("sender"),
			"key":     r.PostFormValue("key"),
		})
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	svc := NewNotificationService(config.NotificationConfig{
		TextbeltURL:    srv.URL,
		TextbeltAPIKey: "test-key",
		Sender:         "PVHS Peer Tutoring",
		Timeout:        time.Second,
	}, nil, time.UTC)

	booking, tutor := reminderFixtures(t)
	require.NoError(t, svc.SendReminder(context.Background(), booking, tutor, "Algebra II"))

	require.Len(t, got, 2)
	assert.Equal(t, "+15551234567", got[0]["phone"])
	assert.Contains(t, got[0]["message"], "Alex")
	assert.Contains(t, got[0]["message"], "3:00 PM")
	assert.Equal(t, "test-key", got[0]["key"])
	assert.Equal(t, "+15559876543", got[1]["phone"])
	assert.Contains(t, got[1]["message"], "Jordan")
	assert.Contains(t, got[1]["message"], "Algebra II")
}

func TestNotificationServiceSendReminderGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"out of quota"}`))
	}))
	defer srv.Close()

	svc := NewNotificationService(config.NotificationConfig{
		TextbeltURL:    srv.URL,
		TextbeltAPIKey: "test-key",
		Sender:         "PVHS Peer Tutoring",
		Timeout:        time.Second,
	}, nil, time.UTC)

	booking, tutor := reminderFixtures(t)
	err := svc.SendReminder(context.Background(), booking, tutor, "Algebra II")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of quota")
}

func TestNotificationServiceNoAPIKeyIsNoOp(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	svc := NewNotificationService(config.NotificationConfig{
		TextbeltURL: srv.URL,
		Sender:      "PVHS Peer Tutoring",
		Timeout:     time.Second,
	}, nil, time.UTC)

	booking, tutor := reminderFixtures(t)
	require.NoError(t, svc.SendReminder(context.Background(), booking, tutor, "Algebra II"))
	assert.Zero(t, hits)
}
