// Package scheduler runs the hourly due-card reminder job.
package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/koinebot/internal/database"
	"github.com/go-co-op/gocron"
)

// Default window outside which reminders are held back.
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Notifier sends due-card reminders to users.
type Notifier interface {
	SendReminder(userID string, dueCount int) error
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	cards     *database.CardRepository
}

// New creates a new scheduler instance
func New(notifier Notifier) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
		cards:     database.NewCardRepository(),
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.checkAndSendReminders)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func notificationWindow() (int, int) {
	startHour := DefaultNotificationStartHour
	endHour := DefaultNotificationEndHour

	if v := os.Getenv("NOTIFICATION_START_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			startHour = h
		}
	}
	if v := os.Getenv("NOTIFICATION_END_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			endHour = h
		}
	}
	return startHour, endHour
}

// checkAndSendReminders notifies every user with due cards, unless the
// current hour falls outside the notification window.
func (s *Scheduler) checkAndSendReminders() {
	currentHour := time.Now().Hour()
	startHour, endHour := notificationWindow()
	if currentHour < startHour || currentHour > endHour {
		log.Printf("Current hour %d is outside notification hours (%d-%d), skipping reminders",
			currentHour, startHour, endHour)
		return
	}

	summaries, err := s.cards.UsersWithDue(context.Background(), time.Now().UTC())
	if err != nil {
		log.Printf("Error counting due cards: %v", err)
		return
	}

	for _, summary := range summaries {
		if err := s.notifier.SendReminder(summary.UserID, summary.Count); err != nil {
			log.Printf("Error sending reminder to user %s: %v", summary.UserID, err)
		}
	}
}

// RunManualCheck forces a reminder check for a specific user.
func (s *Scheduler) RunManualCheck(ctx context.Context, userID string) error {
	due, err := s.cards.Due(ctx, userID, time.Now().UTC(), 0)
	if err != nil {
		return err
	}
	if len(due) > 0 {
		return s.notifier.SendReminder(userID, len(due))
	}
	return nil
}
