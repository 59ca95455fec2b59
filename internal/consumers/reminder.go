package consumers

import (
	"context"
	"log/slog"
	"time"

	"tsirk/internal/external"
	"tsirk/internal/repository"
)

// VerificationReminder periodically re-notifies staff of UiTPAS codes
// that are still unverified some time after purchase, so no card holder
// shows up at the door with a code nobody activated.
type VerificationReminder struct {
	codes    *repository.AccessCodeRepository
	mailer   *external.MailClient
	interval time.Duration
	minAge   time.Duration
	done     chan struct{}
}

func NewVerificationReminder(codes *repository.AccessCodeRepository, mailer *external.MailClient,
	interval, minAge time.Duration) *VerificationReminder {
	return &VerificationReminder{
		codes:    codes,
		mailer:   mailer,
		interval: interval,
		minAge:   minAge,
		done:     make(chan struct{}),
	}
}

func (j *VerificationReminder) Start() {
	slog.Info("Starting verification reminder job", "interval", j.interval, "min_age", j.minAge)
	go j.run()
}

func (j *VerificationReminder) Stop() {
	close(j.done)
}

func (j *VerificationReminder) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.remind()
		case <-j.done:
			return
		}
	}
}

func (j *VerificationReminder) remind() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pending, err := j.codes.ListPendingVerification(ctx, time.Now().Add(-j.minAge))
	if err != nil {
		slog.Error("Failed to list pending verifications", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	items := make([]external.UitPasItem, 0, len(pending))
	for _, code := range pending {
		item := external.UitPasItem{Label: code.Label, Code: code.Code}
		if code.UitPasNumber != nil {
			item.Number = *code.UitPasNumber
		}
		items = append(items, item)
	}

	if err := j.mailer.SendVerificationRequest(ctx, "herinnering", "", items); err != nil {
		slog.Error("Failed to send verification reminder", "error", err)
		return
	}

	slog.Info("Sent verification reminder", "pending", len(items))
}
