// Package notifier fans a task-assignment message out over the configured
// channels. Channel failures are reported and logged, never escalated: a
// notification must not undo the stage transition that caused it.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Contact is the destination of a notification. Empty fields disable the
// channels that need them.
type Contact struct {
	Name  string
	Phone string
	Email string
}

// Task describes the assigned work the notification is about.
type Task struct {
	StageID     int64
	ProcessID   int64
	Name        string
	ProcessName string
}

// Outcome is one channel attempt. Err is nil on success.
type Outcome struct {
	Channel string
	Err     error
}

// EmailSender delivers a plain-text message.
type EmailSender interface {
	Send(ctx context.Context, to, subject string, bodyLines []string) error
}

// WhatsAppSender delivers a pre-approved template message.
type WhatsAppSender interface {
	SendTemplate(ctx context.Context, to string, bodyParams, buttonParams []string) error
}

// WebhookSender posts the assignment payload to an external automation hook.
type WebhookSender interface {
	Post(ctx context.Context, payload WebhookPayload) error
}

// WebhookPayload is the JSON body of a webhook delivery.
type WebhookPayload struct {
	DeliveryID string `json:"delivery_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Task       string `json:"task"`
	Process    string `json:"process,omitempty"`
	Link       string `json:"link"`
}

// Service notifies a user about newly assigned work.
type Service interface {
	NotifyTaskAssigned(ctx context.Context, contact Contact, task Task) []Outcome
}

// Fanout sends over every configured channel concurrently and aggregates the
// tagged per-channel outcomes. Nil transports and channels the contact lacks
// an address for are skipped silently.
type Fanout struct {
	email    EmailSender
	whatsapp WhatsAppSender
	webhook  WebhookSender
	baseURL  string
	logger   *slog.Logger
}

// NewFanout creates a fan-out notifier. baseURL is the public frontend
// address task links point at.
func NewFanout(email EmailSender, whatsapp WhatsAppSender, webhook WebhookSender, baseURL string, logger *slog.Logger) *Fanout {
	return &Fanout{
		email:    email,
		whatsapp: whatsapp,
		webhook:  webhook,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger.With("module", "notifier"),
	}
}

// NotifyTaskAssigned fans the assignment out over all configured channels
// and returns one outcome per attempted channel. It never returns an error:
// failures are carried in the outcomes and logged.
func (f *Fanout) NotifyTaskAssigned(ctx context.Context, contact Contact, task Task) []Outcome {
	link := fmt.Sprintf("%s/processes/%d/stages/%d", f.baseURL, task.ProcessID, task.StageID)

	type attempt struct {
		channel string
		run     func(context.Context) error
	}

	attempts := make([]attempt, 0, 3)

	if f.email != nil && contact.Email != "" {
		attempts = append(attempts, attempt{channel: "email", run: func(ctx context.Context) error {
			subject := fmt.Sprintf("New task: %s", task.Name)
			body := []string{
				fmt.Sprintf("Hello %s,", contact.Name),
				"",
				fmt.Sprintf("You have a new task: %s in process %s.", task.Name, task.ProcessName),
				link,
			}

			return f.email.Send(ctx, contact.Email, subject, body)
		}})
	}

	if f.whatsapp != nil && contact.Phone != "" {
		attempts = append(attempts, attempt{channel: "whatsapp", run: func(ctx context.Context) error {
			bodyParams := []string{contact.Name, task.Name, task.ProcessName}
			buttonParams := []string{fmt.Sprintf("processes/%d/stages/%d", task.ProcessID, task.StageID)}

			return f.whatsapp.SendTemplate(ctx, contact.Phone, bodyParams, buttonParams)
		}})
	}

	if f.webhook != nil {
		attempts = append(attempts, attempt{channel: "webhook", run: func(ctx context.Context) error {
			return f.webhook.Post(ctx, WebhookPayload{
				Name:    contact.Name,
				Phone:   contact.Phone,
				Email:   contact.Email,
				Task:    task.Name,
				Process: task.ProcessName,
				Link:    link,
			})
		}})
	}

	results := make(chan Outcome, len(attempts))

	for _, a := range attempts {
		go func(a attempt) {
			results <- Outcome{Channel: a.channel, Err: a.run(ctx)}
		}(a)
	}

	outcomes := make([]Outcome, 0, len(attempts))

	for range attempts {
		outcome := <-results

		if outcome.Err != nil {
			f.logger.ErrorContext(ctx, "notification channel failed",
				"channel", outcome.Channel,
				"stage_id", task.StageID,
				"error", outcome.Err,
			)
		} else {
			f.logger.DebugContext(ctx, "notification sent",
				"channel", outcome.Channel,
				"stage_id", task.StageID,
			)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}
