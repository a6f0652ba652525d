package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/venturahq/tramite/pkg/cache"
	"github.com/venturahq/tramite/pkg/cmd"
	"github.com/venturahq/tramite/pkg/log"
	"github.com/venturahq/tramite/pkg/otelhelper"
	"github.com/venturahq/tramite/pkg/reminder"
	"github.com/venturahq/tramite/pkg/services"
)

const defaultPort = 3333

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "tramite-api",
		Usage:                 "Track business processes and their stages",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "jwt-secret",
				Usage:    "Secret used to sign authentication tokens",
				Required: true,
				Sources:  cli.EnvVars("JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Public frontend address task links point at",
				Value:   "https://www.painelventura.com.br",
				Sources: cli.EnvVars("BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "smtp-host",
				Usage:   "SMTP host for the email channel (empty disables it)",
				Sources: cli.EnvVars("SMTP_HOST"),
			},
			&cli.IntFlag{
				Name:    "smtp-port",
				Usage:   "SMTP port",
				Value:   587,
				Sources: cli.EnvVars("SMTP_PORT"),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Usage:   "SMTP username",
				Sources: cli.EnvVars("SMTP_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Usage:   "SMTP password",
				Sources: cli.EnvVars("SMTP_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "smtp-from",
				Usage:   "Sender address of outgoing mail",
				Sources: cli.EnvVars("SMTP_FROM"),
			},
			&cli.StringFlag{
				Name:    "whatsapp-token",
				Usage:   "Meta Cloud API token for the WhatsApp channel (empty disables it)",
				Sources: cli.EnvVars("WHATSAPP_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "whatsapp-phone-number-id",
				Usage:   "WhatsApp business phone number id",
				Sources: cli.EnvVars("WHATSAPP_PHONE_NUMBER_ID"),
			},
			&cli.StringFlag{
				Name:    "whatsapp-template",
				Usage:   "Name of the approved WhatsApp message template",
				Value:   "nova_tarefa",
				Sources: cli.EnvVars("WHATSAPP_TEMPLATE"),
			},
			&cli.StringFlag{
				Name:    "whatsapp-language",
				Usage:   "Language code of the WhatsApp template",
				Value:   "pt_BR",
				Sources: cli.EnvVars("WHATSAPP_LANGUAGE"),
			},
			&cli.StringFlag{
				Name:    "webhook-url",
				Usage:   "Automation webhook for task assignments (empty disables it)",
				Sources: cli.EnvVars("WEBHOOK_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for dashboard caching (empty disables caching)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OTLP traces",
				Sources: cli.EnvVars("TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Tramite API")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			notifierService := cmd.NewNotifier(cmd.NotifierConfig{
				BaseURL:               command.String("base-url"),
				SMTPHost:              command.String("smtp-host"),
				SMTPPort:              command.Int("smtp-port"),
				SMTPUsername:          command.String("smtp-username"),
				SMTPPassword:          command.String("smtp-password"),
				SMTPFrom:              command.String("smtp-from"),
				WhatsAppToken:         command.String("whatsapp-token"),
				WhatsAppPhoneNumberID: command.String("whatsapp-phone-number-id"),
				WhatsAppTemplate:      command.String("whatsapp-template"),
				WhatsAppLanguage:      command.String("whatsapp-language"),
				WebhookURL:            command.String("webhook-url"),
			}, logger)

			var dashboardCache services.Cache

			if redisURL := command.String("redis-url"); redisURL != "" {
				redisCache, err := cache.NewRedis(redisURL)
				if err != nil {
					return err
				}

				defer func() {
					err := redisCache.Close()
					if err != nil {
						logger.ErrorContext(ctx, "Failed to close cache", "error", err)
					}
				}()

				dashboardCache = redisCache
			}

			var tracer trace.Tracer

			if command.Bool("tracing") {
				tracer, err = otelhelper.NewTracer(ctx, "tramite-api")
				if err != nil {
					return err
				}
			}

			reminders := reminder.New(persistence, notifierService, logger)

			err = reminders.Start(ctx)
			if err != nil {
				return err
			}

			defer reminders.Stop()

			api := NewAPI(
				logger,
				persistence,
				notifierService,
				dashboardCache,
				tracer,
				command.String("jwt-secret"),
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
