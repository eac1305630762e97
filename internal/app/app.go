package app

import (
	"fmt"
	"time"

	"github.com/DIMO-Network/server-garage/pkg/fibercommon"
	"github.com/DIMO-Network/whatsapp-relay/internal/clients/completion"
	"github.com/DIMO-Network/whatsapp-relay/internal/config"
	"github.com/DIMO-Network/whatsapp-relay/internal/controllers/webhook"
	"github.com/DIMO-Network/whatsapp-relay/internal/replycondition"
	"github.com/DIMO-Network/whatsapp-relay/internal/services/dedupe"
	"github.com/DIMO-Network/whatsapp-relay/internal/services/messagesender"
	"github.com/DIMO-Network/whatsapp-relay/internal/services/relay"
	"github.com/DIMO-Network/whatsapp-relay/internal/services/replier"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// CreateServers builds the relay and the fiber app serving it.
// The caller must Wait on the returned relay after the app has shut down.
func CreateServers(settings *config.Settings, logger zerolog.Logger) (*fiber.App, *relay.Relay, error) {
	strategy, err := newReplyStrategy(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create reply strategy: %w", err)
	}

	condition, err := replycondition.New(settings.ReplyCondition)
	if err != nil {
		return nil, nil, err
	}

	sender := messagesender.NewMessageSender(nil, messagesender.Config{
		BaseURL:       settings.GraphAPIURL,
		APIVersion:    settings.GraphAPIVersion,
		AccessToken:   settings.WhatsAppToken,
		MaxBodyLength: settings.MaxReplyLength,
	})

	// Cleanup runs at the TTL so expired ids do not accumulate.
	messageCache := dedupe.New(settings.DedupeTTL, settings.DedupeTTL)

	messageRelay := relay.New(logger, sender, replier.New(strategy), messageCache, condition, relay.Config{
		PhoneNumberID:  settings.PhoneNumberID,
		ProcessTimeout: settings.ProcessTimeout,
	})

	app := CreateFiberApp(logger, webhook.NewWebhookController(settings.VerifyToken, messageRelay))
	return app, messageRelay, nil
}

// CreateFiberApp sets up the API routes.
func CreateFiberApp(logger zerolog.Logger, webhookController *webhook.WebhookController) *fiber.App {
	logger.Info().Msg("Starting WhatsApp Relay API...")

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return fibercommon.ErrorHandler(c, err)
		},
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
	})
	app.Use(fibercommon.ContextLoggerMiddleware)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Welcome to the WhatsApp Relay API!")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"data": "Server is up and running",
		})
	})

	logger.Info().Msg("Registering routes...")
	app.Get("/webhook", webhookController.Verify)
	app.Post("/webhook", webhookController.Receive)

	return app
}

func newReplyStrategy(settings *config.Settings) (replier.Strategy, error) {
	switch settings.ReplyMode {
	case config.ReplyModeEcho:
		return replier.Echo{Template: settings.EchoTemplate}, nil
	case config.ReplyModeFixed:
		return replier.Fixed{Text: settings.FixedReply}, nil
	case config.ReplyModeGenerated:
		client := completion.New(completion.Config{
			APIKey:  settings.OpenAIAPIKey,
			BaseURL: settings.OpenAIBaseURL,
			Model:   settings.OpenAIModel,
		}, nil)
		return replier.NewGenerated(client, settings.ReplyLocale), nil
	default:
		return nil, fmt.Errorf("unknown reply mode '%s'", settings.ReplyMode)
	}
}
