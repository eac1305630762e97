package webhook

import (
	"crypto/subtle"

	"github.com/DIMO-Network/whatsapp-relay/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const (
	subscribeMode = "subscribe"
	// VerificationFailedMessage is the body returned when the handshake does not match.
	VerificationFailedMessage = "Erro de verificação"
)

// Processor handles inbound event bodies out of band.
// The body buffer is reused by fiber after the handler returns, so implementations must copy it.
type Processor interface {
	Submit(body []byte)
}

// WebhookController serves the WhatsApp Cloud API webhook.
type WebhookController struct {
	verifyToken string
	processor   Processor
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(verifyToken string, processor Processor) *WebhookController {
	return &WebhookController{
		verifyToken: verifyToken,
		processor:   processor,
	}
}

// Verify answers the subscription handshake. The challenge is echoed only when hub.mode is
// "subscribe" and hub.verify_token matches the configured secret.
func (w *WebhookController) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == subscribeMode && subtle.ConstantTimeCompare([]byte(token), []byte(w.verifyToken)) == 1 {
		zerolog.Ctx(c.UserContext()).Info().Msg("Webhook verified")
		return c.Status(fiber.StatusOK).SendString(challenge)
	}

	zerolog.Ctx(c.UserContext()).Warn().Str("mode", mode).Msg("Webhook verification failed")
	return c.Status(fiber.StatusForbidden).SendString(VerificationFailedMessage)
}

// Receive acknowledges every event with 200 and hands the body to the processor.
func (w *WebhookController) Receive(c *fiber.Ctx) error {
	metrics.EventsReceived.Inc()
	w.processor.Submit(c.Body())
	return c.Status(fiber.StatusOK).JSON(AckResponse{Status: "ok"})
}
