// Command graph-sink stands in for the WhatsApp Cloud API send endpoint when running the relay locally.
// Point GRAPH_API_URL at it and every reply is logged instead of delivered.
package main

import (
	"flag"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TextMessage mirrors the payload the relay posts to the Cloud API.
type TextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

func main() {
	addr := flag.String("listen", ":8081", "address to listen on")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "graph-sink").Logger()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/:version/:phoneNumberId/messages", func(c *fiber.Ctx) error {
		var payload TextMessage
		if err := c.BodyParser(&payload); err != nil {
			logger.Warn().Err(err).Msg("Invalid payload")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fiber.Map{"message": "Invalid payload", "code": 100},
			})
		}
		logger.Info().
			Str("version", c.Params("version")).
			Str("phoneNumberId", c.Params("phoneNumberId")).
			Bool("bearer", c.Get(fiber.HeaderAuthorization) != "").
			Str("to", payload.To).
			Str("body", payload.Text.Body).
			Msg("Message received")
		return c.JSON(fiber.Map{
			"messaging_product": "whatsapp",
			"contacts":          []fiber.Map{{"input": payload.To, "wa_id": payload.To}},
			"messages":          []fiber.Map{{"id": "wamid." + uuid.NewString()}},
		})
	})

	logger.Info().Str("addr", *addr).Msg("Graph sink listening")
	if err := app.Listen(*addr); err != nil {
		logger.Fatal().Err(err).Msg("Graph sink failed")
	}
}
