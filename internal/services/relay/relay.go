package relay

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DIMO-Network/whatsapp-relay/internal/metrics"
	"github.com/DIMO-Network/whatsapp-relay/internal/services/messagesender"
	"github.com/DIMO-Network/whatsapp-relay/internal/whatsapp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultProcessTimeout = 45 * time.Second

// Sender delivers a text message through the Cloud API.
type Sender interface {
	SendMessage(ctx context.Context, phoneNumberID, to, body string) (*messagesender.Result, error)
}

// Replier turns extracted text into a reply body.
type Replier interface {
	Reply(ctx context.Context, text string) string
}

// Deduper reports whether a message id is seen for the first time.
type Deduper interface {
	FirstSeen(messageID string) bool
}

// Condition decides whether a message gets a reply.
type Condition interface {
	Allow(msg whatsapp.Message) (bool, error)
}

// Config for the Relay.
type Config struct {
	// PhoneNumberID is used when an inbound event carries no metadata.phone_number_id.
	PhoneNumberID string
	// ProcessTimeout bounds the background processing of one event.
	ProcessTimeout time.Duration
}

// Relay answers inbound WhatsApp messages.
type Relay struct {
	sender    Sender
	replier   Replier
	deduper   Deduper
	condition Condition
	cfg       Config
	logger    zerolog.Logger

	wg sync.WaitGroup
}

// New creates a new Relay. deduper and condition may be nil.
func New(logger zerolog.Logger, sender Sender, replier Replier, deduper Deduper, condition Condition, cfg Config) *Relay {
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = defaultProcessTimeout
	}
	return &Relay{
		sender:    sender,
		replier:   replier,
		deduper:   deduper,
		condition: condition,
		cfg:       cfg,
		logger:    logger,
	}
}

// Submit processes a webhook body in the background and returns immediately.
// The body is copied, so the caller may reuse its buffer.
func (r *Relay) Submit(body []byte) {
	body = bytes.Clone(body)
	logger := r.logger.With().Str("eventId", uuid.NewString()).Logger()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), r.cfg.ProcessTimeout)
		defer cancel()
		r.Process(ctx, body)
	}()
}

// Wait blocks until every submitted event has been processed.
func (r *Relay) Wait() {
	r.wg.Wait()
}

// Process handles one webhook body synchronously. It never fails: malformed bodies,
// filtered messages and delivery failures are logged and counted.
func (r *Relay) Process(ctx context.Context, body []byte) {
	logger := zerolog.Ctx(ctx)

	event, err := whatsapp.ParseEvent(body)
	if err != nil {
		metrics.MalformedEvents.Inc()
		logger.Warn().Err(err).Msg("Ignoring malformed webhook event")
		return
	}

	for _, status := range event.Statuses {
		metrics.StatusesReceived.WithLabelValues(metrics.StatusLabel(status.Status)).Inc()
		logger.Info().Str("messageId", status.ID).Str("status", status.Status).Msg("Message status update")
	}

	for _, msg := range event.Messages {
		outcome := r.handleMessage(ctx, msg)
		metrics.MessagesProcessed.WithLabelValues(outcome).Inc()
	}
}

func (r *Relay) handleMessage(ctx context.Context, msg whatsapp.Message) string {
	logger := zerolog.Ctx(ctx).With().
		Str("from", msg.From).
		Str("messageId", msg.ID).
		Str("type", msg.Type).
		Logger()
	logger.Info().Int("textLength", len(msg.Text)).Msg("Message received")

	if r.deduper != nil && !r.deduper.FirstSeen(msg.ID) {
		logger.Info().Msg("Skipping redelivered message")
		return metrics.OutcomeDuplicate
	}

	if r.condition != nil {
		allowed, err := r.condition.Allow(msg)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to evaluate reply condition")
			return metrics.OutcomeFiltered
		}
		if !allowed {
			logger.Debug().Msg("Reply condition not met")
			return metrics.OutcomeFiltered
		}
	}

	phoneNumberID := msg.PhoneNumberID
	if phoneNumberID == "" {
		phoneNumberID = r.cfg.PhoneNumberID
	}

	reply := r.replier.Reply(logger.WithContext(ctx), msg.Text)
	result, err := r.sender.SendMessage(ctx, phoneNumberID, msg.From, reply)
	if err != nil {
		metrics.RepliesSent.WithLabelValues("failure").Inc()
		evt := logger.Error().Err(err)
		if result != nil {
			evt = evt.Int("statusCode", result.StatusCode)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			evt = evt.Bool("timeout", true)
		}
		evt.Msg("Failed to send reply")
		return metrics.OutcomeFailed
	}

	metrics.RepliesSent.WithLabelValues("success").Inc()
	evt := logger.Info()
	if result != nil {
		evt = evt.Int("statusCode", result.StatusCode).Str("replyId", result.MessageID)
	}
	evt.Msg("Reply sent")
	return metrics.OutcomeReplied
}
