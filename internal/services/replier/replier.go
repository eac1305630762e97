package replier

import (
	"context"
	"fmt"
	"strings"

	"github.com/DIMO-Network/whatsapp-relay/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	// NonTextFallback is sent when no text could be extracted from the inbound message.
	NonTextFallback = "No momento só consigo responder mensagens de texto. Pode me enviar sua mensagem por escrito? 🙂"
	// Apology replaces a generated reply when the text generation call fails.
	Apology = "Desculpe, não consegui gerar uma resposta agora. Tente novamente em instantes."

	systemPromptFormat = "Você é um assistente cordial, objetivo e prestativo. Responda sempre no idioma %s."
)

// Strategy produces the reply body for an extracted text.
type Strategy interface {
	Reply(ctx context.Context, text string) (string, error)
}

// Completer generates text from a system instruction and a single user turn.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Echo answers with a template incorporating the received text.
type Echo struct {
	// Template has a single %s verb for the text. Templates without a verb are sent as-is.
	Template string
}

// Reply renders the template.
func (e Echo) Reply(_ context.Context, text string) (string, error) {
	if !strings.Contains(e.Template, "%s") {
		return e.Template, nil
	}
	return strings.Replace(e.Template, "%s", text, 1), nil
}

// Fixed answers every message with the same text.
type Fixed struct {
	Text string
}

// Reply returns the fixed text.
func (f Fixed) Reply(context.Context, string) (string, error) {
	return f.Text, nil
}

// Generated answers with a completion for the received text.
type Generated struct {
	completer    Completer
	systemPrompt string
}

// NewGenerated creates a Generated strategy whose system instruction asks for replies in locale.
func NewGenerated(completer Completer, locale string) *Generated {
	return &Generated{
		completer:    completer,
		systemPrompt: SystemPrompt(locale),
	}
}

// Reply calls the completer.
func (g *Generated) Reply(ctx context.Context, text string) (string, error) {
	reply, err := g.completer.Complete(ctx, g.systemPrompt, text)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	return reply, nil
}

// SystemPrompt is the fixed instruction given to the text generation collaborator.
func SystemPrompt(locale string) string {
	return fmt.Sprintf(systemPromptFormat, locale)
}

// Replier applies the reply policy: the fallback prompt for messages without text,
// the strategy otherwise, and the apology when the strategy fails.
type Replier struct {
	strategy Strategy
}

// New creates a Replier around strategy.
func New(strategy Strategy) *Replier {
	return &Replier{strategy: strategy}
}

// Reply never fails; every strategy error is replaced by Apology.
func (r *Replier) Reply(ctx context.Context, text string) string {
	if text == "" {
		return NonTextFallback
	}
	reply, err := r.strategy.Reply(ctx, text)
	if err != nil {
		metrics.CompletionFailures.Inc()
		zerolog.Ctx(ctx).Error().Err(err).Msg("Reply strategy failed, sending apology")
		return Apology
	}
	if reply == "" {
		return Apology
	}
	return reply
}
