package config

import (
	"errors"
	"fmt"
	"time"
)

// Reply modes supported by the relay.
const (
	ReplyModeEcho      = "echo"
	ReplyModeFixed     = "fixed"
	ReplyModeGenerated = "generated"
)

// Settings contains the application config
type Settings struct {
	Port        int    `env:"PORT"`
	MonPort     int    `env:"MON_PORT"`
	EnablePprof bool   `env:"ENABLE_PPROF"`
	LogLevel    string `env:"LOG_LEVEL"`
	ServiceName string `env:"SERVICE_NAME"`

	VerifyToken     string `env:"VERIFY_TOKEN"`
	WhatsAppToken   string `env:"WHATSAPP_TOKEN"`
	PhoneNumberID   string `env:"PHONE_NUMBER_ID"`
	GraphAPIURL     string `env:"GRAPH_API_URL"`
	GraphAPIVersion string `env:"GRAPH_API_VERSION"`
	MaxReplyLength  int    `env:"MAX_REPLY_LENGTH"`

	ReplyMode    string `env:"REPLY_MODE"`
	EchoTemplate string `env:"ECHO_TEMPLATE"`
	FixedReply   string `env:"FIXED_REPLY"`
	ReplyLocale  string `env:"REPLY_LOCALE"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL"`

	// ReplyCondition is an optional CEL expression over from, type and text.
	ReplyCondition string        `env:"REPLY_CONDITION"`
	DedupeTTL      time.Duration `env:"DEDUPE_TTL"`
	ProcessTimeout time.Duration `env:"PROCESS_TIMEOUT"`
}

// SetDefaults fills every unset option with its default value.
func (s *Settings) SetDefaults() {
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.MonPort == 0 {
		s.MonPort = 8888
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.ServiceName == "" {
		s.ServiceName = "whatsapp-relay"
	}
	if s.VerifyToken == "" {
		s.VerifyToken = "meu_token_verificacao"
	}
	if s.GraphAPIURL == "" {
		s.GraphAPIURL = "https://graph.facebook.com"
	}
	if s.GraphAPIVersion == "" {
		s.GraphAPIVersion = "v19.0"
	}
	if s.MaxReplyLength <= 0 {
		s.MaxReplyLength = 4000
	}
	if s.ReplyMode == "" {
		s.ReplyMode = ReplyModeEcho
	}
	if s.EchoTemplate == "" {
		s.EchoTemplate = "Recebi sua mensagem: %s ✅"
	}
	if s.FixedReply == "" {
		s.FixedReply = "Olá! Recebemos sua mensagem e retornaremos em breve."
	}
	if s.ReplyLocale == "" {
		s.ReplyLocale = "pt-BR"
	}
	if s.OpenAIBaseURL == "" {
		s.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if s.OpenAIModel == "" {
		s.OpenAIModel = "gpt-4o-mini"
	}
	if s.DedupeTTL <= 0 {
		s.DedupeTTL = 10 * time.Minute
	}
	if s.ProcessTimeout <= 0 {
		s.ProcessTimeout = 45 * time.Second
	}
}

// Validate checks combinations of options that cannot be served.
func (s *Settings) Validate() error {
	switch s.ReplyMode {
	case ReplyModeEcho, ReplyModeFixed:
	case ReplyModeGenerated:
		if s.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required when REPLY_MODE is generated")
		}
	default:
		return fmt.Errorf("invalid REPLY_MODE '%s', must be one of echo, fixed, generated", s.ReplyMode)
	}
	return nil
}
