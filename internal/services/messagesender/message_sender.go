package messagesender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DIMO-Network/server-garage/pkg/richerrors"
)

const (
	// SendFailureCode is the code returned when a message could not be delivered to the Cloud API
	SendFailureCode = -1

	// Default timeout for Cloud API requests
	defaultSendTimeout = 20 * time.Second
	// Maximum response body size to keep for logging
	maxResponseBodySize = 1024
	// DefaultMaxBodyLength is the largest text body the Cloud API accepts.
	DefaultMaxBodyLength = 4000
)

// Config describes how to reach the Cloud API send endpoint.
type Config struct {
	// BaseURL is the Graph API host, e.g. https://graph.facebook.com.
	BaseURL string
	// APIVersion is the Graph API version path segment, e.g. v19.0.
	APIVersion string
	// AccessToken is sent as a bearer token.
	AccessToken string
	// MaxBodyLength is the number of characters a body is truncated to.
	MaxBodyLength int
}

// TextMessage is the Cloud API payload for a text message.
type TextMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             TextBody `json:"text"`
}

// TextBody holds the text of a message.
type TextBody struct {
	Body string `json:"body"`
}

// Result is what the Cloud API answered to a send.
type Result struct {
	StatusCode int
	// Body is the raw response, cut to a bounded size.
	Body string
	// MessageID is the id assigned to the outbound message, when the response carries one.
	MessageID string
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageSender posts text messages to the WhatsApp Cloud API.
type MessageSender struct {
	client *http.Client
	cfg    Config
}

// NewMessageSender creates a new MessageSender. A nil client gets a default one with a bounded timeout.
func NewMessageSender(client *http.Client, cfg Config) *MessageSender {
	if client == nil {
		client = &http.Client{
			Timeout: defaultSendTimeout,
		}
	}
	if cfg.MaxBodyLength <= 0 {
		cfg.MaxBodyLength = DefaultMaxBodyLength
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &MessageSender{
		client: client,
		cfg:    cfg,
	}
}

// SendMessage sends body as a text message to the recipient through the given business phone number.
// The body is truncated to the configured maximum length. Non-2xx answers are returned as errors
// together with the result; nothing is retried.
func (s *MessageSender) SendMessage(ctx context.Context, phoneNumberID, to, body string) (*Result, error) {
	if phoneNumberID == "" {
		return nil, richerrors.Error{
			Code: SendFailureCode,
			Err:  errors.New("phone number id is empty"),
		}
	}

	payload := TextMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             TextBody{Body: Truncate(body, s.cfg.MaxBodyLength)},
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message payload: %w", err)
	}

	endpoint := s.cfg.BaseURL + "/" + s.cfg.APIVersion + "/" + url.PathEscape(phoneNumberID) + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, richerrors.Error{
				Code: SendFailureCode,
				Err:  fmt.Errorf("invalid URL: %w", err),
			}
		}
		return nil, fmt.Errorf("failed to create send request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.AccessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, richerrors.Error{
			Code: SendFailureCode,
			Err:  fmt.Errorf("failed to POST message: %w", err),
		}
	}
	defer resp.Body.Close() // nolint:errcheck

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	result := &Result{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, richerrors.Error{
			Code: SendFailureCode,
			Err:  fmt.Errorf("cloud API returned status code %d: %s", resp.StatusCode, result.Body),
		}
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err == nil && len(parsed.Messages) > 0 {
		result.MessageID = parsed.Messages[0].ID
	}
	return result, nil
}

// Truncate cuts s to at most maxLen characters without splitting a multi-byte character.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}
	return s
}
