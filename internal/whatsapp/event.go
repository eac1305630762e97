// Package whatsapp parses WhatsApp Cloud API webhook events.
//
// Payloads are navigated as untyped JSON so that a missing key or a value of
// the wrong type at any level only drops that branch instead of the whole event.
package whatsapp

import (
	"encoding/json"
	"fmt"
)

// Message types with extractable text.
const (
	TypeText        = "text"
	TypeInteractive = "interactive"
)

// Event is the flattened content of one webhook delivery.
type Event struct {
	Messages []Message
	Statuses []Status
}

// Message is an inbound user message.
type Message struct {
	// From is the sender's WhatsApp id, used as the reply recipient.
	From string
	// ID is the platform message id (wamid). May be empty.
	ID   string
	Type string
	// Text is the extracted text, empty when the message carries none.
	Text string
	// PhoneNumberID is the business number that received the message, taken
	// from the change metadata. May be empty.
	PhoneNumberID string
}

// Status is a delivery state update for a message previously sent by the business.
type Status struct {
	ID          string
	Status      string
	RecipientID string
}

// ParseEvent parses a webhook body. It only fails when the body is not JSON;
// any well-formed JSON value yields an Event, possibly empty.
func ParseEvent(body []byte) (Event, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return Event{}, fmt.Errorf("failed to decode webhook body: %w", err)
	}

	var event Event
	entries, _ := arrayField(root, "entry")
	for _, entry := range entries {
		changes, _ := arrayField(entry, "changes")
		for _, change := range changes {
			value, ok := objectField(change, "value")
			if !ok {
				continue
			}
			phoneNumberID := ""
			if metadata, ok := objectField(value, "metadata"); ok {
				phoneNumberID, _ = stringField(metadata, "phone_number_id")
			}
			messages, _ := arrayField(value, "messages")
			for _, raw := range messages {
				msg, ok := parseMessage(raw)
				if !ok {
					continue
				}
				msg.PhoneNumberID = phoneNumberID
				event.Messages = append(event.Messages, msg)
			}
			statuses, _ := arrayField(value, "statuses")
			for _, raw := range statuses {
				if status, ok := parseStatus(raw); ok {
					event.Statuses = append(event.Statuses, status)
				}
			}
		}
	}
	return event, nil
}

// parseMessage returns false when the message has no sender to reply to.
func parseMessage(raw any) (Message, bool) {
	from, ok := stringField(raw, "from")
	if !ok || from == "" {
		return Message{}, false
	}
	msg := Message{From: from}
	msg.ID, _ = stringField(raw, "id")
	msg.Type, _ = stringField(raw, "type")
	msg.Text = extractText(raw)
	return msg, true
}

func parseStatus(raw any) (Status, bool) {
	id, ok := stringField(raw, "id")
	if !ok {
		return Status{}, false
	}
	status := Status{ID: id}
	status.Status, _ = stringField(raw, "status")
	status.RecipientID, _ = stringField(raw, "recipient_id")
	return status, true
}

// extractText applies the text extraction policy to a raw message object:
// text messages yield text.body, interactive messages yield the button reply
// title or else the list reply title, anything else yields "".
func extractText(raw any) string {
	msgType, _ := stringField(raw, "type")
	switch msgType {
	case TypeText:
		if text, ok := objectField(raw, "text"); ok {
			body, _ := stringField(text, "body")
			return body
		}
	case TypeInteractive:
		interactive, ok := objectField(raw, "interactive")
		if !ok {
			return ""
		}
		if reply, ok := objectField(interactive, "button_reply"); ok {
			if title, ok := stringField(reply, "title"); ok && title != "" {
				return title
			}
		}
		if reply, ok := objectField(interactive, "list_reply"); ok {
			title, _ := stringField(reply, "title")
			return title
		}
	}
	return ""
}

func objectField(v any, key string) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	field, ok := obj[key].(map[string]any)
	return field, ok
}

func arrayField(v any, key string) ([]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	field, ok := obj[key].([]any)
	return field, ok
}

func stringField(v any, key string) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	field, ok := obj[key].(string)
	return field, ok
}
