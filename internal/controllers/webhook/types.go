package webhook

// AckResponse is returned for every inbound event.
type AckResponse struct {
	// Status is always "ok".
	Status string `json:"status"`
}
