package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Tracker records product usage events. Implementations must be
// fire-and-forget: a failed event never affects the calling request.
type Tracker interface {
	Track(ctx context.Context, event string, props map[string]any)
}

// Event names the stats dashboard aggregates on. Renaming one silently
// zeroes its dashboard counter.
const (
	EventAnalyzeApplication  = "analyze_application"
	EventGenerateCoverLetter = "generate_cover_letter"
	EventImproveCV           = "improve_cv"
)

// ── GA4 Measurement Protocol ─────────────────────────

const measurementEndpoint = "https://www.google-analytics.com/mp/collect"

// GATracker ships events to GA4 via the Measurement Protocol.
type GATracker struct {
	measurementID string
	apiSecret     string
	clientID      string
	client        *http.Client
}

func NewGATracker(measurementID, apiSecret string) *GATracker {
	return &GATracker{
		measurementID: measurementID,
		apiSecret:     apiSecret,
		clientID:      "advisor-api",
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Enabled returns true if Measurement Protocol credentials are configured.
func (t *GATracker) Enabled() bool {
	return t.measurementID != "" && t.apiSecret != ""
}

type mpPayload struct {
	ClientID string    `json:"client_id"`
	Events   []mpEvent `json:"events"`
}

type mpEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Track sends the event in the background. Errors are logged and dropped.
func (t *GATracker) Track(ctx context.Context, event string, props map[string]any) {
	if !t.Enabled() {
		return
	}

	go func() {
		// Detached from the request context: the event should still land
		// after the caller's response has been written.
		sendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		body, err := json.Marshal(mpPayload{
			ClientID: t.clientID,
			Events:   []mpEvent{{Name: event, Params: props}},
		})
		if err != nil {
			log.Warn().Err(err).Str("event", event).Msg("Failed to encode analytics event")
			return
		}

		url := measurementEndpoint + "?measurement_id=" + t.measurementID + "&api_secret=" + t.apiSecret
		req, err := http.NewRequestWithContext(sendCtx, "POST", url, bytes.NewReader(body))
		if err != nil {
			log.Warn().Err(err).Str("event", event).Msg("Failed to build analytics request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			log.Warn().Err(err).Str("event", event).Msg("Failed to send analytics event")
			return
		}
		resp.Body.Close()
	}()
}

// ── No-op tracker ────────────────────────────────────

// NopTracker discards events. Used in tests and when GA is not configured.
type NopTracker struct{}

func (NopTracker) Track(ctx context.Context, event string, props map[string]any) {}
