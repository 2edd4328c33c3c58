package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NoReplyFallback is shown when the assistant responded but none of the
// known reply fields carried text.
const NoReplyFallback = "The server responded, but no reply was provided. Please try again or rephrase your question."

// replyFields is the priority order for locating the assistant's reply in
// the webhook response. Different workflow nodes name it differently.
var replyFields = []string{"output", "response", "message", "text"}

// ChatbotClient talks to the remote conversational-assistant webhook.
type ChatbotClient struct {
	webhookURL string
	client     *http.Client
}

func NewChatbotClient(webhookURL string) *ChatbotClient {
	return &ChatbotClient{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// ChatReply is one normalized assistant turn.
type ChatReply struct {
	Content            string
	SuggestedQuestions []string
}

// SendMessage posts one user turn and normalizes whatever shape comes back.
// The sessionID correlates turns on the remote side, so callers must keep
// it stable for the life of a conversation.
func (c *ChatbotClient) SendMessage(ctx context.Context, message, sessionID string) (*ChatReply, error) {
	jsonBody, err := json.Marshal(chatRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
			return nil, fmt.Errorf("Failed to fetch: request timed out")
		}
		return nil, fmt.Errorf("Failed to fetch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("Webhook endpoint not found. Please check the server configuration.")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error! Status: %d", resp.StatusCode)
	}

	var data any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("Invalid JSON response from webhook")
	}

	return &ChatReply{
		Content:            ExtractReply(data),
		SuggestedQuestions: ExtractQuestions(data),
	}, nil
}

// ExtractReply walks the known reply fields in priority order, on the
// payload itself and on a one-element array wrapper, and returns the first
// non-empty match. No match yields the fallback literal.
func ExtractReply(data any) string {
	candidates := []any{data}
	if arr, ok := data.([]any); ok && len(arr) > 0 {
		candidates = []any{arr[0]}
	}

	for _, candidate := range candidates {
		obj, ok := candidate.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range replyFields {
			if s, ok := obj[field].(string); ok && s != "" {
				return s
			}
		}
	}

	return NoReplyFallback
}

// ExtractQuestions pulls suggestedQuestions from the payload or its
// one-element array wrapper. Nil means the caller should fall back to the
// canned set.
func ExtractQuestions(data any) []string {
	if arr, ok := data.([]any); ok && len(arr) > 0 {
		if qs := questionsFrom(arr[0]); qs != nil {
			return qs
		}
		return nil
	}
	return questionsFrom(data)
}

func questionsFrom(candidate any) []string {
	obj, ok := candidate.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := obj["suggestedQuestions"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, q := range raw {
		if s, ok := q.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
