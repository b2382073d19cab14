// Package relay talks to the remote responder service.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultSenderID identifies the web channel to the responder.
const DefaultSenderID = "web-user"

// Config describes where the responder lives.
type Config struct {
	SendURL  string
	ResetURL string
	SenderID string
	// Timeout bounds a whole send or reset call. Zero means no timeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client performs one HTTP call per outgoing message and one per reset.
type Client struct {
	httpClient *http.Client
	sendURL    string
	resetURL   string
	senderID   string
}

// ResetResult is the best-effort outcome of a remote reset. Callers log it and
// move on; local state never depends on it.
type ResetResult struct {
	Acknowledged bool
	Err          *RemoteResetAcknowledgeError
}

type outboundMessage struct {
	Body           string `json:"Body"`
	From           string `json:"From"`
	IsFirstMessage bool   `json:"is_first_message"`
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	senderID := cfg.SenderID
	if senderID == "" {
		senderID = DefaultSenderID
	}

	return &Client{
		httpClient: httpClient,
		sendURL:    cfg.SendURL,
		resetURL:   cfg.ResetURL,
		senderID:   senderID,
	}
}

// Send delivers text to the responder and returns the extracted reply. Any
// network failure, timeout or non-2xx status yields a *TransportError.
func (c *Client) Send(ctx context.Context, text string, isFirstMessage bool) (string, error) {
	payload, err := json.Marshal(outboundMessage{
		Body:           text,
		From:           c.senderID,
		IsFirstMessage: isFirstMessage,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to create send request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &TransportError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: errors.Wrap(err, "failed to read response body")}
	}

	reply := ExtractReply(string(body))
	log.Debug().
		Int("status", resp.StatusCode).
		Bool("enveloped", reply.Enveloped).
		Int("length", len(reply.Text)).
		Bool("first", isFirstMessage).
		Msg("responder replied")

	return reply.Text, nil
}

// ResetRemote asks the responder to drop its conversation for this sender.
// It never returns an error; the outcome is reported in the ResetResult.
func (c *Client) ResetRemote(ctx context.Context) ResetResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resetURL, http.NoBody)
	if err != nil {
		return ResetResult{Err: &RemoteResetAcknowledgeError{Err: err}}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ResetResult{Err: &RemoteResetAcknowledgeError{Err: err}}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ResetResult{Err: &RemoteResetAcknowledgeError{StatusCode: resp.StatusCode}}
	}
	return ResetResult{Acknowledged: true}
}
