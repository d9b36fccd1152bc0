package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"boulder-scoring-system/models"
)

// ErrWindowClosed is returned when the server rejects a submission because
// the participant's window is not open. The client must stop editing and
// refresh its page state instead of retrying.
var ErrWindowClosed = errors.New("submission window closed")

// TransientError marks a failure worth retrying on the next debounce tick:
// network trouble, timeouts, server hiccups. Dirty drafts survive it.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried by the sync loop.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Transport is the wire the sync client talks over. Tests drop in a fake.
type Transport interface {
	Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResponse, error)
	Fetch(ctx context.Context) (*models.ResultsResponse, error)
}

// APIClient is the HTTP transport against the scoring service, speaking
// through the session gateway.
type APIClient struct {
	BaseURL       string
	ParticipantID string
	GatewayToken  string
	HTTP          *http.Client
}

func NewAPIClient(baseURL, participantID, gatewayToken string) *APIClient {
	return &APIClient{
		BaseURL:       baseURL,
		ParticipantID: participantID,
		GatewayToken:  gatewayToken,
		HTTP:          &http.Client{Timeout: 15 * time.Second},
	}
}

// Submit posts the full draft batch and decodes the resolved records.
func (c *APIClient) Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	var resp models.SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/results", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fetch pulls the resolved server state for reconciliation.
func (c *APIClient) Fetch(ctx context.Context) (*models.ResultsResponse, error) {
	var resp models.ResultsResponse
	if err := c.do(ctx, http.MethodGet, "/api/results", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.GatewayToken)
	req.Header.Set("X-Participant-ID", c.ParticipantID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusLocked:
		return ErrWindowClosed
	case res.StatusCode >= 500:
		return &TransientError{Err: fmt.Errorf("server returned %d", res.StatusCode)}
	case res.StatusCode >= 400:
		payload, _ := io.ReadAll(res.Body)
		return fmt.Errorf("request rejected (%d): %s", res.StatusCode, payload)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &TransientError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
