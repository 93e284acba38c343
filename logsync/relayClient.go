package logsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/models"
)

// RelayClient is the store-and-forward channel between peers. Send is
// all-or-nothing from the caller's perspective; FetchSince returns every
// remote entry with sequence greater than the given checkpoint.
type RelayClient interface {
	Send(ctx context.Context, batch []models.ActivityLog) error
	FetchSince(ctx context.Context, sequence int64) ([]RemoteLogEntry, int64, error)
}

type HTTPRelayClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
}

func NewHTTPRelayClientFromEnv() (*HTTPRelayClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("RELAY_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("RELAY_BASE_URL not set")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("RELAY_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	timeoutSeconds := 30
	if v := strings.TrimSpace(os.Getenv("RELAY_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeoutSeconds = n
		}
	}

	return &HTTPRelayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    strings.TrimSpace(os.Getenv("RELAY_API_KEY")),
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}, nil
}

// NewHTTPRelayClient is the explicit constructor used by tests.
func NewHTTPRelayClient(baseURL string, apiKey string, timeout time.Duration) *HTTPRelayClient {
	return &HTTPRelayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: "X-API-Key",
		http:      &http.Client{Timeout: timeout},
	}
}

func (c *HTTPRelayClient) Send(ctx context.Context, batch []models.ActivityLog) error {
	body, err := json.Marshal(pushRequest{Entries: batch})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/logs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHdr, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay send error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func (c *HTTPRelayClient) FetchSince(ctx context.Context, sequence int64) ([]RemoteLogEntry, int64, error) {
	endpoint := fmt.Sprintf("%s/v1/logs?since=%d", c.baseURL, sequence)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHdr, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, fmt.Errorf("relay fetch error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed fetchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, 0, err
	}
	return parsed.Entries, parsed.MaxSequence, nil
}
