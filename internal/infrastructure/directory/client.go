package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pulsemeet/pulsemeet/internal/infrastructure/configs"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client queries the Meeting Directory service, the external system of record
// for meeting codes and their owners. The relay only ever reads from it.
type Client struct {
	baseURL string
	http    *http.Client
}

type meetingResponse struct {
	Success     bool   `json:"success"`
	MeetingCode string `json:"meetingCode"`
	OwnerID     string `json:"ownerId"`
}

func NewClient(cfg configs.DirectoryConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ResolveHost reports whether the claimed user is the recorded owner of the
// meeting. An unknown meeting code is a definitive "not host", not an error;
// transport and server failures are returned so the caller can degrade.
func (c *Client) ResolveHost(ctx context.Context, meetingCode, claimedUserID string) (bool, error) {
	if claimedUserID == "" {
		return false, nil
	}

	endpoint := fmt.Sprintf("%s/api/v1/meeting/%s", c.baseURL, url.PathEscape(meetingCode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build directory request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("directory lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("directory lookup returned status %d", resp.StatusCode)
	}

	var meeting meetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&meeting); err != nil {
		return false, fmt.Errorf("failed to decode directory response: %w", err)
	}

	return meeting.OwnerID != "" && meeting.OwnerID == claimedUserID, nil
}
