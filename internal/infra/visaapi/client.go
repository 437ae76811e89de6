package visaapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/byigitt/visa-checker/internal/domain/appointment"
)

var _ appointment.Source = (*Client)(nil)

// Client fetches the appointment list from the visasbot API. Outbound calls
// are paced with a token bucket so frequent check intervals cannot hammer the
// upstream.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an API client limited to rps requests per second.
func NewClient(baseURL string, rps float64) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// listResponse is the API envelope around the appointment list.
type listResponse struct {
	Status string                    `json:"status"`
	Data   []appointment.Appointment `json:"data"`
}

// List fetches the current appointment list.
func (c *Client) List(ctx context.Context) ([]appointment.Appointment, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for request slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/visa/list", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20)) // 8 MB max
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("visa API returned status %d", resp.StatusCode)
	}

	var listResp listResponse
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("parsing appointment list: %w", err)
	}
	if listResp.Status != "success" {
		return nil, fmt.Errorf("visa API reported status %q", listResp.Status)
	}

	return listResp.Data, nil
}
