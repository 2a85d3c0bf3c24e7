package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/omarabozied5/zonak-storefront/internal/domain"
)

const DefaultTimeout = 10 * time.Second

// HTTPClient implements Client against the storefront's REST menu API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type menuResponse struct {
	Items []MenuItem `json:"items"`
}

func (c *HTTPClient) FetchMenuItems(ctx context.Context, identity domain.Identity, restaurantID string) ([]MenuItem, error) {
	endpoint := fmt.Sprintf("%s/restaurants/%s/menu?identity=%s",
		c.baseURL, url.PathEscape(restaurantID), url.QueryEscape(identity.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build menu request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch menu for restaurant %s: %w", restaurantID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("menu request for restaurant %s returned status %d", restaurantID, resp.StatusCode)
	}

	var decoded menuResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode menu for restaurant %s: %w", restaurantID, err)
	}
	return decoded.Items, nil
}
