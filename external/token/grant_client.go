package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/token"
)

const grantResponseLimit = 1 << 16

// GrantClient exchanges the long-lived API key for a short-lived access token.
type GrantClient struct {
	grantURL string
	apiKey   string
	client   *http.Client
	now      func() time.Time
}

func NewGrantClient(grantURL, apiKey string) *GrantClient {
	return &GrantClient{
		grantURL: grantURL,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

type grantResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   float64 `json:"expires_in"`
}

func (c *GrantClient) FetchToken(ctx context.Context) (token.Token, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return token.Token{}, fmt.Errorf("%w: api key is not configured", token.ErrAuthentication)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.grantURL, strings.NewReader("{}"))
	if err != nil {
		return token.Token{}, err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return token.Token{}, fmt.Errorf("request token grant: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, grantResponseLimit))
	if err != nil {
		return token.Token{}, fmt.Errorf("read token grant: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return token.Token{}, fmt.Errorf("%w: token grant rejected the api key (status %d)", token.ErrAuthentication, resp.StatusCode)
	}
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return token.Token{}, fmt.Errorf("token grant returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out grantResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return token.Token{}, fmt.Errorf("decode token grant: %w", err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return token.Token{}, fmt.Errorf("token grant response has no access_token")
	}
	tok := token.Token{Value: out.AccessToken}
	if out.ExpiresIn > 0 {
		tok.ExpiresAt = c.now().Add(time.Duration(out.ExpiresIn * float64(time.Second)))
	}
	return tok, nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
