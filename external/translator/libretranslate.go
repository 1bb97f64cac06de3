package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/foxseedlab/tsuyaku/internal/translator"
)

const libreResponseLimit = 1 << 20

// LibreTranslateClient calls a LibreTranslate-compatible /translate endpoint.
type LibreTranslateClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewLibreTranslateClient(endpoint, apiKey string) *LibreTranslateClient {
	return &LibreTranslateClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{},
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText *string `json:"translatedText"`
	Error          string  `json:"error"`
}

func (c *LibreTranslateClient) Translate(ctx context.Context, req translator.Request) (string, error) {
	b, err := json.Marshal(libreRequest{
		Q:      req.Text,
		Source: languageBase(req.SourceLanguage),
		Target: languageBase(req.TargetLanguage),
		Format: "text",
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, libreResponseLimit))
	if err != nil {
		return "", fmt.Errorf("read translation response: %w", err)
	}
	var out libreResponse
	decodeErr := json.Unmarshal(body, &out)
	if !isHTTPSuccessStatus(resp.StatusCode) {
		if decodeErr == nil && out.Error != "" {
			return "", fmt.Errorf("translation provider returned status %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("translation provider returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: %w", translator.ErrMalformedResponse, decodeErr)
	}
	if out.TranslatedText == nil {
		return "", fmt.Errorf("%w: missing translatedText", translator.ErrMalformedResponse)
	}
	return *out.TranslatedText, nil
}

// languageBase reduces a BCP-47 tag such as "ja-JP" to its primary subtag.
func languageBase(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
