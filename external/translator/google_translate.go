package translator

import (
	"context"
	"fmt"

	"cloud.google.com/go/auth/credentials"
	"github.com/foxseedlab/tsuyaku/internal/translator"
	"google.golang.org/api/option"
	translate "google.golang.org/api/translate/v2"
)

// GoogleTranslator uses the Cloud Translation basic (v2) REST API.
type GoogleTranslator struct {
	svc *translate.Service
}

func NewGoogleTranslator(svc *translate.Service) *GoogleTranslator {
	return &GoogleTranslator{svc: svc}
}

// NewGoogleTranslateService builds the REST client from service-account JSON.
func NewGoogleTranslateService(ctx context.Context, credentialsJSON string, opts ...option.ClientOption) (*translate.Service, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-translation"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}
	return translate.NewService(ctx, append([]option.ClientOption{option.WithAuthCredentials(creds)}, opts...)...)
}

func (t *GoogleTranslator) Translate(ctx context.Context, req translator.Request) (string, error) {
	resp, err := t.svc.Translations.Translate(&translate.TranslateTextRequest{
		Q:      []string{req.Text},
		Source: languageBase(req.SourceLanguage),
		Target: languageBase(req.TargetLanguage),
		Format: "text",
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(resp.Translations) == 0 || resp.Translations[0] == nil {
		return "", fmt.Errorf("%w: no translations returned", translator.ErrMalformedResponse)
	}
	return resp.Translations[0].TranslatedText, nil
}
