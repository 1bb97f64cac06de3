package translator

import (
	"context"
	"errors"
)

var ErrMalformedResponse = errors.New("malformed translation response")

type Request struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
}

type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}
