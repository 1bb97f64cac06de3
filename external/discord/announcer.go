package discord

import (
	"context"
	"fmt"
	"strings"

	discordpkg "github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/events"
)

const (
	announceStartedFormat  = ":microphone2: 通訳を開始しました（%s → %s）"
	announceStopped        = ":stop_button: 通訳を終了しました"
	announceStoppedWithErr = ":warning: 通訳が停止しました: %s"
)

// Announcer posts completed translations and session transitions to a text
// channel.
type Announcer struct {
	client    discordpkg.Client
	channelID string
}

func NewAnnouncer(client discordpkg.Client, channelID string) *Announcer {
	return &Announcer{client: client, channelID: channelID}
}

func (a *Announcer) Publish(_ context.Context, event events.Event) error {
	if a.channelID == "" {
		return nil
	}
	content, ok := announcement(event)
	if !ok {
		return nil
	}
	return a.client.SendChannelMessage(a.channelID, content)
}

func announcement(event events.Event) (string, bool) {
	switch event.Kind {
	case events.KindPhraseTranslated:
		if strings.TrimSpace(event.TranslatedText) == "" {
			return "", false
		}
		return fmt.Sprintf("> %s\n%s", event.SourceText, event.TranslatedText), true
	case events.KindSessionStarted:
		return fmt.Sprintf(announceStartedFormat, event.SourceLanguage, event.TargetLanguage), true
	case events.KindSessionStopped:
		if event.Error != "" {
			return fmt.Sprintf(announceStoppedWithErr, event.Error), true
		}
		return announceStopped, true
	default:
		return "", false
	}
}
