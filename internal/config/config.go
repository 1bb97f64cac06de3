package config

import (
	"fmt"
	"time"
)

const (
	TranscriptSourceCloudSpeech = "cloud-speech"
	TranscriptSourceRealtime    = "realtime"
	TranscriptSourceFile        = "file"

	TranslatorLibreTranslate = "libretranslate"
	TranslatorGoogle         = "google"

	SpeakerCloudTTS = "cloud-tts"
	SpeakerLog      = "log"

	SpeakerOutputLocal   = "local"
	SpeakerOutputDiscord = "discord"

	maxPhraseSize = 64
)

type Config struct {
	Env      string
	HTTPAddr string

	SourceLanguage     string
	TargetLanguage     string
	TargetLocale       string
	PhraseSize         int
	PlaybackTimeout    time.Duration
	TranslationTimeout time.Duration
	RecentTranslations int

	TranscriptSource          string
	RecognizerMaxRestarts     int
	RecognizerRestartInterval time.Duration

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	RealtimeAPIKey    string
	RealtimeTokenURL  string
	RealtimeListenURL string
	RealtimeModel     string

	TranscriptFilePath string

	Translator       string
	TranslatorURL    string
	TranslatorAPIKey string

	Speaker        string
	SpeakerOutput  string
	SpeechVoice    string
	SpeechRate     float64
	SpeechPitch    float64
	SpeechVolumeDB float64

	DatabaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	DiscordToken          string
	DiscordGuildID        string
	DiscordTextChannelID  string
	DiscordVoiceChannelID string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.PhraseSize <= 0 || c.PhraseSize > maxPhraseSize {
		return fmt.Errorf("PHRASE_SIZE must be between 1 and %d, got %d", maxPhraseSize, c.PhraseSize)
	}
	if c.PlaybackTimeout <= 0 {
		return fmt.Errorf("PLAYBACK_TIMEOUT must be positive, got %s", c.PlaybackTimeout)
	}
	if c.TranslationTimeout <= 0 {
		return fmt.Errorf("TRANSLATION_TIMEOUT must be positive, got %s", c.TranslationTimeout)
	}
	if c.RecentTranslations <= 0 {
		return fmt.Errorf("RECENT_TRANSLATIONS must be positive, got %d", c.RecentTranslations)
	}
	if c.RecognizerMaxRestarts < 0 {
		return fmt.Errorf("RECOGNIZER_MAX_RESTARTS must not be negative, got %d", c.RecognizerMaxRestarts)
	}
	if c.RecognizerRestartInterval <= 0 {
		return fmt.Errorf("RECOGNIZER_RESTART_INTERVAL must be positive, got %s", c.RecognizerRestartInterval)
	}
	if err := c.validateTranscriptSource(); err != nil {
		return err
	}
	if err := c.validateTranslator(); err != nil {
		return err
	}
	return c.validateSpeaker()
}

func (c *Config) validateTranscriptSource() error {
	switch c.TranscriptSource {
	case TranscriptSourceCloudSpeech:
		return c.requireGoogleCloud("TRANSCRIPT_SOURCE=" + TranscriptSourceCloudSpeech)
	case TranscriptSourceRealtime:
		if c.RealtimeAPIKey == "" {
			return fmt.Errorf("REALTIME_API_KEY is required when TRANSCRIPT_SOURCE=%s", TranscriptSourceRealtime)
		}
		if c.RealtimeTokenURL == "" || c.RealtimeListenURL == "" {
			return fmt.Errorf("REALTIME_TOKEN_URL and REALTIME_LISTEN_URL are required when TRANSCRIPT_SOURCE=%s", TranscriptSourceRealtime)
		}
		return nil
	case TranscriptSourceFile:
		if c.TranscriptFilePath == "" {
			return fmt.Errorf("TRANSCRIPT_FILE_PATH is required when TRANSCRIPT_SOURCE=%s", TranscriptSourceFile)
		}
		return nil
	default:
		return fmt.Errorf("TRANSCRIPT_SOURCE is invalid: %q", c.TranscriptSource)
	}
}

func (c *Config) validateTranslator() error {
	switch c.Translator {
	case TranslatorLibreTranslate:
		if c.TranslatorURL == "" {
			return fmt.Errorf("TRANSLATOR_URL is required when TRANSLATOR=%s", TranslatorLibreTranslate)
		}
		return nil
	case TranslatorGoogle:
		return c.requireGoogleCloud("TRANSLATOR=" + TranslatorGoogle)
	default:
		return fmt.Errorf("TRANSLATOR is invalid: %q", c.Translator)
	}
}

func (c *Config) validateSpeaker() error {
	switch c.Speaker {
	case SpeakerLog:
	case SpeakerCloudTTS:
		if err := c.requireGoogleCloud("SPEAKER=" + SpeakerCloudTTS); err != nil {
			return err
		}
	default:
		return fmt.Errorf("SPEAKER is invalid: %q", c.Speaker)
	}
	switch c.SpeakerOutput {
	case SpeakerOutputLocal:
		return nil
	case SpeakerOutputDiscord:
		if !c.DiscordEnabled() || c.DiscordVoiceChannelID == "" {
			return fmt.Errorf("DISCORD_TOKEN, DISCORD_GUILD_ID and DISCORD_VOICE_CHANNEL_ID are required when SPEAKER_OUTPUT=%s", SpeakerOutputDiscord)
		}
		return nil
	default:
		return fmt.Errorf("SPEAKER_OUTPUT is invalid: %q", c.SpeakerOutput)
	}
}

func (c *Config) requireGoogleCloud(reason string) error {
	if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when %s", reason)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "SOURCE_LANGUAGE", value: c.SourceLanguage},
		{name: "TARGET_LANGUAGE", value: c.TargetLanguage},
		{name: "TARGET_LOCALE", value: c.TargetLocale},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// DiscordEnabled reports whether a bot token and guild are configured.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != "" && c.DiscordGuildID != ""
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) TranslationMemoryEnabled() bool {
	return c.DatabaseURL != ""
}
