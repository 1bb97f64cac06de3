package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/tsuyaku/internal/config"
)

type envConfig struct {
	Env                        string        `env:"ENV" envDefault:"production"`
	HTTPAddr                   string        `env:"HTTP_ADDR" envDefault:":8080"`
	SourceLanguage             string        `env:"SOURCE_LANGUAGE,required"`
	TargetLanguage             string        `env:"TARGET_LANGUAGE" envDefault:"en"`
	TargetLocale               string        `env:"TARGET_LOCALE" envDefault:"en-US"`
	PhraseSize                 int           `env:"PHRASE_SIZE" envDefault:"10"`
	PlaybackTimeout            time.Duration `env:"PLAYBACK_TIMEOUT" envDefault:"15s"`
	TranslationTimeout         time.Duration `env:"TRANSLATION_TIMEOUT" envDefault:"10s"`
	RecentTranslations         int           `env:"RECENT_TRANSLATIONS" envDefault:"3"`
	TranscriptSource           string        `env:"TRANSCRIPT_SOURCE" envDefault:"cloud-speech"`
	RecognizerMaxRestarts      int           `env:"RECOGNIZER_MAX_RESTARTS" envDefault:"5"`
	RecognizerRestartInterval  time.Duration `env:"RECOGNIZER_RESTART_INTERVAL" envDefault:"2s"`
	GoogleCloudProjectID       string        `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string        `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string        `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"asia-northeast1"`
	GoogleCloudSpeechModel     string        `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	RealtimeAPIKey             string        `env:"REALTIME_API_KEY"`
	RealtimeTokenURL           string        `env:"REALTIME_TOKEN_URL" envDefault:"https://api.deepgram.com/v1/auth/grant"`
	RealtimeListenURL          string        `env:"REALTIME_LISTEN_URL" envDefault:"wss://api.deepgram.com/v1/listen"`
	RealtimeModel              string        `env:"REALTIME_MODEL" envDefault:"nova-2"`
	TranscriptFilePath         string        `env:"TRANSCRIPT_FILE_PATH"`
	Translator                 string        `env:"TRANSLATOR" envDefault:"libretranslate"`
	TranslatorURL              string        `env:"TRANSLATOR_URL" envDefault:"http://localhost:5000/translate"`
	TranslatorAPIKey           string        `env:"TRANSLATOR_API_KEY"`
	Speaker                    string        `env:"SPEAKER" envDefault:"cloud-tts"`
	SpeakerOutput              string        `env:"SPEAKER_OUTPUT" envDefault:"local"`
	SpeechVoice                string        `env:"SPEECH_VOICE"`
	SpeechRate                 float64       `env:"SPEECH_RATE" envDefault:"1.0"`
	SpeechPitch                float64       `env:"SPEECH_PITCH" envDefault:"0"`
	SpeechVolumeDB             float64       `env:"SPEECH_VOLUME_DB" envDefault:"0"`
	DatabaseURL                string        `env:"DATABASE_URL"`
	KafkaBrokers               []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic                 string        `env:"KAFKA_TOPIC" envDefault:"tsuyaku.pipeline"`
	DiscordToken               string        `env:"DISCORD_TOKEN"`
	DiscordGuildID             string        `env:"DISCORD_GUILD_ID"`
	DiscordTextChannelID       string        `env:"DISCORD_TEXT_CHANNEL_ID"`
	DiscordVoiceChannelID      string        `env:"DISCORD_VOICE_CHANNEL_ID"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	return fromEnv(raw)
}

func fromEnv(raw envConfig) (*internalconfig.Config, error) {
	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPAddr:                   raw.HTTPAddr,
		SourceLanguage:             raw.SourceLanguage,
		TargetLanguage:             raw.TargetLanguage,
		TargetLocale:               raw.TargetLocale,
		PhraseSize:                 raw.PhraseSize,
		PlaybackTimeout:            raw.PlaybackTimeout,
		TranslationTimeout:         raw.TranslationTimeout,
		RecentTranslations:         raw.RecentTranslations,
		TranscriptSource:           raw.TranscriptSource,
		RecognizerMaxRestarts:      raw.RecognizerMaxRestarts,
		RecognizerRestartInterval:  raw.RecognizerRestartInterval,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		RealtimeAPIKey:             raw.RealtimeAPIKey,
		RealtimeTokenURL:           raw.RealtimeTokenURL,
		RealtimeListenURL:          raw.RealtimeListenURL,
		RealtimeModel:              raw.RealtimeModel,
		TranscriptFilePath:         raw.TranscriptFilePath,
		Translator:                 raw.Translator,
		TranslatorURL:              raw.TranslatorURL,
		TranslatorAPIKey:           raw.TranslatorAPIKey,
		Speaker:                    raw.Speaker,
		SpeakerOutput:              raw.SpeakerOutput,
		SpeechVoice:                raw.SpeechVoice,
		SpeechRate:                 raw.SpeechRate,
		SpeechPitch:                raw.SpeechPitch,
		SpeechVolumeDB:             raw.SpeechVolumeDB,
		DatabaseURL:                raw.DatabaseURL,
		KafkaBrokers:               raw.KafkaBrokers,
		KafkaTopic:                 raw.KafkaTopic,
		DiscordToken:               raw.DiscordToken,
		DiscordGuildID:             raw.DiscordGuildID,
		DiscordTextChannelID:       raw.DiscordTextChannelID,
		DiscordVoiceChannelID:      raw.DiscordVoiceChannelID,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
