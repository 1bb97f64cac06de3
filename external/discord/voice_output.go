package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	audioimpl "github.com/foxseedlab/tsuyaku/external/audio"
	"github.com/foxseedlab/tsuyaku/internal/audio"
	discordpkg "github.com/foxseedlab/tsuyaku/internal/discord"
)

// VoiceOutput plays synthesized speech into a voice channel. The channel is
// joined on the first utterance and kept until Close.
type VoiceOutput struct {
	client     discordpkg.Client
	guildID    string
	channelID  string
	newEncoder audio.OpusEncoderFactory

	mu   sync.Mutex
	conn discordpkg.VoiceConnection
	enc  audio.OpusEncoder
}

func NewVoiceOutput(client discordpkg.Client, guildID, channelID string, newEncoder audio.OpusEncoderFactory) *VoiceOutput {
	return &VoiceOutput{
		client:     client,
		guildID:    guildID,
		channelID:  channelID,
		newEncoder: newEncoder,
	}
}

func (o *VoiceOutput) SampleRate() int {
	return audioimpl.VoiceSampleRate
}

func (o *VoiceOutput) Play(ctx context.Context, pcm audio.PCM) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.ensureConnected(); err != nil {
		return err
	}

	stereo := audioimpl.Convert(pcm, audioimpl.VoiceSampleRate, audioimpl.VoiceChannels)
	frames := audioimpl.SplitFrames(stereo.Samples, audioimpl.VoiceFrameSamples)
	if len(frames) == 0 {
		return nil
	}
	if err := o.conn.Speaking(true); err != nil {
		slog.Warn("failed to set speaking state", "error", err, "guild_id", o.guildID, "channel_id", o.channelID)
	}
	defer func() {
		if err := o.conn.Speaking(false); err != nil {
			slog.Debug("failed to clear speaking state", "error", err, "guild_id", o.guildID)
		}
	}()

	for _, frame := range frames {
		packet, err := o.enc.Encode(frame)
		if err != nil {
			return fmt.Errorf("encode opus frame: %w", err)
		}
		if err := o.conn.SendOpus(ctx, packet); err != nil {
			return err
		}
	}
	return nil
}

func (o *VoiceOutput) ensureConnected() error {
	if o.enc == nil {
		if o.newEncoder == nil {
			return audio.ErrOpusUnavailable
		}
		enc, err := o.newEncoder(audioimpl.VoiceSampleRate, audioimpl.VoiceChannels)
		if err != nil {
			return err
		}
		o.enc = enc
	}
	if o.conn == nil {
		conn, err := o.client.JoinVoiceChannel(o.guildID, o.channelID)
		if err != nil {
			return fmt.Errorf("join voice channel: %w", err)
		}
		o.conn = conn
	}
	return nil
}

func (o *VoiceOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conn == nil {
		return nil
	}
	err := o.conn.Disconnect()
	o.conn = nil
	return err
}
