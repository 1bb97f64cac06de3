package discord

import (
	"context"
	"errors"
	"testing"

	audioimpl "github.com/foxseedlab/tsuyaku/external/audio"
	"github.com/foxseedlab/tsuyaku/internal/audio"
	discordpkg "github.com/foxseedlab/tsuyaku/internal/discord"
)

type mockVoiceConnection struct {
	speaking     []bool
	frames       [][]byte
	disconnected bool
}

func (m *mockVoiceConnection) Speaking(speaking bool) error {
	m.speaking = append(m.speaking, speaking)
	return nil
}

func (m *mockVoiceConnection) SendOpus(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.frames = append(m.frames, frame)
	return nil
}

func (m *mockVoiceConnection) Disconnect() error {
	m.disconnected = true
	return nil
}

type mockClient struct {
	conn     *mockVoiceConnection
	joinErr  error
	joins    int
	messages []string
}

func (m *mockClient) Connect(context.Context) error { return nil }
func (m *mockClient) Close() error                  { return nil }
func (m *mockClient) JoinVoiceChannel(_, _ string) (discordpkg.VoiceConnection, error) {
	m.joins++
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	return m.conn, nil
}
func (m *mockClient) SendChannelMessage(_, content string) error {
	m.messages = append(m.messages, content)
	return nil
}
func (m *mockClient) RegisterSlashCommandHandler(func(discordpkg.SlashCommandEvent)) {}
func (m *mockClient) UpsertGuildSlashCommands(string, []discordpkg.SlashCommandDefinition) error {
	return nil
}

type mockEncoder struct {
	frameSizes []int
}

func (m *mockEncoder) Encode(pcm []int16) ([]byte, error) {
	m.frameSizes = append(m.frameSizes, len(pcm))
	return []byte{byte(len(m.frameSizes))}, nil
}

func TestVoiceOutput_EncodesStereoFrames(t *testing.T) {
	conn := &mockVoiceConnection{}
	client := &mockClient{conn: conn}
	enc := &mockEncoder{}
	var gotRate, gotChannels int
	out := NewVoiceOutput(client, "guild-1", "vc-1", func(rate, channels int) (audio.OpusEncoder, error) {
		gotRate, gotChannels = rate, channels
		return enc, nil
	})

	// 30 ms of 24 kHz mono becomes two 20 ms stereo frames at 48 kHz.
	pcm := audio.PCM{Samples: make([]int16, 720), SampleRate: 24000, Channels: 1}
	if err := out.Play(context.Background(), pcm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotRate != 48000 || gotChannels != 2 {
		t.Fatalf("unexpected encoder format: %d Hz, %d ch", gotRate, gotChannels)
	}
	if len(conn.frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(conn.frames))
	}
	for _, n := range enc.frameSizes {
		if n != audioimpl.VoiceFrameSamples {
			t.Fatalf("expected frames of %d samples, got %d", audioimpl.VoiceFrameSamples, n)
		}
	}
	if len(conn.speaking) != 2 || !conn.speaking[0] || conn.speaking[1] {
		t.Fatalf("unexpected speaking transitions: %v", conn.speaking)
	}

	if err := out.Play(context.Background(), pcm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.joins != 1 {
		t.Fatalf("expected one voice join, got %d", client.joins)
	}
	if err := out.Close(); err != nil || !conn.disconnected {
		t.Fatalf("expected disconnect on close, err=%v", err)
	}
}

func TestVoiceOutput_JoinFailure(t *testing.T) {
	client := &mockClient{joinErr: errors.New("missing permission")}
	out := NewVoiceOutput(client, "guild-1", "vc-1", func(int, int) (audio.OpusEncoder, error) {
		return &mockEncoder{}, nil
	})
	if err := out.Play(context.Background(), audio.PCM{Samples: []int16{1}, SampleRate: 48000, Channels: 2}); err == nil {
		t.Fatal("expected join error")
	}
}

func TestVoiceOutput_OpusUnavailable(t *testing.T) {
	out := NewVoiceOutput(&mockClient{conn: &mockVoiceConnection{}}, "guild-1", "vc-1", func(int, int) (audio.OpusEncoder, error) {
		return nil, audio.ErrOpusUnavailable
	})
	err := out.Play(context.Background(), audio.PCM{Samples: []int16{1}, SampleRate: 48000, Channels: 2})
	if !errors.Is(err, audio.ErrOpusUnavailable) {
		t.Fatalf("expected ErrOpusUnavailable, got %v", err)
	}
}

func TestVoiceOutput_CanceledContextStopsPlayback(t *testing.T) {
	conn := &mockVoiceConnection{}
	out := NewVoiceOutput(&mockClient{conn: conn}, "guild-1", "vc-1", func(int, int) (audio.OpusEncoder, error) {
		return &mockEncoder{}, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := out.Play(ctx, audio.PCM{Samples: make([]int16, 4000), SampleRate: 48000, Channels: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(conn.frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(conn.frames))
	}
}
