package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/foxseedlab/tsuyaku/internal/token"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"github.com/gorilla/websocket"
)

const (
	realtimeAudioBuffer = 32
	realtimeCloseGrace  = 2 * time.Second
)

type RealtimeConfig struct {
	ListenURL string
	Model     string
}

// RealtimeTranscriber streams audio to a token-authenticated websocket
// recognizer. Every stream needs a freshly granted token.
type RealtimeTranscriber struct {
	cfg    RealtimeConfig
	dialer *websocket.Dialer
}

func NewRealtimeTranscriber(cfg RealtimeConfig) *RealtimeTranscriber {
	if cfg.ListenURL == "" {
		cfg.ListenURL = "wss://api.deepgram.com/v1/listen"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &RealtimeTranscriber{cfg: cfg, dialer: websocket.DefaultDialer}
}

func (t *RealtimeTranscriber) Capabilities() transcriber.Capabilities {
	return transcriber.Capabilities{NeedsToken: true, NeedsAudio: true}
}

func (t *RealtimeTranscriber) StartStreaming(ctx context.Context, req transcriber.StreamRequest, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, fmt.Errorf("%w: realtime stream requires a token", token.ErrAuthentication)
	}
	wsURL, err := buildListenURL(t.cfg, req.Language)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+req.Token)
	conn, resp, err := t.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: realtime recognizer rejected token (status %d)", token.ErrAuthentication, resp.StatusCode)
		}
		return nil, fmt.Errorf("connect realtime recognizer: %w", err)
	}
	slog.Info("realtime recognizer stream opened", "session_id", req.SessionID, "language", req.Language, "model", t.cfg.Model)

	s := &realtimeStream{
		sessionID: req.SessionID,
		conn:      conn,
		audio:     make(chan []byte, realtimeAudioBuffer),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop(receiver)
	go s.writeLoop()
	go func() {
		s.wg.Wait()
		_ = conn.Close()
		close(s.done)
	}()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

type realtimeStream struct {
	sessionID string
	conn      *websocket.Conn
	audio     chan []byte
	stop      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup

	closeSendOnce sync.Once
	closeOnce     sync.Once
}

func (s *realtimeStream) Write(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	select {
	case <-s.stop:
		return errors.New("realtime stream is closed")
	default:
	}
	chunk := append([]byte(nil), pcm...)
	select {
	case s.audio <- chunk:
		return nil
	case <-s.stop:
		return errors.New("realtime stream is closed")
	case <-s.done:
		return errors.New("realtime stream ended")
	}
}

func (s *realtimeStream) closeSend() {
	s.closeSendOnce.Do(func() { close(s.stop) })
}

// Close asks the recognizer to finish and waits briefly for its last results
// before dropping the connection.
func (s *realtimeStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeSend()
		timer := time.NewTimer(realtimeCloseGrace)
		defer timer.Stop()
		select {
		case <-s.done:
		case <-timer.C:
			_ = s.conn.Close()
			<-s.done
		}
	})
	return nil
}

func (s *realtimeStream) Done() <-chan struct{} {
	return s.done
}

func (s *realtimeStream) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case chunk := <-s.audio:
			if !s.send(chunk) {
				return
			}
		case <-s.stop:
			if !s.drain() {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
				slog.Debug("failed to send close message to realtime recognizer", "error", err, "session_id", s.sessionID)
			}
			return
		}
	}
}

// drain sends audio that was buffered before the stop.
func (s *realtimeStream) drain() bool {
	for {
		select {
		case chunk := <-s.audio:
			if !s.send(chunk) {
				return false
			}
		default:
			return true
		}
	}
}

func (s *realtimeStream) send(chunk []byte) bool {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		slog.Warn("failed to send audio to realtime recognizer", "error", err, "session_id", s.sessionID)
		return false
	}
	return true
}

func (s *realtimeStream) readLoop(receiver transcriber.ResultReceiver) {
	defer s.wg.Done()
	// A finished read loop means the stream is over; unblock the writer too.
	defer s.closeSend()
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.Info("realtime recognizer closed the stream", "session_id", s.sessionID)
				return
			}
			select {
			case <-s.stop:
				slog.Info("realtime recognizer stream closed locally", "session_id", s.sessionID, "reason", err.Error())
				return
			default:
			}
			receiver.OnError(fmt.Errorf("read realtime recognizer: %w", err))
			return
		}

		var msg realtimeMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			slog.Debug("ignoring undecodable realtime message", "error", err, "session_id", s.sessionID)
			continue
		}
		if strings.EqualFold(msg.Type, "Error") {
			message := strings.TrimSpace(msg.Message)
			if message == "" {
				message = "realtime recognizer returned an unknown error"
			}
			receiver.OnError(errors.New(message))
			return
		}
		text := msg.transcript()
		if text == "" {
			continue
		}
		receiver.OnRevision(transcriber.Revision{IsFinal: msg.IsFinal || msg.SpeechFinal, Text: text})
	}
}

type realtimeAlternative struct {
	Transcript string `json:"transcript"`
}

type realtimeMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []realtimeAlternative `json:"alternatives"`
	} `json:"channel"`
}

func (m realtimeMessage) transcript() string {
	if len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg RealtimeConfig, language string) (string, error) {
	base := strings.TrimSpace(cfg.ListenURL)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	listenURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid realtime listen URL: %w", err)
	}
	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(audio.CaptureSampleRate))
	query.Set("channels", strconv.Itoa(audio.CaptureChannels))
	query.Set("interim_results", "true")
	query.Set("punctuate", "true")
	if language != "" {
		query.Set("language", language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
