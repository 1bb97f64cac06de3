package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/foxseedlab/tsuyaku/internal/events"
	"github.com/segmentio/kafka-go"
)

type mockWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestNewKafkaPublisher_DisabledWithoutBrokers(t *testing.T) {
	p := NewKafkaPublisher(KafkaConfig{Topic: "tsuyaku.pipeline"})
	if p.enabled || p.writer != nil {
		t.Fatal("expected log-only publisher")
	}
	if err := p.Publish(context.Background(), events.Event{Kind: events.KindPhraseQueued}); err != nil {
		t.Fatalf("expected no error when disabled, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestNewKafkaPublisher_EnabledWithBrokers(t *testing.T) {
	p := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	if !p.enabled || p.writer == nil {
		t.Fatal("expected enabled publisher")
	}
	_ = p.Close()
}

func TestKafkaPublisher_WritesKeyedJSON(t *testing.T) {
	w := &mockWriter{}
	p := &KafkaPublisher{writer: w, topic: "t", enabled: true}

	err := p.Publish(context.Background(), events.Event{Kind: events.KindPhraseTranslated, SessionID: "s1", Seq: 4, TranslatedText: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.messages))
	}
	msg := w.messages[0]
	if string(msg.Key) != "s1" {
		t.Fatalf("unexpected key: %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != string(events.KindPhraseTranslated) {
		t.Fatalf("unexpected headers: %+v", msg.Headers)
	}
	var got events.Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if got.Seq != 4 || got.TranslatedText != "hello" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &mockWriter{err: errors.New("broker down")}, topic: "t", enabled: true}
	if err := p.Publish(context.Background(), events.Event{Kind: events.KindSessionStopped}); err == nil {
		t.Fatal("expected error")
	}
}
