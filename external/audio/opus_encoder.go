//go:build opus

package audio

import (
	"fmt"

	"github.com/foxseedlab/tsuyaku/internal/audio"
	"github.com/hraban/opus"
)

const maxOpusPacketBytes = 4000

type OpusEncoder struct {
	enc *opus.Encoder
	buf []byte
}

func NewOpusEncoder(sampleRate, channels int) (audio.OpusEncoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	return &OpusEncoder{enc: enc, buf: make([]byte, maxOpusPacketBytes)}, nil
}

func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	n, err := e.enc.Encode(pcm, e.buf)
	if err != nil {
		return nil, err
	}
	packet := make([]byte, n)
	copy(packet, e.buf[:n])
	return packet, nil
}
