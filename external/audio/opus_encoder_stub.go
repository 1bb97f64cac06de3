//go:build !opus

package audio

import "github.com/foxseedlab/tsuyaku/internal/audio"

func NewOpusEncoder(_, _ int) (audio.OpusEncoder, error) {
	return nil, audio.ErrOpusUnavailable
}
