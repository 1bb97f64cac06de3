package pipeline

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/foxseedlab/tsuyaku/internal/transcriber"
)

// Segmenter turns overlapping partial and final revisions into phrases of
// exactly size words, in speech order, with every word emitted once.
//
// The ledger holds every word already consumed. A final strips the longest
// of two baselines that prefixes it: the words of the current partial that
// were already phrased, or the whole ledger. A final that extends neither is
// reprocessed in full, accepting a possible duplicate over losing speech.
//
// Words left over after a final are carried into the next revision instead
// of being emitted short; only Flush emits a short phrase.
//
// Segmenter is not safe for concurrent use.
type Segmenter struct {
	size int

	ledger       []string
	partialWords []string
	// phrased holds the words of the current utterance already placed in
	// phrases. It survives a partial revised shorter than itself.
	phrased []string
	carry   []string
	lastSeq uint64
}

func NewSegmenter(size int) *Segmenter {
	if size <= 0 {
		size = 1
	}
	return &Segmenter{size: size}
}

func (s *Segmenter) OnRevision(rev transcriber.Revision) []Phrase {
	words := strings.Fields(rev.Text)
	if rev.IsFinal {
		return s.onFinal(words)
	}
	return s.onPartial(words)
}

func (s *Segmenter) onPartial(words []string) []Phrase {
	s.partialWords = words
	if len(s.phrased) >= len(words) {
		return nil
	}
	fresh := words[len(s.phrased):]
	var out []Phrase
	for len(s.carry)+len(fresh) >= s.size {
		take := s.size - len(s.carry)
		group := make([]string, 0, s.size)
		group = append(group, s.carry...)
		group = append(group, fresh[:take]...)
		s.ledger = append(s.ledger, fresh[:take]...)
		s.phrased = append(s.phrased, fresh[:take]...)
		s.carry = nil
		fresh = fresh[take:]
		out = append(out, s.newPhrase(group))
	}
	return out
}

func (s *Segmenter) onFinal(words []string) []Phrase {
	consumed := s.consumedPrefix(words)
	suffix := words[consumed:]
	s.ledger = append(s.ledger, suffix...)
	s.partialWords = nil
	s.phrased = nil
	return s.group(suffix, false)
}

// consumedPrefix returns how many leading words of a final were already
// consumed, per the two baselines.
func (s *Segmenter) consumedPrefix(words []string) int {
	phrased := s.phrased
	best := 0
	if len(phrased) > 0 && hasWordPrefix(words, phrased) {
		best = len(phrased)
	}
	if len(s.ledger) > best && hasWordPrefix(words, s.ledger) {
		best = len(s.ledger)
	}
	if best == 0 && len(phrased) > 0 {
		slog.Debug("final does not extend consumed text; reprocessing whole revision",
			"final_words", len(words),
			"phrased_partial_words", len(phrased),
			"ledger_words", len(s.ledger))
	}
	return best
}

func (s *Segmenter) unphrasedPartial() []string {
	if len(s.phrased) >= len(s.partialWords) {
		return nil
	}
	return s.partialWords[len(s.phrased):]
}

// Interrupt ends the current utterance without a final, as happens when the
// transcript stream restarts. Words of the last partial that were not yet
// phrased join the carried remainder.
func (s *Segmenter) Interrupt() []Phrase {
	pending := s.unphrasedPartial()
	s.ledger = append(s.ledger, pending...)
	s.partialWords = nil
	s.phrased = nil
	return s.group(pending, false)
}

// Flush emits every remaining word, the last phrase possibly short, and
// clears all state.
func (s *Segmenter) Flush() []Phrase {
	pending := s.unphrasedPartial()
	out := s.group(pending, true)
	s.Reset()
	return out
}

func (s *Segmenter) Reset() {
	s.ledger = nil
	s.partialWords = nil
	s.phrased = nil
	s.carry = nil
	s.lastSeq = 0
}

// Ledger returns the consumed words joined by single spaces.
func (s *Segmenter) Ledger() string {
	return strings.Join(s.ledger, " ")
}

func (s *Segmenter) Pending() int {
	return len(s.carry) + len(s.unphrasedPartial())
}

func (s *Segmenter) group(words []string, flush bool) []Phrase {
	buffer := make([]string, 0, len(s.carry)+len(words))
	buffer = append(buffer, s.carry...)
	buffer = append(buffer, words...)
	var out []Phrase
	for len(buffer) >= s.size {
		out = append(out, s.newPhrase(buffer[:s.size:s.size]))
		buffer = buffer[s.size:]
	}
	s.carry = nil
	if len(buffer) == 0 {
		return out
	}
	if flush {
		return append(out, s.newPhrase(buffer))
	}
	s.carry = append([]string(nil), buffer...)
	return out
}

func (s *Segmenter) newPhrase(words []string) Phrase {
	s.lastSeq++
	return Phrase{Seq: s.lastSeq, Words: append([]string(nil), words...)}
}

func hasWordPrefix(words, prefix []string) bool {
	if len(prefix) > len(words) {
		return false
	}
	for i := range prefix {
		if normalizeWord(words[i]) != normalizeWord(prefix[i]) {
			return false
		}
	}
	return true
}

// normalizeWord folds case and trims surrounding punctuation so a final that
// only re-capitalizes or re-punctuates its partial still matches.
func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
}
