package pipeline

import "strings"

// Phrase is a group of words in speech order. Seq starts at 1 for every
// session and increases by one per emitted phrase.
type Phrase struct {
	Seq   uint64
	Words []string
}

func (p Phrase) Text() string {
	return strings.Join(p.Words, " ")
}

type TranslatedPhrase struct {
	Source Phrase
	Text   string
	Locale string
}
