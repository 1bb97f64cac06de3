package pipeline

import "sync"

// History keeps the most recent completed translations, newest first.
type History struct {
	mu    sync.RWMutex
	limit int
	items []TranslatedPhrase
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 1
	}
	return &History{limit: limit}
}

func (h *History) Add(tp TranslatedPhrase) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append([]TranslatedPhrase{tp}, h.items...)
	if len(h.items) > h.limit {
		h.items = h.items[:h.limit]
	}
}

func (h *History) Items() []TranslatedPhrase {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]TranslatedPhrase(nil), h.items...)
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = nil
}
