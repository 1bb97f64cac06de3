package transcriber

import (
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/transcriber"
)

type collectingReceiver struct {
	mu        sync.Mutex
	revisions []transcriber.Revision
	errs      []error
}

func (r *collectingReceiver) OnRevision(rev transcriber.Revision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revisions = append(r.revisions, rev)
}

func (r *collectingReceiver) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *collectingReceiver) snapshot() []transcriber.Revision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transcriber.Revision(nil), r.revisions...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("channel not closed before deadline")
	}
}
