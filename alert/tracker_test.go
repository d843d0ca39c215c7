package alert

import (
	"sync"
	"testing"
	"time"
)

type fakeTransport struct {
	mu      sync.Mutex
	posts   []string
	edits   []string
	deletes int
	nextID  int
}

func (f *fakeTransport) Post(_ string, body string) (*MessageHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, body)
	f.nextID++
	return &MessageHandle{ChannelID: "c", MessageID: "m"}, nil
}

func (f *fakeTransport) Edit(_ *MessageHandle, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, body)
	return nil
}

func (f *fakeTransport) Delete(*MessageHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

func newTestTracker(transport Transport) *Tracker {
	tr := New(transport, "chan")
	return tr
}

func TestAtMostOneOpenAlertPerChainAndKind(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(ft)

	tr.OpenOrUpdate("AssetHub", Disconnected, "down")
	tr.OpenOrUpdate("AssetHub", Disconnected, "still down")
	tr.OpenOrUpdate("AssetHub", Disconnected, "still down")

	if len(ft.posts) != 1 {
		t.Fatalf("expected exactly one post, got %d: %v", len(ft.posts), ft.posts)
	}
	if len(ft.edits) != 2 {
		t.Fatalf("expected two edits for repeated open_or_update, got %d", len(ft.edits))
	}
}

func TestResolveClearsRateLimitStamp(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(ft)
	fixedNow := time.Now()
	tr.now = func() time.Time { return fixedNow }

	tr.OpenOrUpdate("Coretime", InsufficientFunds, "need more")
	tr.Resolve("Coretime", InsufficientFunds, "resolved") // clears, so next post isn't suppressed by this one
	tr.OpenOrUpdate("Coretime", InsufficientFunds, "need more again")

	if len(ft.posts) != 2 {
		t.Fatalf("expected 2 posts (post, resolve cleared rate limit, post again), got %d", len(ft.posts))
	}

	// Repeat with CannotCompete: every resolve clears the stamp, so each
	// re-open within the same instant still posts.
	tr2 := newTestTracker(ft)
	tr2.now = func() time.Time { return fixedNow }
	tr2.OpenOrUpdate("Coretime", CannotCompete, "body1")
	tr2.Resolve("Coretime", CannotCompete, "resolved")
	tr2.OpenOrUpdate("Coretime", CannotCompete, "body2")
	tr2.Resolve("Coretime", CannotCompete, "resolved2")
	// third open within same instant: rate bucket was cleared by the second
	// resolve too, so this should still post.
	tr2.OpenOrUpdate("Coretime", CannotCompete, "body3")
	if len(ft.posts) < 4 {
		t.Fatalf("resolve must clear the rate-limit stamp so a fresh issue posts immediately")
	}
}

func TestResolveAllowsExactlyOneMorePost(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(ft)
	fixedNow := time.Now()
	tr.now = func() time.Time { return fixedNow }

	key := "People"
	tr.OpenOrUpdate(key, ManualAction, "body1")
	tr.Resolve(key, ManualAction, "resolved") // open cleared, rate stamp set during OpenOrUpdate then cleared by Resolve
	// a second open/resolve cycle, then an open that stays open
	tr.OpenOrUpdate(key, ManualAction, "body2")
	tr.Resolve(key, ManualAction, "resolved2")
	tr.OpenOrUpdate(key, ManualAction, "body3")

	// body3's alert is open and its rate stamp was just set; resolving it
	// clears both, so an open at the same instant posts exactly once more.
	before := len(ft.posts)
	tr.Resolve(key, ManualAction, "resolved3")
	tr.OpenOrUpdate(key, ManualAction, "body4")
	after := len(ft.posts)
	if after != before+1 {
		t.Fatalf("expected resolve to clear the rate stamp enabling exactly one more post, got %d->%d", before, after)
	}
}

func TestOpenAlertIdempotentBodyProducesNoNewMessages(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(ft)

	tr.OpenOrUpdate("People", BlockGap, "gap body")
	for i := 0; i < 5; i++ {
		tr.OpenOrUpdate("People", BlockGap, "gap body")
	}
	if len(ft.posts) != 1 {
		t.Fatalf("expected exactly one post, got %d", len(ft.posts))
	}
	if len(ft.edits) != 5 {
		t.Fatalf("expected 5 edits, got %d", len(ft.edits))
	}
}

func TestResolveSchedulesDelete(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(ft)
	tr.deleteDelay = 20 * time.Millisecond

	tr.OpenOrUpdate("Coretime", Disconnected, "down")
	tr.Resolve("Coretime", Disconnected, "back up")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ft.mu.Lock()
		d := ft.deletes
		ft.mu.Unlock()
		if d > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected delete to be invoked eventually after resolve (test uses a shortened delay path)")
}
