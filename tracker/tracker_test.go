package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/paritytech/collator-sentinel/alert"
	"github.com/paritytech/collator-sentinel/chain"
	"github.com/paritytech/collator-sentinel/collatorstate"
	"github.com/paritytech/collator-sentinel/types"
)

type fakeTransport struct {
	posts []string
}

func (f *fakeTransport) Post(_ string, body string) (*alert.MessageHandle, error) {
	f.posts = append(f.posts, body)
	return &alert.MessageHandle{ChannelID: "c", MessageID: "m"}, nil
}
func (f *fakeTransport) Edit(*alert.MessageHandle, string) error { return nil }
func (f *fakeTransport) Delete(*alert.MessageHandle) error       { return nil }

type fakeStorageReader struct {
	byKey map[string][]byte
}

func (f *fakeStorageReader) ReadStorageAt(_ context.Context, _ types.Hash, key []byte) ([]byte, error) {
	return f.byKey[string(key)], nil
}

func emptySequence() []byte { return []byte{0} } // compact length 0

func newTestTracker(t *testing.T, transport alert.Transport) *Tracker {
	t.Helper()
	deps := Deps{
		Network:      chain.NetworkA,
		Chain:        chain.AssetHub,
		CollatorAddr: types.Address{0x01},
		Alerts:       alert.New(transport, "chan"),
		Symbol:       "DOT",
		Decimals:     10,
	}
	var shutdown int32
	return New(deps, &shutdown)
}

func newReaderWithStatus(t *testing.T, keys collatorstate.StorageKeys, status []types.Candidate, invulnerable bool) *collatorstate.Reader {
	t.Helper()
	byKey := map[string][]byte{
		string(keys.Invulnerables): emptySequence(),
		string(keys.CandidateList): emptySequence(),
	}
	if invulnerable {
		var entries []byte
		entries = append(entries, byte(1<<2))
		entries = append(entries, types.Address{0x01}[:]...)
		byKey[string(keys.Invulnerables)] = entries
	}
	return collatorstate.New(&fakeStorageReader{byKey: byKey}, keys)
}

var testKeys = collatorstate.StorageKeys{
	Invulnerables: []byte("invulnerables"),
	CandidateList: []byte("candidates"),
}

func TestCheckStatusChangeSilentOnFirstObservation(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(t, ft)
	reader := newReaderWithStatus(t, testKeys, nil, false)

	tr.checkStatusChange(context.Background(), reader, types.Block{Number: 1})

	if len(ft.posts) != 0 {
		t.Fatalf("first observation must never alert, got %d posts", len(ft.posts))
	}
	if tr.TrackedStatus().Kind != types.StatusNotCollator {
		t.Fatalf("tracked status not recorded: %+v", tr.TrackedStatus())
	}
}

func TestCheckStatusChangeAlertsOnRemoval(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(t, ft)

	invulnerableReader := newReaderWithStatus(t, testKeys, nil, true)
	tr.checkStatusChange(context.Background(), invulnerableReader, types.Block{Number: 1})
	if len(ft.posts) != 0 {
		t.Fatal("first observation must stay silent")
	}

	notCollatorReader := newReaderWithStatus(t, testKeys, nil, false)
	tr.checkStatusChange(context.Background(), notCollatorReader, types.Block{Number: 2})

	if len(ft.posts) != 1 {
		t.Fatalf("expected a terminal alert on invulnerable->not-collator transition, got %d", len(ft.posts))
	}
}

func TestCheckStatusChangeNoAlertWhenUnchanged(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(t, ft)
	reader := newReaderWithStatus(t, testKeys, nil, false)

	tr.checkStatusChange(context.Background(), reader, types.Block{Number: 1})
	tr.checkStatusChange(context.Background(), reader, types.Block{Number: 2})

	if len(ft.posts) != 0 {
		t.Fatalf("expected no alert when status is unchanged, got %d", len(ft.posts))
	}
}

func TestCheckBlockGapOpensAlertWhenStale(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(t, ft)
	tr.mu.Lock()
	tr.info.TrackingSince = time.Now().Add(-2 * blockGapThreshold)
	tr.mu.Unlock()

	tr.checkBlockGap()

	if len(ft.posts) != 1 {
		t.Fatalf("expected a block-gap alert, got %d posts", len(ft.posts))
	}
}

func TestCheckBlockGapSilentWhenRecent(t *testing.T) {
	ft := &fakeTransport{}
	tr := newTestTracker(t, ft)
	now := time.Now()
	tr.mu.Lock()
	tr.info.LastAuthored = &now
	tr.mu.Unlock()

	tr.checkBlockGap()

	if len(ft.posts) != 0 {
		t.Fatalf("expected no alert for a recent block, got %d", len(ft.posts))
	}
}

func TestMarkConnectedClearsLastError(t *testing.T) {
	tr := newTestTracker(t, &fakeTransport{})
	tr.markDisconnected("endpoint unreachable")
	if tr.Info().IsConnected {
		t.Fatal("expected disconnected state")
	}
	tr.markConnected()
	info := tr.Info()
	if !info.IsConnected || info.LastError != "" {
		t.Fatalf("expected connected state with cleared error, got %+v", info)
	}
}

func TestConnectAnyExhaustsEndpointList(t *testing.T) {
	deps := Deps{Endpoints: []string{"ws://127.0.0.1:1", "ws://127.0.0.1:2"}}
	var shutdown int32
	tr := New(deps, &shutdown)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := tr.connectAny(ctx)
	if err == nil {
		t.Fatal("expected every endpoint to fail to connect")
	}
}
