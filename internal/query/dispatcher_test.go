package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlauncher/lumen/internal/catalog"
	"github.com/lumenlauncher/lumen/internal/config"
	lumenerrors "github.com/lumenlauncher/lumen/internal/errors"
	"github.com/lumenlauncher/lumen/internal/match"
	"github.com/lumenlauncher/lumen/internal/normalize"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		ResultCap:    25,
		QueryTimeout: 5 * time.Second,
		Workers:      4,
		Matcher:      match.DefaultName,
	}
}

type fixture struct {
	store      *catalog.Store
	registry   *match.Registry
	dispatcher *Dispatcher
}

func newFixture(t *testing.T, cfg config.EngineConfig) *fixture {
	t.Helper()
	n := normalize.New()
	reg := match.NewRegistry()
	store := catalog.NewStore(n, reg)
	d, err := NewDispatcher(store, n, cfg)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	t.Cleanup(store.Close)
	return &fixture{store: store, registry: reg, dispatcher: d}
}

func (f *fixture) seedApps(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Upsert("calc", []string{"Calculator"}, nil))
	require.NoError(t, f.store.Upsert("notes", []string{"Notepad"}, nil))
	require.NoError(t, f.store.Upsert("cmd", []string{"Command Prompt"}, nil))
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session %s did not finish", h.ID())
	}
}

func receive(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no result delivered")
		return Result{}
	}
}

// gateMatcher blocks every Match call until the gate is opened, then
// delegates to the default matcher.
type gateMatcher struct {
	open  chan struct{}
	inner match.Subsequence
}

func (m *gateMatcher) Match(query, label match.Text) (match.Result, bool) {
	<-m.open
	return m.inner.Match(query, label)
}

// slowMatcher stalls long enough for a short session deadline to fire.
type slowMatcher struct {
	delay time.Duration
	inner match.Subsequence
}

func (m *slowMatcher) Match(query, label match.Text) (match.Result, bool) {
	time.Sleep(m.delay)
	return m.inner.Match(query, label)
}

func TestDispatcher_EndToEnd(t *testing.T) {
	f := newFixture(t, testEngineConfig())
	f.seedApps(t)

	results := f.dispatcher.Results("main")
	h, err := f.dispatcher.Submit("main", "calc")
	require.NoError(t, err)

	r := receive(t, results)
	waitDone(t, h)

	assert.Equal(t, StateCompleted, h.State())
	assert.NoError(t, h.Err())
	assert.Equal(t, "main", r.StreamID)
	assert.Equal(t, "calc", r.Query)
	require.Len(t, r.Matches, 1)
	top := r.Matches[0]
	assert.Equal(t, "calc", top.ItemID)
	assert.Equal(t, "Calculator", top.Label)
	assert.Equal(t, []match.Span{{Start: 0, Len: 4}}, top.Spans)
	assert.Positive(t, top.Score)
}

func TestDispatcher_EmptyQueryReturnsWholeCatalog(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MinScore = 300 // the threshold must not apply to browsing
	f := newFixture(t, cfg)
	f.seedApps(t)

	results := f.dispatcher.Results("main")
	h, err := f.dispatcher.Submit("main", "")
	require.NoError(t, err)

	r := receive(t, results)
	waitDone(t, h)

	require.Len(t, r.Matches, 3)
	for _, m := range r.Matches {
		assert.Zero(t, m.Score)
	}
}

func TestDispatcher_RanksAcrossItems(t *testing.T) {
	f := newFixture(t, testEngineConfig())
	f.seedApps(t)

	results := f.dispatcher.Results("main")
	_, err := f.dispatcher.Submit("main", "cp")
	require.NoError(t, err)

	r := receive(t, results)
	require.NotEmpty(t, r.Matches)
	// The acronym of "Command Prompt" beats any scattered match.
	assert.Equal(t, "cmd", r.Matches[0].ItemID)
}

func TestDispatcher_MinScoreFiltersWeakMatches(t *testing.T) {
	cfg := testEngineConfig()
	cfg.MinScore = 300
	f := newFixture(t, cfg)
	require.NoError(t, f.store.Upsert("calc", []string{"Calculator"}, nil))
	// "calc" only matches this one scattered, far below the threshold.
	require.NoError(t, f.store.Upsert("cache", []string{"Colossal Cache"}, nil))

	results := f.dispatcher.Results("main")
	h, err := f.dispatcher.Submit("main", "calc")
	require.NoError(t, err)

	r := receive(t, results)
	waitDone(t, h)

	require.Len(t, r.Matches, 1)
	assert.Equal(t, "calc", r.Matches[0].ItemID)
}

func TestDispatcher_ResultCapAppliesPerDelivery(t *testing.T) {
	cfg := testEngineConfig()
	cfg.ResultCap = 2
	f := newFixture(t, cfg)
	f.seedApps(t)

	results := f.dispatcher.Results("main")
	_, err := f.dispatcher.Submit("main", "")
	require.NoError(t, err)

	r := receive(t, results)
	assert.Len(t, r.Matches, 2)
}

func TestDispatcher_NewerSubmissionSupersedesOlder(t *testing.T) {
	f := newFixture(t, testEngineConfig())

	gate := &gateMatcher{open: make(chan struct{})}
	require.NoError(t, f.registry.Register("gate", gate))
	require.NoError(t, f.store.UpsertSpec(catalog.Spec{
		ID: "calc", Labels: []string{"Calculator"}, Matcher: "gate",
	}))

	results := f.dispatcher.Results("main")

	h1, err := f.dispatcher.Submit("main", "first")
	require.NoError(t, err)
	h2, err := f.dispatcher.Submit("main", "second")
	require.NoError(t, err)

	// Both sessions are parked on the gate (or the first was cancelled
	// before it ever started). Opening the gate lets them race; only the
	// newer one may deliver.
	close(gate.open)

	waitDone(t, h1)
	waitDone(t, h2)

	assert.Equal(t, StateCancelled, h1.State())
	assert.True(t, lumenerrors.IsCancelled(h1.Err()))
	assert.Equal(t, StateCompleted, h2.State())
	assert.NoError(t, h2.Err())

	r := receive(t, results)
	assert.Equal(t, "second", r.Query)

	select {
	case stale := <-results:
		t.Fatalf("stale delivery for query %q", stale.Query)
	default:
	}
}

func TestDispatcher_CancelStream(t *testing.T) {
	f := newFixture(t, testEngineConfig())

	gate := &gateMatcher{open: make(chan struct{})}
	require.NoError(t, f.registry.Register("gate", gate))
	require.NoError(t, f.store.UpsertSpec(catalog.Spec{
		ID: "calc", Labels: []string{"Calculator"}, Matcher: "gate",
	}))

	results := f.dispatcher.Results("main")
	h, err := f.dispatcher.Submit("main", "calc")
	require.NoError(t, err)

	f.dispatcher.CancelStream("main")
	close(gate.open)
	waitDone(t, h)

	assert.Equal(t, StateCancelled, h.State())
	assert.True(t, lumenerrors.IsCancelled(h.Err()))
	select {
	case <-results:
		t.Fatal("cancelled session must not deliver")
	default:
	}
}

func TestDispatcher_Timeout(t *testing.T) {
	cfg := testEngineConfig()
	cfg.QueryTimeout = 5 * time.Millisecond
	f := newFixture(t, cfg)

	require.NoError(t, f.registry.Register("slow", &slowMatcher{delay: 200 * time.Millisecond}))
	require.NoError(t, f.store.UpsertSpec(catalog.Spec{
		ID: "calc", Labels: []string{"Calculator"}, Matcher: "slow",
	}))

	h, err := f.dispatcher.Submit("main", "calc")
	require.NoError(t, err)
	waitDone(t, h)

	assert.Equal(t, StateFailed, h.State())
	require.Error(t, h.Err())
	assert.Equal(t, lumenerrors.ErrCodeQueryTimeout, lumenerrors.GetCode(h.Err()))
	assert.True(t, lumenerrors.IsRetryable(h.Err()))
}

func TestDispatcher_ClosedStoreFailsSession(t *testing.T) {
	f := newFixture(t, testEngineConfig())
	f.seedApps(t)
	f.store.Close()

	h, err := f.dispatcher.Submit("main", "calc")
	require.NoError(t, err)
	waitDone(t, h)

	assert.Equal(t, StateFailed, h.State())
	require.Error(t, h.Err())
	assert.Equal(t, lumenerrors.ErrCodeStoreClosed, lumenerrors.GetCode(h.Err()))
	assert.True(t, lumenerrors.IsRetryable(h.Err()))
}

func TestDispatcher_StreamsAreIndependent(t *testing.T) {
	f := newFixture(t, testEngineConfig())
	f.seedApps(t)

	left := f.dispatcher.Results("left")
	right := f.dispatcher.Results("right")

	_, err := f.dispatcher.Submit("left", "calc")
	require.NoError(t, err)
	_, err = f.dispatcher.Submit("right", "notepad")
	require.NoError(t, err)

	lr := receive(t, left)
	rr := receive(t, right)
	require.NotEmpty(t, lr.Matches)
	require.NotEmpty(t, rr.Matches)
	assert.Equal(t, "calc", lr.Matches[0].ItemID)
	assert.Equal(t, "notes", rr.Matches[0].ItemID)
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	f := newFixture(t, testEngineConfig())
	f.dispatcher.Close()

	_, err := f.dispatcher.Submit("main", "calc")
	require.Error(t, err)
	assert.Equal(t, lumenerrors.ErrCodeEngineClosed, lumenerrors.GetCode(err))
}

func TestDispatcher_SequentialSubmissionsAllDeliver(t *testing.T) {
	f := newFixture(t, testEngineConfig())
	f.seedApps(t)

	results := f.dispatcher.Results("main")
	for _, q := range []string{"c", "ca", "cal", "calc"} {
		h, err := f.dispatcher.Submit("main", q)
		require.NoError(t, err)
		r := receive(t, results)
		waitDone(t, h)
		assert.Equal(t, q, r.Query)
		assert.Equal(t, StateCompleted, h.State())
	}
}

func TestStream_StaleSequenceDroppedAfterFresherDelivery(t *testing.T) {
	st := &stream{id: "s", results: make(chan Result, resultBuffer)}
	ctx := context.Background()

	require.NoError(t, st.publish(ctx, 2, Result{Query: "newer"}))

	// An older session finishing late is dropped even though its own
	// context was never cancelled.
	err := st.publish(ctx, 1, Result{Query: "older"})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, "newer", receive(t, st.results).Query)
	select {
	case stale := <-st.results:
		t.Fatalf("stale delivery %q", stale.Query)
	default:
	}
}

func TestStream_CancelledSessionDoesNotPublish(t *testing.T) {
	st := &stream{id: "s", results: make(chan Result, resultBuffer)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.publish(ctx, 1, Result{Query: "cancelled"})
	require.ErrorIs(t, err, context.Canceled)

	select {
	case r := <-st.results:
		t.Fatalf("cancelled session delivered %q", r.Query)
	default:
	}
}

func TestStream_DeliveriesAreSequenceOrdered(t *testing.T) {
	// A lagging consumer leaves the older session blocked mid-send. The
	// fresher session must queue behind it, never overtake it, so the
	// consumer observes deliveries in sequence order.
	st := &stream{id: "s", results: make(chan Result, 1)}
	st.results <- Result{Query: "filler"}

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, st.publish(ctx, 1, Result{Query: "older"}))
	}()
	time.Sleep(50 * time.Millisecond) // let the older session block in its send
	go func() {
		defer wg.Done()
		assert.NoError(t, st.publish(ctx, 2, Result{Query: "newer"}))
	}()

	assert.Equal(t, "filler", receive(t, st.results).Query)
	assert.Equal(t, "older", receive(t, st.results).Query)
	assert.Equal(t, "newer", receive(t, st.results).Query)
	wg.Wait()
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "created", StateCreated.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}
