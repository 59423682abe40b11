// Package query orchestrates query sessions: one session per
// keystroke, fanned out across catalog snapshots, with cooperative
// cancellation of superseded sessions and recency-checked publishing so
// a stale result can never overwrite a fresher one.
package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lumenlauncher/lumen/internal/catalog"
	"github.com/lumenlauncher/lumen/internal/config"
	"github.com/lumenlauncher/lumen/internal/errors"
	"github.com/lumenlauncher/lumen/internal/match"
	"github.com/lumenlauncher/lumen/internal/normalize"
	"github.com/lumenlauncher/lumen/internal/rank"
	"github.com/lumenlauncher/lumen/internal/telemetry"
)

// Result is one published ranked list, tagged with the stream and the
// raw query text it was computed for.
type Result struct {
	StreamID string
	Query    string
	Matches  []match.Scored
}

const (
	// resultBuffer is the per-stream channel depth. Publishing may
	// briefly suspend when the consumer lags further than this.
	resultBuffer = 4

	// sessionPoolSize bounds concurrently running sessions across all
	// streams.
	sessionPoolSize = 32

	// cancelCheckStride is how many items a matching shard processes
	// between cancellation checks.
	cancelCheckStride = 64
)

// Dispatcher is the engine façade: it owns the per-stream session
// bookkeeping and runs sessions on a shared worker pool.
type Dispatcher struct {
	store      *catalog.Store
	normalizer *normalize.Normalizer
	cfg        config.EngineConfig
	pool       *ants.Pool
	metrics    *telemetry.QueryMetrics
	logger     *slog.Logger

	rootCtx    context.Context
	cancelRoot context.CancelFunc

	mu      sync.Mutex
	streams map[string]*stream
	closed  bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics sets an optional query metrics collector.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher over the given store. The
// normalizer must be the one the store normalizes labels with, so
// queries and labels compare in the same form.
func NewDispatcher(store *catalog.Store, n *normalize.Normalizer, cfg config.EngineConfig, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.InternalError("nil catalog store", nil)
	}
	if n == nil {
		return nil, errors.InternalError("nil normalizer", nil)
	}

	pool, err := ants.NewPool(sessionPoolSize)
	if err != nil {
		return nil, errors.InternalError("create session pool", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		store:      store,
		normalizer: n,
		cfg:        cfg,
		pool:       pool,
		logger:     slog.Default(),
		rootCtx:    ctx,
		cancelRoot: cancel,
		streams:    make(map[string]*stream),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Results returns the delivery channel for a stream, creating the
// stream if needed. Each delivery carries the ranked list and the query
// text it answers.
func (d *Dispatcher) Results(streamID string) <-chan Result {
	return d.ensureStream(streamID).results
}

// Submit starts a query session for the stream, cancelling any session
// still running there. The returned handle reports lifecycle and
// failure; the ranked list arrives on the stream's result channel.
func (d *Dispatcher) Submit(streamID, rawText string) (*Handle, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, errors.New(errors.ErrCodeEngineClosed, "dispatcher is closed", nil)
	}
	d.mu.Unlock()

	st := d.ensureStream(streamID)

	ctx := d.rootCtx
	var cancel context.CancelFunc
	if d.cfg.QueryTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.cfg.QueryTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	st.mu.Lock()
	st.seq++
	h := newHandle(streamID, st.seq, cancel)
	prev := st.running
	st.running = h
	st.mu.Unlock()

	// A new keystroke supersedes the previous session before its own
	// work begins.
	if prev != nil {
		prev.Cancel()
	}

	if err := d.pool.Submit(func() { d.run(ctx, st, h, rawText) }); err != nil {
		h.finish(StateFailed, errors.InternalError("submit session", err))
		return h, nil
	}
	return h, nil
}

// CancelStream cancels the stream's running session, if any.
func (d *Dispatcher) CancelStream(streamID string) {
	d.mu.Lock()
	st, ok := d.streams[streamID]
	d.mu.Unlock()
	if !ok {
		return
	}
	st.mu.Lock()
	h := st.running
	st.mu.Unlock()
	if h != nil {
		h.Cancel()
	}
}

// Close cancels all sessions and releases the worker pool. Result
// channels stop receiving; they are not closed because in-flight
// publishers may still hold them.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.cancelRoot()
	d.pool.Release()
}

func (d *Dispatcher) ensureStream(streamID string) *stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.streams[streamID]
	if !ok {
		st = &stream{id: streamID, results: make(chan Result, resultBuffer)}
		d.streams[streamID] = st
	}
	return st
}

// run executes one session: snapshot, parallel match, rank, publish.
func (d *Dispatcher) run(ctx context.Context, st *stream, h *Handle, rawText string) {
	defer h.Cancel() // releases the timeout timer
	start := time.Now()

	snap, err := d.store.Snapshot()
	if err != nil {
		d.logger.Warn("snapshot acquisition failed",
			slog.String("stream", st.id),
			slog.String("error", err.Error()))
		h.finish(StateFailed, err)
		return
	}
	h.toRunning()

	queryText := match.NewText(d.normalizer.Normalize(rawText))

	hits, err := d.matchAll(ctx, snap, queryText)
	if err != nil {
		d.finishAborted(h, err)
		return
	}

	ranked := rank.Rank(hits, d.cfg.ResultCap)

	result := Result{StreamID: st.id, Query: rawText, Matches: ranked}
	if err := st.publish(ctx, h.seq, result); err != nil {
		d.finishAborted(h, err)
		return
	}

	h.finish(StateCompleted, nil)
	latency := time.Since(start)
	if d.metrics != nil {
		d.metrics.Record(telemetry.QueryEvent{
			Query:       rawText,
			StreamID:    st.id,
			ResultCount: len(ranked),
			CatalogSize: snap.Len(),
			Latency:     latency,
		})
	}
	d.logger.Debug("query completed",
		slog.String("stream", st.id),
		slog.Uint64("seq", h.seq),
		slog.Int("results", len(ranked)),
		slog.Int("catalog", snap.Len()),
		slog.Duration("latency", latency))
}

// matchAll fans the matcher across the snapshot in parallel shards.
// Matching is embarrassingly parallel: shards share only the read-only
// snapshot and write disjoint result slots.
func (d *Dispatcher) matchAll(ctx context.Context, snap *catalog.Snapshot, query match.Text) ([]match.Scored, error) {
	n := snap.Len()
	if n == 0 {
		return nil, ctx.Err()
	}

	shards := d.cfg.Workers
	if limit := n/cancelCheckStride + 1; shards > limit {
		shards = limit
	}
	if shards < 1 {
		shards = 1
	}

	slots := make([][]match.Scored, shards)
	g, gctx := errgroup.WithContext(ctx)
	for s := 0; s < shards; s++ {
		s := s
		g.Go(func() error {
			return d.matchShard(gctx, snap, query, s, shards, &slots[s])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, slot := range slots {
		total += len(slot)
	}
	hits := make([]match.Scored, 0, total)
	for _, slot := range slots {
		hits = append(hits, slot...)
	}
	return hits, nil
}

// matchShard matches every shards-th item, keeping the best label per
// item and applying the minimum-score threshold.
func (d *Dispatcher) matchShard(ctx context.Context, snap *catalog.Snapshot, query match.Text, shard, shards int, out *[]match.Scored) error {
	emptyQuery := query.Len() == 0
	processed := 0
	for i := shard; i < snap.Len(); i += shards {
		if processed%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		processed++

		item := snap.At(i)
		matcher := item.Matcher()

		bestLabel := -1
		var best match.Result
		for li := range item.Labels {
			res, ok := matcher.Match(query, item.NormalizedLabel(li))
			if !ok {
				continue
			}
			if bestLabel < 0 || res.Score > best.Score {
				bestLabel = li
				best = res
			}
		}
		if bestLabel < 0 {
			continue
		}
		if !emptyQuery && best.Score < d.cfg.MinScore {
			continue
		}

		*out = append(*out, match.Scored{
			ItemID:   item.ID,
			Label:    item.Labels[bestLabel],
			LabelLen: item.NormalizedLabel(bestLabel).Len(),
			Score:    best.Score,
			Spans:    best.Spans,
		})
	}
	return nil
}

// finishAborted maps a context outcome onto the session's terminal
// state: deadline -> retryable timeout failure, cancellation -> the
// normal superseded outcome.
func (d *Dispatcher) finishAborted(h *Handle, cause error) {
	if cause == context.DeadlineExceeded {
		h.finish(StateFailed, errors.TimeoutError("query session timed out", cause))
		return
	}
	if d.metrics != nil {
		d.metrics.RecordCancelled()
	}
	h.finish(StateCancelled, errors.CancelledError("query session superseded", cause))
}

// stream is the per-stream session bookkeeping.
type stream struct {
	id      string
	results chan Result

	mu      sync.Mutex
	seq     uint64
	running *Handle

	// pubMu serializes the recency check with the delivery itself, so
	// deliveries on the channel are ordered by sequence number. The
	// watermark moves only on a committed send.
	pubMu     sync.Mutex
	published uint64
}

// publish delivers one ranked list for the session with the given seq.
// Cancelled sessions and sessions older than a published delivery are
// dropped; because the check and the send happen under one lock, a slow
// older session can never enqueue its result behind a fresher one.
func (st *stream) publish(ctx context.Context, seq uint64, r Result) error {
	st.pubMu.Lock()
	defer st.pubMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if seq <= st.published {
		return context.Canceled
	}

	select {
	case st.results <- r:
	case <-ctx.Done():
		return ctx.Err()
	}

	st.published = seq
	return nil
}
