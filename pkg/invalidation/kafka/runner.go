// Package kafka consumes listing-change events and drops every cached search
// whose viewport could contain the changed listing.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/listing-search/internal/cache"
	"github.com/mohammed-shakir/listing-search/internal/cache/cellindex"
	"github.com/mohammed-shakir/listing-search/internal/core/model"
	"github.com/mohammed-shakir/listing-search/internal/invalidation"
)

type Mapper interface {
	CellForPoint(p model.LatLng, res int) (string, error)
	ToParent(cell string, parentRes int) (string, error)
}

type Runner struct {
	log      *slog.Logger
	cfg      InvalidationConfig
	cache    cache.Interface
	mapper   Mapper
	idx      cellindex.CellIndex
	ms       *metricSet
	ver      *versionGate
	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

type Options struct {
	Logger   *slog.Logger
	Register prometheus.Registerer
}

func New(cfg InvalidationConfig, c cache.Interface, idx cellindex.CellIndex, m Mapper, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	ms := newMetricSet(opts.Register)
	return &Runner{
		log:    opts.Logger.With("component", "invalidation"),
		cfg:    cfg,
		cache:  c,
		mapper: m,
		idx:    idx,
		ms:     ms,
		ver:    newVersionGate(cfg.DedupeSize, ms.evicted.Inc),
		assign: map[int32]struct{}{},
	}
}

func (r *Runner) Start(ctx context.Context) error {
	if r.cfg.Driver != DriverKafka || !r.cfg.Enabled {
		r.log.Info("invalidation runner disabled", "driver", r.cfg.Driver, "enabled", r.cfg.Enabled)
		return nil
	}
	if r.cache == nil || r.idx == nil || r.mapper == nil {
		return errors.New("kafka runner: cache, cell index and mapper are required")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("consumer group: %w", err)
	}

	h := &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			r.assignMu.Lock()
			r.assigned.Store(true)
			r.assign = map[int32]struct{}{}
			for _, parts := range sess.Claims() {
				for _, p := range parts {
					r.assign[p] = struct{}{}
				}
			}
			r.assignMu.Unlock()
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			r.assignMu.Lock()
			r.assigned.Store(false)
			r.assign = map[int32]struct{}{}
			r.assignMu.Unlock()
		},
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("kafka invalidation runner started",
		"topic", r.cfg.Topic, "group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("kafka invalidation runner stopped")
}

// Readiness reports whether the consumer currently owns partitions. A
// disabled runner is always ready.
func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if r.cfg.Driver != DriverKafka || !r.cfg.Enabled {
		return true, nil
	}
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

// Malformed messages are counted and skipped so one bad producer cannot
// stall the partition. Cache and index failures are returned, which leaves
// the offset unmarked.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()

	if !msg.Timestamp.IsZero() {
		r.ms.lag.Set(time.Since(msg.Timestamp).Seconds())
	}

	var w WireEvent
	if err := json.Unmarshal(msg.Value, &w); err == nil && (len(w.Keys) > 0 || len(w.Cells) > 0) {
		err := r.applyWire(ctx, w)
		r.observe(w.Op, err, time.Since(start))
		return err
	}

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		r.ms.msgs.WithLabelValues("malformed").Inc()
		r.log.Warn("invalidation decode failed", "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		r.ms.msgs.WithLabelValues("malformed").Inc()
		r.log.Warn("invalidation event rejected", "offset", msg.Offset, "listing_id", ev.ListingID, "err", err)
		return nil
	}
	err := r.applyListing(ctx, ev)
	r.observe(ev.Op, err, time.Since(start))
	return err
}

func (r *Runner) observe(op string, err error, dur time.Duration) {
	if op == "" {
		op = "unknown"
	}
	if err != nil {
		r.ms.msgs.WithLabelValues("error").Inc()
	} else {
		r.ms.msgs.WithLabelValues("ok").Inc()
	}
	r.ms.proc.WithLabelValues(op).Observe(dur.Seconds())
}

func (r *Runner) applyListing(ctx context.Context, ev invalidation.Event) error {
	if !r.ver.fresh(ev.ListingID, ev.Version) {
		r.ms.apply.WithLabelValues("skip_version").Inc()
		last, _ := r.ver.last(ev.ListingID)
		r.log.Debug("stale listing change skipped", "listing_id", ev.ListingID, "version", ev.Version, "applied", last)
		return nil
	}
	cells, err := r.cellsFor(ev)
	if err != nil {
		// an unmappable event will never map; drop it rather than retry forever
		r.ms.msgs.WithLabelValues("malformed").Inc()
		r.log.Warn("listing change not mappable", "listing_id", ev.ListingID, "err", err)
		return nil
	}
	n, err := r.drop(ctx, cells)
	if err != nil {
		return err
	}
	r.ver.record(ev.ListingID, ev.Version)
	r.log.Debug("listing change applied",
		"listing_id", ev.ListingID, "op", ev.Op, "version", ev.Version,
		"cells", len(cells), "deleted", n)
	return nil
}

func (r *Runner) applyWire(ctx context.Context, w WireEvent) error {
	if w.Version > 0 && !r.ver.fresh(w.dedupeKey(), w.Version) {
		r.ms.apply.WithLabelValues("skip_version").Inc()
		return nil
	}
	cells := make([]string, 0, len(w.Cells))
	for _, c := range w.Cells {
		p, err := r.mapper.ToParent(c, r.idx.Res())
		if err != nil {
			r.log.Warn("wire invalidation cell ignored", "cell", c, "err", err)
			continue
		}
		cells = append(cells, p)
	}
	n := 0
	if len(cells) > 0 {
		d, err := r.drop(ctx, cells)
		if err != nil {
			return err
		}
		n += d
	}
	if len(w.Keys) > 0 {
		ctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
		defer cancel()
		if err := r.cache.Del(ctx, w.Keys...); err != nil {
			return fmt.Errorf("cache del (%d keys): %w", len(w.Keys), err)
		}
		r.ms.apply.WithLabelValues("delete").Add(float64(len(w.Keys)))
		n += len(w.Keys)
	}
	if w.Version > 0 {
		r.ver.record(w.dedupeKey(), w.Version)
	}
	r.log.Debug("wire invalidation applied", "cells", len(cells), "deleted", n)
	return nil
}

// cellsFor maps the event's positions (and explicit cell) to index cells.
func (r *Runner) cellsFor(ev invalidation.Event) ([]string, error) {
	res := r.idx.Res()
	pts, err := ev.Points()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range pts {
		c, err := r.mapper.CellForPoint(p, res)
		if err != nil {
			return nil, fmt.Errorf("cell for point: %w", err)
		}
		out = append(out, c)
	}
	if ev.Cell != "" {
		c, err := r.mapper.ToParent(ev.Cell, res)
		if err != nil {
			return nil, fmt.Errorf("cell to index res: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// drop takes the searches indexed under cells and deletes their results.
func (r *Runner) drop(ctx context.Context, cells []string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	ks, err := r.idx.Take(ctx, cells)
	if err != nil {
		return 0, fmt.Errorf("index take: %w", err)
	}
	if len(ks) == 0 {
		r.ms.apply.WithLabelValues("no_match").Inc()
		return 0, nil
	}
	if err := r.cache.Del(ctx, ks...); err != nil {
		r.restore(ctx, ks, cells)
		return 0, fmt.Errorf("cache del (%d keys): %w", len(ks), err)
	}
	r.ms.apply.WithLabelValues("delete").Add(float64(len(ks)))
	return len(ks), nil
}

// restore puts taken search keys back under cells so a redelivered message
// finds them again. Keys that came from the global bucket land in the cell
// sets, which the redelivery takes just the same.
func (r *Runner) restore(ctx context.Context, ks, cells []string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.OpTimeout)
	defer cancel()
	for _, k := range ks {
		if err := r.idx.Add(ctx, k, cells, r.cfg.IndexTTL); err != nil {
			r.log.Warn("index restore failed", "key", k, "err", err)
			return
		}
	}
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
