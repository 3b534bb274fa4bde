package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"justapengu.in/pedal/internal/calculator"
	"justapengu.in/pedal/internal/config"
	"justapengu.in/pedal/internal/shm"
	"justapengu.in/pedal/internal/snapshot"
	"justapengu.in/pedal/internal/telemetry"
)

type Logger = logrus.FieldLogger

// Source is the shared memory adapter as the scheduler uses it.
type Source interface {
	Attach() (*shm.Handle, error)
	Poll(h *shm.Handle) shm.RawFrame
	IsLive(h *shm.Handle) shm.SourceState
	Detach(h *shm.Handle) error
}

type Decoder func(frame shm.RawFrame) (*telemetry.Record, error)

// Query is the read-only view handed to widgets. Every method is safe to call
// from any goroutine while the scheduler is running.
type Query interface {
	Current() *snapshot.Snapshot
	Metric(name string) (calculator.Result, bool)
	Metrics() []calculator.Result
	SourceState() shm.SourceState
}

// Scheduler owns the poll, decode, commit and compute cycle. Tick and Run
// must only be called from one goroutine; the Query methods may be called
// from anywhere.
type Scheduler struct {
	source   Source
	store    *snapshot.Store
	registry *calculator.Registry
	decode   Decoder

	logger     Logger
	now        func() time.Time
	registerer prometheus.Registerer
	metrics    *metrics

	pollInterval     time.Duration
	backoffCap       time.Duration
	failureThreshold int
	reattachAfter    time.Duration

	handle       *shm.Handle
	state        shm.SourceState
	tick         uint64
	failures     int
	backoff      time.Duration
	nextAttach   time.Time
	lastSequence uint32
	decoded      bool
	staleSince   time.Time
	// resuming is set while the region is reopened after a long Stale spell.
	resuming bool

	published atomic.Int32
}

type Option func(s *Scheduler)

func WithLogger(logger Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithRegisterer registers the scheduler's prometheus collectors.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(s *Scheduler) {
		s.registerer = r
	}
}

func WithDecoder(decode Decoder) Option {
	return func(s *Scheduler) {
		s.decode = decode
	}
}

func New(source Source, store *snapshot.Store, registry *calculator.Registry, conf *config.Config, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		source:   source,
		store:    store,
		registry: registry,
		decode:   telemetry.Decode,

		logger:  logrus.StandardLogger(),
		now:     time.Now,
		metrics: newMetrics(),

		pollInterval:     conf.PollInterval(),
		backoffCap:       conf.ReconnectBackoffCap(),
		failureThreshold: conf.DecodeFailureThreshold,
		reattachAfter:    conf.StaleReattach(),

		state: shm.Disconnected,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.registerer != nil {
		if err := s.metrics.register(s.registerer); err != nil {
			return nil, err
		}
	}

	s.publishState(shm.Disconnected)

	return s, nil
}

// Run ticks every poll interval until ctx is done, then detaches. It only
// returns an error for a fatal attach failure; the caller decides whether
// to start it again.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	defer s.shutdown()

	for {
		if err := s.Tick(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			s.logger.Debugf("Stopping scheduler loop")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one cycle: attach if due, poll, check liveness, decode, commit
// and evaluate the calculators that are due.
func (s *Scheduler) Tick(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	start := s.now()
	tick := s.tick
	s.tick++

	defer func() {
		s.metrics.ticks.Inc()
		s.metrics.tickDuration.Observe(s.now().Sub(start).Seconds())
	}()

	if s.handle == nil {
		if err := s.attach(); err != nil {
			s.registry.Run(tick, s.store.Current())
			return err
		}
	}

	if s.handle != nil {
		s.poll()
	}

	s.registry.Run(tick, s.store.Current())

	return nil
}

func (s *Scheduler) attach() error {
	now := s.now()

	if now.Before(s.nextAttach) {
		return nil
	}

	if !s.resuming {
		s.setState(shm.Connecting)
	}

	handle, err := s.source.Attach()

	s.metrics.attachAttempts.WithLabelValues(attachResult(err)).Inc()

	if err != nil {
		s.backoff *= 2

		if s.backoff < s.pollInterval {
			s.backoff = s.pollInterval
		}

		if s.backoff > s.backoffCap {
			s.backoff = s.backoffCap
		}

		s.nextAttach = now.Add(s.backoff)

		if s.resuming {
			s.logger.WithError(err).Infof("Shared memory source went away")
			s.resuming = false
			s.decoded = false
			s.store.Reset(true)
			s.metrics.resets.Inc()
			s.setState(shm.Disconnected)
		}

		if shm.IsFatal(err) {
			s.logger.WithError(err).Error("Could not attach to shared memory")
			return err
		}

		s.logger.WithError(err).Debugf("Could not attach to shared memory, retrying in %s", s.backoff)

		return nil
	}

	s.handle = handle
	s.backoff = 0
	s.failures = 0

	if s.resuming {
		s.logger.Debugf("Reopened shared memory, waiting for the sequence counter to move")
		return nil
	}

	s.logger.Infof("Attached to shared memory, waiting for the first frame")

	s.decoded = false

	return nil
}

func (s *Scheduler) poll() {
	frame := s.source.Poll(s.handle)
	live := s.source.IsLive(s.handle)

	if live == shm.Disconnected {
		s.logger.Infof("Shared memory source went away")
		s.detach(shm.Disconnected)

		return
	}

	if s.resuming && live == shm.Live {
		// a fresh handle has not yet seen the counter stand still
		live = shm.Stale
	}

	if s.reattachDue(live) {
		// some platforms keep the region alive for as long as it is mapped, so
		// a producer exit only shows up once the region is reopened
		s.logger.Infof("Source has been stale for %s, reopening shared memory", s.reattachAfter)
		s.release()
		s.resuming = true
		s.staleSince = time.Time{}

		return
	}

	rec, err := s.decode(frame)

	if err != nil {
		s.failures++
		s.metrics.decodeErrors.WithLabelValues(decodeErrorKind(err)).Inc()

		s.logger.WithError(err).WithField("failures", s.failures).Debugf("Could not decode frame %d", frame.Sequence)

		if s.failures >= s.failureThreshold {
			s.logger.WithError(err).Warnf("%d consecutive decode failures, re-attaching", s.failures)
			s.detach(shm.Connecting)

			return
		}

		if s.decoded {
			s.setState(live)
		}

		return
	}

	s.failures = 0

	if s.resuming && rec.Sequence != s.lastSequence {
		s.resuming = false
		live = s.source.IsLive(s.handle)
	}

	s.commit(rec)
	s.setState(live)
}

// reattachDue tracks how long the source has been Stale and reports whether
// the region should be reopened.
func (s *Scheduler) reattachDue(live shm.SourceState) bool {
	if live != shm.Stale || !s.decoded {
		s.staleSince = time.Time{}
		return false
	}

	now := s.now()

	if s.staleSince.IsZero() {
		s.staleSince = now
		return false
	}

	return s.reattachAfter > 0 && now.Sub(s.staleSince) >= s.reattachAfter
}

func (s *Scheduler) commit(rec *telemetry.Record) {
	if s.decoded {
		switch {
		case rec.Sequence == s.lastSequence:
			s.metrics.duplicates.Inc()
			return
		case rec.Sequence < s.lastSequence:
			s.logger.Infof("Sequence counter went back from %d to %d, the simulator restarted its session", s.lastSequence, rec.Sequence)
			s.store.Reset(false)
			s.metrics.resets.Inc()
		}
	}

	if err := s.store.Commit(rec); err != nil {
		// the store still holds records from an earlier attachment
		s.logger.WithError(err).Debugf("Could not commit frame %d", rec.Sequence)
		s.store.Reset(false)
		s.metrics.resets.Inc()

		if err := s.store.Commit(rec); err != nil {
			s.logger.WithError(err).Errorf("Could not commit frame %d", rec.Sequence)
			return
		}
	}

	s.metrics.commits.Inc()
	s.lastSequence = rec.Sequence
	s.decoded = true
}

// detach releases the handle, clears the history (keeping the last record as
// an anchor) and schedules an immediate re-attach.
func (s *Scheduler) detach(state shm.SourceState) {
	s.release()

	s.decoded = false
	s.resuming = false
	s.staleSince = time.Time{}

	s.store.Reset(true)
	s.metrics.resets.Inc()

	s.setState(state)
}

// release closes the handle and schedules an immediate re-attach without
// touching the store.
func (s *Scheduler) release() {
	if err := s.source.Detach(s.handle); err != nil {
		s.logger.WithError(err).Warn("Could not detach from shared memory")
	}

	s.handle = nil
	s.failures = 0
	s.nextAttach = time.Time{}
}

func (s *Scheduler) shutdown() {
	if s.handle != nil {
		s.detach(shm.Disconnected)
	}

	s.resuming = false
	s.setState(shm.Disconnected)
}

func (s *Scheduler) setState(state shm.SourceState) {
	if state == s.state {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"from": s.state,
		"to":   state,
	}).Infof("Source state changed")

	s.state = state
	s.store.SetSourceState(state)
	s.publishState(state)
}

func (s *Scheduler) publishState(state shm.SourceState) {
	s.published.Store(int32(state))
	s.metrics.state.Set(float64(state))
}

func (s *Scheduler) Current() *snapshot.Snapshot {
	return s.store.Current()
}

func (s *Scheduler) Metric(name string) (calculator.Result, bool) {
	return s.registry.Result(name)
}

func (s *Scheduler) Metrics() []calculator.Result {
	return s.registry.Results()
}

func (s *Scheduler) SourceState() shm.SourceState {
	return shm.SourceState(s.published.Load())
}
