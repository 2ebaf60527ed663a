// Package poller runs one status-polling lifecycle per remote operation.
package poller

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/easel/internal/midjourney"
	"github.com/five82/easel/internal/state"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 2 * time.Second

// Sink receives the results of one lifecycle. Both callbacks run while the
// scheduler lock is held and only while the lifecycle is still registered,
// so they must not call back into the Scheduler.
type Sink struct {
	Update func(snap midjourney.StatusSnapshot)
	Fail   func(err error)
}

type lifecycle struct {
	key    state.OperationKey
	hash   string
	sink   Sink
	cancel context.CancelFunc
}

// Scheduler tracks remote operations until they finish.
type Scheduler struct {
	poller   midjourney.StatusPoller
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	active map[state.OperationKey]*lifecycle
	closed bool
	wg     sync.WaitGroup
}

// New builds a scheduler. A non-positive interval uses DefaultInterval.
func New(poller midjourney.StatusPoller, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		poller:   poller,
		interval: interval,
		log:      logger.With().Str("component", "poller").Logger(),
		active:   make(map[state.OperationKey]*lifecycle),
	}
}

// Interval reports the poll cadence.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Track starts polling hash under key. Any lifecycle already registered for
// key is torn down first. The first poll happens immediately. After Close,
// Track does nothing and returns false.
func (s *Scheduler) Track(ctx context.Context, key state.OperationKey, hash string, sink Sink) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug().Str("key", string(key)).Msg("scheduler closed, not tracking")
		return false
	}
	lctx, cancel := context.WithCancel(ctx)
	lc := &lifecycle{key: key, hash: hash, sink: sink, cancel: cancel}
	if prev, ok := s.active[key]; ok {
		prev.cancel()
		s.log.Debug().Str("key", string(key)).Msg("replacing lifecycle")
	}
	s.active[key] = lc
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(lctx, lc)
	return true
}

// Teardown stops the lifecycle registered for key. Results still in flight
// are discarded.
func (s *Scheduler) Teardown(key state.OperationKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lc, ok := s.active[key]; ok {
		lc.cancel()
		delete(s.active, key)
	}
}

// Close tears down every lifecycle and waits for their goroutines to exit.
// The scheduler accepts no new lifecycles afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for key, lc := range s.active {
		lc.cancel()
		delete(s.active, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Active reports whether key has a registered lifecycle.
func (s *Scheduler) Active(key state.OperationKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[key]
	return ok
}

// ActiveKeys lists registered keys in sorted order.
func (s *Scheduler) ActiveKeys() []state.OperationKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]state.OperationKey, 0, len(s.active))
	for key := range s.active {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (s *Scheduler) run(ctx context.Context, lc *lifecycle) {
	defer s.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		snap, err := s.poller.PollStatus(ctx, lc.hash)
		if ctx.Err() != nil {
			return
		}
		if !s.deliver(lc, snap, err) {
			return
		}
		timer.Reset(s.interval)
	}
}

// deliver hands a poll result to the sink and reports whether polling should
// continue.
func (s *Scheduler) deliver(lc *lifecycle, snap midjourney.StatusSnapshot, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[lc.key] != lc {
		return false
	}
	if err != nil {
		s.log.Warn().Err(err).Str("key", string(lc.key)).Str("hash", lc.hash).Msg("status poll failed")
		s.remove(lc)
		if lc.sink.Fail != nil {
			lc.sink.Fail(err)
		}
		return false
	}
	if lc.sink.Update != nil {
		lc.sink.Update(snap)
	}
	if snap.Phase.Terminal() {
		s.log.Debug().Str("key", string(lc.key)).Str("phase", snap.Phase.String()).Msg("lifecycle finished")
		s.remove(lc)
		return false
	}
	return true
}

func (s *Scheduler) remove(lc *lifecycle) {
	lc.cancel()
	delete(s.active, lc.key)
}
