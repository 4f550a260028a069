// Package lease elects a single active scheduler instance across a fleet
// of processes sharing one LeaseStorage, per spec.md §4.3.
package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/logger"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/observability"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/store"
)

var log = logger.Component("lease")

const (
	minRenewFailuresBeforeStepDown = 3
	name                           = "scheduler"
)

// Manager holds a single named lease, renewing at ttl/3 and stepping
// down after repeated renewal failures or a lost compare-and-set.
// Exactly one Manager across the fleet is ever active at a time; the
// rest sit in standby, retrying acquisition on the same interval.
type Manager struct {
	storage store.LeaseStorage
	ownerID string
	ttl     time.Duration

	onActive  func(ctx context.Context)
	onStandby func()

	mu         sync.RWMutex
	active     bool
	epoch      int64
	activeCtx  context.Context
	activeStop context.CancelFunc
}

func New(storage store.LeaseStorage, ttl time.Duration) *Manager {
	return &Manager{
		storage: storage,
		ownerID: uuid.NewString(),
		ttl:     ttl,
	}
}

// SetCallbacks registers hooks run when this process transitions to/from
// the active state. onActive receives a context cancelled the instant
// this process steps down or loses the lease.
func (m *Manager) SetCallbacks(onActive func(ctx context.Context), onStandby func()) {
	m.onActive = onActive
	m.onStandby = onStandby
}

func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Epoch is a diagnostic fencing counter: it increments every time this
// process becomes active, so stale goroutines from a prior activation
// can recognize they're acting under an outdated epoch. Sneakpeek has
// no durable epoch store, unlike a system split across a separate
// consensus store and cache; this is best-effort within one process's
// lifetime, not cluster-wide monotonic.
func (m *Manager) Epoch() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// Run drives the acquire/renew loop until ctx is cancelled, backing off
// exponentially on storage errors and resetting to ttl/3 on success.
func (m *Manager) Run(ctx context.Context) {
	interval := m.ttl / 3
	minInterval := interval
	maxInterval := 10 * m.ttl
	renewFailures := 0

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if m.IsActive() {
				m.release()
				m.stepDown()
			}
			return
		case <-timer.C:
			var err error
			if m.IsActive() {
				var renewed bool
				renewed, err = m.renew(ctx)
				if err == nil {
					renewFailures = 0
					if !renewed {
						m.stepDown()
					}
				} else {
					renewFailures++
					log.Warn().Err(err).Int("failures", renewFailures).Msg("lease renew failed")
					if renewFailures >= minRenewFailuresBeforeStepDown {
						log.Warn().Msg("too many renew failures, stepping down")
						m.stepDown()
						renewFailures = 0
					}
				}
			} else {
				var acquired bool
				acquired, err = m.acquire(ctx)
				if err == nil && acquired {
					m.becomeActive()
					renewFailures = 0
				}
			}

			if err != nil {
				interval *= 2
				if interval > maxInterval {
					interval = maxInterval
				}
			} else {
				interval = minInterval
			}
			timer.Reset(interval)
		}
	}
}

func (m *Manager) acquire(ctx context.Context) (bool, error) {
	return m.storage.MaybeAcquire(ctx, name, m.ownerID, m.ttl.Milliseconds())
}

func (m *Manager) renew(ctx context.Context) (bool, error) {
	return m.storage.MaybeAcquire(ctx, name, m.ownerID, m.ttl.Milliseconds())
}

func (m *Manager) release() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.storage.Release(ctx, name, m.ownerID); err != nil {
		log.Warn().Err(err).Msg("lease release failed")
	}
}

func (m *Manager) becomeActive() {
	m.mu.Lock()
	m.active = true
	m.epoch++
	ctx, cancel := context.WithCancel(context.Background())
	m.activeCtx = ctx
	m.activeStop = cancel
	epoch := m.epoch
	m.mu.Unlock()

	observability.SchedulerLeaseOwned.Set(1)
	log.Info().Str("owner", m.ownerID).Int64("epoch", epoch).Msg("became active scheduler")
	if m.onActive != nil {
		go m.onActive(ctx)
	}
}

func (m *Manager) stepDown() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.active = false
	if m.activeStop != nil {
		m.activeStop()
	}
	m.mu.Unlock()

	observability.SchedulerLeaseOwned.Set(0)
	log.Info().Str("owner", m.ownerID).Msg("stepped down to standby")
	if m.onStandby != nil {
		m.onStandby()
	}
}
