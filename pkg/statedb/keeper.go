package statedb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/newtron-network/newtsim/pkg/router"
	"github.com/newtron-network/newtsim/pkg/util"
)

// KeepLockTTL is the TTL of a kept lock. The keeper re-acquires it every
// third of the TTL, so a crashed holder blocks the topology for at most this
// long.
const KeepLockTTL = time.Minute

// LockKeeper holds the writer lock of a topology for a long-lived process and
// publishes commits only while the lock is held. Once another holder owns the
// lock the keeper stops refreshing and drops every later commit.
type LockKeeper struct {
	c        *Client
	topology string
	holder   string
	ttl      time.Duration
	sched    *gocron.Scheduler

	mu   sync.Mutex
	lost error
}

// KeepLock acquires the writer lock of topology and schedules its refresh.
func (c *Client) KeepLock(ctx context.Context, topology, holder string, ttl time.Duration) (*LockKeeper, error) {
	if ttl <= 0 {
		ttl = KeepLockTTL
	}
	if err := c.AcquireLock(ctx, topology, holder, ttl); err != nil {
		return nil, err
	}
	k := &LockKeeper{c: c, topology: topology, holder: holder, ttl: ttl}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(ttl / 3).WaitForSchedule().Do(k.refresh); err != nil {
		_ = c.ReleaseLock(ctx, topology, holder)
		return nil, fmt.Errorf("schedule lock refresh: %w", err)
	}
	s.StartAsync()
	k.sched = s
	return k, nil
}

func (k *LockKeeper) refresh() {
	if k.Lost() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	log := util.WithTopology(k.topology).WithField("component", "lock-keeper")
	err := k.c.AcquireLock(ctx, k.topology, k.holder, k.ttl)
	var locked *util.LockedError
	switch {
	case err == nil:
		log.Debugf("lock refreshed for %v", k.ttl)
	case errors.As(err, &locked):
		k.mu.Lock()
		k.lost = err
		k.mu.Unlock()
		log.WithError(err).Error("topology lock lost, state publication stopped")
	default:
		// The key may still be alive; try again on the next tick
		log.WithError(err).Warn("lock refresh failed")
	}
}

// Lost returns the *util.LockedError that ended the hold, or nil while the
// lock is held.
func (k *LockKeeper) Lost() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lost
}

// Committed implements router.Observer. Commits are published only while the
// lock is held.
func (k *LockKeeper) Committed(cm router.Commit) {
	if err := k.Lost(); err != nil {
		util.WithTopology(cm.Topology).WithError(err).Debug("commit not published")
		return
	}
	k.c.Committed(cm)
}

// Release stops the refresh and releases the lock unless it was lost.
func (k *LockKeeper) Release(ctx context.Context) error {
	k.sched.Stop()
	if k.Lost() != nil {
		return nil
	}
	return k.c.ReleaseLock(ctx, k.topology, k.holder)
}
