package router

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/newtron-network/newtsim/pkg/util"
)

// StartLeaseSweep re-converges the topology every interval so expired DHCP
// leases are released without a console command. The returned function stops
// the sweep; Close stops it too.
func (r *Router) StartLeaseSweep(interval time.Duration) (func(), error) {
	if interval <= 0 {
		return nil, fmt.Errorf("lease sweep interval must be positive, got %v", interval)
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(interval).WaitForSchedule().Do(func() {
		sum, err := r.Reconverge(context.Background())
		log := util.WithTopology(r.topo.Name).WithField("component", "lease-sweep")
		if err != nil {
			log.WithError(err).Warn("lease sweep convergence failed")
			return
		}
		if sum.LeasesExpired > 0 {
			log.Infof("released %d expired leases", sum.LeasesExpired)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule lease sweep: %w", err)
	}
	s.StartAsync()

	r.mu.Lock()
	r.sweeps = append(r.sweeps, s.Stop)
	r.mu.Unlock()
	return s.Stop, nil
}
