package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtsim/pkg/api"
	"github.com/newtron-network/newtsim/pkg/metrics"
	"github.com/newtron-network/newtsim/pkg/sshconsole"
	"github.com/newtron-network/newtsim/pkg/statedb"
	"github.com/newtron-network/newtsim/pkg/util"
)

var (
	serveSSHAddr     string
	serveHTTPAddr    string
	serveSSHPassword string
	serveNoRedis     bool
	serveRedisDB     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lab over SSH and HTTP",
	Long: `Run the lab as a long-lived simulator.

  - SSH consoles: "ssh <device>@host -p 2222" opens the device console
  - HTTP API under /api/v1, Prometheus metrics on /metrics
  - Committed state published to Redis while holding the topology lock,
    refreshed in the background
  - Expired DHCP leases released on a periodic sweep

Addresses default to the values in settings.

Examples:
  newtsim serve
  newtsim -t lab.yaml serve --ssh :2022 --http :8081
  newtsim serve --no-redis`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, err := newRouter()
		if err != nil {
			return err
		}
		defer r.Close()
		topo := r.TopologyName()
		log := util.WithTopology(topo)

		m := metrics.New(r)
		r.Observe(m)
		hub := api.NewHub()
		r.Observe(hub)

		if !serveNoRedis {
			db := statedb.New(userSettings.GetRedisAddr(), serveRedisDB)
			if err := db.Connect(ctx); err != nil {
				return fmt.Errorf("%w (use --no-redis to run without state publication)", err)
			}
			defer db.Close()

			host, _ := os.Hostname()
			holder := statedb.Holder(os.Getenv("USER"), host, os.Getpid())
			lock, err := db.KeepLock(ctx, topo, holder, statedb.KeepLockTTL)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(context.Background()); err != nil {
					log.WithError(err).Warn("releasing topology lock")
				}
			}()
			if err := db.Publish(ctx, topo, r.Devices(), statedb.Event{Topology: topo}); err != nil {
				return err
			}
			r.Observe(lock)
		}

		if _, err := r.StartLeaseSweep(userSettings.GetLeaseSweep()); err != nil {
			return err
		}

		key, err := sshconsole.LoadOrCreateHostKey(userSettings.GetHostKeyPath())
		if err != nil {
			return err
		}
		consoles := sshconsole.New(r, sshconsole.Config{HostKey: key, Password: serveSSHPassword})
		srv := api.New(r, api.WithHub(hub), api.WithMetrics(m.Handler()))

		errc := make(chan error, 2)
		go func() { errc <- consoles.ListenAndServe(serveSSHAddr) }()
		go func() { errc <- srv.Start(serveHTTPAddr) }()
		util.Infof("serving %s: ssh %s, http %s", topo, serveSSHAddr, serveHTTPAddr)

		select {
		case <-ctx.Done():
		case err = <-errc:
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil && !errors.Is(serr, context.Canceled) {
			log.WithError(serr).Warn("http shutdown")
		}
		consoles.Close()
		return err
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveSSHAddr, "ssh", "", "SSH console listen address (default from settings)")
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "HTTP API listen address (default from settings)")
	serveCmd.Flags().StringVar(&serveSSHPassword, "ssh-password", "", "Password required for SSH logins (default: none)")
	serveCmd.Flags().BoolVar(&serveNoRedis, "no-redis", false, "Do not publish state to Redis")
	serveCmd.Flags().IntVar(&serveRedisDB, "redis-db", statedb.DefaultDB, "Redis database number")

	serveCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if serveSSHAddr == "" {
			serveSSHAddr = userSettings.GetSSHAddr()
		}
		if serveHTTPAddr == "" {
			serveHTTPAddr = userSettings.GetHTTPAddr()
		}
	}
}
