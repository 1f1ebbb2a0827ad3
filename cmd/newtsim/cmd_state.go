package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/statedb"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the state published by a running server",
	Long: `Inspect the Redis state published by "newtsim serve".

The topology name is taken from -t (or the demo lab).

Examples:
  newtsim state show
  newtsim state watch`,
}

func stateClient(ctx context.Context) (*statedb.Client, string, error) {
	topo, err := loadTopology()
	if err != nil {
		return nil, "", err
	}
	db := statedb.New(userSettings.GetRedisAddr(), serveRedisDB)
	if err := db.Connect(ctx); err != nil {
		return nil, "", err
	}
	return db, topo.Name, nil
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the lock holder and published entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		db, topo, err := stateClient(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		holder, acquired, err := db.LockHolder(ctx, topo)
		if err != nil {
			return err
		}
		fmt.Printf("Topology: %s\n", cli.Bold(topo))
		if holder == "" {
			fmt.Println("Lock: " + cli.Dim("(not held)"))
		} else {
			fmt.Printf("Lock: %s since %s\n", holder, acquired.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Println()

		t := cli.NewTable("TABLE", "ENTRIES")
		for _, table := range statedb.Tables {
			n, err := db.Count(ctx, table, topo)
			if err != nil {
				return err
			}
			t.Row(table, strconv.Itoa(n))
		}
		t.Flush()
		return nil
	},
}

var stateWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream commit events until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		db, topo, err := stateClient(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		return db.Subscribe(ctx, topo, func(ev statedb.Event) {
			status := cli.Verdict(ev.Accepted)
			if ev.Command == "" {
				status = cli.Yellow("sweep")
			}
			fmt.Printf("%s  %-8s %-10s %s (routes %d, leases expired %d)\n",
				ev.Timestamp.Local().Format("15:04:05"), ev.Device, status, ev.Command, ev.Routes, ev.LeasesExpired)
		})
	},
}

func init() {
	stateCmd.PersistentFlags().IntVar(&serveRedisDB, "redis-db", statedb.DefaultDB, "Redis database number")
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateWatchCmd)
}
