package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/health"
	"github.com/newtron-network/newtsim/pkg/model"
)

var healthCheckName string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run health checks on the converged lab",
	Long: `Run health checks on the device selected with -d, or on every device.

Checks: interfaces, ospf, bgp, dhcp, routes.

Examples:
  newtsim health
  newtsim -d r1 health --check ospf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRouter()
		if err != nil {
			return err
		}
		defer r.Close()

		devices := r.Devices()
		if deviceName != "" {
			d, err := requireDevice(r)
			if err != nil {
				return err
			}
			devices = []*model.Device{d}
		}

		ctx := context.Background()
		checker := health.NewChecker()
		var reports []*health.Report
		for _, d := range devices {
			var report *health.Report
			if healthCheckName != "" {
				report, err = checker.RunCheck(ctx, r, d.ID, healthCheckName)
			} else {
				report, err = checker.Run(ctx, r, d.ID)
			}
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(reports)
		}
		t := cli.NewTable("DEVICE", "CHECK", "STATUS", "MESSAGE")
		for _, report := range reports {
			for _, result := range report.Results {
				t.Row(report.Device, result.Check, formatStatus(result.Status), result.Message)
			}
		}
		t.Flush()

		overall := health.StatusOK
		for _, report := range reports {
			overall = health.Worst(overall, report.Overall)
		}
		fmt.Printf("\nOverall Status: %s\n", formatStatus(overall))
		return nil
	},
}

func formatStatus(s health.Status) string {
	switch s {
	case health.StatusOK:
		return cli.Green(string(s))
	case health.StatusWarning:
		return cli.Yellow(string(s))
	case health.StatusCritical:
		return cli.Red(string(s))
	default:
		return string(s)
	}
}

func init() {
	healthCmd.Flags().StringVar(&healthCheckName, "check", "", "Run a single check")
	healthCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print reports as JSON")
}
