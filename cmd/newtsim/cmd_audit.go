package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View audit logs",
	Long: `View the audit log of console commands.

Every command is logged with the time, user, source, device, view and
whether it was accepted.

Examples:
  newtsim audit list --device r1
  newtsim audit list --last 24h
  newtsim audit list --rejected`,
}

var (
	auditDevice   string
	auditUser     string
	auditCommand  string
	auditLast     string
	auditLimit    int
	auditRejected bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Device:       auditDevice,
			User:         auditUser,
			Command:      auditCommand,
			Limit:        auditLimit,
			RejectedOnly: auditRejected,
		}
		if auditLast != "" {
			duration, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-duration)
		}

		events, err := audit.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "SOURCE", "USER", "DEVICE", "VIEW", "COMMAND", "STATUS")
		for _, event := range events {
			status := cli.Verdict(event.Accepted)
			t.Row(event.Timestamp.Local().Format("2006-01-02 15:04:05"),
				string(event.Source), event.User, event.Device, event.View, event.Command, status)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditListCmd.Flags().StringVar(&auditDevice, "device", "", "Filter by device")
	auditListCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditListCmd.Flags().StringVar(&auditCommand, "command", "", "Filter by command prefix")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g., 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditRejected, "rejected", false, "Show only rejected commands")
	auditListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print events as JSON")

	auditCmd.AddCommand(auditListCmd)
}
