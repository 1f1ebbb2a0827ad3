package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/router"
)

var (
	execExport     bool
	execShowRoutes bool
	execKeepGoing  bool
)

var execCmd = &cobra.Command{
	Use:   "exec <command>...",
	Short: "Run console commands on a device",
	Long: `Run each argument as one console line on the device selected with -d,
in order, printing the transcript.

Execution stops at the first rejected command unless --keep-going is given.
--export and --routes print the resulting lab state afterwards.

Examples:
  newtsim -d r1 exec system-view "sysname EDGE" return
  newtsim -d r1 exec --routes "display ip routing-table"
  newtsim -d pc1 exec "ping 192.168.1.1" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRouter()
		if err != nil {
			return err
		}
		defer r.Close()
		d, err := requireDevice(r)
		if err != nil {
			return err
		}

		ctx := router.WithSource(context.Background(), router.Source{
			Kind: audit.SourceExec,
			User: os.Getenv("USER"),
		})
		var outcomes []*router.Outcome
		var rejected error
		for _, line := range args {
			prompt := r.Prompt(d.ID)
			out, err := r.ExecuteCommand(ctx, d.ID, line)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, out)
			if !jsonOutput {
				fmt.Printf("%s%s\n", prompt, line)
				printOutput(os.Stdout, out)
			}
			if !out.Accepted {
				rejected = fmt.Errorf("command rejected: %s", line)
				if !execKeepGoing {
					break
				}
			}
		}

		if jsonOutput {
			if err := json.NewEncoder(os.Stdout).Encode(outcomes); err != nil {
				return err
			}
		}
		if execShowRoutes && !jsonOutput {
			fmt.Println()
			printRoutes(r.Device(d.ID))
		}
		if execExport && !jsonOutput {
			fmt.Println()
			fmt.Print(r.ExportRunningConfig())
		}
		return rejected
	},
}

func init() {
	execCmd.Flags().BoolVar(&execExport, "export", false, "Print every running configuration afterwards")
	execCmd.Flags().BoolVar(&execShowRoutes, "routes", false, "Print the device routing table afterwards")
	execCmd.Flags().BoolVar(&execKeepGoing, "keep-going", false, "Continue after a rejected command")
	execCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print outcomes as JSON")
}
