package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/topology"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices of the lab",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRouter()
		if err != nil {
			return err
		}
		defer r.Close()

		fmt.Printf("Topology: %s (profile %s)\n\n", cli.Bold(r.TopologyName()), r.ActiveStrategy().ID())
		t := cli.NewTable("ID", "HOSTNAME", "TYPE", "PLATFORM", "PORTS", "ROUTES", "PROMPT")
		for _, d := range r.Devices() {
			t.Row(d.ID, d.Hostname, d.Type,
				strings.TrimSpace(d.Vendor+" "+d.Model),
				strconv.Itoa(len(d.Ports)),
				strconv.Itoa(len(d.Routes)),
				r.Prompt(d.ID))
		}
		t.Flush()
		return nil
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Show converged routing tables",
	Long: `Show the routing table of the device selected with -d, or of every
device that has routes.

Examples:
  newtsim routes
  newtsim routes -d r1 --json`,
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

		if jsonOutput {
			tables := make(map[string][]model.Route, len(devices))
			for _, d := range devices {
				tables[d.ID] = d.Routes.Sorted()
			}
			return json.NewEncoder(os.Stdout).Encode(tables)
		}
		first := true
		for _, d := range devices {
			if len(d.Routes) == 0 && deviceName == "" {
				continue
			}
			if !first {
				fmt.Println()
			}
			first = false
			fmt.Printf("%s (%s)\n", cli.Bold(d.Hostname), d.ID)
			printRoutes(d)
		}
		return nil
	},
}

func printRoutes(d *model.Device) {
	if len(d.Routes) == 0 {
		fmt.Println("  " + cli.Dim("(no routes)"))
		return
	}
	t := cli.NewTable("DESTINATION", "PROTO", "PREF", "COST", "NEXTHOP", "INTERFACE").WithPrefix("  ")
	for _, rt := range d.Routes.Sorted() {
		nh := rt.NextHopIP
		if nh == "" {
			nh = "direct"
		}
		t.Row(rt.Destination, rt.Protocol,
			strconv.Itoa(rt.Preference()),
			strconv.Itoa(rt.Cost),
			nh, rt.Interface)
	}
	t.Flush()
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the running configuration of every device",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRouter()
		if err != nil {
			return err
		}
		defer r.Close()
		fmt.Print(r.ExportRunningConfig())
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a topology file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := topologyPath
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("topology required: use -t <file> or provide as argument")
		}
		topo, err := topology.Load(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s: %d devices, %d cables\n", cli.Green("OK"), topo.Name, len(topo.Devices), len(topo.Cables))
		return nil
	},
}

func init() {
	routesCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print routes as JSON")
}
