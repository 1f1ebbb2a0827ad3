// Newtsim - Multi-vendor network topology simulator
//
// A CLI for driving a simulated lab of routers, switches and hosts through
// vendor-style consoles:
//   - Huawei VRP and Cisco IOS command grammars
//   - Routing, DHCP and traffic derived by convergence after every command
//   - SSH consoles, an HTTP API and Redis state publication under "serve"
//   - Audit logging of every console command
//
// Context flags select the lab and device; commands act on them:
//
//	newtsim -t <topology.yaml> -d <device> <command> [args]
//
// Examples:
//
//	newtsim -d r1 console                          # Interactive console
//	newtsim -d r1 exec system-view "sysname EDGE"  # One-shot commands
//	newtsim routes -d r1                           # Routing table
//	newtsim export                                 # All running configs
//	newtsim serve                                  # SSH + HTTP + Redis
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/engine"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/router"
	"github.com/newtron-network/newtsim/pkg/settings"
	"github.com/newtron-network/newtsim/pkg/strategy"
	"github.com/newtron-network/newtsim/pkg/topology"
	"github.com/newtron-network/newtsim/pkg/util"
	"github.com/newtron-network/newtsim/pkg/version"
)

var (
	// Context flags
	topologyPath string // -t, --topology
	deviceName   string // -d, --device
	profileID    string // -p, --profile

	// Option flags
	interpOnly bool
	verbose    bool
	logJSON    bool
	jsonOutput bool

	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "newtsim",
	Short:             "Multi-vendor network topology simulator",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Newtsim simulates a lab of routers, switches and hosts driven through
vendor-style consoles. Without -t the built-in demo lab is used.

  newtsim -t <topology.yaml> -d <device> <command> [args]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		if logJSON {
			util.SetJSONFormat()
		}

		cli.SetColor(term.IsTerminal(int(os.Stdout.Fd())))

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}
		if isSettingsOrHelp(cmd) {
			return nil
		}

		if topologyPath == "" {
			topologyPath = userSettings.DefaultTopology
		}
		if profileID == "" {
			profileID = userSettings.VendorProfile
		}

		auditLogger, err := audit.NewFileLogger(userSettings.GetAuditLogPath(), audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&topologyPath, "topology", "t", "", "Topology file (default: built-in demo lab)")
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "", "Device id")
	rootCmd.PersistentFlags().StringVarP(&profileID, "profile", "p", "", "Vendor profile ("+fmt.Sprint(strategy.Profiles())+")")
	rootCmd.PersistentFlags().BoolVar(&interpOnly, "interp", false, "Run every command on the interpreter, bypassing the native engine")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "console", Title: "Console Operations:"},
		&cobra.Group{ID: "query", Title: "Lab Queries:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)
	for _, cmd := range []*cobra.Command{consoleCmd, execCmd, serveCmd} {
		cmd.GroupID = "console"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{devicesCmd, routesCmd, healthCmd, exportCmd, validateCmd, stateCmd} {
		cmd.GroupID = "query"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, auditCmd, whoamiCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newtsim %s\n", version.Info())
	},
}

// isSettingsOrHelp returns true for commands that need neither lab defaults
// nor the audit log.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "help", "version":
			return true
		}
	}
	return false
}

// loadTopology reads -t, falling back to the built-in demo lab.
func loadTopology() (*model.Topology, error) {
	if topologyPath == "" {
		return topology.Sample(), nil
	}
	topo, err := topology.Load(topologyPath)
	if err != nil {
		return nil, fmt.Errorf("loading topology: %w", err)
	}
	return topo, nil
}

// newRouter builds the router of the selected lab with the native engine in
// front of the interpreter.
func newRouter(opts ...router.Option) (*router.Router, error) {
	topo, err := loadTopology()
	if err != nil {
		return nil, err
	}
	if profileID != "" && !strategy.Known(profileID) {
		util.Warnf("%s", strategy.Resolve(profileID).Describe(profileID))
	}
	opts = append([]router.Option{router.WithProfile(profileID)}, opts...)
	if !interpOnly {
		opts = append(opts, router.WithBackend(engine.New(nil)))
	}
	return router.New(topo, opts...), nil
}

// requireDevice ensures a device is specified via -d and exists.
func requireDevice(r *router.Router) (*model.Device, error) {
	if deviceName == "" {
		return nil, fmt.Errorf("device required: use -d <device> flag")
	}
	d := r.Device(deviceName)
	if d == nil {
		return nil, fmt.Errorf("device %s: %w", deviceName, util.ErrNotFound)
	}
	return d, nil
}
