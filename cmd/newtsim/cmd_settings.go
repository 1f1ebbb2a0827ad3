package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.newtsim/settings.json.

Settings provide defaults for context flags and "serve" addresses.

Examples:
  newtsim settings show
  newtsim settings set topology labs/campus.yaml
  newtsim settings set profile huawei
  newtsim settings set lease-sweep 30
  newtsim settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable("SETTING", "VALUE")
		printSetting := func(name, value string) {
			if value == "" {
				value = "(not set)"
			}
			t.Row(name, value)
		}
		printSetting("topology", s.DefaultTopology)
		printSetting("profile", s.VendorProfile)
		printSetting("redis", s.GetRedisAddr())
		printSetting("audit-log", s.GetAuditLogPath())
		printSetting("ssh-addr", s.GetSSHAddr())
		printSetting("http-addr", s.GetHTTPAddr())
		printSetting("host-key", s.GetHostKeyPath())
		printSetting("lease-sweep", strconv.Itoa(int(s.GetLeaseSweep().Seconds()))+"s")
		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Long: `Set a persistent setting value. An empty value restores the default.

Available settings: topology, profile, redis, audit-log, ssh-addr,
http-addr, host-key, lease-sweep (seconds).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}
		if err := s.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", args[0], args[1])
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("All settings cleared.")
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show settings file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(settings.DefaultSettingsPath())
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
	settingsCmd.AddCommand(settingsPathCmd)
}
