package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtsim/pkg/audit"
	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/router"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami [user]",
	Short: "Show groups and permissions granted by the topology access policy",
	Long: `Show what the topology access policy grants a user: the groups the
user belongs to and the resulting permissions. Defaults to $USER.

Examples:
  newtsim whoami
  newtsim -t lab.yaml whoami alice --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRouter()
		if err != nil {
			return err
		}
		defer r.Close()

		user := os.Getenv("USER")
		if len(args) == 1 {
			user = args[0]
		}
		id := r.Identity(router.WithSource(context.Background(), router.Source{Kind: audit.SourceExec, User: user}))
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(id)
		}
		printIdentity(os.Stdout, id)
		return nil
	},
}

func printIdentity(w io.Writer, id router.Identity) {
	fmt.Fprintf(w, "User: %s\n", cli.Bold(id.User))
	if id.Open {
		fmt.Fprintln(w, "Access: open (no access policy in the topology)")
		return
	}
	groups := "(none)"
	if len(id.Groups) > 0 {
		groups = strings.Join(id.Groups, ", ")
	}
	fmt.Fprintf(w, "Groups: %s\n", groups)
	if len(id.Permissions) == 0 {
		fmt.Fprintln(w, "Permissions: (none)")
		return
	}
	fmt.Fprintln(w, "Permissions:")
	for _, p := range id.Permissions {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

func init() {
	whoamiCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the identity as JSON")
}
