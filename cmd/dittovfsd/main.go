package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "dittovfsd",
		Short: "dittovfsd runs the Owner/Group/World virtual filesystem core",
		Long: `dittovfsd hosts the Directory Handler and File Handle subsystem over a
content-addressed object store: it bootstraps or re-attaches to the
Owner/Group/World zone layout and keeps it available for a mount
adapter to drive. This binary does not itself speak NFS, SMB, or any
other wire protocol — it only hosts the core.`,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/dittovfsd/config.yaml)")

	root.AddCommand(newInitCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("dittovfsd %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
