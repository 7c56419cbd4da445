package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ifazk/chithi/cmd/list"
	"github.com/ifazk/chithi/cmd/run"
	"github.com/ifazk/chithi/cmd/sync"
	"github.com/ifazk/chithi/cmd/version"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chithi",
		Short: "Chithi: OpenZFS replication and task runner",
	}

	rootCmd.AddCommand(sync.NewSyncCmd())
	rootCmd.AddCommand(list.NewListCmd())
	rootCmd.AddCommand(run.NewRunCmd())
	rootCmd.AddCommand(version.NewVersionCmd())

	return rootCmd
}

// KnownSubcommands reports the names chithi handles itself, as opposed
// to dispatching to an external chithi-<name> binary.
func KnownSubcommands() map[string]struct{} {
	return map[string]struct{}{
		"sync":       {},
		"list":       {},
		"run":        {},
		"version":    {},
		"help":       {},
		"completion": {},
	}
}
