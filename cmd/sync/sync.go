package sync

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ifazk/chithi/internal/dataset"
	"github.com/ifazk/chithi/internal/replicate"
	"github.com/ifazk/chithi/internal/target"
)

func NewSyncCmd() *cobra.Command {
	var recursive, identify, cloneHandling, sourceSudo, targetSudo, debug bool
	var cipher, sshConfig, identity, port, sendOpts, recvOpts string
	var sshOptions []string
	var keepSnapshots int

	cmd := &cobra.Command{
		Use:   "sync [flags] source target",
		Short: "Replicates a dataset to another pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceFs := dataset.ParseFs(args[0], dataset.RoleSource)
			targetFs := dataset.ParseFs(args[1], dataset.RoleTarget)

			sourceIsRoot, targetIsRoot := dataset.GetIsRoots(sourceFs.Host, targetFs.Host, identify)

			sourceTarget := buildTarget(sourceFs.Host, cipher, sshConfig, identity, port, sshOptions)
			targetTarget := buildTarget(targetFs.Host, cipher, sshConfig, identity, port, sshOptions)

			planner := replicate.New(sourceTarget, targetTarget, sourceFs, targetFs, replicate.Options{
				Recursive:     recursive,
				CloneHandling: cloneHandling,
				SourceSudo:    sourceSudo || !sourceIsRoot,
				TargetSudo:    targetSudo || !targetIsRoot,
				SendOpts:      sendOpts,
				RecvOpts:      recvOpts,
				Debug:         debug,
				KeepSnapshots: keepSnapshots,
			})
			return planner.Run(context.Background())
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "recursively replicate descendant datasets")
	cmd.Flags().BoolVar(&identify, "identify", false, "treat user@host sides as root regardless of the user name")
	cmd.Flags().BoolVar(&cloneHandling, "clone-handling", false, "rewrite clone origins onto the target side")
	cmd.Flags().BoolVar(&sourceSudo, "source-sudo", false, "prefix source-side zfs commands with sudo")
	cmd.Flags().BoolVar(&targetSudo, "target-sudo", false, "prefix target-side zfs commands with sudo")
	cmd.Flags().BoolVar(&debug, "debug", false, "inherit subprocess stderr")
	cmd.Flags().StringVarP(&cipher, "cipher", "c", "", "ssh cipher")
	cmd.Flags().StringVarP(&sshConfig, "ssh-config", "F", "", "ssh config file")
	cmd.Flags().StringVarP(&identity, "identity", "i", "", "ssh identity file")
	cmd.Flags().StringVarP(&port, "port", "p", "", "ssh port")
	cmd.Flags().StringArrayVarP(&sshOptions, "ssh-option", "o", nil, "extra ssh -o option (repeatable)")
	cmd.Flags().StringVar(&sendOpts, "send-opts", "", "zfs send option letters, e.g. \"v R\"")
	cmd.Flags().StringVar(&recvOpts, "recv-opts", "", "zfs receive option letters, e.g. \"F u\"")
	cmd.Flags().IntVar(&keepSnapshots, "keep-snapshots", 0, "retain only the newest N snapshots on target after success")

	return cmd
}

func buildTarget(host, cipher, sshConfig, identity, port string, options []string) *target.Target {
	if host == "" {
		return target.NewLocal()
	}
	return target.NewRemote(host, cipher, sshConfig, identity, port, options)
}
