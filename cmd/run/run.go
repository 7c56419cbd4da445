package run

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ifazk/chithi/internal/project"
	"github.com/ifazk/chithi/internal/runner"
	"github.com/ifazk/chithi/internal/tagfilter"
)

func NewRunCmd() *cobra.Command {
	var noRunConfig, createPidFiles bool
	var projectName, tagsExpr string

	cmd := &cobra.Command{
		Use:   "run [task[.job]]",
		Short: "Task runner for chithi",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project.Load(projectName)
			if err != nil {
				return err
			}

			var filter tagfilter.Filter
			if tagsExpr != "" {
				filter, err = tagfilter.Parse(tagsExpr)
				if err != nil {
					return err
				}
			}

			var selectorArg string
			if len(args) == 1 {
				selectorArg = args[0]
			}
			sel, err := runner.ParseSelector(selectorArg)
			if err != nil {
				return err
			}

			r := runner.New(proj, runner.Options{
				NoRunConfig:    noRunConfig,
				CreatePidFiles: createPidFiles,
				Tags:           filter,
			})
			return r.Run(context.Background(), sel)
		},
	}

	cmd.Flags().BoolVar(&noRunConfig, "no-run-config", false, "run without any delays or restarts")
	cmd.Flags().BoolVar(&createPidFiles, "create-pid-files", false, "acquire a pid-file lock before running")
	cmd.Flags().StringVar(&tagsExpr, "tags", "", "tag filter expression")
	cmd.Flags().StringVar(&projectName, "project", "chithi", "name of project")

	return cmd
}
