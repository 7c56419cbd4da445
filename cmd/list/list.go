package list

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ifazk/chithi/internal/display"
	"github.com/ifazk/chithi/internal/project"
)

func NewListCmd() *cobra.Command {
	var long, noHeaders, skipDisabled bool
	var projectName string

	cmd := &cobra.Command{
		Use:   "list [task]",
		Short: "List tasks and jobs in a chithi project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := project.Load(projectName)
			if err != nil {
				return err
			}
			if skipDisabled && proj.Disabled {
				fmt.Fprintln(os.Stderr, "project is disabled and --skip-disabled was given")
				return nil
			}

			var listings []project.Listing
			if len(args) == 1 {
				found := false
				listings, found = proj.TaskListings(args[0], skipDisabled)
				if !found {
					return fmt.Errorf("task %q not found in project %s", args[0], proj.Name)
				}
			} else {
				listings = proj.Listings(skipDisabled)
			}

			return printListings(listings, long, !noHeaders)
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "use a long listing format")
	cmd.Flags().BoolVarP(&noHeaders, "no-headers", "H", false, "scripted mode for long listing")
	cmd.Flags().BoolVar(&skipDisabled, "skip-disabled", false, "skip disabled tasks and jobs")
	cmd.Flags().StringVar(&projectName, "project", "chithi", "name of project")

	return cmd
}

func printListings(listings []project.Listing, long, headers bool) error {
	if !long {
		for _, l := range listings {
			fmt.Println(l.Loc.DisplayLabel())
		}
		return nil
	}

	var w *tabwriter.Writer
	out := os.Stdout
	if headers {
		w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	}
	write := func(format string, a ...any) {
		if w != nil {
			fmt.Fprintf(w, format, a...)
		} else {
			fmt.Fprintf(out, format, a...)
		}
	}

	if headers {
		write("Label\tdisabled\tSource\tTarget\tCommand\n")
	}
	for _, l := range listings {
		command := ""
		if l.Command != nil {
			quoted := make([]string, len(l.Command))
			for i, c := range l.Command {
				quoted[i] = fmt.Sprintf("%q", c)
			}
			command = display.SpaceSeparated(quoted)
		}
		write("%s\t%t\t%s\t%s\t%s\n",
			l.Loc.DisplayLabel(), l.Disabled,
			display.OptDisplay(l.Source), display.OptDisplay(l.Target), command)
	}
	if w != nil {
		return w.Flush()
	}
	return nil
}
