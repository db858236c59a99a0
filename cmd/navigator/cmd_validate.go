package main

import (
	"fmt"
	"io"

	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/spf13/cobra"
)

type validateOptions struct {
	JSON bool
}

func newValidateCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [map-file]",
		Short: "Load a map and report topology problems",
		Long: `Load a campus map and report topology problems such as floors that
cannot be reached, buildings without an entrance and one-way traps.

Exits non-zero when the report contains errors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(cmd, rootOpts, opts, path)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the report as JSON")

	return cmd
}

func runValidate(cmd *cobra.Command, rootOpts *rootOptions, opts *validateOptions, path string) error {
	nav, _, err := openCampus(cmd, rootOpts, path)
	if err != nil {
		return err
	}
	defer nav.Close()

	report := nav.Topology()
	if opts.JSON {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		printTopology(cmd.OutOrStdout(), nav.Stats(), report)
	}

	if report.Errors > 0 {
		return fmt.Errorf("map has %d topology error(s)", report.Errors)
	}
	return nil
}

func printTopology(w io.Writer, st navigator.Stats, report *navigator.TopologyReport) {
	fmt.Fprintf(w, "nodes %d  edges %d  buildings %d  constraints %d  components %d\n",
		st.Nodes, st.Edges, st.Buildings, st.Constraints, report.Components)
	for _, v := range report.Violations {
		fmt.Fprintf(w, "  %-7s %-28s %s: %s\n", v.Severity, v.Type, v.BuildingID, v.Message)
	}
	for _, id := range report.OneWayTraps {
		fmt.Fprintf(w, "  %-7s node %s can be entered but not left\n", "warning", id)
	}
	fmt.Fprintf(w, "%d error(s), %d warning(s)\n", report.Errors, report.Warnings)
}
