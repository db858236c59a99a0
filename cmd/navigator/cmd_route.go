package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/route"
	"github.com/spf13/cobra"
)

type routeOptions struct {
	MapFile  string
	At       string
	Level    string
	StepFree bool
	JSON     bool
}

func newRouteCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &routeOptions{}

	cmd := &cobra.Command{
		Use:   "route <origin> <destination>",
		Short: "Find one route against a map file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, rootOpts, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.MapFile, "map", "", "campus map file (overrides campus.map_file)")
	cmd.Flags().StringVar(&opts.At, "at", "", "query time, RFC 3339 (default now)")
	cmd.Flags().StringVar(&opts.Level, "level", "public", "requester access level")
	cmd.Flags().BoolVar(&opts.StepFree, "step-free", false, "avoid stairs")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the route as JSON")

	return cmd
}

// requesterFlags builds the requester context from command flags. The
// operator running the CLI may pick any level.
func requesterFlags(level string, stepFree bool) (constraints.RequesterContext, error) {
	l, err := constraints.ParseAccessLevel(level)
	if err != nil {
		return constraints.RequesterContext{}, err
	}
	return constraints.RequesterContext{AccessLevel: l.Effective(), StepFree: stepFree}, nil
}

func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: %w", err)
	}
	return t, nil
}

func runRoute(cmd *cobra.Command, rootOpts *rootOptions, opts *routeOptions, origin, dest string) error {
	at, err := parseAt(opts.At)
	if err != nil {
		return err
	}
	rc, err := requesterFlags(opts.Level, opts.StepFree)
	if err != nil {
		return err
	}

	nav, _, err := openCampus(cmd, rootOpts, opts.MapFile)
	if err != nil {
		return err
	}
	defer nav.Close()

	rt, err := nav.FindPath(cmd.Context(), navigator.Request{
		OriginID:  origin,
		DestID:    dest,
		QueryTime: at,
		Requester: rc,
	})
	if err != nil {
		return err
	}

	if opts.JSON {
		return writeJSON(cmd.OutOrStdout(), rt)
	}
	printRoute(cmd.OutOrStdout(), rt)
	return nil
}

func printRoute(w io.Writer, rt *route.Route) {
	fmt.Fprintf(w, "%s -> %s  cost %s  (graph v%d, %s)\n",
		rt.Origin, rt.Destination, rt.TotalCost, rt.GraphVersion, rt.QueryTime.Format(time.RFC3339))
	for i, leg := range rt.Legs {
		fmt.Fprintf(w, "%3d. %-10s %-8s %s\n", i+1, leg.Layer, leg.Cost, leg.Instruction)
	}
}
