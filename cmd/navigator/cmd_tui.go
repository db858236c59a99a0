package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newTUICommand(rootOpts *rootOptions) *cobra.Command {
	var mapFile string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Explore routes interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nav, _, err := openCampus(cmd, rootOpts, mapFile)
			if err != nil {
				return err
			}
			defer nav.Close()

			p := tea.NewProgram(newTUIModel(cmd.Context(), nav),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&mapFile, "map", "", "campus map file (overrides campus.map_file)")

	return cmd
}
