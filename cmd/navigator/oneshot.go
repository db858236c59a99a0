package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/dd0wney/cluso-navigator/pkg/config"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/spf13/cobra"
)

var errNoMap = errors.New("no map file: pass --map or set campus.map_file")

// openCampus loads a map file into a fresh navigator for one-shot
// commands. mapPath overrides campus.map_file.
func openCampus(cmd *cobra.Command, rootOpts *rootOptions, mapPath string) (*navigator.Navigator, *config.Config, error) {
	cfg, logger, err := rootOpts.loadQuiet(cmd)
	if err != nil {
		return nil, nil, err
	}
	if mapPath == "" {
		mapPath = cfg.Campus.MapFile
	}
	if mapPath == "" {
		return nil, nil, errNoMap
	}

	nav, err := newNavigator(cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	if _, err := loadMapFile(cmd.Context(), nav, mapPath); err != nil {
		nav.Close()
		return nil, nil, err
	}
	return nav, cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
