package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/spf13/cobra"
)

type importTMXOptions struct {
	ingest.TMXOptions
	Out        string
	Format     string
	ToPostgres bool
}

func newImportTMXCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &importTMXOptions{}

	cmd := &cobra.Command{
		Use:   "import-tmx <map.tmx>",
		Short: "Convert a Tiled tile map into a campus map document",
		Long: `Convert a Tiled .tmx map into a campus map document.

Every non-empty tile of the walkable layer becomes an outdoor junction
joined to its four neighbours. Tiles with --target-gid get --target-tag.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportTMX(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Layer, "layer", "", `walkable layer (default: first layer named like "road")`)
	cmd.Flags().Uint32Var(&opts.TargetGID, "target-gid", 0, "tile gid to tag")
	cmd.Flags().StringVar(&opts.TargetTag, "target-tag", "target", "tag for --target-gid tiles")
	cmd.Flags().Float64Var(&opts.Scale, "scale", 1, "metres per pixel")
	cmd.Flags().StringVar(&opts.IDPrefix, "prefix", "", "node and edge ID prefix")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.Format, "format", "", "yaml|json (default from --out, else yaml)")
	cmd.Flags().BoolVar(&opts.ToPostgres, "to-postgres", false, "also store the document in postgres.url")

	return cmd
}

func runImportTMX(cmd *cobra.Command, rootOpts *rootOptions, opts *importTMXOptions, path string) error {
	format, err := outputFormat(opts.Format, opts.Out)
	if err != nil {
		return err
	}

	doc, err := readMap(path, opts.TMXOptions)
	if err != nil {
		return err
	}

	if opts.ToPostgres {
		cfg, _, err := rootOpts.loadQuiet(cmd)
		if err != nil {
			return err
		}
		if cfg.Postgres.URL == "" {
			return errors.New("--to-postgres needs postgres.url")
		}
		pg, err := ingest.NewPGSource(cmd.Context(), cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Save(cmd.Context(), doc); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := ingest.Encode(w, doc, format); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "imported %d nodes, %d edges from %s\n", len(doc.Nodes), len(doc.Edges), path)
	return nil
}

func outputFormat(flag, out string) (ingest.Format, error) {
	switch strings.ToLower(flag) {
	case "":
		if out != "" {
			return ingest.FormatFromPath(out), nil
		}
		return ingest.FormatYAML, nil
	case "yaml", "yml":
		return ingest.FormatYAML, nil
	case "json":
		return ingest.FormatJSON, nil
	}
	return "", fmt.Errorf("--format: must be yaml or json, got %q", flag)
}
