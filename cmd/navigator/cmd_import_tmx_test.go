package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roadTMX is a U-shaped road with an exit tile in the bottom-right corner.
const roadTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" width="4" height="3" tilewidth="16" tileheight="16" infinite="0">
 <layer id="1" name="Roads" width="4" height="3">
  <data encoding="csv">
3,0,0,3,
3,0,0,3,
3,3,3,7
</data>
 </layer>
</map>`

func TestImportTMXCommand(t *testing.T) {
	tmx := writeTemp(t, "campus.tmx", roadTMX)

	out, stderr, err := run(t, "import-tmx", tmx, "--target-gid", "7", "--target-tag", "exit", "--prefix", "o:")
	require.NoError(t, err)
	assert.Contains(t, stderr, "imported 8 nodes, 7 edges")

	doc, err := ingest.Decode(strings.NewReader(out), ingest.FormatYAML)
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 8)
	require.Len(t, doc.Edges, 7)

	var tagged []string
	for _, n := range doc.Nodes {
		assert.True(t, strings.HasPrefix(n.ID, "o:"), n.ID)
		if len(n.Tags) > 0 {
			tagged = append(tagged, n.ID)
		}
	}
	assert.Equal(t, []string{ingest.TileNodeID("o:", 3, 2)}, tagged)
}

func TestImportTMXCommand_OutFile(t *testing.T) {
	tmx := writeTemp(t, "campus.tmx", roadTMX)
	dest := filepath.Join(t.TempDir(), "campus.json")

	out, _, err := run(t, "import-tmx", tmx, "-o", dest, "--scale", "0.5")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "{"), "format follows the .json extension")

	doc, err := ingest.Decode(strings.NewReader(string(data)), ingest.FormatJSON)
	require.NoError(t, err)
	require.NotNil(t, doc.Edges[0].Cost)
	assert.Equal(t, 8.0, *doc.Edges[0].Cost)

	// The converted map routes end to end.
	route, _, err := run(t, "route", ingest.TileNodeID("", 0, 0), ingest.TileNodeID("", 3, 0), "--map", dest)
	require.NoError(t, err)
	assert.Contains(t, route, "cost 56")
}

func TestImportTMXCommand_Errors(t *testing.T) {
	tmx := writeTemp(t, "campus.tmx", roadTMX)

	_, _, err := run(t, "import-tmx", tmx, "--format", "xml")
	assert.ErrorContains(t, err, "--format")

	_, _, err = run(t, "import-tmx", tmx, "--layer", "Water")
	assert.ErrorIs(t, err, ingest.ErrInvalidTMX)

	_, _, err = run(t, "import-tmx", tmx, "--to-postgres")
	assert.ErrorContains(t, err, "postgres.url")
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		flag, out string
		want      ingest.Format
	}{
		{"", "", ingest.FormatYAML},
		{"", "map.json", ingest.FormatJSON},
		{"", "map.yml", ingest.FormatYAML},
		{"JSON", "map.yaml", ingest.FormatJSON},
		{"yml", "", ingest.FormatYAML},
	}
	for _, tt := range tests {
		got, err := outputFormat(tt.flag, tt.out)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "flag=%q out=%q", tt.flag, tt.out)
	}
}
