package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/config"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "cli-test-secret-that-is-long-enough-for-hs256"

const campusYAML = `
version: 1
campus: test
buildings:
  - id: H
    name: Hall
    floors: [1, 2]
nodes:
  - {id: A, type: junction, x: 0, y: 0}
  - {id: B, type: entrance, x: 10, y: 0, floor: 1, building: H}
  - {id: C, type: room, x: 10, y: 5, floor: 1, building: H}
  - {id: D, type: room, x: 10, y: 5, floor: 2, building: H}
edges:
  - {id: A-B, from: A, to: B, cost: 10}
  - {id: B-C, from: B, to: C, cost: 5, kind: corridor}
  - {id: C-D, from: C, to: D, cost: 8, kind: stairs}
constraints:
  - id: night-stairs
    kind: blocked_hours
    edge_id: C-D
    window: {start: "22:00", end: "06:00"}
`

// noEntranceYAML has a building that cannot be entered from outside.
const noEntranceYAML = `
buildings:
  - {id: L, floors: [1]}
nodes:
  - {id: X, type: junction, x: 0, y: 0}
  - {id: R, type: room, x: 5, y: 0, floor: 1, building: L}
`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// run executes the root command and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("NAV_CONFIG", "")
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func newTestNavigator(t *testing.T) *navigator.Navigator {
	t.Helper()
	nav, err := newNavigator(config.Default(), logging.NewNopLogger(), nil)
	require.NoError(t, err)
	t.Cleanup(nav.Close)
	return nav
}

func saveSnapshot(t *testing.T, store snapshot.Store, nav *navigator.Navigator) {
	t.Helper()
	v := nav.View()
	_, err := snapshot.Save(context.Background(), store, snapshot.New(v.Graph, v.Constraints))
	require.NoError(t, err)
}

func TestRequesterFlags(t *testing.T) {
	rc, err := requesterFlags("staff", true)
	require.NoError(t, err)
	assert.Equal(t, constraints.LevelStaff, rc.AccessLevel)
	assert.True(t, rc.StepFree)

	rc, err = requesterFlags("", false)
	require.NoError(t, err)
	assert.Equal(t, constraints.LevelPublic, rc.AccessLevel, "empty level means public")

	_, err = requesterFlags("janitor", false)
	assert.Error(t, err)
}

func TestParseAt(t *testing.T) {
	at, err := parseAt("")
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	at, err = parseAt("2026-03-04T23:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 23, at.Hour())

	_, err = parseAt("tonight")
	assert.ErrorContains(t, err, "--at")
}

func TestRouteCommand(t *testing.T) {
	mapFile := writeTemp(t, "campus.yaml", campusYAML)

	out, _, err := run(t, "route", "A", "D", "--map", mapFile, "--at", "2026-03-04T12:00:00Z")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "A -> D  cost 23")
	assert.Greater(t, len(lines), 1, "one line per leg")

	_, _, err = run(t, "route", "A", "D", "--map", mapFile, "--at", "2026-03-04T23:00:00Z")
	assert.Error(t, err, "stairs are closed at night")

	_, _, err = run(t, "route", "A", "D", "--map", mapFile, "--level", "wizard")
	assert.Error(t, err)
}

func TestRouteCommand_JSON(t *testing.T) {
	mapFile := writeTemp(t, "campus.yaml", campusYAML)

	out, _, err := run(t, "route", "A", "C", "--map", mapFile, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total_cost": 15`)
	assert.Contains(t, out, `"nodes": [`)
}

func TestRouteCommand_NoMap(t *testing.T) {
	_, _, err := run(t, "route", "A", "B")
	assert.ErrorIs(t, err, errNoMap)
}

func TestRouteCommand_MapFromConfig(t *testing.T) {
	mapFile := writeTemp(t, "campus.yaml", campusYAML)
	cfgFile := writeTemp(t, "navigator.yaml", "campus:\n  map_file: "+mapFile+"\n")

	out, _, err := run(t, "-c", cfgFile, "route", "B", "C")
	require.NoError(t, err)
	assert.Contains(t, out, "B -> C  cost 5")
}

func TestValidateCommand(t *testing.T) {
	out, _, err := run(t, "validate", writeTemp(t, "campus.yaml", campusYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "nodes 4  edges 3  buildings 1  constraints 1  components 1")
	assert.Contains(t, out, "0 error(s)")

	out, _, err = run(t, "validate", writeTemp(t, "broken.yaml", noEntranceYAML))
	assert.ErrorContains(t, err, "topology error")
	assert.Contains(t, out, "L:")
}

func TestValidateCommand_JSON(t *testing.T) {
	out, _, err := run(t, "validate", "--json", writeTemp(t, "campus.yaml", campusYAML))
	require.NoError(t, err)
	assert.Contains(t, out, `"components": 1`)
}

func TestCampusLoader_Order(t *testing.T) {
	ctx := context.Background()
	mapFile := writeTemp(t, "campus.yaml", campusYAML)
	small := writeTemp(t, "small.yaml", "nodes:\n  - {id: P, type: junction}\n  - {id: Q, type: junction, x: 3, y: 4}\nedges:\n  - {id: P-Q, from: P, to: Q}\n")

	store, err := openSnapshotStore(ctx, config.SnapshotConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, store)

	// Save a snapshot of the full campus.
	seed := newTestNavigator(t)
	_, err = loadMapFile(ctx, seed, mapFile)
	require.NoError(t, err)
	saveSnapshot(t, store, seed)

	t.Run("map file wins", func(t *testing.T) {
		nav := newTestNavigator(t)
		l := &campusLoader{mapFile: small, snapshots: store, logger: logging.NewNopLogger()}
		src, err := l.load(ctx, nav)
		require.NoError(t, err)
		assert.Equal(t, sourceMapFile, src)
		assert.Equal(t, 2, nav.Stats().Nodes)
	})

	t.Run("snapshot next", func(t *testing.T) {
		nav := newTestNavigator(t)
		l := &campusLoader{snapshots: store, logger: logging.NewNopLogger()}
		src, err := l.load(ctx, nav)
		require.NoError(t, err)
		assert.Equal(t, sourceSnapshot, src)
		assert.Equal(t, 4, nav.Stats().Nodes)
		assert.Equal(t, 1, nav.Stats().Constraints)
	})

	t.Run("empty store", func(t *testing.T) {
		empty, err := openSnapshotStore(ctx, config.SnapshotConfig{Dir: t.TempDir()})
		require.NoError(t, err)
		l := &campusLoader{snapshots: empty, logger: logging.NewNopLogger()}
		_, err = l.load(ctx, newTestNavigator(t))
		assert.ErrorIs(t, err, errNoCampus)
	})

	t.Run("bad map file", func(t *testing.T) {
		l := &campusLoader{mapFile: filepath.Join(t.TempDir(), "absent.yaml"), logger: logging.NewNopLogger()}
		_, err := l.load(ctx, newTestNavigator(t))
		require.Error(t, err)
		assert.NotErrorIs(t, err, errNoCampus)
	})
}

func TestOpenSnapshotStore_None(t *testing.T) {
	store, err := openSnapshotStore(context.Background(), config.SnapshotConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestReloadFunc(t *testing.T) {
	ctx := context.Background()
	mapFile := writeTemp(t, "campus.yaml", campusYAML)
	nav := newTestNavigator(t)

	cfg := config.Default()
	cfg.Campus.MapFile = mapFile
	require.NoError(t, reloadFunc(cfg, false, nav, nil)(ctx))
	v1 := nav.Stats().GraphVersion
	require.NoError(t, reloadFunc(cfg, false, nav, nil)(ctx))
	assert.Greater(t, nav.Stats().GraphVersion, v1)
	assert.Equal(t, 4, nav.Stats().Nodes)

	assert.Error(t, reloadFunc(cfg, true, nav, nil)(ctx), "replicas refuse")
	assert.ErrorIs(t, reloadFunc(config.Default(), false, nav, nil)(ctx), errNoCampus)
}

func TestNewNavigator_RejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Routing.Strategy = "bfs"
	_, err := newNavigator(cfg, logging.NewNopLogger(), nil)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Campus.TimeZone = "Nowhere/Special"
	_, err = newNavigator(cfg, logging.NewNopLogger(), nil)
	assert.Error(t, err)
}

func TestRootCommand_BadConfig(t *testing.T) {
	_, _, err := run(t, "-c", filepath.Join(t.TempDir(), "absent.yaml"), "token", "--user", "u")
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Campus.MapFile = writeTemp(t, "campus.yaml", campusYAML)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg, logging.NewNopLogger()) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
