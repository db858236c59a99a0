package api

import (
	"net/http"
	"testing"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/route"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRoute(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/v1/routes", map[string]any{
		"origin": "A", "destination": "D", "at": noon,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rt := decode[route.Route](t, w)
	assert.Equal(t, []string{"A", "B", "C", "D"}, rt.Nodes)
	assert.Equal(t, storage.CostFromFloat(23), rt.TotalCost)
	require.Len(t, rt.Segments, 3)
	assert.Equal(t, route.LayerOutdoor, rt.Segments[0].Layer)
	assert.Equal(t, storage.EdgeStairs, rt.Segments[2].Kind)
	assert.NotEmpty(t, rt.Legs)
}

func TestHandleRoute_Errors(t *testing.T) {
	ts := setupTestServer(t, nil)

	tests := []struct {
		name   string
		body   any
		status int
		kind   ErrorKind
	}{
		{"blocked at night", map[string]any{"origin": "A", "destination": "D", "at": night}, http.StatusUnprocessableEntity, KindNoPath},
		{"unknown origin", map[string]any{"origin": "Z", "destination": "D", "at": noon}, http.StatusNotFound, KindNotFound},
		{"missing destination", map[string]any{"origin": "A"}, http.StatusBadRequest, KindValidation},
		{"unknown field", `{"origin":"A","destination":"D","speed":3}`, http.StatusBadRequest, KindValidation},
		{"malformed json", `{"origin":`, http.StatusBadRequest, KindValidation},
		{"bad level", map[string]any{"origin": "A", "destination": "D", "access_level": "wizard"}, http.StatusBadRequest, KindValidation},
		{"anonymous raises level", map[string]any{"origin": "A", "destination": "D", "access_level": "staff"}, http.StatusForbidden, KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/v1/routes", tt.body, "")
			assertError(t, w, tt.status, tt.kind)
		})
	}
}

func TestHandleRoute_TokenLevel(t *testing.T) {
	ts := setupTestServer(t, nil)
	staff := ts.token(t, "viewer", constraints.LevelStaff)

	w := ts.do(t, http.MethodPost, "/v1/routes", map[string]any{
		"origin": "A", "destination": "C", "access_level": "student", "at": noon,
	}, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, storage.CostFromFloat(15), decode[route.Route](t, w).TotalCost)
}

func TestHandleRoute_ExemptLevel(t *testing.T) {
	ts := setupTestServer(t, nil)
	_, err := ts.nav.RemoveConstraints("night-stairs")
	require.NoError(t, err)

	start, _ := constraints.ParseClockTime("22:00")
	end, _ := constraints.ParseClockTime("06:00")
	_, err = ts.nav.AddConstraints(&constraints.Constraint{
		ID:          "night-stairs-staff",
		Kind:        constraints.KindBlockedHours,
		EdgeID:      storagetest.EdgeCD,
		Window:      &constraints.TimeWindow{Start: start, End: end},
		ExemptLevel: constraints.LevelStaff,
	})
	require.NoError(t, err)

	body := map[string]any{"origin": "A", "destination": "D", "at": night}
	assertError(t, ts.do(t, http.MethodPost, "/v1/routes", body, ""), http.StatusUnprocessableEntity, KindNoPath)

	w := ts.do(t, http.MethodPost, "/v1/routes", body, ts.token(t, "viewer", constraints.LevelStaff))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHandleBatchRoutes(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/v1/routes/batch", map[string]any{
		"requests": []map[string]any{
			{"origin": "A", "destination": "D", "at": noon},
			{"origin": "A", "destination": "D", "at": night},
			{"origin": "A", "destination": "C", "access_level": "admin"},
			{"origin": "B", "destination": "C", "at": noon},
		},
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[BatchRouteResponse](t, w)
	require.Len(t, resp.Results, 4)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 2, resp.Failed)

	for i, r := range resp.Results {
		assert.Equal(t, i, r.Index)
	}
	require.NotNil(t, resp.Results[0].Route)
	assert.Equal(t, storage.CostFromFloat(23), resp.Results[0].Route.TotalCost)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, string(KindNoPath), resp.Results[1].Error.Error)
	require.NotNil(t, resp.Results[2].Error)
	assert.Equal(t, string(KindForbidden), resp.Results[2].Error.Error)
	require.NotNil(t, resp.Results[3].Route)
	assert.Equal(t, storage.CostFromFloat(5), resp.Results[3].Route.TotalCost)
}

func TestHandleBatchRoutes_Validation(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/v1/routes/batch", map[string]any{"requests": []any{}}, "")
	assertError(t, w, http.StatusBadRequest, KindValidation)

	w = ts.do(t, http.MethodPost, "/v1/routes/batch", map[string]any{
		"requests": []map[string]any{{"origin": "A"}},
	}, "")
	assertError(t, w, http.StatusBadRequest, KindValidation)
}

func TestHandleNearest(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/v1/routes/nearest", map[string]any{
		"origin": "A", "type": "room", "at": noon,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rt := decode[route.Route](t, w)
	assert.Equal(t, "C", rt.Destination)
	assert.Equal(t, storage.CostFromFloat(15), rt.TotalCost)

	w = ts.do(t, http.MethodPost, "/v1/routes/nearest", map[string]any{
		"origin": "A", "type": "room", "building": "H", "at": noon,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "C", decode[route.Route](t, w).Destination)
}

func TestHandleNearest_Errors(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/v1/routes/nearest", map[string]any{"origin": "A"}, "")
	assertError(t, w, http.StatusBadRequest, KindValidation)

	w = ts.do(t, http.MethodPost, "/v1/routes/nearest", map[string]any{
		"origin": "A", "type": "elevator", "at": noon,
	}, "")
	assertError(t, w, http.StatusUnprocessableEntity, KindNoPath)
}

func TestHandleReachable(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodGet, "/v1/nodes/A/reachable?budget=15&at="+noon, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ReachableResponse](t, w)
	assert.Equal(t, "A", resp.Origin)
	assert.Equal(t, storage.CostFromFloat(15), resp.Budget)
	ids := make([]string, len(resp.Nodes))
	for i, n := range resp.Nodes {
		ids[i] = n.NodeID
	}
	assert.Equal(t, []string{"B", "C"}, ids, "origin is excluded")
	assert.Equal(t, storage.CostFromFloat(15), resp.Nodes[1].Cost)
	assert.Equal(t, 2, resp.TotalReachable)

	w = ts.do(t, http.MethodGet, "/v1/nodes/A/reachable?budget=100&at="+night, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ReachableResponse](t, w).Nodes, 2, "stairs are closed at night")
}

func TestHandleReachable_Errors(t *testing.T) {
	ts := setupTestServer(t, nil)

	assertError(t, ts.do(t, http.MethodGet, "/v1/nodes/A/reachable?budget=lots", nil, ""),
		http.StatusBadRequest, KindValidation)
	assertError(t, ts.do(t, http.MethodGet, "/v1/nodes/A/reachable?at=yesterday", nil, ""),
		http.StatusBadRequest, KindValidation)
	assertError(t, ts.do(t, http.MethodGet, "/v1/nodes/Z/reachable", nil, ""),
		http.StatusNotFound, KindNotFound)
}
