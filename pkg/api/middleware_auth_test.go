package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testCounter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.Counter.GetValue()
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		value      string
		wantToken  string
		wantMethod string
	}{
		{"jwt bearer", "Authorization", "Bearer abc.def.ghi", "abc.def.ghi", "jwt"},
		{"lowercase scheme", "Authorization", "bearer abc", "abc", "jwt"},
		{"api key bearer", "Authorization", "Bearer nav_k1_secret", "nav_k1_secret", "apikey"},
		{"api key header", "X-API-Key", "nav_k1_secret", "nav_k1_secret", "apikey"},
		{"basic auth ignored", "Authorization", "Basic dXNlcjpwYXNz", "", ""},
		{"none", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set(tt.header, tt.value)
			}
			token, method := bearerToken(r)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, tt.wantMethod, method)
		})
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := assertError(t, ts.do(t, http.MethodGet, "/v1/nodes/A", nil, "not-a-jwt"),
		http.StatusUnauthorized, KindUnauthorized)
	assert.Contains(t, resp.Message, "invalid")

	w := ts.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Contains(t, w.Body.String(), `navigator_auth_failures_total{method="jwt"} 1`)
}

func TestAuthenticate_NotConfigured(t *testing.T) {
	ts := setupTestServer(t, func(c *Config) { c.Auth = nil })

	assertError(t, ts.do(t, http.MethodGet, "/v1/nodes/A", nil, "some-token"),
		http.StatusUnauthorized, KindUnauthorized)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/nodes/A", nil, "").Code)
}

func TestAuthenticate_APIKey(t *testing.T) {
	key, plain, err := auth.GenerateAPIKey("ops", bcrypt.MinCost)
	require.NoError(t, err)
	keys, err := auth.NewAPIKeyStore([]auth.APIKey{key})
	require.NoError(t, err)

	ts := setupTestServer(t, func(c *Config) {
		c.Auth = auth.NewCompositeTokenValidator(c.Auth, keys)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/topology", nil)
	req.Header.Set("X-API-Key", plain)
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/v1/admin/topology", nil, ts.admin(t))
	assert.Equal(t, http.StatusOK, w.Code, "JWTs still work through the composite validator")
}

func TestRequireAuth(t *testing.T) {
	ts := setupTestServer(t, func(c *Config) { c.RequireAuth = true })
	body := map[string]any{"origin": "A", "destination": "C", "at": noon}

	assertError(t, ts.do(t, http.MethodPost, "/v1/routes", body, ""), http.StatusUnauthorized, KindUnauthorized)
	assertError(t, ts.do(t, http.MethodGet, "/v1/nodes/C/neighbors", nil, ""), http.StatusUnauthorized, KindUnauthorized)
	assertError(t, ts.do(t, http.MethodPost, "/graphql", `{"query":"{ health }"}`, ""), http.StatusUnauthorized, KindUnauthorized)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/v1/nodes/A", nil, "").Code, "lookups stay public")
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil, "").Code)

	w := ts.do(t, http.MethodPost, "/v1/routes", body, ts.token(t, "viewer", constraints.LevelPublic))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestGraphQLEndpoint(t *testing.T) {
	ts := setupTestServer(t, nil)

	w := ts.do(t, http.MethodPost, "/graphql",
		`{"query":"{ route(origin: \"A\", destination: \"D\", at: \"`+noon+`\") { totalCost } }"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"totalCost":23`)
}
