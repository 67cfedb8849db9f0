package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/friction/internal/scanner"
	"github.com/mesh-intelligence/friction/internal/sqlite"
	"github.com/mesh-intelligence/friction/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope mirrors the JSON response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type fakeScanner struct {
	names []string
	err   error
	root  string
}

func (f *fakeScanner) Scan(ctx context.Context, root string) ([]string, error) {
	f.root = root
	return f.names, f.err
}

func setupServer(t *testing.T, scanner ProjectScanner) (*Server, *sqlite.Backend) {
	t.Helper()
	b := sqlite.NewBackend(nil)
	require.NoError(t, b.Attach(types.Config{DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return NewServer(b, scanner, nil), b
}

func do(t *testing.T, s *Server, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestObservationLifecycle(t *testing.T) {
	s, _ := setupServer(t, nil)

	w, env := do(t, s, http.MethodPost, "/api/observations", gin.H{"text": "  slow builds  ", "project": "acme/widgets"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)
	created := decode[types.Observation](t, env.Data)
	assert.Equal(t, "slow builds", created.Text)
	assert.Equal(t, types.DispositionOpen, created.Disposition)
	assert.Equal(t, "human", created.Source)
	assert.Equal(t, "acme/widgets", created.ProjectName())

	w, env = do(t, s, http.MethodGet, "/api/observations/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[types.Observation](t, env.Data).ID)

	w, env = do(t, s, http.MethodPatch, "/api/observations/1", gin.H{"disposition": "deferred"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.DispositionDeferred, decode[types.Observation](t, env.Data).Disposition)

	w, env = do(t, s, http.MethodGet, "/api/observations?disposition=deferred", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.Observation](t, env.Data), 1)

	w, env = do(t, s, http.MethodGet, "/api/observations?disposition=open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]types.Observation](t, env.Data))

	w, _ = do(t, s, http.MethodDelete, "/api/observations/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, s, http.MethodGet, "/api/observations/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)

	w, _ = do(t, s, http.MethodDelete, "/api/observations/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestObservationErrors(t *testing.T) {
	s, _ := setupServer(t, nil)
	w, _ := do(t, s, http.MethodPost, "/api/observations", gin.H{"text": "exists"})
	require.Equal(t, http.StatusCreated, w.Code)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{name: "blank text", method: http.MethodPost, target: "/api/observations", body: gin.H{"text": "   "}, want: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, target: "/api/observations", body: "nope", want: http.StatusBadRequest},
		{name: "bad id", method: http.MethodGet, target: "/api/observations/abc", want: http.StatusBadRequest},
		{name: "invalid disposition filter", method: http.MethodGet, target: "/api/observations?disposition=observed", want: http.StatusBadRequest},
		{name: "invalid disposition update", method: http.MethodPatch, target: "/api/observations/1", body: gin.H{"disposition": "automated"}, want: http.StatusBadRequest},
		{name: "empty update", method: http.MethodPatch, target: "/api/observations/1", body: gin.H{}, want: http.StatusBadRequest},
		{name: "update unknown", method: http.MethodPatch, target: "/api/observations/99", body: gin.H{"text": "x"}, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestActions(t *testing.T) {
	s, _ := setupServer(t, nil)
	do(t, s, http.MethodPost, "/api/observations", gin.H{"text": "first"})
	do(t, s, http.MethodPost, "/api/observations", gin.H{"text": "second"})

	w, env := do(t, s, http.MethodPost, "/api/actions", gin.H{
		"description":     "fixed it",
		"observation_ids": []int64{2, 1},
		"reference":       "PR #7",
		"project":         "acme/widgets",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	action := decode[types.ActionWithLinks](t, env.Data)
	assert.Equal(t, []int64{2, 1}, action.ObservationIDs)

	w, env = do(t, s, http.MethodGet, "/api/actions?observation_id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]types.ActionWithLinks](t, env.Data)
	require.Len(t, list, 1)
	assert.Equal(t, action.ID, list[0].ID)

	w, env = do(t, s, http.MethodGet, "/api/observations/2/actions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.Action](t, env.Data), 1)

	w, _ = do(t, s, http.MethodGet, "/api/actions?observation_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/actions", gin.H{"description": "x", "observation_ids": []int64{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/actions", gin.H{"description": "x", "observation_ids": []int64{1, 1}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/actions", gin.H{"description": "x", "observation_ids": []int64{42}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjects(t *testing.T) {
	s, _ := setupServer(t, nil)

	w, env := do(t, s, http.MethodPost, "/api/projects", gin.H{"name": " acme/widgets "})
	require.Equal(t, http.StatusCreated, w.Code)
	project := decode[types.Project](t, env.Data)
	assert.Equal(t, "acme/widgets", project.Name)

	w, env = do(t, s, http.MethodPost, "/api/projects/bulk", gin.H{"names": []string{"a/a", "a/a", "acme/widgets", "b/b"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.Project](t, env.Data), 2)

	w, env = do(t, s, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]types.Project](t, env.Data), 3)

	w, _ = do(t, s, http.MethodPost, "/api/projects", gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodDelete, "/api/projects/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, s, http.MethodDelete, "/api/projects/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScanProjects(t *testing.T) {
	scanner := &fakeScanner{names: []string{"acme/a", "acme/b"}}
	s, _ := setupServer(t, scanner)
	do(t, s, http.MethodPost, "/api/projects", gin.H{"name": "acme/a"})

	w, env := do(t, s, http.MethodPost, "/api/projects/scan", gin.H{"path": " ~/src "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "~/src", scanner.root)

	var result struct {
		Found   []string        `json:"found"`
		Created []types.Project `json:"created"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []string{"acme/a", "acme/b"}, result.Found)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "acme/b", result.Created[0].Name)

	w, _ = do(t, s, http.MethodPost, "/api/projects/scan", gin.H{"path": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	scanner.err = errors.New("no such directory")
	w, env = do(t, s, http.MethodPost, "/api/projects/scan", gin.H{"path": "/missing"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
}

func TestScanProjects_UnresolvableRoot(t *testing.T) {
	s, _ := setupServer(t, scanner.New())

	missing := filepath.Join(t.TempDir(), "missing")
	w, env := do(t, s, http.MethodPost, "/api/projects/scan", gin.H{"path": missing})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "missing")
}

func TestExportMarkdown(t *testing.T) {
	s, _ := setupServer(t, nil)
	do(t, s, http.MethodPost, "/api/observations", gin.H{"text": "slow builds"})

	w, _ := do(t, s, http.MethodGet, "/api/export.md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "## Open (1)")
	assert.Contains(t, w.Body.String(), "slow builds")
}

func TestDispositions(t *testing.T) {
	s, _ := setupServer(t, nil)
	w, env := do(t, s, http.MethodGet, "/api/dispositions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.Dispositions, decode[[]string](t, env.Data))
}

func TestRequestID(t *testing.T) {
	s, _ := setupServer(t, nil)

	w, _ := do(t, s, http.MethodGet, "/api/dispositions", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/dispositions", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestDetachedBackend(t *testing.T) {
	s, b := setupServer(t, nil)
	require.NoError(t, b.Detach())

	w, env := do(t, s, http.MethodGet, "/api/observations", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
}
