package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, handler http.Handler, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := authed(httptest.NewRequest("POST", "/v1/sessions/"+id+"/execute", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestExecute(t *testing.T) {
	handler, _ := newTestServer(t)
	id := createSession(t, handler, "bash")

	rec := execute(t, handler, id, `{"code":"echo hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello\n", resp["stdout"])
	assert.Equal(t, "", resp["stderr"])
	assert.Equal(t, float64(0), resp["exit_code"])
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, []any{}, resp["files"])
}

func TestExecute_StderrAndExitCode(t *testing.T) {
	handler, _ := newTestServer(t)
	id := createSession(t, handler, "bash")

	rec := execute(t, handler, id, `{"code":"echo oops 1>&2; exit 7"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "oops\n", resp["stderr"])
	assert.Equal(t, float64(7), resp["exit_code"])
	assert.Equal(t, "ok", resp["status"])
}

func TestExecute_FilesVisibleAfterRun(t *testing.T) {
	handler, _ := newTestServer(t)
	id := createSession(t, handler, "bash")

	rec := execute(t, handler, id, `{"code":"echo data > result.txt"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []any{"result.txt"}, resp["files"])
}

func TestExecute_Stdin(t *testing.T) {
	handler, _ := newTestServer(t)
	id := createSession(t, handler, "bash")

	rec := execute(t, handler, id, `{"code":"read x; echo got:$x","stdin":"ping"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "got:ping\n", resp["stdout"])
}

func TestExecute_LanguageOverride(t *testing.T) {
	handler, _ := newTestServer(t)
	id := createSession(t, handler, "python")

	rec := execute(t, handler, id, `{"code":"echo via-bash","language":"bash"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "via-bash\n", resp["stdout"])
}

func TestExecute_UnsupportedOverride(t *testing.T) {
	handler, _ := newTestServer(t)
	id := createSession(t, handler, "bash")

	rec := execute(t, handler, id, `{"code":"whatever","language":"cobol"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, ErrCodeUnsupportedLanguage, apiErr.Code)
}

func TestExecute_MissingCode(t *testing.T) {
	handler, _ := newTestServer(t)
	id := createSession(t, handler, "bash")

	rec := execute(t, handler, id, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, ErrCodeInvalidRequest, apiErr.Code)
}

func TestExecute_SessionNotFound(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := execute(t, handler, "no-such-session", `{"code":"echo x"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, ErrCodeSessionNotFound, apiErr.Code)
}

func TestExecute_ConcurrentSessionIsolation(t *testing.T) {
	handler, _ := newTestServer(t)
	a := createSession(t, handler, "bash")
	b := createSession(t, handler, "bash")

	// The sleeps keep both executions in flight at the same time.
	var wg sync.WaitGroup
	var recA, recB *httptest.ResponseRecorder
	wg.Add(2)
	go func() {
		defer wg.Done()
		recA = execute(t, handler, a, `{"code":"sleep 0.5; echo private > a.txt"}`)
	}()
	go func() {
		defer wg.Done()
		recB = execute(t, handler, b, `{"code":"sleep 0.5; echo private > b.txt"}`)
	}()
	wg.Wait()

	require.Equal(t, http.StatusOK, recA.Code)
	require.Equal(t, http.StatusOK, recB.Code)

	var respA, respB map[string]any
	require.NoError(t, json.Unmarshal(recA.Body.Bytes(), &respA))
	require.NoError(t, json.Unmarshal(recB.Body.Bytes(), &respB))
	assert.Equal(t, []any{"a.txt"}, respA["files"])
	assert.Equal(t, []any{"b.txt"}, respB["files"])

	// The listings stay disjoint after both runs settle.
	for id, want := range map[string]string{a: "a.txt", b: "b.txt"} {
		req := authed(httptest.NewRequest("GET", "/v1/sessions/"+id, nil))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []any{want}, resp["files"])
	}
}
