package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headerDiffCodec/internal/config"
)

const firstBatch = `[
	{"name": "url", "value": "http://www.example.org/my-example/index.html"},
	{"name": "user-agent", "value": "my-user-agent"},
	{"name": "x-my-header", "value": "first"}
]`

const secondBatch = `[
	{"name": "url", "value": "http://www.example.org/my-example/resources/script.js"},
	{"name": "user-agent", "value": "my-user-agent"},
	{"name": "x-my-header", "value": "second"}
]`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	conf := config.Default()
	conf.Server.MaxSessions = 2
	return NewServer(conf, nil)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, srv *Server, body string) sessionResponse {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/sessions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t)

	resp := createSession(t, srv, "")
	assert.Equal(t, "request", resp.Context)
	assert.Equal(t, 4096, resp.MaxTableSize)
	_, err := uuid.Parse(resp.ID)
	assert.NoError(t, err)

	resp = createSession(t, srv, `{"context": "response", "max_table_size": 256}`)
	assert.Equal(t, "response", resp.Context)
	assert.Equal(t, 256, resp.MaxTableSize)
	assert.Equal(t, 2, srv.Store.Len())

	rec := do(t, srv, http.MethodPost, "/sessions", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "session limit")
}

func TestCreateSessionInvalid(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{`{"context": "trailer"}`, `{"max_table_size": -1}`, `{"max_table_size": 4294967296}`, `{`} {
		rec := do(t, srv, http.MethodPost, "/sessions", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, 0, srv.Store.Len())
}

func TestRoundTripBatches(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv, "").ID

	rec := do(t, srv, http.MethodPost, "/sessions/"+id+"/batches", firstBatch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, 0, first.Batch)
	assert.True(t, strings.HasPrefix(first.Stream, "032a2c"), first.Stream)
	assert.Equal(t, 92, first.Stats.OriginalSize)
	require.Len(t, first.Representations, 3)
	for _, rep := range first.Representations {
		assert.Equal(t, "Literal", rep.Representation)
		assert.Equal(t, "Incremental", rep.Indexing)
	}

	rec = do(t, srv, http.MethodPost, "/sessions/"+id+"/batches", secondBatch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, 1, second.Batch)
	require.Len(t, second.Representations, 3)
	assert.Equal(t, "Delta", second.Representations[0].Representation)
	assert.Equal(t, 0, second.Representations[0].Reference)
	assert.Equal(t, 34, second.Representations[0].CommonPrefixLength)
	assert.Equal(t, "Indexed", second.Representations[1].Representation)
	assert.Equal(t, "81", second.Representations[1].Bytes)
	assert.Less(t, second.Stats.EncodedSize, first.Stats.EncodedSize)

	rec = do(t, srv, http.MethodGet, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.Batches)
	assert.Equal(t, 77, snap.TableSize)
	assert.Len(t, snap.Entries, 4)
	assert.Equal(t, first.Stats.EncodedSize+second.Stats.EncodedSize, snap.Totals.EncodedSize)
}

func TestRoundTripBatchInvalid(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv, "").ID

	rec := do(t, srv, http.MethodPost, "/sessions/"+id+"/batches", `[{"name": "", "value": "x"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/sessions/"+id+"/batches", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad input leaves the session usable.
	rec = do(t, srv, http.MethodPost, "/sessions/"+id+"/batches", firstBatch)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv, "").ID

	rec := do(t, srv, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, srv.Store.Len())

	rec = do(t, srv, http.MethodDelete, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodGet, "/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRoutes(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPut, "/sessions", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
