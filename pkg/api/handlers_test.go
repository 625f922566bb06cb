package api

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ACascarino/pat/pkg/archive"
	"github.com/ACascarino/pat/pkg/sss"
)

func encodeRecord(payload []byte) []byte {
	out := make([]byte, 6+len(payload))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(payload)))
	binary.BigEndian.PutUint16(out[4:6], sss.Checksum(payload))
	copy(out[6:], payload)
	return out
}

func newTestRouter(t *testing.T, config ServerConfig) chi.Router {
	t.Helper()
	arc, err := archive.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = arc.Close() })

	metrics := NewMetrics(prometheus.NewRegistry())
	return Router(NewServer(arc, config, metrics, nil), metrics)
}

func doRequest(router chi.Router, method, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	if data != nil && resp.Data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, data))
	}
	return resp
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(t, ServerConfig{})

	rec := doRequest(router, http.MethodGet, "/api/v1/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var data map[string]string
	resp := decodeResponse(t, rec, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, "healthy", data["status"])
}

func TestHandleDecode(t *testing.T) {
	router := newTestRouter(t, ServerConfig{})
	stream := encodeRecord([]byte{0xf0, 0xf8, 0x80, 0x64, 0xff})

	rec := doRequest(router, http.MethodPost, "/api/v1/decode", stream, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data DecodeResponse
	resp := decodeResponse(t, rec, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, data.Version)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "Overall Pass (F0)", data.Rows[0].Label)
	assert.Equal(t, "Continuity (F8)", data.Rows[1].Label)
	assert.Empty(t, data.Problems)
}

func TestHandleDecodeReportsProblems(t *testing.T) {
	router := newTestRouter(t, ServerConfig{})
	bad := encodeRecord([]byte{0x42, 0xff})
	good := encodeRecord([]byte{0xf0, 0xff})

	rec := doRequest(router, http.MethodPost, "/api/v1/decode", append(bad, good...), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data DecodeResponse
	decodeResponse(t, rec, &data)
	require.Len(t, data.Problems, 1)
	assert.Equal(t, 1, data.Problems[0].Record)
	assert.Contains(t, data.Problems[0].Error, "unknown type")
	require.Len(t, data.Rows, 1)
	assert.Equal(t, 2, data.Rows[0].Record)
}

func TestHandleDecodeFatalStream(t *testing.T) {
	router := newTestRouter(t, ServerConfig{})
	truncated := encodeRecord([]byte{0xf0, 0xff})[:7]

	rec := doRequest(router, http.MethodPost, "/api/v1/decode", truncated, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeResponse(t, rec, nil)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "truncated stream")
}

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(t, ServerConfig{})
	stream := encodeRecord([]byte{0xf0, 0xff})

	// Store
	rec := doRequest(router, http.MethodPost, "/api/v1/sessions", stream,
		map[string]string{"X-Source-Name": "meter.sss"})
	require.Equal(t, http.StatusOK, rec.Code)

	var session archive.Session
	decodeResponse(t, rec, &session)
	require.NotEmpty(t, session.ID)
	assert.Equal(t, "meter.sss", session.Source)
	assert.Equal(t, 1, session.Rows)

	// List
	rec = doRequest(router, http.MethodGet, "/api/v1/sessions", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []archive.Session
	decodeResponse(t, rec, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)

	// Rows
	rec = doRequest(router, http.MethodGet, "/api/v1/sessions/"+session.ID+"/rows", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []*sss.Row
	decodeResponse(t, rec, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "Overall Pass (F0)", rows[0].Label)

	// Delete
	rec = doRequest(router, http.MethodDelete, "/api/v1/sessions/"+session.ID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/v1/sessions/"+session.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreSessionRejectsFatalStream(t *testing.T) {
	router := newTestRouter(t, ServerConfig{})
	truncated := encodeRecord([]byte{0xf0, 0xff})[:7]

	rec := doRequest(router, http.MethodPost, "/api/v1/sessions", truncated, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/v1/sessions", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []archive.Session
	decodeResponse(t, rec, &sessions)
	assert.Empty(t, sessions)
}

func TestGetSessionNotFound(t *testing.T) {
	router := newTestRouter(t, ServerConfig{})

	rec := doRequest(router, http.MethodGet, "/api/v1/sessions/no-such-id", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpointUnprotected(t *testing.T) {
	router := newTestRouter(t, ServerConfig{APIKey: "secret"})

	rec := doRequest(router, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
