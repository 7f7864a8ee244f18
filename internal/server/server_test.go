package server

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/energylog/pkg/meter"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	m, err := meter.New("lightbulb", 5, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(New(m).Router())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)
	var got map[string]string
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/health", "", &got))
	assert.Equal(t, "ok", got["status"])
}

func TestServer_IngestAndEstimate(t *testing.T) {
	ts := newTestServer(t)

	var ing ingestResponse
	status := do(t, http.MethodPost, ts.URL+"/logs", strings.Join([]string{
		"1544206562 TurnOff",
		"1544206563 Delta +0.5",
		"1544210163 Delta -0.25",
		"1544210163 Delta -0.25",
		"1544211963 Delta +0.75",
		"1544213763 TurnOff",
		"1544213763 TurnedOff",
		"EOF",
	}, "\n"), &ing)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 6, ing.Accepted)
	assert.Equal(t, 2, ing.Rejected)
	assert.Equal(t, 5, ing.Events)

	var evs eventsResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/events", "", &evs))
	assert.Equal(t, "1544206562.0:0", evs.Events[0])
	assert.Len(t, evs.Events, 5)

	for i := 0; i < 2; i++ {
		var est map[string]any
		require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/estimate", "", &est))
		assert.InDelta(t, 5.625, est["energy_wh"], 1e-9, "call %d", i)
		assert.Equal(t, "lightbulb", est["kind"])
	}

	require.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, ts.URL+"/logs", "", nil))
	evs = eventsResponse{}
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/events", "", &evs))
	assert.Empty(t, evs.Events)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, http.MethodPut, ts.URL+"/logs", "", nil))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/nope", "", nil))
}

func TestServer_EstimateSaturatedDelta(t *testing.T) {
	ts := newTestServer(t)

	var ing ingestResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/logs",
		"1544206562 Delta +1"+strings.Repeat("0", 400)+"\n1544210162 TurnOff\n", &ing))
	require.Equal(t, 2, ing.Accepted)

	var est map[string]any
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/estimate", "", &est))
	assert.InDelta(t, 5.0, est["energy_wh"], 1e-9)
	intervals := est["intervals"].([]any)
	require.Len(t, intervals, 1)
	assert.Equal(t, "inf", intervals[0].(map[string]any)["delta"])
}

func TestServer_PostLogsLongLine(t *testing.T) {
	ts := newTestServer(t)

	body := strings.Join([]string{
		"1544206562 TurnOff",
		strings.Repeat("x", 70*1024),
		"1544210162 Delta +0.5",
	}, "\n")
	var ing ingestResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/logs", body, &ing))
	assert.Equal(t, ingestResponse{Accepted: 2, Rejected: 1, Events: 2}, ing)
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"v": math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]int{"v": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"v":1}`, rec.Body.String())
}
