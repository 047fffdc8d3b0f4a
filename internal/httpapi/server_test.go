package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nse-oi-tracker/internal/backfill"
	"nse-oi-tracker/internal/config"
	"nse-oi-tracker/internal/dashboard"
	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/models"
	"nse-oi-tracker/internal/provider"
	"nse-oi-tracker/internal/store"
	"nse-oi-tracker/pkg/utils"
)

var testNow = time.Date(2024, 1, 23, 9, 50, 0, 0, utils.IndiaLocation)

type downProvider struct{}

func (downProvider) LookupSymbol(context.Context, models.Index) (string, error) {
	return "", errors.NewProviderError("lookup", "NIFTY", 0, errors.ErrTransportFailure)
}

func (downProvider) Expiries(context.Context, string) ([]string, error) {
	return nil, errors.ErrTransportFailure
}

func (downProvider) FetchSnapshot(context.Context, string, string, string) ([]byte, error) {
	return nil, errors.ErrTransportFailure
}

func newTestServer(t *testing.T, p provider.Provider) *httptest.Server {
	t.Helper()
	clock := func() time.Time { return testNow }
	if syn, ok := p.(*provider.Synthetic); ok {
		syn.WithClock(clock)
	}
	s := store.NewSnapshotStore(store.NewKVPersistence(store.NewMemoryKV(), "h"), zerolog.Nop())
	o := backfill.New(p, s, config.BackfillConfig{Start: "09:15", StepMinutes: 15, MaxAttempts: 1}, time.Second, zerolog.Nop()).WithClock(clock)
	svc := dashboard.NewService(p, provider.NewSynthetic().WithClock(clock), s, o, time.Second, zerolog.Nop())

	srv := httptest.NewServer(New(svc, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, provider.NewSynthetic())
	var body healthResponse
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body.Status)
	assert.False(t, body.BackfillRunning)
}

func TestLiveThenLatestAndHistory(t *testing.T) {
	srv := newTestServer(t, provider.NewSynthetic())

	var live map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/indices/nifty/live", &live))
	assert.Equal(t, "live", live["source"])
	assert.NotContains(t, live, "warning")
	assert.Contains(t, live, "analysis")

	var latest models.LiveView
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/latest", &latest))
	assert.Equal(t, models.IndexNifty, latest.Chain.Symbol)

	var history []models.SnapshotSummary
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/history", &history))
	assert.Len(t, history, 1)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/history", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	history = nil
	getJSON(t, srv.URL+"/api/v1/history", &history)
	assert.Empty(t, history)
}

func TestLiveFallsBackToDemo(t *testing.T) {
	srv := newTestServer(t, downProvider{})

	var live map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/indices/FINNIFTY/live", &live))
	assert.Equal(t, "demo", live["source"])
	assert.Contains(t, live["warning"], "transport failure")

	var history []models.SnapshotSummary
	getJSON(t, srv.URL+"/api/v1/history", &history)
	assert.Empty(t, history)
}

func TestInvalidSymbol(t *testing.T) {
	srv := newTestServer(t, provider.NewSynthetic())
	var body map[string]string
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/indices/SENSEX/live", &body))
	assert.Contains(t, body["error"], "invalid index")
}

func TestLatestBeforeAnyView(t *testing.T) {
	srv := newTestServer(t, provider.NewSynthetic())
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/latest", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/export?format=csv", nil))
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, provider.NewSynthetic())
	getJSON(t, srv.URL+"/api/v1/indices/NIFTY/live", nil)

	resp, err := http.Get(srv.URL + "/api/v1/export?format=csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "nifty-20240123-")

	first, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "strike,expiry,call_oi"))

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/v1/export?format=xml", nil))

	var doc dashboard.ExportDocument
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/export", &doc))
	assert.Equal(t, models.SourceLive, doc.Source)
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, resp *http.Response) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			events = append(events, cur)
			cur = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestBackfillStreamsProgress(t *testing.T) {
	srv := newTestServer(t, provider.NewSynthetic())

	resp, err := http.Post(srv.URL+"/api/v1/indices/NIFTY/backfill", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)
	require.NotEmpty(t, events)
	assert.Equal(t, "progress", events[0].name)

	final := events[len(events)-1]
	require.Equal(t, "result", final.name)
	var res backfill.Result
	require.NoError(t, json.Unmarshal([]byte(final.data), &res))
	assert.Equal(t, backfill.StateIdle, res.State)
	assert.Equal(t, []string{"09:15", "09:30", "09:45"}, res.Intervals)
	assert.Len(t, res.Summaries, 3)

	var history []models.SnapshotSummary
	getJSON(t, srv.URL+"/api/v1/history", &history)
	assert.Len(t, history, 3)
}

func TestBackfillAbortStreamsError(t *testing.T) {
	srv := newTestServer(t, downProvider{})

	resp, err := http.Post(srv.URL+"/api/v1/indices/NIFTY/backfill", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readEvents(t, resp)
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, "error", final.name)
	assert.Contains(t, final.data, "aborted")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, provider.NewSynthetic())
	getJSON(t, srv.URL+"/health", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
