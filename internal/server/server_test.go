package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/acdb/internal/enrich"
	"github.com/dreamware/acdb/internal/health"
	"github.com/dreamware/acdb/internal/metrics"
	"github.com/dreamware/acdb/internal/resolver"
	"github.com/dreamware/acdb/internal/scheduler"
	"github.com/dreamware/acdb/internal/transport/transporttest"
)

func newTestServer(t *testing.T, withMetrics bool) (*httptest.Server, *transporttest.Fetcher) {
	t.Helper()

	f := transporttest.NewFetcher()
	f.Set("A.json", `{"BC123":["N123AB","B738","00"],"children":["AB"]}`)
	f.Set("AB.json", `{"0001":["G-ABCD","C172","00"]}`)
	f.Set("4.json", `null`)
	f.SetTimeout("Z.json")
	f.Set(enrich.DefaultTypesPath, `{"B738":{"desc":"L2J","wtc":"M"}}`)

	var rec metrics.Recorder = metrics.Noop{}
	var metricsHandler http.Handler
	if withMetrics {
		p := metrics.NewPrometheus()
		rec, metricsHandler = p, p.Handler()
	}

	sched := scheduler.New(f, scheduler.Options{Metrics: rec})
	res := resolver.New(sched, enrich.NewCache(f, "", logr.Discard()), logr.Discard(), rec)
	srv := httptest.NewServer(New(res, sched, metricsHandler, logr.Discard()).Handler())
	t.Cleanup(srv.Close)
	return srv, f
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

// TestHandleAircraft tests the single lookup endpoint
func TestHandleAircraft(t *testing.T) {
	srv, _ := newTestServer(t, false)

	tests := []struct {
		name      string
		icao      string
		status    int
		outcome   string
		errStatus string
	}{
		{name: "found", icao: "abc123", status: http.StatusOK, outcome: "found"},
		{name: "descend", icao: "AB0001", status: http.StatusOK, outcome: "found"},
		{name: "not found", icao: "AFFFFF", status: http.StatusNotFound, outcome: "not_found"},
		{name: "synthetic", icao: "~1234", status: http.StatusNotFound, outcome: "not_found"},
		{name: "strange", icao: "4CA123", status: http.StatusConflict, outcome: "strange"},
		{name: "timeout", icao: "Z00001", status: http.StatusGatewayTimeout, outcome: "failed", errStatus: "timeout"},
		{name: "missing shard", icao: "B00001", status: http.StatusBadGateway, outcome: "failed", errStatus: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body Response
			code := getJSON(t, srv.URL+"/aircraft/"+tt.icao, &body)

			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.outcome, body.Outcome)
			assert.Equal(t, strings.ToUpper(tt.icao), body.ICAO)
			if tt.errStatus != "" {
				require.NotNil(t, body.Error)
				assert.Equal(t, tt.errStatus, body.Error.Status)
				assert.NotEmpty(t, body.Error.URL)
			} else {
				assert.Nil(t, body.Error)
			}
		})
	}

	t.Run("record is enriched", func(t *testing.T) {
		var body Response
		getJSON(t, srv.URL+"/aircraft/ABC123", &body)

		require.NotNil(t, body.Record)
		assert.Equal(t, "N123AB", *body.Record.Registration)
		assert.Equal(t, "L2J", *body.Record.Description)
		assert.Equal(t, "M", *body.Record.WakeCategory)
	})
}

// TestHandleBatch tests the batch lookup endpoint
func TestHandleBatch(t *testing.T) {
	srv, f := newTestServer(t, false)

	t.Run("mixed outcomes", func(t *testing.T) {
		payload := `{"icao":["ABC123","AB0001","4CA123","Z00001"]}`
		resp, err := http.Post(srv.URL+"/aircraft", "application/json", strings.NewReader(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		var body batchResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, 4, body.Count)
		assert.Equal(t, "found", body.Results[0].Outcome)
		assert.Equal(t, "found", body.Results[1].Outcome)
		assert.Equal(t, "strange", body.Results[2].Outcome)
		assert.Equal(t, "failed", body.Results[3].Outcome)
		assert.Equal(t, 1, f.Calls("A.json"))
	})

	t.Run("bad json", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/aircraft", "application/json", strings.NewReader(`{`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("too many identifiers", func(t *testing.T) {
		keys := make([]string, maxBatch+1)
		for i := range keys {
			keys[i] = "~X"
		}
		payload, err := json.Marshal(batchRequest{ICAO: keys})
		require.NoError(t, err)

		resp, err := http.Post(srv.URL+"/aircraft", "application/json", bytes.NewReader(payload))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})
}

// TestHandleStats tests the scheduler stats endpoint
func TestHandleStats(t *testing.T) {
	srv, _ := newTestServer(t, false)

	var res Response
	getJSON(t, srv.URL+"/aircraft/AB0001", &res)

	var stats scheduler.Stats
	code := getJSON(t, srv.URL+"/stats", &stats)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, stats.Cached)
	assert.Equal(t, uint64(2), stats.Fetches)
	assert.Equal(t, []string{"A", "AB"}, stats.Keys)
}

// TestHealthAndMetrics tests the operational endpoints
func TestHealthAndMetrics(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		srv, _ := newTestServer(t, false)
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("health monitor", func(t *testing.T) {
		f := transporttest.NewFetcher()
		mon := health.NewMonitor(f, enrich.DefaultTypesPath, time.Minute, logr.Discard())
		s := New(nil, nil, nil, logr.Discard())
		s.SetHealth(mon)
		srv := httptest.NewServer(s.Handler())
		defer srv.Close()

		for i := 0; i < health.DefaultMaxFailures; i++ {
			_ = mon.Check(context.Background())
		}
		var rep health.Report
		assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/health", &rep))
		assert.Equal(t, health.StatusUnhealthy, rep.Status)
		assert.Equal(t, enrich.DefaultTypesPath, rep.Target)

		f.Set(enrich.DefaultTypesPath, `{}`)
		require.NoError(t, mon.Check(context.Background()))
		assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &rep))
		assert.Equal(t, health.StatusHealthy, rep.Status)
	})

	t.Run("metrics disabled", func(t *testing.T) {
		srv, _ := newTestServer(t, false)
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("metrics enabled", func(t *testing.T) {
		srv, _ := newTestServer(t, true)

		var res Response
		getJSON(t, srv.URL+"/aircraft/ABC123", &res)

		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `acdb_resolver_resolutions_total{outcome="found"} 1`)
		assert.Contains(t, string(body), `acdb_shard_cache_requests_total{result="miss"} 1`)
	})
}
