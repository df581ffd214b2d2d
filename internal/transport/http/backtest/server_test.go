package backtesthttp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"tradedash/internal/backtest"
	"tradedash/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docJSON = `{
  "name": "smoke",
  "initial_capital": 100,
  "period_days": 2,
  "trades": [{"profit_loss": 10}, {"profit_loss": -5}],
  "equity_curve": [
    {"timestamp": "2024-01-01T00:00:00Z", "value": 100},
    {"timestamp": "2024-01-02T00:00:00Z", "value": 110},
    {"timestamp": "2024-01-03T00:00:00Z", "value": 105}
  ]
}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := backtest.NewResultStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ev, err := backtest.NewEvaluator(backtest.EvaluatorConfig{
		Repo:     store,
		MemoSize: 16,
		Limits:   backtest.Limits{MaxTrades: 100, MaxEquityPoints: 100},
	})
	require.NoError(t, err)
	srv, err := NewServer(Config{Evaluator: ev, FixtureCapital: 5000})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresEvaluator(t *testing.T) {
	_, err := NewServer(Config{})
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"annualization_factor":252`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/backtest/metrics", "application/json", docJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res backtest.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.Metrics.TotalTrades)
	assert.InDelta(t, 5, res.Metrics.TotalReturn, 1e-9)
	require.NotNil(t, res.Metrics.ProfitFactor)
	assert.InDelta(t, 2, *res.Metrics.ProfitFactor, 1e-9)
	assert.False(t, res.Cached)

	rec = do(t, srv, http.MethodPost, "/api/backtest/metrics", "application/json", docJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cached":true`)
}

func TestMetricsEndpoint_NullSentinels(t *testing.T) {
	srv := newTestServer(t)
	body := `{"initial_capital": 100, "period_days": 1, "equity_curve": [{"timestamp": "2024-01-01T00:00:00Z", "value": 100}]}`
	rec := do(t, srv, http.MethodPost, "/api/backtest/metrics", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"profit_factor":null`)
	assert.Contains(t, rec.Body.String(), `"sharpe_ratio":null`)
	assert.Contains(t, rec.Body.String(), `"sortino_ratio":null`)
}

func TestMetricsEndpoint_YAML(t *testing.T) {
	srv := newTestServer(t)
	body := "initial_capital: 100\nperiod_days: 1\nequity_curve:\n  - timestamp: \"2024-01-01T00:00:00Z\"\n    value: 100\n  - timestamp: \"2024-01-02T00:00:00Z\"\n    value: 101\n"
	rec := do(t, srv, http.MethodPost, "/api/backtest/metrics", "application/x-yaml", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"final_equity":101`)
}

func TestMetricsEndpoint_InvalidInput(t *testing.T) {
	srv := newTestServer(t)
	cases := map[string]string{
		"malformed":     `{"initial_capital":`,
		"zero capital":  `{"initial_capital": 0, "equity_curve": [{"timestamp": "2024-01-01T00:00:00Z", "value": 1}]}`,
		"empty curve":   `{"initial_capital": 1, "equity_curve": []}`,
		"non-monotonic": `{"initial_capital": 1, "period_days": 1, "equity_curve": [{"timestamp": "2024-01-02T00:00:00Z", "value": 1}, {"timestamp": "2024-01-01T00:00:00Z", "value": 1}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/backtest/metrics", "application/json", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), metrics.ErrInvalidInput.Error())
		})
	}
}

func TestRunLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/backtest/runs", "application/json", docJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Run backtest.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Run.ID
	require.NotEmpty(t, id)
	assert.Equal(t, backtest.RunStatusDone, created.Run.Status)
	require.NotNil(t, created.Run.Metrics)

	rec = do(t, srv, http.MethodGet, "/api/backtest/runs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	rec = do(t, srv, http.MethodGet, "/api/backtest/runs/"+id+"/trades?limit=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var trades struct {
		Trades []backtest.TradeRecord `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	require.Len(t, trades.Trades, 1)
	assert.Equal(t, 10.0, trades.Trades[0].ProfitLoss)

	rec = do(t, srv, http.MethodGet, "/api/backtest/runs/"+id+"/equity?offset=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var equity struct {
		Equity []backtest.EquityRecord `json:"equity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &equity))
	require.Len(t, equity.Equity, 2)
	assert.Equal(t, 1, equity.Equity[0].Seq)

	rec = do(t, srv, http.MethodPost, "/api/backtest/runs/"+id+"/recompute", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodDelete, "/api/backtest/runs/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/backtest/runs/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/backtest/runs/"+id+"/trades", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitFailedRunIsReturned(t *testing.T) {
	srv := newTestServer(t)
	body := `{"initial_capital": 1, "period_days": 1, "equity_curve": [{"timestamp": "2024-01-02T00:00:00Z", "value": 1}, {"timestamp": "2024-01-01T00:00:00Z", "value": 1}]}`
	rec := do(t, srv, http.MethodPost, "/api/backtest/runs", "application/json", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Run backtest.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, backtest.RunStatusFailed, resp.Run.Status)
	assert.NotEmpty(t, resp.Run.Message)
}

func TestFixtureEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/backtest/fixtures?seed=7&trades=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()
	assert.Contains(t, first, `"initial_capital":5000`)

	again := do(t, srv, http.MethodGet, "/api/backtest/fixtures?seed=7&trades=5", "", "")
	assert.Equal(t, first, again.Body.String())

	// 生成的样例可以直接提交计算
	rec = do(t, srv, http.MethodPost, "/api/backtest/metrics", "application/json", first)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total_trades":5`)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/backtest/fixtures?trades=0", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/backtest/fixtures?seed=-1", "", "").Code)
}

func TestMetricsEndpoint_BodyLimit(t *testing.T) {
	srv := newTestServer(t)
	srv.maxBodyBytes = 64
	rec := do(t, srv, http.MethodPost, "/api/backtest/metrics", "application/json", docJSON)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "exceeds 64 bytes")

	srv.maxBodyBytes = int64(len(docJSON))
	rec = do(t, srv, http.MethodPost, "/api/backtest/metrics", "application/json", docJSON)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRunRecompute_EpochCurve(t *testing.T) {
	srv := newTestServer(t)
	body := `{"initial_capital": 100, "period_days": 2, "equity_curve": [
	  {"timestamp": "1969-12-31T00:00:00Z", "value": 100},
	  {"timestamp": "1970-01-01T00:00:00Z", "value": 103},
	  {"timestamp": "1970-01-02T00:00:00Z", "value": 102}]}`
	rec := do(t, srv, http.MethodPost, "/api/backtest/runs", "application/json", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Run backtest.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, srv, http.MethodPost, "/api/backtest/runs/"+created.Run.ID+"/recompute", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"done"`)
}

func TestRunSubmit_RejectsFarFutureCurve(t *testing.T) {
	srv := newTestServer(t)
	body := `{"initial_capital": 100, "period_days": 2, "equity_curve": [
	  {"timestamp": "2262-01-01T00:00:00Z", "value": 100},
	  {"timestamp": "2263-01-01T00:00:00Z", "value": 101}]}`
	rec := do(t, srv, http.MethodPost, "/api/backtest/runs", "application/json", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"field":"equity_curve[1].timestamp"`)
}
