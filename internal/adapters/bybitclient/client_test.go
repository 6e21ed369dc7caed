package bybitclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candleloader/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:  srv.URL,
		Category: "linear",
		Interval: 240,
		Limit:    1000,
		Timeout:  2 * time.Second,
		Logger:   &mockLogger{},
	})
	require.NoError(t, err)
	return client, srv
}

func TestNew_RequiresLogger(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestNew_CapsPageLimit(t *testing.T) {
	client, err := New(Config{Logger: &mockLogger{}, Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 1000, client.limit)
}

func TestFetchKlines_ParsesNewestFirstResponse(t *testing.T) {
	var gotQuery map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		assert.Equal(t, "/v5/market/kline", r.URL.Path)
		// Bybit returns rows most-recent-first.
		fmt.Fprint(w, `{
			"retCode": 0,
			"retMsg": "OK",
			"result": {
				"symbol": "BTCUSDT",
				"list": [
					["1700020800000","35100","35200","35000","35150","120.5","4231000.12"],
					["1700006400000","35000","35120","34900","35100","98.2","3438000.55"]
				]
			}
		}`)
	})

	candles, err := client.FetchKlines(context.Background(), "BTCUSDT", 1600000000000, 1700020800000)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, map[string]string{
		"category": "linear",
		"symbol":   "BTCUSDT",
		"interval": "240",
		"limit":    "1000",
		"start":    "1600000000000",
		"end":      "1700020800000",
	}, gotQuery)

	// Provider order is preserved; fields stay the raw strings.
	assert.Equal(t, int64(1700020800000), candles[0].Timestamp)
	assert.Equal(t, int64(1700006400000), candles[1].Timestamp)
	assert.Equal(t, "35000", candles[1].Open)
	assert.Equal(t, "3438000.55", candles[1].Turnover)
}

func TestFetchKlines_EmptyList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"retCode":0,"retMsg":"OK","result":{"list":[]}}`)
	})

	candles, err := client.FetchKlines(context.Background(), "BTCUSDT", 0, 1)
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestFetchKlines_ProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "rate limited",
			body:    `{"retCode":10006,"retMsg":"Too many visits"}`,
			wantErr: ports.ErrRateLimited,
		},
		{
			name:    "server busy",
			body:    `{"retCode":10016,"retMsg":"Service unavailable"}`,
			wantErr: ports.ErrExchangeUnavailable,
		},
		{
			name:    "parameter error",
			body:    `{"retCode":10001,"retMsg":"Invalid symbol"}`,
			wantErr: ports.ErrInvalidRequest,
		},
		{
			name:    "malformed body",
			body:    `not json at all`,
			wantErr: ports.ErrMalformedResponse,
		},
		{
			name:    "missing retCode",
			body:    `{"something":"else"}`,
			wantErr: ports.ErrMalformedResponse,
		},
		{
			name:    "missing result list",
			body:    `{"retCode":0,"retMsg":"OK","result":{}}`,
			wantErr: ports.ErrMalformedResponse,
		},
		{
			name:    "short row",
			body:    `{"retCode":0,"retMsg":"OK","result":{"list":[["1700006400000","35000"]]}}`,
			wantErr: ports.ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})

			candles, err := client.FetchKlines(context.Background(), "BTCUSDT", 0, 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, candles)
		})
	}
}

func TestFetchKlines_RejectsBadWindow(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.FetchKlines(context.Background(), "BTCUSDT", 10, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	_, err = client.FetchKlines(context.Background(), "", 0, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestFetchKlines_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client, err := New(Config{BaseURL: srv.URL, Logger: &mockLogger{}})
	require.NoError(t, err)

	_, err = client.FetchKlines(context.Background(), "BTCUSDT", 0, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}

func TestFetchLinearSymbols(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/instruments-info", r.URL.Path)
		assert.Equal(t, "Trading", r.URL.Query().Get("status"))
		fmt.Fprint(w, `{
			"retCode": 0,
			"retMsg": "OK",
			"result": {
				"list": [
					{"symbol": "ETHUSDT", "quoteCoin": "USDT"},
					{"symbol": "BTCUSD", "quoteCoin": "USD"},
					{"symbol": "BTCUSDT", "quoteCoin": "USDT"}
				]
			}
		}`)
	})

	symbols, err := client.FetchLinearSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, symbols)
}
