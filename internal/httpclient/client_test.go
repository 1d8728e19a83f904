package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiprobe/internal/suite"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}
}

// dropConnection kills the client connection without writing a response,
// which the client sees as a transport error.
func dropConnection(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	hj, ok := w.(http.Hijacker)
	require.True(t, ok, "response writer must support hijacking")
	conn, _, err := hj.Hijack()
	require.NoError(t, err)
	conn.Close()
}

func TestDoSetsDefaultHeaders(t *testing.T) {
	var gotUserAgent, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.BearerToken = "sekrit"
	client := New(config)

	resp, err := client.Do(context.Background(), suite.RenderedRequest{Method: "GET", URL: "/ping"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, DefaultUserAgent, gotUserAgent)
	assert.Equal(t, "Bearer sekrit", gotAuth)
}

func TestDoWithoutBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(testConfig(server.URL))
	_, err := client.Do(context.Background(), suite.RenderedRequest{Method: "GET", URL: "/ping"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestDoJSONBody(t *testing.T) {
	var gotContentType string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(testConfig(server.URL))
	resp, err := client.Do(context.Background(), suite.RenderedRequest{
		Method: "POST",
		URL:    "/users",
		JSON:   map[string]interface{}{"username": "alice"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "alice", gotBody["username"])
}

func TestAbsoluteURLBypassesBase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// Base URL points nowhere; the absolute URL must be used verbatim.
	client := New(testConfig("http://127.0.0.1:1"))
	resp, err := client.Do(context.Background(), suite.RenderedRequest{Method: "GET", URL: server.URL + "/direct"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRelativeURLWithoutBaseFails(t *testing.T) {
	client := New(Config{RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	_, err := client.Do(context.Background(), suite.RenderedRequest{Method: "GET", URL: "/ping"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a base URL")
}

func TestNoRetryOnServerErrorStatus(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(testConfig(server.URL))
	resp, err := client.Do(context.Background(), suite.RenderedRequest{Method: "GET", URL: "/flaky"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load(), "error statuses must not be retried")
}

func TestNoRetryOnClientErrorStatus(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(testConfig(server.URL))
	resp, err := client.Do(context.Background(), suite.RenderedRequest{Method: "GET", URL: "/missing"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			dropConnection(t, w)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(testConfig(server.URL))
	resp, err := client.Do(context.Background(), suite.RenderedRequest{Method: "GET", URL: "/unstable"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetryGivesUpAfterThreeAttempts(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		dropConnection(t, w)
	}))
	defer server.Close()

	client := New(testConfig(server.URL))
	_, err := client.Do(context.Background(), suite.RenderedRequest{Method: "GET", URL: "/dead"})
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load(), "exactly three total attempts")
}

func TestLatencyIsRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(testConfig(server.URL))
	resp, err := client.Do(context.Background(), suite.RenderedRequest{Method: "GET", URL: "/slow"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.Latency, 10*time.Millisecond)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("BASE_URL", "https://api.example.com")
	t.Setenv("BEARER_TOKEN", "tok")

	config := ConfigFromEnv()
	assert.Equal(t, "https://api.example.com", config.BaseURL)
	assert.Equal(t, "tok", config.BearerToken)
}
