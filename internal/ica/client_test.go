package ica

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridcap/icafetch/internal/config"
)

const samplePayload = "month_hour,ic_load_kw\n1_0,1250.5\n1_1,1310.0\n"

func zipPayload(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testClient(baseURL string, retries int) *Client {
	return New(baseURL, nil, "", retries, 5*time.Second)
}

func TestFetchTimeseries_ZipEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/F100.zip", r.URL.Path)
		w.Header().Set("Content-Type", "application/zip")
		w.Write(zipPayload(t, "F100.csv", samplePayload))
	}))
	defer srv.Close()

	payload, err := testClient(srv.URL, 0).FetchTimeseries(context.Background(), "F100")
	require.NoError(t, err)
	assert.Equal(t, []byte(samplePayload), payload)
}

func TestFetchTimeseries_ZipSniffedWithoutContentType(t *testing.T) {
	// The service sometimes serves archives as application/octet-stream
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(zipPayload(t, "other_name.csv", samplePayload))
	}))
	defer srv.Close()

	payload, err := testClient(srv.URL, 0).FetchTimeseries(context.Background(), "F100")
	require.NoError(t, err)
	assert.Equal(t, []byte(samplePayload), payload)
}

func TestFetchTimeseries_PlainCSVPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("t,v\n1,2\n"))
	}))
	defer srv.Close()

	payload, err := testClient(srv.URL, 0).FetchTimeseries(context.Background(), "F100")
	require.NoError(t, err)
	assert.Equal(t, []byte("t,v\n1,2\n"), payload)
}

func TestFetchTimeseries_SendsSession(t *testing.T) {
	cookies := []config.Cookie{{Name: "session", Value: "abc", Domain: ".pge.com", Path: "/"}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		require.NoError(t, err)
		assert.Equal(t, "abc", c.Value)
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	client := New(srv.URL, cookies, "tok123", 0, 5*time.Second)
	_, err := client.FetchTimeseries(context.Background(), "F100")
	require.NoError(t, err)
}

func TestFetchTimeseries_AuthErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "login required", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 3).FetchTimeseries(context.Background(), "F100")
	require.Error(t, err)

	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestFetchTimeseries_NotFoundNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "no such feeder", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 3).FetchTimeseries(context.Background(), "F100")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFetchTimeseries_RetriesServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "try later", http.StatusBadGateway)
			return
		}
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	payload, err := testClient(srv.URL, 5).FetchTimeseries(context.Background(), "F100")
	require.NoError(t, err)
	assert.Equal(t, []byte(samplePayload), payload)
	assert.Equal(t, 3, calls)
}

func TestFetchTimeseries_EmptyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 0).FetchTimeseries(context.Background(), "F100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty payload")
}

func TestFetchTimeseries_ZipWithoutCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(zipPayload(t, "readme.txt", "not a timeseries"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 0).FetchTimeseries(context.Background(), "F100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no csv")
}

func TestFetchTimeseries_EmptyID(t *testing.T) {
	_, err := testClient("http://example.invalid", 0).FetchTimeseries(context.Background(), "")
	assert.Error(t, err)
}
