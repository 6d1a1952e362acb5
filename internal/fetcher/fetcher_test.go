package fetcher

import (
	"catalogmatch/internal/components/telemetry"
	"catalogmatch/internal/retry"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type instantTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time {
	return t.c
}

func newTestFetcher(t *testing.T, timer *instantTimer, opts Options) (*Fetcher, *telemetry.RecordingAPI) {
	t.Helper()
	tel := &telemetry.RecordingAPI{}
	opts.RetryOptions = append(opts.RetryOptions, retry.WithTimer(timer))
	return New(opts, tel), tel
}

func TestFetchWithRetryExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	timer := newInstantTimer()
	f, tel := newTestFetcher(t, timer, Options{})

	_, err := f.FetchWithRetry(context.Background(), server.URL, nil)
	require.Error(t, err)

	var networkErr *NetworkError
	require.ErrorAs(t, err, &networkErr)
	require.Equal(t, 3, networkErr.Attempts)
	require.Equal(t, server.URL, networkErr.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusServiceUnavailable, statusErr.Status)

	require.EqualValues(t, 3, calls.Load())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.delays)

	require.Len(t, tel.Find(telemetry.KindWarning, report_fetcher_attempt), 2)
	require.Len(t, tel.Find(telemetry.KindWarning, report_fetcher_fetch_with_retry), 1)
}

func TestFetchWithRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	timer := newInstantTimer()
	f, _ := newTestFetcher(t, timer, Options{})

	res, err := f.FetchWithRetry(context.Background(), server.URL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "ok", string(res.Body))
	require.EqualValues(t, 2, calls.Load())
	require.Equal(t, []time.Duration{time.Second}, timer.delays)
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, newInstantTimer(), Options{})
	_, err := f.FetchWithRetry(context.Background(), server.URL+"/api/storesearch", url.Values{
		"term": {"Hollow Knight"},
		"cc":   {"us"},
		"l":    {"en"},
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	for key, value := range browserHeaders {
		require.Equal(t, value, got.Header.Get(key), key)
	}
	for _, cookie := range ageGateCookies() {
		sent, err := got.Cookie(cookie.Name)
		require.NoError(t, err, cookie.Name)
		require.Equal(t, cookie.Value, sent.Value)
	}

	require.Equal(t, "/api/storesearch", got.URL.Path)
	require.Equal(t, "Hollow Knight", got.URL.Query().Get("term"))
	require.Equal(t, "us", got.URL.Query().Get("cc"))
	require.Equal(t, "en", got.URL.Query().Get("l"))
}

func TestFetchAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, newInstantTimer(), Options{
		Timeout: 20 * time.Millisecond,
		Policy: retry.Policy{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
		},
	})

	_, err := f.FetchWithRetry(context.Background(), server.URL, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var networkErr *NetworkError
	require.ErrorAs(t, err, &networkErr)
	require.Equal(t, 2, networkErr.Attempts)
	require.EqualValues(t, 2, calls.Load())
}

func TestFetchWithRetryCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, newInstantTimer(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.FetchWithRetry(ctx, server.URL, nil)
	require.True(t, errors.Is(err, context.Canceled))

	var networkErr *NetworkError
	require.ErrorAs(t, err, &networkErr)
	require.LessOrEqual(t, networkErr.Attempts, 1)
}

func TestFetchRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f, _ := newTestFetcher(t, newInstantTimer(), Options{RequestsPerSecond: 20})

	start := time.Now()
	for n := 0; n < 3; n++ {
		_, err := f.Fetch(context.Background(), server.URL, nil)
		require.NoError(t, err)
	}
	// the first request uses the initial token, the next two wait 50ms each
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestFetchWithRetryInvalidTarget(t *testing.T) {
	timer := newInstantTimer()
	f, _ := newTestFetcher(t, timer, Options{})

	_, err := f.FetchWithRetry(context.Background(), "not a url", nil)
	require.Error(t, err)

	var networkErr *NetworkError
	require.ErrorAs(t, err, &networkErr)
	require.Equal(t, 1, networkErr.Attempts)
	require.Empty(t, timer.delays)
}

type exchangeOutput struct {
	mu    sync.Mutex
	files []string
}

func (o *exchangeOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files = append(o.files, id)
}

func TestFetchWithRetryDumpsExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total":0,"items":[]}`))
	}))
	defer server.Close()

	out := &exchangeOutput{}
	f, _ := newTestFetcher(t, newInstantTimer(), Options{Dump: out})

	res, err := f.FetchWithRetry(context.Background(), server.URL, url.Values{"term": {"celeste"}})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, []string{"0001-GET.txt"}, out.files)
}
