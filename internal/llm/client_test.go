package llm

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
)

func completionBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]string{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
	})
	return string(b)
}

func testClient(t *testing.T, srv *httptest.Server, opts Options) *Client {
	t.Helper()
	opts.BaseURL = srv.URL
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = time.Millisecond
	}
	c := NewClient(opts)
	t.Cleanup(c.Close)
	return c
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionBody("the answer")))
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{APIKey: "key-123", Model: "test-model"})
	resp, err := c.Complete(context.Background(), Request{System: "sys", Prompt: "question"})
	require.NoError(t, err)

	assert.Equal(t, "the answer", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
	assert.False(t, resp.Cached)

	assert.Equal(t, "Bearer key-123", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.Equal(t, "question", gotReq.Messages[1].Content)
}

func TestCompleteTemperatureDefault(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{Temperature: 0.3})

	// A zero request temperature falls back to the client's.
	_, err := c.Complete(context.Background(), Request{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, 0.3, gotReq.Temperature)

	_, err = c.Complete(context.Background(), Request{Prompt: "q", Temperature: 0.9})
	require.NoError(t, err)
	assert.Equal(t, 0.9, gotReq.Temperature)
}

func TestCompleteAuthFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{MaxAttempts: 5})
	_, err := c.Complete(context.Background(), Request{Prompt: "q"})

	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, int32(1), calls.Load(), "auth failures must fail fast")
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
			return
		}
		w.Write([]byte(completionBody("recovered")))
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{MaxAttempts: 3})
	resp, err := c.Complete(context.Background(), Request{Prompt: "q"})

	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteExhaustedRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{MaxAttempts: 3})
	_, err := c.Complete(context.Background(), Request{Prompt: "q"})

	require.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteRateLimitHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	start := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionBody("after backoff")))
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{MaxAttempts: 2})
	resp, err := c.Complete(context.Background(), Request{Prompt: "q"})

	require.NoError(t, err)
	assert.Equal(t, "after backoff", resp.Text)
	assert.GreaterOrEqual(t, time.Since(start), time.Second, "Retry-After floor ignored")
}

func TestCompleteMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{MaxAttempts: 1})
	_, err := c.Complete(context.Background(), Request{Prompt: "q"})
	require.ErrorIs(t, err, ErrServiceUnavailable)
	require.ErrorIs(t, err, ErrMalformedResponse, "the underlying failure must stay matchable")
}

func TestCompleteRateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{MaxAttempts: 2})
	_, err := c.Complete(context.Background(), Request{Prompt: "q"})

	require.ErrorIs(t, err, ErrServiceUnavailable)
	require.ErrorIs(t, err, ErrRateLimited, "exhausted throttling must surface as rate limited")
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(completionBody("fresh")))
	}))
	defer srv.Close()

	cache := NewCache(16, time.Minute)
	c := testClient(t, srv, Options{Cache: cache})

	first, err := c.CachedComplete(context.Background(), Request{Prompt: "same"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.CachedComplete(context.Background(), Request{Prompt: "same"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, int32(1), calls.Load(), "second call must be served from cache")

	_, err = c.CachedComplete(context.Background(), Request{Prompt: "different"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	// Plain Complete bypasses the cache.
	_, err = c.Complete(context.Background(), Request{Prompt: "same"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"data":[{"id":"model-a","name":"Model A"},{"id":"model-b"}]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{})
	models, err := c.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "model-a", models[0].ID)
	assert.Equal(t, "Model A", models[0].Name)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv, Options{})
	require.NoError(t, c.Ping(context.Background()))
}

func TestFingerprint(t *testing.T) {
	base := Request{Model: "m", System: "s", Prompt: "p", MaxTokens: 100, Temperature: 0.5}

	assert.Equal(t, Fingerprint(base), Fingerprint(base), "fingerprint must be stable")

	variants := []Request{
		{Model: "other", System: "s", Prompt: "p", MaxTokens: 100, Temperature: 0.5},
		{Model: "m", System: "other", Prompt: "p", MaxTokens: 100, Temperature: 0.5},
		{Model: "m", System: "s", Prompt: "other", MaxTokens: 100, Temperature: 0.5},
		{Model: "m", System: "s", Prompt: "p", MaxTokens: 200, Temperature: 0.5},
		{Model: "m", System: "s", Prompt: "p", MaxTokens: 100, Temperature: 0.9},
	}
	for i, v := range variants {
		assert.NotEqual(t, Fingerprint(base), Fingerprint(v), "variant %d must change the fingerprint", i)
	}

	// Field boundaries must not be ambiguous.
	a := Request{System: "ab", Prompt: "c"}
	b := Request{System: "a", Prompt: "bc"}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(4, 20*time.Millisecond)
	cache.Put("k", &Response{Text: "v"})

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got.Text)

	time.Sleep(40 * time.Millisecond)
	_, ok = cache.Get("k")
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestRPSLimiterDisabled(t *testing.T) {
	var l *rpsLimiter
	require.NoError(t, l.Acquire(context.Background()))
	l.Stop()
}

func TestRPSLimiterThrottles(t *testing.T) {
	l := newRPSLimiter(20, 1)
	defer l.Stop()

	require.NoError(t, l.Acquire(context.Background()))

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "second acquire should wait for a refill")
}

func TestRPSLimiterCancel(t *testing.T) {
	l := newRPSLimiter(0.1, 1)
	defer l.Stop()

	require.NoError(t, l.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
