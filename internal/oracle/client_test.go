package oracle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberly-app/emberly/internal/oracle"
)

const generateBody = `{"candidates":[{"content":{"parts":[{"text":"scored text"}]}}]}`

func newClient(url string, keys ...string) *oracle.Client {
	return oracle.NewClient(oracle.Options{
		URL:     url,
		APIKeys: keys,
		Timeout: 2 * time.Second,
		RPS:     100,
	})
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key-1", r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(generateBody))
	}))
	defer srv.Close()

	client := newClient(srv.URL, "key-1")
	text, err := client.Generate(context.Background(), "score these")
	require.NoError(t, err)
	assert.Equal(t, "scored text", text)
}

func TestGenerateRotatesKeys(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("x-goog-api-key"))
		mu.Unlock()
		_, _ = w.Write([]byte(generateBody))
	}))
	defer srv.Close()

	client := newClient(srv.URL, "key-1", "key-2")
	for i := 0; i < 4; i++ {
		_, err := client.Generate(context.Background(), "p")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"key-1", "key-2", "key-1", "key-2"}, seen)
}

func TestGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newClient(srv.URL, "key-1")
	_, err := client.Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "status 429")
}

func TestGenerateEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := newClient(srv.URL, "key-1")
	_, err := client.Generate(context.Background(), "p")
	assert.ErrorContains(t, err, "no candidates")
}

func TestGenerateWithoutCredentials(t *testing.T) {
	client := newClient("http://unused")
	_, err := client.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, oracle.ErrNoCredentials)
}
