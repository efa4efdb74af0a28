package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/emberly-app/emberly/internal/logger"
)

// Options configures a Client.
type Options struct {
	URL     string
	APIKeys []string
	// Timeout applies per call.
	Timeout time.Duration
	// RPS caps request rate per credential.
	RPS float64
}

// Client calls the scoring oracle. Each call draws the next credential
// from the keyring, waits on that credential's rate limiter and runs
// under a shared circuit breaker so a dead oracle fails fast instead of
// burning every batch's timeout.
type Client struct {
	url        string
	httpClient *http.Client
	keyring    *Keyring
	limiters   map[string]*rate.Limiter
	breaker    *gobreaker.CircuitBreaker[string]
	timeout    time.Duration
}

// NewClient creates an oracle client from options.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RPS <= 0 {
		opts.RPS = 1
	}

	limiters := make(map[string]*rate.Limiter, len(opts.APIKeys))
	for _, key := range opts.APIKeys {
		limiters[key] = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "compatibility-oracle",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("oracle circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		url:        opts.URL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		keyring:    NewKeyring(opts.APIKeys),
		limiters:   limiters,
		breaker:    breaker,
		timeout:    opts.Timeout,
	}
}

// generation wire format, Gemini-style.
type part struct {
	Text string `json:"text"`
}

type message struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []message        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content message `json:"content"`
	} `json:"candidates"`
}

// Generate sends one prompt and returns the raw response text. The call
// carries its own timeout so a hung batch cannot block siblings beyond
// it.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	key, err := c.keyring.Next()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if lim := c.limiters[key]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return "", fmt.Errorf("oracle rate limit wait: %w", err)
		}
	}

	return c.breaker.Execute(func() (string, error) {
		return c.generate(ctx, key, prompt)
	})
}

func (c *Client) generate(ctx context.Context, key, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []message{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.2,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 8192,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read oracle response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode oracle response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("oracle response contains no candidates")
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}
