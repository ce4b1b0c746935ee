package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bryanwahyu/veritas/internal/domain/ai"
	"github.com/bryanwahyu/veritas/internal/logger"
)

func init() { logger.Silence() }

type fakeAPI struct {
	mu     sync.Mutex
	calls  []string
	bodies []map[string]any
	// reply decides the status for a model on a given call number (1-based, per model).
	reply func(model string, n int) int
	seen  map[string]int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	model, _ := body["model"].(string)

	f.mu.Lock()
	if f.seen == nil {
		f.seen = map[string]int{}
	}
	f.seen[model]++
	n := f.seen[model]
	f.calls = append(f.calls, model)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch status := f.reply(model, n); status {
	case http.StatusOK:
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","model":%q,"choices":[{"index":0,"message":{"role":"assistant","content":"{\"score\":80}"},"finish_reason":"stop"}]}`, model)
	case http.StatusTooManyRequests:
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`)
	case http.StatusNotFound:
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":{"message":"The model does not exist","type":"invalid_request_error","code":"model_not_found"}}`)
	default:
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":{"message":"bad request","type":"invalid_request_error","code":null}}`)
	}
}

// fakeClock records sleeps instead of waiting.
type fakeClock struct {
	mu      sync.Mutex
	sleeps  []time.Duration
	onSleep func()
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, 0) }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	if c.onSleep != nil {
		c.onSleep()
	}
	return ctx.Err()
}

func newTestClient(t *testing.T, api *fakeAPI, models ...string) *Client {
	t.Helper()
	c, _ := newTestClientWithClock(t, api, models...)
	return c
}

func newTestClientWithClock(t *testing.T, api *fakeAPI, models ...string) (*Client, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	clock := &fakeClock{}
	return NewClient(Config{
		APIKey:       "sk-test",
		BaseURL:      srv.URL + "/v1",
		Models:       models,
		SearchModels: []string{"search-a"},
		RetryDelay:   5 * time.Second,
		Clock:        clock,
	}), clock
}

func TestGenerateFallsThroughModels(t *testing.T) {
	api := &fakeAPI{reply: func(model string, n int) int {
		switch model {
		case "m1":
			return http.StatusTooManyRequests
		case "m2":
			return http.StatusNotFound
		}
		return http.StatusOK
	}}
	c, clock := newTestClientWithClock(t, api, "m1", "m2", "m3")

	out, err := c.Generate(context.Background(), ai.Prompt{User: "hi"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("slept %v within a single pass", clock.sleeps)
	}
	if out != `{"score":80}` {
		t.Fatalf("out = %q", out)
	}
	if strings.Join(api.calls, ",") != "m1,m2,m3" {
		t.Fatalf("calls = %v", api.calls)
	}
}

func TestGenerateRetriesOnceThenQuota(t *testing.T) {
	api := &fakeAPI{reply: func(string, int) int { return http.StatusTooManyRequests }}
	c, clock := newTestClientWithClock(t, api, "m1", "m2")

	_, err := c.Generate(context.Background(), ai.Prompt{User: "hi"})
	if !errors.Is(err, ai.ErrQuotaExceeded) {
		t.Fatalf("err = %v", err)
	}
	if len(api.calls) != 4 {
		t.Fatalf("calls = %v, want two passes over two models", api.calls)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 5*time.Second {
		t.Fatalf("sleeps = %v, want one retry delay", clock.sleeps)
	}
}

func TestGenerateRetryDelayHonoursCancel(t *testing.T) {
	api := &fakeAPI{reply: func(string, int) int { return http.StatusTooManyRequests }}
	c, clock := newTestClientWithClock(t, api, "m1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.onSleep = cancel

	_, err := c.Generate(ctx, ai.Prompt{User: "hi"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(clock.sleeps) != 1 || len(api.calls) != 1 {
		t.Fatalf("sleeps %v calls %v", clock.sleeps, api.calls)
	}
}

func TestGenerateSecondPassSucceeds(t *testing.T) {
	api := &fakeAPI{reply: func(model string, n int) int {
		if model == "m1" && n == 2 {
			return http.StatusOK
		}
		return http.StatusTooManyRequests
	}}
	c := newTestClient(t, api, "m1")
	if _, err := c.Generate(context.Background(), ai.Prompt{User: "hi"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestGenerateAllUnavailable(t *testing.T) {
	api := &fakeAPI{reply: func(string, int) int { return http.StatusNotFound }}
	c := newTestClient(t, api, "m1", "m2")
	_, err := c.Generate(context.Background(), ai.Prompt{User: "hi"})
	if !errors.Is(err, ai.ErrModelUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if len(api.calls) != 2 {
		t.Fatalf("unavailable models should not be retried, calls = %v", api.calls)
	}
}

func TestGenerateHardFailureStops(t *testing.T) {
	api := &fakeAPI{reply: func(string, int) int { return http.StatusBadRequest }}
	c := newTestClient(t, api, "m1", "m2")
	_, err := c.Generate(context.Background(), ai.Prompt{User: "hi"})
	if err == nil || errors.Is(err, ai.ErrQuotaExceeded) {
		t.Fatalf("err = %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("calls = %v", api.calls)
	}
}

func TestGenerateSearchAndImage(t *testing.T) {
	api := &fakeAPI{reply: func(string, int) int { return http.StatusOK }}
	c := newTestClient(t, api, "m1")

	if _, err := c.Generate(context.Background(), ai.Prompt{User: "find it", WebSearch: true}); err != nil {
		t.Fatal(err)
	}
	if api.calls[0] != "search-a" {
		t.Fatalf("search prompt used %s", api.calls[0])
	}
	if _, ok := api.bodies[0]["response_format"]; ok {
		t.Fatal("search request must not set response_format")
	}

	img := &ai.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIME: "image/png"}
	if _, err := c.Generate(context.Background(), ai.Prompt{System: "sys", User: "look", Image: img}); err != nil {
		t.Fatal(err)
	}
	msgs, _ := api.bodies[1]["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	user, _ := msgs[1].(map[string]any)
	parts, _ := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("image message should have two parts, got %v", user["content"])
	}
	imgPart, _ := parts[1].(map[string]any)
	u, _ := imgPart["image_url"].(map[string]any)
	if url, _ := u["url"].(string); !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("image url = %v", u["url"])
	}
}

func TestBuildRequestReasoningModel(t *testing.T) {
	temp := float32(0.3)
	req := buildRequest("o3-mini", ai.Prompt{User: "x", Temperature: &temp})
	if req.MaxCompletionTokens != maxTokens || req.MaxTokens != 0 || req.Temperature != 0 {
		t.Fatalf("req = %+v", req)
	}
	req = buildRequest("gpt-4o", ai.Prompt{User: "x", Temperature: &temp})
	if req.MaxTokens != maxTokens || req.Temperature != temp {
		t.Fatalf("req = %+v", req)
	}
}
