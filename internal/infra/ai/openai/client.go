package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/veritas/internal/application"
	"github.com/bryanwahyu/veritas/internal/domain/ai"
	"github.com/bryanwahyu/veritas/internal/infra/metrics"
	"github.com/bryanwahyu/veritas/internal/logger"
)

const maxTokens = 2048

var (
	DefaultModels       = []string{"gpt-4o-mini", "gpt-4o"}
	DefaultSearchModels = []string{"gpt-4o-mini-search-preview", "gpt-4o-search-preview"}
)

type Config struct {
	APIKey       string
	BaseURL      string // optional, for proxies and tests
	Models       []string
	SearchModels []string
	RetryDelay   time.Duration
	Clock        application.Clock // defaults to the system clock
}

// Client implements ai.Client with an ordered model fallback list.
type Client struct {
	api          *openai.Client
	models       []string
	searchModels []string
	retryDelay   time.Duration
	clock        application.Clock
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	models := cfg.Models
	if len(models) == 0 {
		models = DefaultModels
	}
	clock := cfg.Clock
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Client{
		api:          openai.NewClientWithConfig(oc),
		models:       models,
		searchModels: cfg.SearchModels,
		retryDelay:   cfg.RetryDelay,
		clock:        clock,
	}
}

type failure int

const (
	hard failure = iota
	rateLimited
	unavailable
)

// Generate walks the model list. Rate-limited and unavailable models are skipped; any
// other error is returned at once. A pass that ended rate-limited is retried once after
// the retry delay, then ai.ErrQuotaExceeded is returned.
func (c *Client) Generate(ctx context.Context, p ai.Prompt) (string, error) {
	models := c.models
	if p.WebSearch && len(c.searchModels) > 0 {
		models = c.searchModels
	}

	limited := false
	for pass := 0; pass < 2; pass++ {
		if pass > 0 {
			if !limited {
				break
			}
			logger.Log.WithField("delay", c.retryDelay).Warn("[openai] every model rate-limited, retrying once")
			if err := c.clock.Sleep(ctx, c.retryDelay); err != nil {
				return "", err
			}
		}
		limited = false
		for _, model := range models {
			out, err := c.complete(ctx, model, p)
			if err == nil {
				metrics.ObserveReasoning(model, "ok")
				return out, nil
			}
			log := logger.Log.WithFields(logrus.Fields{"model": model, "pass": pass + 1})
			switch classify(err) {
			case rateLimited:
				metrics.ObserveReasoning(model, "rate_limited")
				log.Warn("[openai] rate limited, trying next model")
				limited = true
			case unavailable:
				metrics.ObserveReasoning(model, "unavailable")
				log.Warn("[openai] model unavailable, trying next model")
			default:
				metrics.ObserveReasoning(model, "error")
				return "", fmt.Errorf("failed to create chat completion with %s: %w", model, err)
			}
		}
	}
	if limited {
		return "", ai.ErrQuotaExceeded
	}
	return "", ai.ErrModelUnavailable
}

func (c *Client) complete(ctx context.Context, model string, p ai.Prompt) (string, error) {
	req := buildRequest(model, p)
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildRequest(model string, p ai.Prompt) openai.ChatCompletionRequest {
	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User}
	if p.Image != nil {
		user = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: p.User},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    imageURL(p.Image),
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}
	}
	req := openai.ChatCompletionRequest{Model: model}
	if p.System != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	req.Messages = append(req.Messages, user)

	// Search models reject response_format and sampling parameters.
	if !p.WebSearch {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
		if p.Temperature != nil && !reasoningModel(model) {
			req.Temperature = *p.Temperature
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if reasoningModel(model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}
	return req
}

func reasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func imageURL(img *ai.Image) string {
	if img.URL != "" {
		return img.URL
	}
	mime := img.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func classify(err error) failure {
	status := 0
	code := ""
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if s, ok := apiErr.Code.(string); ok {
			code = s
		}
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch {
	case status == 429:
		return rateLimited
	case status == 404 || code == "model_not_found":
		return unavailable
	}
	return hard
}
