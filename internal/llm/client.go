package llm

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ideaforge/internal/logger"
	"ideaforge/internal/metrics"
)

const (
	DefaultBaseURL = "https://ai-gateway.vercel.sh/v1"
	DefaultModel   = "openai/gpt-4o-mini"
	DefaultTimeout = 30 * time.Second

	rateLimitMarker = "rate_limit"
)

// Request is a single-turn chat completion.
type Request struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Completer is the gateway contract the enrichment and synthesis components depend on.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
// Each Complete call is exactly one HTTP attempt; retry policy belongs to callers.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New builds a long-lived gateway client. Construct it once and share it.
func New(opts Options) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqOpts := []option.RequestOption{
		option.WithBaseURL(base),
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	return &Client{
		client:  openai.NewClient(reqOpts...),
		model:   model,
		timeout: timeout,
		logger:  logger.OrDiscard(opts.Logger),
	}
}

// Model returns the default model used when a request does not name one.
func (c *Client) Model() string { return c.model }

// Complete sends the prompt as a single user message and returns the first choice's content.
// Caller cancellation is not propagated to the in-flight call; the client timeout bounds it.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Model:       model,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	start := time.Now()
	text, err := c.complete(callCtx, params)
	outcome := Outcome(err)
	metrics.ObserveLLMCall(model, outcome, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("llm call failed", "model", model, "outcome", outcome, "duration", time.Since(start), "error", err)
		return "", err
	}
	c.logger.Debug("llm call completed", "model", model, "duration", time.Since(start), "chars", len(text))
	return text, nil
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	var raw *http.Response
	resp, err := c.client.Chat.Completions.New(ctx, params, option.WithResponseInto(&raw))
	if err != nil {
		return "", classify(err, raw)
	}
	if resp == nil || len(resp.Choices) == 0 {
		if resp != nil && strings.Contains(resp.RawJSON(), rateLimitMarker) {
			return "", &RateLimitedError{StatusCode: http.StatusOK, Body: excerpt(resp.RawJSON())}
		}
		return "", ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// classify turns an SDK error into the gateway failure taxonomy at the point the
// response is inspected. raw is the HTTP response when one was received.
func classify(err error, raw *http.Response) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		body := apiErr.RawJSON()
		if body == "" {
			body = apiErr.Message
		}
		if apiErr.StatusCode == http.StatusTooManyRequests || strings.Contains(body, rateLimitMarker) {
			return &RateLimitedError{StatusCode: apiErr.StatusCode, Body: excerpt(body)}
		}
		return &GatewayError{StatusCode: apiErr.StatusCode, Body: excerpt(body)}
	}
	var netErr net.Error
	if raw == nil || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return &TransportError{Err: err}
	}
	// the gateway answered but the body could not be decoded
	return &GatewayError{StatusCode: raw.StatusCode, Body: excerpt(err.Error())}
}
