package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lms",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of OpenAI requests",
	}, []string{"operation", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lms",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed OpenAI requests",
	}, []string{"operation", "model"})
)

// OpenAIConfig defines configuration options for the OpenAI client.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	Logger         zerolog.Logger
}

// OpenAIClient implements Embedder and ChatCompleter against the OpenAI API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.SmallEmbedding3)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 800
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/lms-go-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai").Logger(),
	}, nil
}

// Embed returns the embedding vector of text.
func (c *OpenAIClient) Embed(parent context.Context, text string) ([]float32, error) {
	ctx, span := c.tracer.Start(parent, "openai.embed", trace.WithAttributes(
		attribute.String("model", c.cfg.EmbeddingModel),
		attribute.Int("input.length", len(text)),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	aiDuration.WithLabelValues("embed", c.cfg.EmbeddingModel).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.fail(span, "embed", c.cfg.EmbeddingModel, fmt.Errorf("openai embed: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, c.fail(span, "embed", c.cfg.EmbeddingModel, fmt.Errorf("no embedding returned from openai"))
	}

	return resp.Data[0].Embedding, nil
}

// Complete sends the conversation to the chat model and returns its reply.
func (c *OpenAIClient) Complete(parent context.Context, messages []Message) (Completion, error) {
	ctx, span := c.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", c.cfg.ChatModel),
		attribute.Int("messages", len(messages)),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, message := range messages {
		request.Messages = append(request.Messages, openai.ChatCompletionMessage{
			Role:    message.Role,
			Content: message.Content,
		})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues("complete", c.cfg.ChatModel).Observe(time.Since(start).Seconds())
	if err != nil {
		return Completion{}, c.fail(span, "complete", c.cfg.ChatModel, fmt.Errorf("openai complete: %w", err))
	}
	if len(resp.Choices) == 0 {
		return Completion{}, c.fail(span, "complete", c.cfg.ChatModel, fmt.Errorf("no choices returned from openai"))
	}

	c.logger.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("chat completion finished")

	return Completion{
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *OpenAIClient) fail(span trace.Span, operation, model string, err error) error {
	aiFailures.WithLabelValues(operation, model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
