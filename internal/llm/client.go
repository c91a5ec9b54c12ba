package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/metrics"
	"github.com/raglens/raglens/pkg/circuitbreaker"
	"github.com/raglens/raglens/pkg/logger"
	"github.com/raglens/raglens/pkg/retry"
	"github.com/raglens/raglens/pkg/utils"
)

// EmbeddingCache stores embeddings keyed by a text hash.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

type Client struct {
	client           *openai.Client
	model            string
	embeddingModel   string
	temperature      float32
	maxTokens        int
	cb               *circuitbreaker.CircuitBreaker
	retryConfig      retry.Config
	judgeRetryConfig retry.Config
	cache            EmbeddingCache
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func NewClient(apiKey, model, embeddingModel string, temperature float32, maxTokens, judgeAttempts int) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if judgeAttempts <= 0 {
		judgeAttempts = 10
	}
	judgeRetryConfig := retryConfig
	judgeRetryConfig.MaxAttempts = judgeAttempts

	logger.Info("LLM client initialized",
		zap.String("model", model),
		zap.String("embedding_model", embeddingModel),
	)

	return &Client{
		client:           client,
		model:            model,
		embeddingModel:   embeddingModel,
		temperature:      temperature,
		maxTokens:        maxTokens,
		cb:               cb,
		retryConfig:      retryConfig,
		judgeRetryConfig: judgeRetryConfig,
	}
}

// WithCache enables embedding caching. Safe to skip when no cache is
// configured.
func (c *Client) WithCache(cache EmbeddingCache) *Client {
	c.cache = cache
	return c
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return c.complete(ctx, req, c.retryConfig)
}

func (c *Client) complete(ctx context.Context, req CompletionRequest, retryConfig retry.Config) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	textHash := utils.HashString(text)

	if c.cache != nil {
		cached, found, err := c.cache.GetEmbedding(ctx, textHash)
		if err != nil {
			logger.Warn("Embedding cache lookup failed", zap.Error(err))
		} else if found {
			metrics.CacheHits.WithLabelValues("embedding").Inc()
			return cached, nil
		}
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateEmbeddings(
				ctx,
				openai.EmbeddingRequest{
					Input: []string{text},
					Model: openai.EmbeddingModel(c.embeddingModel),
				},
			)

			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}

			embedding = make([]float32, len(resp.Data[0].Embedding))
			copy(embedding, resp.Data[0].Embedding)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetEmbedding(ctx, textHash, embedding, 24*time.Hour); err != nil {
			logger.Warn("Failed to cache embedding", zap.Error(err))
		}
	}

	return embedding, nil
}

func (c *Client) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var embeddings [][]float32

	batchSize := 100
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]

		err := c.cb.Execute(ctx, func() error {
			return retry.Do(ctx, c.retryConfig, func() error {
				batchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()

				resp, err := c.client.CreateEmbeddings(
					batchCtx,
					openai.EmbeddingRequest{
						Input: batch,
						Model: openai.EmbeddingModel(c.embeddingModel),
					},
				)

				if err != nil {
					return fmt.Errorf("failed to generate batch embeddings: %w", err)
				}

				for _, data := range resp.Data {
					embedding := make([]float32, len(data.Embedding))
					copy(embedding, data.Embedding)
					embeddings = append(embeddings, embedding)
				}

				return nil
			})
		})

		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

// Answer synthesizes a response to a query from the retrieved contexts.
func (c *Client) Answer(ctx context.Context, query string, contexts []string) (string, error) {
	systemPrompt := `You are a question answering assistant. Answer the question using ONLY the provided context documents.

Your responses must:
1. Be grounded in the context, never in outside knowledge
2. Say "I don't know" when the context does not contain the answer
3. Be concise and direct

Do not mention the context documents in your answer.`

	var builder strings.Builder
	for i, text := range contexts {
		builder.WriteString(fmt.Sprintf("[Context %d]\n%s\n\n", i+1, text))
	}

	userPrompt := fmt.Sprintf(`Question: %s

%sAnswer the question using the context above.`, query, builder.String())

	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.0,
		MaxTokens:    512,
	})

	if err != nil {
		return "", fmt.Errorf("failed to synthesize answer: %w", err)
	}

	logger.Info("Answer synthesized",
		zap.String("query", query),
		zap.Int("contexts", len(contexts)),
		zap.Int("answer_length", len(resp.Content)),
	)

	return resp.Content, nil
}

// JudgeRelevance asks the model whether a retrieved reference text is
// relevant to the query. The judge answers with a single character, "1" for
// relevant and "0" for irrelevant; unparseable answers come back as
// VerdictUnknown rather than an error.
func (c *Client) JudgeRelevance(ctx context.Context, query, reference string) (Verdict, error) {
	systemPrompt := `You are comparing a reference text to a question to determine whether the reference text contains information relevant to answering the question.

Respond with a single character and no additional text:
"1" if the reference text contains information relevant to the question
"0" if the reference text does not contain information relevant to the question`

	userPrompt := fmt.Sprintf(`Question: %s

Reference text: %s

Is the reference text relevant to the question? Answer "1" or "0".`, query, reference)

	resp, err := c.complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.0,
		MaxTokens:    4,
	}, c.judgeRetryConfig)

	if err != nil {
		return VerdictUnknown, fmt.Errorf("failed to judge relevance: %w", err)
	}

	verdict := ParseVerdict(resp.Content)
	if verdict == VerdictUnknown {
		logger.Warn("Unparseable judge response", zap.String("response", resp.Content))
	}

	return verdict, nil
}
