package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"cryptopulse/internal/domain"
	"cryptopulse/internal/upstream"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultEstimatorModel = "gpt-4o-mini"
	maxPromptEvents       = 10
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

var (
	onChainEstimateRx   = regexp.MustCompile(`(?i)active\s+wallets\s*:\s*([\d,]+(?:\.\d+)?)\s*,\s*growth\s*:\s*([+-]?\d+(?:\.\d+)?)\s*%?\s*,\s*large\s+transactions\s*:\s*([\d,]+(?:\.\d+)?)`)
	sentimentEstimateRx = regexp.MustCompile(`(?i)positive\s*:\s*(\d+(?:\.\d+)?)\s*%?\s*,\s*negative\s*:\s*(\d+(?:\.\d+)?)\s*%?\s*,\s*neutral\s*:\s*(\d+(?:\.\d+)?)`)
)

const onChainSystemPrompt = `You estimate daily on-chain activity for crypto assets.
Reply with exactly one line in this format and nothing else:
Active Wallets: <integer>, Growth: <percent with sign>, Large Transactions: <integer>`

const sentimentSystemPrompt = `You classify crypto news sentiment.
Reply with exactly one line in this format and nothing else:
Positive: <percent>, Negative: <percent>, Neutral: <percent>`

// Estimator asks a language model for rough figures when live data is missing.
type Estimator struct {
	llm    LLMClient
	model  string
	tracer trace.Tracer
	clock  Clock
}

func NewEstimator(llm LLMClient, model string, tracer trace.Tracer, clock Clock) *Estimator {
	if strings.TrimSpace(model) == "" {
		model = defaultEstimatorModel
	}
	return &Estimator{llm: llm, model: model, tracer: tracer, clock: clock}
}

// EstimateOnChain asks for a one-line activity estimate for coin.
func (e *Estimator) EstimateOnChain(ctx context.Context, coin, name string) (domain.OnChainSnapshot, error) {
	ctx, span := e.tracer.Start(ctx, "estimator.onchain")
	defer span.End()
	span.SetAttributes(attribute.String("coin", coin))

	prompt := fmt.Sprintf("Estimate today's on-chain activity for %s (%s).", name, coin)
	reply, err := e.complete(ctx, onChainSystemPrompt, prompt)
	if err != nil {
		span.RecordError(err)
		return domain.OnChainSnapshot{}, err
	}
	return ParseOnChainEstimate(coin, reply, e.clock.now())
}

// EstimateSentiment asks for a share split based on recent headlines. With
// no headlines there is nothing to classify.
func (e *Estimator) EstimateSentiment(ctx context.Context, coin string, events []domain.MarketEvent) (domain.SentimentReading, error) {
	ctx, span := e.tracer.Start(ctx, "estimator.sentiment")
	defer span.End()
	span.SetAttributes(attribute.String("coin", coin), attribute.Int("events", len(events)))

	if len(events) == 0 {
		return domain.SentimentReading{}, domain.NewError(domain.KindInsufficientData, "no events to estimate %s sentiment from", coin)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Classify the overall sentiment of these %s headlines:\n", coin)
	for i, ev := range events {
		if i == maxPromptEvents {
			break
		}
		fmt.Fprintf(&b, "- %s\n", ev.Title)
	}
	reply, err := e.complete(ctx, sentimentSystemPrompt, b.String())
	if err != nil {
		span.RecordError(err)
		return domain.SentimentReading{}, err
	}
	return ParseSentimentEstimate(coin, reply, e.clock.now())
}

func (e *Estimator) complete(ctx context.Context, system, user string) (string, error) {
	completion, err := e.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", classifyLLMError(ctx, err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", domain.NewError(domain.KindInvalidResponseFormat, "no choices in LLM response")
	}
	return trimCodeFence(completion.Choices[0].Message.Content), nil
}

func classifyLLMError(ctx context.Context, err error) error {
	if cerr := domain.ContextError(ctx); cerr != nil {
		return cerr
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		fe := upstream.StatusError(apiErr.StatusCode, nil)
		fe.Message = apiErr.Error()
		fe.Err = err
		return fe
	}
	return &domain.FetchError{Kind: domain.KindNetwork, Message: err.Error(), Err: err}
}

// ParseOnChainEstimate reads "Active Wallets: N, Growth: G, Large Transactions: M".
func ParseOnChainEstimate(coin, text string, now time.Time) (domain.OnChainSnapshot, error) {
	m := onChainEstimateRx.FindStringSubmatch(text)
	if m == nil {
		return domain.OnChainSnapshot{}, domain.NewError(domain.KindInvalidResponseFormat, "on-chain estimate not recognised: %q", sanitizeText(text, 120))
	}
	snap := domain.OnChainSnapshot{
		Coin:                   coin,
		ActiveWallets:          int64(max(parseFloatString(m[1]), 0)),
		ActiveWalletsGrowthPct: parseFloatString(m[2]),
		LargeTransactionCount:  int64(max(parseFloatString(m[3]), 0)),
		ObservedAt:             now.UTC(),
	}
	if snap.IsZero() {
		return domain.OnChainSnapshot{}, domain.NewError(domain.KindInvalidResponseFormat, "on-chain estimate is all zero")
	}
	return snap, nil
}

// ParseSentimentEstimate reads "Positive: P, Negative: N, Neutral: U" and
// rescales the shares to sum to 100.
func ParseSentimentEstimate(coin, text string, now time.Time) (domain.SentimentReading, error) {
	m := sentimentEstimateRx.FindStringSubmatch(text)
	if m == nil {
		return domain.SentimentReading{}, domain.NewError(domain.KindInvalidResponseFormat, "sentiment estimate not recognised: %q", sanitizeText(text, 120))
	}
	pos, neg, neu, ok := NormalizeShares(parseFloatString(m[1]), parseFloatString(m[2]), parseFloatString(m[3]))
	if !ok {
		return domain.SentimentReading{}, domain.NewError(domain.KindInvalidResponseFormat, "sentiment estimate is all zero")
	}
	return domain.SentimentReading{
		Coin:          coin,
		PositiveShare: pos,
		NegativeShare: neg,
		NeutralShare:  neu,
		Score:         ScoreFromShares(pos, neg),
		ObservedAt:    now.UTC(),
	}, nil
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "```") {
		return v
	}
	v = strings.TrimPrefix(v, "```")
	if i := strings.IndexByte(v, '\n'); i >= 0 {
		v = v[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "```"))
}

type openAIClient struct {
	client openai.Client
}

// NewOpenAIClient builds a chat client with SDK retries disabled; retries
// belong to the retry engine.
func NewOpenAIClient(apiKey string, opts ...option.RequestOption) LLMClient {
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	client := openai.NewClient(append(base, opts...)...)
	return &openAIClient{client: client}
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
