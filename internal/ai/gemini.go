package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"itinera/internal/metrics"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second
)

// Config selects the model and call limits. APIKey comes from configuration only.
type Config struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
}

// contentModel is the slice of *genai.GenerativeModel the generator uses.
type contentModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Generator implements TextGenerator using Google's Gemini models.
type Generator struct {
	client      *genai.Client
	model       contentModel
	modelName   string
	timeout     time.Duration
	maxAttempts int
	now         func() time.Time
	newBackOff  func() backoff.BackOff
}

// NewGenerator initializes a Gemini client with the itinerary generation settings.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = DefaultModel
	}
	model := client.GenerativeModel(name)
	configureModel(model)

	g := newGenerator(model, name, cfg)
	g.client = client
	return g, nil
}

func newGenerator(model contentModel, name string, cfg Config) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Generator{
		model:       model,
		modelName:   name,
		timeout:     timeout,
		maxAttempts: attempts,
		now:         time.Now,
		newBackOff:  func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// configureModel applies the fixed sampling and safety settings.
func configureModel(model *genai.GenerativeModel) {
	model.SetTemperature(0.7)
	model.SetTopK(40)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(8192)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
	}
}

// Close cleans up the Gemini client resources.
func (g *Generator) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// Model is the configured model name.
func (g *Generator) Model() string {
	return g.modelName
}

// Generate sends prompt as a single user turn and returns the first candidate's text.
// Transient upstream failures are retried up to MaxAttempts in total.
func (g *Generator) Generate(ctx context.Context, prompt string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	var text string
	op := func() error {
		t, err := g.generateOnce(ctx, prompt)
		if err != nil {
			var ue *UpstreamError
			if errors.As(err, &ue) && ue.Transient() && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		text = t
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(g.newBackOff(), uint64(g.maxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(op, policy)
	metrics.RecordGeneration(g.modelName, outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		return Result{}, err
	}
	return Result{Text: text, Model: g.modelName, GeneratedAt: g.now().UTC()}, nil
}

func (g *Generator) generateOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classify(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrMalformedResponse)
	}
	return b.String(), nil
}

// classify turns an SDK error into UpstreamError or ErrMalformedResponse.
func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, blocked)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := gerr.Body
		if body == "" {
			body = gerr.Message
		}
		return &UpstreamError{StatusCode: gerr.Code, Body: body, Err: err}
	}
	var aerr *apierror.APIError
	if errors.As(err, &aerr) && aerr.HTTPCode() > 0 {
		return &UpstreamError{StatusCode: aerr.HTTPCode(), Body: aerr.Error(), Err: err}
	}
	return &UpstreamError{StatusCode: 0, Body: err.Error(), Err: err}
}

func outcomeOf(err error) string {
	var ue *UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &ue):
		return "upstream"
	default:
		return "error"
	}
}
