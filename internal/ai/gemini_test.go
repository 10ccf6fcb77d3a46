package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type fakeModel struct {
	calls     int
	responses []*genai.GenerateContentResponse
	errs      []error
	prompts   []string
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	if len(parts) > 0 {
		if txt, ok := parts[0].(genai.Text); ok {
			f.prompts = append(f.prompts, string(txt))
		}
	}
	var resp *genai.GenerateContentResponse
	var err error
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func newTestGenerator(m *fakeModel, attempts int) *Generator {
	g := newGenerator(m, "test-model", Config{MaxAttempts: attempts, Timeout: time.Second})
	g.now = func() time.Time { return time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC) }
	g.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return g
}

func TestGenerateReturnsCandidateText(t *testing.T) {
	m := &fakeModel{responses: []*genai.GenerateContentResponse{textResponse("Day 1: ", "Louvre")}}
	g := newTestGenerator(m, 1)

	res, err := g.Generate(context.Background(), "plan Paris")
	require.NoError(t, err)
	assert.Equal(t, "Day 1: Louvre", res.Text)
	assert.Equal(t, "test-model", res.Model)
	assert.Equal(t, time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC), res.GeneratedAt)
	assert.Equal(t, []string{"plan Paris"}, m.prompts)
}

func TestGenerateMalformedResponses(t *testing.T) {
	cases := map[string]*genai.GenerateContentResponse{
		"nil response":  nil,
		"no candidates": {},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
		"blank text":    textResponse("  "),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			m := &fakeModel{responses: []*genai.GenerateContentResponse{resp}}
			_, err := newTestGenerator(m, 3).Generate(context.Background(), "p")
			require.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, 1, m.calls, "malformed answers are not retried")
		})
	}
}

func TestGenerateSafetyBlockIsMalformed(t *testing.T) {
	m := &fakeModel{errs: []error{&genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}}}}
	_, err := newTestGenerator(m, 1).Generate(context.Background(), "p")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGenerateUpstreamStatus(t *testing.T) {
	m := &fakeModel{errs: []error{&googleapi.Error{Code: http.StatusBadRequest, Body: `{"error":"bad key"}`}}}
	_, err := newTestGenerator(m, 3).Generate(context.Background(), "p")

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusBadRequest, ue.StatusCode)
	assert.Contains(t, ue.Body, "bad key")
	assert.Equal(t, 1, m.calls, "4xx other than 429 is not retried")
}

func TestGenerateTransportFailureHasNoStatus(t *testing.T) {
	m := &fakeModel{errs: []error{errors.New("dial tcp: connection refused")}}
	_, err := newTestGenerator(m, 1).Generate(context.Background(), "p")

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, 0, ue.StatusCode)
	assert.Contains(t, ue.Error(), "unreachable")
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	m := &fakeModel{
		errs: []error{
			&googleapi.Error{Code: http.StatusTooManyRequests, Message: "slow down"},
			&googleapi.Error{Code: http.StatusServiceUnavailable, Message: "overloaded"},
			nil,
		},
		responses: []*genai.GenerateContentResponse{nil, nil, textResponse("ok")},
	}
	res, err := newTestGenerator(m, 3).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 3, m.calls)
}

func TestGenerateSingleAttemptByDefault(t *testing.T) {
	m := &fakeModel{errs: []error{&googleapi.Error{Code: http.StatusServiceUnavailable}}}
	_, err := newTestGenerator(m, 0).Generate(context.Background(), "p")

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
	assert.Equal(t, 1, m.calls)
}

func TestConfigureModelSettings(t *testing.T) {
	model := &genai.GenerativeModel{}
	configureModel(model)

	require.NotNil(t, model.Temperature)
	assert.InDelta(t, 0.7, *model.Temperature, 1e-6)
	require.NotNil(t, model.TopK)
	assert.Equal(t, int32(40), *model.TopK)
	require.NotNil(t, model.TopP)
	assert.InDelta(t, 0.95, *model.TopP, 1e-6)
	require.NotNil(t, model.MaxOutputTokens)
	assert.Equal(t, int32(8192), *model.MaxOutputTokens)
	require.Len(t, model.SafetySettings, 4)
	for _, s := range model.SafetySettings {
		assert.Equal(t, genai.HarmBlockMediumAndAbove, s.Threshold)
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), Config{})
	require.Error(t, err)
}
