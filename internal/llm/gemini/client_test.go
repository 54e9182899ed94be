package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/llm"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNewClient_NoKeyIsUnavailable(t *testing.T) {
	client, err := NewClient(config.Default())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	kind, ok := llm.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, llm.KindUnavailable, kind)
	assert.False(t, llm.Retryable(err))
	assert.NoError(t, client.Close())
}

func TestToContents_MergesAndKicksOff(t *testing.T) {
	history, last, err := toContents([]llm.Message{
		{Role: llm.RoleModel, Content: "Tell me about yourself."},
		{Role: llm.RoleUser, Content: "I build APIs."},
		{Role: llm.RoleModel, Content: "What was hard?"},
		{Role: llm.RoleUser, Content: "Scaling."},
		{Role: llm.RoleUser, Content: "Ask the next question."},
	})
	require.NoError(t, err)

	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, genai.Text(kickoff), history[0].Parts[0])
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, "user", history[2].Role)
	assert.Equal(t, "model", history[3].Role)
	assert.Equal(t, "Scaling.\n\nAsk the next question.", last)
}

func TestToContents_Rejects(t *testing.T) {
	_, _, err := toContents(nil)
	assert.Error(t, err)

	_, _, err = toContents([]llm.Message{{Role: llm.RoleModel, Content: "hello"}})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      llm.ErrorKind
		retryable bool
	}{
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), llm.KindTimeout, true},
		{"http 429", &googleapi.Error{Code: 429}, llm.KindRateLimited, true},
		{"http 503", &googleapi.Error{Code: 503}, llm.KindUnavailable, true},
		{"http 504", &googleapi.Error{Code: 504}, llm.KindTimeout, true},
		{"http 401", &googleapi.Error{Code: 401}, llm.KindUnavailable, false},
		{"http 400", &googleapi.Error{Code: 400}, llm.KindInvalidResponse, false},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), llm.KindRateLimited, true},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), llm.KindUnavailable, true},
		{"blocked", &genai.BlockedError{}, llm.KindInvalidResponse, false},
		{"message rate limit", errors.New("Rate limit reached for model"), llm.KindRateLimited, true},
		{"unknown", errors.New("connection reset"), llm.KindUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			kind, ok := llm.KindOf(got)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.retryable, llm.Retryable(got))
		})
	}
}

func TestClassify_PassesThroughCancel(t *testing.T) {
	err := fmt.Errorf("send: %w", context.Canceled)
	assert.Same(t, err, classify(err))
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", responseText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("there")}},
	}}}
	assert.Equal(t, "Hello there", responseText(resp))
}
