// Package gemini adapts Google's Gemini models to llm.Provider.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/llm"
	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const providerName = "gemini"

// kickoff opens a conversation whose first turn belongs to the model.
const kickoff = "Please begin the interview."

type Client struct {
	client *genai.Client
	cfg    config.Gemini
}

// NewClient dials Gemini. Without an API key it returns a client whose
// calls fail as unavailable, so the service can still boot.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.Gemini.ApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Question generation will be unavailable.")
		return &Client{cfg: cfg.Gemini}, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.Gemini.ApiKey))
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Kind:     llm.KindUnavailable,
			Message:  "failed to create Gemini client",
			Fatal:    true,
			Err:      err,
		}
	}
	return &Client{client: client, cfg: cfg.Gemini}, nil
}

func (c *Client) Name() string { return providerName }

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	if c.client == nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Kind:     llm.KindUnavailable,
			Message:  "client not initialized",
			Fatal:    true,
		}
	}

	history, last, err := toContents(req.Messages)
	if err != nil {
		return nil, &llm.ProviderError{Provider: providerName, Kind: llm.KindInvalidResponse, Message: "bad request", Fatal: true, Err: err}
	}

	model := c.client.GenerativeModel(c.cfg.Model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxOutputTokens
	}
	model.SetMaxOutputTokens(maxTokens)
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = c.cfg.Temperature
	}
	model.SetTemperature(temperature)
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	chat := model.StartChat()
	chat.History = history
	resp, err := chat.SendMessage(ctx, genai.Text(last))
	if err != nil {
		classified := classify(err)
		log.Warn().Err(err).Str("model", c.cfg.Model).Msg("Gemini call failed")
		return nil, classified
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, &llm.ProviderError{Provider: providerName, Kind: llm.KindInvalidResponse, Message: "empty response"}
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return &llm.Completion{Text: text, TokensUsed: tokens, Model: c.cfg.Model}, nil
}

// toContents folds the conversation into Gemini chat history plus the final
// user message. Consecutive messages from the same role are merged and a
// conversation that opens with the model gets a user kickoff first.
func toContents(messages []llm.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", errors.New("no messages")
	}
	if messages[len(messages)-1].Role != llm.RoleUser {
		return nil, "", errors.New("last message must come from the user")
	}

	type turn struct {
		role  llm.Role
		texts []string
	}
	var turns []turn
	for _, m := range messages {
		if n := len(turns); n > 0 && turns[n-1].role == m.Role {
			turns[n-1].texts = append(turns[n-1].texts, m.Content)
			continue
		}
		turns = append(turns, turn{role: m.Role, texts: []string{m.Content}})
	}
	if turns[0].role != llm.RoleUser {
		turns = append([]turn{{role: llm.RoleUser, texts: []string{kickoff}}}, turns...)
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, t := range turns[:len(turns)-1] {
		history = append(history, &genai.Content{
			Role:  string(t.role),
			Parts: []genai.Part{genai.Text(strings.Join(t.texts, "\n\n"))},
		})
	}
	return history, strings.Join(turns[len(turns)-1].texts, "\n\n"), nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

// classify maps SDK and transport failures onto llm error kinds.
// Cancellation by the caller is passed through untouched.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	wrap := func(kind llm.ErrorKind, msg string, fatal bool) error {
		return &llm.ProviderError{Provider: providerName, Kind: kind, Message: msg, Fatal: fatal, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return wrap(llm.KindTimeout, "request timed out", false)
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return wrap(llm.KindInvalidResponse, "response blocked", false)
	}

	if code := httpCode(err); code != 0 {
		switch {
		case code == http.StatusTooManyRequests:
			return wrap(llm.KindRateLimited, "rate limited", false)
		case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
			return wrap(llm.KindTimeout, "request timed out", false)
		case code >= 500:
			return wrap(llm.KindUnavailable, "service unavailable", false)
		case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusNotFound:
			return wrap(llm.KindUnavailable, "request rejected", true)
		case code >= 400:
			return wrap(llm.KindInvalidResponse, "request rejected", true)
		}
	}

	switch status.Code(err) {
	case codes.ResourceExhausted:
		return wrap(llm.KindRateLimited, "rate limited", false)
	case codes.DeadlineExceeded:
		return wrap(llm.KindTimeout, "request timed out", false)
	case codes.Unavailable, codes.Internal, codes.Aborted:
		return wrap(llm.KindUnavailable, "service unavailable", false)
	case codes.Unauthenticated, codes.PermissionDenied, codes.NotFound:
		return wrap(llm.KindUnavailable, "request rejected", true)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return wrap(llm.KindInvalidResponse, "request rejected", true)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") || strings.Contains(msg, "429"):
		return wrap(llm.KindRateLimited, "rate limited", false)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return wrap(llm.KindTimeout, "request timed out", false)
	}
	return wrap(llm.KindUnavailable, "request failed", false)
}

func httpCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	var aerr *apierror.APIError
	if errors.As(err, &aerr) {
		if code := aerr.HTTPCode(); code > 0 {
			return code
		}
	}
	return 0
}

