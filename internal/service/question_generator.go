package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/llm"
	"github.com/Jobt25/First-jobt-repo/internal/model"
)

// QuestionContext seeds the interviewer persona for one session.
type QuestionContext struct {
	Category       string
	Difficulty     model.Difficulty
	Profile        *model.Account
	TotalQuestions int
}

type Question struct {
	Text       string
	TokensUsed int
	IsFinal    bool
	Model      string
}

type QuestionGenerator interface {
	GenerateFirst(ctx context.Context, qc QuestionContext) (*Question, error)
	// GenerateNext asks a follow-up to the latest candidate answer in
	// transcript, which must end with that answer.
	GenerateNext(ctx context.Context, transcript []model.Turn, qc QuestionContext) (*Question, error)
}

type questionGenerator struct {
	caller    *llmCaller
	maxTokens int32
}

func NewQuestionGenerator(provider llm.Provider, cfg *config.Config) QuestionGenerator {
	return &questionGenerator{caller: newLLMCaller(provider, cfg.Interview), maxTokens: 300}
}

// toMessages maps stored speakers onto provider roles. This is the only
// place the transcript vocabulary meets the provider's.
func toMessages(turns []model.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns)+1)
	for _, t := range turns {
		role := llm.RoleUser
		if t.Speaker == model.SpeakerInterviewer {
			role = llm.RoleModel
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Text})
	}
	return messages
}

func parseQuestion(c *llm.Completion) (*Question, error) {
	text := strings.TrimSpace(c.Text)
	text = strings.Trim(text, "\"")
	text = strings.TrimSpace(strings.TrimPrefix(text, "INTERVIEWER:"))
	if text == "" {
		return nil, errors.New("empty question")
	}
	return &Question{Text: text, Model: c.Model}, nil
}

func (g *questionGenerator) GenerateFirst(ctx context.Context, qc QuestionContext) (*Question, error) {
	req := llm.Request{
		System:    interviewerSystemPrompt(qc.Category, qc.Difficulty),
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: firstQuestionPrompt(qc.Profile)}},
		MaxTokens: g.maxTokens,
	}
	q, tokens, err := callLLM(ctx, g.caller, "first_question", req, parseQuestion)
	if err != nil {
		return nil, err
	}
	q.TokensUsed = tokens
	q.IsFinal = qc.TotalQuestions <= 1
	return q, nil
}

func (g *questionGenerator) GenerateNext(ctx context.Context, transcript []model.Turn, qc QuestionContext) (*Question, error) {
	lastAnswer := ""
	asked := 0
	for _, t := range transcript {
		if t.Speaker == model.SpeakerInterviewer {
			asked++
		} else {
			lastAnswer = t.Text
		}
	}
	isFinal := asked >= qc.TotalQuestions-1

	prompt := followUpPrompt(lastAnswer, asked, qc.TotalQuestions)
	if isFinal {
		prompt = finalQuestionPrompt(lastAnswer, asked)
	}

	req := llm.Request{
		System:    interviewerSystemPrompt(qc.Category, qc.Difficulty),
		Messages:  append(toMessages(transcript), llm.Message{Role: llm.RoleUser, Content: prompt}),
		MaxTokens: g.maxTokens,
	}
	q, tokens, err := callLLM(ctx, g.caller, "next_question", req, parseQuestion)
	if err != nil {
		return nil, err
	}
	q.TokensUsed = tokens
	q.IsFinal = isFinal
	return q, nil
}
