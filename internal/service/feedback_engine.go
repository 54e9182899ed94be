package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Jobt25/First-jobt-repo/config"
	"github.com/Jobt25/First-jobt-repo/internal/llm"
	"github.com/Jobt25/First-jobt-repo/internal/model"
)

type FeedbackContext struct {
	Category   string
	Difficulty model.Difficulty
}

// RubricScores is what the grader returns for a transcript. Scores are on
// a 0-100 scale.
type RubricScores struct {
	Relevance  float64
	Confidence float64
	Positivity float64
	Strengths  []string
	Weaknesses []string
	Tips       []string
	Summary    string
}

// Rubric grades a transcript. It returns the scores and the tokens spent.
type Rubric interface {
	Grade(ctx context.Context, transcript []model.Turn, fc FeedbackContext) (*RubricScores, int, error)
}

type FeedbackEngine interface {
	Generate(ctx context.Context, transcript []model.Turn, fc FeedbackContext) (*model.Feedback, int, error)
}

type Weights struct {
	Relevance  float64
	Confidence float64
	Positivity float64
}

type feedbackEngine struct {
	rubric  Rubric
	weights Weights
	fillers []*regexp.Regexp
}

func NewFeedbackEngine(rubric Rubric, cfg *config.Config) FeedbackEngine {
	return &feedbackEngine{
		rubric: rubric,
		weights: Weights{
			Relevance:  cfg.Feedback.RelevanceWeight,
			Confidence: cfg.Feedback.ConfidenceWeight,
			Positivity: cfg.Feedback.PositivityWeight,
		},
		fillers: compileFillers(cfg.Feedback.FillerWords),
	}
}

func compileFillers(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return patterns
}

func (e *feedbackEngine) Generate(ctx context.Context, transcript []model.Turn, fc FeedbackContext) (*model.Feedback, int, error) {
	scores, tokens, err := e.rubric.Grade(ctx, transcript, fc)
	if err != nil {
		return nil, 0, err
	}

	feedback := &model.Feedback{
		RelevanceScore:    clampScore(scores.Relevance),
		ConfidenceScore:   clampScore(scores.Confidence),
		PositivityScore:   clampScore(scores.Positivity),
		Strengths:         nonNil(scores.Strengths),
		Weaknesses:        nonNil(scores.Weaknesses),
		Tips:              nonNil(scores.Tips),
		Summary:           scores.Summary,
		FillerWordCount:   CountFillerWords(transcript, e.fillers),
		AvgResponseLength: AverageResponseLength(transcript),
	}
	feedback.OverallScore = OverallScore(feedback.RelevanceScore, feedback.ConfidenceScore, feedback.PositivityScore, e.weights)
	return feedback, tokens, nil
}

// CountFillerWords counts whole-word occurrences of every lexicon entry
// across candidate turns, case-insensitively.
func CountFillerWords(transcript []model.Turn, fillers []*regexp.Regexp) int {
	count := 0
	for _, t := range transcript {
		if t.Speaker != model.SpeakerCandidate {
			continue
		}
		text := strings.ToLower(t.Text)
		for _, re := range fillers {
			count += len(re.FindAllStringIndex(text, -1))
		}
	}
	return count
}

// AverageResponseLength is the integer mean word count of candidate turns.
func AverageResponseLength(transcript []model.Turn) int {
	words, answers := 0, 0
	for _, t := range transcript {
		if t.Speaker != model.SpeakerCandidate {
			continue
		}
		words += len(strings.Fields(t.Text))
		answers++
	}
	if answers == 0 {
		return 0
	}
	return words / answers
}

// OverallScore is the weighted mean of the three sub-scores, rounded to one
// decimal. Non-positive total weight falls back to equal weights.
func OverallScore(relevance, confidence, positivity float64, w Weights) float64 {
	total := w.Relevance + w.Confidence + w.Positivity
	if w.Relevance < 0 || w.Confidence < 0 || w.Positivity < 0 || total <= 0 {
		w = Weights{1, 1, 1}
		total = 3
	}
	score := (relevance*w.Relevance + confidence*w.Confidence + positivity*w.Positivity) / total
	return math.Round(clampScore(score)*10) / 10
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

type llmRubric struct {
	caller *llmCaller
}

// NewLLMRubric grades transcripts with a single JSON-mode provider call.
func NewLLMRubric(provider llm.Provider, cfg *config.Config) Rubric {
	return &llmRubric{caller: newLLMCaller(provider, cfg.Interview)}
}

type rubricPayload struct {
	Relevance  *float64 `json:"relevance_score"`
	Confidence *float64 `json:"confidence_score"`
	Positivity *float64 `json:"positivity_score"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Tips       []string `json:"actionable_tips"`
	AltTips    []string `json:"tips"`
	Summary    string   `json:"summary"`
}

// extractJSON strips markdown fences and surrounding prose.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object in response")
	}
	return text[start : end+1], nil
}

func parseRubric(c *llm.Completion) (*RubricScores, error) {
	raw, err := extractJSON(c.Text)
	if err != nil {
		return nil, err
	}
	var payload rubricPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode rubric: %w", err)
	}
	if payload.Relevance == nil || payload.Confidence == nil || payload.Positivity == nil {
		return nil, errors.New("rubric is missing a score")
	}
	tips := payload.Tips
	if len(tips) == 0 {
		tips = payload.AltTips
	}
	return &RubricScores{
		Relevance:  *payload.Relevance,
		Confidence: *payload.Confidence,
		Positivity: *payload.Positivity,
		Strengths:  payload.Strengths,
		Weaknesses: payload.Weaknesses,
		Tips:       tips,
		Summary:    strings.TrimSpace(payload.Summary),
	}, nil
}

func (r *llmRubric) Grade(ctx context.Context, transcript []model.Turn, fc FeedbackContext) (*RubricScores, int, error) {
	req := llm.Request{
		System:      feedbackSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: feedbackPrompt(transcript, fc)}},
		MaxTokens:   1000,
		Temperature: 0.5,
		JSON:        true,
	}
	return callLLM(ctx, r.caller, "feedback", req, parseRubric)
}
