package service

import (
	"fmt"
	"strings"

	"github.com/Jobt25/First-jobt-repo/internal/model"
)

const feedbackSystemPrompt = "You are an expert interview coach providing detailed, actionable feedback."

var difficultyGuidance = map[model.Difficulty]string{
	model.DifficultyBeginner: `For beginner-level candidates:
- Be extra warm, patient and encouraging
- Focus on foundational knowledge and basic concepts
- Ask about their learning journey, passion and motivation
- Emphasize potential and willingness to learn
- Keep questions straightforward and avoid intimidating jargon`,
	model.DifficultyIntermediate: `For intermediate-level candidates:
- Expect practical experience and real-world examples
- Ask about specific projects and challenges they have faced
- Explore their problem-solving approach
- Balance technical and behavioral questions`,
	model.DifficultyAdvanced: `For advanced-level candidates:
- Expect deep expertise and nuanced understanding
- Ask complex, scenario-based questions
- Explore architectural decisions and trade-offs
- Assess leadership and mentorship capabilities`,
}

func interviewerSystemPrompt(category string, difficulty model.Difficulty) string {
	guidance, ok := difficultyGuidance[difficulty]
	if !ok {
		guidance = difficultyGuidance[model.DifficultyIntermediate]
	}
	return fmt.Sprintf(`You are an experienced hiring manager conducting a %[2]s-level job interview for a %[1]s position.

Your role:
- Act as a professional, friendly interviewer who wants the candidate to succeed
- Ask relevant, insightful questions appropriate for %[1]s roles
- Ask follow-up questions based on the candidate's answers
- Keep a warm, encouraging and conversational tone

Interview guidelines:
- Ask exactly one clear question at a time
- Dig deeper when answers are vague
- For behavioral questions, steer the candidate toward the STAR method (Situation, Task, Action, Result)
- Avoid stock phrases such as "I noticed you mentioned" or "Based on what you said"
- Reply with the interviewer's words only, no meta-commentary

Difficulty level: %[2]s
%[3]s

This is a practice interview. Be constructive while keeping realistic interview standards.`, category, difficulty, guidance)
}

func profileContext(account *model.Account) string {
	if account == nil {
		return "No additional context provided."
	}
	var parts []string
	if account.FullName != "" {
		parts = append(parts, "Candidate: "+account.FullName)
	}
	if account.CurrentJobTitle != "" {
		parts = append(parts, "Current Role: "+account.CurrentJobTitle)
	}
	if account.TargetJobRole != "" {
		parts = append(parts, "Target Role: "+account.TargetJobRole)
	}
	if account.YearsOfExperience > 0 {
		parts = append(parts, fmt.Sprintf("Experience: %d years", account.YearsOfExperience))
	}
	if len(parts) == 0 {
		return "No additional context provided."
	}
	return strings.Join(parts, "\n")
}

func firstQuestionPrompt(account *model.Account) string {
	return fmt.Sprintf(`Start the interview with an opening question.

%s

Begin with a warm greeting and an opening question that helps you understand the candidate's background and motivations, such as "Tell me about yourself" or "Why are you interested in this role?".
Keep it conversational and welcoming.`, profileContext(account))
}

func followUpPrompt(lastAnswer string, asked, total int) string {
	return fmt.Sprintf(`The candidate just answered:
"""
%s
"""

Questions asked so far: %d of %d

Ask a follow-up question that builds directly on that answer:
- Dig deeper into an interesting point they raised
- Ask for a specific example if the answer was vague
- Keep the question relevant to the role
- Do NOT start with "I noticed you mentioned", "You mentioned" or "Based on"

Ask only ONE clear question.`, lastAnswer, asked, total)
}

func finalQuestionPrompt(lastAnswer string, asked int) string {
	return fmt.Sprintf(`The candidate just answered:
"""
%s
"""

This is the final question of the interview. Questions asked so far: %d

Ask a closing question that gives the candidate a chance to highlight anything they have not mentioned and ends the interview on a positive note, such as "Is there anything else you'd like me to know?".
Keep it brief.`, lastAnswer, asked)
}

func transcriptText(turns []model.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		switch t.Speaker {
		case model.SpeakerInterviewer:
			b.WriteString("INTERVIEWER: ")
		case model.SpeakerCandidate:
			b.WriteString("CANDIDATE: ")
		}
		b.WriteString(t.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

func feedbackPrompt(turns []model.Turn, fc FeedbackContext) string {
	return fmt.Sprintf(`You are analyzing a completed %s-level interview for a %s position.

Interview transcript:
%s

Grade the candidate and answer with a single JSON object of this shape:
{
  "relevance_score": <0-100, how well answers addressed the questions>,
  "confidence_score": <0-100, clarity, decisiveness and self-assurance>,
  "positivity_score": <0-100, professional tone, enthusiasm and attitude>,
  "strengths": ["3-5 specific strengths with examples from the answers"],
  "weaknesses": ["3-5 constructive areas for improvement"],
  "summary": "2-3 sentence overall assessment",
  "actionable_tips": ["5-7 practical tips for improvement"]
}

Be honest but constructive.`, fc.Difficulty, fc.Category, transcriptText(turns))
}

// fallbackOpeningQuestion is used when the provider cannot produce the
// opening question after retries.
func fallbackOpeningQuestion(category string) string {
	return fmt.Sprintf("Hello! Thank you for taking the time to interview for the %s position. Let's start with: Tell me about yourself and your background.", category)
}
