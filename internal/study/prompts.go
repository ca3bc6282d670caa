package study

import (
	"fmt"

	"github.com/p-n-ai/ntsa-buddy/internal/ai"
)

const (
	notesSystemPrompt = "You are a helpful, concise driving instructor."

	instructorSystemPrompt = `You are a Kenyan NTSA Driving Instructor AI.
Your goal is to help students pass their exams and drive safely in Kenya.

RULES:
1. IF the user asks about anything NOT related to driving, cars, traffic rules, or road safety, respond ONLY with: "Sorry, please ask about driving only."
2. Keep answers SHORT and SUMMARIZED. Max 3-4 sentences unless a list is needed.
3. Use simple English.`
)

// Replies used when the model returns no text.
const (
	FallbackNotes  = "Failed to load content. Please try again."
	FallbackSearch = "No results found."
	FallbackChat   = "I didn't catch that. Could you repeat?"
)

// MockExamTopic is the topic used for the full mock exam.
const MockExamTopic = "General Driving Knowledge"

// Difficulty levels accepted by GenerateQuiz.
const (
	DifficultyEasy = "easy"
	DifficultyHard = "hard"
)

// NormalizeDifficulty maps anything other than "hard" to "easy".
func NormalizeDifficulty(d string) string {
	if d == DifficultyHard {
		return DifficultyHard
	}
	return DifficultyEasy
}

func notesPrompt(topicTitle string) string {
	return fmt.Sprintf(`You are an expert Kenyan NTSA Driving Instructor.
Create a study guide for the topic: %q.

Requirements:
1. STRICTLY summarized, short content. No long paragraphs.
2. Use bullet points extensively.
3. Highlight key terms in **bold**.
4. Provide 2-3 real-world Kenyan driving examples (e.g., using Nairobi roads, matatus, local context).
5. Tone: Beginner-friendly, encouraging, easy to skim.
6. Structure:
   - 🎯 Quick Summary (1-2 sentences)
   - 🔑 Key Rules/Points (Bulleted list)
   - 🇰🇪 Kenyan Context Examples
   - ⚠️ Common Mistakes to Avoid

Return the response in Markdown format.`, topicTitle)
}

func searchPrompt(query string) string {
	return fmt.Sprintf(`Search query: %q regarding Kenyan Driving Rules.
Provide a direct, summarized answer with bullet points.
Cite specific NTSA rules if applicable.
Keep it under 150 words.`, query)
}

func quizPrompt(topic, difficulty string, count int) string {
	return fmt.Sprintf(`Generate %d %s multiple-choice questions about %q based on NTSA Kenya curriculum.
Options should be short.
Explanation should be 1 sentence.`, count, difficulty, topic)
}

// quizSchema describes the question array the model must return.
var quizSchema = &ai.Schema{
	Name: "ntsa-quiz-questions",
	Definition: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{"type": "string"},
				"options": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"correctAnswerIndex": map[string]any{"type": "integer"},
				"explanation":        map[string]any{"type": "string"},
			},
			"required":         []string{"question", "options", "correctAnswerIndex", "explanation"},
			"propertyOrdering": []string{"question", "options", "correctAnswerIndex", "explanation"},
		},
	},
}
